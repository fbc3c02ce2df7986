package docstore

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/roach88/archq/internal/adapter"
	"github.com/roach88/archq/internal/query"
	"github.com/roach88/archq/internal/request"
	"github.com/roach88/archq/internal/translate"
)

// FindOptions maps the envelope's filter and projection onto find options.
// An "#all" projection, or none, selects every field but the excluded ones.
func (t *Translator) FindOptions(req *request.Request) (*options.FindOptions, error) {
	opts := options.Find()
	filter := req.Filter()

	if limit, ok := filter.Limit(); ok {
		opts.SetLimit(limit)
	}
	if offset, ok := filter.Offset(); ok {
		opts.SetSkip(offset)
	}
	if order := filter.OrderBy(); len(order) > 0 {
		sort := make(bson.D, 0, len(order))
		for _, e := range order {
			f, err := t.names.Field(e.Field)
			if err != nil {
				return nil, err
			}
			sort = append(sort, bson.E{Key: f, Value: int(e.Direction)})
		}
		opts.SetSort(sort)
	}
	if filter.HasHint(request.HintNoTimeout) {
		opts.SetNoCursorTimeout(true)
	}

	proj := req.Projection()
	if proj.NumFields() > 0 {
		all := proj.AllFields()
		fields := bson.D{}
		for _, e := range proj.Fields() {
			// Under "#all" only exclusions narrow the document.
			if e.Field == adapter.AllFields || all && e.Include {
				continue
			}
			f, err := t.names.Projection(e.Field)
			if err != nil {
				return nil, err
			}
			include := 0
			if e.Include {
				include = 1
			}
			fields = append(fields, bson.E{Key: f, Value: include})
		}
		if len(fields) > 0 {
			opts.SetProjection(fields)
		}
	}
	return opts, nil
}

// Scope restricts a later hop to the neighbourhood of roots, the
// identifiers matched by the previous hop.
//
//	nil window  any descendant    {ancestors: {$in: roots}}
//	0           the roots         {_id: {$in: roots}}
//	1           direct children   {parent: {$in: roots}}
//	n > 1       descendants ≤ n   {$or: [{distances.r: {$lte: n}}, ...]}
//
// Models without ancestor or distance fields fall back to the parent
// field. Negative windows fail with translate.ErrNegativeWindow.
func (t *Translator) Scope(roots []string, window *query.DepthWindow, h adapter.Hierarchy) (bson.D, error) {
	if len(roots) == 0 {
		return idIn(t.names.IDField(), roots), nil
	}
	switch {
	case window == nil:
		if h.Ancestors != "" {
			return idIn(h.Ancestors, roots), nil
		}
		return idIn(h.Parent, roots), nil
	case window.Relative == 0:
		return idIn(t.names.IDField(), roots), nil
	case window.Relative == 1, window.Relative > 1 && h.Distances == "":
		return idIn(h.Parent, roots), nil
	case window.Relative > 1:
		clauses := make(bson.A, len(roots))
		for i, r := range roots {
			clauses[i] = bson.D{{Key: fmt.Sprintf("%s.%s", h.Distances, r),
				Value: bson.D{{Key: "$lte", Value: int64(window.Relative)}}}}
		}
		if len(clauses) == 1 {
			return clauses[0].(bson.D), nil
		}
		return bson.D{{Key: "$or", Value: clauses}}, nil
	default:
		return nil, translate.ErrNegativeWindow
	}
}
