package search

import (
	"fmt"

	"github.com/roach88/archq/internal/adapter"
	"github.com/roach88/archq/internal/ir"
	"github.com/roach88/archq/internal/query"
	"github.com/roach88/archq/internal/request"
	"github.com/roach88/archq/internal/translate"
)

// SortField is one entry of a search sort.
type SortField struct {
	Field string
	Order string
}

// SearchRequest is a complete search request body.
type SearchRequest struct {
	Query    Query
	From     *int64
	Size     *int64
	Sort     []SortField
	Includes []string
	Excludes []string
}

// Document returns the body as an ordered document.
func (r *SearchRequest) Document() *ir.Document {
	doc := ir.NewDocument()
	if r.From != nil {
		doc.Set("from", ir.Int(*r.From))
	}
	if r.Size != nil {
		doc.Set("size", ir.Int(*r.Size))
	}
	if len(r.Sort) > 0 {
		sort := make(ir.Array, len(r.Sort))
		for i, s := range r.Sort {
			sort[i] = ir.D(ir.P(s.Field, ir.D(ir.P("order", ir.String(s.Order)))))
		}
		doc.Set("sort", sort)
	}
	if len(r.Includes) > 0 || len(r.Excludes) > 0 {
		source := ir.NewDocument()
		if len(r.Includes) > 0 {
			source.Set("includes", stringArray(r.Includes))
		}
		if len(r.Excludes) > 0 {
			source.Set("excludes", stringArray(r.Excludes))
		}
		doc.Set("_source", source)
	}
	if r.Query != nil {
		doc.Set("query", r.Query.Document())
	}
	return doc
}

// MarshalJSON implements json.Marshaler.
func (r *SearchRequest) MarshalJSON() ([]byte, error) {
	return ir.MarshalValue(r.Document())
}

// Body builds the request body for q from the envelope's filter and
// projection.
func (t *Translator) Body(req *request.Request, q Query) (*SearchRequest, error) {
	body := &SearchRequest{Query: q}
	filter := req.Filter()

	if offset, ok := filter.Offset(); ok {
		body.From = &offset
	}
	if limit, ok := filter.Limit(); ok {
		body.Size = &limit
	}
	for _, e := range filter.OrderBy() {
		f, err := t.names.Field(e.Field)
		if err != nil {
			return nil, err
		}
		order := "asc"
		if e.Direction == request.Desc {
			order = "desc"
		}
		body.Sort = append(body.Sort, SortField{Field: f, Order: order})
	}

	proj := req.Projection()
	all := proj.AllFields()
	for _, e := range proj.Fields() {
		if e.Field == adapter.AllFields || all && e.Include {
			continue
		}
		f, err := t.names.Projection(e.Field)
		if err != nil {
			return nil, err
		}
		if e.Include {
			body.Includes = append(body.Includes, f)
		} else {
			body.Excludes = append(body.Excludes, f)
		}
	}
	return body, nil
}

// Scope restricts a later hop to the neighbourhood of roots. It mirrors
// the document-store scoping with terms and range clauses.
func (t *Translator) Scope(roots []string, window *query.DepthWindow, h adapter.Hierarchy) (Query, error) {
	if len(roots) == 0 {
		return idTerms(t.names.IDField(), nil), nil
	}
	switch {
	case window == nil:
		if h.Ancestors != "" {
			return idTerms(h.Ancestors, roots), nil
		}
		return idTerms(h.Parent, roots), nil
	case window.Relative == 0:
		return idTerms(t.names.IDField(), roots), nil
	case window.Relative == 1, window.Relative > 1 && h.Distances == "":
		return idTerms(h.Parent, roots), nil
	case window.Relative > 1:
		should := make([]Query, len(roots))
		for i, r := range roots {
			should[i] = Range{Field: fmt.Sprintf("%s.%s", h.Distances, r), LTE: ir.Int(window.Relative)}
		}
		return Bool{Should: should, MinimumShouldMatch: 1}, nil
	default:
		return nil, translate.ErrNegativeWindow
	}
}
