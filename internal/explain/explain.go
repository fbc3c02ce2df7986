// Package explain renders what a request compiles to, as an ordered
// document: the selected backend, the roots restriction, every hop and the
// find options or search body. The CLI prints it and the scenario harness
// snapshots it.
package explain

import (
	"fmt"
	"strconv"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/roach88/archq/internal/adapter"
	"github.com/roach88/archq/internal/ir"
	"github.com/roach88/archq/internal/request"
	"github.com/roach88/archq/internal/translate"
	"github.com/roach88/archq/internal/translate/docstore"
	"github.com/roach88/archq/internal/translate/search"
)

// Auto lets the request's content select the backend.
const Auto translate.Backend = "auto"

// Resolve returns the backend req compiles for. Auto selects the search
// engine for full-text requests.
func Resolve(req *request.Request, b translate.Backend) translate.Backend {
	if b == "" || b == Auto {
		return translate.SelectBackend(req)
	}
	return b
}

// Request explains every hop of req.
//
// For the search backend the body wraps the last hop. A single-hop request
// also carries its roots in the body; later hops are scoped by the engine
// at run time, so their body has no roots.
func Request(req *request.Request, b translate.Backend) (*ir.Document, error) {
	b = Resolve(req, b)
	fields, err := adapter.ForModel(req.Model)
	if err != nil {
		return nil, err
	}

	out := ir.NewDocument()
	out.Set("model", ir.String(req.Model.Key()))
	out.Set("backend", ir.String(string(b)))
	out.Set("full_text", ir.Bool(translate.HasFullTextQuery(req)))

	switch b {
	case translate.DocumentStore:
		t := docstore.New(fields)
		roots, err := t.CompileRoots(req, "")
		if err != nil {
			return nil, err
		}
		hops, err := translate.CompileAll[bson.D](t, req)
		if err != nil {
			return nil, err
		}
		opts, err := t.FindOptions(req)
		if err != nil {
			return nil, err
		}
		out.Set("roots", FromBSON(roots))
		arr := make(ir.Array, len(hops))
		for i, h := range hops {
			arr[i] = FromBSON(h)
		}
		out.Set("hops", arr)
		out.Set("options", FindOptions(opts))

	case translate.SearchEngine:
		t := search.New(fields)
		roots, err := t.CompileRoots(req, "")
		if err != nil {
			return nil, err
		}
		hops, err := translate.CompileAll[search.Query](t, req)
		if err != nil {
			return nil, err
		}
		out.Set("roots", roots.Document())
		arr := make(ir.Array, len(hops))
		for i, h := range hops {
			arr[i] = h.Document()
		}
		out.Set("hops", arr)
		if len(hops) > 0 {
			q := hops[len(hops)-1]
			if len(hops) == 1 {
				q = search.FullCommand(q, roots)
			}
			body, err := t.Body(req, q)
			if err != nil {
				return nil, err
			}
			out.Set("body", body.Document())
		}

	default:
		return nil, fmt.Errorf("unknown backend %q", b)
	}
	return out, nil
}

// Hop explains hop n of req alone.
func Hop(req *request.Request, b translate.Backend, n int) (ir.Value, error) {
	b = Resolve(req, b)
	fields, err := adapter.ForModel(req.Model)
	if err != nil {
		return nil, err
	}
	switch b {
	case translate.DocumentStore:
		d, err := translate.CompileNth[bson.D](docstore.New(fields), req, n)
		if err != nil {
			return nil, err
		}
		return FromBSON(d), nil
	case translate.SearchEngine:
		q, err := translate.CompileNth[search.Query](search.New(fields), req, n)
		if err != nil {
			return nil, err
		}
		return q.Document(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", b)
	}
}

// FindOptions renders the parts of opts the docstore translator sets.
// Sort keys keep their order.
func FindOptions(opts *options.FindOptions) *ir.Document {
	out := ir.NewDocument()
	if opts == nil {
		return out
	}
	if opts.Skip != nil {
		out.Set("skip", ir.Int(*opts.Skip))
	}
	if opts.Limit != nil {
		out.Set("limit", ir.Int(*opts.Limit))
	}
	if sort, ok := opts.Sort.(bson.D); ok && len(sort) > 0 {
		keys := make(ir.Array, len(sort))
		for i, e := range sort {
			keys[i] = ir.D(ir.P("field", ir.String(e.Key)), ir.P("order", FromBSON(e.Value)))
		}
		out.Set("sort", keys)
	}
	if proj, ok := opts.Projection.(bson.D); ok {
		out.Set("projection", FromBSON(proj))
	}
	if opts.NoCursorTimeout != nil && *opts.NoCursorTimeout {
		out.Set("no_cursor_timeout", ir.Bool(true))
	}
	return out
}

// FromBSON converts the values a docstore filter can hold. Decimal128
// keeps its exact digits.
func FromBSON(v any) ir.Value {
	switch val := v.(type) {
	case nil:
		return ir.Null{}
	case string:
		return ir.String(val)
	case bool:
		return ir.Bool(val)
	case int:
		return ir.Int(val)
	case int32:
		return ir.Int(val)
	case int64:
		return ir.Int(val)
	case float64:
		d, err := ir.NewDecimal(strconv.FormatFloat(val, 'f', -1, 64))
		if err != nil {
			return ir.String(fmt.Sprint(val))
		}
		return d
	case primitive.Decimal128:
		d, err := ir.NewDecimal(val.String())
		if err != nil {
			return ir.String(val.String())
		}
		return d
	case bson.D:
		doc := ir.NewDocument()
		for _, e := range val {
			doc.Set(e.Key, FromBSON(e.Value))
		}
		return doc
	case bson.A:
		arr := make(ir.Array, len(val))
		for i, elem := range val {
			arr[i] = FromBSON(elem)
		}
		return arr
	case []any:
		return FromBSON(bson.A(val))
	default:
		return ir.String(fmt.Sprint(val))
	}
}
