package store

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/roach88/archq/internal/ir"
	"github.com/roach88/archq/internal/queryir"
)

// project applies a find projection ({field: 1|0}) to doc. Included
// fields are copied in projection order after _id; excluded fields are
// removed afterwards. doc may be modified.
func project(doc *ir.Document, spec bson.D) (*ir.Document, error) {
	var include, exclude []queryir.Path
	for _, e := range spec {
		switch e.Value {
		case 1, int32(1), int64(1), true:
			include = append(include, queryir.ParsePath(e.Key))
		case 0, int32(0), int64(0), false:
			exclude = append(exclude, queryir.ParsePath(e.Key))
		default:
			return nil, fmt.Errorf("projection %s: want 1 or 0, got %v", e.Key, e.Value)
		}
	}

	out := doc
	if len(include) > 0 {
		out = ir.NewDocument()
		if id, ok := doc.Get("_id"); ok {
			out.Set("_id", id)
		}
		for _, p := range include {
			if v, ok := lookup(doc, p); ok {
				put(out, p, v)
			}
		}
	}
	for _, p := range exclude {
		remove(out, p)
	}
	return out, nil
}

func lookup(doc *ir.Document, p queryir.Path) (ir.Value, bool) {
	var cur ir.Value = doc
	for _, seg := range p {
		d, ok := cur.(*ir.Document)
		if !ok {
			return nil, false
		}
		if cur, ok = d.Get(seg); !ok {
			return nil, false
		}
	}
	return cur, true
}

func put(doc *ir.Document, p queryir.Path, v ir.Value) {
	for _, seg := range p[:len(p)-1] {
		next, ok := doc.Get(seg)
		child, isDoc := next.(*ir.Document)
		if !ok || !isDoc {
			child = ir.NewDocument()
			doc.Set(seg, child)
		}
		doc = child
	}
	doc.Set(p[len(p)-1], v)
}

func remove(doc *ir.Document, p queryir.Path) {
	parent, ok := lookup(doc, p[:len(p)-1])
	if !ok {
		return
	}
	if d, ok := parent.(*ir.Document); ok {
		d.Delete(p[len(p)-1])
	}
}
