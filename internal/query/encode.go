package query

import (
	"fmt"

	"github.com/roach88/archq/internal/ir"
)

// Encode serializes a node back to its DSL form. The output parses to an
// equivalent node, so Encode is the structural inverse of the parser.
//
// A depth window is written as a "$depth" key beside the operator:
//
//	{"$and": [...], "$depth": 2}
func Encode(n Node) (*ir.Document, error) {
	if err := checkUsable(n); err != nil {
		return nil, err
	}

	var doc *ir.Document
	switch node := n.(type) {
	case *Comparison:
		doc = ir.D(ir.P(string(node.Op), ir.D(ir.P(node.Field, node.Value))))

	case *Existence:
		doc = ir.D(ir.P(string(node.Op), ir.String(node.Field)))

	case *SetMembership:
		doc = ir.D(ir.P(string(node.Op), ir.D(ir.P(node.Field, ir.Array(node.Values)))))

	case *Range:
		bounds := ir.NewDocument()
		if node.Lower != nil {
			bounds.Set(string(lowerBound(node.LowerInclusive)), node.Lower)
		}
		if node.Upper != nil {
			bounds.Set(string(upperBound(node.UpperInclusive)), node.Upper)
		}
		doc = ir.D(ir.P(string(OpRange), ir.D(ir.P(node.Field, bounds))))

	case *TextMatch:
		body := ir.D(ir.P(node.Field, ir.String(node.Text)))
		if node.MaxExpansions != nil {
			body.Set(KeyMaxExpansions, ir.Int(*node.MaxExpansions))
		}
		doc = ir.D(ir.P(string(node.Op), body))

	case *LexicalSearch:
		doc = ir.D(ir.P(string(node.Op), ir.D(ir.P(node.Field, ir.String(node.Text)))))

	case *FuzzyLike:
		fields := make(ir.Array, len(node.Fields))
		for i, f := range node.Fields {
			fields[i] = ir.String(f)
		}
		doc = ir.D(ir.P(string(node.Op), ir.D(
			ir.P(KeyFields, fields),
			ir.P(KeyLike, ir.String(node.Text)),
		)))

	case *Path:
		ids := make(ir.Array, len(node.IDs))
		for i, id := range node.IDs {
			ids[i] = ir.String(id)
		}
		doc = ir.D(ir.P(string(OpPath), ids))

	case *Composite:
		children := make(ir.Array, 0, len(node.Children))
		for i, child := range node.Children {
			enc, err := Encode(child)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", indexPath(node.Op, i), err)
			}
			children = append(children, enc)
		}
		doc = ir.D(ir.P(string(node.Op), children))

	default:
		return nil, fmt.Errorf("unknown node type %T", n)
	}

	if d := n.Depth(); d != nil {
		doc.Set(KeyDepth, ir.Int(d.Relative))
	}
	return doc, nil
}

func lowerBound(inclusive bool) Bound {
	if inclusive {
		return BoundGTE
	}
	return BoundGT
}

func upperBound(inclusive bool) Bound {
	if inclusive {
		return BoundLTE
	}
	return BoundLT
}
