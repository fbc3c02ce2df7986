// Package docstore lowers query trees to document-store filters
// expressed as bson.D.
//
// The document store has no full-text index; TextMatch, LexicalSearch and
// FuzzyLike nodes fail with UnsupportedByBackend.
package docstore

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/roach88/archq/internal/adapter"
	"github.com/roach88/archq/internal/dslerr"
	"github.com/roach88/archq/internal/ir"
	"github.com/roach88/archq/internal/query"
	"github.com/roach88/archq/internal/request"
	"github.com/roach88/archq/internal/translate"
)

// Translator compiles nodes for the document store.
type Translator struct {
	names translate.Resolver
}

var _ translate.Compiler[bson.D] = (*Translator)(nil)

// New returns a translator that emits field keys resolved by fields.
func New(fields adapter.FieldAdapter) *Translator {
	return &Translator{names: translate.NewResolver(fields)}
}

// Backend implements translate.Compiler.
func (t *Translator) Backend() translate.Backend {
	return translate.DocumentStore
}

// Compile implements translate.Compiler.
func (t *Translator) Compile(n query.Node) (bson.D, error) {
	if err := translate.Prepare(n); err != nil {
		return nil, err
	}
	return t.lower(n, "")
}

func (t *Translator) lower(n query.Node, path string) (bson.D, error) {
	switch node := n.(type) {
	case *query.Comparison:
		f, err := t.field(node.Field, path)
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: f, Value: bson.D{{Key: string(node.Op), Value: Value(node.Value)}}}}, nil

	case *query.Existence:
		f, err := t.field(node.Field, path)
		if err != nil {
			return nil, err
		}
		var cond bson.D
		switch node.Op {
		case query.OpExists:
			cond = bson.D{{Key: "$exists", Value: true}}
		case query.OpMissing:
			cond = bson.D{{Key: "$exists", Value: false}}
		case query.OpIsNull:
			cond = bson.D{{Key: "$type", Value: "null"}}
		default:
			return nil, fmt.Errorf("unknown existence operator %s", node.Op)
		}
		return bson.D{{Key: f, Value: cond}}, nil

	case *query.SetMembership:
		f, err := t.field(node.Field, path)
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: f, Value: bson.D{{Key: string(node.Op), Value: Values(node.Values)}}}}, nil

	case *query.Range:
		f, err := t.field(node.Field, path)
		if err != nil {
			return nil, err
		}
		var cond bson.D
		if node.Lower != nil {
			op := "$gt"
			if node.LowerInclusive {
				op = "$gte"
			}
			cond = append(cond, bson.E{Key: op, Value: Value(node.Lower)})
		}
		if node.Upper != nil {
			op := "$lt"
			if node.UpperInclusive {
				op = "$lte"
			}
			cond = append(cond, bson.E{Key: op, Value: Value(node.Upper)})
		}
		return bson.D{{Key: f, Value: cond}}, nil

	case *query.Path:
		return idIn(t.names.IDField(), node.IDs), nil

	case *query.Composite:
		children := make(bson.A, 0, len(node.Children))
		for i, child := range node.Children {
			c, err := t.lower(child, translate.Index(path, node.Op, i))
			if err != nil {
				return nil, err
			}
			children = append(children, c)
		}
		op := string(node.Op)
		if node.Op == query.OpNot {
			// None of the children may match.
			op = "$nor"
		}
		return bson.D{{Key: op, Value: children}}, nil

	case *query.TextMatch, *query.LexicalSearch, *query.FuzzyLike:
		return nil, translate.Unsupported(translate.DocumentStore, n, path)
	}
	return nil, fmt.Errorf("unknown node type %T", n)
}

func (t *Translator) field(name, path string) (string, error) {
	f, err := t.names.Field(name)
	if err != nil {
		if de := dslerr.As(err); de != nil {
			return "", de.At(path)
		}
		return "", err
	}
	return f, nil
}

// CompileRoots implements translate.Compiler. Without roots the filter is
// empty and matches everything.
func (t *Translator) CompileRoots(req *request.Request, idField string) (bson.D, error) {
	roots := req.Roots()
	if len(roots) == 0 {
		return bson.D{}, nil
	}
	if idField == "" {
		idField = t.names.IDField()
	}
	return idIn(idField, roots), nil
}

// And combines filters, dropping empty ones.
func And(filters ...bson.D) bson.D {
	var kept bson.A
	for _, f := range filters {
		if len(f) > 0 {
			kept = append(kept, f)
		}
	}
	switch len(kept) {
	case 0:
		return bson.D{}
	case 1:
		return kept[0].(bson.D)
	default:
		return bson.D{{Key: "$and", Value: kept}}
	}
}

func idIn(idField string, ids []string) bson.D {
	arr := make(bson.A, len(ids))
	for i, id := range ids {
		arr[i] = id
	}
	return bson.D{{Key: idField, Value: bson.D{{Key: "$in", Value: arr}}}}
}

// Value converts a DSL scalar into its BSON form. Non-integers keep their
// exact digits as Decimal128.
func Value(v ir.Value) any {
	switch val := v.(type) {
	case ir.Null:
		return nil
	case ir.String:
		return string(val)
	case ir.Int:
		return int64(val)
	case ir.Bool:
		return bool(val)
	case ir.Decimal:
		d, err := primitive.ParseDecimal128(val.String())
		if err != nil {
			return val.InexactFloat64()
		}
		return d
	case ir.Array:
		return Values(val)
	case *ir.Document:
		out := bson.D{}
		for k, elem := range val.All() {
			out = append(out, bson.E{Key: k, Value: Value(elem)})
		}
		return out
	}
	return nil
}

// Values converts a list of DSL values.
func Values(vs []ir.Value) bson.A {
	out := make(bson.A, len(vs))
	for i, v := range vs {
		out[i] = Value(v)
	}
	return out
}
