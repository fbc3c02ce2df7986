// Package search lowers query trees to search-engine query clauses.
//
// Every node family is supported. Negation is expressed with bool
// must_not; a multi-child $not excludes documents matching any child.
package search

import (
	"fmt"

	"github.com/roach88/archq/internal/adapter"
	"github.com/roach88/archq/internal/dslerr"
	"github.com/roach88/archq/internal/ir"
	"github.com/roach88/archq/internal/query"
	"github.com/roach88/archq/internal/request"
	"github.com/roach88/archq/internal/translate"
)

// FuzzinessAuto is the fuzziness used for $flt.
const FuzzinessAuto = "AUTO"

const sizeScript = "doc[params.field].size() == params.size"

// Translator compiles nodes for the search engine.
type Translator struct {
	names translate.Resolver
}

var _ translate.Compiler[Query] = (*Translator)(nil)

// New returns a translator that emits field keys resolved by fields.
func New(fields adapter.FieldAdapter) *Translator {
	return &Translator{names: translate.NewResolver(fields)}
}

// Backend implements translate.Compiler.
func (t *Translator) Backend() translate.Backend {
	return translate.SearchEngine
}

// Compile implements translate.Compiler.
func (t *Translator) Compile(n query.Node) (Query, error) {
	if err := translate.Prepare(n); err != nil {
		return nil, err
	}
	return t.lower(n, "")
}

func (t *Translator) lower(n query.Node, path string) (Query, error) {
	switch node := n.(type) {
	case *query.Comparison:
		f, err := t.field(node.Field, path)
		if err != nil {
			return nil, err
		}
		switch node.Op {
		case query.OpEQ:
			return Term{Field: f, Value: node.Value}, nil
		case query.OpNE:
			return Bool{MustNot: []Query{Term{Field: f, Value: node.Value}}}, nil
		case query.OpLT:
			return Range{Field: f, LT: node.Value}, nil
		case query.OpLTE:
			return Range{Field: f, LTE: node.Value}, nil
		case query.OpGT:
			return Range{Field: f, GT: node.Value}, nil
		case query.OpGTE:
			return Range{Field: f, GTE: node.Value}, nil
		case query.OpSize:
			return Script{Source: sizeScript, Params: ir.D(
				ir.P("field", ir.String(f)),
				ir.P("size", node.Value),
			)}, nil
		}

	case *query.Existence:
		f, err := t.field(node.Field, path)
		if err != nil {
			return nil, err
		}
		if node.Op == query.OpExists {
			return Exists{Field: f}, nil
		}
		// $missing and $isNull: the search index does not store nulls.
		return Bool{MustNot: []Query{Exists{Field: f}}}, nil

	case *query.SetMembership:
		f, err := t.field(node.Field, path)
		if err != nil {
			return nil, err
		}
		terms := Terms{Field: f, Values: node.Values}
		if node.Op == query.OpNin {
			return Bool{MustNot: []Query{terms}}, nil
		}
		return terms, nil

	case *query.Range:
		f, err := t.field(node.Field, path)
		if err != nil {
			return nil, err
		}
		r := Range{Field: f}
		if node.Lower != nil {
			if node.LowerInclusive {
				r.GTE = node.Lower
			} else {
				r.GT = node.Lower
			}
		}
		if node.Upper != nil {
			if node.UpperInclusive {
				r.LTE = node.Upper
			} else {
				r.LT = node.Upper
			}
		}
		return r, nil

	case *query.TextMatch:
		f, err := t.field(node.Field, path)
		if err != nil {
			return nil, err
		}
		switch node.Op {
		case query.OpMatch:
			return Match{Field: f, Query: node.Text, MaxExpansions: node.MaxExpansions}, nil
		case query.OpMatchPhrase:
			return MatchPhrase{Field: f, Query: node.Text, MaxExpansions: node.MaxExpansions}, nil
		case query.OpMatchPhrasePrefix:
			return MatchPhrasePrefix{Field: f, Query: node.Text, MaxExpansions: node.MaxExpansions}, nil
		case query.OpPrefix:
			return Prefix{Field: f, Value: node.Text, MaxExpansions: node.MaxExpansions}, nil
		}

	case *query.LexicalSearch:
		f, err := t.field(node.Field, path)
		if err != nil {
			return nil, err
		}
		switch node.Op {
		case query.OpSearch:
			return SimpleQueryString{Fields: []string{f}, Query: node.Text}, nil
		case query.OpTerm:
			return Term{Field: f, Value: ir.String(node.Text)}, nil
		case query.OpWildcard:
			return Wildcard{Field: f, Value: node.Text}, nil
		case query.OpRegex:
			return Regexp{Field: f, Value: node.Text}, nil
		}

	case *query.FuzzyLike:
		fields := make([]string, len(node.Fields))
		for i, name := range node.Fields {
			f, err := t.field(name, path)
			if err != nil {
				return nil, err
			}
			fields[i] = f
		}
		if node.Op == query.OpMLT {
			return MoreLikeThis{Fields: fields, Like: node.Text}, nil
		}
		return MultiMatch{Fields: fields, Query: node.Text, Fuzziness: FuzzinessAuto}, nil

	case *query.Path:
		return idTerms(t.names.IDField(), node.IDs), nil

	case *query.Composite:
		children := make([]Query, 0, len(node.Children))
		for i, child := range node.Children {
			c, err := t.lower(child, translate.Index(path, node.Op, i))
			if err != nil {
				return nil, err
			}
			children = append(children, c)
		}
		switch node.Op {
		case query.OpAnd:
			return Bool{Must: children}, nil
		case query.OpOr:
			return Bool{Should: children, MinimumShouldMatch: 1}, nil
		case query.OpNot:
			return Bool{MustNot: children}, nil
		}

	default:
		return nil, fmt.Errorf("unknown node type %T", n)
	}
	return nil, fmt.Errorf("operator %s has no search lowering", query.OperatorOf(n))
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

// CompileRoots implements translate.Compiler. Without roots every document
// matches.
func (t *Translator) CompileRoots(req *request.Request, idField string) (Query, error) {
	roots := req.Roots()
	if len(roots) == 0 {
		return MatchAll{}, nil
	}
	if idField == "" {
		idField = t.names.IDField()
	}
	return idTerms(idField, roots), nil
}

// FullCommand restricts q to the documents matched by roots.
func FullCommand(q, roots Query) Query {
	if roots == nil {
		return q
	}
	if _, all := roots.(MatchAll); all {
		return q
	}
	return Bool{Must: []Query{q}, Filter: []Query{roots}}
}

func idTerms(idField string, ids []string) Terms {
	values := make([]ir.Value, len(ids))
	for i, id := range ids {
		values[i] = ir.String(id)
	}
	return Terms{Field: idField, Values: values}
}
