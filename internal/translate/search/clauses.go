package search

import (
	"github.com/roach88/archq/internal/ir"
)

// Query is one search-engine query clause. Every clause serializes to a
// JSON object with deterministic key order.
type Query interface {
	Document() *ir.Document
	MarshalJSON() ([]byte, error)
}

func marshal(q Query) ([]byte, error) {
	return ir.MarshalValue(q.Document())
}

func wrap(kind string, body *ir.Document) *ir.Document {
	return ir.D(ir.P(kind, body))
}

func stringArray(ss []string) ir.Array {
	arr := make(ir.Array, len(ss))
	for i, s := range ss {
		arr[i] = ir.String(s)
	}
	return arr
}

// Term matches an exact value.
type Term struct {
	Field string
	Value ir.Value
}

func (q Term) Document() *ir.Document {
	return wrap("term", ir.D(ir.P(q.Field, ir.D(ir.P("value", q.Value)))))
}

func (q Term) MarshalJSON() ([]byte, error) { return marshal(q) }

// Terms matches any of several exact values.
type Terms struct {
	Field  string
	Values []ir.Value
}

func (q Terms) Document() *ir.Document {
	return wrap("terms", ir.D(ir.P(q.Field, ir.Array(q.Values))))
}

func (q Terms) MarshalJSON() ([]byte, error) { return marshal(q) }

// Range bounds a field. Nil bounds are omitted.
type Range struct {
	Field string
	GT    ir.Value
	GTE   ir.Value
	LT    ir.Value
	LTE   ir.Value
}

func (q Range) Document() *ir.Document {
	body := ir.NewDocument()
	for _, b := range []struct {
		key string
		val ir.Value
	}{{"gt", q.GT}, {"gte", q.GTE}, {"lt", q.LT}, {"lte", q.LTE}} {
		if b.val != nil {
			body.Set(b.key, b.val)
		}
	}
	return wrap("range", ir.D(ir.P(q.Field, body)))
}

func (q Range) MarshalJSON() ([]byte, error) { return marshal(q) }

// Exists matches documents with a non-null value for Field.
type Exists struct {
	Field string
}

func (q Exists) Document() *ir.Document {
	return wrap("exists", ir.D(ir.P("field", ir.String(q.Field))))
}

func (q Exists) MarshalJSON() ([]byte, error) { return marshal(q) }

// Match is an analyzed full-text match.
type Match struct {
	Field         string
	Query         string
	MaxExpansions *int
}

func (q Match) Document() *ir.Document {
	body := ir.D(ir.P("query", ir.String(q.Query)))
	if q.MaxExpansions != nil {
		body.Set("max_expansions", ir.Int(*q.MaxExpansions))
	}
	return wrap("match", ir.D(ir.P(q.Field, body)))
}

func (q Match) MarshalJSON() ([]byte, error) { return marshal(q) }

// MatchPhrase matches an exact phrase.
type MatchPhrase struct {
	Field         string
	Query         string
	MaxExpansions *int
}

func (q MatchPhrase) Document() *ir.Document {
	body := ir.D(ir.P("query", ir.String(q.Query)))
	if q.MaxExpansions != nil {
		body.Set("max_expansions", ir.Int(*q.MaxExpansions))
	}
	return wrap("match_phrase", ir.D(ir.P(q.Field, body)))
}

func (q MatchPhrase) MarshalJSON() ([]byte, error) { return marshal(q) }

// MatchPhrasePrefix matches a phrase whose last term is a prefix.
type MatchPhrasePrefix struct {
	Field         string
	Query         string
	MaxExpansions *int
}

func (q MatchPhrasePrefix) Document() *ir.Document {
	body := ir.D(ir.P("query", ir.String(q.Query)))
	if q.MaxExpansions != nil {
		body.Set("max_expansions", ir.Int(*q.MaxExpansions))
	}
	return wrap("match_phrase_prefix", ir.D(ir.P(q.Field, body)))
}

func (q MatchPhrasePrefix) MarshalJSON() ([]byte, error) { return marshal(q) }

// Prefix matches terms starting with Value.
type Prefix struct {
	Field         string
	Value         string
	MaxExpansions *int
}

func (q Prefix) Document() *ir.Document {
	body := ir.D(ir.P("value", ir.String(q.Value)))
	if q.MaxExpansions != nil {
		body.Set("max_expansions", ir.Int(*q.MaxExpansions))
	}
	return wrap("prefix", ir.D(ir.P(q.Field, body)))
}

func (q Prefix) MarshalJSON() ([]byte, error) { return marshal(q) }

// SimpleQueryString runs the simple query-string syntax over Fields.
type SimpleQueryString struct {
	Fields []string
	Query  string
}

func (q SimpleQueryString) Document() *ir.Document {
	return wrap("simple_query_string", ir.D(
		ir.P("query", ir.String(q.Query)),
		ir.P("fields", stringArray(q.Fields)),
	))
}

func (q SimpleQueryString) MarshalJSON() ([]byte, error) { return marshal(q) }

// Wildcard matches a pattern with * and ?.
type Wildcard struct {
	Field string
	Value string
}

func (q Wildcard) Document() *ir.Document {
	return wrap("wildcard", ir.D(ir.P(q.Field, ir.D(ir.P("value", ir.String(q.Value))))))
}

func (q Wildcard) MarshalJSON() ([]byte, error) { return marshal(q) }

// Regexp matches a regular expression.
type Regexp struct {
	Field string
	Value string
}

func (q Regexp) Document() *ir.Document {
	return wrap("regexp", ir.D(ir.P(q.Field, ir.D(ir.P("value", ir.String(q.Value))))))
}

func (q Regexp) MarshalJSON() ([]byte, error) { return marshal(q) }

// MoreLikeThis finds documents similar to Like.
type MoreLikeThis struct {
	Fields []string
	Like   string
}

func (q MoreLikeThis) Document() *ir.Document {
	return wrap("more_like_this", ir.D(
		ir.P("fields", stringArray(q.Fields)),
		ir.P("like", ir.String(q.Like)),
	))
}

func (q MoreLikeThis) MarshalJSON() ([]byte, error) { return marshal(q) }

// MultiMatch matches Query over several fields.
type MultiMatch struct {
	Fields    []string
	Query     string
	Fuzziness string
}

func (q MultiMatch) Document() *ir.Document {
	body := ir.D(
		ir.P("query", ir.String(q.Query)),
		ir.P("fields", stringArray(q.Fields)),
	)
	if q.Fuzziness != "" {
		body.Set("fuzziness", ir.String(q.Fuzziness))
	}
	return wrap("multi_match", body)
}

func (q MultiMatch) MarshalJSON() ([]byte, error) { return marshal(q) }

// Script filters with a painless script.
type Script struct {
	Source string
	Params *ir.Document
}

func (q Script) Document() *ir.Document {
	script := ir.D(ir.P("source", ir.String(q.Source)))
	if q.Params != nil && q.Params.Len() > 0 {
		script.Set("params", q.Params)
	}
	return wrap("script", ir.D(ir.P("script", script)))
}

func (q Script) MarshalJSON() ([]byte, error) { return marshal(q) }

// MatchAll matches every document.
type MatchAll struct{}

func (MatchAll) Document() *ir.Document {
	return wrap("match_all", ir.NewDocument())
}

func (q MatchAll) MarshalJSON() ([]byte, error) { return marshal(q) }

// Bool combines clauses. Empty sections are omitted.
type Bool struct {
	Must               []Query
	Filter             []Query
	Should             []Query
	MustNot            []Query
	MinimumShouldMatch int
}

func (q Bool) Document() *ir.Document {
	body := ir.NewDocument()
	for _, sec := range []struct {
		key     string
		clauses []Query
	}{{"must", q.Must}, {"filter", q.Filter}, {"should", q.Should}, {"must_not", q.MustNot}} {
		if len(sec.clauses) == 0 {
			continue
		}
		arr := make(ir.Array, len(sec.clauses))
		for i, c := range sec.clauses {
			arr[i] = c.Document()
		}
		body.Set(sec.key, arr)
	}
	if q.MinimumShouldMatch > 0 {
		body.Set("minimum_should_match", ir.Int(q.MinimumShouldMatch))
	}
	return wrap("bool", body)
}

func (q Bool) MarshalJSON() ([]byte, error) { return marshal(q) }
