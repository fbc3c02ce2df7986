// Package querysql compiles queryir queries to parameterized SQLite SQL
// over JSON documents.
//
// Every collection table has two columns, id and doc. Document fields
// are reached with the JSON1 functions; json_each gives comparisons the
// "field or any element" semantics of the document store.
package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/archq/internal/queryir"
)

// SQLCompiler compiles queryir queries for SQLite.
//
// Every query ends with "id COLLATE BINARY ASC" so results are
// deterministic, and every value and JSON path is bound as a parameter.
type SQLCompiler struct{}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Compile converts a query to SQL and its parameters.
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	if err := queryir.Validate(q); err != nil {
		return "", nil, fmt.Errorf("invalid query: %w", err)
	}
	switch query := q.(type) {
	case queryir.Select:
		return c.compileSelect(query)
	case *queryir.Select:
		return c.compileSelect(*query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

func (c *SQLCompiler) compileSelect(q queryir.Select) (string, []any, error) {
	var b strings.Builder
	var params []any

	b.WriteString("SELECT id")
	if !q.IDsOnly {
		b.WriteString(", doc")
	}
	b.WriteString(" FROM ")
	b.WriteString(q.From)

	if q.Filter != nil {
		where, whereParams, err := c.compilePredicate(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		b.WriteString(" WHERE ")
		b.WriteString(where)
		params = append(params, whereParams...)
	}

	b.WriteString(" ORDER BY ")
	for _, k := range q.Order {
		dir := "ASC"
		if k.Desc {
			dir = "DESC"
		}
		fmt.Fprintf(&b, "json_extract(doc, ?) %s, ", dir)
		params = append(params, JSONPath(k.Path))
	}
	b.WriteString(stableOrderKey)

	switch {
	case q.Limit > 0 && q.Offset > 0:
		b.WriteString(" LIMIT ? OFFSET ?")
		params = append(params, q.Limit, q.Offset)
	case q.Limit > 0:
		b.WriteString(" LIMIT ?")
		params = append(params, q.Limit)
	case q.Offset > 0:
		b.WriteString(" LIMIT -1 OFFSET ?")
		params = append(params, q.Offset)
	}
	return b.String(), params, nil
}

// stableOrderKey is the tiebreaker appended to every ORDER BY.
// COLLATE BINARY keeps text ordering stable across SQLite builds.
const stableOrderKey = "id COLLATE BINARY ASC"

func (c *SQLCompiler) compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case queryir.Compare:
		guard := typeGuard(pred.Value)
		if pred.Value == nil {
			return "", nil, fmt.Errorf("%s: comparison against null", pred.Path)
		}
		sql := fmt.Sprintf("EXISTS (SELECT 1 FROM json_each(doc, ?) WHERE %s AND value %s ?)", guard, pred.Op)
		return sql, []any{JSONPath(pred.Path), pred.Value}, nil

	case queryir.Member:
		if len(pred.Values) == 0 {
			return "0 = 1", nil, nil
		}
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(pred.Values)), ", ")
		params := append([]any{JSONPath(pred.Path)}, pred.Values...)
		return fmt.Sprintf("EXISTS (SELECT 1 FROM json_each(doc, ?) WHERE value IN (%s))", marks), params, nil

	case queryir.Exists:
		return "json_type(doc, ?) IS NOT NULL", []any{JSONPath(pred.Path)}, nil

	case queryir.IsNull:
		return "json_type(doc, ?) = 'null'", []any{JSONPath(pred.Path)}, nil

	case queryir.Size:
		path := JSONPath(pred.Path)
		return "(json_type(doc, ?) = 'array' AND json_array_length(doc, ?) = ?)", []any{path, path, pred.N}, nil

	case queryir.And:
		return c.compileJunction(pred.Predicates, " AND ", "1 = 1")

	case queryir.Or:
		return c.compileJunction(pred.Predicates, " OR ", "0 = 1")

	case queryir.Not:
		sql, params, err := c.compilePredicate(pred.Predicate)
		if err != nil {
			return "", nil, err
		}
		return "NOT (" + sql + ")", params, nil

	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// compileJunction joins predicates with sep. An empty list yields empty,
// the junction's identity.
func (c *SQLCompiler) compileJunction(preds []queryir.Predicate, sep, empty string) (string, []any, error) {
	if len(preds) == 0 {
		return empty, nil, nil
	}
	parts := make([]string, 0, len(preds))
	var params []any
	for _, p := range preds {
		sql, ps, err := c.compilePredicate(p)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		params = append(params, ps...)
	}
	if len(parts) == 1 {
		return parts[0], params, nil
	}
	return "(" + strings.Join(parts, sep) + ")", params, nil
}

// typeGuard restricts json_each rows to the JSON types comparable with v,
// so that numbers never compare against text.
func typeGuard(v any) string {
	switch v.(type) {
	case string:
		return "type = 'text'"
	case bool:
		return "type IN ('true', 'false')"
	default:
		return "type IN ('integer', 'real')"
	}
}

// JSONPath renders a path as an SQLite JSON path with quoted labels,
// e.g. $."_uds"."u1".
func JSONPath(p queryir.Path) string {
	var b strings.Builder
	b.WriteString("$")
	for _, seg := range p {
		b.WriteString(`."`)
		b.WriteString(seg)
		b.WriteString(`"`)
	}
	return b.String()
}
