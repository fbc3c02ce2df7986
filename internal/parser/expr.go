package parser

import (
	"fmt"
	"strings"

	"github.com/roach88/archq/internal/adapter"
	"github.com/roach88/archq/internal/dslerr"
	"github.com/roach88/archq/internal/ir"
	"github.com/roach88/archq/internal/query"
)

// exprParser parses query expressions. Every method receives the path of
// the value it parses and locates its errors there.
type exprParser struct {
	fields   adapter.FieldAdapter
	maxDepth int
}

// parse reads one expression object: exactly one operator key plus an
// optional "$depth".
func (ep exprParser) parse(v ir.Value, path string) (query.Node, error) {
	doc, ok := v.(*ir.Document)
	if !ok {
		return nil, malformed(path, "expression must be an object, got %s", ir.TypeName(v))
	}

	var (
		op     query.Operator
		family query.Family
		body   ir.Value
		found  bool
	)
	for key, val := range doc.All() {
		if key == query.KeyDepth {
			continue
		}
		o, f, known := query.LookupOperator(key)
		switch {
		case known && found:
			return nil, malformed(path, "expression has several operators (%s, %s)", op, o)
		case known:
			op, family, body, found = o, f, val, true
		case strings.HasPrefix(key, "$"):
			return nil, dslerr.New(dslerr.CodeUnknownToken, "unknown operator %q", key).At(join(path, key))
		default:
			return nil, malformed(join(path, key), "expected an operator, got field %q", key)
		}
	}
	if !found {
		return nil, malformed(path, "expression has no operator")
	}

	opPath := join(path, string(op))
	node, err := ep.build(op, family, body, opPath)
	if err != nil {
		return nil, err
	}

	if d, ok := doc.Get(query.KeyDepth); ok {
		if err := ep.applyDepth(node, d, join(path, query.KeyDepth)); err != nil {
			return nil, err
		}
	}
	return node, nil
}

func (ep exprParser) build(op query.Operator, family query.Family, body ir.Value, path string) (query.Node, error) {
	switch family {
	case query.FamilyComparison:
		field, val, err := ep.single(body, path)
		if err != nil {
			return nil, err
		}
		node, err := query.Compare(op, field, val)
		return node, relabel(err, join(path, field))

	case query.FamilyExistence:
		name, ok := body.(ir.String)
		if !ok {
			return nil, malformed(path, "expects a field name, got %s", ir.TypeName(body))
		}
		if err := ep.resolve(string(name), path); err != nil {
			return nil, err
		}
		node, err := query.Exist(op, string(name))
		return node, relabel(err, path)

	case query.FamilySetMembership:
		field, val, err := ep.single(body, path)
		if err != nil {
			return nil, err
		}
		arr, ok := val.(ir.Array)
		if !ok {
			return nil, malformed(join(path, field), "expects an array of values, got %s", ir.TypeName(val))
		}
		values := make([]any, len(arr))
		for i, elem := range arr {
			values[i] = elem
		}
		node, err := query.Membership(op, field, values...)
		return node, relabel(err, join(path, field))

	case query.FamilyRange:
		return ep.parseRange(body, path)

	case query.FamilyTextMatch:
		return ep.parseMatch(op, body, path)

	case query.FamilyLexicalSearch:
		field, val, err := ep.single(body, path)
		if err != nil {
			return nil, err
		}
		text, ok := val.(ir.String)
		if !ok {
			return nil, malformed(join(path, field), "expects a string, got %s", ir.TypeName(val))
		}
		node, err := query.Lexical(op, field, string(text))
		return node, relabel(err, join(path, field))

	case query.FamilyFuzzyLike:
		return ep.parseLike(op, body, path)

	case query.FamilyPath:
		ids, err := stringList(body, path)
		if err != nil {
			return nil, err
		}
		node, err := query.NewPath(ids...)
		return node, relabel(err, path)

	case query.FamilyComposite:
		return ep.parseComposite(op, body, path)
	}
	return nil, fmt.Errorf("operator %s has no parser", op)
}

// single reads a {field: value} body with exactly one resolvable field.
func (ep exprParser) single(body ir.Value, path string) (string, ir.Value, error) {
	doc, ok := body.(*ir.Document)
	if !ok {
		return "", nil, malformed(path, "expects {field: value}, got %s", ir.TypeName(body))
	}
	if doc.Len() != 1 {
		return "", nil, malformed(path, "expects exactly one field, got %d", doc.Len())
	}
	field := doc.Keys()[0]
	if err := ep.resolve(field, join(path, field)); err != nil {
		return "", nil, err
	}
	return field, doc.MustGet(field), nil
}

func (ep exprParser) resolve(field, path string) error {
	if _, err := ep.fields.Resolve(field); err != nil {
		return relabel(err, path)
	}
	return nil
}

func (ep exprParser) parseRange(body ir.Value, path string) (query.Node, error) {
	field, val, err := ep.single(body, path)
	if err != nil {
		return nil, err
	}
	fieldPath := join(path, field)
	bounds, ok := val.(*ir.Document)
	if !ok {
		return nil, malformed(fieldPath, "expects {$gt|$gte|$lt|$lte: value}, got %s", ir.TypeName(val))
	}

	var rb []query.RangeBound
	for key, v := range bounds.All() {
		b, ok := query.ParseBound(key)
		if !ok {
			if strings.HasPrefix(key, "$") {
				return nil, dslerr.New(dslerr.CodeUnknownToken, "unknown range bound %q", key).At(join(fieldPath, key))
			}
			return nil, malformed(join(fieldPath, key), "expected a range bound, got %q", key)
		}
		rb = append(rb, query.RangeBound{Op: b, Value: v})
	}
	node, err := query.NewRange(field, rb...)
	return node, relabel(err, fieldPath)
}

func (ep exprParser) parseMatch(op query.Operator, body ir.Value, path string) (query.Node, error) {
	doc, ok := body.(*ir.Document)
	if !ok {
		return nil, malformed(path, "expects {field: text}, got %s", ir.TypeName(body))
	}

	var (
		field     string
		text      ir.Value
		expansion ir.Value
	)
	for key, v := range doc.All() {
		switch {
		case key == query.KeyMaxExpansions:
			expansion = v
		case strings.HasPrefix(key, "$"):
			return nil, dslerr.New(dslerr.CodeUnknownToken, "unknown %s option %q", op, key).At(join(path, key))
		case field != "":
			return nil, malformed(path, "expects exactly one field, got %q and %q", field, key)
		default:
			field, text = key, v
		}
	}
	if field == "" {
		return nil, malformed(path, "expects a field")
	}
	fieldPath := join(path, field)
	if err := ep.resolve(field, fieldPath); err != nil {
		return nil, err
	}
	s, ok := text.(ir.String)
	if !ok {
		return nil, malformed(fieldPath, "expects a string, got %s", ir.TypeName(text))
	}

	node, err := query.Match(op, field, string(s))
	if err != nil {
		return nil, relabel(err, fieldPath)
	}
	if expansion != nil {
		expPath := join(path, query.KeyMaxExpansions)
		n, ok := expansion.(ir.Int)
		if !ok {
			return nil, malformed(expPath, "expects an integer, got %s", ir.TypeName(expansion))
		}
		if err := query.SetMatchMaxExpansions(node, int(n)); err != nil {
			return nil, relabel(err, expPath)
		}
	}
	return node, nil
}

func (ep exprParser) parseLike(op query.Operator, body ir.Value, path string) (query.Node, error) {
	doc, ok := body.(*ir.Document)
	if !ok {
		return nil, malformed(path, "expects {%s: [...], %s: text}, got %s",
			query.KeyFields, query.KeyLike, ir.TypeName(body))
	}

	var (
		fields []string
		text   string
	)
	for key, v := range doc.All() {
		keyPath := join(path, key)
		switch key {
		case query.KeyFields:
			names, err := stringList(v, keyPath)
			if err != nil {
				return nil, err
			}
			for i, name := range names {
				if err := ep.resolve(name, index(keyPath, i)); err != nil {
					return nil, err
				}
			}
			fields = names
		case query.KeyLike:
			s, ok := v.(ir.String)
			if !ok {
				return nil, malformed(keyPath, "expects a string, got %s", ir.TypeName(v))
			}
			text = string(s)
		default:
			if strings.HasPrefix(key, "$") {
				return nil, dslerr.New(dslerr.CodeUnknownToken, "unknown %s option %q", op, key).At(keyPath)
			}
			return nil, malformed(keyPath, "unexpected key %q", key)
		}
	}

	node, err := query.Like(op, text, fields...)
	return node, relabel(err, path)
}

func (ep exprParser) parseComposite(op query.Operator, body ir.Value, path string) (query.Node, error) {
	var children ir.Array
	switch b := body.(type) {
	case ir.Array:
		children = b
	case *ir.Document:
		children = ir.Array{b}
	default:
		return nil, malformed(path, "expects an array of expressions, got %s", ir.TypeName(body))
	}
	if len(children) == 0 {
		return nil, dslerr.New(dslerr.CodeEmptyComposite, "%s has no children", op).At(path)
	}

	nodes := make([]query.Node, len(children))
	for i, child := range children {
		n, err := ep.parse(child, index(path, i))
		if err != nil {
			return nil, err
		}
		nodes[i] = n
	}
	node, err := query.Compose(op, nodes...)
	return node, relabel(err, path)
}

func (ep exprParser) applyDepth(node query.Node, v ir.Value, path string) error {
	d, ok := v.(ir.Int)
	if !ok {
		return malformed(path, "expects an integer, got %s", ir.TypeName(v))
	}
	if int(d) > ep.maxDepth || int(d) < -ep.maxDepth {
		return malformed(path, "%d is outside [-%d, %d]", d, ep.maxDepth, ep.maxDepth)
	}
	return relabel(query.SetRelativeDepthLimit(node, int(d)), path)
}

func malformed(path, format string, args ...any) error {
	return dslerr.New(dslerr.CodeMalformedQuery, format, args...).At(path)
}

// relabel locates a builder error at path. Builder precondition failures
// become MalformedQuery since they describe a bad payload here.
func relabel(err error, path string) error {
	if err == nil {
		return nil
	}
	de := dslerr.As(err)
	if de == nil {
		return err
	}
	if de.Code == dslerr.CodeInvalidConstruction {
		return &dslerr.Error{Code: dslerr.CodeMalformedQuery, Message: de.Message, Path: path}
	}
	return de.At(path)
}

// stringList reads a string or an array of strings.
func stringList(v ir.Value, path string) ([]string, error) {
	switch val := v.(type) {
	case ir.String:
		return []string{string(val)}, nil
	case ir.Array:
		out := make([]string, len(val))
		for i, elem := range val {
			s, ok := elem.(ir.String)
			if !ok {
				return nil, malformed(index(path, i), "expects a string, got %s", ir.TypeName(elem))
			}
			out[i] = string(s)
		}
		return out, nil
	default:
		return nil, malformed(path, "expects a string or an array of strings, got %s", ir.TypeName(v))
	}
}

func join(path, elem string) string {
	if path == "" {
		return elem
	}
	return path + "." + elem
}

func index(path string, i int) string {
	return fmt.Sprintf("%s[%d]", path, i)
}
