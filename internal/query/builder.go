package query

import (
	"strings"

	"github.com/roach88/archq/internal/dslerr"
	"github.com/roach88/archq/internal/ir"
)

// The factories in this file are the only way to obtain a ready node.
// Each validates its inputs and names the violated constraint on failure.
// Values may be passed as Go natives (string, int, float64, bool, nil,
// decimal.Decimal) or as ir.Value.

func invalid(format string, args ...any) error {
	return dslerr.New(dslerr.CodeInvalidConstruction, format, args...)
}

func checkField(op Operator, field string) error {
	if strings.TrimSpace(field) == "" {
		return invalid("%s: field name must not be empty", op)
	}
	return nil
}

func checkFamily(op Operator, want Family) error {
	got, ok := op.Family()
	if !ok || got != want {
		return invalid("%q is not a %s operator", op, want)
	}
	return nil
}

func scalar(op Operator, v any) (ir.Value, error) {
	val, err := ir.FromNative(v)
	if err != nil {
		return nil, dslerr.Wrap(dslerr.CodeInvalidConstruction, err, "%s: unsupported value", op)
	}
	if !ir.IsScalar(val) {
		return nil, invalid("%s: value must be a scalar, got %s", op, ir.TypeName(val))
	}
	return val, nil
}

// Compare builds a Comparison for any comparison operator.
func Compare(op Operator, field string, value any) (*Comparison, error) {
	if err := checkFamily(op, FamilyComparison); err != nil {
		return nil, err
	}
	if err := checkField(op, field); err != nil {
		return nil, err
	}
	val, err := scalar(op, value)
	if err != nil {
		return nil, err
	}

	switch op {
	case OpSize:
		n, ok := val.(ir.Int)
		if !ok || n < 0 {
			return nil, invalid("%s: size must be a non-negative integer, got %s", op, ir.TypeName(val))
		}
	case OpLT, OpLTE, OpGT, OpGTE:
		if _, ok := ir.Compare(val, val); !ok {
			return nil, invalid("%s: ordering needs a number or a string, got %s", op, ir.TypeName(val))
		}
	}

	return &Comparison{base: base{ready: true}, Op: op, Field: field, Value: val}, nil
}

// Eq builds {"$eq": {field: value}}.
func Eq(field string, value any) (*Comparison, error) { return Compare(OpEQ, field, value) }

// Ne builds {"$ne": {field: value}}.
func Ne(field string, value any) (*Comparison, error) { return Compare(OpNE, field, value) }

// Lt builds {"$lt": {field: value}}.
func Lt(field string, value any) (*Comparison, error) { return Compare(OpLT, field, value) }

// Lte builds {"$lte": {field: value}}.
func Lte(field string, value any) (*Comparison, error) { return Compare(OpLTE, field, value) }

// Gt builds {"$gt": {field: value}}.
func Gt(field string, value any) (*Comparison, error) { return Compare(OpGT, field, value) }

// Gte builds {"$gte": {field: value}}.
func Gte(field string, value any) (*Comparison, error) { return Compare(OpGTE, field, value) }

// Size builds {"$size": {field: n}}.
func Size(field string, n int) (*Comparison, error) { return Compare(OpSize, field, n) }

// Exist builds an Existence node for any existence operator.
func Exist(op Operator, field string) (*Existence, error) {
	if err := checkFamily(op, FamilyExistence); err != nil {
		return nil, err
	}
	if err := checkField(op, field); err != nil {
		return nil, err
	}
	return &Existence{base: base{ready: true}, Op: op, Field: field}, nil
}

// Exists builds {"$exists": field}.
func Exists(field string) (*Existence, error) { return Exist(OpExists, field) }

// Missing builds {"$missing": field}.
func Missing(field string) (*Existence, error) { return Exist(OpMissing, field) }

// IsNull builds {"$isNull": field}.
func IsNull(field string) (*Existence, error) { return Exist(OpIsNull, field) }

// Membership builds a SetMembership node for $in or $nin.
func Membership(op Operator, field string, values ...any) (*SetMembership, error) {
	if err := checkFamily(op, FamilySetMembership); err != nil {
		return nil, err
	}
	if err := checkField(op, field); err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, invalid("%s: at least one value is required", op)
	}
	node := &SetMembership{base: base{ready: true}, Op: op, Field: field}
	if err := node.Add(values...); err != nil {
		return nil, err
	}
	return node, nil
}

// In builds {"$in": {field: [values...]}}.
func In(field string, values ...any) (*SetMembership, error) {
	return Membership(OpIn, field, values...)
}

// Nin builds {"$nin": {field: [values...]}}.
func Nin(field string, values ...any) (*SetMembership, error) {
	return Membership(OpNin, field, values...)
}

// Add extends the value set. Duplicates of existing values are ignored.
// Either every value is added or none is.
func (s *SetMembership) Add(values ...any) error {
	if !s.Ready() {
		return invalid("%s: node was not built by a factory", OpIn)
	}
	converted := make([]ir.Value, 0, len(values))
	for _, v := range values {
		val, err := scalar(s.Op, v)
		if err != nil {
			return err
		}
		converted = append(converted, val)
	}
	for _, val := range converted {
		if !containsValue(s.Values, val) {
			s.Values = append(s.Values, val)
		}
	}
	return nil
}

func containsValue(set []ir.Value, v ir.Value) bool {
	for _, existing := range set {
		if ir.Equal(existing, v) {
			return true
		}
	}
	return false
}

// RangeBound is one side of a range, e.g. RangeBound{BoundGTE, 10}.
type RangeBound struct {
	Op    Bound
	Value any
}

// NewRange builds a Range from one or two bounds.
//
// Constraints:
//   - at least one bound, at most one lower and one upper
//   - both bounds numbers or both strings
//   - lower <= upper, and equal bounds must both be inclusive
func NewRange(field string, bounds ...RangeBound) (*Range, error) {
	if err := checkField(OpRange, field); err != nil {
		return nil, err
	}
	if len(bounds) == 0 {
		return nil, invalid("%s: at least one bound is required", OpRange)
	}

	node := &Range{base: base{ready: true}, Field: field}
	for _, b := range bounds {
		if _, ok := ParseBound(string(b.Op)); !ok {
			return nil, invalid("%s: %q is not a range bound", OpRange, b.Op)
		}
		val, err := scalar(OpRange, b.Value)
		if err != nil {
			return nil, err
		}
		if _, ok := ir.Compare(val, val); !ok {
			return nil, invalid("%s: bound must be a number or a string, got %s", OpRange, ir.TypeName(val))
		}
		if b.Op.Lower() {
			if node.Lower != nil {
				return nil, invalid("%s: more than one lower bound", OpRange)
			}
			node.Lower, node.LowerInclusive = val, b.Op.Inclusive()
		} else {
			if node.Upper != nil {
				return nil, invalid("%s: more than one upper bound", OpRange)
			}
			node.Upper, node.UpperInclusive = val, b.Op.Inclusive()
		}
	}

	if node.Lower != nil && node.Upper != nil {
		cmp, ok := ir.Compare(node.Lower, node.Upper)
		if !ok {
			return nil, invalid("%s: bounds are not comparable (%s vs %s)", OpRange,
				ir.TypeName(node.Lower), ir.TypeName(node.Upper))
		}
		if cmp > 0 {
			return nil, invalid("%s: lower bound exceeds upper bound", OpRange)
		}
		if cmp == 0 && !(node.LowerInclusive && node.UpperInclusive) {
			return nil, invalid("%s: equal bounds must both be inclusive", OpRange)
		}
	}
	return node, nil
}

// Between builds an inclusive range [lower, upper].
func Between(field string, lower, upper any) (*Range, error) {
	return NewRange(field, RangeBound{BoundGTE, lower}, RangeBound{BoundLTE, upper})
}

// Match builds a TextMatch node for any text-match operator.
func Match(op Operator, field, text string) (*TextMatch, error) {
	if err := checkFamily(op, FamilyTextMatch); err != nil {
		return nil, err
	}
	if err := checkField(op, field); err != nil {
		return nil, err
	}
	if text == "" {
		return nil, invalid("%s: text must not be empty", op)
	}
	return &TextMatch{base: base{ready: true}, Op: op, Field: field, Text: text}, nil
}

// MatchAll builds {"$match": {field: text}}.
func MatchAll(field, text string) (*TextMatch, error) { return Match(OpMatch, field, text) }

// MatchPhrase builds {"$match_phrase": {field: text}}.
func MatchPhrase(field, text string) (*TextMatch, error) { return Match(OpMatchPhrase, field, text) }

// MatchPhrasePrefix builds {"$match_phrase_prefix": {field: text}}.
func MatchPhrasePrefix(field, text string) (*TextMatch, error) {
	return Match(OpMatchPhrasePrefix, field, text)
}

// Prefix builds {"$prefix": {field: text}}.
func Prefix(field, text string) (*TextMatch, error) { return Match(OpPrefix, field, text) }

// Lexical builds a LexicalSearch node for any lexical operator.
func Lexical(op Operator, field, text string) (*LexicalSearch, error) {
	if err := checkFamily(op, FamilyLexicalSearch); err != nil {
		return nil, err
	}
	if err := checkField(op, field); err != nil {
		return nil, err
	}
	if text == "" {
		return nil, invalid("%s: text must not be empty", op)
	}
	return &LexicalSearch{base: base{ready: true}, Op: op, Field: field, Text: text}, nil
}

// Search builds {"$search": {field: text}}.
func Search(field, text string) (*LexicalSearch, error) { return Lexical(OpSearch, field, text) }

// Term builds {"$term": {field: text}}.
func Term(field, text string) (*LexicalSearch, error) { return Lexical(OpTerm, field, text) }

// Wildcard builds {"$wildcard": {field: pattern}}.
func Wildcard(field, pattern string) (*LexicalSearch, error) {
	return Lexical(OpWildcard, field, pattern)
}

// Regex builds {"$regex": {field: pattern}}.
func Regex(field, pattern string) (*LexicalSearch, error) { return Lexical(OpRegex, field, pattern) }

// Like builds a FuzzyLike node for $flt or $mlt.
func Like(op Operator, text string, fields ...string) (*FuzzyLike, error) {
	if err := checkFamily(op, FamilyFuzzyLike); err != nil {
		return nil, err
	}
	if text == "" {
		return nil, invalid("%s: like-text must not be empty", op)
	}
	if len(fields) == 0 {
		return nil, invalid("%s: at least one field is required", op)
	}
	seen := make(map[string]bool, len(fields))
	kept := make([]string, 0, len(fields))
	for _, f := range fields {
		if err := checkField(op, f); err != nil {
			return nil, err
		}
		if !seen[f] {
			seen[f] = true
			kept = append(kept, f)
		}
	}
	return &FuzzyLike{base: base{ready: true}, Op: op, Text: text, Fields: kept}, nil
}

// Flt builds {"$flt": {"$fields": fields, "$like": text}}.
func Flt(text string, fields ...string) (*FuzzyLike, error) { return Like(OpFLT, text, fields...) }

// Mlt builds {"$mlt": {"$fields": fields, "$like": text}}.
func Mlt(text string, fields ...string) (*FuzzyLike, error) { return Like(OpMLT, text, fields...) }

// NewPath builds {"$path": [ids...]}. Duplicate ids are dropped.
func NewPath(ids ...string) (*Path, error) {
	if len(ids) == 0 {
		return nil, invalid("%s: at least one identifier is required", OpPath)
	}
	seen := make(map[string]bool, len(ids))
	kept := make([]string, 0, len(ids))
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return nil, invalid("%s: identifier must not be empty", OpPath)
		}
		if !seen[id] {
			seen[id] = true
			kept = append(kept, id)
		}
	}
	return &Path{base: base{ready: true}, IDs: kept}, nil
}

// Compose builds a Composite for $and, $or or $not. Zero children is
// allowed here; children can be added later with Add, and compiling or
// nesting a composite that is still empty fails with EmptyComposite.
func Compose(op Operator, children ...Node) (*Composite, error) {
	if err := checkFamily(op, FamilyComposite); err != nil {
		return nil, err
	}
	node := &Composite{base: base{ready: true}, Op: op}
	if err := node.Add(children...); err != nil {
		return nil, err
	}
	return node, nil
}

// And builds {"$and": [children...]}.
func And(children ...Node) (*Composite, error) { return Compose(OpAnd, children...) }

// Or builds {"$or": [children...]}.
func Or(children ...Node) (*Composite, error) { return Compose(OpOr, children...) }

// Not builds {"$not": [children...]}.
func Not(children ...Node) (*Composite, error) { return Compose(OpNot, children...) }

// Add appends children. Every child must be ready and any composite child
// must be non-empty. Either every child is added or none is.
func (c *Composite) Add(children ...Node) error {
	if !c.Ready() {
		return invalid("%s: node was not built by a factory", c.Op)
	}
	for i, child := range children {
		if err := checkUsable(child); err != nil {
			return addIndex(err, c.Op, len(c.Children)+i)
		}
		if reaches(child, c, map[*Composite]bool{}) {
			return addIndex(invalid("%s: a composite cannot contain itself", c.Op), c.Op, len(c.Children)+i)
		}
	}
	c.Children = append(c.Children, children...)
	return nil
}

// reaches reports whether target is n or lies anywhere below it.
func reaches(n Node, target *Composite, seen map[*Composite]bool) bool {
	c, ok := n.(*Composite)
	if !ok {
		return false
	}
	if c == target {
		return true
	}
	if seen[c] {
		return false
	}
	seen[c] = true
	for _, child := range c.Children {
		if reaches(child, target, seen) {
			return true
		}
	}
	return false
}

func addIndex(err error, op Operator, i int) error {
	if de := dslerr.As(err); de != nil {
		return de.At(indexPath(op, i))
	}
	return err
}

// checkUsable verifies a node may be nested, set as a hop or compiled.
func checkUsable(n Node) error {
	if isNil(n) {
		return invalid("node is nil")
	}
	if !n.Ready() {
		return invalid("%s node was not built by a factory", n.Family())
	}
	if c, ok := n.(*Composite); ok && len(c.Children) == 0 {
		return dslerr.New(dslerr.CodeEmptyComposite, "%s has no children", c.Op)
	}
	return nil
}

// CheckUsable is the exported form of the readiness check performed by
// Composite.Add. The request envelope and translators call it before
// accepting a node.
func CheckUsable(n Node) error {
	return checkUsable(n)
}

// isNil catches typed nil pointers hidden in the interface.
func isNil(n Node) bool {
	if n == nil {
		return true
	}
	switch v := n.(type) {
	case *Comparison:
		return v == nil
	case *Existence:
		return v == nil
	case *SetMembership:
		return v == nil
	case *Range:
		return v == nil
	case *TextMatch:
		return v == nil
	case *LexicalSearch:
		return v == nil
	case *FuzzyLike:
		return v == nil
	case *Path:
		return v == nil
	case *Composite:
		return v == nil
	}
	return false
}
