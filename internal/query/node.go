package query

import (
	"github.com/roach88/archq/internal/ir"
)

// Node is one expression of the query DSL.
//
// This is a sealed interface - only types in this package implement it.
// The marker method prevents external implementations and enables
// exhaustive type switches in the backend translators.
//
// Node variants:
//   - Comparison:    $eq, $ne, $lt, $lte, $gt, $gte, $size
//   - Existence:     $exists, $missing, $isNull
//   - SetMembership: $in, $nin
//   - Range:         $range
//   - TextMatch:     $match, $match_phrase, $match_phrase_prefix, $prefix
//   - LexicalSearch: $search, $term, $wildcard, $regex
//   - FuzzyLike:     $flt, $mlt
//   - Path:          $path
//   - Composite:     $and, $or, $not
//
// Nodes are only usable once Ready reports true, which only the builder
// factories in this package can arrange. A struct literal assembled by hand
// is inert: adding it to a composite, setting it as a hop or compiling it
// fails with InvalidConstruction.
type Node interface {
	// Family returns the node's family.
	Family() Family
	// Ready reports whether the node was produced by a builder factory.
	Ready() bool
	// Depth returns the relative depth window, or nil when unbounded.
	Depth() *DepthWindow

	queryNode()  // Marker method - seals interface to this package
	self() *base // Access to the shared fields for refinements
}

// DepthWindow bounds how far a hop may walk the hierarchy from its roots.
//
// Semantics, relative to the previous hop's results R:
//   - 0: R themselves
//   - 1: direct children of R
//   - n > 1: descendants at most n levels below R
//   - n < 0: ancestors at most |n| levels above R
type DepthWindow struct {
	Relative int
}

// base carries the fields every variant shares.
type base struct {
	depth *DepthWindow
	ready bool
}

func (b *base) Ready() bool {
	return b != nil && b.ready
}

func (b *base) self() *base { return b }

func (b *base) Depth() *DepthWindow {
	if b == nil || b.depth == nil {
		return nil
	}
	cp := *b.depth
	return &cp
}

// Comparison compares a field against one scalar.
//
// Semantics:
//
//	<field> <op> <value>
//
// $size compares the length of an array field with a non-negative integer.
//
// Example:
//
//	{"$gte": {"StartDate": "2014-01-10"}}
type Comparison struct {
	base
	Op    Operator
	Field string
	Value ir.Value
}

func (*Comparison) Family() Family { return FamilyComparison }
func (*Comparison) queryNode()     {}

// Existence tests for the presence of a field ($exists), its absence
// ($missing) or an explicit null value ($isNull).
//
// Example:
//
//	{"$exists": "Description"}
type Existence struct {
	base
	Op    Operator
	Field string
}

func (*Existence) Family() Family { return FamilyExistence }
func (*Existence) queryNode()     {}

// SetMembership tests a field against a set of scalars.
// Values is an ordered set: duplicates are dropped, first occurrence wins.
//
// Example:
//
//	{"$in": {"Status": ["open", "closed"]}}
type SetMembership struct {
	base
	Op     Operator
	Field  string
	Values []ir.Value
}

func (*SetMembership) Family() Family { return FamilySetMembership }
func (*SetMembership) queryNode()     {}

// Range bounds a field from below, above or both.
// A nil Lower or Upper means the range is open on that side.
//
// Example:
//
//	{"$range": {"Date": {"$gte": "2000", "$lt": "2010"}}}
type Range struct {
	base
	Field          string
	Lower          ir.Value
	LowerInclusive bool
	Upper          ir.Value
	UpperInclusive bool
}

func (*Range) Family() Family { return FamilyRange }
func (*Range) queryNode()     {}

// TextMatch is an analyzed full-text match. MaxExpansions tunes how many
// terms a prefix may expand to; nil leaves the backend default.
//
// Example:
//
//	{"$match_phrase_prefix": {"Title": "archives nat", "$max_expansions": 10}}
type TextMatch struct {
	base
	Op            Operator
	Field         string
	Text          string
	MaxExpansions *int
}

func (*TextMatch) Family() Family { return FamilyTextMatch }
func (*TextMatch) queryNode()     {}

// LexicalSearch is an unanalyzed full-text lookup: a query string ($search),
// an exact term ($term), a wildcard pattern or a regular expression.
//
// Example:
//
//	{"$wildcard": {"Identifier": "FRAN_*"}}
type LexicalSearch struct {
	base
	Op    Operator
	Field string
	Text  string
}

func (*LexicalSearch) Family() Family { return FamilyLexicalSearch }
func (*LexicalSearch) queryNode()     {}

// FuzzyLike finds documents resembling Text across several fields.
//
// Example:
//
//	{"$mlt": {"$fields": ["Title", "Description"], "$like": "fonds"}}
type FuzzyLike struct {
	base
	Op     Operator
	Fields []string
	Text   string
}

func (*FuzzyLike) Family() Family { return FamilyFuzzyLike }
func (*FuzzyLike) queryNode()     {}

// Path selects documents by explicit identifier, without walking the
// hierarchy.
//
// Example:
//
//	{"$path": ["aeaqaaaaaeaaaaakaarp4akuuf2ldmyaaaaq"]}
type Path struct {
	base
	IDs []string
}

func (*Path) Family() Family { return FamilyPath }
func (*Path) queryNode()     {}

// Composite combines child nodes with $and, $or or $not.
//
// $not with several children matches documents none of the children match.
// A composite with no children cannot be nested or compiled.
type Composite struct {
	base
	Op       Operator
	Children []Node
}

func (*Composite) Family() Family { return FamilyComposite }
func (*Composite) queryNode()     {}

// FieldOf returns the field a single-field node targets, or "" for
// Path, FuzzyLike and Composite nodes.
func FieldOf(n Node) string {
	switch node := n.(type) {
	case *Comparison:
		return node.Field
	case *Existence:
		return node.Field
	case *SetMembership:
		return node.Field
	case *Range:
		return node.Field
	case *TextMatch:
		return node.Field
	case *LexicalSearch:
		return node.Field
	default:
		return ""
	}
}

// OperatorOf returns the wire operator of n.
func OperatorOf(n Node) Operator {
	switch node := n.(type) {
	case *Comparison:
		return node.Op
	case *Existence:
		return node.Op
	case *SetMembership:
		return node.Op
	case *Range:
		return OpRange
	case *TextMatch:
		return node.Op
	case *LexicalSearch:
		return node.Op
	case *FuzzyLike:
		return node.Op
	case *Path:
		return OpPath
	case *Composite:
		return node.Op
	default:
		return ""
	}
}
