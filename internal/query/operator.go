package query

// Operator is a DSL operator keyword, spelled as it appears on the wire.
type Operator string

const (
	OpEQ   Operator = "$eq"
	OpNE   Operator = "$ne"
	OpLT   Operator = "$lt"
	OpLTE  Operator = "$lte"
	OpGT   Operator = "$gt"
	OpGTE  Operator = "$gte"
	OpSize Operator = "$size"

	OpExists  Operator = "$exists"
	OpMissing Operator = "$missing"
	OpIsNull  Operator = "$isNull"

	OpIn  Operator = "$in"
	OpNin Operator = "$nin"

	OpRange Operator = "$range"

	OpMatch             Operator = "$match"
	OpMatchPhrase       Operator = "$match_phrase"
	OpMatchPhrasePrefix Operator = "$match_phrase_prefix"
	OpPrefix            Operator = "$prefix"

	OpSearch   Operator = "$search"
	OpTerm     Operator = "$term"
	OpWildcard Operator = "$wildcard"
	OpRegex    Operator = "$regex"

	OpFLT Operator = "$flt"
	OpMLT Operator = "$mlt"

	OpPath Operator = "$path"

	OpAnd Operator = "$and"
	OpOr  Operator = "$or"
	OpNot Operator = "$not"
)

// Auxiliary keywords that appear inside operator bodies.
const (
	KeyDepth         = "$depth"
	KeyMaxExpansions = "$max_expansions"
	KeyFields        = "$fields"
	KeyLike          = "$like"
)

// Family groups operators that share a node shape.
type Family int

const (
	FamilyComparison Family = iota
	FamilyExistence
	FamilySetMembership
	FamilyRange
	FamilyTextMatch
	FamilyLexicalSearch
	FamilyFuzzyLike
	FamilyPath
	FamilyComposite
)

// Families returns every family in declaration order.
func Families() []Family {
	return []Family{
		FamilyComparison,
		FamilyExistence,
		FamilySetMembership,
		FamilyRange,
		FamilyTextMatch,
		FamilyLexicalSearch,
		FamilyFuzzyLike,
		FamilyPath,
		FamilyComposite,
	}
}

func (f Family) String() string {
	switch f {
	case FamilyComparison:
		return "Comparison"
	case FamilyExistence:
		return "Existence"
	case FamilySetMembership:
		return "SetMembership"
	case FamilyRange:
		return "Range"
	case FamilyTextMatch:
		return "TextMatch"
	case FamilyLexicalSearch:
		return "LexicalSearch"
	case FamilyFuzzyLike:
		return "FuzzyLike"
	case FamilyPath:
		return "Path"
	case FamilyComposite:
		return "Composite"
	default:
		return "Unknown"
	}
}

// FullText reports whether nodes of this family need a search engine.
func (f Family) FullText() bool {
	switch f {
	case FamilyTextMatch, FamilyLexicalSearch, FamilyFuzzyLike:
		return true
	default:
		return false
	}
}

// operatorFamily is the single source of truth mapping operators to families.
var operatorFamily = map[Operator]Family{
	OpEQ: FamilyComparison, OpNE: FamilyComparison,
	OpLT: FamilyComparison, OpLTE: FamilyComparison,
	OpGT: FamilyComparison, OpGTE: FamilyComparison,
	OpSize: FamilyComparison,

	OpExists: FamilyExistence, OpMissing: FamilyExistence, OpIsNull: FamilyExistence,

	OpIn: FamilySetMembership, OpNin: FamilySetMembership,

	OpRange: FamilyRange,

	OpMatch: FamilyTextMatch, OpMatchPhrase: FamilyTextMatch,
	OpMatchPhrasePrefix: FamilyTextMatch, OpPrefix: FamilyTextMatch,

	OpSearch: FamilyLexicalSearch, OpTerm: FamilyLexicalSearch,
	OpWildcard: FamilyLexicalSearch, OpRegex: FamilyLexicalSearch,

	OpFLT: FamilyFuzzyLike, OpMLT: FamilyFuzzyLike,

	OpPath: FamilyPath,

	OpAnd: FamilyComposite, OpOr: FamilyComposite, OpNot: FamilyComposite,
}

// LookupOperator resolves a wire keyword to an operator.
func LookupOperator(keyword string) (Operator, Family, bool) {
	op := Operator(keyword)
	f, ok := operatorFamily[op]
	return op, f, ok
}

// Operators returns every operator keyword, in no particular order.
func Operators() []Operator {
	ops := make([]Operator, 0, len(operatorFamily))
	for op := range operatorFamily {
		ops = append(ops, op)
	}
	return ops
}

// Family returns the family of op.
func (op Operator) Family() (Family, bool) {
	f, ok := operatorFamily[op]
	return f, ok
}

// Bound is a range bound keyword.
type Bound string

const (
	BoundGT  Bound = "$gt"
	BoundGTE Bound = "$gte"
	BoundLT  Bound = "$lt"
	BoundLTE Bound = "$lte"
)

// Lower reports whether b bounds a range from below.
func (b Bound) Lower() bool { return b == BoundGT || b == BoundGTE }

// Inclusive reports whether b includes its endpoint.
func (b Bound) Inclusive() bool { return b == BoundGTE || b == BoundLTE }

// ParseBound accepts the four range bound keywords.
func ParseBound(s string) (Bound, bool) {
	switch b := Bound(s); b {
	case BoundGT, BoundGTE, BoundLT, BoundLTE:
		return b, true
	default:
		return "", false
	}
}
