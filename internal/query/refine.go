package query

import (
	"github.com/roach88/archq/internal/dslerr"
)

// Refinement is a post-construction adjustment of a node.
type Refinement int

const (
	// RefineMaxExpansions caps the terms a text match may expand to.
	RefineMaxExpansions Refinement = iota
	// RefineRelativeDepth sets the hop's relative depth window.
	RefineRelativeDepth
)

func (r Refinement) String() string {
	switch r {
	case RefineMaxExpansions:
		return "max_expansions"
	case RefineRelativeDepth:
		return "relative_depth"
	default:
		return "unknown"
	}
}

// MaxRelativeDepth is the largest depth window, in either direction, any
// node accepts. Deployments may configure a lower ceiling in the parser.
const MaxRelativeDepth = 100

// refinementTable lists, per family, the refinements it accepts.
// Every family must have an entry, even an empty one.
var refinementTable = map[Family][]Refinement{
	FamilyComparison:    {RefineRelativeDepth},
	FamilyExistence:     {RefineRelativeDepth},
	FamilySetMembership: {RefineRelativeDepth},
	FamilyRange:         {RefineRelativeDepth},
	FamilyTextMatch:     {RefineMaxExpansions, RefineRelativeDepth},
	FamilyLexicalSearch: {RefineRelativeDepth},
	FamilyFuzzyLike:     {RefineRelativeDepth},
	FamilyPath:          {},
	FamilyComposite:     {RefineRelativeDepth},
}

// Supports reports whether family f accepts refinement r.
func Supports(f Family, r Refinement) bool {
	for _, allowed := range refinementTable[f] {
		if allowed == r {
			return true
		}
	}
	return false
}

func checkRefinement(n Node, r Refinement) error {
	if isNil(n) || !n.Ready() {
		return invalid("cannot refine a node that was not built by a factory")
	}
	if !Supports(n.Family(), r) {
		return dslerr.New(dslerr.CodeUnsupportedRefinement,
			"%s does not accept %s refinement", n.Family(), r)
	}
	return nil
}

// SetMatchMaxExpansions caps prefix expansion on a TextMatch node.
// Any other family fails with UnsupportedRefinement.
func SetMatchMaxExpansions(n Node, limit int) error {
	if err := checkRefinement(n, RefineMaxExpansions); err != nil {
		return err
	}
	if limit <= 0 {
		return invalid("%s must be positive, got %d", KeyMaxExpansions, limit)
	}
	n.(*TextMatch).MaxExpansions = &limit
	return nil
}

// SetRelativeDepthLimit sets the node's relative depth window.
// Path nodes address identifiers directly and fail with UnsupportedRefinement.
func SetRelativeDepthLimit(n Node, depth int) error {
	if err := checkRefinement(n, RefineRelativeDepth); err != nil {
		return err
	}
	if depth > MaxRelativeDepth || depth < -MaxRelativeDepth {
		return invalid("%s %d is outside [-%d, %d]", KeyDepth, depth, MaxRelativeDepth, MaxRelativeDepth)
	}
	n.self().depth = &DepthWindow{Relative: depth}
	return nil
}
