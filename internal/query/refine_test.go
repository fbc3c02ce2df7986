package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/archq/internal/dslerr"
)

func TestRefinementTableCoversEveryFamily(t *testing.T) {
	for _, f := range Families() {
		_, ok := refinementTable[f]
		assert.True(t, ok, "family %s has no refinement table entry", f)
	}
	assert.Len(t, refinementTable, len(Families()))
}

func TestEveryOperatorHasAFamily(t *testing.T) {
	for _, op := range Operators() {
		f, ok := op.Family()
		require.True(t, ok)
		assert.NotEqual(t, "Unknown", f.String(), "operator %s", op)
	}
	assert.Len(t, Operators(), 27)
}

func sampleNodes(t *testing.T) map[Family]Node {
	t.Helper()
	must := func(n Node, err error) Node {
		t.Helper()
		require.NoError(t, err)
		return n
	}
	eq := must(Eq("A", 1))
	return map[Family]Node{
		FamilyComparison:    eq,
		FamilyExistence:     must(Exists("A")),
		FamilySetMembership: must(In("A", 1)),
		FamilyRange:         must(Between("A", 1, 2)),
		FamilyTextMatch:     must(MatchAll("A", "x")),
		FamilyLexicalSearch: must(Term("A", "x")),
		FamilyFuzzyLike:     must(Mlt("x", "A")),
		FamilyPath:          must(NewPath("id")),
		FamilyComposite:     must(And(eq)),
	}
}

func TestSetMatchMaxExpansions(t *testing.T) {
	for family, node := range sampleNodes(t) {
		t.Run(family.String(), func(t *testing.T) {
			err := SetMatchMaxExpansions(node, 10)
			if family == FamilyTextMatch {
				require.NoError(t, err)
				require.NotNil(t, node.(*TextMatch).MaxExpansions)
				assert.Equal(t, 10, *node.(*TextMatch).MaxExpansions)
				return
			}
			assert.ErrorIs(t, err, dslerr.ErrUnsupportedRefinement)
		})
	}
}

func TestSetMatchMaxExpansionsOnEveryTextMatchOperator(t *testing.T) {
	for _, op := range []Operator{OpMatch, OpMatchPhrase, OpMatchPhrasePrefix, OpPrefix} {
		node, err := Match(op, "Title", "x")
		require.NoError(t, err)
		assert.NoError(t, SetMatchMaxExpansions(node, 5), "operator %s", op)
	}
}

func TestSetMatchMaxExpansionsRejectsNonPositive(t *testing.T) {
	node, err := Prefix("Title", "arch")
	require.NoError(t, err)

	assert.ErrorIs(t, SetMatchMaxExpansions(node, 0), dslerr.ErrInvalidConstruction)
	assert.Nil(t, node.MaxExpansions)
}

func TestSetRelativeDepthLimit(t *testing.T) {
	for family, node := range sampleNodes(t) {
		t.Run(family.String(), func(t *testing.T) {
			err := SetRelativeDepthLimit(node, 3)
			if family == FamilyPath {
				assert.ErrorIs(t, err, dslerr.ErrUnsupportedRefinement)
				assert.Nil(t, node.Depth())
				return
			}
			require.NoError(t, err)
			require.NotNil(t, node.Depth())
			assert.Equal(t, 3, node.Depth().Relative)
		})
	}
}

func TestSetRelativeDepthLimitBounds(t *testing.T) {
	node, err := Eq("A", 1)
	require.NoError(t, err)

	assert.NoError(t, SetRelativeDepthLimit(node, -MaxRelativeDepth))
	assert.NoError(t, SetRelativeDepthLimit(node, 0))
	assert.ErrorIs(t, SetRelativeDepthLimit(node, MaxRelativeDepth+1), dslerr.ErrInvalidConstruction)
	assert.Equal(t, 0, node.Depth().Relative)
}

func TestDepthReturnsCopy(t *testing.T) {
	node, err := Eq("A", 1)
	require.NoError(t, err)
	require.NoError(t, SetRelativeDepthLimit(node, 2))

	node.Depth().Relative = 50
	assert.Equal(t, 2, node.Depth().Relative)
}

func TestRefineUnreadyNode(t *testing.T) {
	literal := &TextMatch{Op: OpMatch, Field: "A", Text: "x"}

	assert.ErrorIs(t, SetMatchMaxExpansions(literal, 3), dslerr.ErrInvalidConstruction)
	assert.ErrorIs(t, SetRelativeDepthLimit(nil, 3), dslerr.ErrInvalidConstruction)
}
