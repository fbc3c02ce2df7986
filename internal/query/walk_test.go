package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/archq/internal/dslerr"
	"github.com/roach88/archq/internal/ir"
)

func TestContainsFullText(t *testing.T) {
	eq, err := Eq("A", 1)
	require.NoError(t, err)
	match, err := MatchAll("Title", "x")
	require.NoError(t, err)
	mlt, err := Mlt("x", "Title")
	require.NoError(t, err)

	plain, err := And(eq)
	require.NoError(t, err)
	nested, err := Or(eq, mlt)
	require.NoError(t, err)
	deep, err := And(plain, nested)
	require.NoError(t, err)

	assert.False(t, ContainsFullText(eq))
	assert.True(t, ContainsFullText(match))
	assert.False(t, ContainsFullText(plain))
	assert.True(t, ContainsFullText(deep))
	assert.False(t, ContainsFullText(nil))
}

func TestWalkOrderAndSkip(t *testing.T) {
	a, err := Eq("A", 1)
	require.NoError(t, err)
	b, err := Eq("B", 1)
	require.NoError(t, err)
	inner, err := Or(b)
	require.NoError(t, err)
	root, err := And(a, inner)
	require.NoError(t, err)

	var seen []Operator
	Walk(root, func(n Node) bool {
		seen = append(seen, OperatorOf(n))
		return true
	})
	assert.Equal(t, []Operator{OpAnd, OpEQ, OpOr, OpEQ}, seen)

	seen = nil
	Walk(root, func(n Node) bool {
		seen = append(seen, OperatorOf(n))
		return n.Family() != FamilyComposite || n == Node(root)
	})
	assert.Equal(t, []Operator{OpAnd, OpEQ, OpOr}, seen)
}

func TestHeight(t *testing.T) {
	a, err := Eq("A", 1)
	require.NoError(t, err)
	inner, err := Or(a)
	require.NoError(t, err)
	root, err := And(a, inner)
	require.NoError(t, err)

	assert.Equal(t, 1, Height(a))
	assert.Equal(t, 3, Height(root))
	assert.Equal(t, 0, Height(nil))
}

func TestValidate(t *testing.T) {
	a, err := Eq("A", 1)
	require.NoError(t, err)
	require.NoError(t, Validate(a, 10))

	empty, err := And()
	require.NoError(t, err)
	assert.ErrorIs(t, Validate(empty, 10), dslerr.ErrEmptyComposite)

	deep, err := Eq("B", 2)
	require.NoError(t, err)
	require.NoError(t, SetRelativeDepthLimit(deep, 5))
	root, err := And(a, deep)
	require.NoError(t, err)

	err = Validate(root, 3)
	require.ErrorIs(t, err, dslerr.ErrInvalidConstruction)
	assert.Equal(t, "$and[1]", dslerr.As(err).Path)

	assert.NoError(t, Validate(root, 5))
}

func TestValidateFindsChildEmptiedAfterNesting(t *testing.T) {
	// Children are held by reference, so a composite emptied after being
	// nested is caught by Validate rather than by Add.
	a, err := Eq("A", 1)
	require.NoError(t, err)
	inner, err := Or(a)
	require.NoError(t, err)
	root, err := And(inner)
	require.NoError(t, err)

	inner.Children = nil
	err = Validate(root, 10)
	require.ErrorIs(t, err, dslerr.ErrEmptyComposite)
	assert.Equal(t, "$and[0]", dslerr.As(err).Path)
}

func TestFieldAndOperatorOf(t *testing.T) {
	r, err := Between("Year", 1, 2)
	require.NoError(t, err)
	p, err := NewPath("x")
	require.NoError(t, err)

	assert.Equal(t, "Year", FieldOf(r))
	assert.Equal(t, OpRange, OperatorOf(r))
	assert.Equal(t, "", FieldOf(p))
	assert.Equal(t, OpPath, OperatorOf(p))
	assert.Equal(t, ir.Int(1), r.Lower)
}
