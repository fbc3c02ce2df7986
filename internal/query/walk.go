package query

import (
	"fmt"

	"github.com/roach88/archq/internal/dslerr"
)

// Walk visits n and its descendants depth-first, parent before children.
// Returning false from fn skips the children of the visited node.
func Walk(n Node, fn func(Node) bool) {
	if isNil(n) {
		return
	}
	if !fn(n) {
		return
	}
	if c, ok := n.(*Composite); ok {
		for _, child := range c.Children {
			Walk(child, fn)
		}
	}
}

// ContainsFullText reports whether any node in the tree needs a search engine.
func ContainsFullText(n Node) bool {
	found := false
	Walk(n, func(node Node) bool {
		if node.Family().FullText() {
			found = true
		}
		return !found
	})
	return found
}

// Height returns the number of nested levels in the tree; a leaf has height 1.
func Height(n Node) int {
	if isNil(n) {
		return 0
	}
	c, ok := n.(*Composite)
	if !ok {
		return 1
	}
	h := 0
	for _, child := range c.Children {
		h = max(h, Height(child))
	}
	return h + 1
}

// Validate re-checks a whole tree before it is used: every node must be
// ready, no composite may be empty, and depth windows must lie within
// maxDepth in either direction. The first violation is returned, located by
// its path in the tree, e.g. "$and[1].$or[0]".
//
// Validate is a pure function with no side effects.
func Validate(n Node, maxDepth int) error {
	v := &validator{maxDepth: maxDepth}
	v.validate(n, "")
	return v.err
}

// validator keeps the first error found during traversal.
type validator struct {
	maxDepth int
	err      error
}

func (v *validator) fail(path string, err error) {
	if v.err != nil {
		return
	}
	if de := dslerr.As(err); de != nil && path != "" {
		err = de.At(path)
	}
	v.err = err
}

func (v *validator) validate(n Node, path string) {
	if v.err != nil {
		return
	}
	if err := checkUsable(n); err != nil {
		v.fail(path, err)
		return
	}
	if d := n.Depth(); d != nil && (d.Relative > v.maxDepth || d.Relative < -v.maxDepth) {
		v.fail(path, dslerr.New(dslerr.CodeInvalidConstruction,
			"%s %d is outside [-%d, %d]", KeyDepth, d.Relative, v.maxDepth, v.maxDepth))
		return
	}

	switch node := n.(type) {
	case *Composite:
		for i, child := range node.Children {
			v.validate(child, joinPath(path, indexPath(node.Op, i)))
		}
	case *Comparison, *Existence, *SetMembership, *Range,
		*TextMatch, *LexicalSearch, *FuzzyLike, *Path:
		// Leaves were validated by their factory.
	default:
		v.fail(path, fmt.Errorf("unknown node type %T", n))
	}
}

func indexPath(op Operator, i int) string {
	return fmt.Sprintf("%s[%d]", op, i)
}

func joinPath(prefix, elem string) string {
	if prefix == "" {
		return elem
	}
	return prefix + "." + elem
}
