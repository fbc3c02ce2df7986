// Package translate holds what the backend translators share: backend
// selection, the Compiler contract and hop addressing.
//
// The translators themselves live in the docstore and search
// subpackages. Both are pure: they never log, block or retain their input.
package translate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/archq/internal/adapter"
	"github.com/roach88/archq/internal/dslerr"
	"github.com/roach88/archq/internal/query"
	"github.com/roach88/archq/internal/request"
)

// Backend names a compilation target.
type Backend string

const (
	DocumentStore Backend = "docstore"
	SearchEngine  Backend = "search"
)

// ParseBackend accepts "docstore" and "search", case-insensitively.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(s)); b {
	case DocumentStore, SearchEngine:
		return b, nil
	default:
		return "", fmt.Errorf("unknown backend %q (want %s or %s)", s, DocumentStore, SearchEngine)
	}
}

// Compiler lowers nodes and root sets into a backend representation T.
type Compiler[T any] interface {
	Backend() Backend

	// Compile lowers a single hop.
	Compile(n query.Node) (T, error)

	// CompileRoots builds the identifier-membership filter for req's roots.
	CompileRoots(req *request.Request, idField string) (T, error)
}

// HasFullTextQuery reports whether any hop of req contains a TextMatch,
// LexicalSearch or FuzzyLike node.
func HasFullTextQuery(req *request.Request) bool {
	return req.HasFullTextQuery()
}

// SelectBackend picks the search engine for full-text requests and the
// document store otherwise.
func SelectBackend(req *request.Request) Backend {
	if HasFullTextQuery(req) {
		return SearchEngine
	}
	return DocumentStore
}

// CompileNth compiles hop n of req.
func CompileNth[T any](c Compiler[T], req *request.Request, n int) (T, error) {
	var zero T
	node, err := req.Hop(n)
	if err != nil {
		return zero, err
	}
	out, err := c.Compile(node)
	if err != nil {
		if de := dslerr.As(err); de != nil {
			located := *de
			located.Path = Join(fmt.Sprintf("%s[%d]", request.KeyQuery, n), de.Path)
			return zero, &located
		}
		return zero, err
	}
	return out, nil
}

// CompileAll compiles every hop of req in order.
func CompileAll[T any](c Compiler[T], req *request.Request) ([]T, error) {
	out := make([]T, 0, req.NumHops())
	for i := range req.NumHops() {
		compiled, err := CompileNth(c, req, i)
		if err != nil {
			return nil, err
		}
		out = append(out, compiled)
	}
	return out, nil
}

// Resolver maps external field names to backend names for a translator.
type Resolver struct {
	fields adapter.FieldAdapter
}

// NewResolver wraps a field adapter.
func NewResolver(fields adapter.FieldAdapter) Resolver {
	return Resolver{fields: fields}
}

// Field resolves a field name used in a query node.
func (r Resolver) Field(name string) (string, error) {
	return r.fields.Resolve(name)
}

// Projection resolves a projection field; "#all" passes through.
func (r Resolver) Projection(name string) (string, error) {
	if name == adapter.AllFields {
		return name, nil
	}
	return r.fields.Resolve(name)
}

// IDField returns the backend name of the "#id" field.
func (r Resolver) IDField() string {
	id, err := r.fields.Resolve("#id")
	if err != nil {
		return "_id"
	}
	return id
}

// Prepare validates a node before lowering: every node must be ready,
// composites non-empty and depth windows in range.
func Prepare(n query.Node) error {
	return query.Validate(n, query.MaxRelativeDepth)
}

// Unsupported reports a node the backend cannot express.
func Unsupported(b Backend, n query.Node, path string) error {
	return dslerr.New(dslerr.CodeUnsupportedByBackend,
		"%s does not support %s (%s)", b, query.OperatorOf(n), n.Family()).At(path)
}

// ErrNegativeWindow is returned by Scope for ancestor windows. The caller
// resolves ancestors to identifiers and scopes them with a zero window.
var ErrNegativeWindow = errors.New("negative depth window must be resolved to ancestor identifiers first")

// Join extends a node path with an element.
func Join(path, elem string) string {
	switch {
	case path == "":
		return elem
	case elem == "":
		return path
	}
	return path + "." + elem
}

// Index extends a node path with a composite child index.
func Index(path string, op query.Operator, i int) string {
	return Join(path, fmt.Sprintf("%s[%d]", op, i))
}
