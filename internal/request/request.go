// Package request holds the query envelope: roots, hops, filter and
// projection for one query against one metadata model.
//
// A Request is created per query, mutated through its accessors, compiled,
// then discarded. It is not safe for concurrent mutation.
package request

import (
	"slices"
	"strings"

	"github.com/roach88/archq/internal/dslerr"
	"github.com/roach88/archq/internal/ir"
	"github.com/roach88/archq/internal/model"
	"github.com/roach88/archq/internal/query"
)

// Top-level envelope keys.
const (
	KeyRoots      = "$roots"
	KeyQuery      = "$query"
	KeyFilter     = "$filter"
	KeyProjection = "$projection"
	KeyData       = "$data"
	KeyUsage      = "$usage"
)

// DefaultMaxHops bounds the number of hops when no option overrides it.
const DefaultMaxHops = 16

// Request is the query envelope.
type Request struct {
	// Model is the metadata collection the request targets.
	Model model.Model

	roots      []string
	hops       []query.Node
	filter     Filter
	projection Projection
	data       *ir.Document
	maxHops    int
}

// Option configures a Request.
type Option func(*Request)

// WithMaxHops overrides the hop ceiling.
func WithMaxHops(n int) Option {
	return func(r *Request) {
		if n > 0 {
			r.maxHops = n
		}
	}
}

// New returns an empty envelope for m.
func New(m model.Model, opts ...Option) *Request {
	r := &Request{Model: m, maxHops: DefaultMaxHops}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// MaxHops returns the hop ceiling.
func (r *Request) MaxHops() int {
	return r.maxHops
}

// Roots returns a copy of the root identifiers.
func (r *Request) Roots() []string {
	return slices.Clone(r.roots)
}

// AddRoots appends identifiers to the root set, ignoring duplicates.
func (r *Request) AddRoots(ids ...string) error {
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return dslerr.New(dslerr.CodeInvalidConstruction, "root identifier must not be empty")
		}
	}
	for _, id := range ids {
		if !slices.Contains(r.roots, id) {
			r.roots = append(r.roots, id)
		}
	}
	return nil
}

// ResetRoots clears the root set.
func (r *Request) ResetRoots() {
	r.roots = nil
}

// SetQuery sets hop 0, replacing any existing hop 0.
func (r *Request) SetQuery(n query.Node) error {
	if err := query.CheckUsable(n); err != nil {
		return err
	}
	if len(r.hops) == 0 {
		r.hops = append(r.hops, n)
		return nil
	}
	r.hops[0] = n
	return nil
}

// AddQueries appends hops. Each hop must be usable and the total may not
// exceed MaxHops. Either every node is appended or none is.
func (r *Request) AddQueries(nodes ...query.Node) error {
	for _, n := range nodes {
		if err := query.CheckUsable(n); err != nil {
			return err
		}
	}
	if len(r.hops)+len(nodes) > r.maxHops {
		return dslerr.New(dslerr.CodeRequestTooLarge,
			"%d hops exceed the maximum of %d", len(r.hops)+len(nodes), r.maxHops)
	}
	r.hops = append(r.hops, nodes...)
	return nil
}

// ResetQueries removes every hop.
func (r *Request) ResetQueries() {
	r.hops = nil
}

// Hops returns a copy of the hop list.
func (r *Request) Hops() []query.Node {
	return slices.Clone(r.hops)
}

// NumHops returns the number of hops.
func (r *Request) NumHops() int {
	return len(r.hops)
}

// Hop returns hop n, or a HopIndexOutOfRange error.
func (r *Request) Hop(n int) (query.Node, error) {
	if n < 0 || n >= len(r.hops) {
		return nil, dslerr.New(dslerr.CodeHopIndexOutOfRange,
			"hop %d requested, request has %d", n, len(r.hops))
	}
	return r.hops[n], nil
}

// Filter returns the envelope's filter section.
func (r *Request) Filter() *Filter {
	return &r.filter
}

// Projection returns the envelope's projection section.
func (r *Request) Projection() *Projection {
	return &r.projection
}

// SetData stores a $data object, used in place of a projection.
func (r *Request) SetData(doc *ir.Document) {
	r.data = doc
}

// Data returns the $data object, or nil.
func (r *Request) Data() *ir.Document {
	return r.data
}

// Reset clears filter, projection, data and hops. Roots and model are kept.
func (r *Request) Reset() {
	r.filter = Filter{}
	r.projection = Projection{}
	r.data = nil
	r.hops = nil
}

// AssembleFinal serializes the envelope into its DSL form. Only
// non-empty sections are emitted, in the order $roots, $query, $filter,
// then $projection or $data. With $data the usage label goes to a
// top-level $usage.
func (r *Request) AssembleFinal() (*ir.Document, error) {
	out := ir.NewDocument()

	if len(r.roots) > 0 {
		roots := make(ir.Array, len(r.roots))
		for i, id := range r.roots {
			roots[i] = ir.String(id)
		}
		out.Set(KeyRoots, roots)
	}

	if len(r.hops) > 0 {
		hops := make(ir.Array, 0, len(r.hops))
		for _, hop := range r.hops {
			enc, err := query.Encode(hop)
			if err != nil {
				return nil, err
			}
			hops = append(hops, enc)
		}
		out.Set(KeyQuery, hops)
	}

	if !r.filter.IsEmpty() {
		out.Set(KeyFilter, r.filter.document())
	}

	switch {
	case r.data != nil:
		out.Set(KeyData, r.data)
		if r.projection.usage != "" {
			out.Set(KeyUsage, ir.String(r.projection.usage))
		}
	case !r.projection.IsEmpty():
		out.Set(KeyProjection, r.projection.document())
	}

	return out, nil
}

// HasFullTextQuery reports whether any hop needs a search engine.
func (r *Request) HasFullTextQuery() bool {
	for _, hop := range r.hops {
		if query.ContainsFullText(hop) {
			return true
		}
	}
	return false
}
