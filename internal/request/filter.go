package request

import (
	"slices"
	"strings"

	"github.com/roach88/archq/internal/dslerr"
	"github.com/roach88/archq/internal/ir"
)

// Filter section keys.
const (
	KeyLimit   = "$limit"
	KeyOffset  = "$offset"
	KeyOrderBy = "$orderby"
	KeyHint    = "$hint"
)

// Hint is an execution hint for the engine.
type Hint string

const (
	HintCache     Hint = "cache"
	HintNoCache   Hint = "nocache"
	HintNoTimeout Hint = "notimeout"
)

// ParseHint accepts the three hint tokens.
func ParseHint(s string) (Hint, error) {
	switch h := Hint(s); h {
	case HintCache, HintNoCache, HintNoTimeout:
		return h, nil
	default:
		return "", dslerr.New(dslerr.CodeUnknownToken, "unknown hint %q", s)
	}
}

// Direction is a sort direction, written 1 or -1 on the wire.
type Direction int

const (
	Asc  Direction = 1
	Desc Direction = -1
)

// OrderEntry is one sort key.
type OrderEntry struct {
	Field     string
	Direction Direction
}

// Filter holds limit, offset, ordering and hints.
//
// Invariants:
//   - limit and offset are only present when strictly positive
//   - orderBy is an ordered map: re-adding a field updates it in place
//   - hints form a set
type Filter struct {
	limit   int64
	offset  int64
	orderBy []OrderEntry
	hints   []Hint
}

// Limit returns the limit and whether it is present.
func (f *Filter) Limit() (int64, bool) {
	return f.limit, f.limit > 0
}

// Offset returns the offset and whether it is present.
func (f *Filter) Offset() (int64, bool) {
	return f.offset, f.offset > 0
}

// OrderBy returns a copy of the sort keys in order.
func (f *Filter) OrderBy() []OrderEntry {
	return slices.Clone(f.orderBy)
}

// Hints returns a copy of the hints in insertion order.
func (f *Filter) Hints() []Hint {
	return slices.Clone(f.hints)
}

// HasHint reports whether h is set.
func (f *Filter) HasHint(h Hint) bool {
	return slices.Contains(f.hints, h)
}

// Len returns the number of keys the filter section would carry.
func (f *Filter) Len() int {
	n := 0
	if f.limit > 0 {
		n++
	}
	if f.offset > 0 {
		n++
	}
	if len(f.orderBy) > 0 {
		n++
	}
	if len(f.hints) > 0 {
		n++
	}
	return n
}

// IsEmpty reports whether the filter section would be omitted.
func (f *Filter) IsEmpty() bool {
	return f.Len() == 0
}

func (f *Filter) document() *ir.Document {
	doc := ir.NewDocument()
	if f.limit > 0 {
		doc.Set(KeyLimit, ir.Int(f.limit))
	}
	if f.offset > 0 {
		doc.Set(KeyOffset, ir.Int(f.offset))
	}
	if len(f.orderBy) > 0 {
		order := ir.NewDocument()
		for _, e := range f.orderBy {
			order.Set(e.Field, ir.Int(e.Direction))
		}
		doc.Set(KeyOrderBy, order)
	}
	if len(f.hints) > 0 {
		hints := make(ir.Array, len(f.hints))
		for i, h := range f.hints {
			hints[i] = ir.String(h)
		}
		doc.Set(KeyHint, hints)
	}
	return doc
}

// SetLimitFilter sets limit and offset. A value that is not strictly
// positive removes the corresponding entry.
func (r *Request) SetLimitFilter(limit, offset int64) {
	r.filter.limit = max(limit, 0)
	r.filter.offset = max(offset, 0)
}

// ResetLimitFilter removes limit and offset.
func (r *Request) ResetLimitFilter() {
	r.filter.limit = 0
	r.filter.offset = 0
}

// AddHintFilter adds hints. Unknown tokens fail with UnknownToken and
// nothing is added; duplicates are ignored.
func (r *Request) AddHintFilter(tokens ...string) error {
	parsed := make([]Hint, 0, len(tokens))
	for _, tok := range tokens {
		h, err := ParseHint(tok)
		if err != nil {
			return err
		}
		parsed = append(parsed, h)
	}
	for _, h := range parsed {
		if !r.filter.HasHint(h) {
			r.filter.hints = append(r.filter.hints, h)
		}
	}
	return nil
}

// ResetHintFilter removes every hint.
func (r *Request) ResetHintFilter() {
	r.filter.hints = nil
}

// AddOrderByAscFilter adds ascending sort keys.
func (r *Request) AddOrderByAscFilter(fields ...string) error {
	return r.addOrderBy(Asc, fields)
}

// AddOrderByDescFilter adds descending sort keys.
func (r *Request) AddOrderByDescFilter(fields ...string) error {
	return r.addOrderBy(Desc, fields)
}

func (r *Request) addOrderBy(dir Direction, fields []string) error {
	for _, f := range fields {
		if strings.TrimSpace(f) == "" {
			return dslerr.New(dslerr.CodeInvalidConstruction, "%s: field name must not be empty", KeyOrderBy)
		}
	}
	for _, f := range fields {
		i := slices.IndexFunc(r.filter.orderBy, func(e OrderEntry) bool { return e.Field == f })
		if i >= 0 {
			r.filter.orderBy[i].Direction = dir
			continue
		}
		r.filter.orderBy = append(r.filter.orderBy, OrderEntry{Field: f, Direction: dir})
	}
	return nil
}

// ResetOrderByFilter removes every sort key.
func (r *Request) ResetOrderByFilter() {
	r.filter.orderBy = nil
}
