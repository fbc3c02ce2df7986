package request

import (
	"slices"
	"strings"

	"github.com/roach88/archq/internal/dslerr"
	"github.com/roach88/archq/internal/ir"
)

// Projection section keys.
const (
	KeyFields = "$fields"
)

// allFields mirrors adapter.AllFields without importing the adapter.
const allFields = "#all"

// ProjectionEntry marks one field as included (1) or excluded (0).
type ProjectionEntry struct {
	Field   string
	Include bool
}

// Projection holds the field selection and the usage label.
// Re-marking a field overwrites its value without moving it.
type Projection struct {
	fields []ProjectionEntry
	usage  string
}

// Fields returns a copy of the entries in order.
func (p *Projection) Fields() []ProjectionEntry {
	return slices.Clone(p.fields)
}

// NumFields returns the number of distinct fields marked.
func (p *Projection) NumFields() int {
	return len(p.fields)
}

// Usage returns the usage label.
func (p *Projection) Usage() string {
	return p.usage
}

// AllFields reports whether "#all" is marked as included.
func (p *Projection) AllFields() bool {
	for _, e := range p.fields {
		if e.Field == allFields {
			return e.Include
		}
	}
	return false
}

// Included returns the included fields, excluding "#all".
func (p *Projection) Included() []string {
	return p.pick(true)
}

// Excluded returns the excluded fields.
func (p *Projection) Excluded() []string {
	return p.pick(false)
}

func (p *Projection) pick(include bool) []string {
	var out []string
	for _, e := range p.fields {
		if e.Include == include && e.Field != allFields {
			out = append(out, e.Field)
		}
	}
	return out
}

// IsEmpty reports whether the projection section would be omitted.
func (p *Projection) IsEmpty() bool {
	return len(p.fields) == 0 && p.usage == ""
}

func (p *Projection) document() *ir.Document {
	doc := ir.NewDocument()
	if len(p.fields) > 0 {
		fields := ir.NewDocument()
		for _, e := range p.fields {
			v := ir.Int(0)
			if e.Include {
				v = 1
			}
			fields.Set(e.Field, v)
		}
		doc.Set(KeyFields, fields)
	}
	if p.usage != "" {
		doc.Set(KeyUsage, ir.String(p.usage))
	}
	return doc
}

func (p *Projection) mark(include bool, fields []string) error {
	for _, f := range fields {
		if strings.TrimSpace(f) == "" {
			return dslerr.New(dslerr.CodeInvalidConstruction, "%s: field name must not be empty", KeyFields)
		}
	}
	for _, f := range fields {
		i := slices.IndexFunc(p.fields, func(e ProjectionEntry) bool { return e.Field == f })
		if i >= 0 {
			p.fields[i].Include = include
			continue
		}
		p.fields = append(p.fields, ProjectionEntry{Field: f, Include: include})
	}
	return nil
}

// AddUsedProjection marks fields as included.
func (r *Request) AddUsedProjection(fields ...string) error {
	return r.projection.mark(true, fields)
}

// AddUnusedProjection marks fields as excluded.
func (r *Request) AddUnusedProjection(fields ...string) error {
	return r.projection.mark(false, fields)
}

// ResetUsedProjection removes every field mark. The usage label is kept.
func (r *Request) ResetUsedProjection() {
	r.projection.fields = nil
}

// SetUsage sets the usage label; an empty string removes it.
func (r *Request) SetUsage(usage string) {
	r.projection.usage = usage
}
