// Package adapter translates external DSL field names into the internal
// names the storage backends use.
//
// Reserved fields are written with a leading '#' ("#id", "#unitups") and
// map to internal '_' names ("_id", "_up"). Every other name resolves to
// itself. Internal names can never be addressed directly.
//
// The per-model tables are declared in fields.cue, decoded once on first
// use and shared read-only afterwards.
package adapter

import (
	_ "embed"
	"fmt"
	"slices"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/archq/internal/dslerr"
	"github.com/roach88/archq/internal/model"
)

// AllFields is the projection token that selects every field.
const AllFields = "#all"

// FieldAdapter resolves external field names for one model.
type FieldAdapter interface {
	// Resolve returns the internal name for an external field name, or an
	// UnknownField error.
	Resolve(name string) (string, error)

	// IsReservedField reports whether name is a reserved '#' token of the model.
	IsReservedField(name string) bool
}

// Hierarchy names the internal keys describing a document's tree position.
type Hierarchy struct {
	// Parent holds the direct parents' identifiers.
	Parent string `json:"parent"`
	// Ancestors holds every ancestor identifier. Empty if not tracked.
	Ancestors string `json:"ancestors,omitempty"`
	// Distances maps ancestor identifier to distance. Empty if not tracked.
	Distances string `json:"distances,omitempty"`
}

type modelTable struct {
	Reserved  map[string]string `json:"reserved"`
	Hierarchy Hierarchy         `json:"hierarchy"`
}

//go:embed fields.cue
var fieldsCUE string

var (
	loadOnce sync.Once
	tables   map[string]modelTable
	loadErr  error
)

// loadTables compiles and validates fields.cue exactly once.
func loadTables() (map[string]modelTable, error) {
	loadOnce.Do(func() {
		ctx := cuecontext.New()
		v := ctx.CompileString(fieldsCUE, cue.Filename("fields.cue"))
		if err := v.Err(); err != nil {
			loadErr = fmt.Errorf("compile field tables: %w", err)
			return
		}
		if err := v.Validate(cue.Concrete(true)); err != nil {
			loadErr = fmt.Errorf("validate field tables: %w", err)
			return
		}
		var decoded map[string]modelTable
		if err := v.LookupPath(cue.ParsePath("models")).Decode(&decoded); err != nil {
			loadErr = fmt.Errorf("decode field tables: %w", err)
			return
		}
		tables = decoded
	})
	return tables, loadErr
}

// VarNameAdapter is the table-driven FieldAdapter for one model.
// It is immutable and safe for concurrent use.
type VarNameAdapter struct {
	model     model.Model
	reserved  map[string]string
	hierarchy Hierarchy
}

// ForModel returns the adapter of m.
func ForModel(m model.Model) (*VarNameAdapter, error) {
	all, err := loadTables()
	if err != nil {
		return nil, err
	}
	table, ok := all[m.Key()]
	if !ok {
		return nil, fmt.Errorf("no field table for model %s", m)
	}
	return &VarNameAdapter{model: m, reserved: table.Reserved, hierarchy: table.Hierarchy}, nil
}

// MustForModel is like ForModel but panics on error.
// The tables are embedded, so an error here is a build defect.
func MustForModel(m model.Model) *VarNameAdapter {
	a, err := ForModel(m)
	if err != nil {
		panic(err)
	}
	return a
}

// Model returns the model the adapter serves.
func (a *VarNameAdapter) Model() model.Model {
	return a.model
}

// Hierarchy returns the model's hierarchy keys.
func (a *VarNameAdapter) Hierarchy() Hierarchy {
	return a.hierarchy
}

// IDField returns the internal identifier key.
func (a *VarNameAdapter) IDField() string {
	return a.reserved["#id"]
}

// ReservedFields lists the model's reserved tokens, sorted.
func (a *VarNameAdapter) ReservedFields() []string {
	names := make([]string, 0, len(a.reserved))
	for name := range a.reserved {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsReservedField implements FieldAdapter.
func (a *VarNameAdapter) IsReservedField(name string) bool {
	if name == AllFields {
		return true
	}
	_, ok := a.reserved[name]
	return ok
}

// Resolve implements FieldAdapter.
//
// Rules:
//   - "#name" must be a reserved token of the model
//   - "#name.sub" resolves the reserved prefix and keeps the rest
//   - names starting with '_' or containing a '$' segment are internal
//   - dotted names must not have empty segments
func (a *VarNameAdapter) Resolve(name string) (string, error) {
	if name == "" {
		return "", unknown(name, "field name is empty")
	}
	segments := strings.Split(name, ".")
	for _, seg := range segments {
		if seg == "" {
			return "", unknown(name, "empty path segment")
		}
		if strings.HasPrefix(seg, "$") {
			return "", unknown(name, "'$' is reserved for operators")
		}
	}

	head := segments[0]
	switch {
	case head == AllFields:
		return "", unknown(name, "#all is only valid in a projection")
	case strings.HasPrefix(head, "#"):
		internal, ok := a.reserved[head]
		if !ok {
			return "", unknown(name, fmt.Sprintf("not a reserved field of %s", a.model))
		}
		segments[0] = internal
		return strings.Join(segments, "."), nil
	case strings.HasPrefix(head, "_"):
		return "", unknown(name, "internal fields cannot be addressed")
	}
	return name, nil
}

// ResolveProjection is Resolve plus the AllFields token, which resolves to
// itself.
func (a *VarNameAdapter) ResolveProjection(name string) (string, error) {
	if name == AllFields {
		return AllFields, nil
	}
	return a.Resolve(name)
}

func unknown(name, reason string) error {
	return dslerr.New(dslerr.CodeUnknownField, "field %q: %s", name, reason)
}
