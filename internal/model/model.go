// Package model names the archival metadata collections a request targets.
package model

import (
	"fmt"
	"strings"
)

// Model selects the metadata collection a request is evaluated against.
type Model int

const (
	// Unit is the archive unit collection (the hierarchy nodes).
	Unit Model = iota
	// ObjectGroup is the collection of object groups attached to units.
	ObjectGroup
	// Object is the collection of binary object descriptions.
	Object
)

// All returns every model in declaration order.
func All() []Model {
	return []Model{Unit, ObjectGroup, Object}
}

// String returns the wire name (UNIT, OBJECT_GROUP, OBJECT).
func (m Model) String() string {
	switch m {
	case Unit:
		return "UNIT"
	case ObjectGroup:
		return "OBJECT_GROUP"
	case Object:
		return "OBJECT"
	default:
		return fmt.Sprintf("Model(%d)", int(m))
	}
}

// Collection returns the storage collection name for the model.
func (m Model) Collection() string {
	switch m {
	case Unit:
		return "units"
	case ObjectGroup:
		return "objectgroups"
	case Object:
		return "objects"
	default:
		return ""
	}
}

// Key returns the lowercase key used in configuration and field tables.
func (m Model) Key() string {
	switch m {
	case Unit:
		return "unit"
	case ObjectGroup:
		return "objectgroup"
	case Object:
		return "object"
	default:
		return ""
	}
}

// Parse accepts the wire name, the key or the collection name, case-insensitively.
func Parse(s string) (Model, error) {
	norm := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", ""))
	for _, m := range All() {
		if norm == m.Key() || norm == m.Collection() || norm == strings.ToLower(strings.ReplaceAll(m.String(), "_", "")) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown model %q (want unit, objectgroup or object)", s)
}
