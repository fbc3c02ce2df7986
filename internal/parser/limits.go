package parser

import (
	"github.com/roach88/archq/internal/dslerr"
	"github.com/roach88/archq/internal/query"
	"github.com/roach88/archq/internal/request"
)

// Limits bounds what a single payload may contain.
type Limits struct {
	// MaxRequestBytes is the largest accepted payload.
	MaxRequestBytes int

	// MaxNestingDepth is the deepest accepted {/[ nesting, counted
	// outside string literals.
	MaxNestingDepth int

	// MaxHops is the largest accepted $query array.
	MaxHops int

	// MaxDepthWindow bounds $depth in either direction.
	MaxDepthWindow int
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{
		MaxRequestBytes: 1 << 20,
		MaxNestingDepth: 100,
		MaxHops:         request.DefaultMaxHops,
		MaxDepthWindow:  query.MaxRelativeDepth,
	}
}

// withDefaults fills zero fields from DefaultLimits.
func (l Limits) withDefaults() Limits {
	def := DefaultLimits()
	if l.MaxRequestBytes <= 0 {
		l.MaxRequestBytes = def.MaxRequestBytes
	}
	if l.MaxNestingDepth <= 0 {
		l.MaxNestingDepth = def.MaxNestingDepth
	}
	if l.MaxHops <= 0 {
		l.MaxHops = def.MaxHops
	}
	if l.MaxDepthWindow <= 0 || l.MaxDepthWindow > query.MaxRelativeDepth {
		l.MaxDepthWindow = def.MaxDepthWindow
	}
	return l
}

// guard rejects oversized payloads before anything is decoded.
func guard(payload []byte, l Limits) error {
	if len(payload) > l.MaxRequestBytes {
		return dslerr.New(dslerr.CodeRequestTooLarge,
			"payload is %d bytes, limit is %d", len(payload), l.MaxRequestBytes)
	}
	if depth := nestingDepth(payload, l.MaxNestingDepth); depth > l.MaxNestingDepth {
		return dslerr.New(dslerr.CodeRequestTooLarge,
			"payload nests deeper than %d levels", l.MaxNestingDepth)
	}
	return nil
}

// nestingDepth returns the maximum {/[ nesting in data, ignoring brackets
// inside single- or double-quoted strings. Scanning stops once the depth
// passes stop.
func nestingDepth(data []byte, stop int) int {
	var (
		depth, deepest int
		quote          byte
		escaped        bool
	)
	for _, c := range data {
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '{', '[':
			depth++
			if depth > deepest {
				deepest = depth
				if deepest > stop {
					return deepest
				}
			}
		case '}', ']':
			if depth > 0 {
				depth--
			}
		}
	}
	return deepest
}
