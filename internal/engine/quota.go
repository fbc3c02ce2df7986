package engine

import (
	"errors"
	"fmt"
)

// DefaultMaxIntermediateResults bounds the identifiers carried from one hop
// to the next when no option overrides it.
const DefaultMaxIntermediateResults = 10000

// ResultCap bounds how many identifiers an intermediate hop may produce.
//
// The cap is what keeps a scope filter of the next hop bounded: every
// carried identifier becomes one $in element or one $or clause.
type ResultCap struct {
	limit int
}

// NewResultCap creates a cap. A non-positive limit uses
// DefaultMaxIntermediateResults.
func NewResultCap(limit int) ResultCap {
	if limit <= 0 {
		limit = DefaultMaxIntermediateResults
	}
	return ResultCap{limit: limit}
}

// Limit returns the cap.
func (c ResultCap) Limit() int {
	return c.limit
}

// FetchLimit is the number of identifiers to ask the store for: one more
// than the cap, so an overflow is observable.
func (c ResultCap) FetchLimit() int64 {
	return int64(c.limit) + 1
}

// Check validates the number of identifiers a hop produced.
//
// Returns CapExceededError if results exceeds the cap.
func (c ResultCap) Check(seq int64, hop, results int) error {
	if results > c.limit {
		return &CapExceededError{Seq: seq, Hop: hop, Limit: c.limit}
	}
	return nil
}

// CapExceededError is returned when an intermediate hop overflows the cap.
// The execution stops; no partial result is returned.
type CapExceededError struct {
	Seq   int64 // Execution that overflowed
	Hop   int   // Hop that overflowed
	Limit int   // Maximum carried identifiers
}

// Error implements the error interface.
func (e *CapExceededError) Error() string {
	return fmt.Sprintf("execution %d: hop %d matched more than %d records", e.Seq, e.Hop, e.Limit)
}

// RuntimeError returns the error type for matching.
func (e *CapExceededError) RuntimeError() string {
	return "CapExceededError"
}

// IsCapExceededError returns true if the error is a CapExceededError.
// Uses errors.As to handle wrapped errors.
func IsCapExceededError(err error) bool {
	var ce *CapExceededError
	return errors.As(err, &ce)
}
