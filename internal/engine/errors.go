package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents a failure detected while executing a request,
// after it compiled successfully.
//
// Runtime errors include:
//   - Result cap exceeded: an intermediate hop matched too many records
//   - Store failure: the reference store rejected a query
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Seq identifies the execution.
	Seq int64

	// Hop is the hop being executed.
	Hop int

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeResultCapExceeded indicates an intermediate hop matched more
	// records than the engine carries between hops.
	ErrCodeResultCapExceeded RuntimeErrorCode = "RESULT_CAP_EXCEEDED"

	// ErrCodeStoreFailure indicates the store failed to run a hop.
	ErrCodeStoreFailure RuntimeErrorCode = "STORE_FAILURE"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s (seq=%d, hop=%d)", e.Code, e.Message, e.Seq, e.Hop)
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsCapError returns true if the error reports an exceeded result cap.
// Matches both RuntimeError with ErrCodeResultCapExceeded and
// CapExceededError.
func IsCapError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) && re.Code == ErrCodeResultCapExceeded {
		return true
	}
	var ce *CapExceededError
	return errors.As(err, &ce)
}

// IsStoreError returns true if the error is a store failure.
func IsStoreError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeStoreFailure
	}
	return false
}

// NewCapError creates a RuntimeError for an exceeded result cap.
func NewCapError(seq int64, hop, results, limit int) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeResultCapExceeded,
		Message: fmt.Sprintf("intermediate hop matched more than %d records", limit),
		Seq:     seq,
		Hop:     hop,
		Details: map[string]string{
			"results": fmt.Sprintf("%d", results),
			"limit":   fmt.Sprintf("%d", limit),
		},
	}
}

func newStoreError(seq int64, hop int, err error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeStoreFailure,
		Message: "store query failed",
		Seq:     seq,
		Hop:     hop,
		Err:     err,
	}
}
