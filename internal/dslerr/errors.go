// Package dslerr defines the error taxonomy shared by every stage of the
// query DSL pipeline: construction, parsing, envelope assembly and
// translation.
//
// Every failure is a *Error carrying a Code. Callers match on the code with
// errors.Is against the exported sentinels:
//
//	if errors.Is(err, dslerr.ErrUnknownField) { ... }
//
// The compiler stages never log and never retry; errors are returned to the
// caller synchronously and the API layer maps them with Code.Status.
package dslerr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code categorizes DSL errors.
type Code string

const (
	// CodeInvalidConstruction indicates a builder input violated a constraint,
	// or an unready node was used.
	CodeInvalidConstruction Code = "INVALID_CONSTRUCTION"

	// CodeUnsupportedRefinement indicates a refinement was applied to a node
	// family that does not accept it.
	CodeUnsupportedRefinement Code = "UNSUPPORTED_REFINEMENT"

	// CodeEmptyComposite indicates a composite without children was compiled
	// or nested.
	CodeEmptyComposite Code = "EMPTY_COMPOSITE"

	// CodeUnknownToken indicates an unrecognized keyword or hint.
	CodeUnknownToken Code = "UNKNOWN_TOKEN"

	// CodeUnknownField indicates a field name the adapter cannot resolve.
	CodeUnknownField Code = "UNKNOWN_FIELD"

	// CodeMalformedQuery indicates a structurally invalid payload.
	CodeMalformedQuery Code = "MALFORMED_QUERY"

	// CodeRequestTooLarge indicates a size, nesting or hop ceiling was hit.
	CodeRequestTooLarge Code = "REQUEST_TOO_LARGE"

	// CodeUnsupportedByBackend indicates the chosen backend cannot express a node.
	CodeUnsupportedByBackend Code = "UNSUPPORTED_BY_BACKEND"

	// CodeHopIndexOutOfRange indicates a hop index beyond the envelope's hops.
	CodeHopIndexOutOfRange Code = "HOP_INDEX_OUT_OF_RANGE"
)

// Codes lists every code in declaration order.
func Codes() []Code {
	return []Code{
		CodeInvalidConstruction,
		CodeUnsupportedRefinement,
		CodeEmptyComposite,
		CodeUnknownToken,
		CodeUnknownField,
		CodeMalformedQuery,
		CodeRequestTooLarge,
		CodeUnsupportedByBackend,
		CodeHopIndexOutOfRange,
	}
}

// Status returns the HTTP status an API layer should answer with.
func (c Code) Status() int {
	switch c {
	case CodeRequestTooLarge:
		return http.StatusRequestEntityTooLarge
	case CodeUnsupportedByBackend:
		return http.StatusNotImplemented
	case CodeHopIndexOutOfRange:
		return http.StatusRequestedRangeNotSatisfiable
	case CodeInvalidConstruction, CodeUnsupportedRefinement, CodeEmptyComposite,
		CodeUnknownToken, CodeUnknownField, CodeMalformedQuery:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error is the single error type of the DSL pipeline.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description naming the violated constraint.
	Message string

	// Path locates the offending element inside a payload, e.g.
	// "$query[0].$and[1].$eq". Empty for builder errors.
	Path string

	// Stage is the parser state the failure happened in. Empty outside
	// the parser.
	Stage string

	// Err is an optional underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Path != "" {
		msg = fmt.Sprintf("%s (at %s)", msg, e.Path)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a sentinel with the same code.
// Only bare sentinels (no message) match by code so that two distinct
// concrete errors are never considered equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Path == "" && t.Code == e.Code
}

// Sentinels for errors.Is matching.
var (
	ErrInvalidConstruction   = &Error{Code: CodeInvalidConstruction}
	ErrUnsupportedRefinement = &Error{Code: CodeUnsupportedRefinement}
	ErrEmptyComposite        = &Error{Code: CodeEmptyComposite}
	ErrUnknownToken          = &Error{Code: CodeUnknownToken}
	ErrUnknownField          = &Error{Code: CodeUnknownField}
	ErrMalformedQuery        = &Error{Code: CodeMalformedQuery}
	ErrRequestTooLarge       = &Error{Code: CodeRequestTooLarge}
	ErrUnsupportedByBackend  = &Error{Code: CodeUnsupportedByBackend}
	ErrHopIndexOutOfRange    = &Error{Code: CodeHopIndexOutOfRange}
)

// New creates an Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error around an underlying cause.
func Wrap(code Code, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// At returns a copy of e located at path. An existing path is kept, so the
// innermost location wins when errors bubble up through recursive descent.
func (e *Error) At(path string) *Error {
	if e.Path != "" {
		return e
	}
	cp := *e
	cp.Path = path
	return &cp
}

// InStage returns a copy of e tagged with a parser stage, unless one is set.
func (e *Error) InStage(stage string) *Error {
	if e.Stage != "" {
		return e
	}
	cp := *e
	cp.Stage = stage
	return &cp
}

// CodeOf extracts the code of a DSL error anywhere in err's chain.
func CodeOf(err error) (Code, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Code, true
	}
	return "", false
}

// As returns the first *Error in err's chain, or nil.
func As(err error) *Error {
	var de *Error
	if errors.As(err, &de) {
		return de
	}
	return nil
}
