package harness

import (
	"fmt"
	"slices"
	"strings"
)

// ExpectationError is returned when a run does not match an expectation.
type ExpectationError struct {
	Field    string // Expect field that failed
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *ExpectationError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Expectation failed: %s\n", e.Field)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// checkExpect compares r with every set field of want and records each
// mismatch on r.
func checkExpect(want Expect, r *Result) {
	for _, err := range expectationErrors(want, r) {
		r.AddError(err.Error())
	}
}

func expectationErrors(want Expect, r *Result) []error {
	var errs []error
	mismatch := func(field string, expected, actual any) {
		errs = append(errs, &ExpectationError{
			Field:    field,
			Expected: fmt.Sprint(expected),
			Actual:   fmt.Sprint(actual),
		})
	}

	switch {
	case want.Error == "" && r.Failed():
		mismatch("error", "no error", describeFailure(r))
	case want.Error != "" && want.Error != r.ErrorCode:
		mismatch("error", want.Error, describeFailure(r))
	case want.ErrorPath != "" && want.ErrorPath != r.ErrorPath:
		mismatch("error_path", want.ErrorPath, r.ErrorPath)
	}

	if want.Backend != "" && want.Backend != string(r.Backend) {
		mismatch("backend", want.Backend, r.Backend)
	}
	if want.FullText != nil && *want.FullText != r.FullText {
		mismatch("full_text", *want.FullText, r.FullText)
	}
	if want.Hops != nil && *want.Hops != r.Hops {
		mismatch("hops", *want.Hops, r.Hops)
	}
	if want.Results != nil {
		switch {
		case !r.Executed:
			mismatch("results", want.Results, "not executed")
		case !slices.Equal(want.Results, r.Results):
			mismatch("results", want.Results, r.Results)
		}
	}
	return errs
}

func describeFailure(r *Result) string {
	if !r.Failed() {
		return "no error"
	}
	if r.ErrorPath != "" {
		return fmt.Sprintf("%s at %s", r.ErrorCode, r.ErrorPath)
	}
	return r.ErrorCode
}
