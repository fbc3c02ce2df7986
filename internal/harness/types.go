package harness

import (
	"github.com/roach88/archq/internal/ir"
	"github.com/roach88/archq/internal/model"
	"github.com/roach88/archq/internal/translate"
)

// Result is the outcome of a scenario run.
type Result struct {
	// Pass indicates overall success.
	// True if every expectation matches.
	Pass bool `json:"pass"`

	// Errors contains expectation failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	Model model.Model `json:"-"`

	// Normalized is the payload reassembled from the parsed envelope.
	// Nil when parsing failed.
	Normalized *ir.Document `json:"-"`

	// Compiled explains the compiled request. Nil when compilation failed.
	Compiled *ir.Document `json:"-"`

	Backend  translate.Backend `json:"backend,omitempty"`
	FullText bool              `json:"full_text"`
	Hops     int               `json:"hops"`

	// Executed is true when the scenario seeded records and ran.
	Executed bool `json:"executed"`

	// Results are the identifiers returned, every page included.
	Results []string `json:"results,omitempty"`

	// ErrorCode, ErrorPath and ErrorStage describe the failure of the
	// payload, if any.
	ErrorCode  string `json:"error_code,omitempty"`
	ErrorPath  string `json:"error_path,omitempty"`
	ErrorStage string `json:"error_stage,omitempty"`
}

// NewResult creates a new passing result.
func NewResult(m model.Model) *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
		Model:  m,
	}
}

// AddError adds an expectation failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Failed reports whether the payload failed at some stage.
func (r *Result) Failed() bool {
	return r.ErrorCode != ""
}
