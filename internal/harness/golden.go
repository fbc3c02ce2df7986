package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/archq/internal/ir"
)

// Snapshot renders everything a run produced as one document:
// the model, the normalized payload, the compiled request, the executed
// results and the failure. Absent stages are omitted.
func (r *Result) Snapshot(name string) *ir.Document {
	doc := ir.NewDocument()
	doc.Set("name", ir.String(name))
	doc.Set("model", ir.String(r.Model.Key()))
	if r.Normalized != nil {
		doc.Set("normalized", r.Normalized)
	}
	if r.Compiled != nil {
		doc.Set("compiled", r.Compiled)
	}
	if r.Executed && !r.Failed() {
		ids := make(ir.Array, len(r.Results))
		for i, id := range r.Results {
			ids[i] = ir.String(id)
		}
		doc.Set("results", ids)
	}
	if r.Failed() {
		e := ir.D(ir.P("code", ir.String(r.ErrorCode)))
		if r.ErrorPath != "" {
			e.Set("path", ir.String(r.ErrorPath))
		}
		if r.ErrorStage != "" {
			e.Set("stage", ir.String(r.ErrorStage))
		}
		doc.Set("error", e)
	}
	return doc
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if the scenario cannot run. A snapshot mismatch fails t
// through goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result's snapshot against the golden
// file for name, without re-running.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := ir.MarshalCanonical(result.Snapshot(name))
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
