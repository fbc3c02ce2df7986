package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/archq/internal/dslerr"
	"github.com/roach88/archq/internal/engine"
	"github.com/roach88/archq/internal/explain"
	"github.com/roach88/archq/internal/ir"
	"github.com/roach88/archq/internal/model"
	"github.com/roach88/archq/internal/parser"
	"github.com/roach88/archq/internal/request"
	"github.com/roach88/archq/internal/store"
	"github.com/roach88/archq/internal/translate"
)

// Harness runs scenarios. Every execution uses a fresh in-memory store,
// so scenarios never see each other's records.
type Harness struct {
	logger *slog.Logger
	limits parser.Limits
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger routes engine logs to l. Logs are discarded by default.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// WithLimits sets the parser limits scenarios run with.
func WithLimits(l parser.Limits) Option {
	return func(h *Harness) {
		h.limits = l
	}
}

// New creates a Harness.
func New(opts ...Option) *Harness {
	h := &Harness{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		limits: parser.DefaultLimits(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a scenario with the default harness.
func Run(scenario *Scenario) (*Result, error) {
	return New().Run(context.Background(), scenario)
}

// Run executes a scenario and returns the result.
//
// Payload failures are outcomes, not errors: they are recorded on the
// result and compared with the expect block. The returned error reports
// a scenario that could not run at all, such as unloadable records.
//
// Execution flow:
//  1. Parse the payload for the scenario's model
//  2. Compile it for the selected backend
//  3. If records are given, load them and execute with the engine
//  4. Compare the outcome with the expect block
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	m, _ := scenario.model()
	backend, _ := scenario.backend()
	result := NewResult(m)

	req, err := h.parse(m, scenario.Payload)
	if err == nil {
		err = h.compile(req, backend, result)
	}
	if err == nil && len(scenario.Records) > 0 {
		err = h.execute(ctx, scenario, req, result)
	}
	if err != nil {
		if !recordFailure(result, err) {
			return nil, err
		}
	}

	checkExpect(scenario.Expect, result)
	return result, nil
}

func (h *Harness) parse(m model.Model, payload string) (*request.Request, error) {
	p, err := parser.ForModel(m, parser.WithLimits(h.limits))
	if err != nil {
		return nil, err
	}
	return p.Parse([]byte(payload))
}

func (h *Harness) compile(req *request.Request, backend translate.Backend, result *Result) error {
	normalized, err := req.AssembleFinal()
	if err != nil {
		return err
	}
	result.Normalized = normalized
	result.Backend = explain.Resolve(req, backend)
	result.FullText = translate.HasFullTextQuery(req)
	result.Hops = req.NumHops()

	compiled, err := explain.Request(req, backend)
	if err != nil {
		return err
	}
	result.Compiled = compiled
	return nil
}

func (h *Harness) execute(ctx context.Context, scenario *Scenario, req *request.Request, result *Result) error {
	st, err := store.Open(":memory:")
	if err != nil {
		return fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	if err := loadRecords(ctx, st, scenario.Records); err != nil {
		return err
	}

	eng, err := engine.New(st, engine.WithLogger(h.logger))
	if err != nil {
		return err
	}
	result.Executed = true
	res, err := eng.Execute(ctx, req)
	if err != nil {
		return err
	}

	records := res.Records
	for more := res.Cursor != ""; more; {
		var page []store.Record
		page, more, err = eng.Next(res.Cursor, 0)
		if err != nil {
			return err
		}
		records = append(records, page...)
	}
	result.Results = make([]string, len(records))
	for i, r := range records {
		result.Results[i] = r.ID
	}
	return nil
}

// loadRecords inserts records parents first.
func loadRecords(ctx context.Context, st *store.Store, records map[string][]map[string]any) error {
	byModel := map[model.Model][]map[string]any{}
	for key, docs := range records {
		m, err := model.Parse(key)
		if err != nil {
			return err
		}
		byModel[m] = append(byModel[m], docs...)
	}

	for _, m := range model.All() {
		docs := make([]*ir.Document, 0, len(byModel[m]))
		for i, raw := range byModel[m] {
			doc, err := toDocument(raw)
			if err != nil {
				return fmt.Errorf("records.%s[%d]: %w", m.Key(), i, err)
			}
			docs = append(docs, doc)
		}
		if len(docs) == 0 {
			continue
		}
		if _, err := st.InsertAll(ctx, m, docs); err != nil {
			return fmt.Errorf("records.%s: %w", m.Key(), err)
		}
	}
	return nil
}

// toDocument converts a YAML-decoded record through JSON, which keeps
// integers as ir.Int.
func toDocument(raw map[string]any) (*ir.Document, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	v, err := ir.DecodeJSON(data)
	if err != nil {
		return nil, err
	}
	doc, ok := v.(*ir.Document)
	if !ok {
		return nil, fmt.Errorf("record is %s, not an object", ir.TypeName(v))
	}
	return doc, nil
}

// recordFailure stores a payload failure on result. It reports false for
// errors that are not payload outcomes.
func recordFailure(result *Result, err error) bool {
	if de := dslerr.As(err); de != nil {
		result.ErrorCode = string(de.Code)
		result.ErrorPath = de.Path
		result.ErrorStage = de.Stage
		return true
	}
	var re *engine.RuntimeError
	if errors.As(err, &re) && result.Executed {
		result.ErrorCode = string(re.Code)
		return true
	}
	return false
}
