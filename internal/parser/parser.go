// Package parser turns a DSL payload into a validated request envelope.
//
// Parsing runs as a small state machine:
//
//	Initial → ParsingFilter → ParsingQuery → ParsingProjection → Complete
//
// Any state may move to Failed. The first error stops parsing; it carries
// the stage it happened in and a path into the payload such as
// "$query[0].$and[2].$eq". No partial envelope is ever returned.
//
// Field names are validated through a FieldAdapter but kept in their
// external form on the nodes, so AssembleFinal reproduces the payload.
// Translators resolve them again when emitting backend field keys.
package parser

import (
	"github.com/roach88/archq/internal/adapter"
	"github.com/roach88/archq/internal/dslerr"
	"github.com/roach88/archq/internal/ir"
	"github.com/roach88/archq/internal/model"
	"github.com/roach88/archq/internal/request"
)

// Stage is a parser state.
type Stage int

const (
	StageInitial Stage = iota
	StageFilter
	StageQuery
	StageProjection
	StageComplete
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageInitial:
		return "Initial"
	case StageFilter:
		return "ParsingFilter"
	case StageQuery:
		return "ParsingQuery"
	case StageProjection:
		return "ParsingProjection"
	case StageComplete:
		return "Complete"
	case StageFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// topLevelKeys lists every key accepted at the top of a payload.
var topLevelKeys = map[string]bool{
	request.KeyRoots:      true,
	request.KeyQuery:      true,
	request.KeyFilter:     true,
	request.KeyProjection: true,
	request.KeyData:       true,
	request.KeyUsage:      true,
}

// Parser parses payloads for one model. It holds no per-payload state and
// may be shared between goroutines.
type Parser struct {
	model  model.Model
	fields adapter.FieldAdapter
	limits Limits
}

// Option configures a Parser.
type Option func(*Parser)

// WithLimits overrides the payload limits. Zero fields keep their defaults.
func WithLimits(l Limits) Option {
	return func(p *Parser) {
		p.limits = l.withDefaults()
	}
}

// New returns a parser for m that validates field names with fields.
func New(m model.Model, fields adapter.FieldAdapter, opts ...Option) *Parser {
	p := &Parser{model: m, fields: fields, limits: DefaultLimits()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ForModel returns a parser using the built-in field table of m.
func ForModel(m model.Model, opts ...Option) (*Parser, error) {
	a, err := adapter.ForModel(m)
	if err != nil {
		return nil, err
	}
	return New(m, a, opts...), nil
}

// Limits returns the parser's effective limits.
func (p *Parser) Limits() Limits {
	return p.limits
}

// Model returns the model envelopes are built for.
func (p *Parser) Model() model.Model {
	return p.model
}

// Parse parses payload into a complete envelope.
func (p *Parser) Parse(payload []byte) (*request.Request, error) {
	s := &session{parser: p, stage: StageInitial}
	return s.run(payload)
}

// session is the state of one Parse call.
type session struct {
	parser *Parser
	stage  Stage
	req    *request.Request
}

func (s *session) run(payload []byte) (*request.Request, error) {
	limits := s.parser.limits

	if err := guard(payload, limits); err != nil {
		return nil, s.fail(err)
	}
	v, err := decode(payload, limits.MaxNestingDepth)
	if err != nil {
		return nil, s.fail(err)
	}
	top, ok := v.(*ir.Document)
	if !ok {
		return nil, s.fail(malformed("", "payload must be an object, got %s", ir.TypeName(v)))
	}
	if err := s.checkTopLevel(top); err != nil {
		return nil, s.fail(err)
	}

	s.req = request.New(s.parser.model, request.WithMaxHops(limits.MaxHops))
	if roots, ok := top.Get(request.KeyRoots); ok {
		if err := s.parseRoots(roots); err != nil {
			return nil, s.fail(err)
		}
	}

	s.stage = StageFilter
	if f, ok := top.Get(request.KeyFilter); ok {
		if err := s.parseFilter(f); err != nil {
			return nil, s.fail(err)
		}
	}

	s.stage = StageQuery
	if q, ok := top.Get(request.KeyQuery); ok {
		if err := s.parseQuery(q); err != nil {
			return nil, s.fail(err)
		}
	}

	s.stage = StageProjection
	if err := s.parseProjection(top); err != nil {
		return nil, s.fail(err)
	}

	s.stage = StageComplete
	return s.req, nil
}

// fail tags err with the current stage and moves the session to Failed.
func (s *session) fail(err error) error {
	stage := s.stage
	s.stage = StageFailed
	s.req = nil
	if de := dslerr.As(err); de != nil {
		return de.InStage(stage.String())
	}
	return dslerr.Wrap(dslerr.CodeMalformedQuery, err, "invalid payload").InStage(stage.String())
}

func (s *session) checkTopLevel(top *ir.Document) error {
	for _, key := range top.Keys() {
		if !topLevelKeys[key] {
			return dslerr.New(dslerr.CodeUnknownToken, "unknown top-level key %q", key).At(key)
		}
	}
	if top.Has(request.KeyProjection) && top.Has(request.KeyData) {
		return malformed("", "%s and %s are mutually exclusive", request.KeyProjection, request.KeyData)
	}
	return nil
}

func (s *session) parseRoots(v ir.Value) error {
	ids, err := stringList(v, request.KeyRoots)
	if err != nil {
		return err
	}
	if err := s.req.AddRoots(ids...); err != nil {
		return relabel(err, request.KeyRoots)
	}
	return nil
}

func (s *session) parseQuery(v ir.Value) error {
	var hops ir.Array
	switch q := v.(type) {
	case ir.Array:
		hops = q
	case *ir.Document:
		hops = ir.Array{q}
	default:
		return malformed(request.KeyQuery, "must be an object or an array, got %s", ir.TypeName(v))
	}

	if limit := s.parser.limits.MaxHops; len(hops) > limit {
		return dslerr.New(dslerr.CodeRequestTooLarge,
			"%d hops exceed the maximum of %d", len(hops), limit).At(request.KeyQuery)
	}

	ep := exprParser{fields: s.parser.fields, maxDepth: s.parser.limits.MaxDepthWindow}
	for i, hop := range hops {
		node, err := ep.parse(hop, index(request.KeyQuery, i))
		if err != nil {
			return err
		}
		if err := s.req.AddQueries(node); err != nil {
			return relabel(err, index(request.KeyQuery, i))
		}
	}
	return nil
}
