package engine

import (
	"context"
	"log/slog"
	"slices"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/roach88/archq/internal/config"
	"github.com/roach88/archq/internal/cursor"
	"github.com/roach88/archq/internal/dslerr"
	"github.com/roach88/archq/internal/ir"
	"github.com/roach88/archq/internal/query"
	"github.com/roach88/archq/internal/request"
	"github.com/roach88/archq/internal/store"
	"github.com/roach88/archq/internal/translate"
	"github.com/roach88/archq/internal/translate/docstore"
)

// Defaults used when no option overrides them.
const (
	DefaultPageSize  = 100
	DefaultCacheSize = 256
)

// Engine executes requests against a store.
//
// Thread-safety model:
//   - Execute, Next and Close: safe from any goroutine
//   - Run: call from one goroutine; it returns when ctx is cancelled
type Engine struct {
	store   *store.Store
	clock   *Clock
	cursors *cursor.Store[store.Record]
	plans   *lru.Cache[string, *Plan]
	metrics *metrics
	logger  *slog.Logger

	pageSize  int
	cacheSize int
	cursorTTL time.Duration
	cap       ResultCap
	registry  prometheus.Registerer
}

// Option configures an Engine.
type Option func(*Engine)

// WithPageSize sets the number of records in a first page.
func WithPageSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.pageSize = n
		}
	}
}

// WithCacheSize sets the number of plans the cache hint may retain.
func WithCacheSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.cacheSize = n
		}
	}
}

// WithMaxIntermediateResults caps the identifiers carried between hops.
func WithMaxIntermediateResults(n int) Option {
	return func(e *Engine) {
		e.cap = NewResultCap(n)
	}
}

// WithCursorStore replaces the default cursor store. It takes precedence
// over the cursor TTL of WithConfig.
func WithCursorStore(c *cursor.Store[store.Record]) Option {
	return func(e *Engine) {
		e.cursors = c
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithRegisterer registers the engine metrics on reg. Without it the
// metrics live on a private registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(e *Engine) {
		e.registry = reg
	}
}

// WithConfig applies the engine section of a configuration.
func WithConfig(cfg config.Engine) Option {
	return func(e *Engine) {
		WithPageSize(cfg.PageSize)(e)
		WithCacheSize(cfg.CacheSize)(e)
		WithMaxIntermediateResults(cfg.MaxIntermediateResults)(e)
		e.cursorTTL = cfg.CursorTTL
	}
}

// New creates an Engine over s.
func New(s *store.Store, opts ...Option) (*Engine, error) {
	e := &Engine{
		store:     s,
		clock:     NewClock(),
		logger:    slog.Default(),
		pageSize:  DefaultPageSize,
		cacheSize: DefaultCacheSize,
		cap:       NewResultCap(DefaultMaxIntermediateResults),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.cursors == nil {
		e.cursors = cursor.New[store.Record](e.cursorTTL, cursor.WithLogger(e.logger))
	}
	if e.registry == nil {
		e.registry = prometheus.NewRegistry()
	}
	e.metrics = newMetrics(e.registry)

	plans, err := lru.New[string, *Plan](e.cacheSize)
	if err != nil {
		return nil, err
	}
	e.plans = plans
	return e, nil
}

// Result is the outcome of an execution.
type Result struct {
	// Seq identifies the execution.
	Seq int64

	// Backend is the backend the request was compiled for.
	Backend translate.Backend

	// Records is the first page of the last hop's results.
	Records []store.Record

	// Cursor identifies the remaining records. Empty when Records is
	// everything.
	Cursor string

	// Remaining counts the records behind Cursor.
	Remaining int
}

// Execute runs req and returns its first page.
//
// Full-text requests fail with an UnsupportedByBackend error; the
// reference store has no search engine.
func (e *Engine) Execute(ctx context.Context, req *request.Request) (res *Result, err error) {
	seq := e.clock.Next()
	backend := translate.SelectBackend(req)
	start := time.Now()

	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		e.metrics.executions.WithLabelValues(string(backend), status).Inc()
	}()

	if backend != translate.DocumentStore {
		return nil, dslerr.New(dslerr.CodeUnsupportedByBackend,
			"full-text queries need the %s backend, the reference store only runs %s",
			translate.SearchEngine, translate.DocumentStore)
	}
	if req.NumHops() == 0 {
		return nil, dslerr.New(dslerr.CodeMalformedQuery, "request has no hops to execute")
	}

	plan, err := e.plan(req)
	if err != nil {
		return nil, err
	}

	var ids []string
	var records []store.Record
	last := len(plan.Hops) - 1
	for i := range plan.Hops {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		filter, err := e.hopFilter(ctx, plan, i, ids)
		if err != nil {
			return nil, newStoreError(seq, i, err)
		}

		var n int
		if i == last {
			records, err = e.store.Find(ctx, plan.Model, filter, plan.Options)
			n = len(records)
		} else {
			ids, err = e.store.FindIDs(ctx, plan.Model, filter, e.cap.FetchLimit())
			n = len(ids)
		}
		if err != nil {
			return nil, newStoreError(seq, i, err)
		}

		e.metrics.hops.Inc()
		e.metrics.hopResults.Observe(float64(n))
		e.logger.Debug("hop executed", "seq", seq, "hop", i, "results", n)

		if i != last {
			if err := e.cap.Check(seq, i, n); err != nil {
				capErr := NewCapError(seq, i, n, e.cap.Limit())
				capErr.Err = err
				return nil, capErr
			}
		}
	}

	res = &Result{Seq: seq, Backend: backend, Records: records}
	if len(records) > e.pageSize {
		res.Records = records[:e.pageSize:e.pageSize]
		rest := records[e.pageSize:]
		res.Cursor = e.cursors.Open(rest, req.Filter().HasHint(request.HintNoTimeout))
		res.Remaining = len(rest)
	}

	e.logger.Info("execution complete",
		"seq", seq,
		"model", plan.Model.String(),
		"hops", len(plan.Hops),
		"results", len(records),
		"cursor", res.Cursor,
		"duration", time.Since(start))
	return res, nil
}

// Next returns up to n further records of a cursor and whether more
// remain. A non-positive n uses the page size. The cursor is released once
// drained.
func (e *Engine) Next(id string, n int) ([]store.Record, bool, error) {
	if n <= 0 {
		n = e.pageSize
	}
	return e.cursors.Next(id, n)
}

// Close releases a cursor before it drains.
func (e *Engine) Close(id string) error {
	return e.cursors.Close(id)
}

// Run evicts expired cursors every interval until ctx is cancelled. A
// non-positive interval uses the cursor TTL.
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	e.cursors.Run(ctx, interval)
}

// plan compiles req, going through the plan cache when req carries the
// cache hint. nocache wins over cache.
func (e *Engine) plan(req *request.Request) (*Plan, error) {
	f := req.Filter()
	if !f.HasHint(request.HintCache) || f.HasHint(request.HintNoCache) {
		e.metrics.planCache.WithLabelValues(cacheBypass).Inc()
		return Compile(req)
	}

	key, err := planKey(req)
	if err != nil {
		return nil, err
	}
	if p, ok := e.plans.Get(key); ok {
		e.metrics.planCache.WithLabelValues(cacheHit).Inc()
		return p, nil
	}
	e.metrics.planCache.WithLabelValues(cacheMiss).Inc()

	p, err := Compile(req)
	if err != nil {
		return nil, err
	}
	e.plans.Add(key, p)
	return p, nil
}

// hopFilter combines a hop's compiled filter with its restriction: the
// previous hop's neighbourhood, or for hop 0 the roots. A hop 0 with a
// depth window is scoped around the roots instead.
func (e *Engine) hopFilter(ctx context.Context, plan *Plan, i int, prev []string) (bson.D, error) {
	hop := plan.Hops[i]
	if i == 0 {
		if len(plan.RootIDs) == 0 || hop.Depth == nil {
			return docstore.And(plan.Roots, hop.Filter), nil
		}
		prev = plan.RootIDs
	}

	roots, window := prev, hop.Depth
	if window != nil && window.Relative < 0 {
		ancestors, err := e.ancestors(ctx, plan, prev, -window.Relative)
		if err != nil {
			return nil, err
		}
		roots, window = ancestors, &query.DepthWindow{Relative: 0}
	}

	scope, err := plan.translator.Scope(roots, window, plan.Hierarchy)
	if err != nil {
		return nil, err
	}
	return docstore.And(scope, hop.Filter), nil
}

// ancestors resolves the records at most levels above ids, read from the
// distance field. Models that track no distances only know their direct
// parents.
func (e *Engine) ancestors(ctx context.Context, plan *Plan, ids []string, levels int) ([]string, error) {
	h := plan.Hierarchy
	seen := map[string]bool{}
	for _, id := range ids {
		doc, err := e.store.Get(ctx, plan.Model, id)
		if err != nil {
			return nil, err
		}
		if h.Distances != "" {
			if d, ok := doc.MustGet(h.Distances).(*ir.Document); ok {
				for anc, dist := range d.All() {
					if n, ok := dist.(ir.Int); ok && n >= 1 && int(n) <= levels {
						seen[anc] = true
					}
				}
			}
			continue
		}
		parents, _ := doc.Get(h.Parent)
		switch p := parents.(type) {
		case ir.String:
			seen[string(p)] = true
		case ir.Array:
			for _, v := range p {
				if s, ok := v.(ir.String); ok {
					seen[string(s)] = true
				}
			}
		}
	}

	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	slices.Sort(out)
	return out, nil
}
