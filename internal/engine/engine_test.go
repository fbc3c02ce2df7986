package engine

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/archq/internal/config"
	"github.com/roach88/archq/internal/cursor"
	"github.com/roach88/archq/internal/dslerr"
	"github.com/roach88/archq/internal/ir"
	"github.com/roach88/archq/internal/model"
	"github.com/roach88/archq/internal/parser"
	"github.com/roach88/archq/internal/request"
	"github.com/roach88/archq/internal/store"
	"github.com/roach88/archq/internal/testutil"
)

// The tree:
//
//	root
//	├── a (N 3) ── a2 (N 1)
//	│    └─────┐
//	└── b (N 7) a1 (N 5) ── a1x (N 9)
var tree = []string{
	`{"_id":"root","Title":"Fonds"}`,
	`{"_id":"a","_up":["root"],"Title":"Series A","N":3}`,
	`{"_id":"b","_up":["root"],"Title":"Series B","N":7}`,
	`{"_id":"a1","_up":["a","b"],"Title":"File","N":5}`,
	`{"_id":"a2","_up":["a"],"Title":"Other file","N":1}`,
	`{"_id":"a1x","_up":["a1"],"Title":"Item","N":9}`,
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "archq.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	docs := make([]*ir.Document, len(tree))
	for i, raw := range tree {
		v, err := ir.DecodeJSON([]byte(raw))
		require.NoError(t, err)
		docs[i] = v.(*ir.Document)
	}
	_, err = s.InsertAll(context.Background(), model.Unit, docs)
	require.NoError(t, err)
	return s
}

type fixture struct {
	engine  *Engine
	clock   *testutil.ManualClock
	cursors *cursor.Store[store.Record]
}

func newFixture(t *testing.T, opts ...Option) fixture {
	t.Helper()
	clock := testutil.NewManualClock()
	cursors := cursor.New[store.Record](time.Minute,
		cursor.WithClock(clock), cursor.WithIDGenerator(testutil.NewSequentialIDs("")))
	e, err := New(newTestStore(t), append([]Option{WithCursorStore(cursors)}, opts...)...)
	require.NoError(t, err)
	return fixture{engine: e, clock: clock, cursors: cursors}
}

func parse(t *testing.T, payload string) *request.Request {
	t.Helper()
	p, err := parser.ForModel(model.Unit)
	require.NoError(t, err)
	req, err := p.Parse([]byte(payload))
	require.NoError(t, err)
	return req
}

func ids(records []store.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestExecuteHops(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name    string
		payload string
		want    []string
	}{
		{
			"single hop",
			`{"$query":[{"$gte":{"N":5}}]}`,
			[]string{"a1", "a1x", "b"},
		},
		{
			"roots restrict the first hop",
			`{"$roots":["a","b"],"$query":[{"$gte":{"N":5}}]}`,
			[]string{"b"},
		},
		{
			"roots with a window scope the first hop",
			`{"$roots":["root"],"$query":[{"$exists":"Title","$depth":1}]}`,
			[]string{"a", "b"},
		},
		{
			"roots with window 0 keep the roots",
			`{"$roots":["a","b"],"$query":[{"$exists":"N","$depth":0}]}`,
			[]string{"a", "b"},
		},
		{
			"roots with a negative window",
			`{"$roots":["a1"],"$query":[{"$exists":"Title","$depth":-1}]}`,
			[]string{"a", "b"},
		},
		{
			"descendants without a window",
			`{"$query":[{"$eq":{"#id":"a"}},{"$exists":"Title"}]}`,
			[]string{"a1", "a1x", "a2"},
		},
		{
			"window 0 keeps the roots",
			`{"$query":[{"$eq":{"#id":"a"}},{"$exists":"Title","$depth":0}]}`,
			[]string{"a"},
		},
		{
			"window 1 is direct children",
			`{"$query":[{"$eq":{"#id":"a"}},{"$exists":"Title","$depth":1}]}`,
			[]string{"a1", "a2"},
		},
		{
			"window 2 bounds the distance",
			`{"$query":[{"$eq":{"#id":"root"}},{"$exists":"Title","$depth":2}]}`,
			[]string{"a", "a1", "a2", "b"},
		},
		{
			"negative window walks to the parents",
			`{"$query":[{"$eq":{"#id":"a1"}},{"$exists":"Title","$depth":-1}]}`,
			[]string{"a", "b"},
		},
		{
			"negative window of two levels",
			`{"$query":[{"$eq":{"#id":"a1x"}},{"$exists":"Title","$depth":-2}]}`,
			[]string{"a", "a1", "b"},
		},
		{
			"three hops",
			`{"$query":[{"$eq":{"#id":"root"}},{"$lt":{"N":5},"$depth":1},{"$exists":"N"}]}`,
			[]string{"a1", "a1x", "a2"},
		},
		{
			"nothing matches the first hop",
			`{"$query":[{"$eq":{"#id":"zz"}},{"$exists":"Title"}]}`,
			[]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.engine.Execute(context.Background(), parse(t, tt.payload))
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(res.Records))
			assert.Empty(t, res.Cursor)
		})
	}
}

func TestExecuteAppliesFilterAndProjection(t *testing.T) {
	f := newFixture(t)
	res, err := f.engine.Execute(context.Background(), parse(t,
		`{"$query":[{"$exists":"N"}],"$filter":{"$orderby":{"N":-1},"$limit":2,"$offset":1},"$projection":{"$fields":{"#id":1,"Title":1}}}`))
	require.NoError(t, err)
	require.Equal(t, []string{"b", "a1"}, ids(res.Records))

	data, err := ir.MarshalCanonical(res.Records[0].Doc)
	require.NoError(t, err)
	assert.Equal(t, `{"Title":"Series B","_id":"b"}`, string(data))
}

func TestExecutePagesThroughCursor(t *testing.T) {
	f := newFixture(t, WithPageSize(4))
	ctx := context.Background()

	res, err := f.engine.Execute(ctx, parse(t, `{"$query":[{"$exists":"Title"}]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a1", "a1x", "a2"}, ids(res.Records))
	assert.Equal(t, "cursor-1", res.Cursor)
	assert.Equal(t, 2, res.Remaining)

	page, more, err := f.engine.Next(res.Cursor, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "root"}, ids(page))
	assert.False(t, more)

	_, _, err = f.engine.Next(res.Cursor, 0)
	assert.ErrorIs(t, err, cursor.ErrNotFound)
}

func TestNoTimeoutPinsCursor(t *testing.T) {
	f := newFixture(t, WithPageSize(1))
	ctx := context.Background()

	plain, err := f.engine.Execute(ctx, parse(t, `{"$query":[{"$exists":"Title"}]}`))
	require.NoError(t, err)
	pinned, err := f.engine.Execute(ctx, parse(t, `{"$query":[{"$exists":"Title"}],"$filter":{"$hint":["notimeout"]}}`))
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	assert.Equal(t, 1, f.cursors.Sweep())

	_, _, err = f.engine.Next(plain.Cursor, 1)
	assert.ErrorIs(t, err, cursor.ErrNotFound)
	page, more, err := f.engine.Next(pinned.Cursor, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1"}, ids(page))
	assert.True(t, more)

	require.NoError(t, f.engine.Close(pinned.Cursor))
	assert.Zero(t, f.cursors.Len())
}

func TestIntermediateResultCap(t *testing.T) {
	f := newFixture(t, WithMaxIntermediateResults(2))
	ctx := context.Background()

	_, err := f.engine.Execute(ctx, parse(t, `{"$query":[{"$exists":"N"},{"$exists":"Title"}]}`))
	require.Error(t, err)
	assert.True(t, IsCapError(err))
	assert.True(t, IsCapExceededError(err))

	// The last hop is not capped.
	res, err := f.engine.Execute(ctx, parse(t, `{"$query":[{"$exists":"N"}]}`))
	require.NoError(t, err)
	assert.Len(t, res.Records, 5)
}

func TestExecuteRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Execute(ctx, parse(t, `{"$query":[{"$match":{"Title":"series"}}]}`))
	assert.ErrorIs(t, err, dslerr.ErrUnsupportedByBackend)

	_, err = f.engine.Execute(ctx, parse(t, `{"$roots":["a"]}`))
	assert.ErrorIs(t, err, dslerr.ErrMalformedQuery)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = f.engine.Execute(cancelled, parse(t, `{"$query":[{"$exists":"N"}]}`))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPlanCacheAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	f := newFixture(t, WithRegisterer(reg), WithCacheSize(4))
	ctx := context.Background()

	cached := `{"$query":[{"$exists":"N"}],"$filter":{"$hint":["cache"]}}`
	for range 3 {
		_, err := f.engine.Execute(ctx, parse(t, cached))
		require.NoError(t, err)
	}
	res, err := f.engine.Execute(ctx, parse(t, `{"$query":[{"$exists":"N"}],"$filter":{"$hint":["cache","nocache"]}}`))
	require.NoError(t, err)
	assert.Equal(t, int64(4), res.Seq)
	_, err = f.engine.Execute(ctx, parse(t, `{"$query":[{"$match":{"Title":"x"}}]}`))
	require.Error(t, err)

	m := f.engine.metrics
	assert.Equal(t, 1.0, promtest.ToFloat64(m.planCache.WithLabelValues(cacheMiss)))
	assert.Equal(t, 2.0, promtest.ToFloat64(m.planCache.WithLabelValues(cacheHit)))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.planCache.WithLabelValues(cacheBypass)))
	assert.Equal(t, 4.0, promtest.ToFloat64(m.executions.WithLabelValues("docstore", "ok")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.executions.WithLabelValues("search", "error")))
	assert.Equal(t, 4.0, promtest.ToFloat64(m.hops))
	assert.Equal(t, 1, f.engine.plans.Len())

	n, err := promtest.GatherAndCount(reg, "archq_engine_executions_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestPlanKeyIgnoresKeyOrder(t *testing.T) {
	a, err := planKey(parse(t, `{"$query":[{"$eq":{"Title":"x"}}],"$filter":{"$limit":1,"$offset":2}}`))
	require.NoError(t, err)
	b, err := planKey(parse(t, `{"$filter":{"$offset":2,"$limit":1},"$query":[{"$eq":{"Title":"x"}}]}`))
	require.NoError(t, err)
	c, err := planKey(parse(t, `{"$query":[{"$eq":{"Title":"y"}}]}`))
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestWithConfig(t *testing.T) {
	cfg := config.Default().Engine
	cfg.PageSize = 3
	cfg.MaxIntermediateResults = 7
	cfg.CursorTTL = time.Second

	e, err := New(newTestStore(t), WithConfig(cfg))
	require.NoError(t, err)
	assert.Equal(t, 3, e.pageSize)
	assert.Equal(t, 7, e.cap.Limit())
	assert.Equal(t, time.Second, e.cursors.TTL())
	assert.Equal(t, cfg.CacheSize, e.cacheSize)
}
