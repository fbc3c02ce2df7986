package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/archq/internal/engine"
	"github.com/roach88/archq/internal/explain"
	"github.com/roach88/archq/internal/model"
	"github.com/roach88/archq/internal/parser"
	"github.com/roach88/archq/internal/store"
)

func newSession(t *testing.T, withEngine bool) (*shellSession, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	sess := &shellSession{
		out:     buf,
		model:   model.Unit,
		backend: explain.Auto,
		limits:  parser.DefaultLimits(),
	}
	if !withEngine {
		return sess, buf
	}

	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	records, err := LoadRecords(writeFile(t, t.TempDir(), "records.yaml", treeRecords))
	require.NoError(t, err)
	for _, m := range model.All() {
		_, err := st.InsertAll(context.Background(), m, records[m])
		require.NoError(t, err)
	}

	eng, err := engine.New(st,
		engine.WithPageSize(2),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, err)
	sess.engine = eng
	return sess, buf
}

func TestShellCompilesWithoutDatabase(t *testing.T) {
	sess, buf := newSession(t, false)
	ctx := context.Background()

	assert.False(t, sess.eval(ctx, `{$query: [{$match: {Title: war}}]}`))
	assert.Contains(t, buf.String(), `"backend": "search"`)

	buf.Reset()
	assert.False(t, sess.eval(ctx, ".backend docstore"))
	assert.Equal(t, "backend: docstore\n", buf.String())

	buf.Reset()
	sess.eval(ctx, `{$query: [{$match: {Title: war}}]}`)
	assert.Contains(t, buf.String(), "[UNSUPPORTED_BY_BACKEND]")
}

func TestShellCommands(t *testing.T) {
	sess, buf := newSession(t, false)
	ctx := context.Background()

	assert.Equal(t, "unit> ", sess.prompt())
	assert.False(t, sess.eval(ctx, ".model object"))
	assert.Equal(t, "object> ", sess.prompt())

	buf.Reset()
	sess.eval(ctx, ".model folder")
	assert.Contains(t, buf.String(), "Error")
	assert.Equal(t, model.Object, sess.model)

	buf.Reset()
	sess.eval(ctx, ".backend solr")
	assert.Contains(t, buf.String(), "Error")

	buf.Reset()
	sess.eval(ctx, ".help")
	assert.Contains(t, buf.String(), ".next [n]")

	buf.Reset()
	sess.eval(ctx, ".nope")
	assert.Contains(t, buf.String(), "unknown command .nope")

	buf.Reset()
	sess.eval(ctx, ".next")
	assert.Equal(t, "no open cursor\n", buf.String())

	assert.False(t, sess.eval(ctx, "   "))
	assert.True(t, sess.eval(ctx, ".quit"))
	assert.True(t, sess.eval(ctx, ".exit"))
}

func TestShellReportsRejectedPayload(t *testing.T) {
	sess, buf := newSession(t, false)

	sess.eval(context.Background(), `{"$query":[{"$exists":"#all"}]}`)
	assert.Contains(t, buf.String(), "[UNKNOWN_FIELD]")
	assert.Contains(t, buf.String(), "$query[0].$exists")
}

func TestShellRunsAndPages(t *testing.T) {
	sess, buf := newSession(t, true)
	ctx := context.Background()

	sess.eval(ctx, `{$query: [{$exists: Title}]}`)
	out := buf.String()
	assert.Contains(t, out, `"_id":"a"`)
	assert.Contains(t, out, `"_id":"a1"`)
	assert.NotContains(t, out, `"_id":"b"`)
	assert.Contains(t, out, "-- 3 more")
	require.NotEmpty(t, sess.cursor)

	buf.Reset()
	sess.eval(ctx, ".next 2")
	assert.Contains(t, buf.String(), `"_id":"a1x"`)
	assert.Contains(t, buf.String(), `"_id":"b"`)
	assert.Contains(t, buf.String(), "-- more")
	require.NotEmpty(t, sess.cursor)

	buf.Reset()
	sess.eval(ctx, ".next")
	assert.Contains(t, buf.String(), `"_id":"root"`)
	assert.NotContains(t, buf.String(), "more")
	assert.Empty(t, sess.cursor)

	buf.Reset()
	sess.eval(ctx, ".next x")
	assert.Equal(t, "no open cursor\n", buf.String())
}

func TestShellClose(t *testing.T) {
	sess, buf := newSession(t, true)
	ctx := context.Background()

	sess.eval(ctx, `{$query: [{$exists: Title}]}`)
	require.NotEmpty(t, sess.cursor)
	cursor := sess.cursor

	sess.eval(ctx, ".close")
	assert.Empty(t, sess.cursor)
	_, _, err := sess.engine.Next(cursor, 1)
	assert.Error(t, err)

	buf.Reset()
	sess.eval(ctx, ".close")
	assert.Equal(t, "no open cursor\n", buf.String())
}
