package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/archq/internal/parser"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, parser.DefaultLimits(), cfg.ParserLimits())
	assert.Equal(t, 100, cfg.Engine.PageSize)
	assert.Equal(t, 5*time.Minute, cfg.Engine.CursorTTL)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archq.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
limits:
  max_hops: 4
engine:
  page_size: 20
  cursor_ttl: 30s
`), 0o600))

	t.Setenv("ARCHQ_ENGINE_PAGE_SIZE", "7")
	t.Setenv("ARCHQ_LIMITS_MAX_NESTING_DEPTH", "12")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Limits.MaxHops, "from file")
	assert.Equal(t, 30*time.Second, cfg.Engine.CursorTTL, "duration from file")
	assert.Equal(t, 7, cfg.Engine.PageSize, "env wins over file")
	assert.Equal(t, 12, cfg.Limits.MaxNestingDepth, "env over default")
	assert.Equal(t, 256, cfg.Engine.CacheSize, "default")
}

func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archq.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"engine":{"cache_size":9}}`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Engine.CacheSize)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	t.Setenv("ARCHQ_ENGINE_PAGE_SIZE", "0")
	_, err = Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "engine.page_size")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Limits.MaxHops = -1
	cfg.Engine.CursorTTL = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "limits.max_hops")
	assert.Contains(t, err.Error(), "engine.cursor_ttl")
}
