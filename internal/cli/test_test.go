package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `name: window
description: A depth window compiles to two docstore hops
payload: |
  {"$roots": ["root"], "$query": [{"$eq": {"#id": "root"}}, {"$gte": {"N": 5}, "$depth": 2}]}
expect:
  backend: docstore
  full_text: false
  hops: 2
`

const failingScenario = `name: wrong_backend
description: Expects the wrong backend on purpose
payload: |
  {"$query": [{"$match": {"Title": "war"}}]}
expect:
  backend: docstore
`

const executedScenario = `name: executed
description: Runs against seeded records and checks the ordered ids
payload: |
  {"$query": [{"$gte": {"N": 5}}], "$filter": {"$orderby": {"N": 1}}}
records:
  unit:
    - {_id: root}
    - {_id: a, _up: [root], N: 3}
    - {_id: b, _up: [root], N: 7}
    - {_id: c, _up: [b], N: 5}
expect:
  results: [c, b]
`

func TestTestCommandMissingDir(t *testing.T) {
	_, err := executeRoot(t, "", "test", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")

	_, err = executeRoot(t, "", "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandEmptyDir(t *testing.T) {
	dir := t.TempDir()

	out, err := executeRoot(t, "", "test", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")

	out, err = executeRoot(t, "", "--format", "json", "test", dir)
	require.NoError(t, err)
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestTestCommandRunsScenarios(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "window.yaml", passingScenario)
	writeFile(t, dir, "executed.yml", executedScenario)

	out, err := executeRoot(t, "", "test", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ window")
	assert.Contains(t, out, "✓ executed")
	assert.Contains(t, out, "Test Summary: 2 passed, 0 failed, 2 total")
}

func TestTestCommandReportsFailures(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "window.yaml", passingScenario)
	writeFile(t, dir, "wrong_backend.yaml", failingScenario)
	writeFile(t, dir, "broken.yaml", "name: [oops\n")

	out, err := executeRoot(t, "", "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong_backend")
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "Test Summary: 1 passed, 2 failed, 3 total")

	out, err = executeRoot(t, "", "--format", "json", "test", dir)
	require.Error(t, err)
	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
	assert.Equal(t, 2, resp.Data.Failed)
	assert.Len(t, resp.Data.Scenarios, 3)
}

func TestTestCommandGoldenFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "window.yaml", passingScenario)
	golden := filepath.Join(dir, "golden", "window.golden")

	out, err := executeRoot(t, "", "test", "--update", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "golden updated")
	require.FileExists(t, golden)

	_, err = executeRoot(t, "", "test", dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(golden, []byte(`{"name":"window"}`), 0644))
	out, err = executeRoot(t, "", "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "does not match golden file")
}

func TestTestCommandFilter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "window.yaml", passingScenario)
	writeFile(t, dir, "wrong_backend.yaml", failingScenario)

	out, err := executeRoot(t, "", "test", "--filter", "win*", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")

	_, err = executeRoot(t, "", "test", "--filter", "[", dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestFindScenarioFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.yaml", "")
	writeFile(t, dir, "a.yml", "")
	writeFile(t, dir, "notes.txt", "")
	writeFile(t, dir, "nested/c.yaml", "")

	files, err := findScenarioFiles(dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.yml"), filepath.Join(dir, "b.yaml")}, files)
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t, filepath.Join("scenarios", "golden", "window.golden"), goldenFilePath("scenarios", "window"))
}
