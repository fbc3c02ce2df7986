package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns stdout.
func executeRoot(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// writeFile writes content to name under dir and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "archq", cmd.Use)
	assert.Contains(t, cmd.Long, "archival records")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"parse", "compile", "validate", "load", "run", "shell", "test"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	modelFlag := cmd.PersistentFlags().Lookup("model")
	require.NotNil(t, modelFlag)
	assert.Equal(t, "unit", modelFlag.DefValue)

	require.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func TestStoreCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"load", "run"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		dbFlag := sub.Flags().Lookup("db")
		require.NotNil(t, dbFlag, name)
		assert.Equal(t, "", dbFlag.DefValue)
	}

	compileCmd, _, err := cmd.Find([]string{"compile"})
	require.NoError(t, err)
	backend := compileCmd.Flags().Lookup("backend")
	require.NotNil(t, backend)
	assert.Equal(t, "auto", backend.DefValue)
	assert.Equal(t, "-1", compileCmd.Flags().Lookup("hop").DefValue)
}

func TestInvalidGlobalFlags(t *testing.T) {
	_, err := executeRoot(t, "", "--format", "xml", "parse", "-")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid format")

	_, err = executeRoot(t, "", "--model", "folder", "parse", "-")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid model")
}

func TestConfigFileApplies(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "archq.yaml", "limits:\n  max_hops: 1\n")

	out, err := executeRoot(t, `{"$query":[{"$exists":"N"},{"$exists":"N"}]}`,
		"--config", cfg, "--format", "json", "parse", "-")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "REQUEST_TOO_LARGE")

	_, err = executeRoot(t, "", "--config", filepath.Join(dir, "missing.yaml"), "parse", "-")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRootCommandVersion(t *testing.T) {
	out, err := executeRoot(t, "", "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "archq version 0.1.0 (dsl 1)")
}
