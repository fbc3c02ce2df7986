package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/archq/internal/dslerr"
	"github.com/roach88/archq/internal/engine"
	"github.com/roach88/archq/internal/ir"
)

func TestOutputFormatter_JSONSuccessKeepsKeyOrder(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	doc := ir.D(ir.P("z", ir.Int(1)), ir.P("a", ir.String("x")))
	require.NoError(t, formatter.Success(doc))
	assert.Equal(t, `{"status":"ok","data":{"z":1,"a":"x"}}`+"\n", buf.String())
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Error("E001", "compile failed", map[string]string{"path": "$query[0]"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E001", resp.Error.Code)
	assert.Equal(t, "compile failed", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_TextSuccessIndentsValues(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Success(ir.D(ir.P("hops", ir.Array{ir.Int(1)}))))
	assert.Equal(t, "{\n  \"hops\": [\n    1\n  ]\n}\n", buf.String())

	buf.Reset()
	require.NoError(t, formatter.Success("plain"))
	assert.Equal(t, "plain\n", buf.String())
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Error("E001", "compile failed", "hidden"))
	assert.Contains(t, buf.String(), "[E001]: compile failed")
	assert.NotContains(t, buf.String(), "hidden")

	buf.Reset()
	formatter.Verbose = true
	require.NoError(t, formatter.Error("E001", "compile failed", "shown"))
	assert.Contains(t, buf.String(), "Details: shown")
}

func TestOutputFormatter_VerboseLogGoesToErrWriter(t *testing.T) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut}

	formatter.VerboseLog("Compiling %s", "q.json")
	assert.Empty(t, errOut.String())

	formatter.Verbose = true
	formatter.VerboseLog("Compiling %s", "q.json")
	assert.Equal(t, "Compiling q.json\n", errOut.String())
	assert.Empty(t, out.String())
}

func TestFailExitCodes(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     string
		exitCode int
	}{
		{
			"rejected payload",
			dslerr.New(dslerr.CodeUnknownField, "unknown field %q", "Nope").At("$query[0].$eq").InStage("ParsingQuery"),
			"UNKNOWN_FIELD",
			ExitFailure,
		},
		{
			"result cap",
			engine.NewCapError(1, 0, 11, 10),
			string(engine.ErrCodeResultCapExceeded),
			ExitFailure,
		},
		{
			"missing file",
			&LoadError{Code: ErrCodeNotFound, Message: "file not found", Path: "q.json"},
			ErrCodeNotFound,
			ExitCommandError,
		},
		{
			"anything else",
			errors.New("disk on fire"),
			ErrCodeGeneric,
			ExitCommandError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "json", Writer: buf}

			err := formatter.Fail("command failed", fmt.Errorf("wrapped: %w", tt.err))
			assert.Equal(t, tt.exitCode, GetExitCode(err))
			assert.ErrorIs(t, err, tt.err)

			var resp CLIResponse
			require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestDescribeErrorDetails(t *testing.T) {
	de := dslerr.New(dslerr.CodeMalformedQuery, "bad").At("$filter").InStage("ParsingFilter")
	got := describeError(de)
	assert.Equal(t, "MALFORMED_QUERY", got.Code)
	assert.Equal(t, "bad", got.Message)
	assert.Equal(t, map[string]string{"path": "$filter", "stage": "ParsingFilter"}, got.Details)

	got = describeError(dslerr.New(dslerr.CodeEmptyComposite, "empty"))
	assert.Nil(t, got.Details)

	got = describeError(engine.NewCapError(3, 1, 20, 10))
	assert.Equal(t, map[string]string{"results": "20", "limit": "10"}, got.Details)
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "x")))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, "msg: cause", WrapExitError(ExitFailure, "msg", errors.New("cause")).Error())
}
