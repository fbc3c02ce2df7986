package cli

import (
	"fmt"
	"io"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/spf13/cobra"

	"github.com/roach88/archq/internal/explain"
	"github.com/roach88/archq/internal/ir"
	"github.com/roach88/archq/internal/translate"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Backend string // "auto" | "docstore" | "search"
	Hop     int    // compile a single hop; -1 compiles the whole request
	Workers int    // pool size for directories
}

// FileResult is the outcome of one payload file in a batch.
type FileResult struct {
	File     string       `json:"file"`
	OK       bool         `json:"ok"`
	Compiled *ir.Document `json:"compiled,omitempty"`
	Error    *CLIError    `json:"error,omitempty"`
}

// BatchResult summarizes a directory run.
type BatchResult struct {
	Files  []FileResult `json:"files"`
	Passed int          `json:"passed"`
	Failed int          `json:"failed"`
	Total  int          `json:"total"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <file|dir|->",
		Short: "Compile payloads for a backend",
		Long: `Compile a query payload for the document store or the search
engine and print the roots filter, each compiled hop and the find
options or search body.

The backend defaults to auto: full-text requests go to the search
engine, everything else to the document store. Given a directory,
every payload in it is compiled in parallel.

Examples:
  archq compile query.json
  archq compile --backend search --hop 0 query.yaml
  archq compile --format json ./queries`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Backend, "backend", "b", string(explain.Auto), "target backend (auto|docstore|search)")
	cmd.Flags().IntVar(&opts.Hop, "hop", -1, "compile only this hop")
	cmd.Flags().IntVar(&opts.Workers, "workers", runtime.GOMAXPROCS(0), "parallel compilations for directories")

	return cmd
}

func runCompile(opts *CompileOptions, arg string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	backend, err := parseBackendFlag(opts.Backend)
	if err != nil {
		return formatter.Fail("invalid backend", err)
	}

	files, isDir, err := collectPayloads(arg)
	if err != nil {
		return formatter.Fail("compile failed", err)
	}

	if !isDir {
		out, err := compileFile(opts, files[0], backend, cmd.InOrStdin())
		if err != nil {
			return formatter.Fail("compile failed", err)
		}
		return formatter.Success(out)
	}

	formatter.VerboseLog("Compiling %d payload file(s) in %s", len(files), arg)
	opts.settings() // resolve once, before the workers share opts
	batch, err := compileBatch(opts.Workers, files, func(file string) (ir.Value, error) {
		return compileFile(opts, file, backend, nil)
	})
	if err != nil {
		return formatter.Fail("compile failed", err)
	}
	return outputBatch(formatter, batch, "compiled")
}

// compileFile parses one payload and explains it for backend.
func compileFile(opts *CompileOptions, path string, backend translate.Backend, stdin io.Reader) (ir.Value, error) {
	req, err := parsePayload(opts.RootOptions, path, stdin)
	if err != nil {
		return nil, err
	}
	if opts.Hop >= 0 {
		return explain.Hop(req, backend, opts.Hop)
	}
	return explain.Request(req, backend)
}

// compileBatch runs fn for every file on an ants pool. Results keep the
// order of files; a panicking file is reported as a failure.
func compileBatch(workers int, files []string, fn func(string) (ir.Value, error)) (*BatchResult, error) {
	if workers <= 0 {
		workers = 1
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	results := make([]FileResult, len(files))
	var wg sync.WaitGroup
	for i, file := range files {
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			defer func() {
				if v := recover(); v != nil {
					results[i] = FileResult{File: file, Error: &CLIError{
						Code:    ErrCodeGeneric,
						Message: fmt.Sprintf("panic: %v", v),
					}}
				}
			}()
			results[i] = fileResult(file, fn)
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return nil, fmt.Errorf("submit %s: %w", file, err)
		}
	}
	wg.Wait()

	batch := &BatchResult{Files: results, Total: len(results)}
	for _, r := range results {
		if r.OK {
			batch.Passed++
		} else {
			batch.Failed++
		}
	}
	return batch, nil
}

func fileResult(file string, fn func(string) (ir.Value, error)) FileResult {
	v, err := fn(file)
	if err != nil {
		cliErr := describeError(err)
		return FileResult{File: file, Error: &cliErr}
	}
	out := FileResult{File: file, OK: true}
	if doc, ok := v.(*ir.Document); ok {
		out.Compiled = doc
	}
	return out
}

// outputBatch prints a batch. Any failed file is a validation failure.
func outputBatch(formatter *OutputFormatter, batch *BatchResult, verb string) error {
	if formatter.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: batch}
		if batch.Failed > 0 {
			resp.Status = "error"
			resp.Error = &CLIError{
				Code:    ErrCodeGeneric,
				Message: fmt.Sprintf("%d payload(s) rejected", batch.Failed),
			}
		}
		if err := writeJSON(formatter.Writer, resp); err != nil {
			return err
		}
	} else {
		w := formatter.Writer
		for _, r := range batch.Files {
			if r.OK {
				fmt.Fprintf(w, "%s %s\n", okMark("✓"), r.File)
				continue
			}
			fmt.Fprintf(w, "%s %s\n", failMark("✗"), r.File)
			fmt.Fprintf(w, "  %s: %s\n", r.Error.Code, r.Error.Message)
			if formatter.Verbose && r.Error.Details != nil {
				fmt.Fprintf(w, "  %s\n", dim(fmt.Sprint(r.Error.Details)))
			}
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Summary: %d %s, %d failed, %d total\n", batch.Passed, verb, batch.Failed, batch.Total)
	}

	if batch.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d payload(s) rejected", batch.Failed))
	}
	return nil
}

// parseBackendFlag accepts "auto" as well as the backend names.
func parseBackendFlag(s string) (translate.Backend, error) {
	if s == "" || s == string(explain.Auto) {
		return explain.Auto, nil
	}
	return translate.ParseBackend(s)
}
