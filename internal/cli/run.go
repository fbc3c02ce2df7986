package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/archq/internal/engine"
	"github.com/roach88/archq/internal/ir"
	"github.com/roach88/archq/internal/request"
	"github.com/roach88/archq/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	StoreOptions
	All bool // drain the cursor instead of printing the first page
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{StoreOptions: StoreOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "run <file|->",
		Short: "Execute a payload against the SQLite store",
		Long: `Execute a query payload with the reference engine against a SQLite
record store loaded with 'archq load'.

Hops run in order, each scoped to the records the previous hop
returned. The first page is printed; pass --all to drain the cursor.
Full-text payloads are rejected, since the store has no search engine.

Example:
  archq run --db ./archive.db query.json
  archq run --db ./archive.db --model object --all query.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().BoolVar(&opts.All, "all", false, "print every page")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runQuery(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := opts.logger(cmd.ErrOrStderr())

	req, err := parsePayload(opts.RootOptions, path, cmd.InOrStdin())
	if err != nil {
		return formatter.Fail("run failed", err)
	}

	st, err := openStore(opts.Database, logger)
	if err != nil {
		return formatter.Fail("run failed", err)
	}
	defer closeStore(st, logger)

	eng, err := newEngine(opts.RootOptions, st, logger)
	if err != nil {
		return formatter.Fail("run failed", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out, err := execute(ctx, eng, req, opts.All)
	if err != nil {
		return formatter.Fail("run failed", err)
	}
	return formatter.Success(out)
}

// newEngine builds an engine from the loaded configuration.
func newEngine(opts *RootOptions, st *store.Store, logger *slog.Logger) (*engine.Engine, error) {
	cfg, _ := opts.settings()
	return engine.New(st, engine.WithConfig(cfg.Engine), engine.WithLogger(logger))
}

// execute runs req and renders the result. With all set, the cursor is
// drained into the output.
func execute(ctx context.Context, eng *engine.Engine, req *request.Request, all bool) (*ir.Document, error) {
	res, err := eng.Execute(ctx, req)
	if err != nil {
		return nil, err
	}

	records := res.Records
	cursor, remaining := res.Cursor, res.Remaining
	if all {
		for more := cursor != ""; more; {
			var page []store.Record
			page, more, err = eng.Next(cursor, 0)
			if err != nil {
				return nil, err
			}
			records = append(records, page...)
		}
		cursor, remaining = "", 0
	}
	return renderResult(res.Seq, string(res.Backend), records, cursor, remaining), nil
}

func renderResult(seq int64, backend string, records []store.Record, cursor string, remaining int) *ir.Document {
	docs := make(ir.Array, len(records))
	for i, r := range records {
		docs[i] = r.Doc
	}
	out := ir.NewDocument()
	out.Set("seq", ir.Int(seq))
	out.Set("backend", ir.String(backend))
	out.Set("count", ir.Int(len(records)))
	out.Set("records", docs)
	if cursor != "" {
		out.Set("cursor", ir.String(cursor))
		if remaining > 0 {
			out.Set("remaining", ir.Int(remaining))
		}
	}
	return out
}

// summarize prints one line per record, for the shell.
func summarize(w io.Writer, out *ir.Document) {
	arr, _ := out.MustGet("records").(ir.Array)
	for _, v := range arr {
		doc, ok := v.(*ir.Document)
		if !ok {
			continue
		}
		data, err := ir.MarshalValue(doc)
		if err != nil {
			continue
		}
		fmt.Fprintln(w, string(data))
	}
	c, ok := out.Get("cursor")
	if !ok {
		return
	}
	if n, ok := out.Get("remaining"); ok {
		fmt.Fprintln(w, dim(fmt.Sprintf("-- %d more, cursor %s (.next)", n, c)))
		return
	}
	fmt.Fprintln(w, dim(fmt.Sprintf("-- more, cursor %s (.next)", c)))
}
