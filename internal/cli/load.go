package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/archq/internal/ir"
	"github.com/roach88/archq/internal/model"
	"github.com/roach88/archq/internal/store"
)

// StoreOptions holds the database flag shared by commands that use the
// record store.
type StoreOptions struct {
	*RootOptions
	Database string
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StoreOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "load <records-file>",
		Short: "Import records into the SQLite store",
		Long: `Import archival records into a SQLite record store, creating the
database if it doesn't exist.

The records file is JSON, YAML or CUE: an object keyed by model,
each an array of records. Units are inserted before object groups,
and object groups before objects, so parents always exist first.
Derived hierarchy fields are computed on insert.

Example:
  archq load --db ./archive.db records.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runLoad(opts *StoreOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := opts.logger(cmd.ErrOrStderr())

	records, err := LoadRecords(path)
	if err != nil {
		return formatter.Fail("load failed", err)
	}

	st, err := openStore(opts.Database, logger)
	if err != nil {
		return formatter.Fail("load failed", err)
	}
	defer closeStore(st, logger)

	counts := ir.NewDocument()
	for _, m := range model.All() {
		docs := records[m]
		if len(docs) == 0 {
			continue
		}
		n, err := st.InsertAll(cmd.Context(), m, docs)
		if err != nil {
			_ = formatter.Error(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitCommandError, "load failed", err)
		}
		logger.Debug("records loaded", "model", m.String(), "count", n)
		counts.Set(m.Key(), ir.Int(n))
	}

	if formatter.Format == "json" {
		return formatter.Success(counts)
	}
	for key, n := range counts.All() {
		fmt.Fprintf(formatter.Writer, "%s Loaded %d %s record(s)\n", okMark("✓"), n, key)
	}
	return nil
}

// openStore opens the SQLite store at path.
func openStore(path string, logger *slog.Logger) (*store.Store, error) {
	logger.Debug("opening database", "path", path)
	st, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	return st, nil
}

func closeStore(st *store.Store, logger *slog.Logger) {
	if err := st.Close(); err != nil {
		logger.Error("error closing database", "error", err)
	}
}
