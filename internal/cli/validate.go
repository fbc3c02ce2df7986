package cli

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/roach88/archq/internal/explain"
	"github.com/roach88/archq/internal/ir"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts, Hop: -1, Workers: runtime.GOMAXPROCS(0)}

	cmd := &cobra.Command{
		Use:   "validate <file|dir>",
		Short: "Check payloads without printing compiled output",
		Long: `Validate query payloads for the selected model.

Each payload is parsed and compiled for the backend its content
selects, so unsupported constructs are reported too. Faster feedback
than compile when only the verdict matters.

Exit codes:
  0 - Every payload is valid
  1 - One or more payloads were rejected
  2 - Command error (invalid paths, etc.)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Backend, "backend", "b", string(explain.Auto), "target backend (auto|docstore|search)")

	return cmd
}

func runValidate(opts *CompileOptions, arg string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	backend, err := parseBackendFlag(opts.Backend)
	if err != nil {
		return formatter.Fail("invalid backend", err)
	}
	files, _, err := collectPayloads(arg)
	if err != nil {
		return formatter.Fail("validate failed", err)
	}
	formatter.VerboseLog("Validating %d payload file(s)", len(files))

	opts.settings()
	batch, err := compileBatch(opts.Workers, files, func(file string) (ir.Value, error) {
		if _, err := compileFile(opts, file, backend, cmd.InOrStdin()); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		return formatter.Fail("validate failed", err)
	}
	return outputBatch(formatter, batch, "valid")
}
