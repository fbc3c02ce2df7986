package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/archq/internal/parser"
	"github.com/roach88/archq/internal/request"
)

// NewParseCommand creates the parse command.
func NewParseCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse <file|->",
		Short: "Parse a payload and print its normalized form",
		Long: `Parse a query payload for the selected model and print the
normalized envelope: roots, hops, filter and projection, with every
field name checked against the model.

Exit codes:
  0 - Payload is valid
  1 - Payload was rejected
  2 - Command error (unreadable file, etc.)

Examples:
  archq parse query.json
  archq parse --model object query.yaml
  echo '{$query: [{$exists: Title}]}' | archq parse -`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runParse(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	req, err := parsePayload(opts, path, cmd.InOrStdin())
	if err != nil {
		return formatter.Fail("parse failed", err)
	}
	formatter.VerboseLog("Parsed %s: %d hop(s), %d root(s)", path, req.NumHops(), len(req.Roots()))

	doc, err := req.AssembleFinal()
	if err != nil {
		return formatter.Fail("parse failed", err)
	}
	return formatter.Success(doc)
}

// parsePayload reads and parses a payload with the configured limits.
func parsePayload(opts *RootOptions, path string, stdin io.Reader) (*request.Request, error) {
	cfg, m := opts.settings()
	payload, err := LoadPayload(path, stdin)
	if err != nil {
		return nil, err
	}
	p, err := parser.ForModel(m, parser.WithLimits(cfg.ParserLimits()))
	if err != nil {
		return nil, err
	}
	return p.Parse(payload)
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}
