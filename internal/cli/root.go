package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/archq/internal/config"
	"github.com/roach88/archq/internal/ir"
	"github.com/roach88/archq/internal/model"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Config  string // optional config file
	Model   string // "unit" | "objectgroup" | "object"

	cfg   config.Config
	model model.Model
	ready bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the archq CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "archq",
		Version: ir.Version + " (dsl " + ir.DSLVersion + ")",
		Short:   "archq - archival records query compiler",
		Long:    `Parse, compile and run queries over archival records.

Payloads are compiled for a document store or a search engine, or
executed by the reference engine against a SQLite record store.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.prepare()
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "config file (yaml, json or toml)")
	cmd.PersistentFlags().StringVarP(&opts.Model, "model", "m", "unit", "queried model (unit|objectgroup|object)")

	cmd.AddCommand(NewParseCommand(opts))
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewLoadCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewShellCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// prepare validates the global flags and loads the configuration.
func (o *RootOptions) prepare() error {
	if !isValidFormat(o.Format) {
		return NewExitError(ExitCommandError,
			fmt.Sprintf("invalid format %q: must be one of %v", o.Format, ValidFormats))
	}
	m, err := model.Parse(o.Model)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid model", err)
	}
	cfg, err := config.Load(o.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	o.model = m
	o.cfg = cfg
	o.ready = true
	return nil
}

// settings returns the loaded configuration and model. Commands built
// without the root command (as in tests) get the defaults.
func (o *RootOptions) settings() (config.Config, model.Model) {
	if !o.ready {
		o.cfg = config.Default()
		if m, err := model.Parse(o.Model); err == nil {
			o.model = m
		}
		o.ready = true
	}
	return o.cfg, o.model
}

// logger builds the command's slog logger on w. Verbose switches to the
// debug level.
func (o *RootOptions) logger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
