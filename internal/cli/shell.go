package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/roach88/archq/internal/engine"
	"github.com/roach88/archq/internal/explain"
	"github.com/roach88/archq/internal/model"
	"github.com/roach88/archq/internal/parser"
	"github.com/roach88/archq/internal/translate"
)

// ShellOptions holds flags for the shell command.
type ShellOptions struct {
	StoreOptions
	History string // history file, loaded and saved across sessions
}

const shellHelp = `Enter a payload on one line to compile it, or to run it when a
database is open. Commands:
  .model <unit|objectgroup|object>   switch the queried model
  .backend <auto|docstore|search>    switch the compile backend
  .next [n]                          fetch more records of the last run
  .close                             release the last cursor
  .help                              show this help
  .quit                              leave the shell`

var shellCommands = []string{".model", ".backend", ".next", ".close", ".help", ".quit"}

// NewShellCommand creates the shell command.
func NewShellCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShellOptions{StoreOptions: StoreOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Interactive payload shell",
		Long: `Start an interactive shell. Each line is a payload in strict JSON or
the relaxed syntax. Without --db it is compiled and explained; with
--db it is executed against the record store.

Example:
  archq shell
  archq shell --db ./archive.db --model object`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database")
	cmd.Flags().StringVar(&opts.History, "history", "", "history file")

	return cmd
}

func runShell(opts *ShellOptions, cmd *cobra.Command) error {
	logger := opts.logger(cmd.ErrOrStderr())
	cfg, m := opts.settings()

	sess := &shellSession{
		out:     cmd.OutOrStdout(),
		model:   m,
		backend: explain.Auto,
		limits:  cfg.ParserLimits(),
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if opts.Database != "" {
		st, err := openStore(opts.Database, logger)
		if err != nil {
			return WrapExitError(ExitCommandError, "shell failed", err)
		}
		defer closeStore(st, logger)

		eng, err := newEngine(opts.RootOptions, st, logger)
		if err != nil {
			return WrapExitError(ExitCommandError, "shell failed", err)
		}
		sess.engine = eng
		go eng.Run(ctx, time.Minute)
	}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(func(s string) []string {
		var out []string
		for _, c := range shellCommands {
			if strings.HasPrefix(c, s) {
				out = append(out, c)
			}
		}
		return out
	})
	if opts.History != "" {
		if f, err := os.Open(opts.History); err == nil {
			_, _ = line.ReadHistory(f)
			f.Close()
		}
		defer saveHistory(line, opts.History, logger.Error)
	}

	fmt.Fprintln(sess.out, "archq shell. Type .help for commands.")
	for {
		input, err := line.Prompt(sess.prompt())
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "reading input", err)
		}
		if strings.TrimSpace(input) != "" {
			line.AppendHistory(input)
		}
		if sess.eval(ctx, input) {
			return nil
		}
	}
}

func saveHistory(line *liner.State, path string, logf func(string, ...any)) {
	f, err := os.Create(path)
	if err != nil {
		logf("error saving history", "error", err)
		return
	}
	defer f.Close()
	if _, err := line.WriteHistory(f); err != nil {
		logf("error saving history", "error", err)
	}
}

// shellSession evaluates shell input. It holds no terminal state, so it
// can be driven directly.
type shellSession struct {
	out     io.Writer
	model   model.Model
	backend translate.Backend
	limits  parser.Limits
	engine  *engine.Engine // nil without a database
	cursor  string
}

func (s *shellSession) prompt() string {
	return s.model.Key() + "> "
}

// eval handles one line and reports whether the shell should exit.
func (s *shellSession) eval(ctx context.Context, input string) bool {
	input = strings.TrimSpace(input)
	if input == "" {
		return false
	}
	if strings.HasPrefix(input, ".") {
		return s.command(input)
	}
	if err := s.payload(ctx, input); err != nil {
		s.report(err)
	}
	return false
}

func (s *shellSession) command(input string) bool {
	name, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case ".quit", ".exit":
		return true
	case ".help":
		fmt.Fprintln(s.out, shellHelp)
	case ".model":
		m, err := model.Parse(arg)
		if err != nil {
			s.report(err)
			return false
		}
		s.model = m
		fmt.Fprintf(s.out, "model: %s\n", m.Key())
	case ".backend":
		b, err := parseBackendFlag(arg)
		if err != nil {
			s.report(err)
			return false
		}
		s.backend = b
		fmt.Fprintf(s.out, "backend: %s\n", b)
	case ".next":
		s.next(arg)
	case ".close":
		if s.engine == nil || s.cursor == "" {
			fmt.Fprintln(s.out, "no open cursor")
			return false
		}
		if err := s.engine.Close(s.cursor); err != nil {
			s.report(err)
		}
		s.cursor = ""
	default:
		fmt.Fprintf(s.out, "unknown command %s (try .help)\n", name)
	}
	return false
}

func (s *shellSession) payload(ctx context.Context, input string) error {
	p, err := parser.ForModel(s.model, parser.WithLimits(s.limits))
	if err != nil {
		return err
	}
	req, err := p.Parse([]byte(input))
	if err != nil {
		return err
	}

	if s.engine == nil {
		doc, err := explain.Request(req, s.backend)
		if err != nil {
			return err
		}
		return writeIndented(s.out, doc)
	}

	out, err := execute(ctx, s.engine, req, false)
	if err != nil {
		return err
	}
	s.cursor = ""
	if c, ok := out.Get("cursor"); ok {
		s.cursor = fmt.Sprint(c)
	}
	summarize(s.out, out)
	return nil
}

func (s *shellSession) next(arg string) {
	if s.engine == nil || s.cursor == "" {
		fmt.Fprintln(s.out, "no open cursor")
		return
	}
	n := 0
	if arg != "" {
		v, err := strconv.Atoi(arg)
		if err != nil || v <= 0 {
			fmt.Fprintf(s.out, "invalid page size %q\n", arg)
			return
		}
		n = v
	}
	page, more, err := s.engine.Next(s.cursor, n)
	if err != nil {
		s.cursor = ""
		s.report(err)
		return
	}
	cursor := ""
	if more {
		cursor = s.cursor
	} else {
		s.cursor = ""
	}
	summarize(s.out, renderResult(0, string(translate.DocumentStore), page, cursor, 0))
}

func (s *shellSession) report(err error) {
	cliErr := describeError(err)
	fmt.Fprintf(s.out, "%s [%s]: %s\n", failMark("Error"), cliErr.Code, cliErr.Message)
	if cliErr.Details != nil {
		fmt.Fprintf(s.out, "  %s\n", dim(fmt.Sprint(cliErr.Details)))
	}
}
