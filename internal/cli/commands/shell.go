package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlpancake/internal/cli/output"
	"github.com/leapstack-labs/sqlpancake/pkg/manager"
)

const continuationPrompt = "    ...> "

// NewShellCommand creates the shell command.
func NewShellCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive SQL shell",
		Long: `Start an interactive shell. SQL statements are collected until a
terminating semicolon and then executed. Dot commands manage the connection:
type .help for the list.

When --database is set, the shell starts connected to it.`,
		Example: `  sqlpancake shell
  sqlpancake -d library.db shell`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runShell(cmd)
		},
	}
}

// Shell is the interactive session state. The caller owns the handle, so
// switching databases never leaks a connection.
type Shell struct {
	handle   *manager.Handle
	renderer *output.Renderer
	logger   *slog.Logger

	// confirm asks a yes/no question.
	confirm func(question string) (bool, error)

	buf strings.Builder
}

// NewShell returns a disconnected shell that renders through r.
func NewShell(r *output.Renderer, logger *slog.Logger, confirm func(string) (bool, error)) *Shell {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if confirm == nil {
		confirm = func(string) (bool, error) { return false, nil }
	}
	return &Shell{
		handle:   manager.New(manager.WithLogger(logger)),
		renderer: r,
		logger:   logger,
		confirm:  confirm,
	}
}

// Handle returns the shell's connection handle.
func (s *Shell) Handle() *manager.Handle {
	return s.handle
}

// Pending reports whether an unterminated statement is being collected.
func (s *Shell) Pending() bool {
	return s.buf.Len() > 0
}

// Reset discards any partially entered statement.
func (s *Shell) Reset() {
	s.buf.Reset()
}

// Close releases the connection.
func (s *Shell) Close() error {
	return s.handle.Close()
}

// HandleLine processes one line of input. It returns true when the session
// should end.
func (s *Shell) HandleLine(ctx context.Context, line string) bool {
	trimmed := strings.TrimSpace(line)
	if !s.Pending() {
		if trimmed == "" || isCommentOnly(trimmed) {
			return false
		}
		if strings.HasPrefix(trimmed, ".") {
			return s.dotCommand(ctx, trimmed)
		}
	}

	s.buf.WriteString(line)
	s.buf.WriteString("\n")
	if !manager.IsComplete(s.buf.String()) {
		return false
	}

	script := s.buf.String()
	s.buf.Reset()
	for _, stmt := range executableStatements(script) {
		res, err := s.handle.Execute(ctx, stmt)
		if err != nil {
			s.report(err)
			continue
		}
		if err := s.renderer.Result(res); err != nil {
			s.report(err)
		}
	}
	return false
}

func (s *Shell) report(err error) {
	if errors.Is(err, manager.ErrNotConnected) {
		s.renderer.Error("no database open (use .open <path> or .create <path>)")
		return
	}
	s.renderer.Error(err.Error())
}

func (s *Shell) dotCommand(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])
	args := parts[1:]
	r := s.renderer

	needArg := func(usage string) bool {
		if len(args) == 0 {
			r.Error("usage: " + usage)
			return false
		}
		return true
	}

	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printShellHelp(r.Writer())

	case ".open":
		if !needArg(".open <path>") {
			break
		}
		if err := requireExisting(args[0]); err != nil {
			s.report(err)
			break
		}
		if err := s.handle.Open(ctx, args[0]); err != nil {
			s.report(err)
			break
		}
		r.Success("Connected to " + args[0])

	case ".create":
		if !needArg(".create <path> [schema]") {
			break
		}
		s.create(ctx, args)

	case ".close":
		if s.handle.State() != manager.StateConnected {
			r.Muted("No database open")
			break
		}
		path := s.handle.Path()
		if err := s.handle.Close(); err != nil {
			s.report(err)
			break
		}
		r.Success("Closed " + path)

	case ".info":
		info, err := s.handle.Describe(ctx)
		if err != nil {
			s.report(err)
			break
		}
		if err := r.Info(info); err != nil {
			s.report(err)
		}

	case ".tables":
		tables, err := s.handle.ListTables(ctx)
		if err != nil {
			s.report(err)
			break
		}
		if err := r.Tables(tables); err != nil {
			s.report(err)
		}

	case ".schema":
		if !needArg(".schema <table>") {
			break
		}
		cols, err := s.handle.TableSchema(ctx, args[0])
		if err != nil {
			s.report(err)
			break
		}
		if err := r.Schema(args[0], cols); err != nil {
			s.report(err)
		}

	case ".export":
		if !needArg(".export <file>") {
			break
		}
		if err := s.handle.Export(ctx, args[0]); err != nil {
			s.report(err)
			break
		}
		r.Success("Database exported to " + args[0])

	case ".import":
		if !needArg(".import <file>") {
			break
		}
		if err := s.handle.Import(ctx, args[0]); err != nil {
			s.report(err)
			break
		}
		r.Success("Imported " + args[0])

	case ".read":
		if !needArg(".read <file>") {
			break
		}
		report, err := s.handle.LoadScriptFile(ctx, args[0])
		if rerr := r.Report(report); rerr != nil {
			s.report(rerr)
		}
		if err != nil {
			s.report(err)
		}

	default:
		r.Error(fmt.Sprintf("unknown command: %s (type .help for commands)", command))
	}
	return false
}

func (s *Shell) create(ctx context.Context, args []string) {
	r := s.renderer
	opts := manager.CreateOptions{}
	if len(args) > 1 {
		opts.SchemaPath = args[1]
	}

	report, err := s.handle.Create(ctx, args[0], opts)
	if errors.Is(err, manager.ErrDatabaseExists) {
		ok, cerr := s.confirm(fmt.Sprintf("Database %s already exists. Overwrite? [y/N]: ", args[0]))
		if cerr != nil {
			s.report(cerr)
			return
		}
		if !ok {
			r.Muted("Aborted, existing database left unchanged")
			return
		}
		opts.Overwrite = true
		report, err = s.handle.Create(ctx, args[0], opts)
	}
	if err != nil {
		s.report(err)
		return
	}
	r.Success("Created database " + args[0])
	if err := r.Report(report); err != nil {
		s.report(err)
	}
}

func printShellHelp(w io.Writer) {
	help := `
Commands:
  .open <path>             Open an existing database
  .create <path> [schema]  Create a database, optionally loading a schema
  .close                   Close the current database
  .info                    Show tables, columns and row counts
  .tables                  List tables
  .schema <table>          Show the columns of a table
  .export <file>           Export the database to a SQL script
  .import <file>           Import a SQL script as one transaction
  .read <file>             Load a script, skipping failing statements
  .help                    Show this help message
  .quit / .exit            Exit the shell

Tips:
  - SQL statements must end with a semicolon (;)
  - Use arrow keys to navigate history
  - Tab completion works for dot commands and table names
`
	_, _ = fmt.Fprintln(w, help)
}

func runShell(cmd *cobra.Command) error {
	ctx := cmd.Context()
	cmdCtx := NewCommandContext(cmd)
	prompt := cmdCtx.Cfg.Shell.Prompt

	var rl *readline.Instance
	confirm := func(question string) (bool, error) {
		rl.SetPrompt(question)
		defer rl.SetPrompt(prompt)
		answer, err := rl.Readline()
		if err != nil {
			return false, nil
		}
		return IsYes(answer), nil
	}

	shell := NewShell(cmdCtx.Renderer, cmdCtx.Logger, confirm)
	defer func() { _ = shell.Close() }()

	if path := strings.TrimSpace(cmdCtx.Cfg.Database); path != "" {
		if err := requireExisting(path); err != nil {
			return err
		}
		if err := shell.Handle().Open(ctx, path); err != nil {
			return err
		}
	}

	var err error
	rl, err = readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     historyPath(cmdCtx.Cfg.Shell.HistoryFile),
		AutoComplete:    newShellCompleter(ctx, shell),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize shell: %w", err)
	}
	defer func() { _ = rl.Close() }()

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(out, "sqlpancake interactive shell")
	if shell.Handle().State() == manager.StateConnected {
		_, _ = fmt.Fprintf(out, "Connected to %s\n", shell.Handle().Path())
	}
	_, _ = fmt.Fprintln(out, "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(out)

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			shell.Reset()
			rl.SetPrompt(prompt)
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		if shell.HandleLine(ctx, line) {
			break
		}
		if shell.Pending() {
			rl.SetPrompt(continuationPrompt)
		} else {
			rl.SetPrompt(prompt)
		}
	}
	return nil
}

// historyPath resolves a relative history file against the home directory.
// An empty name disables history.
func historyPath(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, name)
}

// newShellCompleter completes dot commands and the current database's tables.
func newShellCompleter(ctx context.Context, shell *Shell) *readline.PrefixCompleter {
	tables := func(string) []string {
		if shell.Handle().State() != manager.StateConnected {
			return nil
		}
		names, err := shell.Handle().ListTables(ctx)
		if err != nil {
			return nil
		}
		return names
	}

	return readline.NewPrefixCompleter(
		readline.PcItem(".open"),
		readline.PcItem(".create"),
		readline.PcItem(".close"),
		readline.PcItem(".info"),
		readline.PcItem(".tables"),
		readline.PcItem(".schema", readline.PcItemDynamic(tables)),
		readline.PcItem(".export"),
		readline.PcItem(".import"),
		readline.PcItem(".read"),
		readline.PcItem(".help"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
		readline.PcItemDynamic(tables),
	)
}
