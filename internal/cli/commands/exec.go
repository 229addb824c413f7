package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlpancake/internal/cli/output"
	"github.com/leapstack-labs/sqlpancake/pkg/manager"
)

// ExecOptions holds options for the exec command.
type ExecOptions struct {
	Input string
}

// NewExecCommand creates the exec command.
func NewExecCommand() *cobra.Command {
	opts := &ExecOptions{}

	cmd := &cobra.Command{
		Use:   "exec [SQL] [params...]",
		Short: "Execute a SQL statement",
		Long: `Execute a SQL statement against the selected database.

Parameters are bound to ? placeholders in order and are never interpolated
into the SQL text. They are typed from their text: NULL, integers and reals
bind as such, everything else binds as text. Prefix a value with a backslash
to force text.

Without a statement argument the SQL is read from --input or from piped
stdin; several statements are then executed in order.`,
		Example: `  # Query
  sqlpancake -d library.db exec "SELECT * FROM books WHERE price < ?" 20

  # Insert with parameters
  sqlpancake -d library.db exec "INSERT INTO authors(name, birth_year) VALUES (?, ?)" "Ursula K. Le Guin" 1929

  # Read from a file, output as JSON
  sqlpancake -d library.db exec --input report.sql --format json

  # Pipe statements in
  echo "SELECT COUNT(*) FROM books;" | sqlpancake -d library.db exec`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExec(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read SQL from file")

	return cmd
}

func runExec(cmd *cobra.Command, args []string, opts *ExecOptions) error {
	cmdCtx := NewCommandContext(cmd)

	var (
		sqlText string
		params  []any
	)
	switch {
	case opts.Input != "":
		content, err := os.ReadFile(opts.Input)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		sqlText = string(content)
		params = ParseParams(args)
	case len(args) > 0:
		sqlText = args[0]
		params = ParseParams(args[1:])
	case !output.IsTerminal(cmd.InOrStdin()):
		content, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		sqlText = string(content)
	default:
		return errors.New("no SQL given (pass a statement, --input or pipe SQL on stdin; use 'shell' for interactive mode)")
	}

	statements := executableStatements(sqlText)
	if len(statements) == 0 {
		return errors.New("no SQL statement to execute")
	}
	if len(statements) > 1 && len(params) > 0 {
		return errors.New("parameters can only be bound to a single statement")
	}

	return cmdCtx.WithDatabase(cmd.Context(), func(h *manager.Handle) error {
		for _, stmt := range statements {
			res, err := h.Execute(cmd.Context(), stmt, params...)
			if err != nil {
				return err
			}
			if err := cmdCtx.Renderer.Result(res); err != nil {
				return err
			}
		}
		return nil
	})
}

// executableStatements splits sqlText and drops comment-only candidates.
func executableStatements(sqlText string) []string {
	var out []string
	for _, stmt := range manager.SplitStatements(sqlText) {
		if !isCommentOnly(stmt) {
			out = append(out, stmt)
		}
	}
	return out
}

func isCommentOnly(stmt string) bool {
	return strings.TrimSpace(manager.FlattenSQL(stmt)) == ""
}
