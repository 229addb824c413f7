package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlpancake/internal/cli/output"
	"github.com/leapstack-labs/sqlpancake/pkg/manager"
)

// CreateOptions holds options for the create command.
type CreateOptions struct {
	Schema string
	Force  bool
}

// NewCreateCommand creates the create command.
func NewCreateCommand() *cobra.Command {
	opts := &CreateOptions{}

	cmd := &cobra.Command{
		Use:   "create [path]",
		Short: "Create a new database",
		Long: `Create a new SQLite database, optionally loading a schema script into it.

The schema is applied as one transaction. If any statement fails, the script is
re-applied statement by statement and failing statements are reported as
warnings.

An existing file is only replaced with --force, or after confirmation when
running in a terminal.`,
		Example: `  # Create an empty database
  sqlpancake create library.db

  # Create with a schema
  sqlpancake create library.db --schema schema.sql

  # Replace an existing database
  sqlpancake create library.db --schema schema.sql --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Schema, "schema", "s", "", "Schema script to load after creation")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Overwrite an existing database without asking")

	return cmd
}

func runCreate(cmd *cobra.Command, args []string, opts *CreateOptions) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	path := cmdCtx.Cfg.Database
	if len(args) > 0 {
		path = args[0]
	}
	if strings.TrimSpace(path) == "" {
		return errors.New("database path is required")
	}

	h := manager.New(manager.WithLogger(cmdCtx.Logger))
	defer func() { _ = h.Close() }()

	createOpts := manager.CreateOptions{Overwrite: opts.Force, SchemaPath: opts.Schema}
	report, err := h.Create(cmd.Context(), path, createOpts)
	if errors.Is(err, manager.ErrDatabaseExists) && output.IsTerminal(cmd.InOrStdin()) {
		ok, cerr := Confirm(cmd.InOrStdin(), r.ErrWriter(), fmt.Sprintf("Database %s already exists. Overwrite?", path))
		if cerr != nil {
			return cerr
		}
		if !ok {
			r.Muted("Aborted, existing database left unchanged")
			return nil
		}
		createOpts.Overwrite = true
		report, err = h.Create(cmd.Context(), path, createOpts)
	}
	if err != nil {
		if errors.Is(err, manager.ErrDatabaseExists) {
			return fmt.Errorf("%w (use --force to replace it)", err)
		}
		return err
	}

	r.Success("Created database " + path)
	return r.Report(report)
}

// Confirm asks a yes/no question on w and reads the answer from in. Only an
// explicit yes confirms.
func Confirm(in io.Reader, w io.Writer, question string) (bool, error) {
	_, _ = fmt.Fprintf(w, "%s [y/N]: ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}
	return IsYes(line), nil
}

// IsYes reports whether answer is an affirmative reply.
func IsYes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
