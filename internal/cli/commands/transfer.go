package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlpancake/pkg/manager"
)

// NewExportCommand creates the export command.
func NewExportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Export the database to a SQL script",
		Long: `Write a SQL script that rebuilds the database: table definitions, one
INSERT per row, AUTOINCREMENT counters, then indexes, triggers and views.
Every statement is on its own line. The file is replaced atomically.`,
		Example: `  sqlpancake -d library.db export backup.sql`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContext(cmd)
			return cmdCtx.WithDatabase(cmd.Context(), func(h *manager.Handle) error {
				if err := h.Export(cmd.Context(), args[0]); err != nil {
					return err
				}
				cmdCtx.Renderer.Success("Database exported to " + args[0])
				return nil
			})
		},
	}
}

// NewImportCommand creates the import command.
func NewImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import a SQL script as one transaction",
		Long: `Apply a SQL script, typically one written by export, as a single
transaction. If any statement fails nothing is applied.`,
		Example: `  sqlpancake create restored.db
  sqlpancake -d restored.db import backup.sql`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContext(cmd)
			return cmdCtx.WithDatabase(cmd.Context(), func(h *manager.Handle) error {
				if err := h.Import(cmd.Context(), args[0]); err != nil {
					return err
				}
				cmdCtx.Renderer.Success("Imported " + args[0])
				return nil
			})
		},
	}
}

// NewLoadCommand creates the load command.
func NewLoadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "load <file>",
		Short: "Load a schema or data script",
		Long: `Apply a SQL script. The script is first run as one transaction; if that
fails, each statement is applied on its own, failures are reported as
warnings and everything that succeeded is kept.`,
		Example: `  sqlpancake -d library.db load schema.sql`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContext(cmd)
			return cmdCtx.WithDatabase(cmd.Context(), func(h *manager.Handle) error {
				report, err := h.LoadScriptFile(cmd.Context(), args[0])
				if rerr := cmdCtx.Renderer.Report(report); rerr != nil && err == nil {
					err = rerr
				}
				return err
			})
		},
	}
}
