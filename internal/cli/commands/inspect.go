package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlpancake/pkg/manager"
)

// NewTablesCommand creates the tables command.
func NewTablesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List all tables",
		Long:  `List the user tables of the selected database in ascending name order.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContext(cmd)
			return cmdCtx.WithDatabase(cmd.Context(), func(h *manager.Handle) error {
				tables, err := h.ListTables(cmd.Context())
				if err != nil {
					return err
				}
				return cmdCtx.Renderer.Tables(tables)
			})
		},
	}
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema <table>",
		Short: "Show the columns of a table",
		Long: `Show the columns of a table in ordinal order: name, declared type,
NOT NULL, default expression and primary key position.`,
		Example: `  sqlpancake -d library.db schema books
  sqlpancake -d library.db schema books --format yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContext(cmd)
			return cmdCtx.WithDatabase(cmd.Context(), func(h *manager.Handle) error {
				cols, err := h.TableSchema(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return cmdCtx.Renderer.Schema(args[0], cols)
			})
		},
	}
}

// NewInfoCommand creates the info command.
func NewInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show database structure",
		Long:  `Show every table of the selected database with its columns and row count.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContext(cmd)
			return cmdCtx.WithDatabase(cmd.Context(), func(h *manager.Handle) error {
				info, err := h.Describe(cmd.Context())
				if err != nil {
					return err
				}
				return cmdCtx.Renderer.Info(info)
			})
		},
	}
}
