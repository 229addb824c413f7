package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlpancake/internal/sqlite"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display sqlpancake version and SQLite driver information.`,
		Run: func(cmd *cobra.Command, _ []string) {
			info := sqlite.GetInfo()
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "sqlpancake v%s\n", version)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "SQLite driver: %s (%s)\n", info.DriverName, info.DriverType)
		},
	}
}
