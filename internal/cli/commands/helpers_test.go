package commands

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlpancake/internal/cli/config"
	logtest "github.com/leapstack-labs/sqlpancake/internal/testutil"
)

// newTestRoot builds a root command with the global flags and every
// subcommand, loading configuration the way the real root does.
func newTestRoot(t *testing.T) *cobra.Command {
	t.Helper()

	root := &cobra.Command{
		Use:           "sqlpancake",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			config.ResetConfig()
			if _, err := config.LoadConfig("", cmd.Root().PersistentFlags()); err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), config.LoggerKey(), logtest.NewTestLogger(t)))
			return nil
		},
	}
	root.PersistentFlags().String("config", "", "")
	root.PersistentFlags().StringP("database", "d", "", "")
	root.PersistentFlags().StringP("format", "f", "", "")
	root.PersistentFlags().BoolP("verbose", "v", false, "")
	root.PersistentFlags().String("log-level", "", "")

	root.AddCommand(
		NewVersionCommand("test"),
		NewCreateCommand(),
		NewExecCommand(),
		NewLoadCommand(),
		NewTablesCommand(),
		NewSchemaCommand(),
		NewInfoCommand(),
		NewExportCommand(),
		NewImportCommand(),
	)
	t.Cleanup(config.ResetConfig)
	return root
}

// runCommand executes the CLI with args and stdin, returning both streams.
func runCommand(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	root := newTestRoot(t)
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}
