package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlpancake/internal/cli/config"
	"github.com/leapstack-labs/sqlpancake/internal/cli/output"
	"github.com/leapstack-labs/sqlpancake/internal/sqlite"
	"github.com/leapstack-labs/sqlpancake/pkg/manager"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the loaded configuration.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.Format)),
	}
}

// WithDatabase opens the configured database, runs fn and closes it.
func (c *CommandContext) WithDatabase(ctx context.Context, fn func(*manager.Handle) error) error {
	path, err := c.databasePath()
	if err != nil {
		return err
	}
	if err := requireExisting(path); err != nil {
		return err
	}
	return manager.WithHandle(ctx, path, fn, manager.WithLogger(c.Logger))
}

func (c *CommandContext) databasePath() (string, error) {
	path := strings.TrimSpace(c.Cfg.Database)
	if path == "" {
		return "", errors.New("no database selected (use --database or set 'database' in sqlpancake.yaml)")
	}
	return path, nil
}

// requireExisting refuses to implicitly create a store for a mistyped path.
func requireExisting(path string) error {
	if path == sqlite.MemoryPath {
		return nil
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("database not found at %s (create it with 'sqlpancake create %s')", path, path)
	}
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a database", path)
	}
	return nil
}

// getConfig returns the current configuration, or defaults when none was loaded.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return &config.Config{
		Format:   config.DefaultFormat,
		LogLevel: config.DefaultLogLevel,
		Shell: config.ShellConfig{
			Prompt:      config.DefaultPrompt,
			HistoryFile: config.DefaultHistoryFile,
		},
	}
}
