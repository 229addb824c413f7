// Package config provides configuration management for the sqlpancake CLI.
package config

// ShellConfig holds settings for the interactive shell.
type ShellConfig struct {
	Prompt      string `koanf:"prompt"`
	HistoryFile string `koanf:"history_file"`
}

// Config holds all CLI configuration options.
type Config struct {
	Database string      `koanf:"database"`
	Format   string      `koanf:"format"`
	Verbose  bool        `koanf:"verbose"`
	LogLevel string      `koanf:"log_level"`
	Shell    ShellConfig `koanf:"shell"`
}

// Default configuration values.
const (
	DefaultFormat      = "table"
	DefaultLogLevel    = "warn"
	DefaultPrompt      = "sqlpancake> "
	DefaultHistoryFile = ".sqlpancake_history"
)

// Formats lists the accepted values for Config.Format.
var Formats = []string{"table", "json", "csv", "markdown", "yaml"}
