// Package main provides the CLI for the sqlpancake SQLite manager.
package main

import (
	"os"

	"github.com/leapstack-labs/sqlpancake/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
