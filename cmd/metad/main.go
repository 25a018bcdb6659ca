package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "metad",
		Short: "Metadynamics bias potential toolkit",
		Long: `metad works with the artifacts of metadynamics runs: run
configurations, deposition logs, and bias grid files.

It validates run files before a simulation starts, rebuilds bias grids
from deposition logs, inspects dumped grids, and imports deposition
logs into a SQLite history.`,
	}

	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("log-level", "info", "Log verbosity (debug, info, warn, error)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newValidateCmd(),
		newReplayCmd(),
		newGridCmd(),
		newHillsCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
