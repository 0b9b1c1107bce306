package main

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compass",
		Short: "Compass - benchmark-grounded LLM recommendations",
		Long: `Compass recommends which LLM best fits a stated task, grounded strictly
in stored benchmark evidence rather than model popularity.

It maintains a catalog of models, benchmarks, and scores, discovers the
benchmarks relevant to a task by semantic search, calibrates missing scores
across benchmark variants, and ranks candidates into performance, balanced,
and budget views with full citations.`,
		Version:      version,
		SilenceUsage: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentFlags().String("config", "compass.yaml", "Path to the configuration file")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if *debugLogging {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	}

	// Add subcommands
	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newQueryCommand())
	cmd.AddCommand(newIngestCommand())
	cmd.AddCommand(newIndexCommand())

	return cmd
}

func execute() error {
	rootCmd := newRootCommand()
	return rootCmd.Execute()
}
