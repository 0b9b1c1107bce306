package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/llmcompass/compass/internal/catalog"
	"github.com/llmcompass/compass/internal/ingest"
)

func newIngestCommand() *cobra.Command {
	var modelsPath, benchmarksPath, scoresPath string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Import models, benchmarks, and scores from CSV files",
		Long: `Import catalog data from CSV files.

Models and benchmarks are upserted by normalized name; scores are append-only
and resolved at read time by source priority and recency. Import scores after
the models and benchmarks they reference.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if modelsPath == "" && benchmarksPath == "" && scoresPath == "" {
				return fmt.Errorf("nothing to import: pass --models, --benchmarks, and/or --scores")
			}

			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			store, err := catalog.Open(cfg.StoragePath)
			if err != nil {
				return err
			}
			im := ingest.NewImporter(store, nil)

			out := cmd.OutOrStdout()
			if modelsPath != "" {
				n, err := im.ImportModels(cmd.Context(), modelsPath)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "imported %d models\n", n)
			}
			if benchmarksPath != "" {
				n, err := im.ImportBenchmarks(cmd.Context(), benchmarksPath)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "imported %d benchmarks\n", n)
			}
			if scoresPath != "" {
				n, err := im.ImportScores(cmd.Context(), scoresPath)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "imported %d scores\n", n)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&modelsPath, "models", "", "Path to the models CSV")
	cmd.Flags().StringVar(&benchmarksPath, "benchmarks", "", "Path to the benchmarks CSV")
	cmd.Flags().StringVar(&scoresPath, "scores", "", "Path to the scores CSV")

	return cmd
}
