package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/llmcompass/compass/internal/catalog"
	"github.com/llmcompass/compass/internal/relevance"
)

func newIndexCommand() *cobra.Command {
	var offline bool
	var probe string

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build the benchmark relevance index and verify it",
		Long: `Embed every stored benchmark description and build the relevance index.

The index is held in memory and rebuilt at server startup; this command
verifies that all descriptions embed cleanly against the configured endpoint.
With --probe it also runs one search and prints the nearest benchmarks.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			store, err := catalog.Open(cfg.StoragePath)
			if err != nil {
				return err
			}

			var embedder relevance.Embedder
			if offline {
				embedder = relevance.NewHashEmbedder(hashEmbedderDim)
			} else {
				if err := cfg.ValidateLive(); err != nil {
					return err
				}
				embedder = relevance.NewHTTPEmbedder(cfg.OpenRouter.BaseURL, cfg.OpenRouter.APIKey, cfg.OpenRouter.EmbedModel)
			}

			benchmarks, err := store.ListBenchmarks(cmd.Context())
			if err != nil {
				return err
			}
			index, err := relevance.BuildIndex(cmd.Context(), embedder, benchmarks)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "indexed %d benchmark descriptions\n", index.Len())

			if probe != "" {
				hits, err := index.Search(cmd.Context(), probe)
				if err != nil {
					return err
				}
				byID := make(map[uint]catalog.Benchmark, len(benchmarks))
				for _, b := range benchmarks {
					byID[b.ID] = b
				}
				for _, h := range hits {
					fmt.Fprintf(out, "%6.3f  %s\n", h.Similarity, byID[h.BenchmarkID].Label())
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Use the local embedder instead of the LLM endpoint")
	cmd.Flags().StringVar(&probe, "probe", "", "Run one search phrase against the built index")

	return cmd
}
