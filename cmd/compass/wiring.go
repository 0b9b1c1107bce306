package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/llmcompass/compass/internal/catalog"
	"github.com/llmcompass/compass/internal/config"
	"github.com/llmcompass/compass/internal/llm"
	"github.com/llmcompass/compass/internal/ranking"
	"github.com/llmcompass/compass/internal/relevance"
	"github.com/llmcompass/compass/internal/workflow"
)

// hashEmbedderDim is the vector size of the offline embedder.
const hashEmbedderDim = 512

func loadSettings(cmd *cobra.Command) (*config.Settings, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	return config.Load(path)
}

// buildOrchestrator assembles the full workflow over the sqlite catalog.
// Offline mode swaps the LLM collaborators and the embedder for their
// deterministic local implementations.
func buildOrchestrator(ctx context.Context, cfg *config.Settings, offline bool) (*workflow.Orchestrator, *catalog.GormStore, error) {
	store, err := catalog.Open(cfg.StoragePath)
	if err != nil {
		return nil, nil, err
	}

	sessions, err := workflow.NewGormSessionStore(store.DB())
	if err != nil {
		return nil, nil, err
	}

	var embedder relevance.Embedder
	var validator llm.IntentValidator
	var refiner llm.QueryRefiner
	var synthesizer llm.Synthesizer
	if offline {
		embedder = relevance.NewHashEmbedder(hashEmbedderDim)
		validator = &llm.StubValidator{}
		refiner = &llm.StubRefiner{}
		synthesizer = &llm.StubSynthesizer{}
	} else {
		if err := cfg.ValidateLive(); err != nil {
			return nil, nil, err
		}
		embedder = relevance.NewHTTPEmbedder(cfg.OpenRouter.BaseURL, cfg.OpenRouter.APIKey, cfg.OpenRouter.EmbedModel)
		client := llm.NewClient(cfg.OpenRouter.BaseURL, cfg.OpenRouter.APIKey, cfg.OpenRouter.ChatModel, slog.Default())
		validator, refiner, synthesizer = client, client, client
	}

	benchmarks, err := store.ListBenchmarks(ctx)
	if err != nil {
		return nil, nil, err
	}
	index, err := relevance.BuildIndex(ctx, embedder, benchmarks)
	if err != nil {
		return nil, nil, err
	}
	slog.Debug("relevance index ready", "benchmarks", index.Len())

	orch := workflow.New(workflow.Config{
		Validator:   validator,
		Refiner:     refiner,
		Synthesizer: synthesizer,
		Index:       index,
		Engine:      ranking.NewEngine(store, slog.Default()),
		Sessions:    sessions,
		Cutoff:      cfg.DiscoveryCutoff,
	})
	return orch, store, nil
}

// parseConstraints turns the query command's flags into catalog constraints.
func parseConstraints(minContext int, modalityIn, modalityOut []string, deployment string, reasoning, toolCalling bool, minSpeed string, includeOutdated bool) (catalog.Constraints, error) {
	cons := catalog.Constraints{
		MinContextWindow:   minContext,
		RequireReasoning:   reasoning,
		RequireToolCalling: toolCalling,
		IncludeOutdated:    includeOutdated,
	}
	for _, v := range modalityIn {
		m, err := catalog.ParseModality(v)
		if err != nil {
			return cons, err
		}
		cons.ModalityInput = append(cons.ModalityInput, m)
	}
	for _, v := range modalityOut {
		m, err := catalog.ParseModality(v)
		if err != nil {
			return cons, err
		}
		cons.ModalityOutput = append(cons.ModalityOutput, m)
	}
	switch deployment {
	case "", "any":
		cons.Deployment = catalog.DeployAny
	case "cloud":
		cons.Deployment = catalog.DeployCloud
	case "local":
		cons.Deployment = catalog.DeployLocal
	default:
		return cons, fmt.Errorf("invalid deployment %q: must be any, cloud, or local", deployment)
	}
	if minSpeed != "" {
		sc, err := catalog.ParseSpeedClass(minSpeed)
		if err != nil {
			return cons, err
		}
		cons.MinSpeedClass = &sc
	}
	return cons, nil
}
