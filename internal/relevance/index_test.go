package relevance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/llmcompass/compass/internal/catalog"
)

func testBenchmarks() []catalog.Benchmark {
	return []catalog.Benchmark{
		{ID: 1, Name: "HumanEval", Description: "python code generation correctness pass at one"},
		{ID: 2, Name: "MMLU", Description: "broad multitask knowledge and reasoning questions"},
		{ID: 3, Name: "SWE-bench", Description: "resolving real github issues with code patches"},
	}
}

func TestHashEmbedder_Deterministic(t *testing.T) {
	e := NewHashEmbedder(64)
	a, err := e.Embed(context.Background(), []string{"code generation in python"})
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), []string{"code generation in python"})
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestCosineIndex_RanksSharedVocabularyHigher(t *testing.T) {
	ctx := context.Background()
	ix, err := BuildIndex(ctx, NewHashEmbedder(256), testBenchmarks())
	require.NoError(t, err)
	require.Equal(t, 3, ix.Len())

	hits, err := ix.Search(ctx, "python code generation")
	require.NoError(t, err)
	require.NotEmpty(t, hits)

	if hits[0].BenchmarkID != 1 {
		t.Errorf("expected HumanEval first for a code-generation phrase, got benchmark %d", hits[0].BenchmarkID)
	}
	for _, h := range hits {
		if h.Similarity < 0 || h.Similarity > 1 {
			t.Errorf("similarity out of range: %f", h.Similarity)
		}
	}
}

func TestCosineIndex_TopK(t *testing.T) {
	ctx := context.Background()
	ix, err := BuildIndex(ctx, NewHashEmbedder(256), testBenchmarks(), WithTopK(2))
	require.NoError(t, err)

	hits, err := ix.Search(ctx, "knowledge")
	require.NoError(t, err)
	require.LessOrEqual(t, len(hits), 2)
}

func TestCosineIndex_EmptyIndex(t *testing.T) {
	ctx := context.Background()
	ix, err := BuildIndex(ctx, NewHashEmbedder(64), nil)
	require.NoError(t, err)

	hits, err := ix.Search(ctx, "anything")
	require.NoError(t, err)
	require.Empty(t, hits)
}
