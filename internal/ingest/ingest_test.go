package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/llmcompass/compass/internal/catalog"
)

func writeCSV(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

const modelsCSV = `name,provider,parameter_count,modality_input,modality_output,context_window,cost_input_1m,cost_output_1m,speed_class,speed_tps,open_weights,reasoning,tool_calling,outdated
atlas 70b,Acme,70000000000,text|image,text,128000,1.5,6.0,balanced,85.5,true,true,true,false
breeze mini,Globex,,text,text,32000,0.2,0.6,fast,,false,false,true,false
`

const benchmarksCSV = `name,variant,description,categories
HumanEval,,Python code generation correctness,coding|python
MMLU,5-shot,Broad multitask knowledge,knowledge|reasoning
`

const scoresCSV = `model_name,model_provider,benchmark_name,benchmark_variant,value,metric_unit,source_type,source_url,published_at
atlas 70b,Acme,HumanEval,,82.5,pass@1,paper,https://example.com/paper,2025-03-01
atlas 70b,Acme,MMLU,5-shot,79.1,accuracy,aggregator,https://example.com/agg,
breeze mini,Globex,HumanEval,,61.0,pass@1,leaderboard,https://example.com/board,
`

func TestNormalizeModelName(t *testing.T) {
	require.Equal(t, "Atlas 70B", NormalizeModelName("  atlas 70b "))
	require.Equal(t, "Llama 2 7B Chat", NormalizeModelName("llama 2 7b chat"))
}

func TestImporter_FullPipeline(t *testing.T) {
	dir := t.TempDir()
	store := catalog.NewMemoryStore()
	im := NewImporter(store, nil)
	ctx := context.Background()

	n, err := im.ImportModels(ctx, writeCSV(t, dir, "models.csv", modelsCSV))
	require.NoError(t, err)
	require.Equal(t, 2, n)

	n, err = im.ImportBenchmarks(ctx, writeCSV(t, dir, "benchmarks.csv", benchmarksCSV))
	require.NoError(t, err)
	require.Equal(t, 2, n)

	n, err = im.ImportScores(ctx, writeCSV(t, dir, "scores.csv", scoresCSV))
	require.NoError(t, err)
	require.Equal(t, 3, n)

	// Name normalization applied before storage, raw strings kept for audit.
	m, err := store.FindModelByName(ctx, "Atlas 70B", "Acme")
	require.NoError(t, err)
	require.Equal(t, catalog.ModalityList{catalog.ModalityText, catalog.ModalityImage}, m.ModalityInput)
	require.NotNil(t, m.ParameterCount)

	b, err := store.FindBenchmarkByName(ctx, "HumanEval", "")
	require.NoError(t, err)

	score, err := store.ResolveScore(ctx, m.ID, b.ID)
	require.NoError(t, err)
	require.NotNil(t, score)
	require.Equal(t, 82.5, score.Value)
	require.Equal(t, "atlas 70b", score.RawModelName)
	require.NotNil(t, score.PublishedAt)
	require.False(t, score.IngestedAt.IsZero())

	// Unknown source labels degrade to SourceUnknown, not an error.
	breeze, err := store.FindModelByName(ctx, "Breeze Mini", "Globex")
	require.NoError(t, err)
	bscore, err := store.ResolveScore(ctx, breeze.ID, b.ID)
	require.NoError(t, err)
	require.Equal(t, catalog.SourceUnknown, bscore.SourceType)
}

func TestImporter_ModelUpsertByNameAndProvider(t *testing.T) {
	dir := t.TempDir()
	store := catalog.NewMemoryStore()
	im := NewImporter(store, nil)
	ctx := context.Background()

	path := writeCSV(t, dir, "models.csv", modelsCSV)
	_, err := im.ImportModels(ctx, path)
	require.NoError(t, err)
	_, err = im.ImportModels(ctx, path)
	require.NoError(t, err)

	all, err := store.FilterModels(ctx, catalog.Constraints{})
	require.NoError(t, err)
	require.Len(t, all, 2, "re-import must update, not duplicate")
}

func TestImporter_ScoreWithUnknownModelFails(t *testing.T) {
	dir := t.TempDir()
	store := catalog.NewMemoryStore()
	im := NewImporter(store, nil)

	path := writeCSV(t, dir, "scores.csv", scoresCSV)
	_, err := im.ImportScores(context.Background(), path)
	require.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestImporter_RowValidation(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{"missing provider", "name,provider,modality_input,modality_output\nAtlas,,text,text\n"},
		{"bad modality", "name,provider,modality_input,modality_output\nAtlas,Acme,hologram,text\n"},
		{"bad boolean", "name,provider,modality_input,modality_output,open_weights\nAtlas,Acme,text,text,maybe\n"},
		{"bad speed class", "name,provider,modality_input,modality_output,speed_class\nAtlas,Acme,text,text,ludicrous\n"},
		{"mismatched columns", "name,provider\nAtlas\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			im := NewImporter(catalog.NewMemoryStore(), nil)
			_, err := im.ImportModels(context.Background(), writeCSV(t, dir, "models.csv", tt.csv))
			require.Error(t, err)
		})
	}
}

func TestLoadCSV_Empty(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadCSV(writeCSV(t, dir, "empty.csv", ""))
	require.Error(t, err)
}
