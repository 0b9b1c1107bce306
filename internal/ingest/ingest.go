package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/llmcompass/compass/internal/catalog"
)

var titleCaser = cases.Title(language.English)

// NormalizeModelName standardizes a raw model name for storage and lookup.
// Simple trim plus title case; an LLM-backed normalizer can replace this
// without touching callers.
func NormalizeModelName(raw string) string {
	return titleCaser.String(strings.Join(strings.Fields(raw), " "))
}

// NormalizeBenchmarkName trims a raw benchmark name. Benchmark names are
// case-significant (MMLU, GSM8K) and kept as written.
func NormalizeBenchmarkName(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

// Importer writes CSV rows through the catalog store.
type Importer struct {
	store catalog.Store
	log   *slog.Logger
	now   func() time.Time
}

// NewImporter builds an importer over the given store.
func NewImporter(store catalog.Store, log *slog.Logger) *Importer {
	if log == nil {
		log = slog.Default()
	}
	return &Importer{store: store, log: log, now: time.Now}
}

// ImportModels loads model metadata rows. Existing (name, provider) pairs
// are updated in place. Returns the number of rows written.
func (im *Importer) ImportModels(ctx context.Context, path string) (int, error) {
	rows, err := LoadCSV(path)
	if err != nil {
		return 0, err
	}

	written := 0
	for i, row := range rows {
		m, err := modelFromRow(row)
		if err != nil {
			return written, fmt.Errorf("ingest: %s row %d: %w", path, i+2, err)
		}
		if existing, err := im.store.FindModelByName(ctx, m.Name, m.Provider); err == nil {
			m.ID = existing.ID
		} else if !errors.Is(err, catalog.ErrNotFound) {
			return written, fmt.Errorf("ingest: %s row %d: %w", path, i+2, err)
		}
		if err := im.store.PutModel(ctx, m); err != nil {
			return written, fmt.Errorf("ingest: %s row %d: %w", path, i+2, err)
		}
		written++
	}
	im.log.Info("imported models", "path", path, "rows", written)
	return written, nil
}

// ImportBenchmarks loads benchmark dictionary rows. Existing (name, variant)
// pairs are updated in place.
func (im *Importer) ImportBenchmarks(ctx context.Context, path string) (int, error) {
	rows, err := LoadCSV(path)
	if err != nil {
		return 0, err
	}

	written := 0
	for i, row := range rows {
		b, err := benchmarkFromRow(row)
		if err != nil {
			return written, fmt.Errorf("ingest: %s row %d: %w", path, i+2, err)
		}
		if existing, err := im.store.FindBenchmarkByName(ctx, b.Name, b.Variant); err == nil {
			b.ID = existing.ID
		} else if !errors.Is(err, catalog.ErrNotFound) {
			return written, fmt.Errorf("ingest: %s row %d: %w", path, i+2, err)
		}
		if err := im.store.PutBenchmark(ctx, b); err != nil {
			return written, fmt.Errorf("ingest: %s row %d: %w", path, i+2, err)
		}
		written++
	}
	im.log.Info("imported benchmarks", "path", path, "rows", written)
	return written, nil
}

// ImportScores loads score rows, resolving models and benchmarks by
// normalized name. Scores are append-only; conflicting sources are resolved
// at read time by the best-available rule.
func (im *Importer) ImportScores(ctx context.Context, path string) (int, error) {
	rows, err := LoadCSV(path)
	if err != nil {
		return 0, err
	}

	written := 0
	for i, row := range rows {
		s, err := im.scoreFromRow(ctx, row)
		if err != nil {
			return written, fmt.Errorf("ingest: %s row %d: %w", path, i+2, err)
		}
		if err := im.store.PutScore(ctx, s); err != nil {
			return written, fmt.Errorf("ingest: %s row %d: %w", path, i+2, err)
		}
		written++
	}
	im.log.Info("imported scores", "path", path, "rows", written)
	return written, nil
}

func modelFromRow(row Row) (*catalog.Model, error) {
	name := NormalizeModelName(row["name"])
	if name == "" {
		return nil, errors.New("name is required")
	}
	provider := strings.TrimSpace(row["provider"])
	if provider == "" {
		return nil, errors.New("provider is required")
	}

	m := &catalog.Model{Name: name, Provider: provider}

	var err error
	if m.ModalityInput, err = parseModalities(row["modality_input"]); err != nil {
		return nil, err
	}
	if m.ModalityOutput, err = parseModalities(row["modality_output"]); err != nil {
		return nil, err
	}
	if v := row["parameter_count"]; v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parameter_count: %w", err)
		}
		m.ParameterCount = &n
	}
	if v := row["context_window"]; v != "" {
		if m.ContextWindow, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("context_window: %w", err)
		}
	}
	if v := row["cost_input_1m"]; v != "" {
		if m.CostInput1M, err = strconv.ParseFloat(v, 64); err != nil {
			return nil, fmt.Errorf("cost_input_1m: %w", err)
		}
	}
	if v := row["cost_output_1m"]; v != "" {
		if m.CostOutput1M, err = strconv.ParseFloat(v, 64); err != nil {
			return nil, fmt.Errorf("cost_output_1m: %w", err)
		}
	}
	if v := row["speed_class"]; v != "" {
		if m.SpeedClass, err = catalog.ParseSpeedClass(v); err != nil {
			return nil, err
		}
	}
	if v := row["speed_tps"]; v != "" {
		tps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("speed_tps: %w", err)
		}
		m.SpeedTPS = &tps
	}
	if m.OpenWeights, err = parseBool(row["open_weights"]); err != nil {
		return nil, fmt.Errorf("open_weights: %w", err)
	}
	if m.Reasoning, err = parseBool(row["reasoning"]); err != nil {
		return nil, fmt.Errorf("reasoning: %w", err)
	}
	if m.ToolCalling, err = parseBool(row["tool_calling"]); err != nil {
		return nil, fmt.Errorf("tool_calling: %w", err)
	}
	if m.Outdated, err = parseBool(row["outdated"]); err != nil {
		return nil, fmt.Errorf("outdated: %w", err)
	}
	return m, nil
}

func benchmarkFromRow(row Row) (*catalog.Benchmark, error) {
	name := NormalizeBenchmarkName(row["name"])
	if name == "" {
		return nil, errors.New("name is required")
	}
	description := strings.TrimSpace(row["description"])
	if description == "" {
		return nil, errors.New("description is required (it feeds the relevance index)")
	}

	b := &catalog.Benchmark{
		Name:        name,
		Variant:     strings.TrimSpace(row["variant"]),
		Description: description,
	}
	for _, tag := range strings.Split(row["categories"], "|") {
		if tag = strings.TrimSpace(tag); tag != "" {
			b.Categories = append(b.Categories, tag)
		}
	}
	return b, nil
}

func (im *Importer) scoreFromRow(ctx context.Context, row Row) (*catalog.Score, error) {
	rawModel := row["model_name"]
	rawBench := row["benchmark_name"]

	model, err := im.store.FindModelByName(ctx, NormalizeModelName(rawModel), strings.TrimSpace(row["model_provider"]))
	if err != nil {
		return nil, fmt.Errorf("model %q: %w", rawModel, err)
	}
	bench, err := im.store.FindBenchmarkByName(ctx, NormalizeBenchmarkName(rawBench), strings.TrimSpace(row["benchmark_variant"]))
	if err != nil {
		return nil, fmt.Errorf("benchmark %q: %w", rawBench, err)
	}

	value, err := strconv.ParseFloat(row["value"], 64)
	if err != nil {
		return nil, fmt.Errorf("value: %w", err)
	}

	s := &catalog.Score{
		ModelID:          model.ID,
		BenchmarkID:      bench.ID,
		Value:            value,
		MetricUnit:       strings.TrimSpace(row["metric_unit"]),
		SourceType:       catalog.ParseSourceType(row["source_type"]),
		SourceURL:        strings.TrimSpace(row["source_url"]),
		IngestedAt:       im.now().UTC(),
		RawModelName:     rawModel,
		RawBenchmarkName: rawBench,
	}
	if v := strings.TrimSpace(row["published_at"]); v != "" {
		ts, err := parseDate(v)
		if err != nil {
			return nil, fmt.Errorf("published_at: %w", err)
		}
		s.PublishedAt = &ts
	}
	return s, nil
}

func parseModalities(v string) (catalog.ModalityList, error) {
	var out catalog.ModalityList
	for _, part := range strings.Split(v, "|") {
		part = strings.TrimSpace(strings.ToLower(part))
		if part == "" {
			continue
		}
		m, err := catalog.ParseModality(part)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if len(out) == 0 {
		return nil, errors.New("at least one modality is required")
	}
	return out, nil
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "false", "0", "no":
		return false, nil
	case "true", "1", "yes":
		return true, nil
	default:
		return false, fmt.Errorf("not a boolean: %q", v)
	}
}

func parseDate(v string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if ts, err := time.Parse(layout, v); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("not a date: %q", v)
}
