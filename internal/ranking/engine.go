package ranking

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/llmcompass/compass/internal/catalog"
	"github.com/llmcompass/compass/internal/discovery"
)

// Catalog is the read surface the engine needs from the catalog store.
type Catalog interface {
	FilterModels(ctx context.Context, cons catalog.Constraints) ([]catalog.Model, error)
	Benchmark(ctx context.Context, id uint) (*catalog.Benchmark, error)
	Variants(ctx context.Context, name string) ([]catalog.Benchmark, error)
	ResolveBenchmarkScores(ctx context.Context, benchmarkID uint) (map[uint]catalog.Score, error)
}

// View weighting: performance share then cost share.
var views = []struct {
	name       string
	perf, cost float64
}{
	{"performance", 1.0, 0.0},
	{"balanced", 0.5, 0.5},
	{"budget", 0.2, 0.8},
}

// Engine produces ranked model views from weighted benchmarks, constraints,
// and a predicted I/O ratio.
type Engine struct {
	store Catalog
	log   *slog.Logger
}

// NewEngine builds an engine over the given catalog.
func NewEngine(store Catalog, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{store: store, log: log}
}

// cell is one resolved-or-estimated (model, benchmark) score.
type cell struct {
	score     float64
	unit      string
	estimated bool
	sourceURL string
	note      string
}

// Rank runs the full pipeline: candidate filtering, best-available score
// resolution, bridge calibration for missing cells, per-model weight
// renormalization, per-call cost normalization, and the three blended views.
// An empty candidate or benchmark set is a valid outcome flagged in the
// result metadata, not an error.
func (e *Engine) Rank(ctx context.Context, weighted []discovery.WeightedBenchmark, cons catalog.Constraints, ratio IORatio) (*Result, error) {
	if err := ratio.Validate(); err != nil {
		return nil, fmt.Errorf("%w: input=%v output=%v", ErrInvalidIORatio, ratio.Input, ratio.Output)
	}

	res := &Result{}

	candidates, err := e.store.FilterModels(ctx, cons)
	if err != nil {
		return nil, fmt.Errorf("ranking: filter candidates: %w", err)
	}
	if len(candidates) == 0 {
		res.Metadata.NoCandidates = true
	}
	if len(weighted) == 0 {
		res.Metadata.NoBenchmarks = true
	}
	if res.Metadata.NoCandidates || res.Metadata.NoBenchmarks {
		return res, nil
	}

	benchmarks := make(map[uint]*catalog.Benchmark, len(weighted))
	for _, wb := range weighted {
		b, err := e.store.Benchmark(ctx, wb.BenchmarkID)
		if err != nil {
			return nil, fmt.Errorf("ranking: load benchmark %d: %w", wb.BenchmarkID, err)
		}
		benchmarks[wb.BenchmarkID] = b
	}

	// Per-benchmark resolved score maps, shared between gap detection and
	// bridge-set construction. Lazily extended to variants outside the
	// requested set.
	resolved := make(map[uint]map[uint]catalog.Score)
	loadResolved := func(benchmarkID uint) (map[uint]catalog.Score, error) {
		if m, ok := resolved[benchmarkID]; ok {
			return m, nil
		}
		m, err := e.store.ResolveBenchmarkScores(ctx, benchmarkID)
		if err != nil {
			return nil, fmt.Errorf("ranking: resolve scores for benchmark %d: %w", benchmarkID, err)
		}
		resolved[benchmarkID] = m
		return m, nil
	}

	type modelCells struct {
		model catalog.Model
		cells map[uint]cell // keyed by benchmark id
	}

	scored := make([]modelCells, 0, len(candidates))
	for _, m := range candidates {
		mc := modelCells{model: m, cells: make(map[uint]cell, len(weighted))}
		for _, wb := range weighted {
			byModel, err := loadResolved(wb.BenchmarkID)
			if err != nil {
				return nil, err
			}
			if s, ok := byModel[m.ID]; ok {
				mc.cells[wb.BenchmarkID] = cell{
					score:     s.Value,
					unit:      s.MetricUnit,
					sourceURL: s.SourceURL,
				}
				continue
			}
			est, err := e.estimate(ctx, m, benchmarks[wb.BenchmarkID], loadResolved)
			if err != nil {
				return nil, err
			}
			if est != nil {
				mc.cells[wb.BenchmarkID] = *est
			}
			// A still-missing cell is excluded from the weighted
			// average, never treated as zero.
		}
		if len(mc.cells) == 0 {
			e.log.Debug("excluding model from ranking", "model", m.Name, "reason", "insufficient data")
			res.Metadata.Excluded = append(res.Metadata.Excluded, ExcludedModel{
				ModelID: m.ID, Name: m.Name, Reason: "insufficient data",
			})
			continue
		}
		scored = append(scored, mc)
	}
	if len(scored) == 0 {
		res.Metadata.NoCandidates = true
		return res, nil
	}

	// Cost normalization spans the scored set of this call only.
	costs := make([]float64, len(scored))
	cMin, cMax := math.Inf(1), math.Inf(-1)
	for i, mc := range scored {
		c := mc.model.CostInput1M*ratio.Input + mc.model.CostOutput1M*ratio.Output
		costs[i] = c
		cMin = math.Min(cMin, c)
		cMax = math.Max(cMax, c)
	}

	base := make([]RankedModel, len(scored))
	for i, mc := range scored {
		var weightSum, acc float64
		breakdown := make([]BenchmarkResult, 0, len(mc.cells))
		for _, wb := range weighted {
			c, ok := mc.cells[wb.BenchmarkID]
			if !ok {
				continue
			}
			if c.sourceURL == "" && c.note == "" {
				return nil, fmt.Errorf("%w: model %q benchmark %q", ErrCitationMissing, mc.model.Name, benchmarks[wb.BenchmarkID].Label())
			}
			weightSum += wb.Weight
			acc += wb.Weight * c.score
			breakdown = append(breakdown, BenchmarkResult{
				BenchmarkID:    wb.BenchmarkID,
				Label:          benchmarks[wb.BenchmarkID].Label(),
				Score:          c.score,
				MetricUnit:     c.unit,
				WeightUsed:     wb.Weight,
				IsEstimated:    c.estimated,
				SourceURL:      c.sourceURL,
				EstimationNote: c.note,
			})
		}

		// Weights renormalize over the cells this model actually has, so
		// partial coverage stays comparable.
		perf := acc / weightSum / 100

		costIndex := 1.0
		if len(scored) > 1 {
			costIndex = (cMax - costs[i]) / math.Max(1e-9, cMax-cMin)
		}

		base[i] = RankedModel{
			ModelID:  mc.model.ID,
			Name:     mc.model.Name,
			Provider: mc.model.Provider,
			Metrics: Metrics{
				PerformanceIndex: perf,
				BlendedCost:      costs[i],
				BlendedCostIndex: costIndex,
			},
			Breakdown: breakdown,
			Justification: fmt.Sprintf("%.1f%% weighted benchmark performance across %d benchmarks at $%.2f blended cost per 1M tokens",
				perf*100, len(breakdown), costs[i]),
		}
	}

	for _, v := range views {
		ranked := make([]RankedModel, len(base))
		copy(ranked, base)
		for i := range ranked {
			ranked[i].Metrics.BlendedScore = v.perf*ranked[i].Metrics.PerformanceIndex + v.cost*ranked[i].Metrics.BlendedCostIndex
		}
		sort.SliceStable(ranked, func(a, b int) bool {
			if ranked[a].Metrics.BlendedScore != ranked[b].Metrics.BlendedScore {
				return ranked[a].Metrics.BlendedScore > ranked[b].Metrics.BlendedScore
			}
			return ranked[a].ModelID < ranked[b].ModelID
		})
		switch v.name {
		case "performance":
			res.TopPerformance = ranked
		case "balanced":
			res.Balanced = ranked
		case "budget":
			res.Budget = ranked
		}
	}
	return res, nil
}

// estimate fills a missing (model, benchmark) cell from a sibling variant of
// the same underlying benchmark. The source variant is the lowest-id variant
// for which the model has a resolved score and at least one bridge model
// (a model scored on both variants) exists. Returns nil when no variant
// qualifies.
func (e *Engine) estimate(ctx context.Context, m catalog.Model, target *catalog.Benchmark, loadResolved func(uint) (map[uint]catalog.Score, error)) (*cell, error) {
	variants, err := e.store.Variants(ctx, target.Name)
	if err != nil {
		return nil, fmt.Errorf("ranking: variants of %q: %w", target.Name, err)
	}

	targetScores, err := loadResolved(target.ID)
	if err != nil {
		return nil, err
	}

	for _, v := range variants {
		if v.ID == target.ID {
			continue
		}
		sourceScores, err := loadResolved(v.ID)
		if err != nil {
			return nil, err
		}
		own, ok := sourceScores[m.ID]
		if !ok {
			continue
		}

		var deltas []float64
		for modelID, sb := range sourceScores {
			if modelID == m.ID {
				continue
			}
			if sa, ok := targetScores[modelID]; ok {
				deltas = append(deltas, sb.Value-sa.Value)
			}
		}
		if len(deltas) == 0 {
			continue
		}

		delta := mean(deltas)
		e.log.Debug("bridge estimation",
			"model", m.Name, "target", target.Label(), "source", v.Label(),
			"bridges", len(deltas), "delta", delta)
		return &cell{
			score:     own.Value - delta,
			unit:      own.MetricUnit,
			estimated: true,
			note: fmt.Sprintf("estimated from %s via %d bridge model(s), delta %.2f, spread %.2f",
				v.Label(), len(deltas), delta, stddev(deltas)),
		}, nil
	}
	return nil, nil
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stddev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	var sum float64
	for _, x := range xs {
		sum += (x - m) * (x - m)
	}
	return math.Sqrt(sum / float64(len(xs)))
}
