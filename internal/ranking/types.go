// Package ranking filters candidate models against hard constraints, fills
// benchmark score gaps via cross-variant bridge calibration, and produces
// three ranked views (performance, balanced, budget) with a fully cited
// per-benchmark breakdown.
package ranking

import (
	"errors"
	"math"
)

var (
	// ErrInvalidIORatio reports an input/output token ratio that does not
	// sum to 1.0 within tolerance.
	ErrInvalidIORatio = errors.New("ranking: io ratio must sum to 1.0")

	// ErrCitationMissing reports a breakdown row with neither a source URL
	// nor an estimation note. It is fatal: no recommendation is emitted
	// without attribution.
	ErrCitationMissing = errors.New("ranking: benchmark result without citation or estimation note")
)

const ratioTolerance = 1e-6

// IORatio is the predicted input/output token split for the user's workload.
type IORatio struct {
	Input  float64 `json:"input"`
	Output float64 `json:"output"`
}

// Validate checks that the two ratios are non-negative and sum to 1.0.
func (r IORatio) Validate() error {
	if r.Input < 0 || r.Output < 0 {
		return ErrInvalidIORatio
	}
	if math.Abs(r.Input+r.Output-1.0) > ratioTolerance {
		return ErrInvalidIORatio
	}
	return nil
}

// BenchmarkResult is one row of a ranked model's evidence breakdown.
type BenchmarkResult struct {
	BenchmarkID    uint    `json:"benchmark_id"`
	Label          string  `json:"label"`
	Score          float64 `json:"score"`
	MetricUnit     string  `json:"metric_unit"`
	WeightUsed     float64 `json:"weight_used"`
	IsEstimated    bool    `json:"is_estimated"`
	SourceURL      string  `json:"source_url,omitempty"`
	EstimationNote string  `json:"estimation_note,omitempty"`
}

// Metrics holds the numeric indices for one model in one ranking call.
type Metrics struct {
	PerformanceIndex float64 `json:"performance_index"`
	BlendedCost      float64 `json:"blended_cost"`
	BlendedCostIndex float64 `json:"blended_cost_index"`
	BlendedScore     float64 `json:"blended_score"`
}

// RankedModel is one entry in a ranked view. Constructed fresh per ranking
// call and never mutated afterward.
type RankedModel struct {
	ModelID       uint              `json:"model_id"`
	Name          string            `json:"name"`
	Provider      string            `json:"provider"`
	Metrics       Metrics           `json:"metrics"`
	Breakdown     []BenchmarkResult `json:"breakdown"`
	Justification string            `json:"justification"`
}

// ExcludedModel records a candidate dropped from ranking and why.
type ExcludedModel struct {
	ModelID uint   `json:"model_id"`
	Name    string `json:"name"`
	Reason  string `json:"reason"`
}

// Metadata flags non-error outcomes the caller must surface instead of
// presenting an empty result as success.
type Metadata struct {
	NoCandidates bool            `json:"no_candidates"`
	NoBenchmarks bool            `json:"no_benchmarks"`
	Excluded     []ExcludedModel `json:"excluded,omitempty"`
}

// Result is the full outcome of one ranking call: three independently
// ordered views over the same candidate set, plus metadata.
type Result struct {
	TopPerformance []RankedModel `json:"top_performance"`
	Balanced       []RankedModel `json:"balanced"`
	Budget         []RankedModel `json:"budget"`
	Metadata       Metadata      `json:"metadata"`
}
