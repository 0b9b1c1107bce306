// Package discovery turns a set of search phrases into a weighted,
// deduplicated set of relevant benchmarks.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/llmcompass/compass/internal/relevance"
)

// MaxQueries bounds the number of search phrases per call.
const MaxQueries = 5

// ErrEmptyQuerySet is a programmer error: Discover called with no phrases.
var ErrEmptyQuerySet = errors.New("discovery: empty query set")

// WeightedBenchmark pairs a benchmark id with its relevance weight in (0,1].
type WeightedBenchmark struct {
	BenchmarkID uint    `json:"benchmark_id"`
	Weight      float64 `json:"weight"`
}

// Discover queries the relevance index for each phrase, sums per-phrase
// similarities per benchmark (rewarding cross-phrase relevance), renormalizes
// the combined scores to [0,1] when the observed maximum exceeds 1, and
// drops everything at or below cutoff (exclusive boundary).
//
// Phrase lookups are independent pure reads and fan out concurrently; the
// merge is deterministic regardless of completion order. An empty result is
// not an error; callers must treat it as insufficient data.
func Discover(ctx context.Context, index relevance.Index, queries []string, cutoff float64) ([]WeightedBenchmark, error) {
	if len(queries) == 0 {
		return nil, ErrEmptyQuerySet
	}
	if len(queries) > MaxQueries {
		return nil, fmt.Errorf("discovery: %d queries exceeds maximum of %d", len(queries), MaxQueries)
	}
	for _, q := range queries {
		if strings.TrimSpace(q) == "" {
			return nil, fmt.Errorf("discovery: blank search phrase: %w", ErrEmptyQuerySet)
		}
	}
	if cutoff <= 0 || cutoff >= 1 {
		return nil, fmt.Errorf("discovery: cutoff %v outside (0,1)", cutoff)
	}

	var mu sync.Mutex
	combined := make(map[uint]float64)

	g, gctx := errgroup.WithContext(ctx)
	for _, phrase := range queries {
		g.Go(func() error {
			hits, err := index.Search(gctx, phrase)
			if err != nil {
				return fmt.Errorf("discovery: search %q: %w", phrase, err)
			}
			mu.Lock()
			for _, h := range hits {
				combined[h.BenchmarkID] += h.Similarity
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Renormalize only when summation pushed the maximum above 1, so a
	// single-phrase call keeps its raw similarities.
	var maxScore float64
	for _, s := range combined {
		if s > maxScore {
			maxScore = s
		}
	}

	out := make([]WeightedBenchmark, 0, len(combined))
	for id, score := range combined {
		w := score
		if maxScore > 1 {
			w = score / maxScore
		}
		if w > cutoff {
			out = append(out, WeightedBenchmark{BenchmarkID: id, Weight: w})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].BenchmarkID < out[j].BenchmarkID
	})
	return out, nil
}
