package relevance

import (
	"context"
	"fmt"
	"sort"

	"github.com/llmcompass/compass/internal/catalog"
)

// DefaultTopK bounds the number of hits returned per search phrase.
const DefaultTopK = 10

// Hit is one nearest-neighbor result.
type Hit struct {
	BenchmarkID uint
	Similarity  float64 // in [0,1]
}

// Index answers semantic nearest-neighbor queries over benchmark descriptions.
type Index interface {
	Search(ctx context.Context, phrase string) ([]Hit, error)
}

// CosineIndex is an exact inner-product index over L2-normalized vectors.
type CosineIndex struct {
	embedder Embedder
	ids      []uint
	vecs     [][]float64
	topK     int
}

// IndexOption configures a CosineIndex.
type IndexOption func(*CosineIndex)

// WithTopK overrides the per-phrase result bound.
func WithTopK(k int) IndexOption {
	return func(ix *CosineIndex) {
		if k > 0 {
			ix.topK = k
		}
	}
}

// BuildIndex embeds every benchmark description and builds the in-memory
// index keyed by benchmark id.
func BuildIndex(ctx context.Context, embedder Embedder, benchmarks []catalog.Benchmark, opts ...IndexOption) (*CosineIndex, error) {
	ix := &CosineIndex{embedder: embedder, topK: DefaultTopK}
	for _, o := range opts {
		o(ix)
	}
	if len(benchmarks) == 0 {
		return ix, nil
	}

	texts := make([]string, len(benchmarks))
	for i, b := range benchmarks {
		texts[i] = b.Description
	}
	vecs, err := embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("relevance: embed %d benchmark descriptions: %w", len(benchmarks), err)
	}

	ix.ids = make([]uint, len(benchmarks))
	ix.vecs = vecs
	for i, b := range benchmarks {
		ix.ids[i] = b.ID
		normalize(ix.vecs[i])
	}
	return ix, nil
}

// Len returns the number of indexed benchmarks.
func (ix *CosineIndex) Len() int {
	return len(ix.ids)
}

// Search embeds the phrase and returns the nearest benchmarks by cosine
// similarity, clamped to [0,1], best first. Ties sort by benchmark id so
// the result order is deterministic.
func (ix *CosineIndex) Search(ctx context.Context, phrase string) ([]Hit, error) {
	if len(ix.ids) == 0 {
		return nil, nil
	}
	qs, err := ix.embedder.Embed(ctx, []string{phrase})
	if err != nil {
		return nil, fmt.Errorf("relevance: embed phrase: %w", err)
	}
	q := qs[0]
	normalize(q)

	hits := make([]Hit, 0, len(ix.ids))
	for i, vec := range ix.vecs {
		sim := dot(q, vec)
		if sim < 0 {
			sim = 0
		} else if sim > 1 {
			sim = 1
		}
		hits = append(hits, Hit{BenchmarkID: ix.ids[i], Similarity: sim})
	}

	sort.Slice(hits, func(a, b int) bool {
		if hits[a].Similarity != hits[b].Similarity {
			return hits[a].Similarity > hits[b].Similarity
		}
		return hits[a].BenchmarkID < hits[b].BenchmarkID
	})
	if len(hits) > ix.topK {
		hits = hits[:ix.topK]
	}
	return hits, nil
}

func dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
