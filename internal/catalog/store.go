package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrNotFound is returned when a referenced model or benchmark does not exist.
var ErrNotFound = errors.New("catalog: not found")

// Store is the read/write contract over the reference data. Reads are the
// query surface consumed by discovery and ranking; writes are used by
// ingestion only.
type Store interface {
	FilterModels(ctx context.Context, c Constraints) ([]Model, error)
	Model(ctx context.Context, id uint) (*Model, error)
	Benchmark(ctx context.Context, id uint) (*Benchmark, error)
	ListBenchmarks(ctx context.Context) ([]Benchmark, error)
	// Variants returns every benchmark sharing the given normalized name,
	// sorted by id ascending.
	Variants(ctx context.Context, name string) ([]Benchmark, error)
	// ResolveScore applies the best-available rule for one pair; nil when
	// no score exists (a valid outcome, not an error).
	ResolveScore(ctx context.Context, modelID, benchmarkID uint) (*Score, error)
	// ResolveBenchmarkScores resolves the best-available score for every
	// model that has at least one row for the benchmark.
	ResolveBenchmarkScores(ctx context.Context, benchmarkID uint) (map[uint]Score, error)

	PutModel(ctx context.Context, m *Model) error
	PutBenchmark(ctx context.Context, b *Benchmark) error
	PutScore(ctx context.Context, s *Score) error
	FindModelByName(ctx context.Context, name, provider string) (*Model, error)
	FindBenchmarkByName(ctx context.Context, name, variant string) (*Benchmark, error)
}

// GormStore is the sqlite-backed Store.
type GormStore struct {
	db *gorm.DB
}

// Open opens (creating if needed) the sqlite catalog at path and migrates
// the schema.
func Open(path string) (*GormStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	if err := db.AutoMigrate(&Model{}, &Benchmark{}, &Score{}); err != nil {
		return nil, fmt.Errorf("catalog: migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// NewGormStore wraps an existing gorm connection, migrating the catalog tables.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&Model{}, &Benchmark{}, &Score{}); err != nil {
		return nil, fmt.Errorf("catalog: migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// DB exposes the underlying connection for components that share the
// database file (e.g. the session store).
func (s *GormStore) DB() *gorm.DB {
	return s.db
}

// FilterModels returns every model satisfying the constraints. The modality
// superset check does not map cleanly to SQL, so rows are filtered in memory
// after a full scan; the catalog is small reference data.
func (s *GormStore) FilterModels(ctx context.Context, c Constraints) ([]Model, error) {
	var all []Model
	if err := s.db.WithContext(ctx).Order("id asc").Find(&all).Error; err != nil {
		return nil, fmt.Errorf("catalog: list models: %w", err)
	}
	matched := make([]Model, 0, len(all))
	for _, m := range all {
		if c.Matches(m) {
			matched = append(matched, m)
		}
	}
	return matched, nil
}

// Model fetches one model by id.
func (s *GormStore) Model(ctx context.Context, id uint) (*Model, error) {
	var m Model
	err := s.db.WithContext(ctx).First(&m, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("catalog: model %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: model %d: %w", id, err)
	}
	return &m, nil
}

// Benchmark fetches one benchmark by id.
func (s *GormStore) Benchmark(ctx context.Context, id uint) (*Benchmark, error) {
	var b Benchmark
	err := s.db.WithContext(ctx).First(&b, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("catalog: benchmark %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: benchmark %d: %w", id, err)
	}
	return &b, nil
}

// ListBenchmarks returns all benchmarks sorted by id.
func (s *GormStore) ListBenchmarks(ctx context.Context) ([]Benchmark, error) {
	var bs []Benchmark
	if err := s.db.WithContext(ctx).Order("id asc").Find(&bs).Error; err != nil {
		return nil, fmt.Errorf("catalog: list benchmarks: %w", err)
	}
	return bs, nil
}

// Variants returns all benchmarks sharing a normalized name, id ascending.
func (s *GormStore) Variants(ctx context.Context, name string) ([]Benchmark, error) {
	var bs []Benchmark
	if err := s.db.WithContext(ctx).Where("name = ?", name).Order("id asc").Find(&bs).Error; err != nil {
		return nil, fmt.Errorf("catalog: variants of %s: %w", name, err)
	}
	return bs, nil
}

// ResolveScore applies the best-available rule for one (model, benchmark) pair.
func (s *GormStore) ResolveScore(ctx context.Context, modelID, benchmarkID uint) (*Score, error) {
	var rows []Score
	err := s.db.WithContext(ctx).
		Where("model_id = ? AND benchmark_id = ?", modelID, benchmarkID).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("catalog: scores for model %d benchmark %d: %w", modelID, benchmarkID, err)
	}
	return BestAvailable(rows), nil
}

// ResolveBenchmarkScores resolves the best-available score per model for one
// benchmark.
func (s *GormStore) ResolveBenchmarkScores(ctx context.Context, benchmarkID uint) (map[uint]Score, error) {
	var rows []Score
	err := s.db.WithContext(ctx).Where("benchmark_id = ?", benchmarkID).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("catalog: scores for benchmark %d: %w", benchmarkID, err)
	}
	byModel := make(map[uint][]Score)
	for _, r := range rows {
		byModel[r.ModelID] = append(byModel[r.ModelID], r)
	}
	resolved := make(map[uint]Score, len(byModel))
	for modelID, group := range byModel {
		resolved[modelID] = *BestAvailable(group)
	}
	return resolved, nil
}

// PutModel inserts or updates a model.
func (s *GormStore) PutModel(ctx context.Context, m *Model) error {
	if err := s.db.WithContext(ctx).Save(m).Error; err != nil {
		return fmt.Errorf("catalog: save model %s: %w", m.Name, err)
	}
	return nil
}

// PutBenchmark inserts or updates a benchmark.
func (s *GormStore) PutBenchmark(ctx context.Context, b *Benchmark) error {
	if err := s.db.WithContext(ctx).Save(b).Error; err != nil {
		return fmt.Errorf("catalog: save benchmark %s: %w", b.Name, err)
	}
	return nil
}

// PutScore inserts a score row. Scores are append-only; duplicates are
// resolved at read time by BestAvailable.
func (s *GormStore) PutScore(ctx context.Context, sc *Score) error {
	if err := s.db.WithContext(ctx).Create(sc).Error; err != nil {
		return fmt.Errorf("catalog: save score model %d benchmark %d: %w", sc.ModelID, sc.BenchmarkID, err)
	}
	return nil
}

// FindModelByName looks up a model by normalized name and provider.
func (s *GormStore) FindModelByName(ctx context.Context, name, provider string) (*Model, error) {
	var m Model
	err := s.db.WithContext(ctx).Where("name = ? AND provider = ?", name, provider).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("catalog: model %s/%s: %w", provider, name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: model %s/%s: %w", provider, name, err)
	}
	return &m, nil
}

// FindBenchmarkByName looks up a benchmark by normalized name and variant.
func (s *GormStore) FindBenchmarkByName(ctx context.Context, name, variant string) (*Benchmark, error) {
	var b Benchmark
	err := s.db.WithContext(ctx).Where("name = ? AND variant = ?", name, variant).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("catalog: benchmark %s %s: %w", name, variant, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: benchmark %s %s: %w", name, variant, err)
	}
	return &b, nil
}

// MemoryStore is an in-memory Store used by tests and offline tooling.
type MemoryStore struct {
	models     map[uint]Model
	benchmarks map[uint]Benchmark
	scores     []Score
	nextScore  uint
}

// NewMemoryStore builds an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		models:     make(map[uint]Model),
		benchmarks: make(map[uint]Benchmark),
		nextScore:  1,
	}
}

// FilterModels returns models matching the constraints, id ascending.
func (s *MemoryStore) FilterModels(_ context.Context, c Constraints) ([]Model, error) {
	var out []Model
	for _, m := range s.models {
		if c.Matches(m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Model fetches one model by id.
func (s *MemoryStore) Model(_ context.Context, id uint) (*Model, error) {
	m, ok := s.models[id]
	if !ok {
		return nil, fmt.Errorf("catalog: model %d: %w", id, ErrNotFound)
	}
	return &m, nil
}

// Benchmark fetches one benchmark by id.
func (s *MemoryStore) Benchmark(_ context.Context, id uint) (*Benchmark, error) {
	b, ok := s.benchmarks[id]
	if !ok {
		return nil, fmt.Errorf("catalog: benchmark %d: %w", id, ErrNotFound)
	}
	return &b, nil
}

// ListBenchmarks returns all benchmarks, id ascending.
func (s *MemoryStore) ListBenchmarks(_ context.Context) ([]Benchmark, error) {
	out := make([]Benchmark, 0, len(s.benchmarks))
	for _, b := range s.benchmarks {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Variants returns benchmarks sharing a name, id ascending.
func (s *MemoryStore) Variants(_ context.Context, name string) ([]Benchmark, error) {
	var out []Benchmark
	for _, b := range s.benchmarks {
		if b.Name == name {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ResolveScore applies the best-available rule for one pair.
func (s *MemoryStore) ResolveScore(_ context.Context, modelID, benchmarkID uint) (*Score, error) {
	var rows []Score
	for _, sc := range s.scores {
		if sc.ModelID == modelID && sc.BenchmarkID == benchmarkID {
			rows = append(rows, sc)
		}
	}
	return BestAvailable(rows), nil
}

// ResolveBenchmarkScores resolves the best-available score per model.
func (s *MemoryStore) ResolveBenchmarkScores(_ context.Context, benchmarkID uint) (map[uint]Score, error) {
	byModel := make(map[uint][]Score)
	for _, sc := range s.scores {
		if sc.BenchmarkID == benchmarkID {
			byModel[sc.ModelID] = append(byModel[sc.ModelID], sc)
		}
	}
	resolved := make(map[uint]Score, len(byModel))
	for modelID, group := range byModel {
		resolved[modelID] = *BestAvailable(group)
	}
	return resolved, nil
}

// PutModel inserts or updates a model, assigning an id when absent.
func (s *MemoryStore) PutModel(_ context.Context, m *Model) error {
	if m.ID == 0 {
		m.ID = uint(len(s.models) + 1)
	}
	s.models[m.ID] = *m
	return nil
}

// PutBenchmark inserts or updates a benchmark, assigning an id when absent.
func (s *MemoryStore) PutBenchmark(_ context.Context, b *Benchmark) error {
	if b.ID == 0 {
		b.ID = uint(len(s.benchmarks) + 1)
	}
	s.benchmarks[b.ID] = *b
	return nil
}

// PutScore appends a score row.
func (s *MemoryStore) PutScore(_ context.Context, sc *Score) error {
	if sc.ID == 0 {
		sc.ID = s.nextScore
		s.nextScore++
	}
	s.scores = append(s.scores, *sc)
	return nil
}

// FindModelByName looks up a model by name and provider.
func (s *MemoryStore) FindModelByName(_ context.Context, name, provider string) (*Model, error) {
	for _, m := range s.models {
		if m.Name == name && m.Provider == provider {
			return &m, nil
		}
	}
	return nil, fmt.Errorf("catalog: model %s/%s: %w", provider, name, ErrNotFound)
}

// FindBenchmarkByName looks up a benchmark by name and variant.
func (s *MemoryStore) FindBenchmarkByName(_ context.Context, name, variant string) (*Benchmark, error) {
	for _, b := range s.benchmarks {
		if b.Name == name && b.Variant == variant {
			return &b, nil
		}
	}
	return nil, fmt.Errorf("catalog: benchmark %s %s: %w", name, variant, ErrNotFound)
}
