// Package catalog holds the reference data the recommendation engine is
// grounded in: models, benchmarks, and raw benchmark scores, together with
// the read-time rules that select and filter them.
package catalog

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Modality is an input or output media type a model supports.
type Modality string

const (
	ModalityText  Modality = "text"
	ModalityImage Modality = "image"
	ModalityAudio Modality = "audio"
	ModalityVideo Modality = "video"
)

// ParseModality converts a string value to a Modality.
func ParseModality(s string) (Modality, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text":
		return ModalityText, nil
	case "image":
		return ModalityImage, nil
	case "audio":
		return ModalityAudio, nil
	case "video":
		return ModalityVideo, nil
	default:
		return ModalityText, fmt.Errorf("invalid modality %q: must be text, image, audio, or video", s)
	}
}

// SpeedClass buckets models by inference speed. The ordering is meaningful:
// a minimum-speed constraint is an ordinal floor.
type SpeedClass string

const (
	SpeedSlow     SpeedClass = "slow"
	SpeedBalanced SpeedClass = "balanced"
	SpeedFast     SpeedClass = "fast"
)

var speedRank = map[SpeedClass]int{
	SpeedSlow:     0,
	SpeedBalanced: 1,
	SpeedFast:     2,
}

// AtLeast returns true if s is at or above the target speed class.
func (s SpeedClass) AtLeast(target SpeedClass) bool {
	return speedRank[s] >= speedRank[target]
}

// ParseSpeedClass converts a string value to a SpeedClass.
func ParseSpeedClass(s string) (SpeedClass, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "slow":
		return SpeedSlow, nil
	case "balanced", "medium":
		return SpeedBalanced, nil
	case "fast":
		return SpeedFast, nil
	default:
		return SpeedSlow, fmt.Errorf("invalid speed class %q: must be slow, balanced, or fast", s)
	}
}

// Deployment restricts where a model can run.
type Deployment string

const (
	DeployAny   Deployment = "any"
	DeployCloud Deployment = "cloud"
	DeployLocal Deployment = "local"
)

// SourceType classifies where a score was published. Priority order for
// read-time resolution: provider and paper outrank aggregator, which
// outranks unknown.
type SourceType string

const (
	SourceProvider   SourceType = "provider"
	SourcePaper      SourceType = "paper"
	SourceAggregator SourceType = "aggregator"
	SourceUnknown    SourceType = "unknown"
)

var sourceRank = map[SourceType]int{
	SourceProvider:   2,
	SourcePaper:      2,
	SourceAggregator: 1,
	SourceUnknown:    0,
}

// ParseSourceType converts a string value to a SourceType. Unrecognized
// values map to SourceUnknown rather than failing, so third-party dumps with
// novel source labels still ingest.
func ParseSourceType(s string) SourceType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "provider":
		return SourceProvider
	case "paper":
		return SourcePaper
	case "aggregator":
		return SourceAggregator
	default:
		return SourceUnknown
	}
}

// ModalityList is a set of modalities stored as a JSON array column.
type ModalityList []Modality

// Value implements driver.Valuer.
func (m ModalityList) Value() (driver.Value, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("catalog: encode modalities: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (m *ModalityList) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = nil
		return nil
	case string:
		return json.Unmarshal([]byte(v), m)
	case []byte:
		return json.Unmarshal(v, m)
	default:
		return fmt.Errorf("catalog: cannot scan %T into ModalityList", src)
	}
}

// Contains reports whether the list includes the given modality.
func (m ModalityList) Contains(mod Modality) bool {
	for _, v := range m {
		if v == mod {
			return true
		}
	}
	return false
}

// ContainsAll reports whether the list is a superset of want.
func (m ModalityList) ContainsAll(want []Modality) bool {
	for _, mod := range want {
		if !m.Contains(mod) {
			return false
		}
	}
	return true
}

// Model is the static metadata for one LLM. Immutable reference data;
// mutated only by ingestion.
type Model struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	Name           string       `gorm:"index;not null" json:"name"`
	Provider       string       `gorm:"not null" json:"provider"`
	ParameterCount *int64       `json:"parameter_count,omitempty"`
	ModalityInput  ModalityList `gorm:"type:text" json:"modality_input"`
	ModalityOutput ModalityList `gorm:"type:text" json:"modality_output"`
	ContextWindow  int          `json:"context_window"`
	CostInput1M    float64      `json:"cost_input_1m"`
	CostOutput1M   float64      `json:"cost_output_1m"`
	SpeedClass     SpeedClass   `gorm:"size:16" json:"speed_class"`
	SpeedTPS       *float64     `json:"speed_tps,omitempty"`
	OpenWeights    bool         `json:"open_weights"`
	Reasoning      bool         `json:"reasoning"`
	ToolCalling    bool         `json:"tool_calling"`
	Outdated       bool         `json:"outdated"`
	SuccessorID    *uint        `json:"successor_id,omitempty"`
}

// Benchmark is one benchmark variant with its semantic description.
// Variants of the same underlying benchmark share Name and differ in Variant.
type Benchmark struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	Name        string  `gorm:"index:idx_name_variant,unique;not null" json:"name"`
	Variant     string  `gorm:"index:idx_name_variant,unique" json:"variant,omitempty"`
	Description string  `gorm:"not null" json:"description"`
	Categories  TagList `gorm:"type:text" json:"categories"`
}

// Label renders "Name" or "Name (Variant)" for display and estimation notes.
func (b Benchmark) Label() string {
	if b.Variant == "" {
		return b.Name
	}
	return fmt.Sprintf("%s (%s)", b.Name, b.Variant)
}

// TagList is a set of category tags stored as a JSON array column.
type TagList []string

// Value implements driver.Valuer.
func (t TagList) Value() (driver.Value, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("catalog: encode tags: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (t *TagList) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*t = nil
		return nil
	case string:
		return json.Unmarshal([]byte(v), t)
	case []byte:
		return json.Unmarshal(v, t)
	default:
		return fmt.Errorf("catalog: cannot scan %T into TagList", src)
	}
}

// Score is one published (model, benchmark) measurement. Multiple rows may
// exist per pair from different sources; BestAvailable picks the winner at
// read time. Raw names are kept for audit.
type Score struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	ModelID          uint       `gorm:"index:idx_model_benchmark;not null" json:"model_id"`
	BenchmarkID      uint       `gorm:"index:idx_model_benchmark;not null" json:"benchmark_id"`
	Value            float64    `json:"value"`
	MetricUnit       string     `json:"metric_unit"`
	SourceType       SourceType `gorm:"size:16" json:"source_type"`
	SourceURL        string     `json:"source_url"`
	PublishedAt      *time.Time `json:"published_at,omitempty"`
	IngestedAt       time.Time  `json:"ingested_at"`
	RawModelName     string     `json:"raw_model_name"`
	RawBenchmarkName string     `json:"raw_benchmark_name"`
}

// Constraints are the hard filters applied to candidate models before
// ranking. Zero values mean "no constraint" except Outdated handling:
// outdated models are excluded unless IncludeOutdated is set.
type Constraints struct {
	MinContextWindow   int         `json:"min_context_window"`
	ModalityInput      []Modality  `json:"modality_input,omitempty"`
	ModalityOutput     []Modality  `json:"modality_output,omitempty"`
	Deployment         Deployment  `json:"deployment,omitempty"`
	RequireReasoning   bool        `json:"require_reasoning"`
	RequireToolCalling bool        `json:"require_tool_calling"`
	MinSpeedClass      *SpeedClass `json:"min_speed_class,omitempty"`
	IncludeOutdated    bool        `json:"include_outdated"`
}

// Matches reports whether the model satisfies every hard constraint.
// Modality matching uses AND semantics: the model's modality set must be a
// superset of every selected modality, on both the input and output side.
func (c Constraints) Matches(m Model) bool {
	if m.ContextWindow < c.MinContextWindow {
		return false
	}
	if !ModalityList(m.ModalityInput).ContainsAll(c.ModalityInput) {
		return false
	}
	if !ModalityList(m.ModalityOutput).ContainsAll(c.ModalityOutput) {
		return false
	}
	// Local deployment requires open weights; cloud accepts anything hosted.
	if c.Deployment == DeployLocal && !m.OpenWeights {
		return false
	}
	if c.RequireReasoning && !m.Reasoning {
		return false
	}
	if c.RequireToolCalling && !m.ToolCalling {
		return false
	}
	if c.MinSpeedClass != nil && !m.SpeedClass.AtLeast(*c.MinSpeedClass) {
		return false
	}
	if m.Outdated && !c.IncludeOutdated {
		return false
	}
	return true
}
