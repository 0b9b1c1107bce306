package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func ts(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestBestAvailable_SourcePriority(t *testing.T) {
	scores := []Score{
		{ID: 1, Value: 70, SourceType: SourceUnknown, IngestedAt: time.Unix(300, 0)},
		{ID: 2, Value: 72, SourceType: SourceAggregator, IngestedAt: time.Unix(200, 0)},
		{ID: 3, Value: 74, SourceType: SourceProvider, IngestedAt: time.Unix(100, 0)},
	}

	best := BestAvailable(scores)
	require.NotNil(t, best)
	if best.ID != 3 {
		t.Errorf("expected provider score to win, got id %d", best.ID)
	}
}

func TestBestAvailable_PaperEqualsProvider(t *testing.T) {
	// Provider and paper share a tier; the newer publish date decides.
	scores := []Score{
		{ID: 1, SourceType: SourceProvider, PublishedAt: ts("2025-01-01"), IngestedAt: time.Unix(1, 0)},
		{ID: 2, SourceType: SourcePaper, PublishedAt: ts("2025-06-01"), IngestedAt: time.Unix(1, 0)},
	}

	best := BestAvailable(scores)
	require.NotNil(t, best)
	if best.ID != 2 {
		t.Errorf("expected newer paper score, got id %d", best.ID)
	}
}

func TestBestAvailable_MissingPublishDateSortsLast(t *testing.T) {
	scores := []Score{
		{ID: 1, SourceType: SourceAggregator, PublishedAt: nil, IngestedAt: time.Unix(999, 0)},
		{ID: 2, SourceType: SourceAggregator, PublishedAt: ts("2024-01-01"), IngestedAt: time.Unix(1, 0)},
	}

	best := BestAvailable(scores)
	require.NotNil(t, best)
	if best.ID != 2 {
		t.Errorf("expected dated score to beat undated one, got id %d", best.ID)
	}
}

func TestBestAvailable_IngestionDateBreaksTies(t *testing.T) {
	scores := []Score{
		{ID: 1, SourceType: SourceProvider, IngestedAt: time.Unix(100, 0)},
		{ID: 2, SourceType: SourceProvider, IngestedAt: time.Unix(200, 0)},
	}

	best := BestAvailable(scores)
	require.NotNil(t, best)
	if best.ID != 2 {
		t.Errorf("expected newest ingestion to win, got id %d", best.ID)
	}
}

func TestBestAvailable_TotalOnIdenticalRows(t *testing.T) {
	// Even byte-identical duplicates must resolve to exactly one winner.
	now := time.Unix(500, 0)
	scores := []Score{
		{ID: 7, SourceType: SourceUnknown, IngestedAt: now},
		{ID: 9, SourceType: SourceUnknown, IngestedAt: now},
	}

	best := BestAvailable(scores)
	require.NotNil(t, best)
	require.Equal(t, uint(9), best.ID)
}

func TestBestAvailable_Empty(t *testing.T) {
	if got := BestAvailable(nil); got != nil {
		t.Errorf("expected nil for empty input, got %+v", got)
	}
}

func TestConstraints_Matches(t *testing.T) {
	fast := SpeedFast
	base := Model{
		ID:             1,
		Name:           "Atlas 70B",
		Provider:       "Acme",
		ModalityInput:  ModalityList{ModalityText, ModalityImage},
		ModalityOutput: ModalityList{ModalityText},
		ContextWindow:  128000,
		SpeedClass:     SpeedBalanced,
		OpenWeights:    true,
		Reasoning:      true,
		ToolCalling:    false,
	}

	tests := []struct {
		name string
		c    Constraints
		want bool
	}{
		{"no constraints", Constraints{}, true},
		{"context window floor", Constraints{MinContextWindow: 200000}, false},
		{"modality superset ok", Constraints{ModalityInput: []Modality{ModalityText, ModalityImage}}, true},
		{"modality superset fails", Constraints{ModalityInput: []Modality{ModalityAudio}}, false},
		{"output modality fails", Constraints{ModalityOutput: []Modality{ModalityImage}}, false},
		{"local deployment needs open weights", Constraints{Deployment: DeployLocal}, true},
		{"tool calling required", Constraints{RequireToolCalling: true}, false},
		{"reasoning required", Constraints{RequireReasoning: true}, true},
		{"speed floor excludes", Constraints{MinSpeedClass: &fast}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.c.Matches(base))
		})
	}
}

func TestConstraints_OutdatedExcludedByDefault(t *testing.T) {
	m := Model{ID: 2, Name: "Atlas 1", ModalityInput: ModalityList{ModalityText}, ModalityOutput: ModalityList{ModalityText}, Outdated: true}

	if (Constraints{}).Matches(m) {
		t.Error("outdated model should be excluded without explicit override")
	}
	if !(Constraints{IncludeOutdated: true}).Matches(m) {
		t.Error("outdated model should pass with IncludeOutdated")
	}
}
