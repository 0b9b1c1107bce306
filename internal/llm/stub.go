package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/llmcompass/compass/internal/catalog"
	"github.com/llmcompass/compass/internal/ranking"
)

// The stubs below are deterministic collaborator implementations used by
// tests and the offline CLI path. Each replays a script when one is set and
// otherwise falls back to a small rule-based behavior, so the full workflow
// runs without a network call.

// IntentStep is one scripted validator response.
type IntentStep struct {
	Decision IntentDecision
	Err      error
}

// StubValidator replays scripted intent decisions in call order, repeating
// the last step once the script is exhausted.
type StubValidator struct {
	Script []IntentStep

	mu    sync.Mutex
	calls int
}

// ValidateIntent implements IntentValidator.
func (s *StubValidator) ValidateIntent(_ context.Context, query string, cons catalog.Constraints) (*IntentDecision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.Script) > 0 {
		step := s.Script[min(s.calls-1, len(s.Script)-1)]
		if step.Err != nil {
			return nil, step.Err
		}
		d := step.Decision
		return &d, nil
	}
	return heuristicIntent(query, cons), nil
}

// Calls reports how many times the validator ran.
func (s *StubValidator) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// heuristicIntent is the offline fallback: reject queries too short to carry
// a task description, and flag a hard mismatch between a text-shaped task and
// an image-only input constraint.
func heuristicIntent(query string, cons catalog.Constraints) *IntentDecision {
	if len(strings.Fields(query)) < 3 {
		return &IntentDecision{
			Status:    IntentNeedsClarification,
			Question:  "Could you describe the task in more detail, including the kind of input and output you expect?",
			Reasoning: "query too short to infer a task",
		}
	}

	lower := strings.ToLower(query)
	textShaped := strings.Contains(lower, "pdf") || strings.Contains(lower, "summar") ||
		strings.Contains(lower, "text") || strings.Contains(lower, "doc")
	imageShaped := strings.Contains(lower, "image") || strings.Contains(lower, "photo") ||
		strings.Contains(lower, "scan") || strings.Contains(lower, "screenshot")
	imageOnlyInput := len(cons.ModalityInput) == 1 && cons.ModalityInput[0] == catalog.ModalityImage
	if imageOnlyInput && textShaped && !imageShaped {
		return &IntentDecision{
			Status:    IntentNeedsClarification,
			Question:  "Your constraints require image input, but the task reads as text processing. Is the source material scanned images, or should the modality constraint be relaxed?",
			Reasoning: "modality constraint conflicts with the described task",
		}
	}
	return &IntentDecision{Status: IntentValid, Reasoning: "task description is specific enough"}
}

// RefineStep is one scripted refiner response.
type RefineStep struct {
	Refinement Refinement
	Err        error
}

// StubRefiner replays scripted refinements, falling back to a deterministic
// derivation from the query text.
type StubRefiner struct {
	Script []RefineStep

	mu    sync.Mutex
	calls int
}

// RefineQuery implements QueryRefiner.
func (s *StubRefiner) RefineQuery(_ context.Context, query string, _ catalog.Constraints) (*Refinement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.Script) > 0 {
		step := s.Script[min(s.calls-1, len(s.Script)-1)]
		if step.Err != nil {
			return nil, step.Err
		}
		r := step.Refinement
		return &r, nil
	}
	return &Refinement{
		IORatio: ranking.IORatio{Input: 0.7, Output: 0.3},
		SearchQueries: []string{
			query,
			query + " benchmark",
			query + " evaluation accuracy",
		},
	}, nil
}

// Calls reports how many times the refiner ran.
func (s *StubRefiner) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// SynthStep is one scripted synthesizer response.
type SynthStep struct {
	Synthesis Synthesis
	Err       error
}

// StubSynthesizer replays scripted answers, falling back to a deterministic
// rendering of the ranked result that honors the insufficient-data flags.
type StubSynthesizer struct {
	Script []SynthStep

	mu    sync.Mutex
	calls int
}

// Synthesize implements Synthesizer.
func (s *StubSynthesizer) Synthesize(_ context.Context, req SynthesisRequest) (*Synthesis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.Script) > 0 {
		step := s.Script[min(s.calls-1, len(s.Script)-1)]
		if step.Err != nil {
			return nil, step.Err
		}
		syn := step.Synthesis
		return &syn, nil
	}
	return renderSynthesis(req), nil
}

func renderSynthesis(req SynthesisRequest) *Synthesis {
	r := req.Ranked
	if r == nil || r.Metadata.NoCandidates || r.Metadata.NoBenchmarks {
		reason := "no models satisfied the stated constraints"
		if r != nil && r.Metadata.NoBenchmarks {
			reason = "no stored benchmarks matched the task"
		}
		return &Synthesis{
			SummaryMarkdown:  fmt.Sprintf("**Insufficient data**: %s. No recommendation can be made from the stored evidence.", reason),
			InsufficientData: true,
		}
	}

	var b strings.Builder
	top := r.TopPerformance[0]
	fmt.Fprintf(&b, "**Top performance**: %s (%s), %s.\n", top.Name, top.Provider, top.Justification)
	if len(r.Budget) > 0 && r.Budget[0].ModelID != top.ModelID {
		budget := r.Budget[0]
		fmt.Fprintf(&b, "**Budget pick**: %s (%s), %s.\n", budget.Name, budget.Provider, budget.Justification)
	}

	var warnings []string
	for _, row := range top.Breakdown {
		if row.IsEstimated {
			warnings = append(warnings, fmt.Sprintf("%s score for %s is %s", row.Label, top.Name, row.EstimationNote))
		}
	}
	for _, ex := range r.Metadata.Excluded {
		warnings = append(warnings, fmt.Sprintf("%s excluded: %s", ex.Name, ex.Reason))
	}
	return &Synthesis{SummaryMarkdown: b.String(), Warnings: warnings}
}
