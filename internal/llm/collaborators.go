// Package llm defines the typed contracts of the three language-model
// collaborators (intent validation, query refinement, synthesis) plus two
// interchangeable implementations: an OpenRouter-compatible HTTP client and
// deterministic stubs. The collaborators are pure request/response; the
// workflow orchestrator owns all control flow around them.
package llm

import (
	"context"
	"errors"

	"github.com/llmcompass/compass/internal/catalog"
	"github.com/llmcompass/compass/internal/ranking"
)

// ErrContract reports collaborator output that is well-formed transport-wise
// but violates the typed output contract. Callers may retry exactly once.
var ErrContract = errors.New("llm: collaborator output violates contract")

// IntentStatus is the intent validator's verdict.
type IntentStatus string

const (
	IntentValid              IntentStatus = "valid"
	IntentNeedsClarification IntentStatus = "needs_clarification"
)

// IntentDecision is the intent validator's typed output.
type IntentDecision struct {
	Status    IntentStatus `json:"status"`
	Question  string       `json:"clarification_question,omitempty"`
	Reasoning string       `json:"reasoning,omitempty"`
}

// IntentValidator decides whether a query is specific enough to search on,
// and consistent with the active constraints.
type IntentValidator interface {
	ValidateIntent(ctx context.Context, query string, cons catalog.Constraints) (*IntentDecision, error)
}

// Refinement is the query refiner's typed output: a predicted input/output
// token ratio and 3 to 5 semantic search phrases.
type Refinement struct {
	IORatio       ranking.IORatio `json:"predicted_io_ratio"`
	SearchQueries []string        `json:"search_queries"`
}

// Validate enforces the refiner's output contract.
func (r *Refinement) Validate() error {
	if err := r.IORatio.Validate(); err != nil {
		return err
	}
	if len(r.SearchQueries) < 3 || len(r.SearchQueries) > 5 {
		return errors.New("llm: refinement must carry 3 to 5 search queries")
	}
	for _, q := range r.SearchQueries {
		if q == "" {
			return errors.New("llm: refinement search query is empty")
		}
	}
	return nil
}

// QueryRefiner turns a validated query into a Refinement.
type QueryRefiner interface {
	RefineQuery(ctx context.Context, query string, cons catalog.Constraints) (*Refinement, error)
}

// SynthesisRequest carries everything the synthesizer may cite.
type SynthesisRequest struct {
	Query  string
	Ranked *ranking.Result
}

// Synthesis is the final user-facing answer.
type Synthesis struct {
	SummaryMarkdown  string   `json:"summary_markdown"`
	Warnings         []string `json:"warnings,omitempty"`
	InsufficientData bool     `json:"insufficient_data"`
}

// Synthesizer renders the ranked evidence into prose. When the ranking
// metadata reports no candidates or no benchmarks it must produce an explicit
// insufficient-data answer, never a fabricated recommendation.
type Synthesizer interface {
	Synthesize(ctx context.Context, req SynthesisRequest) (*Synthesis, error)
}
