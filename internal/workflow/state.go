// Package workflow drives one query from intent validation to a synthesized,
// cited recommendation through a fixed-topology state machine. The
// orchestrator owns all control-flow branching; discovery and ranking stay
// pure functions of their inputs.
package workflow

import (
	"time"

	"github.com/llmcompass/compass/internal/catalog"
	"github.com/llmcompass/compass/internal/discovery"
	"github.com/llmcompass/compass/internal/llm"
	"github.com/llmcompass/compass/internal/ranking"
)

// Stage names one state-machine node.
type Stage string

const (
	StageValidatingIntent       Stage = "validating_intent"
	StageAwaitingClarification  Stage = "awaiting_clarification"
	StageRefiningQuery          Stage = "refining_query"
	StageDiscoveringBenchmarks  Stage = "discovering_benchmarks"
	StageRanking                Stage = "ranking"
	StageSynthesizing           Stage = "synthesizing"
	StageDone                   Stage = "done"
	StageClarificationExhausted Stage = "clarification_exhausted"
)

// maxClarifications bounds consecutive clarification rounds per session.
const maxClarifications = 3

// TraceEvent is one ordered, append-only log entry describing a stage
// transition. The transport layer renders these for live progress.
type TraceEvent struct {
	Stage   Stage          `json:"stage"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
	At      time.Time      `json:"at"`
}

// State is the single mutable object threaded through one workflow
// invocation, then persisted between clarification turns. It is owned
// exclusively by the orchestrator while an invocation is in flight.
type State struct {
	SessionID   string              `json:"session_id"`
	Query       string              `json:"query"`
	Constraints catalog.Constraints `json:"constraints"`

	ClarificationCount    int    `json:"clarification_count"`
	ClarificationQuestion string `json:"clarification_question,omitempty"`

	IORatio            ranking.IORatio               `json:"io_ratio"`
	SearchQueries      []string                      `json:"search_queries,omitempty"`
	WeightedBenchmarks []discovery.WeightedBenchmark `json:"weighted_benchmarks,omitempty"`
	Ranked             *ranking.Result               `json:"ranked,omitempty"`
	Answer             *llm.Synthesis                `json:"answer,omitempty"`

	Stage Stage        `json:"stage"`
	Trace []TraceEvent `json:"trace"`
}

// enter transitions to the given stage, appending exactly one trace event.
func (s *State) enter(stage Stage, message string, data map[string]any) {
	s.Stage = stage
	s.Trace = append(s.Trace, TraceEvent{
		Stage:   stage,
		Message: message,
		Data:    data,
		At:      time.Now().UTC(),
	})
}

// Terminal reports whether the state machine has finished.
func (s *State) Terminal() bool {
	return s.Stage == StageDone || s.Stage == StageClarificationExhausted
}

// Suspended reports whether the session is waiting on a clarification reply.
func (s *State) Suspended() bool {
	return s.Stage == StageAwaitingClarification
}
