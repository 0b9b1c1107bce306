package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/llmcompass/compass/internal/catalog"
	"github.com/llmcompass/compass/internal/discovery"
	"github.com/llmcompass/compass/internal/llm"
	"github.com/llmcompass/compass/internal/ranking"
	"github.com/llmcompass/compass/internal/relevance"
)

var (
	// ErrSessionBusy reports a second invocation racing an in-flight one
	// for the same session id.
	ErrSessionBusy = errors.New("workflow: session already has an invocation in flight")

	// ErrValidationContract reports intent-validator output still malformed
	// after the single automatic retry.
	ErrValidationContract = errors.New("workflow: intent validator violated its output contract")

	// ErrRefinementContract reports refiner output still malformed after
	// the single automatic retry.
	ErrRefinementContract = errors.New("workflow: query refiner violated its output contract")

	// ErrSynthesisContract reports synthesizer output still malformed after
	// the single automatic retry.
	ErrSynthesisContract = errors.New("workflow: synthesizer violated its output contract")

	// ErrNotSuspended reports a clarify reply against a session that is not
	// waiting for one.
	ErrNotSuspended = errors.New("workflow: session is not awaiting clarification")
)

// DefaultCutoff is the discovery relevance threshold used when the caller
// does not configure one.
const DefaultCutoff = 0.35

// lockTable grants at most one in-flight invocation per session id. The
// token is held for the duration of one invocation and released on
// suspension or terminal state.
type lockTable struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func (l *lockTable) acquire(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = make(map[string]struct{})
	}
	if _, busy := l.held[id]; busy {
		return false
	}
	l.held[id] = struct{}{}
	return true
}

func (l *lockTable) release(id string) {
	l.mu.Lock()
	delete(l.held, id)
	l.mu.Unlock()
}

// Config wires the orchestrator's collaborators and infrastructure.
type Config struct {
	Validator   llm.IntentValidator
	Refiner     llm.QueryRefiner
	Synthesizer llm.Synthesizer
	Index       relevance.Index
	Engine      *ranking.Engine
	Sessions    SessionStore
	Cutoff      float64
	Logger      *slog.Logger
}

// Orchestrator sequences ValidatingIntent → (AwaitingClarification) →
// RefiningQuery → DiscoveringBenchmarks → Ranking → Synthesizing → Done,
// persisting state only at suspension and terminal stages. Work abandoned
// mid-invocation is discarded, never partially persisted.
type Orchestrator struct {
	cfg   Config
	locks lockTable
}

// New builds an orchestrator. Cutoff defaults to DefaultCutoff and Logger
// to slog.Default.
func New(cfg Config) *Orchestrator {
	if cfg.Cutoff == 0 {
		cfg.Cutoff = DefaultCutoff
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Orchestrator{cfg: cfg}
}

// Start runs a fresh session for the given query. The returned state is
// terminal or suspended at AwaitingClarification with a question to relay.
func (o *Orchestrator) Start(ctx context.Context, sessionID, query string, cons catalog.Constraints) (*State, error) {
	if !o.locks.acquire(sessionID) {
		return nil, fmt.Errorf("session %q: %w", sessionID, ErrSessionBusy)
	}
	defer o.locks.release(sessionID)

	st := &State{
		SessionID:   sessionID,
		Query:       query,
		Constraints: cons,
	}
	return o.run(ctx, st)
}

// Clarify resumes a suspended session with the user's reply, which is
// appended to the stored query before re-entering intent validation.
func (o *Orchestrator) Clarify(ctx context.Context, sessionID, reply string) (*State, error) {
	if !o.locks.acquire(sessionID) {
		return nil, fmt.Errorf("session %q: %w", sessionID, ErrSessionBusy)
	}
	defer o.locks.release(sessionID)

	st, err := o.cfg.Sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !st.Suspended() {
		return nil, fmt.Errorf("session %q in stage %s: %w", sessionID, st.Stage, ErrNotSuspended)
	}

	st.Query = st.Query + "\n[Clarification]: " + reply
	st.ClarificationQuestion = ""
	return o.run(ctx, st)
}

// run executes the state machine from ValidatingIntent to suspension or a
// terminal stage. State is saved only at those stopping points.
func (o *Orchestrator) run(ctx context.Context, st *State) (*State, error) {
	log := o.cfg.Logger.With("session", st.SessionID)

	// The exhaustion check precedes the validator call: after three
	// clarification rounds the fourth attempt terminates no matter what
	// the validator would say.
	if st.ClarificationCount >= maxClarifications {
		st.enter(StageClarificationExhausted,
			"Sorry, I could not narrow down your request after several attempts. Please start over with a more specific task description.",
			map[string]any{"clarification_count": st.ClarificationCount})
		if err := o.cfg.Sessions.Save(ctx, st); err != nil {
			return nil, err
		}
		return st, nil
	}

	st.enter(StageValidatingIntent, "validating query intent", nil)
	decision, err := retryOnce(ctx, log, "intent validator", ErrValidationContract,
		func(ctx context.Context) (*llm.IntentDecision, error) {
			return o.cfg.Validator.ValidateIntent(ctx, st.Query, st.Constraints)
		})
	if err != nil {
		return nil, err
	}

	if decision.Status == llm.IntentNeedsClarification {
		st.ClarificationCount++
		st.ClarificationQuestion = decision.Question
		st.enter(StageAwaitingClarification, decision.Question,
			map[string]any{"clarification_count": st.ClarificationCount, "reasoning": decision.Reasoning})
		if err := o.cfg.Sessions.Save(ctx, st); err != nil {
			return nil, err
		}
		return st, nil
	}

	st.enter(StageRefiningQuery, "deriving io ratio and search phrases", nil)
	refinement, err := retryOnce(ctx, log, "query refiner", ErrRefinementContract,
		func(ctx context.Context) (*llm.Refinement, error) {
			r, err := o.cfg.Refiner.RefineQuery(ctx, st.Query, st.Constraints)
			if err != nil {
				return nil, err
			}
			if verr := r.Validate(); verr != nil {
				return nil, fmt.Errorf("refinement invalid: %v: %w", verr, llm.ErrContract)
			}
			return r, nil
		})
	if err != nil {
		return nil, err
	}
	st.IORatio = refinement.IORatio
	st.SearchQueries = refinement.SearchQueries

	st.enter(StageDiscoveringBenchmarks, "searching benchmarks",
		map[string]any{"queries": st.SearchQueries})
	weighted, err := discovery.Discover(ctx, o.cfg.Index, st.SearchQueries, o.cfg.Cutoff)
	if err != nil {
		return nil, fmt.Errorf("workflow: discovery: %w", err)
	}
	st.WeightedBenchmarks = weighted

	st.enter(StageRanking, "ranking candidate models",
		map[string]any{"benchmarks": len(weighted)})
	ranked, err := o.cfg.Engine.Rank(ctx, weighted, st.Constraints, st.IORatio)
	if err != nil {
		return nil, fmt.Errorf("workflow: ranking: %w", err)
	}
	st.Ranked = ranked

	st.enter(StageSynthesizing, "synthesizing recommendation",
		map[string]any{"no_candidates": ranked.Metadata.NoCandidates, "no_benchmarks": ranked.Metadata.NoBenchmarks})
	answer, err := retryOnce(ctx, log, "synthesizer", ErrSynthesisContract,
		func(ctx context.Context) (*llm.Synthesis, error) {
			return o.cfg.Synthesizer.Synthesize(ctx, llm.SynthesisRequest{Query: st.Query, Ranked: ranked})
		})
	if err != nil {
		return nil, err
	}
	st.Answer = answer

	st.enter(StageDone, "recommendation ready", nil)
	if err := o.cfg.Sessions.Save(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

// retryOnce re-issues a collaborator call exactly once when the output was
// malformed-but-well-typed. Transport errors propagate unchanged.
func retryOnce[T any](ctx context.Context, log *slog.Logger, name string, fatal error, call func(context.Context) (T, error)) (T, error) {
	v, err := call(ctx)
	if err == nil || !errors.Is(err, llm.ErrContract) {
		return v, err
	}
	log.Warn("collaborator returned malformed output, retrying once", "collaborator", name, "err", err)

	v, err = call(ctx)
	if err == nil {
		return v, nil
	}
	var zero T
	if errors.Is(err, llm.ErrContract) {
		return zero, fmt.Errorf("%w: %v", fatal, err)
	}
	return zero, err
}
