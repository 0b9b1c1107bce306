package webapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/llmcompass/compass/internal/catalog"
	"github.com/llmcompass/compass/internal/llm"
	"github.com/llmcompass/compass/internal/ranking"
	"github.com/llmcompass/compass/internal/relevance"
	"github.com/llmcompass/compass/internal/workflow"
)

type fixedIndex struct {
	hits []relevance.Hit
}

func (f *fixedIndex) Search(_ context.Context, _ string) ([]relevance.Hit, error) {
	return f.hits, nil
}

func newTestServer(t *testing.T, validator *llm.StubValidator) *Server {
	t.Helper()
	ctx := context.Background()
	store := catalog.NewMemoryStore()

	m := &catalog.Model{Name: "Atlas", Provider: "Acme", CostInput1M: 1, CostOutput1M: 4}
	require.NoError(t, store.PutModel(ctx, m))
	b := &catalog.Benchmark{Name: "HumanEval", Description: "python code generation"}
	require.NoError(t, store.PutBenchmark(ctx, b))
	require.NoError(t, store.PutScore(ctx, &catalog.Score{
		ModelID: m.ID, BenchmarkID: b.ID, Value: 85, MetricUnit: "pass@1",
		SourceType: catalog.SourcePaper, SourceURL: "https://example.com/paper",
	}))

	orch := workflow.New(workflow.Config{
		Validator:   validator,
		Refiner:     &llm.StubRefiner{},
		Synthesizer: &llm.StubSynthesizer{},
		Index:       &fixedIndex{hits: []relevance.Hit{{BenchmarkID: b.ID, Similarity: 0.9}}},
		Engine:      ranking.NewEngine(store, nil),
		Sessions:    workflow.NewMemorySessionStore(),
	})
	return New(orch, "", nil)
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	router := newTestServer(t, &llm.StubValidator{}).Router()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestQuery_OK(t *testing.T) {
	router := newTestServer(t, &llm.StubValidator{}).Router()

	w := postJSON(t, router, "/api/v1/query", QueryRequest{
		UserQuery: "summarize long legal contracts into bullet points",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp QueryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "ok", resp.Status)
	require.NotEmpty(t, resp.SessionID)
	require.NotNil(t, resp.RankedData)
	require.NotNil(t, resp.Answer)
	require.NotEmpty(t, resp.Traceability["events"])
}

func TestQuery_TooShortRejected(t *testing.T) {
	router := newTestServer(t, &llm.StubValidator{}).Router()

	w := postJSON(t, router, "/api/v1/query", QueryRequest{UserQuery: "hi"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQuery_ClarificationRoundTrip(t *testing.T) {
	validator := &llm.StubValidator{Script: []llm.IntentStep{
		{Decision: llm.IntentDecision{Status: llm.IntentNeedsClarification, Question: "Which language?"}},
		{Decision: llm.IntentDecision{Status: llm.IntentValid}},
	}}
	router := newTestServer(t, validator).Router()

	w := postJSON(t, router, "/api/v1/query", QueryRequest{
		UserQuery: "write some code for my project",
		SessionID: "s1",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp QueryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "needs_clarification", resp.Status)
	require.Equal(t, "Which language?", resp.ClarificationQuestion)

	w = postJSON(t, router, "/api/v1/query/s1/clarify", ClarifyRequest{UserReply: "Python"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "ok", resp.Status)
	require.Contains(t, resp.UserQuery, "[Clarification]: Python")
}

func TestClarify_UnknownSessionIs404(t *testing.T) {
	router := newTestServer(t, &llm.StubValidator{}).Router()

	w := postJSON(t, router, "/api/v1/query/ghost/clarify", ClarifyRequest{UserReply: "more detail"})
	require.Equal(t, http.StatusNotFound, w.Code)

	var resp QueryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "error", resp.Status)
	require.NotEmpty(t, resp.Errors)
}

func TestClarify_FinishedSessionIs409(t *testing.T) {
	router := newTestServer(t, &llm.StubValidator{}).Router()

	w := postJSON(t, router, "/api/v1/query", QueryRequest{
		UserQuery: "summarize long legal contracts",
		SessionID: "s1",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = postJSON(t, router, "/api/v1/query/s1/clarify", ClarifyRequest{UserReply: "extra"})
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestAPIKeyRequired(t *testing.T) {
	srv := newTestServer(t, &llm.StubValidator{})
	srv.apiKey = "secret"
	router := srv.Router()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-API-Key", "secret")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}
