package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/llmcompass/compass/internal/catalog"
	"github.com/llmcompass/compass/internal/ranking"
)

func TestIntentSchema(t *testing.T) {
	require.Empty(t, validateJSONBytes(intentSchema, []byte(`{"status":"valid","reasoning":"ok"}`)))
	require.Empty(t, validateJSONBytes(intentSchema, []byte(`{"status":"needs_clarification","clarification_question":"which language?"}`)))

	require.NotEmpty(t, validateJSONBytes(intentSchema, []byte(`{"status":"maybe"}`)))
	require.NotEmpty(t, validateJSONBytes(intentSchema, []byte(`{"status":"needs_clarification"}`)),
		"needs_clarification without a question must fail")
	require.NotEmpty(t, validateJSONBytes(intentSchema, []byte(`not json`)))
}

func TestRefinementSchema(t *testing.T) {
	good := `{"predicted_io_ratio":{"input":0.7,"output":0.3},"search_queries":["a","b","c"]}`
	require.Empty(t, validateJSONBytes(refinementSchema, []byte(good)))

	tooFew := `{"predicted_io_ratio":{"input":0.7,"output":0.3},"search_queries":["a","b"]}`
	require.NotEmpty(t, validateJSONBytes(refinementSchema, []byte(tooFew)))

	tooMany := `{"predicted_io_ratio":{"input":0.7,"output":0.3},"search_queries":["a","b","c","d","e","f"]}`
	require.NotEmpty(t, validateJSONBytes(refinementSchema, []byte(tooMany)))
}

func TestRefinementValidate_RatioSum(t *testing.T) {
	r := Refinement{
		IORatio:       ranking.IORatio{Input: 0.7, Output: 0.4},
		SearchQueries: []string{"a", "b", "c"},
	}
	require.ErrorIs(t, r.Validate(), ranking.ErrInvalidIORatio)

	r.IORatio = ranking.IORatio{Input: 0.7, Output: 0.3}
	require.NoError(t, r.Validate())
}

func TestStripFences(t *testing.T) {
	require.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	require.Equal(t, `{"a":1}`, stripFences("```\n{\"a\":1}\n```"))
	require.Equal(t, `{"a":1}`, stripFences(`{"a":1}`))
}

// chatServer returns a test server replying with the given message content.
func chatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		reply := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(reply))
	}))
}

func TestClient_ValidateIntent(t *testing.T) {
	srv := chatServer(t, `{"status":"valid","reasoning":"specific task"}`)
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", "test-model", nil)
	decision, err := c.ValidateIntent(context.Background(), "summarize legal contracts in german", catalog.Constraints{})
	require.NoError(t, err)
	require.Equal(t, IntentValid, decision.Status)
}

func TestClient_ContractViolation(t *testing.T) {
	srv := chatServer(t, `{"status":"perhaps"}`)
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", "test-model", nil)
	_, err := c.ValidateIntent(context.Background(), "summarize legal contracts", catalog.Constraints{})
	require.ErrorIs(t, err, ErrContract)
}

func TestClient_RefineQueryChecksRatioSum(t *testing.T) {
	srv := chatServer(t, `{"predicted_io_ratio":{"input":0.9,"output":0.9},"search_queries":["a","b","c"]}`)
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", "test-model", nil)
	_, err := c.RefineQuery(context.Background(), "summarize legal contracts", catalog.Constraints{})
	require.ErrorIs(t, err, ErrContract)
}

func TestClient_HTTPErrorIsNotContract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream overloaded", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", "test-model", nil)
	_, err := c.ValidateIntent(context.Background(), "summarize legal contracts", catalog.Constraints{})
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrContract)
}

func TestStubValidator_ModalityMismatchScenario(t *testing.T) {
	v := &StubValidator{}
	decision, err := v.ValidateIntent(context.Background(), "Summarize 100-page PDF",
		catalog.Constraints{ModalityInput: []catalog.Modality{catalog.ModalityImage}})
	require.NoError(t, err)
	require.Equal(t, IntentNeedsClarification, decision.Status)
	require.NotEmpty(t, decision.Question)
}

func TestStubValidator_ScriptRepeatsLastStep(t *testing.T) {
	v := &StubValidator{Script: []IntentStep{
		{Decision: IntentDecision{Status: IntentNeedsClarification, Question: "which domain?"}},
		{Decision: IntentDecision{Status: IntentValid}},
	}}

	first, err := v.ValidateIntent(context.Background(), "q", catalog.Constraints{})
	require.NoError(t, err)
	require.Equal(t, IntentNeedsClarification, first.Status)

	for i := 0; i < 3; i++ {
		d, err := v.ValidateIntent(context.Background(), "q", catalog.Constraints{})
		require.NoError(t, err)
		require.Equal(t, IntentValid, d.Status, "call %d", i+2)
	}
	require.Equal(t, 4, v.Calls())
}

func TestStubRefiner_DefaultContract(t *testing.T) {
	r := &StubRefiner{}
	ref, err := r.RefineQuery(context.Background(), "translate medical papers", catalog.Constraints{})
	require.NoError(t, err)
	require.NoError(t, ref.Validate())
}

func TestStubSynthesizer_InsufficientData(t *testing.T) {
	s := &StubSynthesizer{}

	syn, err := s.Synthesize(context.Background(), SynthesisRequest{
		Query:  "anything",
		Ranked: &ranking.Result{Metadata: ranking.Metadata{NoBenchmarks: true}},
	})
	require.NoError(t, err)
	require.True(t, syn.InsufficientData)
	require.Contains(t, syn.SummaryMarkdown, "Insufficient data")
}

func TestStubSynthesizer_RendersWinners(t *testing.T) {
	ranked := &ranking.Result{
		TopPerformance: []ranking.RankedModel{{ModelID: 1, Name: "Premium", Provider: "Acme", Justification: "strong evidence"}},
		Budget:         []ranking.RankedModel{{ModelID: 2, Name: "Cheap", Provider: "Globex", Justification: "low cost"}},
	}
	s := &StubSynthesizer{}

	syn, err := s.Synthesize(context.Background(), SynthesisRequest{Query: "q", Ranked: ranked})
	require.NoError(t, err)
	require.False(t, syn.InsufficientData)
	require.Contains(t, syn.SummaryMarkdown, "Premium")
	require.Contains(t, syn.SummaryMarkdown, "Cheap")
}

func ExampleStubValidator() {
	v := &StubValidator{}
	d, _ := v.ValidateIntent(context.Background(), "extract entities from customer support emails", catalog.Constraints{})
	fmt.Println(d.Status)
	// Output: valid
}
