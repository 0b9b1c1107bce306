package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/llmcompass/compass/internal/catalog"
)

// Client calls an OpenRouter-compatible chat completions endpoint and
// implements all three collaborator interfaces. Replies are schema-validated
// before unmarshalling; violations surface as ErrContract.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	log     *slog.Logger
}

// NewClient builds a collaborator client for the given endpoint and model.
func NewClient(baseURL, apiKey, model string, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
		log:     log,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// complete sends one system+user exchange and returns the raw reply content
// with any markdown code fences stripped.
func (c *Client) complete(ctx context.Context, userPrompt string) ([]byte, error) {
	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		ResponseFormat: &struct {
			Type string `json:"type"`
		}{Type: "json_object"},
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("llm: encode chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("llm: build chat request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("llm: chat call: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("llm: chat call returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("llm: decode chat response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return nil, fmt.Errorf("llm: chat response carried no choices: %w", ErrContract)
	}
	return []byte(stripFences(decoded.Choices[0].Message.Content)), nil
}

// stripFences removes a surrounding markdown code fence, which models emit
// even when asked for bare JSON.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func constraintsJSON(cons catalog.Constraints) string {
	raw, err := json.Marshal(cons)
	if err != nil {
		return "{}"
	}
	return string(raw)
}

// ValidateIntent implements IntentValidator.
func (c *Client) ValidateIntent(ctx context.Context, query string, cons catalog.Constraints) (*IntentDecision, error) {
	raw, err := c.complete(ctx, fmt.Sprintf(intentValidatorPrompt, constraintsJSON(cons), query))
	if err != nil {
		return nil, err
	}
	if errs := validateJSONBytes(intentSchema, raw); len(errs) > 0 {
		return nil, fmt.Errorf("llm: intent decision: %s: %w", strings.Join(errs, "; "), ErrContract)
	}
	var decision IntentDecision
	if err := json.Unmarshal(raw, &decision); err != nil {
		return nil, fmt.Errorf("llm: decode intent decision: %w", err)
	}
	return &decision, nil
}

// RefineQuery implements QueryRefiner.
func (c *Client) RefineQuery(ctx context.Context, query string, cons catalog.Constraints) (*Refinement, error) {
	raw, err := c.complete(ctx, fmt.Sprintf(queryRefinerPrompt, query, constraintsJSON(cons)))
	if err != nil {
		return nil, err
	}
	if errs := validateJSONBytes(refinementSchema, raw); len(errs) > 0 {
		return nil, fmt.Errorf("llm: refinement: %s: %w", strings.Join(errs, "; "), ErrContract)
	}
	var ref Refinement
	if err := json.Unmarshal(raw, &ref); err != nil {
		return nil, fmt.Errorf("llm: decode refinement: %w", err)
	}
	// The schema bounds each ratio but cannot check the sum.
	if err := ref.Validate(); err != nil {
		return nil, fmt.Errorf("llm: refinement: %v: %w", err, ErrContract)
	}
	return &ref, nil
}

// Synthesize implements Synthesizer.
func (c *Client) Synthesize(ctx context.Context, req SynthesisRequest) (*Synthesis, error) {
	rankedJSON, err := json.MarshalIndent(req.Ranked, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("llm: encode ranked data: %w", err)
	}
	raw, err := c.complete(ctx, fmt.Sprintf(synthesisPrompt, rankedJSON, req.Query))
	if err != nil {
		return nil, err
	}
	if errs := validateJSONBytes(synthesisSchema, raw); len(errs) > 0 {
		return nil, fmt.Errorf("llm: synthesis: %s: %w", strings.Join(errs, "; "), ErrContract)
	}
	var syn Synthesis
	if err := json.Unmarshal(raw, &syn); err != nil {
		return nil, fmt.Errorf("llm: decode synthesis: %w", err)
	}
	return &syn, nil
}
