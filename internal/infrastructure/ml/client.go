package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"SignalPipeline/internal/domain"
	"SignalPipeline/internal/infrastructure/llm"
	"SignalPipeline/internal/ports"
)

// Client talks to a self-hosted scoring service over plain JSON.
type Client struct {
	endpoint string
	apiKey   string
	model    string
	http     *http.Client
}

var _ ports.Scorer = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(endpoint, apiKey, model string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		model:    model,
		http:     &http.Client{Timeout: timeout},
	}
}

type scoreRequest struct {
	Model        string `json:"model,omitempty"`
	System       string `json:"system"`
	Prompt       string `json:"prompt"`
	Instructions string `json:"instructions"`
	Title        string `json:"title"`
	Body         string `json:"body"`
	URL          string `json:"url"`
	Source       string `json:"source"`
	Trust        int    `json:"trust"`
	Category     string `json:"category"`
}

// Score posts the rendered prompt to /score. The service may answer with the
// verdict object itself or wrap the model text as {"output": "..."}.
func (c *Client) Score(ctx context.Context, cand domain.Candidate, instructions string) (domain.Verdict, error) {
	p := llm.BuildPrompt(cand, instructions)
	payload := scoreRequest{
		Model:        c.model,
		System:       p.System,
		Prompt:       p.User,
		Instructions: instructions,
		Title:        cand.Title,
		Body:         cand.Body,
		URL:          cand.URL,
		Source:       cand.Source.Name,
		Trust:        cand.Source.Trust,
		Category:     string(cand.Source.Category),
	}

	raw, err := c.post(ctx, "/score", payload)
	if err != nil {
		return domain.Verdict{}, err
	}

	var wrapped struct {
		Output *string `json:"output"`
	}
	if json.Unmarshal(raw, &wrapped) == nil && wrapped.Output != nil {
		return llm.ParseVerdict(*wrapped.Output, cand.Source.Category)
	}
	return llm.ParseVerdict(string(raw), cand.Source.Category)
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return raw, nil
}
