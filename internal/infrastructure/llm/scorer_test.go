package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	openaioption "github.com/openai/openai-go/option"

	"SignalPipeline/internal/domain"
)

const replyJSON = `{"score": 88, "importance": "high", "title_en": "Model X", "summary_en": "Fast.", "tags": ["llm"], "key_insight": "Speed"}`

func candidate() domain.Candidate {
	return domain.Candidate{
		URL:    "https://lab.example.com/p",
		Title:  "Model X",
		Body:   "We release Model X.",
		Source: domain.Source{Name: "Lab", Category: domain.CategoryResearch, Trust: 95},
	}
}

func TestAnthropicScorer(t *testing.T) {
	t.Parallel()

	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		text, _ := json.Marshal("```json\n" + replyJSON + "\n```")
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"msg_1","type":"message","role":"assistant","model":"claude-sonnet-4-5",`+
			`"content":[{"type":"text","text":`+string(text)+`}],`+
			`"stop_reason":"end_turn","stop_sequence":null,"usage":{"input_tokens":10,"output_tokens":20}}`)
	}))
	defer srv.Close()

	s := NewAnthropicScorer("sk-test", "", 0, time.Second,
		anthropicoption.WithBaseURL(srv.URL), anthropicoption.WithMaxRetries(0))
	v, err := s.Score(context.Background(), candidate(), "rate AI news")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if v.Score != 88 || v.Category != domain.CategoryResearch {
		t.Fatalf("unexpected verdict: %+v", v)
	}
	if !strings.Contains(gotBody, "rate AI news") || !strings.Contains(gotBody, "claude-sonnet-4-5") {
		t.Fatalf("request body missing instructions or model: %s", gotBody)
	}
}

func TestAnthropicScorerAPIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`)
	}))
	defer srv.Close()

	s := NewAnthropicScorer("sk-test", "", 0, time.Second,
		anthropicoption.WithBaseURL(srv.URL), anthropicoption.WithMaxRetries(0))
	if _, err := s.Score(context.Background(), candidate(), "rate"); err == nil {
		t.Fatalf("expected API error")
	}
}

func TestOpenAIScorer(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		content, _ := json.Marshal(replyJSON)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gpt-4o-mini",`+
			`"choices":[{"index":0,"message":{"role":"assistant","content":`+string(content)+`},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	s := NewOpenAIScorer("sk-test", "", srv.URL, time.Second, openaioption.WithMaxRetries(0))
	v, err := s.Score(context.Background(), candidate(), "rate AI news")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if v.Score != 88 || v.Importance != domain.ImportanceHigh || v.KeyInsight != "Speed" {
		t.Fatalf("unexpected verdict: %+v", v)
	}
}

func TestOpenAIScorerInvalidReply(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gpt-4o-mini",`+
			`"choices":[{"index":0,"message":{"role":"assistant","content":"{\"score\": 150}"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	s := NewOpenAIScorer("sk-test", "", srv.URL, time.Second, openaioption.WithMaxRetries(0))
	if _, err := s.Score(context.Background(), candidate(), "rate"); !errors.Is(err, ErrInvalidVerdict) {
		t.Fatalf("expected ErrInvalidVerdict, got %v", err)
	}
}
