package ml

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"SignalPipeline/internal/domain"
	"SignalPipeline/internal/infrastructure/llm"
)

func cand() domain.Candidate {
	return domain.Candidate{
		URL:    "https://lab.example.com/p",
		Title:  "Model X",
		Body:   "We release Model X.",
		Source: domain.Source{Name: "Lab", Category: domain.CategoryProduct, Trust: 92},
	}
}

func TestClientScoreDirectVerdict(t *testing.T) {
	t.Parallel()

	var got scoreRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/score" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("missing bearer token")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		io.WriteString(w, `{"score": 77, "importance": "high", "title_en": "Model X"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "key", "local-7b", time.Second)
	v, err := c.Score(context.Background(), cand(), "rate it")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if v.Score != 77 || v.Category != domain.CategoryProduct {
		t.Fatalf("unexpected verdict: %+v", v)
	}
	if got.Instructions != "rate it" || got.Trust != 92 || got.Model != "local-7b" {
		t.Fatalf("unexpected request payload: %+v", got)
	}
}

func TestClientScoreWrappedOutput(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"output": "Sure! {\"score\": 64, \"category\": \"business\"}"}`)
	}))
	defer srv.Close()

	v, err := NewClient(srv.URL, "", "", time.Second).Score(context.Background(), cand(), "rate it")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if v.Score != 64 || v.Category != domain.CategoryBusiness || v.Importance != domain.ImportanceNormal {
		t.Fatalf("unexpected verdict: %+v", v)
	}
}

func TestClientScoreFailures(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"score": 150}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "", time.Second)
	if _, err := c.Score(context.Background(), cand(), "rate it"); !errors.Is(err, llm.ErrInvalidVerdict) {
		t.Fatalf("expected ErrInvalidVerdict, got %v", err)
	}

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer down.Close()
	if _, err := NewClient(down.URL, "", "", time.Second).Score(context.Background(), cand(), "rate it"); err == nil {
		t.Fatalf("expected status error")
	}
}
