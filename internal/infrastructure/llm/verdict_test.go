package llm

import (
	"errors"
	"strings"
	"testing"
	"time"

	"SignalPipeline/internal/domain"
)

func TestCleanJSONResponse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain JSON unchanged",
			input: `{"score":80}`,
			want:  `{"score":80}`,
		},
		{
			name:  "strips json fenced block",
			input: "```json\n{\"score\":80}\n```",
			want:  `{"score":80}`,
		},
		{
			name:  "strips plain fenced block",
			input: "```\n{\"score\":80}\n```",
			want:  `{"score":80}`,
		},
		{
			name:  "drops surrounding prose",
			input: "Here is my evaluation: {\"score\":80} Hope it helps.",
			want:  `{"score":80}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cleanJSONResponse(tt.input)
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseVerdictFull(t *testing.T) {
	t.Parallel()

	raw := "```json\n" + `{
  "score": 82,
  "importance": "High",
  "category": "product",
  "title_ja": " 新モデル ",
  "title_en": "New model",
  "summary_ja": "要約",
  "summary_en": "Summary",
  "tags": ["LLM", " llm ", "#Agents", "", "a", "b", "c", "d", "e", "f", "g"],
  "key_insight": "Cheaper inference"
}` + "\n```"

	v, err := ParseVerdict(raw, domain.CategoryResearch)
	if err != nil {
		t.Fatalf("ParseVerdict: %v", err)
	}
	if v.Score != 82 || v.Importance != domain.ImportanceHigh || v.Skip {
		t.Fatalf("unexpected grading: %+v", v)
	}
	if v.Category != domain.CategoryProduct {
		t.Fatalf("verdict category must be kept, got %s", v.Category)
	}
	if v.TitleJA != "新モデル" {
		t.Fatalf("title not trimmed: %q", v.TitleJA)
	}
	if len(v.Tags) != maxTags || v.Tags[0] != "LLM" || v.Tags[1] != "Agents" {
		t.Fatalf("unexpected tags: %v", v.Tags)
	}
}

func TestParseVerdictDefaults(t *testing.T) {
	t.Parallel()

	v, err := ParseVerdict(`{"score": 91.0}`, domain.CategoryPolicy)
	if err != nil {
		t.Fatalf("ParseVerdict: %v", err)
	}
	if v.Category != domain.CategoryPolicy {
		t.Fatalf("empty category must fall back to source default, got %s", v.Category)
	}
	if v.Importance != domain.ImportanceCritical {
		t.Fatalf("importance must follow score band, got %s", v.Importance)
	}

	v, err = ParseVerdict(`{"score": 40, "importance": "skip"}`, domain.CategoryPolicy)
	if err != nil {
		t.Fatalf("ParseVerdict: %v", err)
	}
	if !v.Skip || v.Importance != domain.ImportanceNormal {
		t.Fatalf("skip must be flagged and normalized: %+v", v)
	}
}

func TestParseVerdictRejects(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"out of range":     `{"score": 150}`,
		"negative":         `{"score": -1}`,
		"fractional":       `{"score": 82.5}`,
		"string score":     `{"score": "high"}`,
		"quoted number":    `{"score": "82"}`,
		"missing score":    `{"importance": "high"}`,
		"unknown category": `{"score": 70, "category": "gossip"}`,
		"bad importance":   `{"score": 70, "importance": "urgent"}`,
		"not json":         `I cannot evaluate this article.`,
		"empty":            "   ",
	}
	for name, raw := range cases {
		if _, err := ParseVerdict(raw, domain.CategoryResearch); !errors.Is(err, ErrInvalidVerdict) {
			t.Fatalf("%s: expected ErrInvalidVerdict, got %v", name, err)
		}
	}
}

func TestBuildPrompt(t *testing.T) {
	t.Parallel()

	c := domain.Candidate{
		URL:         "https://lab.example.com/p",
		Title:       "New model",
		Body:        "Body text",
		Source:      domain.Source{Name: "Lab", Category: domain.CategoryResearch, Trust: 95},
		PublishedAt: time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC),
	}
	p := BuildPrompt(c, "  only score robotics  ")

	if !strings.Contains(p.System, "only score robotics") || !strings.Contains(p.System, `"key_insight"`) {
		t.Fatalf("system prompt missing instructions or format: %s", p.System)
	}
	for _, want := range []string{"Lab", "trust 95/100", "research", "New model", "2025-01-06", "Body text"} {
		if !strings.Contains(p.User, want) {
			t.Fatalf("user prompt missing %q: %s", want, p.User)
		}
	}
}
