package llm

import (
	"fmt"
	"strings"

	"SignalPipeline/internal/domain"
)

const responseFormat = `Respond with a single JSON object and nothing else:
{
  "score": integer 0-100,
  "importance": "critical" | "high" | "normal" | "skip",
  "category": "research" | "product" | "business" | "policy",
  "title_ja": "Japanese title (max 40 characters)",
  "title_en": "English title (max 60 characters)",
  "summary_ja": "Japanese summary (2-3 sentences)",
  "summary_en": "English summary (2-3 sentences)",
  "tags": ["tag1", "tag2", "tag3"],
  "key_insight": "one sentence on the key takeaway"
}`

// Prompt is the rendered request for one candidate.
type Prompt struct {
	System string
	User   string
}

// BuildPrompt renders the operator instructions verbatim followed by the
// required response shape, and the article itself as the user message.
func BuildPrompt(c domain.Candidate, instructions string) Prompt {
	system := "You are an AI news curator. Evaluate the article below.\n\n" +
		strings.TrimSpace(instructions) + "\n\n" + responseFormat

	var b strings.Builder
	fmt.Fprintf(&b, "Source: %s (trust %d/100, default category %s)\n", c.Source.Name, c.Source.Trust, c.Source.Category)
	fmt.Fprintf(&b, "Title: %s\n", c.Title)
	fmt.Fprintf(&b, "URL: %s\n", c.URL)
	if !c.PublishedAt.IsZero() {
		fmt.Fprintf(&b, "Published: %s\n", c.PublishedAt.UTC().Format("2006-01-02"))
	}
	fmt.Fprintf(&b, "Body:\n%s", c.Body)

	return Prompt{System: system, User: b.String()}
}
