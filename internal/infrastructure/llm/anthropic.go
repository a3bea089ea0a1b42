package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"SignalPipeline/internal/domain"
	"SignalPipeline/internal/ports"
)

// AnthropicScorer scores candidates through the Anthropic Messages API.
type AnthropicScorer struct {
	client    *anthropic.Client
	model     anthropic.Model
	maxTokens int64
	timeout   time.Duration
}

var _ ports.Scorer = (*AnthropicScorer)(nil)

// NewAnthropicScorer builds a scorer; extra options are forwarded to the SDK.
func NewAnthropicScorer(apiKey, model string, maxTokens int64, timeout time.Duration, opts ...option.RequestOption) *AnthropicScorer {
	if model == "" {
		model = "claude-sonnet-4-5"
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	client := anthropic.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &AnthropicScorer{
		client:    &client,
		model:     anthropic.Model(model),
		maxTokens: maxTokens,
		timeout:   timeout,
	}
}

func (s *AnthropicScorer) Score(ctx context.Context, c domain.Candidate, instructions string) (domain.Verdict, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	p := BuildPrompt(c, instructions)
	resp, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     s.model,
		MaxTokens: s.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: p.System},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(p.User)),
		},
	})
	if err != nil {
		return domain.Verdict{}, fmt.Errorf("anthropic API error: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return domain.Verdict{}, fmt.Errorf("no response from anthropic")
	}

	return ParseVerdict(text.String(), c.Source.Category)
}
