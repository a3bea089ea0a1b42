package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"SignalPipeline/internal/domain"
	"SignalPipeline/internal/ports"
)

// OpenAIScorer scores candidates through OpenAI-compatible chat completions.
type OpenAIScorer struct {
	client  *openai.Client
	model   openai.ChatModel
	timeout time.Duration
}

var _ ports.Scorer = (*OpenAIScorer)(nil)

// NewOpenAIScorer builds a scorer; a non-empty endpoint points the client at a
// compatible gateway instead of api.openai.com.
func NewOpenAIScorer(apiKey, model, endpoint string, timeout time.Duration, opts ...option.RequestOption) *OpenAIScorer {
	if model == "" {
		model = "gpt-4o-mini"
	}
	base := []option.RequestOption{option.WithAPIKey(apiKey)}
	if endpoint != "" {
		base = append(base, option.WithBaseURL(endpoint))
	}
	client := openai.NewClient(append(base, opts...)...)
	return &OpenAIScorer{
		client:  &client,
		model:   openai.ChatModel(model),
		timeout: timeout,
	}
}

func (s *OpenAIScorer) Score(ctx context.Context, c domain.Candidate, instructions string) (domain.Verdict, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	p := BuildPrompt(c, instructions)
	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: s.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(p.System),
			openai.UserMessage(p.User),
		},
	})
	if err != nil {
		return domain.Verdict{}, fmt.Errorf("openai API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return domain.Verdict{}, fmt.Errorf("no response from openai")
	}

	return ParseVerdict(resp.Choices[0].Message.Content, c.Source.Category)
}
