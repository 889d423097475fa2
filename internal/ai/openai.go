package ai

import (
	"context"
	"fmt"

	oa "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type OpenAICompleter struct {
	cli oa.Client
}

// NewOpenAICompleter talks to the OpenAI API, or to any compatible endpoint when baseURL is set.
func NewOpenAICompleter(apiKey, baseURL string) *OpenAICompleter {
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAICompleter{cli: oa.NewClient(opts...)}
}

func (c *OpenAICompleter) Name() string { return "openai" }

func (c *OpenAICompleter) Complete(ctx context.Context, req Request) (string, error) {
	params := oa.ChatCompletionNewParams{
		Model: oa.ChatModel(req.Model),
		Messages: []oa.ChatCompletionMessageParamUnion{
			oa.SystemMessage(req.System),
			oa.UserMessage(req.User),
		},
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = oa.Int(int64(req.MaxTokens))
	}
	resp, err := c.cli.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices from OpenAI", ErrEmptyResponse)
	}
	return resp.Choices[0].Message.Content, nil
}
