package ai

import (
	"context"
	"fmt"

	"stockdesk/internal/config"
)

// NewCompleter builds the backend named by cfg.Provider.
func NewCompleter(ctx context.Context, cfg config.LLMConfig) (Completer, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAICompleter(cfg.OpenAIKey, cfg.OpenAIBaseURL), nil
	case "gemini":
		return NewGeminiCompleter(ctx, cfg.GoogleKey)
	case "claude":
		return NewClaudeCompleter(cfg.AnthropicKey), nil
	case "offline", "":
		return OfflineCompleter{}, nil
	}
	return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
}
