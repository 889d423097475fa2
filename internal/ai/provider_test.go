package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockdesk/internal/config"
)

func TestNewCompleter(t *testing.T) {
	for provider, want := range map[string]string{
		"openai":  "openai",
		"claude":  "claude",
		"offline": "offline",
		"":        "offline",
	} {
		c, err := NewCompleter(context.Background(), config.LLMConfig{Provider: provider, OpenAIKey: "k", AnthropicKey: "k"})
		require.NoError(t, err, provider)
		assert.Equal(t, want, c.Name())
	}

	_, err := NewCompleter(context.Background(), config.LLMConfig{Provider: "bard"})
	assert.Error(t, err)
}
