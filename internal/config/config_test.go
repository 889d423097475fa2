package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"PORT", "DB_PATH", "LOG_LEVEL", "LOG_FILE", "LLM_PROVIDER", "OPENAI_API_KEY", "OPENAI_BASE_URL",
		"GOOGLE_API_KEY", "ANTHROPIC_API_KEY", "LLM_MODEL_FAST", "LLM_MODEL_DEEP", "LLM_MAX_TOKENS",
		"LLM_TIMEOUT", "PROMPTS_DIR", "YAHOO_BASE_URLS", "HTTP_TIMEOUT", "UPLOAD_MAX_BYTES",
		"ANNOTATION_MAX_DEPTH", "SESSION_IDLE", "TELEGRAM_BOT_TOKEN", "WEBHOOK_PUBLIC_URL",
		"LLM_LANGUAGE", "TRANSLATE_TARGET",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9095", cfg.Port)
	assert.Equal(t, "./data/stockdesk.db", cfg.DBPath)
	assert.Equal(t, int64(10<<20), cfg.UploadMaxBytes)
	assert.Equal(t, 0, cfg.AnnotationMaxDepth)
	assert.Equal(t, 15*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "offline", cfg.LLM.Provider, "no key falls back to offline")
	assert.False(t, cfg.TelegramEnabled())
}

func TestLoad_ProviderWithKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_PROVIDER", "gemini")
	t.Setenv("GOOGLE_API_KEY", "k")
	t.Setenv("LLM_MODEL_DEEP", "gemini-2.5-pro")
	t.Setenv("YAHOO_BASE_URLS", "http://a.example, http://b.example")
	t.Setenv("TELEGRAM_BOT_TOKEN", "t")
	t.Setenv("WEBHOOK_PUBLIC_URL", "https://bot.example")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "gemini-2.0-flash", cfg.LLM.ModelFast)
	assert.Equal(t, "gemini-2.5-pro", cfg.LLM.ModelDeep)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.YahooBaseURLs)
	assert.True(t, cfg.TelegramEnabled())
}

func TestLoad_LogLevelAlias(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_LEVEL", "WARNING")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoad_Invalid(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_PROVIDER", "bard")
	t.Setenv("OPENAI_API_KEY", "x")
	_, err := Load()
	assert.Error(t, err)

	clearEnv(t)
	t.Setenv("HTTP_TIMEOUT", "soon")
	_, err = Load()
	assert.Error(t, err)

	clearEnv(t)
	t.Setenv("PORT", "http")
	_, err = Load()
	assert.Error(t, err)
}
