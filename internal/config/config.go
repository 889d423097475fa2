package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Port     string `validate:"required,numeric"`
	DBPath   string `validate:"required"`
	LogLevel string `validate:"oneof=debug info warn error"`
	LogFile  string

	LLM LLMConfig

	YahooBaseURLs []string      `validate:"dive,url"`
	HTTPTimeout   time.Duration `validate:"gt=0"`

	UploadMaxBytes     int64         `validate:"gt=0"`
	AnnotationMaxDepth int           `validate:"gte=0"`
	SessionIdle        time.Duration `validate:"gt=0"`

	// Telegram shell, enabled only when both are set.
	TelegramToken    string
	WebhookPublicURL string `validate:"omitempty,url"`
}

type LLMConfig struct {
	Provider        string `validate:"oneof=openai gemini claude offline"`
	OpenAIKey       string
	OpenAIBaseURL   string `validate:"omitempty,url"`
	GoogleKey       string
	AnthropicKey    string
	ModelFast       string
	ModelDeep       string
	MaxTokens       int           `validate:"gt=0"`
	Timeout         time.Duration `validate:"gt=0"`
	PromptsDir      string
	Language        string `validate:"required"`
	TranslateTarget string `validate:"required"`
}

// TelegramEnabled reports whether the chat shell should be started.
func (c Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.WebhookPublicURL != ""
}

// APIKey returns the key for the configured provider.
func (l LLMConfig) APIKey() string {
	switch l.Provider {
	case "openai":
		return l.OpenAIKey
	case "gemini":
		return l.GoogleKey
	case "claude":
		return l.AnthropicKey
	}
	return ""
}

var defaultModels = map[string][2]string{
	"openai":  {"gpt-4o-mini", "gpt-4o"},
	"gemini":  {"gemini-2.0-flash", "gemini-1.5-pro"},
	"claude":  {"claude-3-5-haiku-latest", "claude-sonnet-4-5"},
	"offline": {"rules", "rules"},
}

func normalizeLevel(level string) string {
	level = strings.ToLower(level)
	if level == "warning" {
		return "warn"
	}
	return level
}

func env(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("env %s: %w", k, err)
	}
	return n, nil
}

func envDuration(k string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("env %s: %w", k, err)
	}
	return d, nil
}

// Load reads .env (if present) and the environment, applies defaults and validates.
// Without an API key for the chosen provider the offline analyzer is used.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:             env("PORT", "9095"),
		DBPath:           env("DB_PATH", "./data/stockdesk.db"),
		LogLevel:         normalizeLevel(env("LOG_LEVEL", "info")),
		LogFile:          os.Getenv("LOG_FILE"),
		TelegramToken:    os.Getenv("TELEGRAM_BOT_TOKEN"),
		WebhookPublicURL: os.Getenv("WEBHOOK_PUBLIC_URL"),
		LLM: LLMConfig{
			Provider:        strings.ToLower(env("LLM_PROVIDER", "openai")),
			OpenAIKey:       os.Getenv("OPENAI_API_KEY"),
			OpenAIBaseURL:   os.Getenv("OPENAI_BASE_URL"),
			GoogleKey:       os.Getenv("GOOGLE_API_KEY"),
			AnthropicKey:    os.Getenv("ANTHROPIC_API_KEY"),
			PromptsDir:      os.Getenv("PROMPTS_DIR"),
			Language:        env("LLM_LANGUAGE", "English"),
			TranslateTarget: env("TRANSLATE_TARGET", "Traditional Chinese"),
		},
	}
	if hosts := os.Getenv("YAHOO_BASE_URLS"); hosts != "" {
		for _, h := range strings.Split(hosts, ",") {
			if h = strings.TrimSpace(h); h != "" {
				cfg.YahooBaseURLs = append(cfg.YahooBaseURLs, h)
			}
		}
	}

	var err error
	if cfg.HTTPTimeout, err = envDuration("HTTP_TIMEOUT", 15*time.Second); err != nil {
		return cfg, err
	}
	if cfg.SessionIdle, err = envDuration("SESSION_IDLE", 2*time.Hour); err != nil {
		return cfg, err
	}
	if cfg.LLM.Timeout, err = envDuration("LLM_TIMEOUT", 90*time.Second); err != nil {
		return cfg, err
	}
	if cfg.LLM.MaxTokens, err = envInt("LLM_MAX_TOKENS", 1500); err != nil {
		return cfg, err
	}
	if cfg.AnnotationMaxDepth, err = envInt("ANNOTATION_MAX_DEPTH", 0); err != nil {
		return cfg, err
	}
	maxBytes, err := envInt("UPLOAD_MAX_BYTES", 10<<20)
	if err != nil {
		return cfg, err
	}
	cfg.UploadMaxBytes = int64(maxBytes)

	if _, known := defaultModels[cfg.LLM.Provider]; known && cfg.LLM.APIKey() == "" {
		cfg.LLM.Provider = "offline"
	}
	models := defaultModels[cfg.LLM.Provider]
	cfg.LLM.ModelFast = env("LLM_MODEL_FAST", models[0])
	cfg.LLM.ModelDeep = env("LLM_MODEL_DEEP", models[1])

	if err := validator.New().Struct(cfg); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
