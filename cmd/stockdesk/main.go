package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"stockdesk/internal/ai"
	"stockdesk/internal/config"
	"stockdesk/internal/document"
	"stockdesk/internal/finance"
	"stockdesk/internal/logging"
	"stockdesk/internal/server"
	"stockdesk/internal/storage"
	"stockdesk/internal/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logging.New(logging.Options{})
		bootLog.Fatal().Err(err).Msg("config")
	}
	log := logging.New(logging.Options{Level: cfg.LogLevel, FilePath: cfg.LogFile})

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("stockdesk stopped")
	}
}

func run(cfg config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := storage.OpenSQLite("file:" + cfg.DBPath + "?_fk=1")
	if err != nil {
		return err
	}
	defer db.Close()
	if err := storage.InitSchema(db); err != nil {
		return err
	}
	log.Info().Str("path", cfg.DBPath).Msg("db: schema ensured (analyses table)")
	store := storage.NewStore(db)

	market := finance.NewClient(cfg.YahooBaseURLs, cfg.HTTPTimeout, log)

	prompts, err := ai.LoadPrompts(cfg.LLM.PromptsDir)
	if err != nil {
		return err
	}
	completer, err := ai.NewCompleter(ctx, cfg.LLM)
	if err != nil {
		return err
	}
	analyzer := ai.NewAnalyzer(completer, prompts, ai.Options{
		ModelFast:       cfg.LLM.ModelFast,
		ModelDeep:       cfg.LLM.ModelDeep,
		MaxTokens:       cfg.LLM.MaxTokens,
		Timeout:         cfg.LLM.Timeout,
		Language:        cfg.LLM.Language,
		TranslateTarget: cfg.LLM.TranslateTarget,
	}, store, log)
	log.Info().Str("provider", completer.Name()).Str("fast", cfg.LLM.ModelFast).Str("deep", cfg.LLM.ModelDeep).Msg("analyzer ready")

	ingestor := document.NewIngestor(analyzer, log)

	web, err := server.New(market, analyzer, ingestor, store, server.Options{
		UploadMaxBytes:     cfg.UploadMaxBytes,
		AnnotationMaxDepth: cfg.AnnotationMaxDepth,
		SessionIdle:        cfg.SessionIdle,
	}, log)
	if err != nil {
		return err
	}

	var webhook http.HandlerFunc
	if cfg.TelegramEnabled() {
		tg, err := telegram.NewBot(cfg.TelegramToken, cfg.WebhookPublicURL, telegram.Deps{
			Market:         market,
			Analyst:        analyzer,
			Documents:      ingestor,
			UploadMaxBytes: cfg.UploadMaxBytes,
			Timeout:        cfg.LLM.Timeout + cfg.HTTPTimeout,
		}, log)
		if err != nil {
			return err
		}
		webhook = tg.WebhookHandler
	} else {
		log.Info().Msg("telegram: disabled (TELEGRAM_BOT_TOKEN / WEBHOOK_PUBLIC_URL not set)")
	}

	mux := server.NewHTTPMux(web, webhook)
	addr := ":" + cfg.Port
	log.Info().Str("addr", addr).Msg("http: listening")
	return server.ListenAndServe(ctx, addr, server.Handler(mux, log))
}
