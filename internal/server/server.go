// Package server is the browser shell: one page plus the JSON endpoints it
// calls. Per-tab state lives in memory sessions keyed by a cookie.
package server

import (
	"context"
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"stockdesk/internal/ai"
	"stockdesk/internal/document"
	"stockdesk/internal/finance"
	"stockdesk/internal/storage"
)

//go:embed web
var webFS embed.FS

type MarketData interface {
	FetchSeries(ctx context.Context, q finance.TickerQuery) (*finance.PriceSeries, error)
	FetchSnapshot(ctx context.Context, symbol string) (*finance.Snapshot, error)
	FetchQuarterlyIncome(ctx context.Context, symbol string) ([]finance.QuarterlyIncome, error)
}

type Analyst interface {
	Overview(ctx context.Context, ac ai.AnalysisContext, question string, tier ai.Tier) (*ai.Result, error)
	FollowUp(ctx context.Context, ac ai.AnalysisContext, question string, tier ai.Tier) (*ai.Result, error)
	EarningsInsights(ctx context.Context, ac ai.AnalysisContext, quarters []finance.QuarterlyIncome, tier ai.Tier) (*ai.Result, error)
	Provider() string
}

type DocumentProcessor interface {
	Process(ctx context.Context, doc *document.Document, ac ai.AnalysisContext, opts document.Options) (*document.Result, error)
}

type HistoryLog interface {
	RecentAnalyses(symbol string, limit int) ([]storage.Analysis, error)
}

type Options struct {
	UploadMaxBytes     int64
	AnnotationMaxDepth int
	SessionIdle        time.Duration
}

type Server struct {
	market    MarketData
	analyst   Analyst
	documents DocumentProcessor
	history   HistoryLog

	opts     Options
	sessions *sessionStore
	page     *template.Template
	validate *validator.Validate
	log      zerolog.Logger
}

// New builds the server. history may be nil, in which case /api/history
// returns an empty list.
func New(market MarketData, analyst Analyst, documents DocumentProcessor, history HistoryLog, opts Options, logger zerolog.Logger) (*Server, error) {
	if opts.UploadMaxBytes <= 0 {
		opts.UploadMaxBytes = document.DefaultMaxBytes
	}
	page, err := template.ParseFS(webFS, "web/index.html")
	if err != nil {
		return nil, err
	}
	return &Server{
		market:    market,
		analyst:   analyst,
		documents: documents,
		history:   history,
		opts:      opts,
		sessions:  newSessionStore(opts.SessionIdle, opts.AnnotationMaxDepth),
		page:      page,
		validate:  validator.New(),
		log:       logger.With().Str("component", "http").Logger(),
	}, nil
}

func (s *Server) routes(mux *http.ServeMux) {
	static, _ := fs.Sub(webFS, "web")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))
	mux.HandleFunc("GET /{$}", s.handleIndex)

	mux.HandleFunc("POST /api/ticker", s.handleTicker)
	mux.HandleFunc("GET /api/figure", s.handleFigure)
	mux.HandleFunc("GET /api/chart.png", s.handleChartPNG)
	mux.HandleFunc("GET /api/snapshot", s.handleSnapshot)

	mux.HandleFunc("POST /api/annotations", s.handleDraw)
	mux.HandleFunc("POST /api/annotations/undo", s.handleUndo)
	mux.HandleFunc("POST /api/annotations/redo", s.handleRedo)
	mux.HandleFunc("POST /api/annotations/clear", s.handleClear)

	mux.HandleFunc("POST /api/analysis", s.handleOverview)
	mux.HandleFunc("POST /api/ask", s.handleAsk)
	mux.HandleFunc("POST /api/earnings", s.handleEarnings)
	mux.HandleFunc("POST /api/document", s.handleDocument)
	mux.HandleFunc("GET /api/history", s.handleHistory)
}
