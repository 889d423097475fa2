package telegram

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"stockdesk/internal/ai"
	"stockdesk/internal/chart"
	"stockdesk/internal/document"
	"stockdesk/internal/finance"
)

var (
	// /stock SYMBOL [period]
	reStock = regexp.MustCompile(`^/stock(?:@[\w_]+)?\s+([A-Za-z0-9\.^_=+-]+)(?:\s+(\w+))?$`)
	// /ask SYMBOL question...
	reAsk  = regexp.MustCompile(`(?s)^/ask(?:@[\w_]+)?\s+([A-Za-z0-9\.^_=+-]+)\s+(.+)$`)
	reHelp = regexp.MustCompile(`^/(help|start)(?:@[\w_]+)?$`)
)

// Telegram rejects messages longer than 4096 characters.
const maxMessageRunes = 4000

type MarketData interface {
	FetchSeries(ctx context.Context, q finance.TickerQuery) (*finance.PriceSeries, error)
}

type Analyst interface {
	FollowUp(ctx context.Context, ac ai.AnalysisContext, question string, tier ai.Tier) (*ai.Result, error)
}

type DocumentProcessor interface {
	Process(ctx context.Context, doc *document.Document, ac ai.AnalysisContext, opts document.Options) (*document.Result, error)
}

type Deps struct {
	Market         MarketData
	Analyst        Analyst
	Documents      DocumentProcessor
	UploadMaxBytes int64
	Timeout        time.Duration
}

// sender is the slice of tgbotapi.BotAPI the handlers use.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
}

type Handlers struct {
	api      sender
	deps     Deps
	download *resty.Client
	log      zerolog.Logger
}

func NewHandlers(api sender, deps Deps, logger zerolog.Logger) *Handlers {
	if deps.Timeout <= 0 {
		deps.Timeout = 2 * time.Minute
	}
	if deps.UploadMaxBytes <= 0 {
		deps.UploadMaxBytes = document.DefaultMaxBytes
	}
	return &Handlers{
		api:      api,
		deps:     deps,
		download: resty.New().SetTimeout(30 * time.Second),
		log:      logger,
	}
}

func (h *Handlers) HandleMessage(m *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), h.deps.Timeout)
	defer cancel()

	if m.Document != nil {
		h.handleDocument(ctx, m)
		return
	}

	txt := strings.TrimSpace(m.Text)
	switch {
	case reStock.MatchString(txt):
		g := reStock.FindStringSubmatch(txt)
		h.handleStock(ctx, m.Chat.ID, g[1], g[2])

	case reAsk.MatchString(txt):
		g := reAsk.FindStringSubmatch(txt)
		h.handleAsk(ctx, m.Chat.ID, g[1], g[2])

	case reHelp.MatchString(txt):
		h.handleHelp(m.Chat.ID)
	}
}

func (h *Handlers) load(ctx context.Context, symbol, period string) (ai.AnalysisContext, error) {
	q, err := finance.NewTickerQuery(symbol, period)
	if err != nil {
		return ai.AnalysisContext{}, err
	}
	series, err := h.deps.Market.FetchSeries(ctx, q)
	if err != nil {
		return ai.AnalysisContext{}, err
	}
	return ai.AnalysisContext{Series: series, Indicators: finance.ComputeIndicators(series)}, nil
}

func (h *Handlers) handleStock(ctx context.Context, chatID int64, symbol, period string) {
	ac, err := h.load(ctx, symbol, period)
	if err != nil {
		h.reply(chatID, fmt.Sprintf("Couldn’t fetch %s: %v", strings.ToUpper(symbol), err))
		return
	}
	img, err := chart.RenderPNG(ac.Series, ac.Indicators, chart.FigureOptions{ShowMA: true})
	if err != nil {
		h.reply(chatID, "Chart failed: "+err.Error())
		return
	}
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: ac.Symbol() + ".png", Bytes: img})
	photo.Caption = stockCaption(ac)
	if _, err := h.api.Send(photo); err != nil {
		h.log.Error().Err(err).Int64("chat_id", chatID).Msg("send photo")
	}
}

func stockCaption(ac ai.AnalysisContext) string {
	q := ac.Series.Query
	caption := ac.Name() + " (" + q.Symbol + ") • " + strings.ToUpper(q.Period)
	latest, ok := finance.LatestDaily(ac.Series, ac.Indicators)
	if !ok {
		return caption
	}
	return fmt.Sprintf("%s\n%s  MA5 %s · MA10 %s · MA20 %s · Vol %.0f",
		caption, latest.Date.Format("2006-01-02"), fmtPtr(latest.MA5), fmtPtr(latest.MA10), fmtPtr(latest.MA20), latest.Volume)
}

func fmtPtr(v *float64) string {
	if v == nil {
		return "–"
	}
	return fmt.Sprintf("%.2f", *v)
}

func (h *Handlers) handleAsk(ctx context.Context, chatID int64, symbol, question string) {
	ac, err := h.load(ctx, symbol, "")
	if err != nil {
		h.reply(chatID, fmt.Sprintf("Couldn’t fetch %s: %v", strings.ToUpper(symbol), err))
		return
	}
	res, err := h.deps.Analyst.FollowUp(ctx, ac, question, ai.TierFast)
	if errors.Is(err, ai.ErrQuestionRejected) && res != nil && res.Guard != nil {
		h.reply(chatID, res.Guard.Message)
		return
	}
	if err != nil {
		h.reply(chatID, "Analysis failed: "+err.Error())
		return
	}
	text := res.Text
	if res.Guard != nil && res.Guard.Message != "" {
		text = "⚠️ " + res.Guard.Message + "\n\n" + text
	}
	h.reply(chatID, text)
}

// handleDocument treats the caption as the ticker the document belongs to.
func (h *Handlers) handleDocument(ctx context.Context, m *tgbotapi.Message) {
	chatID := m.Chat.ID
	symbol := strings.TrimSpace(m.Caption)
	if symbol == "" {
		h.reply(chatID, "Send the document with the ticker as caption, e.g. AAPL")
		return
	}
	if int64(m.Document.FileSize) > h.deps.UploadMaxBytes {
		h.reply(chatID, fmt.Sprintf("Document too large (limit %d bytes)", h.deps.UploadMaxBytes))
		return
	}
	ac, err := h.load(ctx, symbol, "")
	if err != nil {
		h.reply(chatID, fmt.Sprintf("Couldn’t fetch %s: %v", strings.ToUpper(symbol), err))
		return
	}

	data, err := h.fetchFile(ctx, m.Document.FileID)
	if err != nil {
		h.log.Error().Err(err).Str("file_id", m.Document.FileID).Msg("download document")
		h.reply(chatID, "Couldn’t download the document: "+err.Error())
		return
	}
	doc, err := document.Extract(m.Document.FileName, m.Document.MimeType, data, h.deps.UploadMaxBytes)
	if err != nil {
		h.reply(chatID, "Couldn’t read the document: "+err.Error())
		return
	}
	res, err := h.deps.Documents.Process(ctx, doc, ac, document.Options{Tier: ai.TierFast})
	if errors.Is(err, document.ErrCompanyMismatch) {
		h.reply(chatID, fmt.Sprintf("%s doesn’t look like it is about %s.", doc.Name, ac.Name()))
		return
	}
	if err != nil {
		h.reply(chatID, "Summary failed: "+err.Error())
		return
	}
	h.reply(chatID, res.Summary.Text)
}

func (h *Handlers) fetchFile(ctx context.Context, fileID string) ([]byte, error) {
	url, err := h.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, err
	}
	resp, err := h.download.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("download status %d", resp.StatusCode())
	}
	return resp.Body(), nil
}

func (h *Handlers) handleHelp(chatID int64) {
	help := "Commands\n\n" +
		"- /stock SYMBOL [1mo|3mo|6mo|1y|2y|5y|max] - Close price chart with MA5/10/20\n" +
		"- /ask SYMBOL question - Ask about a ticker's price, valuation or momentum\n" +
		"- Send a PDF or text file with a ticker as caption to get a summary\n" +
		"\nData from Yahoo Finance. Analysis is informational, not investment advice."
	h.reply(chatID, help)
}

func (h *Handlers) reply(chatID int64, text string) {
	for _, part := range chunk(text, maxMessageRunes) {
		if _, err := h.api.Send(tgbotapi.NewMessage(chatID, part)); err != nil {
			h.log.Error().Err(err).Int64("chat_id", chatID).Msg("send message")
			return
		}
	}
}

// chunk splits text into pieces of at most n runes, preferring line breaks.
func chunk(text string, n int) []string {
	runes := []rune(text)
	var out []string
	for len(runes) > n {
		cut := n
		for i := n; i > n/2; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		out = append(out, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 || len(out) == 0 {
		out = append(out, string(runes))
	}
	return out
}
