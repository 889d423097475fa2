package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"stockdesk/internal/finance"
	"stockdesk/internal/storage"
)

const (
	maxDocumentChars     = 15000
	defaultMaxParagraphs = 60
)

// Recorder receives one entry per completion, successful or not.
type Recorder interface {
	SaveAnalysis(a storage.Analysis) error
}

type Options struct {
	ModelFast       string
	ModelDeep       string
	MaxTokens       int
	Timeout         time.Duration
	Language        string
	TranslateTarget string
	MaxParagraphs   int
}

// Result is the text of one analysis and where it came from.
type Result struct {
	Kind     Kind          `json:"kind"`
	Text     string        `json:"text"`
	Provider string        `json:"provider"`
	Model    string        `json:"model"`
	Guard    *GuardVerdict `json:"guard,omitempty"`
	Duration time.Duration `json:"-"`
}

type ParagraphTranslation struct {
	Original   string `json:"original"`
	Translated string `json:"translated"`
}

type Analyzer struct {
	completer Completer
	prompts   *Prompts
	opts      Options
	recorder  Recorder
	log       zerolog.Logger
}

// NewAnalyzer wires a completer to the prompt set. recorder may be nil.
func NewAnalyzer(c Completer, p *Prompts, opts Options, recorder Recorder, logger zerolog.Logger) *Analyzer {
	if opts.Language == "" {
		opts.Language = "English"
	}
	if opts.TranslateTarget == "" {
		opts.TranslateTarget = "Traditional Chinese"
	}
	if opts.MaxParagraphs <= 0 {
		opts.MaxParagraphs = defaultMaxParagraphs
	}
	return &Analyzer{
		completer: c,
		prompts:   p,
		opts:      opts,
		recorder:  recorder,
		log:       logger.With().Str("component", "ai").Str("provider", c.Name()).Logger(),
	}
}

func (a *Analyzer) Provider() string { return a.completer.Name() }

func (a *Analyzer) model(t Tier) string {
	if t == TierDeep && a.opts.ModelDeep != "" {
		return a.opts.ModelDeep
	}
	return a.opts.ModelFast
}

// Overview is the valuation and momentum narrative for the loaded ticker.
// question may be empty.
func (a *Analyzer) Overview(ctx context.Context, ac AnalysisContext, question string, tier Tier) (*Result, error) {
	p := ac.payload()
	p.Question = CleanText(question)
	data := promptData{Symbol: ac.Symbol(), Name: ac.Name(), Payload: toJSON(p), Question: p.Question}
	return a.run(ctx, KindOverview, tier, ac.Symbol(), p.Question, data, p)
}

// FollowUp screens the question first. A rejected question returns
// ErrQuestionRejected without calling the model; a warned one carries the
// guard hint into the system prompt and the verdict in the result.
func (a *Analyzer) FollowUp(ctx context.Context, ac AnalysisContext, question string, tier Tier) (*Result, error) {
	verdict := ReviewQuestion(question, ac.DataYears())
	if verdict.Level == GuardReject {
		return &Result{Kind: KindQuestion, Guard: &verdict}, fmt.Errorf("%w: %s", ErrQuestionRejected, verdict.Message)
	}
	p := ac.payload()
	p.Question = CleanText(question)
	data := promptData{Symbol: ac.Symbol(), Name: ac.Name(), Payload: toJSON(p), Question: p.Question, GuardHint: verdict.SystemHint}
	res, err := a.run(ctx, KindQuestion, tier, ac.Symbol(), p.Question, data, p)
	if res != nil && verdict.Level == GuardWarn {
		res.Guard = &verdict
	}
	return res, err
}

type earningsPayload struct {
	Symbol   string                    `json:"symbol"`
	Name     string                    `json:"name"`
	Quarters []finance.QuarterlyIncome `json:"quarters"`
}

// EarningsInsights summarises the most recent quarters (up to four).
func (a *Analyzer) EarningsInsights(ctx context.Context, ac AnalysisContext, quarters []finance.QuarterlyIncome, tier Tier) (*Result, error) {
	if len(quarters) > 4 {
		quarters = quarters[len(quarters)-4:]
	}
	p := &earningsPayload{Symbol: ac.Symbol(), Name: ac.Name(), Quarters: quarters}
	data := promptData{Symbol: ac.Symbol(), Name: ac.Name(), Payload: toJSON(p)}
	return a.run(ctx, KindEarnings, tier, ac.Symbol(), "", data, p)
}

// SummarizeDocument cleans the text and sends at most the first 15000 characters.
func (a *Analyzer) SummarizeDocument(ctx context.Context, ac AnalysisContext, text string, tier Tier) (*Result, error) {
	clean := Truncate(CleanText(text), maxDocumentChars)
	if clean == "" {
		return nil, fmt.Errorf("%w: document has no text", ErrEmptyResponse)
	}
	data := promptData{Symbol: ac.Symbol(), Name: ac.Name(), Text: clean}
	return a.run(ctx, KindDocument, tier, ac.Symbol(), "", data, nil)
}

// TranslateParagraphs translates each non-empty line with its own call. Any
// failed paragraph fails the whole translation.
func (a *Analyzer) TranslateParagraphs(ctx context.Context, symbol, text string, tier Tier) ([]ParagraphTranslation, error) {
	parts := SplitParagraphs(text)
	if len(parts) > a.opts.MaxParagraphs {
		a.log.Info().Int("paragraphs", len(parts)).Int("max", a.opts.MaxParagraphs).Msg("translation capped")
		parts = parts[:a.opts.MaxParagraphs]
	}
	out := make([]ParagraphTranslation, 0, len(parts))
	for i, p := range parts {
		data := promptData{Symbol: symbol, Target: a.opts.TranslateTarget, Text: p}
		res, err := a.run(ctx, KindTranslate, tier, symbol, "", data, nil)
		if err != nil {
			return nil, fmt.Errorf("paragraph %d of %d: %w", i+1, len(parts), err)
		}
		out = append(out, ParagraphTranslation{Original: p, Translated: res.Text})
	}
	return out, nil
}

func (a *Analyzer) run(ctx context.Context, kind Kind, tier Tier, symbol, question string, data promptData, payload any) (*Result, error) {
	data.Language = a.opts.Language
	if data.Target == "" {
		data.Target = a.opts.TranslateTarget
	}
	system, user, err := a.prompts.render(kind, data)
	if err != nil {
		return nil, err
	}
	if a.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.Timeout)
		defer cancel()
	}

	req := Request{Kind: kind, Model: a.model(tier), System: system, User: user, MaxTokens: a.opts.MaxTokens, Payload: payload}
	start := time.Now()
	text, err := a.completer.Complete(ctx, req)
	text = strings.TrimSpace(text)
	if err == nil && text == "" {
		err = fmt.Errorf("%w: %s returned no text", ErrEmptyResponse, a.completer.Name())
	}
	elapsed := time.Since(start)

	if kind != KindTranslate || err != nil {
		a.record(kind, symbol, req.Model, question, text, elapsed, err)
	}
	ev := a.log.Info()
	if err != nil {
		ev = a.log.Warn().Err(err)
	}
	ev.Str("kind", string(kind)).Str("symbol", symbol).Str("model", req.Model).Dur("elapsed", elapsed).Msg("completion")
	if err != nil {
		return nil, err
	}
	return &Result{Kind: kind, Text: text, Provider: a.completer.Name(), Model: req.Model, Duration: elapsed}, nil
}

func (a *Analyzer) record(kind Kind, symbol, model, question, answer string, elapsed time.Duration, err error) {
	if a.recorder == nil {
		return
	}
	entry := storage.Analysis{
		TS:       time.Now(),
		Symbol:   symbol,
		Kind:     string(kind),
		Provider: a.completer.Name(),
		Model:    model,
		Success:  err == nil,
		Duration: elapsed.Milliseconds(),
		Question: question,
		Answer:   answer,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	if rerr := a.recorder.SaveAnalysis(entry); rerr != nil {
		a.log.Error().Err(rerr).Msg("failed to record analysis")
	}
}
