package document

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"stockdesk/internal/ai"
)

// ErrCompanyMismatch means the document does not mention the loaded company.
var ErrCompanyMismatch = errors.New("document does not appear to be about this company")

// Analyzer is the part of ai.Analyzer the ingestor needs.
type Analyzer interface {
	SummarizeDocument(ctx context.Context, ac ai.AnalysisContext, text string, tier ai.Tier) (*ai.Result, error)
	TranslateParagraphs(ctx context.Context, symbol, text string, tier ai.Tier) ([]ai.ParagraphTranslation, error)
}

type Options struct {
	Translate bool
	Tier      ai.Tier
}

type Result struct {
	Document   *Document                 `json:"document"`
	Summary    *ai.Result                `json:"summary"`
	Paragraphs []ai.ParagraphTranslation `json:"paragraphs,omitempty"`
}

type Ingestor struct {
	analyzer Analyzer
	log      zerolog.Logger
}

func NewIngestor(a Analyzer, logger zerolog.Logger) *Ingestor {
	return &Ingestor{analyzer: a, log: logger.With().Str("component", "document").Logger()}
}

// Process checks the document against the loaded company and, if it
// matches, summarises it and optionally translates it paragraph by paragraph.
// A mismatch returns ErrCompanyMismatch before any model call.
func (i *Ingestor) Process(ctx context.Context, doc *Document, ac ai.AnalysisContext, opts Options) (*Result, error) {
	if doc == nil || doc.Text == "" {
		return nil, ErrEmptyDocument
	}
	symbol, name := ac.Symbol(), ac.Name()
	if !MatchesCompany(doc.Text, symbol, name) {
		i.log.Info().Str("symbol", symbol).Str("document", doc.Name).Msg("document rejected, company mismatch")
		return nil, fmt.Errorf("%w: %s (%s)", ErrCompanyMismatch, name, symbol)
	}

	summary, err := i.analyzer.SummarizeDocument(ctx, ac, doc.Text, opts.Tier)
	if err != nil {
		return nil, fmt.Errorf("summarize %s: %w", doc.Name, err)
	}
	res := &Result{Document: doc, Summary: summary}
	if opts.Translate {
		paras, err := i.analyzer.TranslateParagraphs(ctx, symbol, doc.Text, opts.Tier)
		if err != nil {
			return nil, fmt.Errorf("translate %s: %w", doc.Name, err)
		}
		res.Paragraphs = paras
	}
	return res, nil
}
