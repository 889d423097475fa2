// Package ai turns market data, questions and documents into LLM analyses.
package ai

import (
	"context"
	"errors"
	"strings"
)

// ErrEmptyResponse means the provider answered without any text.
var ErrEmptyResponse = errors.New("empty response from model")

type Kind string

const (
	KindOverview  Kind = "overview"
	KindQuestion  Kind = "question"
	KindEarnings  Kind = "earnings"
	KindDocument  Kind = "document"
	KindTranslate Kind = "translate"
)

// Tier picks between the cheaper and the stronger configured model.
type Tier string

const (
	TierFast Tier = "fast"
	TierDeep Tier = "deep"
)

func ParseTier(s string) Tier {
	if strings.EqualFold(strings.TrimSpace(s), string(TierDeep)) {
		return TierDeep
	}
	return TierFast
}

// Request is one completion call. Payload carries the structured data the
// prompt was rendered from; remote providers ignore it.
type Request struct {
	Kind      Kind
	Model     string
	System    string
	User      string
	MaxTokens int
	Payload   any
}

// Completer is a single LLM backend. Implementations make exactly one call
// per Complete and never retry.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
	Name() string
}
