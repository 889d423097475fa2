package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockdesk/internal/ai"
	"stockdesk/internal/document"
	"stockdesk/internal/finance"
)

type fakeSender struct {
	mu      sync.Mutex
	sent    []tgbotapi.Chattable
	fileURL string
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) GetFileDirectURL(fileID string) (string, error) {
	return f.fileURL + "/" + fileID, nil
}

func (f *fakeSender) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m.Text)
		}
	}
	return out
}

type fakeMarket struct{}

func (fakeMarket) FetchSeries(_ context.Context, q finance.TickerQuery) (*finance.PriceSeries, error) {
	if q.Symbol != "AAPL" {
		return nil, fmt.Errorf("%w: %s", finance.ErrUnknownSymbol, q.Symbol)
	}
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]finance.Bar, 30)
	for i := range bars {
		c := 180 + float64(i)
		bars[i] = finance.Bar{Time: start.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 5000}
	}
	return &finance.PriceSeries{Query: q, Meta: finance.Meta{LongName: "Apple Inc.", Currency: "USD"}, Bars: bars}, nil
}

type fakeAnalyst struct{}

func (fakeAnalyst) FollowUp(_ context.Context, ac ai.AnalysisContext, question string, _ ai.Tier) (*ai.Result, error) {
	v := ai.ReviewQuestion(question, ac.DataYears())
	if v.Level == ai.GuardReject {
		return &ai.Result{Guard: &v}, ai.ErrQuestionRejected
	}
	res := &ai.Result{Kind: ai.KindQuestion, Text: "answer for " + ac.Symbol()}
	if v.Level == ai.GuardWarn {
		res.Guard = &v
	}
	return res, nil
}

type fakeDocuments struct{ got *document.Document }

func (f *fakeDocuments) Process(_ context.Context, doc *document.Document, ac ai.AnalysisContext, _ document.Options) (*document.Result, error) {
	f.got = doc
	if !document.MatchesCompany(doc.Text, ac.Symbol(), ac.Name()) {
		return nil, document.ErrCompanyMismatch
	}
	return &document.Result{Document: doc, Summary: &ai.Result{Text: "summary: " + doc.Name}}, nil
}

func newTestHandlers(t *testing.T) (*Handlers, *fakeSender, *fakeDocuments) {
	files := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/apple":
			fmt.Fprint(w, "Apple Inc. raised its dividend.")
		case "/other":
			fmt.Fprint(w, "Alphabet raised its dividend.")
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(files.Close)
	s := &fakeSender{fileURL: files.URL}
	docs := &fakeDocuments{}
	h := NewHandlers(s, Deps{Market: fakeMarket{}, Analyst: fakeAnalyst{}, Documents: docs, UploadMaxBytes: 1024}, zerolog.Nop())
	return h, s, docs
}

func message(text string) *tgbotapi.Message {
	return &tgbotapi.Message{Text: text, Chat: &tgbotapi.Chat{ID: 42}}
}

func TestHandleStock_SendsChart(t *testing.T) {
	h, s, _ := newTestHandlers(t)
	h.HandleMessage(message("/stock aapl 6mo"))

	require.Len(t, s.sent, 1)
	photo, ok := s.sent[0].(tgbotapi.PhotoConfig)
	require.True(t, ok)
	assert.Contains(t, photo.Caption, "Apple Inc. (AAPL) • 6MO")
	assert.Contains(t, photo.Caption, "MA20 ")
	fb, ok := photo.File.(tgbotapi.FileBytes)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(string(fb.Bytes), "\x89PNG"))
}

func TestHandleStock_Unknown(t *testing.T) {
	h, s, _ := newTestHandlers(t)
	h.HandleMessage(message("/stock ZZZZ"))
	require.Len(t, s.texts(), 1)
	assert.Contains(t, s.texts()[0], "Couldn’t fetch ZZZZ")
}

func TestHandleAsk(t *testing.T) {
	h, s, _ := newTestHandlers(t)
	h.HandleMessage(message("/ask AAPL what is the price trend?"))
	h.HandleMessage(message("/ask AAPL ??"))
	h.HandleMessage(message("/ask AAPL how was revenue in 2015?"))

	texts := s.texts()
	require.Len(t, texts, 3)
	assert.Equal(t, "answer for AAPL", texts[0])
	assert.NotContains(t, texts[1], "answer for")
	assert.True(t, strings.HasPrefix(texts[2], "⚠️ "))
}

func TestHandleDocument(t *testing.T) {
	h, s, docs := newTestHandlers(t)
	m := message("")
	m.Caption = "AAPL"
	m.Document = &tgbotapi.Document{FileID: "apple", FileName: "note.txt", FileSize: 40}
	h.HandleMessage(m)
	require.NotNil(t, docs.got)
	assert.Equal(t, "summary: note.txt", s.texts()[0])

	m.Document = &tgbotapi.Document{FileID: "other", FileName: "goog.txt", FileSize: 40}
	h.HandleMessage(m)
	assert.Contains(t, s.texts()[1], "doesn’t look like it is about Apple Inc.")

	m.Document = &tgbotapi.Document{FileID: "apple", FileName: "big.txt", FileSize: 4096}
	h.HandleMessage(m)
	assert.Contains(t, s.texts()[2], "too large")

	m.Caption = ""
	h.HandleMessage(m)
	assert.Contains(t, s.texts()[3], "ticker as caption")
}

func TestHandleHelpAndNoise(t *testing.T) {
	h, s, _ := newTestHandlers(t)
	h.HandleMessage(message("good morning"))
	assert.Empty(t, s.sent)
	h.HandleMessage(message("/help"))
	require.Len(t, s.texts(), 1)
	assert.Contains(t, s.texts()[0], "/stock SYMBOL")
}

func TestChunk(t *testing.T) {
	assert.Equal(t, []string{""}, chunk("", 10))
	assert.Equal(t, []string{"abc"}, chunk("abc", 10))
	assert.Equal(t, []string{"aaaa\n", "bbbb"}, chunk("aaaa\nbbbb", 6))
	parts := chunk(strings.Repeat("界", 25), 10)
	assert.Len(t, parts, 3)
	assert.Equal(t, 10, len([]rune(parts[0])))
}
