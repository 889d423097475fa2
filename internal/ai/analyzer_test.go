package ai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockdesk/internal/finance"
	"stockdesk/internal/storage"
)

type fakeCompleter struct {
	mu    sync.Mutex
	reqs  []Request
	reply func(Request) (string, error)
}

func (f *fakeCompleter) Name() string { return "fake" }

func (f *fakeCompleter) Complete(_ context.Context, req Request) (string, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	return f.reply(req)
}

type memRecorder struct {
	mu      sync.Mutex
	entries []storage.Analysis
}

func (m *memRecorder) SaveAnalysis(a storage.Analysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, a)
	return nil
}

func testContext() AnalysisContext {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]finance.Bar, 80)
	for i := range bars {
		c := 100 + float64(i)
		bars[i] = finance.Bar{Time: start.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1e6}
	}
	s := &finance.PriceSeries{
		Query: finance.TickerQuery{Symbol: "AAPL", Period: "3mo", Interval: "1d"},
		Meta:  finance.Meta{LongName: "Apple Inc.", Currency: "USD"},
		Bars:  bars,
	}
	return AnalysisContext{Series: s, Indicators: finance.ComputeIndicators(s)}
}

func newTestAnalyzer(t *testing.T, c Completer, rec Recorder) *Analyzer {
	t.Helper()
	p, err := LoadPrompts("")
	require.NoError(t, err)
	return NewAnalyzer(c, p, Options{ModelFast: "small", ModelDeep: "large", MaxTokens: 500, Timeout: 5 * time.Second}, rec, zerolog.Nop())
}

func TestOverview_SingleCallWithPayload(t *testing.T) {
	fc := &fakeCompleter{reply: func(Request) (string, error) { return "  analysis text \n", nil }}
	rec := &memRecorder{}
	a := newTestAnalyzer(t, fc, rec)

	res, err := a.Overview(context.Background(), testContext(), "", TierDeep)
	require.NoError(t, err)
	assert.Equal(t, "analysis text", res.Text)
	assert.Equal(t, "large", res.Model)

	require.Len(t, fc.reqs, 1)
	req := fc.reqs[0]
	assert.Equal(t, KindOverview, req.Kind)
	assert.Equal(t, 500, req.MaxTokens)
	assert.Contains(t, req.User, `"symbol": "AAPL"`)
	assert.Contains(t, req.User, "oneMonthReturn")
	assert.Contains(t, req.System, "English")

	require.Len(t, rec.entries, 1)
	assert.True(t, rec.entries[0].Success)
	assert.Equal(t, "overview", rec.entries[0].Kind)
}

func TestOverview_ErrorsAreSurfaced(t *testing.T) {
	fc := &fakeCompleter{reply: func(Request) (string, error) { return "", errors.New("quota exceeded") }}
	rec := &memRecorder{}
	a := newTestAnalyzer(t, fc, rec)

	_, err := a.Overview(context.Background(), testContext(), "valuation?", TierFast)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Len(t, fc.reqs, 1, "no retries")
	require.Len(t, rec.entries, 1)
	assert.False(t, rec.entries[0].Success)
}

func TestOverview_EmptyText(t *testing.T) {
	fc := &fakeCompleter{reply: func(Request) (string, error) { return "   ", nil }}
	a := newTestAnalyzer(t, fc, nil)
	_, err := a.Overview(context.Background(), testContext(), "", TierFast)
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestFollowUp_Guard(t *testing.T) {
	fc := &fakeCompleter{reply: func(Request) (string, error) { return "answer", nil }}
	a := newTestAnalyzer(t, fc, nil)
	ac := testContext()

	res, err := a.FollowUp(context.Background(), ac, "??", TierFast)
	assert.ErrorIs(t, err, ErrQuestionRejected)
	require.NotNil(t, res)
	assert.Equal(t, GuardReject, res.Guard.Level)
	assert.Empty(t, fc.reqs, "rejected questions never reach the model")

	res, err = a.FollowUp(context.Background(), ac, "What happened to revenue in 2010?", TierFast)
	require.NoError(t, err)
	require.NotNil(t, res.Guard)
	assert.Equal(t, GuardWarn, res.Guard.Level)
	require.Len(t, fc.reqs, 1)
	assert.Contains(t, fc.reqs[0].System, "outside the data range")
	assert.Contains(t, fc.reqs[0].User, "2010")

	res, err = a.FollowUp(context.Background(), ac, "Is the stock price trend healthy?", TierFast)
	require.NoError(t, err)
	assert.Nil(t, res.Guard)
}

func TestEarningsInsights_KeepsLastFourQuarters(t *testing.T) {
	fc := &fakeCompleter{reply: func(Request) (string, error) { return "ok", nil }}
	a := newTestAnalyzer(t, fc, nil)
	var qs []finance.QuarterlyIncome
	for i := 0; i < 6; i++ {
		rev := float64(100 + i)
		qs = append(qs, finance.QuarterlyIncome{PeriodEnd: time.Date(2023, time.Month(1+i), 1, 0, 0, 0, 0, time.UTC), Revenue: &rev})
	}
	_, err := a.EarningsInsights(context.Background(), testContext(), qs, TierFast)
	require.NoError(t, err)
	p, ok := fc.reqs[0].Payload.(*earningsPayload)
	require.True(t, ok)
	require.Len(t, p.Quarters, 4)
	assert.Equal(t, 105.0, *p.Quarters[3].Revenue)
}

func TestSummarizeDocument_Truncates(t *testing.T) {
	fc := &fakeCompleter{reply: func(Request) (string, error) { return "summary", nil }}
	a := newTestAnalyzer(t, fc, nil)
	long := strings.Repeat("word ", 5000)
	_, err := a.SummarizeDocument(context.Background(), testContext(), long, TierFast)
	require.NoError(t, err)
	assert.LessOrEqual(t, len([]rune(fc.reqs[0].User)), maxDocumentChars)
}

func TestTranslateParagraphs(t *testing.T) {
	fc := &fakeCompleter{reply: func(r Request) (string, error) { return "T:" + r.User, nil }}
	a := newTestAnalyzer(t, fc, nil)
	out, err := a.TranslateParagraphs(context.Background(), "AAPL", "one\n\ntwo\nthree", TierFast)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, ParagraphTranslation{Original: "two", Translated: "T:two"}, out[1])
	assert.Len(t, fc.reqs, 3)
	assert.Contains(t, fc.reqs[0].System, "Traditional Chinese")
}

func TestTranslateParagraphs_FailureFailsWhole(t *testing.T) {
	var n int32
	fc := &fakeCompleter{reply: func(r Request) (string, error) {
		if atomic.AddInt32(&n, 1) == 2 {
			return "", errors.New("boom")
		}
		return "ok", nil
	}}
	a := newTestAnalyzer(t, fc, nil)
	out, err := a.TranslateParagraphs(context.Background(), "AAPL", "a\nb\nc", TierFast)
	require.Error(t, err)
	assert.Nil(t, out)
	assert.Contains(t, err.Error(), "paragraph 2 of 3")
}

func TestOfflineCompleter(t *testing.T) {
	a := newTestAnalyzer(t, OfflineCompleter{}, nil)
	ac := testContext()

	res, err := a.Overview(context.Background(), ac, "Is it expensive?", TierFast)
	require.NoError(t, err)
	assert.Contains(t, res.Text, "rule-based")
	assert.Contains(t, res.Text, "Is it expensive?")
	assert.Equal(t, "offline", res.Provider)

	res, err = a.SummarizeDocument(context.Background(), ac, "Revenue grew and margin expanded.", TierFast)
	require.NoError(t, err)
	assert.Contains(t, res.Text, "revenue, margin")

	tr, err := a.TranslateParagraphs(context.Background(), "AAPL", "hello world", TierFast)
	require.NoError(t, err)
	assert.Contains(t, tr[0].Translated, "hello world")
}

func TestOpenAICompleter_AgainstCompatibleEndpoint(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		switch r.Header.Get("Authorization") {
		case "Bearer empty":
			_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`))
		case "Bearer broke":
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"quota","type":"insufficient_quota"}}`))
		default:
			_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","created":1,"model":"m",
"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"hi there"}}]}`))
		}
	}))
	defer srv.Close()

	req := Request{Kind: KindOverview, Model: "m", System: "s", User: "u", MaxTokens: 10}

	out, err := NewOpenAICompleter("good", srv.URL+"/v1/").Complete(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "hi there", out)

	_, err = NewOpenAICompleter("empty", srv.URL+"/v1/").Complete(context.Background(), req)
	assert.ErrorIs(t, err, ErrEmptyResponse)

	before := atomic.LoadInt32(&hits)
	_, err = NewOpenAICompleter("broke", srv.URL+"/v1/").Complete(context.Background(), req)
	assert.Error(t, err)
	assert.Equal(t, before+1, atomic.LoadInt32(&hits), "no retries")
}

func TestLoadPrompts_Override(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "translate.toml"), []byte(`
system = "Translate into {{.Target}} please."
user = "<<{{.Text}}>>"
`), 0o644))
	p, err := LoadPrompts(dir)
	require.NoError(t, err)
	sys, usr, err := p.render(KindTranslate, promptData{Target: "French", Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "Translate into French please.", sys)
	assert.Equal(t, "<<hello>>", usr)

	sys, _, err = p.render(KindOverview, promptData{Language: "English", Symbol: "X"})
	require.NoError(t, err)
	assert.Contains(t, sys, "English")
}

func TestLoadPrompts_BadOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "document.toml"), []byte(`system = "only system"`), 0o644))
	_, err := LoadPrompts(dir)
	assert.Error(t, err)
}
