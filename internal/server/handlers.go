package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"stockdesk/internal/ai"
	"stockdesk/internal/chart"
	"stockdesk/internal/document"
	"stockdesk/internal/finance"
	"stockdesk/internal/storage"
)

const maxJSONBody = 1 << 20

type tickerRequest struct {
	Symbol string `json:"symbol" validate:"required,max=20"`
	Period string `json:"period" validate:"max=10"`
	Start  string `json:"start" validate:"omitempty,datetime=2006-01-02"`
	End    string `json:"end" validate:"omitempty,datetime=2006-01-02"`
}

type analysisRequest struct {
	Question string `json:"question" validate:"max=2000"`
	Tier     string `json:"tier" validate:"omitempty,oneof=fast deep"`
}

type tickerResponse struct {
	Symbol    string              `json:"symbol"`
	Name      string              `json:"name"`
	Query     finance.TickerQuery `json:"query"`
	Profile   finance.Profile     `json:"profile"`
	Momentum  finance.Momentum    `json:"momentum"`
	Valuation finance.Valuation   `json:"valuation"`
	Risk      *finance.RiskStats  `json:"risk,omitempty"`
	RSI14     *float64            `json:"rsi14,omitempty"`
	LatestMA  *finance.LatestMA   `json:"latestDaily,omitempty"`
	Figure    *chart.Figure       `json:"figure"`
	FetchedAt time.Time           `json:"fetchedAt"`
	BarCount  int                 `json:"barCount"`
}

type annotationResponse struct {
	Annotations []chart.Stroke `json:"annotations"`
	CanUndo     bool           `json:"canUndo"`
	CanRedo     bool           `json:"canRedo"`
	Changed     bool           `json:"changed"`
}

type analysisResponse struct {
	*ai.Result
	HTML string `json:"html"`
}

func (s *Server) decode(r *http.Request, v any) error {
	body := http.MaxBytesReader(nil, r.Body, maxJSONBody)
	if err := json.NewDecoder(body).Decode(v); err != nil && err != io.EOF {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if err := s.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.sessions.lookup(w, r)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := map[string]any{
		"Periods":  finance.Periods,
		"Default":  finance.DefaultPeriod,
		"Provider": s.analyst.Provider(),
	}
	if err := s.page.Execute(w, data); err != nil {
		s.log.Error().Err(err).Msg("render index")
	}
}

// handleTicker loads a new series into the session. On failure the session
// keeps whatever it had before.
func (s *Server) handleTicker(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.lookup(w, r)
	var req tickerRequest
	if err := s.decode(r, &req); err != nil {
		writeError(w, s.log, err, nil)
		return
	}
	q, err := finance.NewTickerQuery(req.Symbol, req.Period)
	if err != nil {
		writeError(w, s.log, err, nil)
		return
	}
	if req.Start != "" || req.End != "" {
		start, _ := time.Parse("2006-01-02", req.Start)
		end, _ := time.Parse("2006-01-02", req.End)
		if q, err = q.WithRange(start, end); err != nil {
			writeError(w, s.log, fmt.Errorf("%w: %v", errBadRequest, err), nil)
			return
		}
	}

	series, err := s.market.FetchSeries(r.Context(), q)
	if err != nil {
		writeError(w, s.log, err, nil)
		return
	}
	ind := finance.ComputeIndicators(series)
	fig, err := chart.BuildFigure(series, ind, chart.FigureOptions{Kind: chart.KindCandlestick, ShowMA: true}, nil)
	if err != nil {
		writeError(w, s.log, err, nil)
		return
	}

	sess.mu.Lock()
	sess.series, sess.indicators = series, ind
	sess.history.Reset()
	sess.results = map[ai.Kind]*ai.Result{}
	sess.mu.Unlock()

	resp := tickerResponse{
		Symbol:    series.Query.Symbol,
		Name:      series.DisplayName(),
		Query:     series.Query,
		Profile:   series.Profile,
		Momentum:  ind.Momentum,
		Valuation: ind.Valuation,
		Risk:      ind.Risk,
		RSI14:     lastValue(ind.RSI14),
		Figure:    fig,
		FetchedAt: series.FetchedAt,
		BarCount:  len(series.Bars),
	}
	if latest, ok := finance.LatestDaily(series, ind); ok {
		resp.LatestMA = &latest
	}
	writeJSON(w, http.StatusOK, resp)
}

func lastValue(xs []*float64) *float64 {
	for i := len(xs) - 1; i >= 0; i-- {
		if xs[i] != nil {
			return xs[i]
		}
	}
	return nil
}

func figureOptions(r *http.Request) chart.FigureOptions {
	opts := chart.FigureOptions{Kind: chart.ParseKind(r.URL.Query().Get("kind")), ShowMA: true}
	if v := r.URL.Query().Get("ma"); v != "" {
		opts.ShowMA, _ = strconv.ParseBool(v)
	}
	return opts
}

func (s *Server) handleFigure(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.lookup(w, r)
	sess.mu.Lock()
	series, ind, strokes := sess.series, sess.indicators, sess.history.Strokes()
	sess.mu.Unlock()
	if series == nil {
		writeError(w, s.log, errNoTicker, nil)
		return
	}
	fig, err := chart.BuildFigure(series, ind, figureOptions(r), strokes)
	if err != nil {
		writeError(w, s.log, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, fig)
}

func (s *Server) handleChartPNG(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.lookup(w, r)
	sess.mu.Lock()
	series, ind := sess.series, sess.indicators
	sess.mu.Unlock()
	if series == nil {
		writeError(w, s.log, errNoTicker, nil)
		return
	}
	img, err := chart.RenderPNG(series, ind, figureOptions(r))
	if err != nil {
		writeError(w, s.log, err, nil)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", series.Query.Symbol+".png"))
	_, _ = w.Write(img)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.lookup(w, r)
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		sess.mu.Lock()
		if sess.series != nil {
			symbol = sess.series.Query.Symbol
		}
		sess.mu.Unlock()
	}
	if symbol == "" {
		writeError(w, s.log, errNoTicker, nil)
		return
	}
	sym, err := finance.NormalizeSymbol(symbol)
	if err != nil {
		writeError(w, s.log, err, nil)
		return
	}
	snap, err := s.market.FetchSnapshot(r.Context(), sym)
	if err != nil {
		writeError(w, s.log, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) annotations(w http.ResponseWriter, r *http.Request, op func(*chart.History) bool) {
	sess := s.sessions.lookup(w, r)
	sess.mu.Lock()
	if sess.series == nil {
		sess.mu.Unlock()
		writeError(w, s.log, errNoTicker, nil)
		return
	}
	changed := op(sess.history)
	resp := annotationResponse{
		Annotations: sess.history.Strokes(),
		CanUndo:     sess.history.CanUndo(),
		CanRedo:     sess.history.CanRedo(),
		Changed:     changed,
	}
	sess.mu.Unlock()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDraw(w http.ResponseWriter, r *http.Request) {
	var st chart.Stroke
	if err := s.decode(r, &st); err != nil {
		writeError(w, s.log, err, nil)
		return
	}
	s.annotations(w, r, func(h *chart.History) bool { h.Draw(st); return true })
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	s.annotations(w, r, (*chart.History).Undo)
}

func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request) {
	s.annotations(w, r, (*chart.History).Redo)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.annotations(w, r, (*chart.History).Clear)
}

// loaded returns the session's analysis context without holding the lock
// across model calls.
func (s *Server) loaded(sess *session) (ai.AnalysisContext, bool) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.analysisContext()
}

// keep stores a result unless the session switched ticker while the model
// was running.
func (s *Server) keep(sess *session, symbol string, res *ai.Result) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.series != nil && sess.series.Query.Symbol == symbol {
		sess.results[res.Kind] = res
	}
}

func (s *Server) runAnalysis(w http.ResponseWriter, r *http.Request, call func(ai.AnalysisContext, analysisRequest) (*ai.Result, error)) {
	sess := s.sessions.lookup(w, r)
	var req analysisRequest
	if err := s.decode(r, &req); err != nil {
		writeError(w, s.log, err, nil)
		return
	}
	ac, ok := s.loaded(sess)
	if !ok {
		writeError(w, s.log, errNoTicker, nil)
		return
	}
	res, err := call(ac, req)
	if err != nil {
		var guard *ai.GuardVerdict
		if res != nil {
			guard = res.Guard
		}
		writeError(w, s.log, fmt.Errorf("%w: %w", errAnalysis, err), guard)
		return
	}
	s.keep(sess, ac.Symbol(), res)
	writeJSON(w, http.StatusOK, analysisResponse{Result: res, HTML: renderMarkdown(res.Text)})
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	s.runAnalysis(w, r, func(ac ai.AnalysisContext, req analysisRequest) (*ai.Result, error) {
		return s.analyst.Overview(r.Context(), ac, req.Question, ai.ParseTier(req.Tier))
	})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	s.runAnalysis(w, r, func(ac ai.AnalysisContext, req analysisRequest) (*ai.Result, error) {
		return s.analyst.FollowUp(r.Context(), ac, req.Question, ai.ParseTier(req.Tier))
	})
}

func (s *Server) handleEarnings(w http.ResponseWriter, r *http.Request) {
	s.runAnalysis(w, r, func(ac ai.AnalysisContext, req analysisRequest) (*ai.Result, error) {
		quarters, err := s.market.FetchQuarterlyIncome(r.Context(), ac.Symbol())
		if err != nil {
			return nil, err
		}
		return s.analyst.EarningsInsights(r.Context(), ac, quarters, ai.ParseTier(req.Tier))
	})
}

type documentResponse struct {
	*document.Result
	HTML string `json:"html"`
}

// handleDocument accepts a multipart form with either a "file" part or a
// "text" field. "translate" enables the paragraph translation.
func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.lookup(w, r)
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.UploadMaxBytes+maxJSONBody)
	if err := r.ParseMultipartForm(s.opts.UploadMaxBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, s.log, fmt.Errorf("%w: limit %d bytes", document.ErrTooLarge, s.opts.UploadMaxBytes), nil)
			return
		}
		writeError(w, s.log, fmt.Errorf("%w: %v", errBadRequest, err), nil)
		return
	}
	ac, ok := s.loaded(sess)
	if !ok {
		writeError(w, s.log, errNoTicker, nil)
		return
	}

	doc, err := s.readDocument(r)
	if err != nil {
		writeError(w, s.log, err, nil)
		return
	}
	translate, _ := strconv.ParseBool(r.FormValue("translate"))
	res, err := s.documents.Process(r.Context(), doc, ac, document.Options{
		Translate: translate,
		Tier:      ai.ParseTier(r.FormValue("tier")),
	})
	if err != nil {
		if !errors.Is(err, document.ErrCompanyMismatch) {
			err = fmt.Errorf("%w: %w", errAnalysis, err)
		}
		writeError(w, s.log, err, nil)
		return
	}
	s.keep(sess, ac.Symbol(), res.Summary)
	writeJSON(w, http.StatusOK, documentResponse{Result: res, HTML: renderMarkdown(res.Summary.Text)})
}

func (s *Server) readDocument(r *http.Request) (*document.Document, error) {
	file, header, err := r.FormFile("file")
	if err == http.ErrMissingFile {
		return document.FromText("pasted.txt", r.FormValue("text"))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, s.opts.UploadMaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return document.Extract(header.Filename, header.Header.Get("Content-Type"), data, s.opts.UploadMaxBytes)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.lookup(w, r)
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		sess.mu.Lock()
		if sess.series != nil {
			symbol = sess.series.Query.Symbol
		}
		sess.mu.Unlock()
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	if s.history == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	rows, err := s.history.RecentAnalyses(symbol, limit)
	if err != nil {
		writeError(w, s.log, err, nil)
		return
	}
	if rows == nil {
		rows = []storage.Analysis{}
	}
	writeJSON(w, http.StatusOK, rows)
}
