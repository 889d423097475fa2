package ai

import (
	"encoding/json"
	"time"

	"stockdesk/internal/finance"
)

// AnalysisContext is the ticker state an analysis is run against.
type AnalysisContext struct {
	Series     *finance.PriceSeries
	Indicators finance.IndicatorSet
}

func (a AnalysisContext) Symbol() string {
	if a.Series == nil {
		return ""
	}
	return a.Series.Query.Symbol
}

func (a AnalysisContext) Name() string {
	if a.Series == nil {
		return ""
	}
	return a.Series.DisplayName()
}

// DataYears lists the calendar years covered by the price history.
func (a AnalysisContext) DataYears() []int {
	if a.Series == nil || len(a.Series.Bars) == 0 {
		return nil
	}
	first := a.Series.Bars[0].Time.Year()
	last := a.Series.Bars[len(a.Series.Bars)-1].Time.Year()
	out := make([]int, 0, last-first+1)
	for y := first; y <= last; y++ {
		out = append(out, y)
	}
	return out
}

type marketPayload struct {
	Symbol    string             `json:"symbol"`
	Name      string             `json:"name"`
	Sector    string             `json:"sector,omitempty"`
	Industry  string             `json:"industry,omitempty"`
	Country   string             `json:"country,omitempty"`
	Currency  string             `json:"currency,omitempty"`
	From      string             `json:"from"`
	To        string             `json:"to"`
	Valuation finance.Valuation  `json:"valuation"`
	Momentum  finance.Momentum   `json:"momentum"`
	LatestMA  *finance.LatestMA  `json:"latestDaily,omitempty"`
	RSI14     *float64           `json:"rsi14,omitempty"`
	Risk      *finance.RiskStats `json:"risk,omitempty"`
	Question  string             `json:"-"`
}

func (a AnalysisContext) payload() *marketPayload {
	p := &marketPayload{
		Symbol:    a.Symbol(),
		Name:      a.Name(),
		Valuation: a.Indicators.Valuation,
		Momentum:  a.Indicators.Momentum,
		Risk:      a.Indicators.Risk,
	}
	if s := a.Series; s != nil {
		p.Sector, p.Industry, p.Country = s.Profile.Sector, s.Profile.Industry, s.Profile.Country
		p.Currency = s.Meta.Currency
		if len(s.Bars) > 0 {
			p.From = s.Bars[0].Time.Format(time.DateOnly)
			p.To = s.Bars[len(s.Bars)-1].Time.Format(time.DateOnly)
		}
		if row, ok := finance.LatestDaily(s, a.Indicators); ok {
			p.LatestMA = &row
		}
	}
	if r := a.Indicators.RSI14; len(r) > 0 {
		p.RSI14 = r[len(r)-1]
	}
	return p
}

func toJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}
