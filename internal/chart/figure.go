// Package chart turns a price series and its indicators into something a
// browser or a chat client can draw, and keeps the freehand annotation history.
package chart

import (
	"fmt"
	"time"

	"stockdesk/internal/finance"
)

type Kind string

const (
	KindLine        Kind = "line"
	KindCandlestick Kind = "candlestick"
)

// ParseKind maps a query value to a Kind; anything unknown is a line chart.
func ParseKind(s string) Kind {
	if Kind(s) == KindCandlestick || s == "candle" || s == "k" {
		return KindCandlestick
	}
	return KindLine
}

const (
	ColorUp   = "green"
	ColorDown = "red"
)

var lineColors = map[string]string{
	"Close": "#0050b3",
	"MA5":   "#ffa500",
	"MA10":  "#2ca02c",
	"MA20":  "#9467bd",
}

type FigureOptions struct {
	Kind   Kind `json:"kind"`
	ShowMA bool `json:"showMA"`
}

type Candle struct {
	X     string  `json:"x"`
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
	Color string  `json:"color"`
}

// Line is one overlay. Y is aligned with Figure.X; nil points are gaps.
type Line struct {
	Name  string     `json:"name"`
	Color string     `json:"color"`
	Width float64    `json:"width"`
	Y     []*float64 `json:"y"`
}

// Figure is the JSON document the page hands to its plotting library.
type Figure struct {
	Title       string    `json:"title"`
	Currency    string    `json:"currency,omitempty"`
	Kind        Kind      `json:"kind"`
	X           []string  `json:"x"`
	Candles     []Candle  `json:"candles,omitempty"`
	Lines       []Line    `json:"lines"`
	Volume      []float64 `json:"volume"`
	Annotations []Stroke  `json:"annotations"`
}

// CandleColor is green when the bar closed at or above its open, red otherwise.
func CandleColor(b finance.Bar) string {
	if b.Close >= b.Open {
		return ColorUp
	}
	return ColorDown
}

// BuildFigure lays out the series as a close line or candles, optionally with
// the MA overlays, and carries the current annotation strokes along.
func BuildFigure(s *finance.PriceSeries, ind finance.IndicatorSet, opts FigureOptions, strokes []Stroke) (*Figure, error) {
	if s == nil || len(s.Bars) == 0 {
		return nil, fmt.Errorf("no price data to chart")
	}
	if opts.Kind == "" {
		opts.Kind = KindLine
	}
	fig := &Figure{
		Title:       fmt.Sprintf("%s (%s) • %s", s.DisplayName(), s.Query.Symbol, s.Query.Period),
		Currency:    s.Meta.Currency,
		Kind:        opts.Kind,
		X:           axisLabels(s.Bars, s.Query.Interval),
		Volume:      s.Volumes(),
		Annotations: strokes,
	}
	if fig.Annotations == nil {
		fig.Annotations = []Stroke{}
	}

	switch opts.Kind {
	case KindCandlestick:
		fig.Candles = make([]Candle, len(s.Bars))
		for i, b := range s.Bars {
			fig.Candles[i] = Candle{X: fig.X[i], Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, Color: CandleColor(b)}
		}
	default:
		closes := make([]*float64, len(s.Bars))
		for i := range s.Bars {
			c := s.Bars[i].Close
			closes[i] = &c
		}
		fig.Lines = append(fig.Lines, Line{Name: "Close", Color: lineColors["Close"], Width: 2, Y: closes})
	}

	if opts.ShowMA {
		for _, w := range finance.MAWindows {
			name := finance.MAName(w)
			ma := ind.MA(w)
			if len(ma) != len(s.Bars) {
				return nil, fmt.Errorf("%s has %d points for %d bars", name, len(ma), len(s.Bars))
			}
			fig.Lines = append(fig.Lines, Line{Name: name, Color: lineColors[name], Width: 1.5, Y: ma})
		}
	}
	if fig.Lines == nil {
		fig.Lines = []Line{}
	}
	return fig, nil
}

// axisLabels formats bar times for the x axis: dates for daily bars, date and
// clock for intraday ones.
func axisLabels(bars []finance.Bar, interval string) []string {
	layout := "2006-01-02"
	if isIntraday(interval) {
		layout = "2006-01-02 15:04"
	}
	out := make([]string, len(bars))
	for i, b := range bars {
		out[i] = b.Time.Format(layout)
	}
	return out
}

func isIntraday(interval string) bool {
	if interval == "" {
		return false
	}
	switch interval[len(interval)-1] {
	case 'm', 'h':
		return interval != "1mo" && interval != "3mo"
	}
	return false
}

// shortLabel is the compact form used on the PNG axis.
func shortLabel(t time.Time, intraday bool) string {
	if intraday {
		return t.Format("Jan 02 15:04")
	}
	return t.Format("Jan 02")
}
