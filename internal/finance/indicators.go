package finance

import (
	"fmt"
	"math"
	"time"
)

// MAWindows are the moving averages overlaid on every chart.
var MAWindows = []int{5, 10, 20}

const rsiPeriod = 14

// IndicatorSet holds series aligned 1:1 with the bars of a PriceSeries plus
// point-in-time momentum, valuation and risk figures. A nil entry in an
// aligned series means the value is undefined at that position.
type IndicatorSet struct {
	MovingAverages map[string][]*float64 `json:"movingAverages"`
	RSI14          []*float64            `json:"rsi14"`
	Volume         []float64             `json:"volume"`
	Momentum       Momentum              `json:"momentum"`
	Valuation      Valuation             `json:"valuation"`
	Risk           *RiskStats            `json:"risk,omitempty"`
}

// MA returns the moving average for window, or nil if it was not computed.
func (s IndicatorSet) MA(window int) []*float64 {
	return s.MovingAverages[MAName(window)]
}

// MAName is the display and map key for a window, e.g. "MA5".
func MAName(window int) string {
	return fmt.Sprintf("MA%d", window)
}

// Momentum figures are fractions (0.05 is 5%). Nil when the history is too short.
type Momentum struct {
	OneMonthReturn   *float64 `json:"oneMonthReturn"`
	ThreeMonthReturn *float64 `json:"threeMonthReturn"`
	High3M           *float64 `json:"high3m"`
	Low3M            *float64 `json:"low3m"`
	Volatility       *float64 `json:"volatility3m"`
}

type Valuation struct {
	LatestPrice *float64 `json:"latestPrice"`
	TrailingPE  *float64 `json:"trailingPE"`
	ForwardPE   *float64 `json:"forwardPE"`
	PriceToBook *float64 `json:"priceToBook"`
}

// LatestMA is the most recent row of the daily MA/volume table.
type LatestMA struct {
	Date   time.Time `json:"date"`
	MA5    *float64  `json:"ma5"`
	MA10   *float64  `json:"ma10"`
	MA20   *float64  `json:"ma20"`
	Volume float64   `json:"volume"`
}

// MovingAverage returns the trailing simple mean of closes over window.
// Position i is defined iff i >= window-1 and then equals
// mean(closes[i-window+1 .. i]); earlier positions are nil.
func MovingAverage(closes []float64, window int) []*float64 {
	out := make([]*float64, len(closes))
	if window <= 0 {
		return out
	}
	for i := window - 1; i < len(closes); i++ {
		sum := 0.0
		for _, c := range closes[i-window+1 : i+1] {
			sum += c
		}
		v := sum / float64(window)
		out[i] = &v
	}
	return out
}

// RSI is the relative strength index using rolling means of gains and losses
// over period. The first `period` positions are nil, as is any position where
// the window had neither gains nor losses.
func RSI(closes []float64, period int) []*float64 {
	out := make([]*float64, len(closes))
	if period <= 0 || len(closes) <= period {
		return out
	}
	gains := make([]float64, len(closes))
	losses := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gains[i] = d
		} else {
			losses[i] = -d
		}
	}
	for i := period; i < len(closes); i++ {
		var g, l float64
		for j := i - period + 1; j <= i; j++ {
			g += gains[j]
			l += losses[j]
		}
		g /= float64(period)
		l /= float64(period)
		var v float64
		switch {
		case g == 0 && l == 0:
			continue
		case l == 0:
			v = 100
		default:
			v = 100 - 100/(1+g/l)
		}
		out[i] = &v
	}
	return out
}

// ComputeIndicators derives everything the chart and the analyzer need from a series.
func ComputeIndicators(s *PriceSeries) IndicatorSet {
	closes := s.Closes()
	set := IndicatorSet{
		MovingAverages: make(map[string][]*float64, len(MAWindows)),
		RSI14:          RSI(closes, rsiPeriod),
		Volume:         s.Volumes(),
		Momentum:       computeMomentum(s.Bars),
		Valuation: Valuation{
			TrailingPE:  s.Profile.TrailingPE,
			ForwardPE:   s.Profile.ForwardPE,
			PriceToBook: s.Profile.PriceToBook,
		},
	}
	for _, w := range MAWindows {
		set.MovingAverages[MAName(w)] = MovingAverage(closes, w)
	}
	if n := len(closes); n > 0 {
		set.Valuation.LatestPrice = ptr(closes[n-1])
	}
	if rs, err := ComputeRiskStats(s.Bars); err == nil {
		set.Risk = rs
	}
	return set
}

func computeMomentum(bars []Bar) Momentum {
	var m Momentum
	n := len(bars)
	if n == 0 {
		return m
	}
	last := bars[n-1].Close
	if n >= 22 && bars[n-22].Close != 0 {
		m.OneMonthReturn = ptr(last/bars[n-22].Close - 1)
	}
	if n >= 66 && bars[n-66].Close != 0 {
		m.ThreeMonthReturn = ptr(last/bars[n-66].Close - 1)
	}
	tail := bars
	if n > 66 {
		tail = bars[n-66:]
	}
	hi, lo := tail[0].High, tail[0].Low
	for _, b := range tail[1:] {
		hi = math.Max(hi, b.High)
		lo = math.Min(lo, b.Low)
	}
	m.High3M, m.Low3M = ptr(hi), ptr(lo)
	if n > 2 {
		if sd, ok := sampleStdDev(pctChanges(bars)); ok {
			m.Volatility = ptr(sd)
		}
	}
	return m
}

// LatestDaily returns the last row of the MA/volume table.
func LatestDaily(s *PriceSeries, set IndicatorSet) (LatestMA, bool) {
	last, ok := s.Last()
	if !ok {
		return LatestMA{}, false
	}
	at := func(w int) *float64 {
		ma := set.MA(w)
		if len(ma) == 0 {
			return nil
		}
		return ma[len(ma)-1]
	}
	return LatestMA{
		Date:   last.Time,
		MA5:    at(5),
		MA10:   at(10),
		MA20:   at(20),
		Volume: last.Volume,
	}, true
}

func pctChanges(bars []Bar) []float64 {
	out := make([]float64, 0, len(bars))
	for i := 1; i < len(bars); i++ {
		if bars[i-1].Close == 0 {
			continue
		}
		out = append(out, bars[i].Close/bars[i-1].Close-1)
	}
	return out
}

// sampleStdDev uses N-1 degrees of freedom.
func sampleStdDev(xs []float64) (float64, bool) {
	if len(xs) < 2 {
		return 0, false
	}
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	variance := 0.0
	for _, x := range xs {
		d := x - mean
		variance += d * d
	}
	variance /= float64(len(xs) - 1)
	return math.Sqrt(variance), true
}

func ptr(v float64) *float64 { return &v }
