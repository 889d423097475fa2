package finance

import (
	"sort"
	"time"
)

// buildBars zips Yahoo's parallel arrays into bars. Periods with a missing or
// negative OHLC value are dropped; a missing volume counts as zero. The result
// is sorted by time with duplicate timestamps collapsed to the last one seen.
func buildBars(ts []int64, q yahooQuote, loc *time.Location) []Bar {
	n := len(ts)
	for _, col := range [][]*float64{q.Open, q.High, q.Low, q.Close} {
		if len(col) < n {
			n = len(col)
		}
	}
	out := make([]Bar, 0, n)
	for i := 0; i < n; i++ {
		o, h, l, c := q.Open[i], q.High[i], q.Low[i], q.Close[i]
		if o == nil || h == nil || l == nil || c == nil {
			continue
		}
		if *o < 0 || *h < 0 || *l < 0 || *c < 0 {
			continue
		}
		var v float64
		if i < len(q.Volume) && q.Volume[i] != nil && *q.Volume[i] > 0 {
			v = *q.Volume[i]
		}
		out = append(out, Bar{
			Time:   time.Unix(ts[i], 0).In(loc),
			Open:   *o,
			High:   *h,
			Low:    *l,
			Close:  *c,
			Volume: v,
		})
	}
	return sortAndDedupe(out)
}

func sortAndDedupe(bars []Bar) []Bar {
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	out := bars[:0]
	for _, b := range bars {
		if len(out) > 0 && out[len(out)-1].Time.Equal(b.Time) {
			out[len(out)-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}
