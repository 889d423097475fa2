package finance

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Periods accepted by NewTickerQuery, in the order the page offers them.
var Periods = []string{"1mo", "3mo", "6mo", "1y", "2y", "5y", "max"}

const (
	DefaultPeriod   = "3mo"
	DefaultInterval = "1d"
)

var (
	ErrInvalidSymbol = errors.New("invalid symbol")
	ErrInvalidPeriod = errors.New("invalid period")

	symbolRe = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-^=]{0,14}$`)
)

// TickerQuery identifies one history request.
type TickerQuery struct {
	Symbol   string    `json:"symbol"`
	Period   string    `json:"period"`
	Interval string    `json:"interval"`
	Start    time.Time `json:"start,omitempty"`
	End      time.Time `json:"end,omitempty"`
}

// NewTickerQuery normalises user input. Period aliases such as "3m" or
// "1year" are accepted; an empty period means DefaultPeriod.
func NewTickerQuery(symbol, period string) (TickerQuery, error) {
	sym, err := NormalizeSymbol(symbol)
	if err != nil {
		return TickerQuery{}, err
	}
	p, err := normalizePeriod(period)
	if err != nil {
		return TickerQuery{}, err
	}
	return TickerQuery{Symbol: sym, Period: p, Interval: DefaultInterval}, nil
}

// WithRange pins the query to explicit dates; the period is then ignored upstream.
func (q TickerQuery) WithRange(start, end time.Time) (TickerQuery, error) {
	if !start.IsZero() && !end.IsZero() && !start.Before(end) {
		return q, fmt.Errorf("start %s must be before end %s", start.Format("2006-01-02"), end.Format("2006-01-02"))
	}
	q.Start, q.End = start, end
	return q, nil
}

// NormalizeSymbol trims and upper-cases a ticker and rejects obvious garbage.
func NormalizeSymbol(symbol string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" || !symbolRe.MatchString(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSymbol, symbol)
	}
	return s, nil
}

func normalizePeriod(period string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(period)) {
	case "":
		return DefaultPeriod, nil
	case "1m", "1mo", "month", "1month":
		return "1mo", nil
	case "3m", "3mo", "3month":
		return "3mo", nil
	case "6m", "6mo", "6month":
		return "6mo", nil
	case "1y", "1yr", "year", "1year":
		return "1y", nil
	case "2y", "2yr", "2year":
		return "2y", nil
	case "5y", "5yr", "5year":
		return "5y", nil
	case "max", "all":
		return "max", nil
	}
	return "", fmt.Errorf("%w: %q (want one of %s)", ErrInvalidPeriod, period, strings.Join(Periods, ", "))
}

// cacheKey identifies a query for the series cache.
func (q TickerQuery) cacheKey() string {
	key := q.Symbol + "|" + q.Period + "|" + q.Interval
	if !q.Start.IsZero() || !q.End.IsZero() {
		key += "|" + q.Start.Format("20060102") + "-" + q.End.Format("20060102")
	}
	return key
}

// params returns the Yahoo chart query parameters.
func (q TickerQuery) params() map[string]string {
	p := map[string]string{
		"interval":       q.Interval,
		"includePrePost": "false",
		"events":         "div,splits",
	}
	switch {
	case !q.Start.IsZero():
		end := q.End
		if end.IsZero() {
			end = time.Now()
		}
		p["period1"] = fmt.Sprintf("%d", q.Start.Unix())
		p["period2"] = fmt.Sprintf("%d", end.Unix())
	case !q.End.IsZero():
		// end-only: the period window counts back from End
		p["period1"] = fmt.Sprintf("%d", periodStart(q.Period, q.End).Unix())
		p["period2"] = fmt.Sprintf("%d", q.End.Unix())
	default:
		p["range"] = q.Period
	}
	return p
}

func periodStart(period string, end time.Time) time.Time {
	switch period {
	case "1mo":
		return end.AddDate(0, -1, 0)
	case "3mo":
		return end.AddDate(0, -3, 0)
	case "6mo":
		return end.AddDate(0, -6, 0)
	case "1y":
		return end.AddDate(-1, 0, 0)
	case "2y":
		return end.AddDate(-2, 0, 0)
	case "5y":
		return end.AddDate(-5, 0, 0)
	}
	return time.Unix(0, 0)
}
