package finance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

var (
	// ErrUnknownSymbol means Yahoo has no history for the ticker.
	ErrUnknownSymbol = errors.New("unknown symbol")
	// ErrUpstreamUnavailable covers transport failures, throttling and unparseable replies.
	ErrUpstreamUnavailable = errors.New("market data unavailable")
)

// DefaultHosts are tried in order, once each.
var DefaultHosts = []string{"https://query1.finance.yahoo.com", "https://query2.finance.yahoo.com"}

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15"

// Client fetches price history and company data from Yahoo Finance.
type Client struct {
	http  *resty.Client
	hosts []string
	cache *seriesCache
	log   zerolog.Logger
}

// NewClient builds a client over the given base URLs. An empty list means DefaultHosts.
func NewClient(hosts []string, timeout time.Duration, logger zerolog.Logger) *Client {
	if len(hosts) == 0 {
		hosts = DefaultHosts
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	rc := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json, text/javascript, */*; q=0.01").
		SetHeader("Accept-Language", "en-US,en;q=0.9")
	return &Client{
		http:  rc,
		hosts: hosts,
		cache: newSeriesCache(seriesCacheTTL),
		log:   logger.With().Str("component", "finance").Logger(),
	}
}

// FetchSeries returns the OHLCV history for q together with instrument
// metadata and a best-effort company profile.
func (c *Client) FetchSeries(ctx context.Context, q TickerQuery) (*PriceSeries, error) {
	return c.fetchSeries(ctx, q, true)
}

func (c *Client) fetchSeries(ctx context.Context, q TickerQuery, withProfile bool) (*PriceSeries, error) {
	if q.Interval == "" {
		q.Interval = DefaultInterval
	}
	if q.Period == "" {
		q.Period = DefaultPeriod
	}
	key := q.cacheKey()
	if !withProfile {
		key += "|bare"
	}
	if s, ok := c.cache.get(key); ok {
		return s, nil
	}

	var yc yahooChartResp
	path := "/v8/finance/chart/" + url.PathEscape(q.Symbol)
	if err := c.getJSON(ctx, path, q.params(), q.Symbol, &yc); err != nil {
		return nil, err
	}
	if e := yc.Chart.Error; e != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrUnknownSymbol, q.Symbol, e.Description)
	}
	if len(yc.Chart.Result) == 0 || len(yc.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("%w: %s: empty result", ErrUnknownSymbol, q.Symbol)
	}
	res := yc.Chart.Result[0]
	loc := exchangeLocation(res.Meta.Timezone, res.Meta.GmtOffset)
	bars := buildBars(res.Timestamp, res.Indicators.Quote[0], loc)
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: %s: no price data in range", ErrUnknownSymbol, q.Symbol)
	}

	exchange := res.Meta.FullExchangeName
	if exchange == "" {
		exchange = res.Meta.ExchangeName
	}
	series := &PriceSeries{
		Query: q,
		Meta: Meta{
			Symbol:         q.Symbol,
			LongName:       res.Meta.LongName,
			ShortName:      res.Meta.ShortName,
			Currency:       res.Meta.Currency,
			Exchange:       exchange,
			InstrumentType: res.Meta.InstrumentType,
			Timezone:       loc.String(),
			MarketPrice:    res.Meta.RegularMarketPrice,
		},
		Bars:      bars,
		FetchedAt: time.Now(),
	}

	if withProfile {
		if p, err := c.FetchProfile(ctx, q.Symbol); err != nil {
			c.log.Warn().Err(err).Str("symbol", q.Symbol).Msg("profile lookup failed")
		} else {
			series.Profile = *p
		}
	}

	c.cache.set(key, series)
	c.log.Debug().Str("symbol", q.Symbol).Str("period", q.Period).Int("bars", len(bars)).Msg("series fetched")
	return series, nil
}

// FetchProfile returns sector, industry, country and valuation ratios.
func (c *Client) FetchProfile(ctx context.Context, symbol string) (*Profile, error) {
	var ys yahooSummaryResp
	params := map[string]string{"modules": "assetProfile,price,summaryDetail,defaultKeyStatistics"}
	if err := c.getJSON(ctx, "/v10/finance/quoteSummary/"+url.PathEscape(symbol), params, symbol, &ys); err != nil {
		return nil, err
	}
	if len(ys.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("%w: %s: empty profile", ErrUnknownSymbol, symbol)
	}
	r := ys.QuoteSummary.Result[0]
	p := &Profile{
		LongName:    r.Price.LongName,
		Sector:      r.AssetProfile.Sector,
		Industry:    r.AssetProfile.Industry,
		Country:     r.AssetProfile.Country,
		TrailingPE:  r.SummaryDetail.TrailingPE.Raw,
		ForwardPE:   r.SummaryDetail.ForwardPE.Raw,
		PriceToBook: r.DefaultKeyStatistics.PriceToBook.Raw,
	}
	if p.LongName == "" {
		p.LongName = r.Price.ShortName
	}
	if p.ForwardPE == nil {
		p.ForwardPE = r.DefaultKeyStatistics.ForwardPE.Raw
	}
	return p, nil
}

// FetchQuarterlyIncome returns recent quarterly income statements, oldest first.
func (c *Client) FetchQuarterlyIncome(ctx context.Context, symbol string) ([]QuarterlyIncome, error) {
	var ys yahooSummaryResp
	params := map[string]string{"modules": "incomeStatementHistoryQuarterly"}
	if err := c.getJSON(ctx, "/v10/finance/quoteSummary/"+url.PathEscape(symbol), params, symbol, &ys); err != nil {
		return nil, err
	}
	if len(ys.QuoteSummary.Result) == 0 {
		return nil, nil
	}
	rows := ys.QuoteSummary.Result[0].IncomeStatementHistoryQuarterly.IncomeStatementHistory
	out := make([]QuarterlyIncome, 0, len(rows))
	for _, r := range rows {
		if r.EndDate.Raw == nil {
			continue
		}
		out = append(out, QuarterlyIncome{
			PeriodEnd:   time.Unix(int64(*r.EndDate.Raw), 0).UTC(),
			Revenue:     r.TotalRevenue.Raw,
			GrossProfit: r.GrossProfit.Raw,
			NetIncome:   r.NetIncome.Raw,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PeriodEnd.Before(out[j].PeriodEnd) })
	return out, nil
}

// FetchSnapshot reports the move over the last trading hour from 1m bars,
// falling back to the last two daily closes when intraday data is missing.
func (c *Client) FetchSnapshot(ctx context.Context, symbol string) (*Snapshot, error) {
	intraday, err := c.fetchSeries(ctx, TickerQuery{Symbol: symbol, Period: "1d", Interval: "1m"}, false)
	if err == nil {
		if s, ok := snapshotFromBars(symbol, intraday.Bars, 60, SnapshotIntraday); ok {
			return s, nil
		}
	} else if ctx.Err() != nil {
		return nil, err
	} else {
		c.log.Debug().Err(err).Str("symbol", symbol).Msg("intraday snapshot unavailable")
	}

	daily, err := c.fetchSeries(ctx, TickerQuery{Symbol: symbol, Period: "5d", Interval: DefaultInterval}, false)
	if err != nil {
		return nil, err
	}
	s, ok := snapshotFromBars(symbol, daily.Bars, 2, SnapshotLastClose)
	if !ok {
		return nil, fmt.Errorf("%w: %s: not enough closes for a snapshot", ErrUnknownSymbol, symbol)
	}
	return s, nil
}

// snapshotFromBars compares the last close with the close `window` bars back
// (or the first available one).
func snapshotFromBars(symbol string, bars []Bar, window int, source string) (*Snapshot, bool) {
	if len(bars) < 2 {
		return nil, false
	}
	if len(bars) > window {
		bars = bars[len(bars)-window:]
	}
	first, last := bars[0], bars[len(bars)-1]
	change := last.Close - first.Close
	var pct float64
	if first.Close != 0 {
		pct = change / first.Close * 100
	}
	return &Snapshot{
		Symbol: symbol,
		Last:   last.Close,
		Change: change,
		Pct:    pct,
		Source: source,
		AsOf:   last.Time,
	}, true
}

// getJSON tries each host once and decodes the first usable reply into out.
// A 404 is final: Yahoo answers it for tickers it does not know.
func (c *Client) getJSON(ctx context.Context, path string, params map[string]string, symbol string, out any) error {
	var lastErr error
	for _, host := range c.hosts {
		if err := ctx.Err(); err != nil {
			return err
		}
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParams(params).
			SetHeader("Referer", fmt.Sprintf("https://finance.yahoo.com/quote/%s/chart", strings.ToUpper(symbol))).
			Get(strings.TrimRight(host, "/") + path)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = fmt.Errorf("%w: %s: %v", ErrUpstreamUnavailable, host, err)
			continue
		}
		body := resp.Body()
		switch {
		case resp.StatusCode() == http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
		case resp.StatusCode() == http.StatusTooManyRequests || strings.HasPrefix(string(body), "Edge: Too Many Requests"):
			lastErr = fmt.Errorf("%w: %s returned 429: Edge: Too Many Requests", ErrUpstreamUnavailable, host)
			continue
		case resp.StatusCode() != http.StatusOK:
			lastErr = fmt.Errorf("%w: %s returned %d: %s", ErrUpstreamUnavailable, host, resp.StatusCode(), preview(body))
			continue
		case strings.HasPrefix(string(body), "<") || strings.HasPrefix(string(body), "Edge:"):
			lastErr = fmt.Errorf("%w: %s returned non-json body: %s", ErrUpstreamUnavailable, host, preview(body))
			continue
		}
		if err := json.Unmarshal(body, out); err != nil {
			lastErr = fmt.Errorf("%w: failed to parse yahoo json: %v; body: %s", ErrUpstreamUnavailable, err, preview(body))
			continue
		}
		return nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("%w: no hosts configured", ErrUpstreamUnavailable)
	}
	c.log.Warn().Err(lastErr).Str("symbol", symbol).Str("path", path).Msg("yahoo request failed")
	return lastErr
}

func preview(body []byte) string {
	s := string(body)
	if len(s) > 120 {
		s = s[:120]
	}
	return s
}
