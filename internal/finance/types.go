package finance

import (
	"strings"
	"time"
)

// Bar is one OHLCV period.
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Meta carries the instrument fields Yahoo returns alongside a chart.
type Meta struct {
	Symbol         string  `json:"symbol"`
	LongName       string  `json:"longName,omitempty"`
	ShortName      string  `json:"shortName,omitempty"`
	Currency       string  `json:"currency"`
	Exchange       string  `json:"exchange"`
	InstrumentType string  `json:"instrumentType,omitempty"`
	Timezone       string  `json:"timezone,omitempty"`
	MarketPrice    float64 `json:"marketPrice"`
}

// Profile is the best-effort company profile; any field may be empty.
type Profile struct {
	LongName    string   `json:"longName,omitempty"`
	Sector      string   `json:"sector,omitempty"`
	Industry    string   `json:"industry,omitempty"`
	Country     string   `json:"country,omitempty"`
	TrailingPE  *float64 `json:"trailingPE,omitempty"`
	ForwardPE   *float64 `json:"forwardPE,omitempty"`
	PriceToBook *float64 `json:"priceToBook,omitempty"`
}

// PriceSeries is a fetched history for one symbol. Bars are sorted by time
// with no duplicate timestamps. Treat it as read-only once returned.
type PriceSeries struct {
	Query     TickerQuery `json:"query"`
	Meta      Meta        `json:"meta"`
	Profile   Profile     `json:"profile"`
	Bars      []Bar       `json:"bars"`
	FetchedAt time.Time   `json:"fetchedAt"`
}

// Closes returns the close prices in bar order.
func (s *PriceSeries) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// Volumes returns the traded volume in bar order.
func (s *PriceSeries) Volumes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Volume
	}
	return out
}

// Last returns the most recent bar.
func (s *PriceSeries) Last() (Bar, bool) {
	if len(s.Bars) == 0 {
		return Bar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// DisplayName prefers the long company name and falls back to the symbol.
func (s *PriceSeries) DisplayName() string {
	for _, n := range []string{s.Profile.LongName, s.Meta.LongName, s.Meta.ShortName} {
		if n = strings.TrimSpace(n); n != "" {
			return n
		}
	}
	return s.Query.Symbol
}

// Snapshot is the latest price move, either over the last trading hour or
// between the two most recent daily closes.
type Snapshot struct {
	Symbol string    `json:"symbol"`
	Last   float64   `json:"last"`
	Change float64   `json:"change"`
	Pct    float64   `json:"pct"`
	Source string    `json:"source"`
	AsOf   time.Time `json:"asOf"`
}

const (
	SnapshotIntraday  = "intraday"
	SnapshotLastClose = "last_close"
)

// QuarterlyIncome is one quarterly income statement row. Missing figures are nil.
type QuarterlyIncome struct {
	PeriodEnd   time.Time `json:"periodEnd"`
	Revenue     *float64  `json:"revenue,omitempty"`
	GrossProfit *float64  `json:"grossProfit,omitempty"`
	NetIncome   *float64  `json:"netIncome,omitempty"`
}

// yahooChartResp mirrors Yahoo v8 chart response (trimmed to needed fields)
type yahooChartResp struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				Currency           string  `json:"currency"`
				ExchangeName       string  `json:"exchangeName"`
				FullExchangeName   string  `json:"fullExchangeName"`
				InstrumentType     string  `json:"instrumentType"`
				LongName           string  `json:"longName"`
				ShortName          string  `json:"shortName"`
				Timezone           string  `json:"exchangeTimezoneName"`
				GmtOffset          int     `json:"gmtoffset"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []yahooQuote `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"chart"`
}

// Yahoo reports missing periods as null entries.
type yahooQuote struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*float64 `json:"volume"`
}

type yahooError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type yahooRaw struct {
	Raw *float64 `json:"raw"`
	Fmt string   `json:"fmt"`
}

// yahooSummaryResp mirrors the quoteSummary modules we request (trimmed)
type yahooSummaryResp struct {
	QuoteSummary struct {
		Result []struct {
			AssetProfile struct {
				Sector   string `json:"sector"`
				Industry string `json:"industry"`
				Country  string `json:"country"`
			} `json:"assetProfile"`
			Price struct {
				LongName  string `json:"longName"`
				ShortName string `json:"shortName"`
			} `json:"price"`
			SummaryDetail struct {
				TrailingPE yahooRaw `json:"trailingPE"`
				ForwardPE  yahooRaw `json:"forwardPE"`
			} `json:"summaryDetail"`
			DefaultKeyStatistics struct {
				ForwardPE   yahooRaw `json:"forwardPE"`
				PriceToBook yahooRaw `json:"priceToBook"`
			} `json:"defaultKeyStatistics"`
			IncomeStatementHistoryQuarterly struct {
				IncomeStatementHistory []struct {
					EndDate      yahooRaw `json:"endDate"`
					TotalRevenue yahooRaw `json:"totalRevenue"`
					GrossProfit  yahooRaw `json:"grossProfit"`
					NetIncome    yahooRaw `json:"netIncome"`
				} `json:"incomeStatementHistory"`
			} `json:"incomeStatementHistoryQuarterly"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"quoteSummary"`
}
