package chart

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vicanso/go-charts/v2"

	"stockdesk/internal/finance"
)

// RenderPNG draws the close line and, when opts.ShowMA is set, the MA
// overlays. MA warm-up positions are left blank. go-charts has no candlestick
// series, so opts.Kind only changes the title.
func RenderPNG(s *finance.PriceSeries, ind finance.IndicatorSet, opts FigureOptions) ([]byte, error) {
	if s == nil || len(s.Bars) < 2 {
		return nil, errors.New("not enough data points")
	}
	intraday := isIntraday(s.Query.Interval)

	cl := s.Closes()
	xAll := make([]string, len(s.Bars))
	yMin, yMax := cl[0], cl[0]
	for i, b := range s.Bars {
		xAll[i] = shortLabel(b.Time, intraday)
		if b.Close < yMin {
			yMin = b.Close
		}
		if b.Close > yMax {
			yMax = b.Close
		}
	}

	values := [][]float64{cl}
	names := []string{"Close"}
	if opts.ShowMA {
		for _, w := range finance.MAWindows {
			ma := ind.MA(w)
			if len(ma) != len(cl) {
				continue
			}
			row := make([]float64, len(ma))
			for i, v := range ma {
				if v == nil {
					row[i] = charts.GetNullValue()
					continue
				}
				row[i] = *v
				if *v < yMin {
					yMin = *v
				}
				if *v > yMax {
					yMax = *v
				}
			}
			values = append(values, row)
			names = append(names, finance.MAName(w))
		}
	}

	pad := (yMax - yMin) * 0.05
	if pad < yMax*0.002 {
		pad = yMax * 0.002
	}
	yMin -= pad
	if yMin < 0 {
		yMin = 0
	}
	yMax += pad

	split := 8
	if len(xAll) < split {
		split = len(xAll)
	}
	title := strings.ToUpper(s.Query.Symbol) + " • " + strings.ToUpper(s.Query.Period)
	if opts.Kind == KindCandlestick {
		title += " • close"
	}
	subtitle := s.DisplayName()
	if s.Meta.Currency != "" {
		subtitle += " (" + s.Meta.Currency + ")"
	}

	seriesList := charts.NewSeriesListDataFromValues(values, charts.ChartTypeLine)
	painter, err := charts.Render(charts.ChartOption{SeriesList: seriesList},
		charts.TitleTextOptionFunc(title, subtitle),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: xAll, BoundaryGap: charts.FalseFlag(), SplitNumber: split}),
		charts.YAxisOptionFunc(charts.YAxisOption{Min: &yMin, Max: &yMax, DivideCount: 5}),
		charts.LegendOptionFunc(charts.LegendOption{Data: names}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	return painter.Bytes()
}
