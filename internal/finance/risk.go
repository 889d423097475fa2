package finance

import (
	"fmt"
	"math"
)

const tradingDaysPerYear = 252.0

// RiskStats summarises the whole fetched range. Percentages are in percent units.
type RiskStats struct {
	TotalReturn  float64 `json:"totalReturnPct"`
	AnnualReturn float64 `json:"annualReturnPct"`
	Volatility   float64 `json:"annualVolatilityPct"`
	SharpeRatio  float64 `json:"sharpe"`
	MaxDrawdown  float64 `json:"maxDrawdownPct"`
	NumBars      int     `json:"bars"`
}

// ComputeRiskStats computes total and annualised return, annualised
// volatility, Sharpe ratio (risk-free rate 0) and max drawdown from closes.
func ComputeRiskStats(bars []Bar) (*RiskStats, error) {
	if len(bars) < 3 {
		return nil, fmt.Errorf("insufficient price data")
	}
	values := make([]float64, len(bars))
	for i, b := range bars {
		values[i] = b.Close
	}
	initialValue, finalValue := values[0], values[len(values)-1]
	if initialValue <= 0 {
		return nil, fmt.Errorf("non-positive starting price")
	}

	returns := pctChanges(bars)
	dailyVolatility, ok := sampleStdDev(returns)
	if !ok {
		return nil, fmt.Errorf("need at least 2 return observations for statistics")
	}

	totalReturn := (finalValue - initialValue) / initialValue

	// Geometric annualization: (1 + total_return)^(1/years) - 1
	yearsInPeriod := float64(len(returns)) / tradingDaysPerYear
	var annualReturn float64
	if yearsInPeriod > 0 && finalValue > 0 {
		annualReturn = math.Pow(finalValue/initialValue, 1.0/yearsInPeriod) - 1.0
	}
	annualVolatility := dailyVolatility * math.Sqrt(tradingDaysPerYear)

	var sharpeRatio float64
	if annualVolatility > 0 {
		sharpeRatio = annualReturn / annualVolatility
	}

	stats := &RiskStats{
		TotalReturn:  totalReturn * 100,
		AnnualReturn: annualReturn * 100,
		Volatility:   annualVolatility * 100,
		SharpeRatio:  sharpeRatio,
		MaxDrawdown:  maxDrawdown(values) * 100,
		NumBars:      len(values),
	}
	for name, v := range map[string]float64{
		"total return":  stats.TotalReturn,
		"annual return": stats.AnnualReturn,
		"volatility":    stats.Volatility,
		"Sharpe ratio":  stats.SharpeRatio,
		"max drawdown":  stats.MaxDrawdown,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("invalid %s: %f", name, v)
		}
	}
	return stats, nil
}

// maxDrawdown is the largest peak-to-trough decline as a fraction.
func maxDrawdown(values []float64) float64 {
	if len(values) < 2 {
		return 0.0
	}
	worst := 0.0
	peak := values[0]
	for _, value := range values {
		if value > peak {
			peak = value
		}
		if peak > 0 && value >= 0 {
			if dd := (peak - value) / peak; dd > worst {
				worst = dd
			}
		}
	}
	return worst
}
