package finance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeRiskStats(t *testing.T) {
	stats, err := ComputeRiskStats(barsFromCloses([]float64{100, 110, 99, 120}))
	require.NoError(t, err)
	assert.InDelta(t, 20.0, stats.TotalReturn, 1e-9)
	assert.InDelta(t, 10.0, stats.MaxDrawdown, 1e-9)
	assert.Greater(t, stats.Volatility, 0.0)
	assert.Equal(t, 4, stats.NumBars)
}

func TestComputeRiskStats_Insufficient(t *testing.T) {
	_, err := ComputeRiskStats(barsFromCloses([]float64{100, 101}))
	assert.Error(t, err)
}

func TestMaxDrawdown(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"monotonic up", []float64{1, 2, 3}, 0},
		{"single dip", []float64{100, 50, 100}, 0.5},
		{"deepest of two", []float64{100, 80, 120, 60}, 0.5},
		{"too short", []float64{10}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, maxDrawdown(tt.values), 1e-12)
		})
	}
}
