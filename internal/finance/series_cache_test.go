package finance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSeriesCache_ExpiresAndSweeps(t *testing.T) {
	c := newSeriesCache(time.Minute)
	now := time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.set("AAPL|3mo|1d", &PriceSeries{})
	c.set("MSFT|3mo|1d", &PriceSeries{})
	_, ok := c.get("AAPL|3mo|1d")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = c.get("AAPL|3mo|1d")
	assert.False(t, ok)

	c.set("TSLA|1y|1d", &PriceSeries{})
	assert.Len(t, c.entries, 1, "expired keys are dropped on insert")
	_, ok = c.get("TSLA|1y|1d")
	assert.True(t, ok)
}
