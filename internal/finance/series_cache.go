package finance

import (
	"sync"
	"time"
)

const seriesCacheTTL = 60 * time.Second

type seriesCacheEntry struct {
	createdAt time.Time
	series    *PriceSeries
}

// seriesCache keeps recently fetched histories so identical queries inside
// one minute do not hit Yahoo again.
type seriesCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]seriesCacheEntry
}

func newSeriesCache(ttl time.Duration) *seriesCache {
	return &seriesCache{ttl: ttl, now: time.Now, entries: map[string]seriesCacheEntry{}}
}

func (c *seriesCache) get(key string) (*PriceSeries, bool) {
	if c == nil || c.ttl <= 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.entries[key]; ok {
		if c.now().Before(entry.createdAt.Add(c.ttl)) {
			return entry.series, true
		}
		delete(c.entries, key)
	}
	return nil, false
}

func (c *seriesCache) set(key string, s *PriceSeries) {
	if c == nil || c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for k, e := range c.entries {
		if !now.Before(e.createdAt.Add(c.ttl)) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = seriesCacheEntry{createdAt: now, series: s}
}
