package pricing

import (
	"sync"
	"time"
)

type cacheEntry struct {
	rate      Rate
	expiresAt time.Time
}

// rateCache is a process-local TTL cache keyed by currency pair. Concurrent
// refreshes of one key are allowed to race; the worst case is a redundant
// provider call.
type rateCache struct {
	mu   sync.RWMutex
	data map[string]cacheEntry
}

func newRateCache() *rateCache {
	return &rateCache{data: make(map[string]cacheEntry)}
}

func (c *rateCache) get(key string) (Rate, bool) {
	c.mu.RLock()
	entry, ok := c.data[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return Rate{}, false
	}
	return entry.rate, true
}

func (c *rateCache) set(key string, rate Rate, ttl time.Duration) {
	c.mu.Lock()
	c.data[key] = cacheEntry{rate: rate, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
}
