package llm

import (
	"sync"
	"time"
)

// DefaultCacheTTL is how long a categorization result is reused.
const DefaultCacheTTL = 15 * time.Minute

// maxCacheEntries bounds the cache; expired entries are pruned when it fills.
const maxCacheEntries = 1024

type cacheEntry struct {
	expiry time.Time
	result Categorization
}

// resultCache provides thread-safe caching for categorization results.
type resultCache struct {
	entries map[string]cacheEntry
	now     func() time.Time
	ttl     time.Duration
	mu      sync.RWMutex
}

func newResultCache(ttl time.Duration, now func() time.Time) *resultCache {
	if ttl == 0 {
		ttl = DefaultCacheTTL
	}
	return &resultCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     now,
	}
}

// get retrieves a result if it exists and hasn't expired.
func (c *resultCache) get(key string) (Categorization, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists || c.now().After(entry.expiry) {
		return Categorization{}, false
	}
	return entry.result, true
}

func (c *resultCache) set(key string, result Categorization) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if len(c.entries) >= maxCacheEntries {
		for k, entry := range c.entries {
			if now.After(entry.expiry) {
				delete(c.entries, k)
			}
		}
		if len(c.entries) >= maxCacheEntries {
			c.entries = make(map[string]cacheEntry)
		}
	}
	c.entries[key] = cacheEntry{result: result, expiry: now.Add(c.ttl)}
}

func (c *resultCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
