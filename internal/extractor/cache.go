package extractor

import (
	"sync"
	"time"

	"github.com/streamwisdom/streamwisdom-api/internal/models"
)

// Cache holds extraction results keyed by URL for a fixed TTL. Concurrent
// requests for the same cold URL each fetch independently; the last writer
// wins, which is acceptable since results for one URL are interchangeable.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

type cacheEntry struct {
	content *models.ExtractedContent
	expires time.Time
}

func NewCache(ttl time.Duration) *Cache {
	return &Cache{ttl: ttl, entries: make(map[string]cacheEntry)}
}

func (c *Cache) Get(key string) (*models.ExtractedContent, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return e.content, true
}

func (c *Cache) Set(key string, content *models.ExtractedContent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{content: content, expires: time.Now().Add(c.ttl)}
	// Opportunistic sweep keeps the map from accumulating dead entries
	// on long-lived processes without a background goroutine.
	if len(c.entries) > 256 {
		now := time.Now()
		for k, e := range c.entries {
			if now.After(e.expires) {
				delete(c.entries, k)
			}
		}
	}
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
