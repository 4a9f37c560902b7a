package retrieval

import (
	"context"
	"strings"
	"sync"
	"time"
)

const (
	DefaultCacheTTL     = 30 * time.Minute
	DefaultCacheMaxSize = 100
)

// ResponseCache memoizes successful responses by normalized query. Entries
// older than the TTL read as absent; eviction is oldest-inserted first.
type ResponseCache interface {
	Get(ctx context.Context, key string) (*Response, bool, error)
	// EvictIfFull drops the oldest entry when the cache is at capacity.
	EvictIfFull(ctx context.Context) (bool, error)
	Set(ctx context.Context, key string, resp *Response) error
	Len(ctx context.Context) (int, error)
}

// CacheKey normalizes a search query into a cache key.
func CacheKey(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

type cacheEntry struct {
	resp   *Response
	stored time.Time
}

// MemoryCache is an in-process FIFO cache with lazy expiry.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	order   []string
	ttl     time.Duration
	maxSize int
	now     func() time.Time
}

// NewMemoryCache builds a cache; non-positive limits fall back to defaults.
func NewMemoryCache(ttl time.Duration, maxSize int) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if maxSize <= 0 {
		maxSize = DefaultCacheMaxSize
	}
	return &MemoryCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
	}
}

// WithClock swaps the time source, for tests.
func (c *MemoryCache) WithClock(now func() time.Time) *MemoryCache {
	c.now = now
	return c
}

func (c *MemoryCache) Get(_ context.Context, key string) (*Response, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.stored) >= c.ttl {
		return nil, false, nil
	}
	return e.resp, true, nil
}

func (c *MemoryCache) EvictIfFull(_ context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictLocked(), nil
}

func (c *MemoryCache) evictLocked() bool {
	if len(c.entries) < c.maxSize || len(c.order) == 0 {
		return false
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
	return true
}

// Set stores resp. Re-setting an existing key refreshes its value and
// timestamp but keeps its place in the eviction order.
func (c *MemoryCache) Set(_ context.Context, key string, resp *Response) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok {
		c.evictLocked()
		c.order = append(c.order, key)
	}
	c.entries[key] = cacheEntry{resp: resp, stored: c.now()}
	return nil
}

func (c *MemoryCache) Len(_ context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries), nil
}
