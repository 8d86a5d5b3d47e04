package geocode

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/matjarly/dispatch-core/internal/core/domain"
)

// Cache stores successful geocode results by their normalized query key.
// Entries are write-once and idempotent, so concurrent identical lookups
// may race to fill the same key without coordination beyond the map's own
// synchronization.
type Cache interface {
	Get(ctx context.Context, key string) (domain.GeocodeResult, bool)
	Put(ctx context.Context, key string, result domain.GeocodeResult)
}

// GeoKey builds the cache key for a forward geocode.
func GeoKey(address string) string {
	return "geo:" + strings.ToLower(strings.Join(strings.Fields(address), " "))
}

// RevKey builds the cache key for a reverse geocode.
func RevKey(p domain.GeoPoint) string {
	return "rev:" + strconv.FormatFloat(p.Lat, 'f', 6, 64) + "," + strconv.FormatFloat(p.Lng, 'f', 6, 64)
}

const (
	defaultMaxEntries = 10_000
	defaultTTL        = 24 * time.Hour
)

type memoryEntry struct {
	result    domain.GeocodeResult
	expiresAt time.Time
}

// MemoryCache is a bounded, TTL-expiring in-process cache. Long-running
// processes would otherwise grow without limit from distinct address
// strings.
type MemoryCache struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
}

// NewMemoryCache returns a MemoryCache. Non-positive arguments select the
// defaults (10000 entries, 24h TTL).
func NewMemoryCache(maxEntries int, ttl time.Duration) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &MemoryCache{
		entries:    make(map[string]memoryEntry),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) (domain.GeocodeResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.GeocodeResult{}, false
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, key)
		return domain.GeocodeResult{}, false
	}
	return e.result, true
}

func (c *MemoryCache) Put(_ context.Context, key string, result domain.GeocodeResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictLocked()
	}
	c.entries[key] = memoryEntry{result: result, expiresAt: c.now().Add(c.ttl)}
}

// evictLocked frees one slot: expired entries first, an arbitrary entry
// otherwise. Entries are interchangeable memoized lookups, so the victim
// choice does not affect correctness.
func (c *MemoryCache) evictLocked() {
	now := c.now()
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
			return
		}
	}
	for k := range c.entries {
		delete(c.entries, k)
		return
	}
}

// Len reports the current number of cached entries.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
