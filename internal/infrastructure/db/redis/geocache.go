package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/matjarly/dispatch-core/internal/core/domain"
)

const (
	cachePrefix     = "geocache:"
	defaultCacheTTL = 24 * time.Hour
)

// GeoCache is a Redis-backed geocode cache shared across processes.
// Writes are idempotent upserts of pure-function results, so concurrent
// fills of the same key are harmless. Redis errors degrade to cache
// misses; the gateway then simply asks the provider again.
type GeoCache struct {
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

// NewGeoCache creates a GeoCache wrapping the given Redis client.
// A non-positive ttl selects the 24h default.
func NewGeoCache(client *redis.Client, ttl time.Duration, log zerolog.Logger) *GeoCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &GeoCache{client: client, ttl: ttl, log: log}
}

func (c *GeoCache) Get(ctx context.Context, key string) (domain.GeocodeResult, bool) {
	raw, err := c.client.Get(ctx, cachePrefix+key).Bytes()
	if err == redis.Nil {
		return domain.GeocodeResult{}, false
	}
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("geocache read failed, treating as miss")
		return domain.GeocodeResult{}, false
	}

	var result domain.GeocodeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("geocache entry corrupt, treating as miss")
		return domain.GeocodeResult{}, false
	}
	return result, true
}

func (c *GeoCache) Put(ctx context.Context, key string, result domain.GeocodeResult) {
	raw, err := json.Marshal(result)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("geocache marshal failed")
		return
	}
	if err := c.client.Set(ctx, cachePrefix+key, raw, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("geocache write failed")
	}
}
