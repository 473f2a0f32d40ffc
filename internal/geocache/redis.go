// Package geocache fronts the geocoder with a Redis-backed cache.
// Geocoding is the one externally-billed call in the pipeline that repeats
// heavily across requests (the same depot and popular destinations recur),
// so results are cached by address under a long TTL.
package geocache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shiva/routeopt/config"
	"github.com/shiva/routeopt/internal/model"
)

const (
	keyPrefix = "geocode:"
	// ttl is long because coordinates for a named address do not change.
	ttl = 30 * 24 * time.Hour
)

// NewRedisClient creates a Redis client with connection pooling, verifying
// connectivity with a bounded ping before returning.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: 10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping failed: %w", err)
	}

	return client, nil
}

// HealthCheck pings the Redis client and returns nil if healthy.
func HealthCheck(ctx context.Context, client *redis.Client) error {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return client.Ping(pingCtx).Err()
}

// GeocodeCache caches resolved (and unresolved) coordinates by address
// string. It implements geocode.Cache.
type GeocodeCache struct {
	client *redis.Client
}

// NewGeocodeCache wraps an existing Redis client.
func NewGeocodeCache(client *redis.Client) *GeocodeCache {
	return &GeocodeCache{client: client}
}

// Get returns the cached coordinate for address, if present. A Redis error
// is treated as a cache miss — geocoding must never fail because the cache
// is unreachable.
func (c *GeocodeCache) Get(ctx context.Context, address string) (model.Coordinate, bool) {
	raw, err := c.client.Get(ctx, keyPrefix+address).Bytes()
	if err != nil {
		return model.Coordinate{}, false
	}
	var coord model.Coordinate
	if err := json.Unmarshal(raw, &coord); err != nil {
		return model.Coordinate{}, false
	}
	return coord, true
}

// Set stores coord for address. Write failures are swallowed; the cache is
// best-effort and never allowed to fail a geocoding request.
func (c *GeocodeCache) Set(ctx context.Context, address string, coord model.Coordinate) {
	raw, err := json.Marshal(coord)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, keyPrefix+address, raw, ttl).Err()
}
