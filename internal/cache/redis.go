package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache backs the Cache interface with an external TTL store so that
// deduplication and cached results survive across horizontally scaled
// instances. Still best-effort: Redis errors degrade to cache misses.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache creates a Redis-backed cache. The prefix namespaces keys so
// multiple caches can share one Redis database.
func NewRedisCache(addr, prefix string) *RedisCache {
	client := redis.NewClient(&redis.Options{Addr: addr})
	slog.Debug("RedisCache created", "addr", addr, "prefix", prefix)
	return &RedisCache{client: client, prefix: prefix}
}

var _ Cache = (*RedisCache)(nil)

// Get returns the cached value if present and unexpired.
func (c *RedisCache) Get(ctx context.Context, key string) (string, bool) {
	val, err := c.client.Get(ctx, c.prefix+key).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		slog.Warn("RedisCache Get failed, treating as miss", "error", err, "key", key)
		return "", false
	}
	return val, true
}

// Set stores a value with the given TTL. Redis enforces expiry; capacity is
// left to the server's eviction policy.
func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		slog.Warn("RedisCache Set failed", "error", err, "key", key)
	}
}

// Close releases the underlying Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
