package lock

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache caches lock flags in redis with a short TTL. Any redis failure
// reads as a cache miss so the database stays authoritative.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a cache. TTL defaults to 2s when non-positive.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 2 * time.Second
	}
	return &RedisCache{client: client, ttl: ttl}
}

func cacheKey(key string) string { return "lock:" + key }

// Get reads a cached flag.
func (c *RedisCache) Get(ctx context.Context, key string) (bool, bool) {
	val, err := c.client.Get(ctx, cacheKey(key)).Result()
	if err != nil {
		return false, false
	}
	return val == "1", true
}

// Put writes a flag with the configured TTL.
func (c *RedisCache) Put(ctx context.Context, key string, locked bool) {
	val := "0"
	if locked {
		val = "1"
	}
	_ = c.client.Set(ctx, cacheKey(key), val, c.ttl).Err()
}
