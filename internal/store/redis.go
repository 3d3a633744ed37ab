package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is the cache client backing lock-state reads. Timeouts are kept
// short because callers treat any cache error as a miss; an outage must
// never stall a request.
type Redis struct {
	Client *redis.Client
}

// NewRedis builds a client for the given address.
func NewRedis(addr string) *Redis {
	return &Redis{Client: redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
		PoolSize:     8,
	})}
}

// Healthy reports whether the cache answers a ping. The API stays up
// without it; /healthz only surfaces the state.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	return r.Client.Ping(ctx).Err() == nil
}
