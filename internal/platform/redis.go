package platform

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient creates a Redis client bound to addr. Callers only invoke
// this when a Redis-backed JWKS cache is configured (internal/config.RedisConfig.Addr
// is non-empty); an unconfigured deployment falls back to an in-process cache
// instead of calling this at all.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return client, nil
}
