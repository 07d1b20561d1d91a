package bearer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/redis/go-redis/v9"
)

// Cache stores a fetched JWKS document for some TTL, keyed by the JWKS URL it
// was fetched from. A cache miss (expired or absent entry) must trigger
// exactly one forced refresh by the caller before failing, per the
// validator's refresh-on-kid-miss contract.
type Cache interface {
	Get(ctx context.Context, jwksURL string) (jose.JSONWebKeySet, bool)
	Set(ctx context.Context, jwksURL string, set jose.JSONWebKeySet, ttl time.Duration)
}

// InProcessCache is the default, single-process JWKS cache. Readers share a
// read lock while copying the current entry; Set, called by the validator
// after an on-demand fetch, takes the write lock only to replace the entry.
type InProcessCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	set       jose.JSONWebKeySet
	expiresAt time.Time
}

// NewInProcessCache builds an empty in-process cache.
func NewInProcessCache() *InProcessCache {
	return &InProcessCache{entries: make(map[string]cacheEntry)}
}

// Get returns the cached key set for jwksURL if present and not expired.
func (c *InProcessCache) Get(_ context.Context, jwksURL string) (jose.JSONWebKeySet, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[jwksURL]
	if !ok || time.Now().After(e.expiresAt) {
		return jose.JSONWebKeySet{}, false
	}
	return e.set, true
}

// Set stores set under jwksURL with the given TTL.
func (c *InProcessCache) Set(_ context.Context, jwksURL string, set jose.JSONWebKeySet, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[jwksURL] = cacheEntry{set: set, expiresAt: time.Now().Add(ttl)}
}

// RedisCache shares a JWKS cache across every process behind the management
// plane's load balancer, storing the key set as one JSON value with a
// Redis-side expiry.
type RedisCache struct {
	redis *redis.Client
}

// NewRedisCache builds a Redis-backed JWKS cache.
func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{redis: rdb}
}

func redisCacheKey(jwksURL string) string {
	return fmt.Sprintf("lightbridge_authz:jwks:%s", jwksURL)
}

// Get fetches and unmarshals the cached key set, if present.
func (c *RedisCache) Get(ctx context.Context, jwksURL string) (jose.JSONWebKeySet, bool) {
	raw, err := c.redis.Get(ctx, redisCacheKey(jwksURL)).Bytes()
	if err != nil {
		return jose.JSONWebKeySet{}, false
	}

	var set jose.JSONWebKeySet
	if err := json.Unmarshal(raw, &set); err != nil {
		return jose.JSONWebKeySet{}, false
	}
	return set, true
}

// Set marshals and stores the key set with the given TTL via a single SET
// with expiry.
func (c *RedisCache) Set(ctx context.Context, jwksURL string, set jose.JSONWebKeySet, ttl time.Duration) {
	raw, err := json.Marshal(set)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, redisCacheKey(jwksURL), raw, ttl).Err()
}
