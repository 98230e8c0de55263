package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"jobscout/internal/domain/entity"
	"jobscout/internal/resilience/circuitbreaker"
)

// RedisResultCache implements search.ResultCache. Entries are JSON encoded
// and expire after the configured TTL.
type RedisResultCache struct {
	client  *redis.Client
	breaker *circuitbreaker.CircuitBreaker
	ttl     time.Duration
	prefix  string
}

type cachedResult struct {
	StoredAt time.Time        `json:"stored_at"`
	Listings []entity.Listing `json:"listings"`
}

// NewRedisResultCache wraps client. breaker may be nil.
func NewRedisResultCache(client *redis.Client, cfg Config, breaker *circuitbreaker.CircuitBreaker) *RedisResultCache {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultConfig().TTL
	}
	return &RedisResultCache{client: client, breaker: breaker, ttl: cfg.TTL, prefix: cfg.KeyPrefix}
}

func (c *RedisResultCache) guard(fn func() error) error {
	if c.breaker == nil {
		return fn()
	}
	_, err := c.breaker.Execute(func() (any, error) { return nil, fn() })
	return err
}

// Get returns the cached listings for key. A miss is (nil, false, nil).
func (c *RedisResultCache) Get(ctx context.Context, key string) ([]entity.Listing, bool, error) {
	var (
		raw  []byte
		miss bool
	)
	err := c.guard(func() error {
		b, err := c.client.Get(ctx, c.prefix+key).Bytes()
		if errors.Is(err, redis.Nil) {
			miss = true
			return nil
		}
		raw = b
		return err
	})
	if err != nil {
		return nil, false, fmt.Errorf("cache: get %s: %w", key, err)
	}
	if miss {
		return nil, false, nil
	}

	var entry cachedResult
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, false, fmt.Errorf("cache: decode %s: %w", key, err)
	}
	if entry.Listings == nil {
		entry.Listings = []entity.Listing{}
	}
	return entry.Listings, true, nil
}

// Set stores listings under key with the cache TTL.
func (c *RedisResultCache) Set(ctx context.Context, key string, listings []entity.Listing) error {
	data, err := json.Marshal(cachedResult{StoredAt: time.Now().UTC(), Listings: listings})
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}
	if err := c.guard(func() error {
		return c.client.Set(ctx, c.prefix+key, data, c.ttl).Err()
	}); err != nil {
		return fmt.Errorf("cache: set %s: %w", key, err)
	}
	return nil
}

// Purge deletes every entry under the cache prefix and returns the count.
func (c *RedisResultCache) Purge(ctx context.Context) (int, error) {
	var deleted int
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return deleted, fmt.Errorf("cache: purge: %w", err)
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("cache: purge: %w", err)
	}
	return deleted, nil
}

// Probe pings Redis without the breaker. It backs the "cache" recovery probe.
func (c *RedisResultCache) Probe(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
