package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobscout/internal/domain/entity"
	"jobscout/internal/resilience/circuitbreaker"
)

func setupTestCache(t *testing.T, breaker *circuitbreaker.CircuitBreaker) (*RedisResultCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := DefaultConfig()
	cfg.TTL = time.Minute
	return NewRedisResultCache(rdb, cfg, breaker), mr
}

func testListings() []entity.Listing {
	return []entity.Listing{
		{ID: "remotive:1", Title: "Go Engineer", Organization: "Acme", SourceName: "remotive", Score: 11,
			PostedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "linkedin:2", Title: "SRE", Organization: "Globex", SourceName: "linkedin", Score: 1},
	}
}

func TestRedisResultCache_SetGet(t *testing.T) {
	c, mr := setupTestCache(t, nil)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "go|remote", testListings()))
	assert.True(t, mr.Exists("jobscout:search:go|remote"))

	got, ok, err := c.Get(ctx, "go|remote")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, testListings(), got)
}

func TestRedisResultCache_Miss(t *testing.T) {
	c, _ := setupTestCache(t, nil)

	got, ok, err := c.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestRedisResultCache_EmptyResultIsAHit(t *testing.T) {
	c, _ := setupTestCache(t, nil)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", nil))
	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRedisResultCache_Expires(t *testing.T) {
	c, mr := setupTestCache(t, nil)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", testListings()))
	mr.FastForward(2 * time.Minute)

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisResultCache_CorruptEntry(t *testing.T) {
	c, mr := setupTestCache(t, nil)
	require.NoError(t, mr.Set("jobscout:search:k", "{not json"))

	_, ok, err := c.Get(context.Background(), "k")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestRedisResultCache_BreakerOpensWhenRedisDown(t *testing.T) {
	cb := circuitbreaker.New(circuitbreaker.Config{Name: "cache-test", FailureThreshold: 2, RecoveryTimeout: time.Minute}, nil)
	c, mr := setupTestCache(t, cb)
	ctx := context.Background()
	mr.Close()

	for range 2 {
		_, _, err := c.Get(ctx, "k")
		require.Error(t, err)
	}
	_, _, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
	assert.Error(t, c.Probe(ctx))
}

func TestRedisResultCache_Purge(t *testing.T) {
	c, mr := setupTestCache(t, nil)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "a", testListings()))
	require.NoError(t, c.Set(ctx, "b", testListings()))
	require.NoError(t, mr.Set("other:key", "keep"))

	n, err := c.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, mr.Exists("other:key"))
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("SEARCH_CACHE_TTL", "90s")

	cfg := LoadConfigFromEnv(nil, nil)
	assert.True(t, cfg.Enabled())
	assert.Equal(t, 90*time.Second, cfg.TTL)
	assert.Equal(t, "jobscout:search:", cfg.KeyPrefix)
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	_ = client.Close()

	_, err = NewRedisClient(context.Background(), "not a url")
	assert.Error(t, err)
}
