package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	r "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
)

func TestWrapInCache(t *testing.T) {
	client := NewMockRedisClient()
	calls := 0
	fn := func() (string, error) {
		calls++
		return "fresh", nil
	}

	value, err := WrapInCache(context.Background(), client, "key", time.Minute, fn)()
	assert.NoError(t, err)
	assert.Equal(t, "fresh", value)

	value, err = WrapInCache(context.Background(), client, "key", time.Minute, fn)()
	assert.NoError(t, err)
	assert.Equal(t, "fresh", value)
	assert.Equal(t, 1, calls)
}

func TestWrapInCacheError(t *testing.T) {
	client := NewMockRedisClient()
	_, err := WrapInCache(context.Background(), client, "key", time.Minute, func() (string, error) {
		return "", errors.New("boom")
	})()
	assert.Error(t, err)

	_, err = client.Get(context.Background(), "key").Result()
	assert.Error(t, err, "failed calls are not cached")
}

// brokenCache fails every read and write
type brokenCache struct {
	Client
}

func (brokenCache) Get(ctx context.Context, key string) *r.StringCmd {
	return r.NewStringResult("", ErrMockUnavailable)
}

func (brokenCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *r.StatusCmd {
	return r.NewStatusResult("", ErrMockUnavailable)
}

func TestWrapInCacheWithBrokenCache(t *testing.T) {
	value, err := WrapInCache(context.Background(), brokenCache{}, "key", time.Minute, func() (string, error) {
		return "fresh", nil
	})()
	assert.NoError(t, err)
	assert.Equal(t, "fresh", value)
}

func TestLocks(t *testing.T) {
	client := NewMockRedisClient()
	ctx := context.Background()
	key := RefreshLockKey("https://www.youtube.com/@veritasium")
	assert.Equal(t, "refresh-lock:https://www.youtube.com/@veritasium", key)

	ok, err := AcquireLock(ctx, client, key, time.Minute)
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = AcquireLock(ctx, client, key, time.Minute)
	assert.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, ReleaseLock(ctx, client, key))

	ok, err = AcquireLock(ctx, client, key, time.Minute)
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestMockKeys(t *testing.T) {
	client := NewMockRedisClient()
	ctx := context.Background()
	client.IncrBy(ctx, MonthlyUsageKey("tokens"), 10)
	client.IncrByFloat(ctx, MonthlyUsageKey("cost"), 0.5)
	client.IncrBy(ctx, SystemTotalsTokensKey, 10)

	keys := client.Keys(ctx, MonthlyUsageKey("*")).Val()
	assert.Equal(t, []string{"monthly_usage:cost", "monthly_usage:tokens"}, keys)

	deleted := client.Del(ctx, keys...).Val()
	assert.Equal(t, int64(2), deleted)

	tokens, err := client.Get(ctx, SystemTotalsTokensKey).Int64()
	assert.NoError(t, err)
	assert.Equal(t, int64(10), tokens)
}
