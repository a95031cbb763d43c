package redis

import (
	"context"
	"errors"
	"resumotube/m/v2/app/config"
	"resumotube/m/v2/app/util"
	"time"

	r "github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

// Client is a redis client
type Client interface {
	Del(ctx context.Context, keys ...string) *r.IntCmd
	Get(ctx context.Context, key string) *r.StringCmd
	IncrBy(ctx context.Context, key string, value int64) *r.IntCmd
	IncrByFloat(ctx context.Context, key string, value float64) *r.FloatCmd
	Keys(ctx context.Context, pattern string) *r.StringSliceCmd
	Ping(ctx context.Context) *r.StatusCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *r.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *r.BoolCmd
}

var RedisClient Client

// NewClient creates a new redis client
func NewClient(cfg config.Redis) Client {
	client := r.NewClient(&r.Options{
		Addr:     cfg.Host + ":" + cfg.Port,
		Password: cfg.Password,
		DB:       0,
	})
	_, err := client.Ping(context.Background()).Result()
	util.Assert(err == nil, "Redis connection failed", err)
	return client
}

// WrapInCache serves key from the cache and otherwise stores the result of fn under it for ttl.
// A broken cache only costs the extra call to fn; errors of fn are never cached.
func WrapInCache(ctx context.Context, c Client, key string, ttl time.Duration, fn func() (string, error)) func() (string, error) {
	return func() (string, error) {
		cached, err := c.Get(ctx, key).Result()
		switch {
		case err == nil:
			return cached, nil
		case !errors.Is(err, r.Nil):
			log.WithError(err).Warnf("WrapInCache: failed to read %s", key)
		}

		data, err := fn()
		if err != nil {
			return "", err
		}
		if err := c.Set(ctx, key, data, ttl).Err(); err != nil {
			log.WithError(err).Warnf("WrapInCache: failed to store %s", key)
		}
		return data, nil
	}
}
