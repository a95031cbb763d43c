package status

import (
	"context"
	"errors"
	"resumotube/m/v2/app/db/mongo"
	"resumotube/m/v2/app/db/redis"
	"resumotube/m/v2/app/models"
	"resumotube/m/v2/app/openai"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetSystemStatus(t *testing.T) {
	db := mongo.NewMockMongoDBClient(
		models.MongoUser{Email: "a@example.com", Tier: models.BasicSubscriptionName, SubscriptionStatus: models.SubscriptionStatusActive},
		models.MongoUser{Email: "b@example.com", Tier: models.PremiumSubscriptionName, SubscriptionStatus: models.SubscriptionStatusActive},
		models.MongoUser{Email: "c@example.com", Tier: models.PremiumSubscriptionName, SubscriptionStatus: models.SubscriptionStatusActive},
		models.MongoUser{Email: "d@example.com"},
	)
	cache := redis.NewMockRedisClient()
	ctx := context.Background()
	cache.IncrBy(ctx, redis.SystemTotalsTokensKey, 1200)
	cache.IncrByFloat(ctx, redis.SystemTotalsCostKey, 0.25)
	cache.IncrBy(ctx, redis.SystemTotalsSummariesKey, 7)

	status := New(db, cache, &openai.MockAPI{}).GetSystemStatus(ctx)

	assert.True(t, status.MongoDB.Available)
	assert.True(t, status.Redis.Available)
	assert.True(t, status.OpenAI.Available)
	assert.Equal(t, SystemUsage{
		TotalUsers:     4,
		BasicUsers:     1,
		PremiumUsers:   2,
		TotalTokens:    1200,
		TotalCost:      0.25,
		TotalSummaries: 7,
	}, status.Usage)
	assert.False(t, status.Time.IsZero())
}

func TestGetSystemStatusOutages(t *testing.T) {
	db := mongo.NewMockMongoDBClient(models.MongoUser{Email: "a@example.com"})
	db.PingErr = errors.New("connection refused")
	cache := redis.NewMockRedisClient()
	cache.PingErr = redis.ErrMockUnavailable
	cache.IncrBy(context.Background(), redis.SystemTotalsTokensKey, 10)

	status := New(db, cache, &openai.MockAPI{Unavailable: true}).GetSystemStatus(context.Background())

	assert.False(t, status.MongoDB.Available)
	assert.False(t, status.Redis.Available)
	assert.False(t, status.OpenAI.Available)
	assert.Equal(t, SystemUsage{}, status.Usage)
}

func TestGetSystemStatusWithoutClients(t *testing.T) {
	status := New(nil, nil, nil).GetSystemStatus(context.Background())
	assert.False(t, status.MongoDB.Available)
	assert.False(t, status.Redis.Available)
	assert.False(t, status.OpenAI.Available)
}
