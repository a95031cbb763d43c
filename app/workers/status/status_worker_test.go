package status

import (
	"context"
	"encoding/json"
	"resumotube/m/v2/app/alerts"
	"resumotube/m/v2/app/config"
	"resumotube/m/v2/app/db/mongo"
	"resumotube/m/v2/app/db/redis"
	"resumotube/m/v2/app/openai"
	"resumotube/m/v2/app/status"
	"testing"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	config.CONFIG = &config.Config{
		DataDogClient: &statsd.NoOpClient{},
	}
}

func TestRunCachesStatus(t *testing.T) {
	cache := redis.NewMockRedisClient()
	ai := &openai.MockAPI{}
	notifier := &alerts.MockNotifier{}
	job := &Job{
		Status:   status.New(mongo.NewMockMongoDBClient(), cache, ai),
		Cache:    cache,
		Notifier: notifier,
		CacheTTL: time.Minute,
	}

	job.Run(context.Background())

	cached, err := cache.Get(context.Background(), redis.SystemStatusKey).Result()
	require.NoError(t, err)
	var systemStatus status.SystemStatus
	require.NoError(t, json.Unmarshal([]byte(cached), &systemStatus))
	assert.True(t, systemStatus.MongoDB.Available)
	assert.True(t, systemStatus.Redis.Available)
	assert.Empty(t, notifier.DownSystems())

	// a cached status is not fetched again
	ai.Unavailable = true
	job.Run(context.Background())
	assert.Empty(t, notifier.DownSystems())
}

func TestFetchStatusAlertsOnOutage(t *testing.T) {
	db := mongo.NewMockMongoDBClient()
	db.PingErr = redis.ErrMockUnavailable
	notifier := &alerts.MockNotifier{}
	job := &Job{
		Status:   status.New(db, redis.NewMockRedisClient(), &openai.MockAPI{Unavailable: true}),
		Cache:    redis.NewMockRedisClient(),
		Notifier: notifier,
	}

	_, err := job.FetchStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"MongoDB", "OpenAI"}, notifier.DownSystems())
}
