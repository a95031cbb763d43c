package status

import (
	"context"
	"resumotube/m/v2/app/db/mongo"
	"resumotube/m/v2/app/db/redis"
	"resumotube/m/v2/app/models"
	"resumotube/m/v2/app/openai"
	"time"

	"github.com/sirupsen/logrus"
)

const PING_TIMEOUT = 10 * time.Second

type SystemStatus struct {
	MongoDB *Status     `json:"mongodb"`
	Redis   *Status     `json:"redis"`
	OpenAI  *Status     `json:"openai"`
	Time    time.Time   `json:"time"`
	Usage   SystemUsage `json:"usage"`
}

type SystemUsage struct {
	TotalUsers     int64   `json:"total_users"`
	BasicUsers     int64   `json:"basic_users"`
	ProUsers       int64   `json:"pro_users"`
	PremiumUsers   int64   `json:"premium_users"`
	TotalTokens    int64   `json:"total_tokens"`
	TotalCost      float64 `json:"total_cost"`
	TotalSummaries int64   `json:"total_summaries"`
}

// Status
type Status struct {
	Available bool `json:"available"`
}

// SystemStatusHandler is a handler for system status
type SystemStatusHandler struct {
	MongoDB mongo.MongoClient
	Redis   redis.Client
	AI      openai.Completer
}

func New(mongoDB mongo.MongoClient, redis redis.Client, ai openai.Completer) *SystemStatusHandler {
	return &SystemStatusHandler{
		MongoDB: mongoDB,
		Redis:   redis,
		AI:      ai,
	}
}

// GetSystemStatus gets a status of the system
func (h *SystemStatusHandler) GetSystemStatus(ctx context.Context) SystemStatus {
	status := SystemStatus{
		MongoDB: &Status{Available: h.mongoAvailable(ctx)},
		Redis:   &Status{Available: h.Redis != nil && h.Redis.Ping(ctx).Err() == nil},
		OpenAI:  &Status{Available: h.AI != nil && h.AI.IsAvailable(ctx)},
		Time:    time.Now(),
	}
	if status.Redis.Available {
		if tokens := h.Redis.Get(ctx, redis.SystemTotalsTokensKey); tokens.Err() == nil {
			status.Usage.TotalTokens, _ = tokens.Int64()
		}
		if cost := h.Redis.Get(ctx, redis.SystemTotalsCostKey); cost.Err() == nil {
			status.Usage.TotalCost, _ = cost.Float64()
		}
		if summaries := h.Redis.Get(ctx, redis.SystemTotalsSummariesKey); summaries.Err() == nil {
			status.Usage.TotalSummaries, _ = summaries.Int64()
		}
	}
	if status.MongoDB.Available {
		status.Usage.TotalUsers, _ = h.MongoDB.GetUsersCount(ctx)
		status.Usage.BasicUsers, _ = h.MongoDB.GetUsersCountForTier(ctx, models.BasicSubscriptionName)
		status.Usage.ProUsers, _ = h.MongoDB.GetUsersCountForTier(ctx, models.ProSubscriptionName)
		status.Usage.PremiumUsers, _ = h.MongoDB.GetUsersCountForTier(ctx, models.PremiumSubscriptionName)
	}
	return status
}

func (h *SystemStatusHandler) mongoAvailable(ctx context.Context) bool {
	if h.MongoDB == nil {
		return false
	}
	ctxPing, cancelPing := context.WithTimeout(ctx, PING_TIMEOUT)
	defer cancelPing()
	if err := h.MongoDB.Ping(ctxPing, nil); err != nil {
		logrus.WithError(err).Warn("GetSystemStatus: failed to ping MongoDB")
		return false
	}
	return true
}
