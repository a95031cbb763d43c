package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"resumotube/m/v2/app/config"
	"resumotube/m/v2/app/db/mongo"
	"resumotube/m/v2/app/db/redis"
	"resumotube/m/v2/app/models"
	"resumotube/m/v2/app/util"
	"time"

	log "github.com/sirupsen/logrus"
)

// SystemUser tags OpenAI calls made by the service itself, e.g. availability pings.
const SystemUser = "SYSTEM:STATUS"

var ErrQuotaExceeded = errors.New("plan quota exceeded")

// Bill records the cost of an OpenAI call in the system and monthly usage counters.
func Bill(ctx context.Context, usage models.CostAndUsage) models.CostAndUsage {
	usage.Cost = float64(usage.Usage.PromptTokens)*usage.PricePerInputUnit + float64(usage.Usage.CompletionTokens)*usage.PricePerOutputUnit

	userType := "system"
	if usage.User != "" && usage.User != SystemUser {
		userType = "user"
	}
	config.CONFIG.DataDogClient.Distribution("billing.cost", usage.Cost, []string{"engine:" + string(usage.Engine), "user_type:" + userType}, 1)
	billBytes, _ := json.Marshal(usage)
	log.Infof("Billing: %s", string(billBytes))

	if redis.RedisClient == nil {
		log.Warn("Billing: redis is not configured, usage is not persisted")
		return usage
	}
	redis.RedisClient.IncrByFloat(ctx, redis.SystemTotalsCostKey, usage.Cost)
	redis.RedisClient.IncrByFloat(ctx, redis.MonthlyUsageKey("cost"), usage.Cost)
	if usage.Usage.TotalTokens > 0 {
		redis.RedisClient.IncrBy(ctx, redis.SystemTotalsTokensKey, int64(usage.Usage.TotalTokens))
		redis.RedisClient.IncrBy(ctx, redis.MonthlyUsageKey("tokens"), int64(usage.Usage.TotalTokens))
		config.CONFIG.DataDogClient.Distribution("billing.tokens", float64(usage.Usage.TotalTokens), []string{"engine:" + string(usage.Engine), "user_type:" + userType}, 1)
	}
	return usage
}

// Usage is the account usage payload.
type Usage struct {
	ChannelsCount      int64                        `json:"channelsCount"`
	VideosThisMonth    int64                        `json:"videosThisMonth"`
	MaxChannels        int64                        `json:"maxChannels"`
	MaxVideosPerMonth  int64                        `json:"maxVideosPerMonth"`
	Tier               models.MongoSubscriptionName `json:"tier"`
	SubscriptionStatus models.SubscriptionStatus    `json:"subscriptionStatus"`
	NextBillingDate    *time.Time                   `json:"nextBillingDate"`
}

// PlanForUser falls back to the basic plan for users without a tier.
func PlanForUser(user *models.MongoUser) (models.SubscriptionPlan, bool) {
	tier := user.Tier
	if tier == "" {
		tier = models.BasicSubscriptionName
	}
	return models.PlanForTier(tier)
}

func GetUsage(ctx context.Context, db mongo.MongoClient, user *models.MongoUser) (*Usage, error) {
	plan, ok := PlanForUser(user)
	if !ok {
		return nil, fmt.Errorf("GetUsage: %w: no plan for tier %s", mongo.ErrNotFound, user.Tier)
	}
	channelsCount, err := db.CountUserChannels(ctx, user.Email)
	if err != nil {
		return nil, fmt.Errorf("GetUsage: %w", err)
	}
	videosThisMonth, err := db.CountUserVideoSummariesSince(ctx, user.Email, util.StartOfMonth(time.Now()))
	if err != nil {
		return nil, fmt.Errorf("GetUsage: %w", err)
	}
	return &Usage{
		ChannelsCount:      channelsCount,
		VideosThisMonth:    videosThisMonth,
		MaxChannels:        plan.MaxChannels,
		MaxVideosPerMonth:  plan.MaxVideosPerMonth,
		Tier:               user.Tier,
		SubscriptionStatus: user.SubscriptionStatus,
		NextBillingDate:    user.CurrentPeriodEnd,
	}, nil
}

// CheckChannelQuota fails with ErrQuotaExceeded when the user cannot follow another channel.
func CheckChannelQuota(ctx context.Context, db mongo.MongoClient, user *models.MongoUser) error {
	usage, err := GetUsage(ctx, db, user)
	if err != nil {
		return fmt.Errorf("CheckChannelQuota: %w", err)
	}
	if usage.ChannelsCount >= usage.MaxChannels {
		config.CONFIG.DataDogClient.Incr("billing.quota_reached", []string{"quota:channels", "tier:" + string(usage.Tier)}, 1)
		return fmt.Errorf("CheckChannelQuota: %d of %d channels: %w", usage.ChannelsCount, usage.MaxChannels, ErrQuotaExceeded)
	}
	return nil
}

// CheckVideoQuota fails with ErrQuotaExceeded when the monthly summaries are used up.
func CheckVideoQuota(ctx context.Context, db mongo.MongoClient, user *models.MongoUser) error {
	usage, err := GetUsage(ctx, db, user)
	if err != nil {
		return fmt.Errorf("CheckVideoQuota: %w", err)
	}
	if usage.VideosThisMonth >= usage.MaxVideosPerMonth {
		config.CONFIG.DataDogClient.Incr("billing.quota_reached", []string{"quota:videos", "tier:" + string(usage.Tier)}, 1)
		return fmt.Errorf("CheckVideoQuota: %d of %d videos: %w", usage.VideosThisMonth, usage.MaxVideosPerMonth, ErrQuotaExceeded)
	}
	return nil
}
