// Run regularly to check status of the system and persist it to the redis
package status

import (
	"context"
	"encoding/json"
	"resumotube/m/v2/app/alerts"
	"resumotube/m/v2/app/config"
	"resumotube/m/v2/app/db/redis"
	"resumotube/m/v2/app/status"
	"resumotube/m/v2/app/workers"
	"time"

	log "github.com/sirupsen/logrus"
)

type Job struct {
	Status   *status.SystemStatusHandler
	Cache    redis.Client
	Notifier alerts.Notifier
	CacheTTL time.Duration
}

func NewWorker(handler *status.SystemStatusHandler, cache redis.Client, notifier alerts.Notifier, cfg *config.Config) *workers.Worker {
	interval := cfg.StatusWorkerInterval
	if interval <= 0 {
		interval = config.STATUS_WORKER_INTERVAL
	}
	job := &Job{
		Status:   handler,
		Cache:    cache,
		Notifier: notifier,
		CacheTTL: interval,
	}
	return workers.NewWorker("status", interval, job.Run, false)
}

func (j *Job) Run(ctx context.Context) {
	systemStatus, err := redis.WrapInCache(ctx, j.Cache, redis.SystemStatusKey, j.CacheTTL, func() (string, error) {
		return j.FetchStatus(ctx)
	})()
	if err != nil {
		log.Errorf("failed to fetch system status: %s", err)
		return
	}
	log.Debugf("system status: %s", systemStatus)
}

func (j *Job) FetchStatus(ctx context.Context) (string, error) {
	systemStatus := j.Status.GetSystemStatus(ctx)
	config.CONFIG.DataDogClient.Gauge("status_worker.mongo_db_available", boolToFloat64(systemStatus.MongoDB.Available), nil, 1)
	config.CONFIG.DataDogClient.Gauge("status_worker.open_ai_available", boolToFloat64(systemStatus.OpenAI.Available), nil, 1)
	config.CONFIG.DataDogClient.Gauge("status_worker.redis_available", boolToFloat64(systemStatus.Redis.Available), nil, 1)
	config.CONFIG.DataDogClient.Gauge("status_worker.total_cost", systemStatus.Usage.TotalCost, nil, 1)
	config.CONFIG.DataDogClient.Gauge("status_worker.total_tokens", float64(systemStatus.Usage.TotalTokens), nil, 1)
	config.CONFIG.DataDogClient.Gauge("status_worker.total_summaries", float64(systemStatus.Usage.TotalSummaries), nil, 1)
	config.CONFIG.DataDogClient.Gauge("status_worker.total_users", float64(systemStatus.Usage.TotalUsers), nil, 1)
	config.CONFIG.DataDogClient.Gauge("status_worker.basic_users", float64(systemStatus.Usage.BasicUsers), nil, 1)
	config.CONFIG.DataDogClient.Gauge("status_worker.pro_users", float64(systemStatus.Usage.ProUsers), nil, 1)
	config.CONFIG.DataDogClient.Gauge("status_worker.premium_users", float64(systemStatus.Usage.PremiumUsers), nil, 1)
	if j.Notifier != nil {
		if !systemStatus.MongoDB.Available {
			j.Notifier.ServiceDown(ctx, "MongoDB")
		}
		if !systemStatus.Redis.Available {
			j.Notifier.ServiceDown(ctx, "Redis")
		}
		if !systemStatus.OpenAI.Available {
			j.Notifier.ServiceDown(ctx, "OpenAI")
		}
	}
	statusBytes, _ := json.Marshal(systemStatus)
	return string(statusBytes), nil
}

func boolToFloat64(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
