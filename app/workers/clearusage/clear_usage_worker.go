// Run every month to clear the monthly OpenAI usage counters
package clearusage

import (
	"context"
	"resumotube/m/v2/app/config"
	"resumotube/m/v2/app/db/redis"
	"resumotube/m/v2/app/workers"
	"time"

	log "github.com/sirupsen/logrus"
)

// the reset marker outlives the longest month
const RESET_MARKER_TTL = 32 * 24 * time.Hour

type Job struct {
	Cache redis.Client
	Now   func() time.Time
}

func NewWorker(cache redis.Client) *workers.Worker {
	job := &Job{Cache: cache, Now: time.Now}
	return workers.NewWorker("clearusage", config.CLEAR_USAGE_WORKER_INTERVAL, job.Run, true)
}

// Run clears the monthly counters at most once per month, so restarts on the first day keep the new usage.
func (j *Job) Run(ctx context.Context) {
	month := j.Now().UTC().Format("2006-01")
	first, err := redis.AcquireLock(ctx, j.Cache, redis.UsageResetKey(month), RESET_MARKER_TTL)
	if err != nil {
		log.WithError(err).Errorf("failed to mark usage reset for %s, skipping", month)
		return
	}
	if !first {
		log.Infof("usage already cleared for %s", month)
		return
	}
	j.clearByWildcard(ctx, redis.MonthlyUsageKey("*"))
	log.Infof("finished usage clearing for %s", month)
}

func (j *Job) clearByWildcard(ctx context.Context, wildcard string) {
	log.Infof("clearing %s..", wildcard)
	keys := j.Cache.Keys(ctx, wildcard)
	config.CONFIG.DataDogClient.Gauge("clear_usage_worker.keys", float64(len(keys.Val())), []string{"wildcard:" + wildcard}, 1)
	log.Infof("clearing %s, keys count: %d", wildcard, len(keys.Val()))

	if len(keys.Val()) == 0 {
		log.Infof("no keys to clear for %s", wildcard)
		return
	}
	cmd := j.Cache.Del(ctx, keys.Val()...)
	if cmd.Err() != nil {
		log.Errorf("failed to clear %s: %s", wildcard, cmd.Err())
		return
	}
	count, _ := cmd.Result()
	log.Infof("cleared %d keys for %s", count, wildcard)
}
