// Run regularly to pick up new videos of channels nobody looked at recently
package refresh

import (
	"context"
	"resumotube/m/v2/app/config"
	"resumotube/m/v2/app/db/mongo"
	"resumotube/m/v2/app/models"
	"resumotube/m/v2/app/workers"
	"time"

	log "github.com/sirupsen/logrus"
)

type Checker interface {
	CheckChannelForNewVideos(ctx context.Context, channel models.MongoChannel)
}

type Job struct {
	DB        mongo.MongoClient
	Checker   Checker
	BatchSize int64
	MaxAge    time.Duration
	Now       func() time.Time
}

func NewWorker(db mongo.MongoClient, checker Checker, cfg *config.Config) *workers.Worker {
	job := &Job{
		DB:        db,
		Checker:   checker,
		BatchSize: cfg.RefreshBatchSize,
		MaxAge:    cfg.ChannelVideoTTL,
		Now:       time.Now,
	}
	if job.BatchSize <= 0 {
		job.BatchSize = config.REFRESH_BATCH_SIZE
	}
	if job.MaxAge <= 0 {
		job.MaxAge = config.CHANNEL_VIDEO_TTL
	}
	interval := cfg.RefreshWorkerInterval
	if interval <= 0 {
		interval = config.REFRESH_WORKER_INTERVAL
	}
	return workers.NewWorker("refresh", interval, job.Run, false)
}

// Run checks one batch of channels sequentially and stamps each as updated,
// whether or not a new video was found.
func (j *Job) Run(ctx context.Context) {
	channels, err := j.DB.GetChannelsToRefresh(ctx, j.Now().Add(-j.MaxAge), j.BatchSize)
	if err != nil {
		log.Errorf("[refresh] failed to get channels to refresh: %s", err)
		return
	}
	config.CONFIG.DataDogClient.Gauge("refresh_worker.channels", float64(len(channels)), nil, 1)
	if len(channels) == 0 {
		log.Debug("[refresh] no channels to refresh")
		return
	}
	log.Infof("[refresh] checking %d channels..", len(channels))

	for _, channel := range channels {
		if ctx.Err() != nil {
			log.Warn("[refresh] stopped before finishing the batch")
			return
		}
		j.Checker.CheckChannelForNewVideos(ctx, channel)
		if err := j.DB.UpdateChannelLastUpdated(ctx, channel.ID, j.Now()); err != nil {
			log.Errorf("[refresh] failed to update lastUpdated of %s: %s", channel.ChannelURL, err)
		}
	}
	log.Infof("[refresh] finished checking %d channels", len(channels))
}
