package summaries

import (
	"context"
	"errors"
	"fmt"
	"resumotube/m/v2/app/config"
	"resumotube/m/v2/app/db/mongo"
	"resumotube/m/v2/app/db/redis"
	"resumotube/m/v2/app/models"

	log "github.com/sirupsen/logrus"
)

type refreshResult struct {
	video   *models.MongoVideo
	created bool
	// another replica holds the lock, nothing was fetched
	locked bool
}

// refresh fetches the latest YouTube video of the channel and stores its summary unless the
// video is already stored. Concurrent refreshes of a channel are collapsed in process through
// singleflight and across replicas through a Redis lock. The shared flight only reports that
// the lock is held elsewhere; callers with a fallback get ErrRefreshInProgress and callers
// without one fetch anyway.
func (s *Service) refresh(ctx context.Context, channelURL, channelID string, canFallback bool) (*models.MongoVideo, bool, error) {
	v, err, shared := s.group.Do(channelURL, func() (interface{}, error) {
		locked, err := s.lock(ctx, channelURL)
		if err != nil {
			log.WithError(err).Warnf("refresh: proceeding without lock for %s", channelURL)
		} else if !locked {
			return refreshResult{locked: true}, nil
		} else {
			defer s.unlock(channelURL)
		}
		return s.fetchShared(ctx, channelURL, channelID)
	})
	if shared {
		config.CONFIG.DataDogClient.Incr("summaries.refresh_shared", nil, 1)
	}
	if err != nil {
		return nil, false, err
	}

	result := v.(refreshResult)
	if result.locked {
		if canFallback {
			return nil, false, ErrRefreshInProgress
		}
		log.Infof("refresh: %s is locked and nothing is stored yet, refreshing anyway", channelURL)
		v, err, _ = s.group.Do("unlocked:"+channelURL, func() (interface{}, error) {
			return s.fetchShared(ctx, channelURL, channelID)
		})
		if err != nil {
			return nil, false, err
		}
		result = v.(refreshResult)
	}
	if result.video == nil {
		return nil, false, fmt.Errorf("refresh: %s: %w", channelURL, ErrNoVideos)
	}
	copied := *result.video
	return &copied, result.created, nil
}

func (s *Service) fetchShared(ctx context.Context, channelURL, channelID string) (interface{}, error) {
	video, created, err := s.fetchLatest(ctx, channelURL, channelID)
	if err != nil {
		return nil, err
	}
	return refreshResult{video: video, created: created}, nil
}

func (s *Service) lock(ctx context.Context, channelURL string) (bool, error) {
	if s.Cache == nil {
		return true, nil
	}
	return redis.AcquireLock(ctx, s.Cache, redis.RefreshLockKey(channelURL), s.LockTTL)
}

func (s *Service) unlock(channelURL string) {
	if s.Cache == nil {
		return
	}
	// released with a fresh context so a cancelled request still frees the lock
	if err := redis.ReleaseLock(context.Background(), s.Cache, redis.RefreshLockKey(channelURL)); err != nil {
		log.WithError(err).Warnf("refresh: failed to release lock for %s", channelURL)
	}
}

func (s *Service) fetchLatest(ctx context.Context, channelURL, channelID string) (*models.MongoVideo, bool, error) {
	if channelID == "" {
		var err error
		channelID, err = s.YouTube.ResolveChannelID(ctx, channelURL)
		if err != nil {
			return nil, false, fmt.Errorf("fetchLatest: failed to resolve %s: %w", channelURL, err)
		}
		if channelID == "" {
			return nil, false, fmt.Errorf("fetchLatest: %s: %w", channelURL, ErrChannelNotFound)
		}
	}

	latest, err := s.YouTube.LatestVideo(ctx, channelID)
	if err != nil {
		return nil, false, fmt.Errorf("fetchLatest: failed to get latest video of %s: %w", channelID, err)
	}
	if latest == nil {
		return nil, false, fmt.Errorf("fetchLatest: %s: %w", channelURL, ErrNoVideos)
	}

	existing, err := s.DB.GetChannelVideo(ctx, channelURL, latest.VideoID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, mongo.ErrNotFound) {
		return nil, false, fmt.Errorf("fetchLatest: %w", err)
	}

	result, err := s.GenerateSummary(ctx, latest.VideoID)
	if err != nil {
		return nil, false, err
	}

	video := &models.MongoVideo{
		ChannelURL:        channelURL,
		VideoID:           latest.VideoID,
		Title:             latest.Title,
		PublishedAt:       latest.PublishedAt,
		Summary:           result.Summary,
		Transcript:        result.Transcript,
		ProfilePictureURL: s.profilePicture(ctx, channelURL, channelID),
		CreatedAt:         s.Now(),
	}
	if err := s.DB.CreateVideo(ctx, video); err != nil {
		return nil, false, fmt.Errorf("fetchLatest: %w", err)
	}
	log.Infof("fetchLatest: stored video %s for channel %s", video.VideoID, channelURL)
	return video, true, nil
}

// profilePicture prefers the picture stored with the channel and only asks YouTube when it is missing.
func (s *Service) profilePicture(ctx context.Context, channelURL, channelID string) string {
	if channel, err := s.DB.GetChannelByURL(ctx, channelURL); err == nil && channel.ProfilePictureURL != "" {
		return channel.ProfilePictureURL
	}
	info, err := s.YouTube.Channel(ctx, channelID)
	if err != nil {
		log.WithError(err).Warnf("profilePicture: failed to get channel %s", channelID)
		return ""
	}
	if info == nil {
		return ""
	}
	return info.ProfilePictureURL
}
