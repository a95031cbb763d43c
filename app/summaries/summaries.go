// Package summaries decides when a channel video is fresh enough to reuse and
// otherwise fetches, summarizes and stores the latest one.
package summaries

import (
	"context"
	"errors"
	"fmt"
	"resumotube/m/v2/app/config"
	"resumotube/m/v2/app/db/mongo"
	"resumotube/m/v2/app/db/redis"
	"resumotube/m/v2/app/models"
	"resumotube/m/v2/app/openai"
	"resumotube/m/v2/app/youtube"
	"strings"
	"time"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

var (
	ErrNoSummary         = errors.New("no summary")
	ErrChannelNotFound   = errors.New("channel not found")
	ErrNoVideos          = errors.New("no videos found for this channel")
	ErrVideoNotFound     = errors.New("video not found")
	ErrInvalidVideoURL   = errors.New("invalid youtube video url")
	ErrRefreshInProgress = errors.New("channel refresh in progress")
)

// a transcript containing one of these is a placeholder, not speech
var cannedTranscriptPhrases = []string{
	"please provide the transcript",
	"no transcript available",
	"transcript not found",
	"unable to get transcript",
}

type Result struct {
	Summary    string
	Transcript string
}

type Service struct {
	DB      mongo.MongoClient
	YouTube youtube.API
	AI      openai.Completer
	// Cache is optional; without it refreshes are only collapsed within the process.
	Cache redis.Client

	ChannelTTL time.Duration
	FeedTTL    time.Duration
	LockTTL    time.Duration
	Now        func() time.Time

	group singleflight.Group
}

func NewService(db mongo.MongoClient, yt youtube.API, ai openai.Completer, cache redis.Client, cfg *config.Config) *Service {
	s := &Service{
		DB:         db,
		YouTube:    yt,
		AI:         ai,
		Cache:      cache,
		ChannelTTL: cfg.ChannelVideoTTL,
		FeedTTL:    cfg.FeedVideoTTL,
		LockTTL:    config.REFRESH_LOCK_TTL,
		Now:        time.Now,
	}
	if s.ChannelTTL <= 0 {
		s.ChannelTTL = config.CHANNEL_VIDEO_TTL
	}
	if s.FeedTTL <= 0 {
		s.FeedTTL = config.FEED_VIDEO_TTL
	}
	return s
}

// GenerateSummary returns ErrNoSummary when the transcript or the completion is unusable.
func (s *Service) GenerateSummary(ctx context.Context, videoID string) (*Result, error) {
	transcript, err := s.YouTube.Transcript(ctx, videoID)
	if err != nil {
		log.WithError(err).Infof("GenerateSummary: no transcript available for video %s", videoID)
		rejected("transcript_unavailable")
		return nil, fmt.Errorf("GenerateSummary: video %s: %w: %w", videoID, ErrNoSummary, err)
	}
	if reason := invalidTranscript(transcript); reason != "" {
		log.Infof("GenerateSummary: invalid or too short transcript for video %s (%s)", videoID, reason)
		rejected(reason)
		return nil, fmt.Errorf("GenerateSummary: video %s: %s: %w", videoID, reason, ErrNoSummary)
	}

	summary, err := s.AI.ChatComplete(ctx, models.ChatCompletion{
		Model:       config.SUMMARY_MODEL,
		Temperature: config.SUMMARY_TEMPERATURE,
		MaxTokens:   config.SUMMARY_MAX_TOKENS,
		Messages: []models.Message{
			{Role: "system", Content: config.SUMMARY_SYSTEM_PROMPT},
			{Role: "user", Content: config.SUMMARY_USER_PROMPT + truncate(transcript, config.SUMMARY_MAX_TRANSCRIPT_CHARS)},
		},
	})
	if err != nil {
		log.WithError(err).Errorf("GenerateSummary: failed to summarize video %s", videoID)
		rejected("completion_failed")
		return nil, fmt.Errorf("GenerateSummary: video %s: %w: %w", videoID, ErrNoSummary, err)
	}
	if strings.TrimSpace(summary) == "" || strings.Contains(strings.ToLower(summary), cannedTranscriptPhrases[0]) {
		log.Infof("GenerateSummary: invalid summary generated for video %s", videoID)
		rejected("invalid_summary")
		return nil, fmt.Errorf("GenerateSummary: video %s: invalid summary: %w", videoID, ErrNoSummary)
	}

	config.CONFIG.DataDogClient.Incr("summaries.generated", nil, 1)
	if s.Cache != nil {
		s.Cache.IncrBy(ctx, redis.SystemTotalsSummariesKey, 1)
	}
	return &Result{Summary: summary, Transcript: transcript}, nil
}

func invalidTranscript(transcript string) string {
	if strings.TrimSpace(transcript) == "" {
		return "empty_transcript"
	}
	if utf8.RuneCountInString(transcript) < config.SUMMARY_MIN_TRANSCRIPT_CHARS {
		return "short_transcript"
	}
	lower := strings.ToLower(transcript)
	for _, phrase := range cannedTranscriptPhrases {
		if strings.Contains(lower, phrase) {
			return "canned_transcript"
		}
	}
	return ""
}

func truncate(text string, maxRunes int) string {
	if utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	return string([]rune(text)[:maxRunes])
}

func rejected(reason string) {
	config.CONFIG.DataDogClient.Incr("summaries.rejected", []string{"reason:" + reason}, 1)
}

func (s *Service) fresh(video *models.MongoVideo, ttl time.Duration) bool {
	return video != nil && s.Now().Sub(video.CreatedAt) < ttl
}

// latestStored returns nil, nil when the channel has no stored video.
func (s *Service) latestStored(ctx context.Context, channelURL string) (*models.MongoVideo, error) {
	video, err := s.DB.GetLatestVideo(ctx, channelURL)
	if errors.Is(err, mongo.ErrNotFound) {
		return nil, nil
	}
	return video, err
}

// LatestChannelVideo reuses the newest stored video while it is younger than ChannelTTL.
func (s *Service) LatestChannelVideo(ctx context.Context, channelURL string) (*models.MongoVideo, error) {
	cached, err := s.latestStored(ctx, channelURL)
	if err != nil {
		return nil, fmt.Errorf("LatestChannelVideo: %w", err)
	}
	if s.fresh(cached, s.ChannelTTL) {
		config.CONFIG.DataDogClient.Incr("summaries.cache_hit", []string{"op:latest"}, 1)
		return cached, nil
	}

	video, _, err := s.refresh(ctx, channelURL, "", cached != nil)
	if errors.Is(err, ErrRefreshInProgress) && cached != nil {
		return cached, nil
	}
	if err != nil {
		return nil, fmt.Errorf("LatestChannelVideo: %w", err)
	}
	return video, nil
}

// ChannelVideos returns up to limit stored videos, newest published first, adding the
// latest YouTube video when nothing stored was published today.
func (s *Service) ChannelVideos(ctx context.Context, channelURL string, limit int64) ([]models.MongoVideo, error) {
	if limit <= 0 {
		limit = 5
	}
	videos, err := s.DB.GetRecentlyPublishedVideos(ctx, channelURL, limit)
	if err != nil {
		return nil, fmt.Errorf("ChannelVideos: %w", err)
	}

	now := s.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	for _, v := range videos {
		if !v.PublishedTime().Before(today) {
			config.CONFIG.DataDogClient.Incr("summaries.cache_hit", []string{"op:videos"}, 1)
			return videos, nil
		}
	}

	video, created, err := s.refresh(ctx, channelURL, "", len(videos) > 0)
	if errors.Is(err, ErrRefreshInProgress) && len(videos) > 0 {
		return videos, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ChannelVideos: %w", err)
	}
	if created {
		videos = append([]models.MongoVideo{*video}, videos...)
	}
	return videos, nil
}

// FeedVideo returns nil when the channel cannot provide a summarized video.
func (s *Service) FeedVideo(ctx context.Context, channel models.MongoChannel) *models.MongoVideo {
	cached, err := s.latestStored(ctx, channel.ChannelURL)
	if err != nil {
		log.WithError(err).Errorf("FeedVideo: failed to load videos for %s", channel.ChannelURL)
		return nil
	}
	if s.fresh(cached, s.FeedTTL) {
		config.CONFIG.DataDogClient.Incr("summaries.cache_hit", []string{"op:feed"}, 1)
		return cached
	}

	video, _, err := s.refresh(ctx, channel.ChannelURL, channel.ChannelID, cached != nil)
	if errors.Is(err, ErrRefreshInProgress) && cached != nil {
		return cached
	}
	if err != nil {
		log.WithError(err).Warnf("FeedVideo: skipping channel %s", channel.ChannelURL)
		return nil
	}
	return video
}

// CheckChannelForNewVideos stores the latest video of the channel when it is new. Errors are only logged.
func (s *Service) CheckChannelForNewVideos(ctx context.Context, channel models.MongoChannel) {
	video, created, err := s.refresh(ctx, channel.ChannelURL, channel.ChannelID, true)
	switch {
	case errors.Is(err, ErrRefreshInProgress):
		log.Infof("CheckChannelForNewVideos: %s is being refreshed elsewhere", channel.ChannelURL)
	case err != nil:
		log.WithError(err).Errorf("CheckChannelForNewVideos: error checking channel %s", channel.ChannelURL)
	case created:
		log.Infof("CheckChannelForNewVideos: new video %s found and processed for channel %s", video.VideoID, channel.ChannelURL)
	}
}
