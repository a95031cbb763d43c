package summaries

import (
	"context"
	"errors"
	"fmt"
	"resumotube/m/v2/app/db/mongo"
	"resumotube/m/v2/app/models"
	"resumotube/m/v2/app/youtube"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	SearchAll      = "all"
	SearchHistory  = "history"
	SearchChannels = "channels"

	SourceHistory = "history"
	SourceChannel = "channel"

	// feed requests run at most this many channel refreshes at once
	feedConcurrency = 4
)

// SummarizeVideoForUser returns the user's summary of videoURL, reusing the user's history
// and then any stored channel video before summarizing from scratch.
func (s *Service) SummarizeVideoForUser(ctx context.Context, email, videoURL string) (*models.MongoUserVideoSummary, error) {
	videoID, ok := youtube.VideoIDFromURL(videoURL)
	if !ok {
		return nil, fmt.Errorf("SummarizeVideoForUser: %q: %w", videoURL, ErrInvalidVideoURL)
	}

	v, err, _ := s.group.Do("user:"+email+":"+videoID, func() (interface{}, error) {
		return s.summarizeVideoForUser(ctx, email, videoID)
	})
	if err != nil {
		return nil, err
	}
	copied := *v.(*models.MongoUserVideoSummary)
	return &copied, nil
}

func (s *Service) summarizeVideoForUser(ctx context.Context, email, videoID string) (*models.MongoUserVideoSummary, error) {
	existing, err := s.DB.GetUserVideoSummary(ctx, email, videoID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, mongo.ErrNotFound) {
		return nil, fmt.Errorf("SummarizeVideoForUser: %w", err)
	}

	summary := &models.MongoUserVideoSummary{
		UserEmail: email,
		VideoID:   videoID,
		CreatedAt: s.Now(),
	}

	stored, err := s.DB.GetVideo(ctx, videoID)
	switch {
	case err == nil:
		summary.Title = stored.Title
		summary.PublishedAt = stored.PublishedAt
		summary.Summary = stored.Summary
		summary.Transcript = stored.Transcript
	case errors.Is(err, mongo.ErrNotFound):
		details, err := s.YouTube.VideoDetails(ctx, videoID)
		if err != nil {
			return nil, fmt.Errorf("SummarizeVideoForUser: %w", err)
		}
		if details == nil {
			return nil, fmt.Errorf("SummarizeVideoForUser: %s: %w", videoID, ErrVideoNotFound)
		}
		result, err := s.GenerateSummary(ctx, videoID)
		if err != nil {
			return nil, err
		}
		summary.Title = details.Title
		summary.PublishedAt = details.PublishedAt
		summary.Summary = result.Summary
		summary.Transcript = result.Transcript
	default:
		return nil, fmt.Errorf("SummarizeVideoForUser: %w", err)
	}

	if err := s.DB.CreateUserVideoSummary(ctx, summary); err != nil {
		return nil, fmt.Errorf("SummarizeVideoForUser: %w", err)
	}
	return summary, nil
}

// UserChannels resolves the channels the user follows, skipping links to deleted channels.
func (s *Service) UserChannels(ctx context.Context, email string) ([]models.MongoUserChannel, []models.MongoChannel, error) {
	links, err := s.DB.GetUserChannels(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("UserChannels: %w", err)
	}
	var (
		kept     []models.MongoUserChannel
		channels []models.MongoChannel
	)
	for _, link := range links {
		channel, err := s.DB.GetChannelByHandle(ctx, link.ChannelHandle)
		if errors.Is(err, mongo.ErrNotFound) {
			log.Warnf("UserChannels: channel %s of %s no longer exists", link.ChannelHandle, email)
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("UserChannels: %w", err)
		}
		kept = append(kept, link)
		channels = append(channels, *channel)
	}
	return kept, channels, nil
}

// Feed returns the latest video of every channel the user follows, newest published first.
func (s *Service) Feed(ctx context.Context, email string) ([]models.MongoVideo, error) {
	_, channels, err := s.UserChannels(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("Feed: %w", err)
	}

	videos := make([]*models.MongoVideo, len(channels))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(feedConcurrency)
	for i := range channels {
		i := i
		g.Go(func() error {
			videos[i] = s.FeedVideo(gctx, channels[i])
			return nil
		})
	}
	_ = g.Wait()

	feed := make([]models.MongoVideo, 0, len(videos))
	for _, v := range videos {
		if v != nil {
			feed = append(feed, *v)
		}
	}
	sort.SliceStable(feed, func(i, j int) bool {
		return feed[i].PublishedTime().After(feed[j].PublishedTime())
	})
	return feed, nil
}

// Search matches the query against title and summary of the user's history and of the
// videos of the channels the user follows. Results are sorted by createdAt, newest first.
func (s *Service) Search(ctx context.Context, email, query, searchType string) ([]models.SearchResult, error) {
	query = strings.ToLower(query)
	if searchType == "" {
		searchType = SearchAll
	}
	results := []models.SearchResult{}

	if searchType == SearchAll || searchType == SearchHistory {
		summaries, err := s.DB.SearchUserVideoSummaries(ctx, email, query)
		if err != nil {
			return nil, fmt.Errorf("Search: %w", err)
		}
		for _, summary := range summaries {
			results = append(results, models.SearchResult{
				VideoID:     summary.VideoID,
				Title:       summary.Title,
				PublishedAt: summary.PublishedAt,
				Summary:     summary.Summary,
				CreatedAt:   summary.CreatedAt,
				Source:      SourceHistory,
			})
		}
	}

	if searchType == SearchAll || searchType == SearchChannels {
		_, channels, err := s.UserChannels(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("Search: %w", err)
		}
		channelURLs := make([]string, 0, len(channels))
		for _, ch := range channels {
			channelURLs = append(channelURLs, ch.ChannelURL)
		}
		videos, err := s.DB.SearchVideos(ctx, channelURLs, query)
		if err != nil {
			return nil, fmt.Errorf("Search: %w", err)
		}
		for _, video := range videos {
			results = append(results, models.SearchResult{
				VideoID:     video.VideoID,
				ChannelURL:  video.ChannelURL,
				Title:       video.Title,
				PublishedAt: video.PublishedAt,
				Summary:     video.Summary,
				CreatedAt:   video.CreatedAt,
				Source:      SourceChannel,
			})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})
	return results, nil
}
