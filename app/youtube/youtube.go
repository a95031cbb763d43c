// package to talk to YouTube Data API v3 and the public caption tracks
package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"resumotube/m/v2/app/config"
	"resumotube/m/v2/app/models"
	"resumotube/m/v2/app/util"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"
)

const (
	TIMEOUT           = 60 * time.Second
	RETRY_MAX_ELAPSED = 30 * time.Second
	WATCH_URL         = "https://www.youtube.com/watch"
)

var ErrTranscriptUnavailable = errors.New("transcript unavailable")

type API interface {
	ResolveChannelID(ctx context.Context, channelURL string) (string, error)
	Channel(ctx context.Context, channelID string) (*models.ChannelInfo, error)
	LatestVideo(ctx context.Context, channelID string) (*models.VideoData, error)
	VideoDetails(ctx context.Context, videoID string) (*models.VideoData, error)
	Transcript(ctx context.Context, videoID string) (string, error)
}

type Client struct {
	service         *yt.Service
	httpClient      *http.Client
	watchURL        string
	retryMaxElapsed time.Duration
}

// NewClient creates a YouTube client authenticated with an API key.
func NewClient(ctx context.Context, cfg *config.Config, opts ...option.ClientOption) (*Client, error) {
	httpClient := &http.Client{Timeout: TIMEOUT}
	opts = append([]option.ClientOption{option.WithAPIKey(cfg.YouTubeAPIKey)}, opts...)
	service, err := yt.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewClient: failed to create youtube service: %w", err)
	}
	return &Client{
		service:         service,
		httpClient:      httpClient,
		watchURL:        WATCH_URL,
		retryMaxElapsed: RETRY_MAX_ELAPSED,
	}, nil
}

// retryable reports whether a Data API error is transient.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return util.RetryableStatus(apiErr.Code)
	}
	return true
}

func (c *Client) do(ctx context.Context, op string, call func() error) error {
	timeNow := time.Now()
	err := util.Retry(ctx, c.retryMaxElapsed, func() (bool, error) {
		err := call()
		if err != nil && retryable(ctx, err) {
			log.Warnf("%s: youtube request failed, will retry: %v", op, err)
			return true, err
		}
		return false, err
	})
	config.CONFIG.DataDogClient.Timing("youtube.request.latency", time.Since(timeNow), []string{"op:" + op, fmt.Sprintf("success:%t", err == nil)}, 1)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ResolveChannelID understands /channel/{id} and /@handle URLs. Other URLs resolve to "".
func (c *Client) ResolveChannelID(ctx context.Context, channelURL string) (string, error) {
	u, err := url.Parse(channelURL)
	if err != nil {
		log.Warnf("ResolveChannelID: invalid channel url %s: %v", channelURL, err)
		return "", nil
	}

	if _, after, ok := strings.Cut(u.Path, "/channel/"); ok {
		id, _, _ := strings.Cut(after, "/")
		return id, nil
	}

	_, handle, ok := strings.Cut(u.Path, "/@")
	if !ok || handle == "" {
		return "", nil
	}
	handle, _, _ = strings.Cut(handle, "/")

	var response *yt.SearchListResponse
	err = c.do(ctx, "ResolveChannelID", func() error {
		response, err = c.service.Search.List([]string{"snippet"}).
			Q(handle).
			Type("channel").
			MaxResults(1).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return "", err
	}
	if len(response.Items) == 0 || response.Items[0].Id == nil {
		return "", nil
	}
	return response.Items[0].Id.ChannelId, nil
}

// Channel returns nil when the channel does not exist.
func (c *Client) Channel(ctx context.Context, channelID string) (*models.ChannelInfo, error) {
	var response *yt.ChannelListResponse
	err := c.do(ctx, "Channel", func() (err error) {
		response, err = c.service.Channels.List([]string{"snippet"}).Id(channelID).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(response.Items) == 0 || response.Items[0].Snippet == nil {
		return nil, nil
	}
	snippet := response.Items[0].Snippet
	info := &models.ChannelInfo{
		ChannelID: channelID,
		Handle:    snippet.CustomUrl,
		Title:     snippet.Title,
	}
	if info.Handle == "" {
		info.Handle = snippet.Title
	}
	if snippet.Thumbnails != nil && snippet.Thumbnails.Default != nil {
		info.ProfilePictureURL = snippet.Thumbnails.Default.Url
	}
	return info, nil
}

// LatestVideo returns the most recently published video, nil when the channel has none.
func (c *Client) LatestVideo(ctx context.Context, channelID string) (*models.VideoData, error) {
	var response *yt.SearchListResponse
	err := c.do(ctx, "LatestVideo", func() (err error) {
		response, err = c.service.Search.List([]string{"snippet"}).
			ChannelId(channelID).
			Order("date").
			Type("video").
			MaxResults(1).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(response.Items) == 0 {
		return nil, nil
	}
	item := response.Items[0]
	if item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil || item.Snippet.Title == "" || item.Snippet.PublishedAt == "" {
		return nil, nil
	}
	return &models.VideoData{
		VideoID:     item.Id.VideoId,
		Title:       item.Snippet.Title,
		PublishedAt: item.Snippet.PublishedAt,
	}, nil
}

// VideoDetails returns nil when the video is missing its title or publish date.
func (c *Client) VideoDetails(ctx context.Context, videoID string) (*models.VideoData, error) {
	var response *yt.VideoListResponse
	err := c.do(ctx, "VideoDetails", func() (err error) {
		response, err = c.service.Videos.List([]string{"snippet"}).Id(videoID).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(response.Items) == 0 || response.Items[0].Snippet == nil {
		return nil, nil
	}
	snippet := response.Items[0].Snippet
	if snippet.Title == "" || snippet.PublishedAt == "" {
		return nil, nil
	}
	return &models.VideoData{
		VideoID:     videoID,
		Title:       snippet.Title,
		PublishedAt: snippet.PublishedAt,
	}, nil
}

// VideoIDFromURL extracts the id from watch?v= and youtu.be/ links.
func VideoIDFromURL(videoURL string) (string, bool) {
	u, err := url.Parse(videoURL)
	if err != nil || u.Host == "" {
		return "", false
	}
	if id := u.Query().Get("v"); id != "" {
		return id, true
	}
	if u.Hostname() == "youtu.be" {
		id := strings.Trim(u.Path, "/")
		return id, id != ""
	}
	return "", false
}
