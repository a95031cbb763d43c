package mongo

import (
	"context"
	"fmt"
	"regexp"
	"resumotube/m/v2/app/models"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (c *Client) CountUserVideoSummariesSince(ctx context.Context, email string, since time.Time) (int64, error) {
	filter := bson.M{"userEmail": email, "createdAt": bson.M{"$gte": since}}
	count, err := c.collection(MongoUserVideoSummaryCollection).CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("CountUserVideoSummariesSince: failed to count summaries: %w", err)
	}
	return count, nil
}

func (c *Client) CreateUserVideoSummary(ctx context.Context, summary *models.MongoUserVideoSummary) error {
	result, err := c.collection(MongoUserVideoSummaryCollection).InsertOne(ctx, summary)
	if err != nil {
		return fmt.Errorf("CreateUserVideoSummary: failed to insert summary: %w", err)
	}
	summary.ID = insertedID(result)
	return nil
}

func (c *Client) CreateVideo(ctx context.Context, video *models.MongoVideo) error {
	result, err := c.collection(MongoVideoCollection).InsertOne(ctx, video)
	if err != nil {
		return fmt.Errorf("CreateVideo: failed to insert video: %w", err)
	}
	video.ID = insertedID(result)
	return nil
}

func (c *Client) GetChannelVideo(ctx context.Context, channelURL string, videoID string) (*models.MongoVideo, error) {
	var video models.MongoVideo
	err := c.findOne(ctx, MongoVideoCollection, bson.M{"channelUrl": channelURL, "videoId": videoID}, &video)
	if err != nil {
		return nil, fmt.Errorf("GetChannelVideo: failed to find video: %w", err)
	}
	return &video, nil
}

// GetLatestVideo returns the most recently stored video of the channel.
func (c *Client) GetLatestVideo(ctx context.Context, channelURL string) (*models.MongoVideo, error) {
	var video models.MongoVideo
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	err := c.findOne(ctx, MongoVideoCollection, bson.M{"channelUrl": channelURL}, &video, opts)
	if err != nil {
		return nil, fmt.Errorf("GetLatestVideo: failed to find video: %w", err)
	}
	return &video, nil
}

func (c *Client) GetRecentlyPublishedVideos(ctx context.Context, channelURL string, limit int64) ([]models.MongoVideo, error) {
	opts := options.Find().SetSort(bson.D{{Key: "publishedAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := c.collection(MongoVideoCollection).Find(ctx, bson.M{"channelUrl": channelURL}, opts)
	if err != nil {
		return nil, fmt.Errorf("GetRecentlyPublishedVideos: failed to find videos: %w", err)
	}
	videos := []models.MongoVideo{}
	if err := cursor.All(ctx, &videos); err != nil {
		return nil, fmt.Errorf("GetRecentlyPublishedVideos: failed to decode videos: %w", err)
	}
	return videos, nil
}

// GetUserVideoSummaries returns the user's history, newest first. A zero limit returns everything.
func (c *Client) GetUserVideoSummaries(ctx context.Context, email string, limit int64) ([]models.MongoUserVideoSummary, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := c.collection(MongoUserVideoSummaryCollection).Find(ctx, bson.M{"userEmail": email}, opts)
	if err != nil {
		return nil, fmt.Errorf("GetUserVideoSummaries: failed to find summaries: %w", err)
	}
	summaries := []models.MongoUserVideoSummary{}
	if err := cursor.All(ctx, &summaries); err != nil {
		return nil, fmt.Errorf("GetUserVideoSummaries: failed to decode summaries: %w", err)
	}
	return summaries, nil
}

func (c *Client) GetUserVideoSummary(ctx context.Context, email string, videoID string) (*models.MongoUserVideoSummary, error) {
	var summary models.MongoUserVideoSummary
	err := c.findOne(ctx, MongoUserVideoSummaryCollection, bson.M{"userEmail": email, "videoId": videoID}, &summary)
	if err != nil {
		return nil, fmt.Errorf("GetUserVideoSummary: failed to find summary: %w", err)
	}
	return &summary, nil
}

// GetVideo returns any stored video with the given YouTube ID, regardless of channel.
func (c *Client) GetVideo(ctx context.Context, videoID string) (*models.MongoVideo, error) {
	var video models.MongoVideo
	err := c.findOne(ctx, MongoVideoCollection, bson.M{"videoId": videoID}, &video)
	if err != nil {
		return nil, fmt.Errorf("GetVideo: failed to find video: %w", err)
	}
	return &video, nil
}

func (c *Client) SearchUserVideoSummaries(ctx context.Context, email string, query string) ([]models.MongoUserVideoSummary, error) {
	filter := bson.M{"userEmail": email, "$or": textMatch(query)}
	cursor, err := c.collection(MongoUserVideoSummaryCollection).Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("SearchUserVideoSummaries: failed to find summaries: %w", err)
	}
	summaries := []models.MongoUserVideoSummary{}
	if err := cursor.All(ctx, &summaries); err != nil {
		return nil, fmt.Errorf("SearchUserVideoSummaries: failed to decode summaries: %w", err)
	}
	return summaries, nil
}

func (c *Client) SearchVideos(ctx context.Context, channelURLs []string, query string) ([]models.MongoVideo, error) {
	videos := []models.MongoVideo{}
	if len(channelURLs) == 0 {
		return videos, nil
	}
	filter := bson.M{"channelUrl": bson.M{"$in": channelURLs}, "$or": textMatch(query)}
	cursor, err := c.collection(MongoVideoCollection).Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("SearchVideos: failed to find videos: %w", err)
	}
	if err := cursor.All(ctx, &videos); err != nil {
		return nil, fmt.Errorf("SearchVideos: failed to decode videos: %w", err)
	}
	return videos, nil
}

// textMatch matches query literally and case-insensitively against title or summary.
func textMatch(query string) bson.A {
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"}
	return bson.A{
		bson.M{"title": pattern},
		bson.M{"summary": pattern},
	}
}
