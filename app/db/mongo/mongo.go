package mongo

import (
	"context"
	"errors"
	"fmt"
	"resumotube/m/v2/app/config"
	"resumotube/m/v2/app/models"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	MongoUserCollection             = "users"
	MongoChannelCollection          = "channels"
	MongoUserChannelCollection      = "user_channels"
	MongoVideoCollection            = "videos"
	MongoUserVideoSummaryCollection = "user_video_summaries"
)

// ErrNotFound is returned (wrapped) when a lookup matches no document.
var ErrNotFound = errors.New("document not found")

// Client is a mongo client
type Client struct {
	*mongo.Client
}

type MongoClient interface {
	Disconnect(ctx context.Context) error
	EnsureIndexes(ctx context.Context) error
	Ping(ctx context.Context, rp *readpref.ReadPref) error

	// users
	CreateUser(ctx context.Context, user *models.MongoUser) error
	GetUserByEmail(ctx context.Context, email string) (*models.MongoUser, error)
	GetUserByID(ctx context.Context, id string) (*models.MongoUser, error)
	GetUserByResetToken(ctx context.Context, id string, token string) (*models.MongoUser, error)
	GetUserBySubscriptionID(ctx context.Context, subscriptionID string) (*models.MongoUser, error)
	GetUsersCount(ctx context.Context) (int64, error)
	GetUsersCountForTier(ctx context.Context, tier models.MongoSubscriptionName) (int64, error)
	SetUserResetToken(ctx context.Context, id primitive.ObjectID, token string, expires time.Time) error
	UpdateUserPassword(ctx context.Context, id primitive.ObjectID, passwordHash string) error
	UpdateUserStripeCustomerId(ctx context.Context, id primitive.ObjectID, stripeCustomerId string) error
	UpdateUserSubscription(ctx context.Context, id primitive.ObjectID, update SubscriptionUpdate) (int64, error)

	// channels
	CountChannelUsers(ctx context.Context, channelHandle string) (int64, error)
	CountUserChannels(ctx context.Context, email string) (int64, error)
	CreateChannel(ctx context.Context, channel *models.MongoChannel) error
	CreateUserChannel(ctx context.Context, userChannel *models.MongoUserChannel) error
	DeleteChannel(ctx context.Context, id primitive.ObjectID) error
	DeleteUserChannel(ctx context.Context, email string, channelHandle string) (int64, error)
	GetChannelByHandle(ctx context.Context, channelHandle string) (*models.MongoChannel, error)
	GetChannelByURL(ctx context.Context, channelURL string) (*models.MongoChannel, error)
	GetChannelsToRefresh(ctx context.Context, updatedBefore time.Time, limit int64) ([]models.MongoChannel, error)
	GetUserChannel(ctx context.Context, email string, channelHandle string) (*models.MongoUserChannel, error)
	GetUserChannels(ctx context.Context, email string) ([]models.MongoUserChannel, error)
	UpdateChannelLastAdded(ctx context.Context, id primitive.ObjectID, at time.Time) error
	UpdateChannelLastUpdated(ctx context.Context, id primitive.ObjectID, at time.Time) error

	// videos
	CountUserVideoSummariesSince(ctx context.Context, email string, since time.Time) (int64, error)
	CreateUserVideoSummary(ctx context.Context, summary *models.MongoUserVideoSummary) error
	CreateVideo(ctx context.Context, video *models.MongoVideo) error
	GetChannelVideo(ctx context.Context, channelURL string, videoID string) (*models.MongoVideo, error)
	GetLatestVideo(ctx context.Context, channelURL string) (*models.MongoVideo, error)
	GetRecentlyPublishedVideos(ctx context.Context, channelURL string, limit int64) ([]models.MongoVideo, error)
	GetUserVideoSummaries(ctx context.Context, email string, limit int64) ([]models.MongoUserVideoSummary, error)
	GetUserVideoSummary(ctx context.Context, email string, videoID string) (*models.MongoUserVideoSummary, error)
	GetVideo(ctx context.Context, videoID string) (*models.MongoVideo, error)
	SearchUserVideoSummaries(ctx context.Context, email string, query string) ([]models.MongoUserVideoSummary, error)
	SearchVideos(ctx context.Context, channelURLs []string, query string) ([]models.MongoVideo, error)
}

var MongoDBClient MongoClient

// NewClient creates a new mongo client
func NewClient(connection string) *Client {
	return &Client{
		Client: mustConnect(connection),
	}
}

// mustConnect connects to mongo and panics on error
func mustConnect(connection string) *mongo.Client {
	client, err := mongo.NewClient(options.Client().ApplyURI(connection).SetMaxConnecting(25))
	if err != nil {
		logrus.WithError(err).Panic("failed to create mongo client")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = client.Connect(ctx)
	if err != nil {
		logrus.WithError(err).Panic("failed to connect to mongo")
	}

	return client
}

func (c *Client) collection(name string) *mongo.Collection {
	return c.Database(config.CONFIG.DatabaseName()).Collection(name)
}

// EnsureIndexes creates the lookup indexes used by the handlers. It is safe to call on every start.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		MongoUserCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "stripeSubscriptionId", Value: 1}}},
		},
		MongoChannelCollection: {
			{Keys: bson.D{{Key: "channelHandle", Value: 1}}},
			{Keys: bson.D{{Key: "channelUrl", Value: 1}}},
			{Keys: bson.D{{Key: "lastUpdated", Value: 1}}},
		},
		MongoUserChannelCollection: {
			{Keys: bson.D{{Key: "userEmail", Value: 1}, {Key: "channelHandle", Value: 1}}},
		},
		MongoVideoCollection: {
			{Keys: bson.D{{Key: "channelUrl", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "channelUrl", Value: 1}, {Key: "videoId", Value: 1}}},
			{Keys: bson.D{{Key: "videoId", Value: 1}}},
		},
		MongoUserVideoSummaryCollection: {
			{Keys: bson.D{{Key: "userEmail", Value: 1}, {Key: "videoId", Value: 1}}},
			{Keys: bson.D{{Key: "userEmail", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
	}
	for name, indexModels := range indexes {
		_, err := c.collection(name).Indexes().CreateMany(ctx, indexModels)
		if err != nil {
			return fmt.Errorf("EnsureIndexes: failed to create indexes on %s: %w", name, err)
		}
	}
	return nil
}

// findOne decodes the first match into result, translating a miss into ErrNotFound.
func (c *Client) findOne(ctx context.Context, collection string, filter interface{}, result interface{}, opts ...*options.FindOneOptions) error {
	err := c.collection(collection).FindOne(ctx, filter, opts...).Decode(result)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

func insertedID(result *mongo.InsertOneResult) primitive.ObjectID {
	if id, ok := result.InsertedID.(primitive.ObjectID); ok {
		return id
	}
	return primitive.NilObjectID
}
