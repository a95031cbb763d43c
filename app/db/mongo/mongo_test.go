package mongo

import (
	"context"
	"errors"
	"resumotube/m/v2/app/config"
	"resumotube/m/v2/app/models"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tryvium-travels/memongo"
	"go.mongodb.org/mongo-driver/bson"
)

var MockMongoServer *memongo.Server

func TestMain(m *testing.M) {
	opts := &memongo.Options{
		MongoVersion: "6.0.13",
	}
	if runtime.GOARCH == "arm64" {
		if runtime.GOOS == "darwin" {
			// Only set the custom url as workaround for arm64 macs
			opts.DownloadURL = "https://fastdl.mongodb.org/osx/mongodb-macos-x86_64-6.0.13.tgz"
		}
	}

	var err error
	MockMongoServer, err = memongo.StartWithOptions(opts)
	if err != nil {
		panic(err)
	}
	defer MockMongoServer.Stop()
	m.Run()
}

func newTestClient(t *testing.T) (*Client, string) {
	uri := MockMongoServer.URIWithRandomDB()

	// parse db name from uri
	dbName := uri[strings.LastIndex(uri, "/")+1:]
	config.CONFIG = &config.Config{
		MongoDBName: dbName,
	}
	client := NewClient(uri)
	t.Cleanup(func() {
		_ = client.Disconnect(context.Background())
	})
	return client, dbName
}

func TestGetUserByEmail(t *testing.T) {
	client, dbName := newTestClient(t)
	ctx := context.Background()

	_, err := client.Database(dbName).Collection(MongoUserCollection).InsertOne(ctx, bson.M{
		"email":              "ana@example.com",
		"password":           "$2a$10$hash",
		"name":               "Ana",
		"tier":               "pro",
		"subscriptionStatus": "active",
		"createdAt":          time.Date(2024, 7, 7, 12, 46, 5, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("error inserting user: %v", err)
	}

	user, err := client.GetUserByEmail(ctx, "ana@example.com")
	if err != nil {
		t.Fatalf("error getting user: %v", err)
	}
	assert.Equal(t, "Ana", user.Name)
	assert.Equal(t, models.ProSubscriptionName, user.Tier)
	assert.Equal(t, models.SubscriptionStatusActive, user.SubscriptionStatus)
	assert.Equal(t, "$2a$10$hash", user.Password)
	assert.False(t, user.ID.IsZero())

	_, err = client.GetUserByEmail(ctx, "nobody@example.com")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestCreateUserAndGetByID(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	user := &models.MongoUser{
		Email:              "bruno@example.com",
		Tier:               models.BasicSubscriptionName,
		SubscriptionStatus: models.SubscriptionStatusUnpaid,
		CreatedAt:          time.Now(),
	}
	err := client.CreateUser(ctx, user)
	if err != nil {
		t.Fatalf("error creating user: %v", err)
	}
	assert.False(t, user.ID.IsZero())

	found, err := client.GetUserByID(ctx, user.ID.Hex())
	if err != nil {
		t.Fatalf("error getting user: %v", err)
	}
	assert.Equal(t, "bruno@example.com", found.Email)

	_, err = client.GetUserByID(ctx, "not-an-object-id")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestResetTokenLifecycle(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	user := &models.MongoUser{Email: "carla@example.com", Password: "old", CreatedAt: time.Now()}
	if err := client.CreateUser(ctx, user); err != nil {
		t.Fatalf("error creating user: %v", err)
	}

	err := client.SetUserResetToken(ctx, user.ID, "token-1", time.Now().Add(time.Hour))
	assert.NoError(t, err)

	found, err := client.GetUserByResetToken(ctx, user.ID.Hex(), "token-1")
	assert.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	_, err = client.GetUserByResetToken(ctx, user.ID.Hex(), "token-2")
	assert.True(t, errors.Is(err, ErrNotFound))

	err = client.UpdateUserPassword(ctx, user.ID, "new")
	assert.NoError(t, err)

	// token is consumed by the password update
	_, err = client.GetUserByResetToken(ctx, user.ID.Hex(), "token-1")
	assert.True(t, errors.Is(err, ErrNotFound))

	updated, err := client.GetUserByID(ctx, user.ID.Hex())
	assert.NoError(t, err)
	assert.Equal(t, "new", updated.Password)
	assert.Empty(t, updated.ResetToken)
	assert.Nil(t, updated.ResetTokenExpires)
}

func TestExpiredResetToken(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	user := &models.MongoUser{Email: "dora@example.com", CreatedAt: time.Now()}
	if err := client.CreateUser(ctx, user); err != nil {
		t.Fatalf("error creating user: %v", err)
	}
	assert.NoError(t, client.SetUserResetToken(ctx, user.ID, "token", time.Now().Add(-time.Minute)))

	_, err := client.GetUserByResetToken(ctx, user.ID.Hex(), "token")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestUpdateUserSubscription(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	user := &models.MongoUser{
		Email:              "edu@example.com",
		Tier:               models.BasicSubscriptionName,
		SubscriptionStatus: models.SubscriptionStatusUnpaid,
		CreatedAt:          time.Now(),
	}
	if err := client.CreateUser(ctx, user); err != nil {
		t.Fatalf("error creating user: %v", err)
	}

	tier := models.PremiumSubscriptionName
	status := models.SubscriptionStatusActive
	subscriptionID := "sub_123"
	periodEnd := time.Now().Add(30 * 24 * time.Hour).Truncate(time.Millisecond)
	modified, err := client.UpdateUserSubscription(ctx, user.ID, SubscriptionUpdate{
		Tier:                 &tier,
		SubscriptionStatus:   &status,
		StripeSubscriptionID: &subscriptionID,
		CurrentPeriodEnd:     &periodEnd,
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), modified)

	found, err := client.GetUserBySubscriptionID(ctx, "sub_123")
	assert.NoError(t, err)
	assert.Equal(t, models.PremiumSubscriptionName, found.Tier)
	assert.Equal(t, models.SubscriptionStatusActive, found.SubscriptionStatus)
	assert.True(t, periodEnd.Equal(*found.CurrentPeriodEnd))
	assert.Nil(t, found.SubscriptionCancelledAt)

	count, err := client.GetUsersCountForTier(ctx, models.PremiumSubscriptionName)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// empty update is a no-op
	modified, err = client.UpdateUserSubscription(ctx, user.ID, SubscriptionUpdate{})
	assert.NoError(t, err)
	assert.Equal(t, int64(0), modified)
}

func TestUserChannelsCascade(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	channel := &models.MongoChannel{
		ChannelURL:    "https://www.youtube.com/@veritasium",
		ChannelID:     "UCHnyfMqiRRG1u-2MsSQLbXA",
		ChannelHandle: "@veritasium",
		LastAdded:     time.Now(),
		CreatedAt:     time.Now(),
	}
	assert.NoError(t, client.CreateChannel(ctx, channel))
	assert.False(t, channel.ID.IsZero())

	for _, email := range []string{"a@example.com", "b@example.com"} {
		assert.NoError(t, client.CreateUserChannel(ctx, &models.MongoUserChannel{
			UserEmail:     email,
			ChannelHandle: channel.ChannelHandle,
			CreatedAt:     time.Now(),
		}))
	}

	count, err := client.CountChannelUsers(ctx, "@veritasium")
	assert.NoError(t, err)
	assert.Equal(t, int64(2), count)

	userChannels, err := client.GetUserChannels(ctx, "a@example.com")
	assert.NoError(t, err)
	assert.Len(t, userChannels, 1)

	deleted, err := client.DeleteUserChannel(ctx, "a@example.com", "@veritasium")
	assert.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	deleted, err = client.DeleteUserChannel(ctx, "a@example.com", "@veritasium")
	assert.NoError(t, err)
	assert.Equal(t, int64(0), deleted)

	assert.NoError(t, client.DeleteChannel(ctx, channel.ID))
	_, err = client.GetChannelByURL(ctx, channel.ChannelURL)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestGetChannelsToRefresh(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	fresh := time.Now().Add(-time.Hour)
	stale := time.Now().Add(-48 * time.Hour)
	channels := []*models.MongoChannel{
		{ChannelURL: "https://www.youtube.com/@never", ChannelHandle: "@never", CreatedAt: time.Now()},
		{ChannelURL: "https://www.youtube.com/@stale", ChannelHandle: "@stale", LastUpdated: &stale, CreatedAt: time.Now()},
		{ChannelURL: "https://www.youtube.com/@fresh", ChannelHandle: "@fresh", LastUpdated: &fresh, CreatedAt: time.Now()},
	}
	for _, ch := range channels {
		assert.NoError(t, client.CreateChannel(ctx, ch))
	}

	toRefresh, err := client.GetChannelsToRefresh(ctx, time.Now().Add(-24*time.Hour), 10)
	assert.NoError(t, err)
	handles := []string{}
	for _, ch := range toRefresh {
		handles = append(handles, ch.ChannelHandle)
	}
	assert.ElementsMatch(t, []string{"@never", "@stale"}, handles)

	assert.NoError(t, client.UpdateChannelLastUpdated(ctx, channels[0].ID, time.Now()))
	toRefresh, err = client.GetChannelsToRefresh(ctx, time.Now().Add(-24*time.Hour), 10)
	assert.NoError(t, err)
	assert.Len(t, toRefresh, 1)
	assert.Equal(t, "@stale", toRefresh[0].ChannelHandle)
}

func TestVideosOrdering(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	channelURL := "https://www.youtube.com/@fireship"
	now := time.Now()
	videos := []*models.MongoVideo{
		{ChannelURL: channelURL, VideoID: "v1", Title: "Old", PublishedAt: "2024-01-01T10:00:00Z", CreatedAt: now.Add(-time.Hour)},
		{ChannelURL: channelURL, VideoID: "v2", Title: "New", PublishedAt: "2024-03-01T10:00:00Z", CreatedAt: now.Add(-2 * time.Hour)},
		{ChannelURL: channelURL, VideoID: "v3", Title: "Mid", PublishedAt: "2024-02-01T10:00:00Z", CreatedAt: now},
	}
	for _, v := range videos {
		assert.NoError(t, client.CreateVideo(ctx, v))
	}

	latest, err := client.GetLatestVideo(ctx, channelURL)
	assert.NoError(t, err)
	assert.Equal(t, "v3", latest.VideoID)

	recent, err := client.GetRecentlyPublishedVideos(ctx, channelURL, 2)
	assert.NoError(t, err)
	assert.Len(t, recent, 2)
	assert.Equal(t, "v2", recent[0].VideoID)
	assert.Equal(t, "v3", recent[1].VideoID)

	video, err := client.GetChannelVideo(ctx, channelURL, "v1")
	assert.NoError(t, err)
	assert.Equal(t, "Old", video.Title)

	_, err = client.GetChannelVideo(ctx, "https://www.youtube.com/@other", "v1")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestUserVideoSummaries(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	email := "f@example.com"
	now := time.Now()
	summaries := []*models.MongoUserVideoSummary{
		{UserEmail: email, VideoID: "a", Title: "Go concurrency (part 1)", Summary: "channels", CreatedAt: now.AddDate(0, -2, 0)},
		{UserEmail: email, VideoID: "b", Title: "Rust", Summary: "ownership and GO-style channels", CreatedAt: now},
		{UserEmail: "other@example.com", VideoID: "c", Title: "Go", Summary: "go", CreatedAt: now},
	}
	for _, s := range summaries {
		assert.NoError(t, client.CreateUserVideoSummary(ctx, s))
	}

	history, err := client.GetUserVideoSummaries(ctx, email, 0)
	assert.NoError(t, err)
	assert.Len(t, history, 2)
	assert.Equal(t, "b", history[0].VideoID)

	history, err = client.GetUserVideoSummaries(ctx, email, 1)
	assert.NoError(t, err)
	assert.Len(t, history, 1)

	count, err := client.CountUserVideoSummariesSince(ctx, email, now.AddDate(0, -1, 0))
	assert.NoError(t, err)
	assert.Equal(t, int64(1), count)

	found, err := client.SearchUserVideoSummaries(ctx, email, "go")
	assert.NoError(t, err)
	assert.Len(t, found, 2)

	// regex metacharacters are matched literally
	found, err = client.SearchUserVideoSummaries(ctx, email, "(part 1)")
	assert.NoError(t, err)
	assert.Len(t, found, 1)
	assert.Equal(t, "a", found[0].VideoID)
}

func TestSearchVideos(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	assert.NoError(t, client.CreateVideo(ctx, &models.MongoVideo{ChannelURL: "https://www.youtube.com/@a", VideoID: "1", Title: "Kubernetes in 100 seconds", CreatedAt: time.Now()}))
	assert.NoError(t, client.CreateVideo(ctx, &models.MongoVideo{ChannelURL: "https://www.youtube.com/@b", VideoID: "2", Title: "kubernetes explained", CreatedAt: time.Now()}))

	videos, err := client.SearchVideos(ctx, []string{"https://www.youtube.com/@a"}, "KUBERNETES")
	assert.NoError(t, err)
	assert.Len(t, videos, 1)
	assert.Equal(t, "1", videos[0].VideoID)

	videos, err = client.SearchVideos(ctx, nil, "kubernetes")
	assert.NoError(t, err)
	assert.Empty(t, videos)
}

func TestEnsureIndexes(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	assert.NoError(t, client.EnsureIndexes(ctx))
	// idempotent
	assert.NoError(t, client.EnsureIndexes(ctx))

	assert.NoError(t, client.CreateUser(ctx, &models.MongoUser{Email: "dup@example.com", CreatedAt: time.Now()}))
	assert.Error(t, client.CreateUser(ctx, &models.MongoUser{Email: "dup@example.com", CreatedAt: time.Now()}))
}
