package mongo

import (
	"context"
	"fmt"
	"resumotube/m/v2/app/models"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MockMongoDBClient is an in-memory mock for the MongoDB client in the mongo package.
type MockMongoDBClient struct {
	MongoClient

	mu             sync.Mutex
	Users          []models.MongoUser
	Channels       []models.MongoChannel
	UserChannels   []models.MongoUserChannel
	Videos         []models.MongoVideo
	VideoSummaries []models.MongoUserVideoSummary

	// PingErr is returned from Ping when set
	PingErr error
}

func NewMockMongoDBClient(users ...models.MongoUser) *MockMongoDBClient {
	return &MockMongoDBClient{
		Users: users,
	}
}

func (m *MockMongoDBClient) Disconnect(ctx context.Context) error {
	return nil
}

func (m *MockMongoDBClient) EnsureIndexes(ctx context.Context) error {
	return nil
}

func (m *MockMongoDBClient) Ping(ctx context.Context, rp *readpref.ReadPref) error {
	return m.PingErr
}

func notFound(op string) error {
	return fmt.Errorf("%s: %w", op, ErrNotFound)
}

// users

func (m *MockMongoDBClient) CreateUser(ctx context.Context, user *models.MongoUser) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.Users {
		if u.Email == user.Email {
			return fmt.Errorf("CreateUser: duplicate email %s", user.Email)
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	m.Users = append(m.Users, *user)
	return nil
}

func (m *MockMongoDBClient) findUser(match func(u *models.MongoUser) bool) *models.MongoUser {
	for i := range m.Users {
		if match(&m.Users[i]) {
			return &m.Users[i]
		}
	}
	return nil
}

func (m *MockMongoDBClient) GetUserByEmail(ctx context.Context, email string) (*models.MongoUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user := m.findUser(func(u *models.MongoUser) bool { return u.Email == email })
	if user == nil {
		return nil, notFound("GetUserByEmail")
	}
	copied := *user
	return &copied, nil
}

func (m *MockMongoDBClient) GetUserByID(ctx context.Context, id string) (*models.MongoUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user := m.findUser(func(u *models.MongoUser) bool { return u.ID.Hex() == id })
	if user == nil {
		return nil, notFound("GetUserByID")
	}
	copied := *user
	return &copied, nil
}

func (m *MockMongoDBClient) GetUserByResetToken(ctx context.Context, id string, token string) (*models.MongoUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	user := m.findUser(func(u *models.MongoUser) bool {
		return u.ID.Hex() == id && u.ResetToken == token && u.ResetTokenExpires != nil && u.ResetTokenExpires.After(now)
	})
	if user == nil {
		return nil, notFound("GetUserByResetToken")
	}
	copied := *user
	return &copied, nil
}

func (m *MockMongoDBClient) GetUserBySubscriptionID(ctx context.Context, subscriptionID string) (*models.MongoUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user := m.findUser(func(u *models.MongoUser) bool { return u.StripeSubscriptionID == subscriptionID })
	if user == nil {
		return nil, notFound("GetUserBySubscriptionID")
	}
	copied := *user
	return &copied, nil
}

func (m *MockMongoDBClient) GetUsersCount(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.Users)), nil
}

func (m *MockMongoDBClient) GetUsersCountForTier(ctx context.Context, tier models.MongoSubscriptionName) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, u := range m.Users {
		if u.Tier == tier && u.SubscriptionStatus == models.SubscriptionStatusActive {
			count++
		}
	}
	return count, nil
}

func (m *MockMongoDBClient) SetUserResetToken(ctx context.Context, id primitive.ObjectID, token string, expires time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user := m.findUser(func(u *models.MongoUser) bool { return u.ID == id }); user != nil {
		user.ResetToken = token
		user.ResetTokenExpires = &expires
	}
	return nil
}

func (m *MockMongoDBClient) UpdateUserPassword(ctx context.Context, id primitive.ObjectID, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user := m.findUser(func(u *models.MongoUser) bool { return u.ID == id }); user != nil {
		user.Password = passwordHash
		user.ResetToken = ""
		user.ResetTokenExpires = nil
	}
	return nil
}

func (m *MockMongoDBClient) UpdateUserStripeCustomerId(ctx context.Context, id primitive.ObjectID, stripeCustomerId string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user := m.findUser(func(u *models.MongoUser) bool { return u.ID == id }); user != nil {
		user.StripeCustomerID = stripeCustomerId
	}
	return nil
}

func (m *MockMongoDBClient) UpdateUserSubscription(ctx context.Context, id primitive.ObjectID, update SubscriptionUpdate) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user := m.findUser(func(u *models.MongoUser) bool { return u.ID == id })
	if user == nil || len(update.toBson()) == 0 {
		return 0, nil
	}
	if update.Tier != nil {
		user.Tier = *update.Tier
	}
	if update.SubscriptionStatus != nil {
		user.SubscriptionStatus = *update.SubscriptionStatus
	}
	if update.StripeSubscriptionID != nil {
		user.StripeSubscriptionID = *update.StripeSubscriptionID
	}
	if update.CurrentPeriodEnd != nil {
		t := *update.CurrentPeriodEnd
		user.CurrentPeriodEnd = &t
	}
	if update.SubscriptionStartDate != nil {
		t := *update.SubscriptionStartDate
		user.SubscriptionStartDate = &t
	}
	if update.SubscriptionCancelledAt != nil {
		t := *update.SubscriptionCancelledAt
		user.SubscriptionCancelledAt = &t
	}
	if update.PromoCode != nil {
		user.PromoCode = *update.PromoCode
	}
	return 1, nil
}

// channels

func (m *MockMongoDBClient) CountChannelUsers(ctx context.Context, channelHandle string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, uc := range m.UserChannels {
		if uc.ChannelHandle == channelHandle {
			count++
		}
	}
	return count, nil
}

func (m *MockMongoDBClient) CountUserChannels(ctx context.Context, email string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, uc := range m.UserChannels {
		if uc.UserEmail == email {
			count++
		}
	}
	return count, nil
}

func (m *MockMongoDBClient) CreateChannel(ctx context.Context, channel *models.MongoChannel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if channel.ID.IsZero() {
		channel.ID = primitive.NewObjectID()
	}
	m.Channels = append(m.Channels, *channel)
	return nil
}

func (m *MockMongoDBClient) CreateUserChannel(ctx context.Context, userChannel *models.MongoUserChannel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if userChannel.ID.IsZero() {
		userChannel.ID = primitive.NewObjectID()
	}
	m.UserChannels = append(m.UserChannels, *userChannel)
	return nil
}

func (m *MockMongoDBClient) DeleteChannel(ctx context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, ch := range m.Channels {
		if ch.ID == id {
			m.Channels = append(m.Channels[:i], m.Channels[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *MockMongoDBClient) DeleteUserChannel(ctx context.Context, email string, channelHandle string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, uc := range m.UserChannels {
		if uc.UserEmail == email && uc.ChannelHandle == channelHandle {
			m.UserChannels = append(m.UserChannels[:i], m.UserChannels[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (m *MockMongoDBClient) findChannel(match func(ch *models.MongoChannel) bool) *models.MongoChannel {
	for i := range m.Channels {
		if match(&m.Channels[i]) {
			return &m.Channels[i]
		}
	}
	return nil
}

func (m *MockMongoDBClient) GetChannelByHandle(ctx context.Context, channelHandle string) (*models.MongoChannel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	channel := m.findChannel(func(ch *models.MongoChannel) bool { return ch.ChannelHandle == channelHandle })
	if channel == nil {
		return nil, notFound("GetChannelByHandle")
	}
	copied := *channel
	return &copied, nil
}

func (m *MockMongoDBClient) GetChannelByURL(ctx context.Context, channelURL string) (*models.MongoChannel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	channel := m.findChannel(func(ch *models.MongoChannel) bool { return ch.ChannelURL == channelURL })
	if channel == nil {
		return nil, notFound("GetChannelByURL")
	}
	copied := *channel
	return &copied, nil
}

func (m *MockMongoDBClient) GetChannelsToRefresh(ctx context.Context, updatedBefore time.Time, limit int64) ([]models.MongoChannel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	channels := []models.MongoChannel{}
	for _, ch := range m.Channels {
		if limit > 0 && int64(len(channels)) >= limit {
			break
		}
		if ch.LastUpdated == nil || ch.LastUpdated.Before(updatedBefore) {
			channels = append(channels, ch)
		}
	}
	return channels, nil
}

func (m *MockMongoDBClient) GetUserChannel(ctx context.Context, email string, channelHandle string) (*models.MongoUserChannel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, uc := range m.UserChannels {
		if uc.UserEmail == email && uc.ChannelHandle == channelHandle {
			copied := uc
			return &copied, nil
		}
	}
	return nil, notFound("GetUserChannel")
}

func (m *MockMongoDBClient) GetUserChannels(ctx context.Context, email string) ([]models.MongoUserChannel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	userChannels := []models.MongoUserChannel{}
	for _, uc := range m.UserChannels {
		if uc.UserEmail == email {
			userChannels = append(userChannels, uc)
		}
	}
	return userChannels, nil
}

func (m *MockMongoDBClient) UpdateChannelLastAdded(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if channel := m.findChannel(func(ch *models.MongoChannel) bool { return ch.ID == id }); channel != nil {
		channel.LastAdded = at
	}
	return nil
}

func (m *MockMongoDBClient) UpdateChannelLastUpdated(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if channel := m.findChannel(func(ch *models.MongoChannel) bool { return ch.ID == id }); channel != nil {
		channel.LastUpdated = &at
	}
	return nil
}

// videos

func (m *MockMongoDBClient) CountUserVideoSummariesSince(ctx context.Context, email string, since time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, s := range m.VideoSummaries {
		if s.UserEmail == email && !s.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (m *MockMongoDBClient) CreateUserVideoSummary(ctx context.Context, summary *models.MongoUserVideoSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if summary.ID.IsZero() {
		summary.ID = primitive.NewObjectID()
	}
	m.VideoSummaries = append(m.VideoSummaries, *summary)
	return nil
}

func (m *MockMongoDBClient) CreateVideo(ctx context.Context, video *models.MongoVideo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if video.ID.IsZero() {
		video.ID = primitive.NewObjectID()
	}
	m.Videos = append(m.Videos, *video)
	return nil
}

func (m *MockMongoDBClient) GetChannelVideo(ctx context.Context, channelURL string, videoID string) (*models.MongoVideo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.Videos {
		if v.ChannelURL == channelURL && v.VideoID == videoID {
			copied := v
			return &copied, nil
		}
	}
	return nil, notFound("GetChannelVideo")
}

func (m *MockMongoDBClient) GetLatestVideo(ctx context.Context, channelURL string) (*models.MongoVideo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *models.MongoVideo
	for i := range m.Videos {
		v := &m.Videos[i]
		if v.ChannelURL == channelURL && (latest == nil || v.CreatedAt.After(latest.CreatedAt)) {
			latest = v
		}
	}
	if latest == nil {
		return nil, notFound("GetLatestVideo")
	}
	copied := *latest
	return &copied, nil
}

func (m *MockMongoDBClient) GetRecentlyPublishedVideos(ctx context.Context, channelURL string, limit int64) ([]models.MongoVideo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	videos := []models.MongoVideo{}
	for _, v := range m.Videos {
		if v.ChannelURL == channelURL {
			videos = append(videos, v)
		}
	}
	sort.SliceStable(videos, func(i, j int) bool { return videos[i].PublishedAt > videos[j].PublishedAt })
	if limit > 0 && int64(len(videos)) > limit {
		videos = videos[:limit]
	}
	return videos, nil
}

func (m *MockMongoDBClient) GetUserVideoSummaries(ctx context.Context, email string, limit int64) ([]models.MongoUserVideoSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	summaries := []models.MongoUserVideoSummary{}
	for _, s := range m.VideoSummaries {
		if s.UserEmail == email {
			summaries = append(summaries, s)
		}
	}
	sort.SliceStable(summaries, func(i, j int) bool { return summaries[i].CreatedAt.After(summaries[j].CreatedAt) })
	if limit > 0 && int64(len(summaries)) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

func (m *MockMongoDBClient) GetUserVideoSummary(ctx context.Context, email string, videoID string) (*models.MongoUserVideoSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.VideoSummaries {
		if s.UserEmail == email && s.VideoID == videoID {
			copied := s
			return &copied, nil
		}
	}
	return nil, notFound("GetUserVideoSummary")
}

func (m *MockMongoDBClient) GetVideo(ctx context.Context, videoID string) (*models.MongoVideo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.Videos {
		if v.VideoID == videoID {
			copied := v
			return &copied, nil
		}
	}
	return nil, notFound("GetVideo")
}

func contains(text, query string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(query))
}

func (m *MockMongoDBClient) SearchUserVideoSummaries(ctx context.Context, email string, query string) ([]models.MongoUserVideoSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	summaries := []models.MongoUserVideoSummary{}
	for _, s := range m.VideoSummaries {
		if s.UserEmail == email && (contains(s.Title, query) || contains(s.Summary, query)) {
			summaries = append(summaries, s)
		}
	}
	return summaries, nil
}

func (m *MockMongoDBClient) SearchVideos(ctx context.Context, channelURLs []string, query string) ([]models.MongoVideo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	urls := map[string]bool{}
	for _, u := range channelURLs {
		urls[u] = true
	}
	videos := []models.MongoVideo{}
	for _, v := range m.Videos {
		if urls[v.ChannelURL] && (contains(v.Title, query) || contains(v.Summary, query)) {
			videos = append(videos, v)
		}
	}
	return videos, nil
}
