package mongo

import (
	"context"
	"fmt"
	"resumotube/m/v2/app/models"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (c *Client) CountChannelUsers(ctx context.Context, channelHandle string) (int64, error) {
	count, err := c.collection(MongoUserChannelCollection).CountDocuments(ctx, bson.M{"channelHandle": channelHandle})
	if err != nil {
		return 0, fmt.Errorf("CountChannelUsers: failed to count user channels: %w", err)
	}
	return count, nil
}

func (c *Client) CountUserChannels(ctx context.Context, email string) (int64, error) {
	count, err := c.collection(MongoUserChannelCollection).CountDocuments(ctx, bson.M{"userEmail": email})
	if err != nil {
		return 0, fmt.Errorf("CountUserChannels: failed to count user channels: %w", err)
	}
	return count, nil
}

func (c *Client) CreateChannel(ctx context.Context, channel *models.MongoChannel) error {
	result, err := c.collection(MongoChannelCollection).InsertOne(ctx, channel)
	if err != nil {
		return fmt.Errorf("CreateChannel: failed to insert channel: %w", err)
	}
	channel.ID = insertedID(result)
	return nil
}

func (c *Client) CreateUserChannel(ctx context.Context, userChannel *models.MongoUserChannel) error {
	result, err := c.collection(MongoUserChannelCollection).InsertOne(ctx, userChannel)
	if err != nil {
		return fmt.Errorf("CreateUserChannel: failed to insert user channel: %w", err)
	}
	userChannel.ID = insertedID(result)
	return nil
}

func (c *Client) DeleteChannel(ctx context.Context, id primitive.ObjectID) error {
	_, err := c.collection(MongoChannelCollection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("DeleteChannel: failed to delete channel: %w", err)
	}
	return nil
}

// DeleteUserChannel returns the number of deleted links.
func (c *Client) DeleteUserChannel(ctx context.Context, email string, channelHandle string) (int64, error) {
	result, err := c.collection(MongoUserChannelCollection).DeleteOne(ctx, bson.M{
		"userEmail":     email,
		"channelHandle": channelHandle,
	})
	if err != nil {
		return 0, fmt.Errorf("DeleteUserChannel: failed to delete user channel: %w", err)
	}
	return result.DeletedCount, nil
}

func (c *Client) GetChannelByHandle(ctx context.Context, channelHandle string) (*models.MongoChannel, error) {
	var channel models.MongoChannel
	err := c.findOne(ctx, MongoChannelCollection, bson.M{"channelHandle": channelHandle}, &channel)
	if err != nil {
		return nil, fmt.Errorf("GetChannelByHandle: failed to find channel: %w", err)
	}
	return &channel, nil
}

func (c *Client) GetChannelByURL(ctx context.Context, channelURL string) (*models.MongoChannel, error) {
	var channel models.MongoChannel
	err := c.findOne(ctx, MongoChannelCollection, bson.M{"channelUrl": channelURL}, &channel)
	if err != nil {
		return nil, fmt.Errorf("GetChannelByURL: failed to find channel: %w", err)
	}
	return &channel, nil
}

// GetChannelsToRefresh returns channels never refreshed or last refreshed before updatedBefore.
func (c *Client) GetChannelsToRefresh(ctx context.Context, updatedBefore time.Time, limit int64) ([]models.MongoChannel, error) {
	filter := bson.M{
		"$or": bson.A{
			bson.M{"lastUpdated": bson.M{"$lt": updatedBefore}},
			bson.M{"lastUpdated": bson.M{"$exists": false}},
		},
	}
	cursor, err := c.collection(MongoChannelCollection).Find(ctx, filter, options.Find().SetLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("GetChannelsToRefresh: failed to find channels: %w", err)
	}
	channels := []models.MongoChannel{}
	if err := cursor.All(ctx, &channels); err != nil {
		return nil, fmt.Errorf("GetChannelsToRefresh: failed to decode channels: %w", err)
	}
	return channels, nil
}

func (c *Client) GetUserChannel(ctx context.Context, email string, channelHandle string) (*models.MongoUserChannel, error) {
	var userChannel models.MongoUserChannel
	filter := bson.M{"userEmail": email, "channelHandle": channelHandle}
	err := c.findOne(ctx, MongoUserChannelCollection, filter, &userChannel)
	if err != nil {
		return nil, fmt.Errorf("GetUserChannel: failed to find user channel: %w", err)
	}
	return &userChannel, nil
}

func (c *Client) GetUserChannels(ctx context.Context, email string) ([]models.MongoUserChannel, error) {
	cursor, err := c.collection(MongoUserChannelCollection).Find(ctx, bson.M{"userEmail": email})
	if err != nil {
		return nil, fmt.Errorf("GetUserChannels: failed to find user channels: %w", err)
	}
	userChannels := []models.MongoUserChannel{}
	if err := cursor.All(ctx, &userChannels); err != nil {
		return nil, fmt.Errorf("GetUserChannels: failed to decode user channels: %w", err)
	}
	return userChannels, nil
}

func (c *Client) UpdateChannelLastAdded(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	_, err := c.collection(MongoChannelCollection).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"lastAdded": at}})
	if err != nil {
		return fmt.Errorf("UpdateChannelLastAdded: failed to update channel: %w", err)
	}
	return nil
}

func (c *Client) UpdateChannelLastUpdated(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	_, err := c.collection(MongoChannelCollection).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"lastUpdated": at}})
	if err != nil {
		return fmt.Errorf("UpdateChannelLastUpdated: failed to update channel: %w", err)
	}
	return nil
}
