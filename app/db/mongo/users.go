package mongo

import (
	"context"
	"fmt"
	"resumotube/m/v2/app/models"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SubscriptionUpdate lists the subscription fields to $set on a user; nil fields are left untouched.
type SubscriptionUpdate struct {
	Tier                    *models.MongoSubscriptionName
	SubscriptionStatus      *models.SubscriptionStatus
	StripeSubscriptionID    *string
	CurrentPeriodEnd        *time.Time
	SubscriptionStartDate   *time.Time
	SubscriptionCancelledAt *time.Time
	PromoCode               *string
}

func (u SubscriptionUpdate) toBson() bson.M {
	set := bson.M{}
	if u.Tier != nil {
		set["tier"] = *u.Tier
	}
	if u.SubscriptionStatus != nil {
		set["subscriptionStatus"] = *u.SubscriptionStatus
	}
	if u.StripeSubscriptionID != nil {
		set["stripeSubscriptionId"] = *u.StripeSubscriptionID
	}
	if u.CurrentPeriodEnd != nil {
		set["currentPeriodEnd"] = *u.CurrentPeriodEnd
	}
	if u.SubscriptionStartDate != nil {
		set["subscriptionStartDate"] = *u.SubscriptionStartDate
	}
	if u.SubscriptionCancelledAt != nil {
		set["subscriptionCancelledAt"] = *u.SubscriptionCancelledAt
	}
	if u.PromoCode != nil {
		set["promoCode"] = *u.PromoCode
	}
	return set
}

func (c *Client) CreateUser(ctx context.Context, user *models.MongoUser) error {
	result, err := c.collection(MongoUserCollection).InsertOne(ctx, user)
	if err != nil {
		return fmt.Errorf("CreateUser: failed to insert user: %w", err)
	}
	user.ID = insertedID(result)
	return nil
}

func (c *Client) GetUserByEmail(ctx context.Context, email string) (*models.MongoUser, error) {
	var user models.MongoUser
	err := c.findOne(ctx, MongoUserCollection, bson.M{"email": email}, &user)
	if err != nil {
		return nil, fmt.Errorf("GetUserByEmail: failed to find user: %w", err)
	}
	return &user, nil
}

func (c *Client) GetUserByID(ctx context.Context, id string) (*models.MongoUser, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("GetUserByID: invalid user id %q: %w", id, ErrNotFound)
	}
	var user models.MongoUser
	err = c.findOne(ctx, MongoUserCollection, bson.M{"_id": objectID}, &user)
	if err != nil {
		return nil, fmt.Errorf("GetUserByID: failed to find user: %w", err)
	}
	return &user, nil
}

// GetUserByResetToken returns the user only while the stored reset token is still valid.
func (c *Client) GetUserByResetToken(ctx context.Context, id string, token string) (*models.MongoUser, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("GetUserByResetToken: invalid user id %q: %w", id, ErrNotFound)
	}
	filter := bson.M{
		"_id":               objectID,
		"resetToken":        token,
		"resetTokenExpires": bson.M{"$gt": time.Now()},
	}
	var user models.MongoUser
	err = c.findOne(ctx, MongoUserCollection, filter, &user)
	if err != nil {
		return nil, fmt.Errorf("GetUserByResetToken: failed to find user: %w", err)
	}
	return &user, nil
}

func (c *Client) GetUserBySubscriptionID(ctx context.Context, subscriptionID string) (*models.MongoUser, error) {
	var user models.MongoUser
	err := c.findOne(ctx, MongoUserCollection, bson.M{"stripeSubscriptionId": subscriptionID}, &user)
	if err != nil {
		return nil, fmt.Errorf("GetUserBySubscriptionID: failed to find user: %w", err)
	}
	return &user, nil
}

func (c *Client) GetUsersCount(ctx context.Context) (int64, error) {
	count, err := c.collection(MongoUserCollection).CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("GetUsersCount: failed to get users count: %w", err)
	}
	return count, nil
}

func (c *Client) GetUsersCountForTier(ctx context.Context, tier models.MongoSubscriptionName) (int64, error) {
	filter := bson.M{"tier": tier, "subscriptionStatus": models.SubscriptionStatusActive}
	count, err := c.collection(MongoUserCollection).CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("GetUsersCountForTier: failed to get users count: %w", err)
	}
	return count, nil
}

func (c *Client) SetUserResetToken(ctx context.Context, id primitive.ObjectID, token string, expires time.Time) error {
	update := bson.M{
		"$set": bson.M{
			"resetToken":        token,
			"resetTokenExpires": expires,
		},
	}
	_, err := c.collection(MongoUserCollection).UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("SetUserResetToken: failed to update user: %w", err)
	}
	return nil
}

// UpdateUserPassword sets a new password hash and clears any pending reset token.
func (c *Client) UpdateUserPassword(ctx context.Context, id primitive.ObjectID, passwordHash string) error {
	update := bson.M{
		"$set":   bson.M{"password": passwordHash},
		"$unset": bson.M{"resetToken": "", "resetTokenExpires": ""},
	}
	_, err := c.collection(MongoUserCollection).UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("UpdateUserPassword: failed to update user: %w", err)
	}
	return nil
}

func (c *Client) UpdateUserStripeCustomerId(ctx context.Context, id primitive.ObjectID, stripeCustomerId string) error {
	update := bson.M{
		"$set": bson.M{
			"stripeCustomerId": stripeCustomerId,
		},
	}
	_, err := c.collection(MongoUserCollection).UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("UpdateUserStripeCustomerId: failed to update user: %w", err)
	}
	return nil
}

// UpdateUserSubscription returns the number of modified documents.
func (c *Client) UpdateUserSubscription(ctx context.Context, id primitive.ObjectID, update SubscriptionUpdate) (int64, error) {
	set := update.toBson()
	if len(set) == 0 {
		return 0, nil
	}
	result, err := c.collection(MongoUserCollection).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return 0, fmt.Errorf("UpdateUserSubscription: failed to update user: %w", err)
	}
	return result.ModifiedCount, nil
}
