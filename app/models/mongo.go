package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MongoUser struct {
	ID                      primitive.ObjectID    `bson:"_id,omitempty" json:"_id"`
	Email                   string                `bson:"email" json:"email"`
	Password                string                `bson:"password,omitempty" json:"-"`
	Name                    string                `bson:"name,omitempty" json:"name,omitempty"`
	GoogleID                string                `bson:"googleId,omitempty" json:"googleId,omitempty"`
	CreatedAt               time.Time             `bson:"createdAt" json:"createdAt"`
	Tier                    MongoSubscriptionName `bson:"tier" json:"tier"`
	SubscriptionStatus      SubscriptionStatus    `bson:"subscriptionStatus" json:"subscriptionStatus"`
	StripeCustomerID        string                `bson:"stripeCustomerId,omitempty" json:"stripeCustomerId,omitempty"`
	StripeSubscriptionID    string                `bson:"stripeSubscriptionId,omitempty" json:"stripeSubscriptionId,omitempty"`
	CurrentPeriodEnd        *time.Time            `bson:"currentPeriodEnd,omitempty" json:"currentPeriodEnd,omitempty"`
	SubscriptionStartDate   *time.Time            `bson:"subscriptionStartDate,omitempty" json:"subscriptionStartDate,omitempty"`
	SubscriptionCancelledAt *time.Time            `bson:"subscriptionCancelledAt,omitempty" json:"subscriptionCancelledAt,omitempty"`
	PromoCode               string                `bson:"promoCode,omitempty" json:"promoCode,omitempty"`
	ResetToken              string                `bson:"resetToken,omitempty" json:"-"`
	ResetTokenExpires       *time.Time            `bson:"resetTokenExpires,omitempty" json:"-"`
}

// DisplayName is the name used in emails.
func (u *MongoUser) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	name, _, _ := strings.Cut(u.Email, "@")
	return name
}

type MongoChannel struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	ChannelURL        string             `bson:"channelUrl" json:"channelUrl"`
	ChannelID         string             `bson:"channelId" json:"channelId"`
	ChannelHandle     string             `bson:"channelHandle" json:"channelHandle"`
	ProfilePictureURL string             `bson:"profilePictureUrl,omitempty" json:"profilePictureUrl,omitempty"`
	LastAdded         time.Time          `bson:"lastAdded" json:"lastAdded"`
	LastUpdated       *time.Time         `bson:"lastUpdated,omitempty" json:"lastUpdated,omitempty"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
}

// MongoUserChannel links a user to a channel handle.
type MongoUserChannel struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserEmail     string             `bson:"userEmail" json:"userEmail"`
	ChannelHandle string             `bson:"channelHandle" json:"channelHandle"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
}

// MongoVideo is a summary shared across all users following the channel.
type MongoVideo struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	ChannelURL        string             `bson:"channelUrl" json:"channelUrl"`
	VideoID           string             `bson:"videoId" json:"videoId"`
	Title             string             `bson:"title" json:"title"`
	PublishedAt       string             `bson:"publishedAt" json:"publishedAt"`
	Summary           string             `bson:"summary" json:"summary"`
	Transcript        string             `bson:"transcript,omitempty" json:"transcript,omitempty"`
	ProfilePictureURL string             `bson:"profilePictureUrl,omitempty" json:"profilePictureUrl,omitempty"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
}

// PublishedTime parses PublishedAt, returning the zero time when it is malformed.
func (v *MongoVideo) PublishedTime() time.Time {
	t, err := time.Parse(time.RFC3339, v.PublishedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}

type MongoUserVideoSummary struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	UserEmail   string             `bson:"userEmail" json:"userEmail"`
	VideoID     string             `bson:"videoId" json:"videoId"`
	Title       string             `bson:"title" json:"title"`
	PublishedAt string             `bson:"publishedAt" json:"publishedAt"`
	Summary     string             `bson:"summary" json:"summary"`
	Transcript  string             `bson:"transcript,omitempty" json:"transcript,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}

// UserContext carries the AuthUser that OpenAI usage is billed to.
type UserContext struct{}

type AuthUser struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}
