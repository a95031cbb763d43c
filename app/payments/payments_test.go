package payments

import (
	"context"
	"errors"
	"resumotube/m/v2/app/config"
	"resumotube/m/v2/app/db/mongo"
	"resumotube/m/v2/app/db/redis"
	"resumotube/m/v2/app/email"
	"resumotube/m/v2/app/models"
	"testing"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v78"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func init() {
	config.CONFIG = &config.Config{
		DataDogClient:       &statsd.NoOpClient{},
		FrontendURL:         "https://app.resumotube.com.br",
		StripeWebhookSecret: "whsec_test",
	}
}

type fixture struct {
	service   *Service
	db        *mongo.MockMongoDBClient
	gateway   *MockGateway
	transport *email.MockTransport
	user      models.MongoUser
}

func newFixture(user models.MongoUser) *fixture {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if user.Email == "" {
		user.Email = "ana@example.com"
	}
	db := mongo.NewMockMongoDBClient(user)
	gateway := NewMockGateway()
	mailer, transport := email.NewMockMailer(config.CONFIG.FrontendURL)
	return &fixture{
		service:   NewService(db, gateway, mailer, config.CONFIG),
		db:        db,
		gateway:   gateway,
		transport: transport,
		user:      user,
	}
}

func (f *fixture) reload(t *testing.T) *models.MongoUser {
	user, err := f.db.GetUserByID(context.Background(), f.user.ID.Hex())
	require.NoError(t, err)
	return user
}

func TestBill(t *testing.T) {
	redis.RedisClient = redis.NewMockRedisClient()
	usage := models.CostAndUsage{
		Engine: models.ChatGpt4oMini,
		Usage: models.Usage{
			PromptTokens:     550,
			CompletionTokens: 450,
			TotalTokens:      1000,
		},
		PricePerInputUnit:  0.001,
		PricePerOutputUnit: 0.002,
		User:               "ana@example.com",
	}

	result := Bill(context.Background(), usage)
	expectedCost := float64(usage.Usage.PromptTokens)*usage.PricePerInputUnit + float64(usage.Usage.CompletionTokens)*usage.PricePerOutputUnit
	assert.Equal(t, expectedCost, result.Cost, "Incorrect cost calculation")

	tokens, err := redis.RedisClient.Get(context.Background(), redis.SystemTotalsTokensKey).Int64()
	assert.NoError(t, err)
	assert.Equal(t, int64(1000), tokens)
	monthly, err := redis.RedisClient.Get(context.Background(), redis.MonthlyUsageKey("cost")).Float64()
	assert.NoError(t, err)
	assert.InDelta(t, expectedCost, monthly, 1e-9)
}

func TestCreateCheckoutCreatesCustomer(t *testing.T) {
	f := newFixture(models.MongoUser{})

	result, err := f.service.CreateCheckout(context.Background(), &f.user, "pro")
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", result.SessionID)
	assert.NotEmpty(t, result.URL)

	require.Len(t, f.gateway.CreatedSessions, 1)
	params := f.gateway.CreatedSessions[0]
	assert.Equal(t, "cus_"+f.user.ID.Hex(), *params.Customer)
	assert.Equal(t, "brl", *params.LineItems[0].PriceData.Currency)
	assert.Equal(t, int64(1999), *params.LineItems[0].PriceData.UnitAmount)
	assert.Equal(t, "month", *params.LineItems[0].PriceData.Recurring.Interval)
	assert.Equal(t, "https://app.resumotube.com.br/success?session_id={CHECKOUT_SESSION_ID}", *params.SuccessURL)
	assert.Equal(t, "https://app.resumotube.com.br/landing.html", *params.CancelURL)
	assert.True(t, *params.AllowPromotionCodes)
	assert.Equal(t, "pro", params.Metadata[PlanIDMetadata])
	assert.Equal(t, f.user.ID.Hex(), params.Metadata[UserIDMetadata])

	assert.Equal(t, "cus_"+f.user.ID.Hex(), f.reload(t).StripeCustomerID)
}

func TestCreateCheckoutReusesCustomer(t *testing.T) {
	f := newFixture(models.MongoUser{StripeCustomerID: "cus_existing"})
	f.gateway.Customers["cus_existing"] = &stripe.Customer{ID: "cus_existing"}

	_, err := f.service.CreateCheckout(context.Background(), &f.user, "basic")
	require.NoError(t, err)
	assert.Equal(t, "cus_existing", *f.gateway.CreatedSessions[0].Customer)
	assert.Len(t, f.gateway.Customers, 1)
}

func TestCreateCheckoutInvalidPlan(t *testing.T) {
	f := newFixture(models.MongoUser{})
	_, err := f.service.CreateCheckout(context.Background(), &f.user, "enterprise")
	assert.True(t, errors.Is(err, ErrInvalidPlan))
	assert.Empty(t, f.gateway.CreatedSessions)
}

func paidSession(f *fixture, planID string) {
	f.gateway.Sessions["cs_paid"] = &stripe.CheckoutSession{
		ID:            "cs_paid",
		PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
		Subscription:  &stripe.Subscription{ID: "sub_1"},
		Metadata:      map[string]string{PlanIDMetadata: planID, UserIDMetadata: f.user.ID.Hex()},
		AmountTotal:   1599,
		TotalDetails: &stripe.CheckoutSessionTotalDetails{
			Breakdown: &stripe.CheckoutSessionTotalDetailsBreakdown{
				Discounts: []*stripe.CheckoutSessionTotalDetailsBreakdownDiscount{
					{Discount: &stripe.Discount{PromotionCode: &stripe.PromotionCode{Code: "LANCAMENTO"}}},
				},
			},
		},
	}
	f.gateway.Subscriptions["sub_1"] = &stripe.Subscription{
		ID:                 "sub_1",
		Status:             stripe.SubscriptionStatusActive,
		BillingCycleAnchor: time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC).Unix(),
	}
}

func TestVerifyActivatesSubscription(t *testing.T) {
	f := newFixture(models.MongoUser{Tier: models.BasicSubscriptionName, SubscriptionStatus: models.SubscriptionStatusUnpaid})
	paidSession(f, "pro")

	result, err := f.service.Verify(context.Background(), &f.user, "cs_paid")
	require.NoError(t, err)
	assert.Equal(t, "Subscription activated successfully", result.Message)
	assert.Equal(t, models.SubscriptionStatusActive, result.SubscriptionStatus)
	require.NotNil(t, result.PromoCode)
	assert.Equal(t, "LANCAMENTO", *result.PromoCode)
	// one month after the billing cycle anchor
	assert.Equal(t, time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC), *result.NextBillingDate)

	user := f.reload(t)
	assert.Equal(t, models.ProSubscriptionName, user.Tier)
	assert.Equal(t, models.SubscriptionStatusActive, user.SubscriptionStatus)
	assert.Equal(t, "sub_1", user.StripeSubscriptionID)
	assert.Equal(t, "LANCAMENTO", user.PromoCode)
	assert.NotNil(t, user.SubscriptionStartDate)

	sent := f.transport.Emails()
	require.Len(t, sent, 1)
	assert.Equal(t, "Pagamento Confirmado - ResumoTube", sent[0].Subject)
	assert.Contains(t, sent[0].HTML, "R$ 15.99")
}

func TestVerifyAlreadyActive(t *testing.T) {
	f := newFixture(models.MongoUser{SubscriptionStatus: models.SubscriptionStatusActive, PromoCode: "X"})
	result, err := f.service.Verify(context.Background(), &f.user, "ignored")
	require.NoError(t, err)
	assert.Equal(t, "Subscription already active", result.Message)
	assert.Equal(t, "X", *result.PromoCode)
}

func TestVerifyRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *fixture)
		want   error
	}{
		{
			name: "unpaid",
			mutate: func(f *fixture) {
				f.gateway.Sessions["cs_paid"].PaymentStatus = stripe.CheckoutSessionPaymentStatusUnpaid
			},
			want: ErrPaymentNotCompleted,
		},
		{
			name: "no subscription",
			mutate: func(f *fixture) {
				f.gateway.Sessions["cs_paid"].Subscription = nil
			},
			want: ErrInvalidSubscriptionID,
		},
		{
			name: "inactive subscription",
			mutate: func(f *fixture) {
				f.gateway.Subscriptions["sub_1"].Status = stripe.SubscriptionStatusIncomplete
			},
			want: ErrSubscriptionNotActive,
		},
		{
			name: "missing plan",
			mutate: func(f *fixture) {
				f.gateway.Sessions["cs_paid"].Metadata = map[string]string{}
			},
			want: ErrInvalidSessionMetadata,
		},
		{
			name: "missing anchor",
			mutate: func(f *fixture) {
				f.gateway.Subscriptions["sub_1"].BillingCycleAnchor = 0
			},
			want: ErrInvalidSubscriptionPeriod,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(models.MongoUser{SubscriptionStatus: models.SubscriptionStatusUnpaid})
			paidSession(f, "pro")
			tt.mutate(f)
			_, err := f.service.Verify(context.Background(), &f.user, "cs_paid")
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Equal(t, models.SubscriptionStatusUnpaid, f.reload(t).SubscriptionStatus)
		})
	}
}

func TestCancel(t *testing.T) {
	periodEnd := time.Now().Add(10 * 24 * time.Hour).UTC()
	f := newFixture(models.MongoUser{
		SubscriptionStatus:   models.SubscriptionStatusActive,
		StripeSubscriptionID: "sub_1",
		CurrentPeriodEnd:     &periodEnd,
	})
	f.gateway.Subscriptions["sub_1"] = &stripe.Subscription{ID: "sub_1"}

	end, err := f.service.Cancel(context.Background(), &f.user)
	require.NoError(t, err)
	assert.Equal(t, periodEnd, *end)
	assert.Equal(t, []string{"sub_1"}, f.gateway.Cancelled)

	user := f.reload(t)
	assert.Equal(t, models.SubscriptionStatusCancelled, user.SubscriptionStatus)
	assert.NotNil(t, user.SubscriptionCancelledAt)
	assert.Equal(t, "Assinatura Cancelada - ResumoTube", f.transport.Emails()[0].Subject)

	status := Status(user, time.Now())
	assert.Equal(t, models.SubscriptionStatusActive, status.SubscriptionStatus)
	assert.True(t, status.IsCancelled)

	status = Status(user, periodEnd.Add(time.Hour))
	assert.Equal(t, models.SubscriptionStatusCancelled, status.SubscriptionStatus)
}

func TestCancelWithoutSubscription(t *testing.T) {
	f := newFixture(models.MongoUser{})
	_, err := f.service.Cancel(context.Background(), &f.user)
	assert.True(t, errors.Is(err, ErrNoSubscription))
}

func TestCancelEmailFailureIsNotFatal(t *testing.T) {
	f := newFixture(models.MongoUser{StripeSubscriptionID: "sub_1"})
	f.gateway.Subscriptions["sub_1"] = &stripe.Subscription{ID: "sub_1"}
	f.transport.Err = errors.New("resend down")

	_, err := f.service.Cancel(context.Background(), &f.user)
	assert.NoError(t, err)
}

func TestQuotas(t *testing.T) {
	f := newFixture(models.MongoUser{Tier: models.BasicSubscriptionName})
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, f.db.CreateUserChannel(ctx, &models.MongoUserChannel{UserEmail: f.user.Email, ChannelHandle: string(rune('a' + i))}))
	}
	err := CheckChannelQuota(ctx, f.db, &f.user)
	assert.True(t, errors.Is(err, ErrQuotaExceeded))

	assert.NoError(t, CheckVideoQuota(ctx, f.db, &f.user))

	usage, err := GetUsage(ctx, f.db, &f.user)
	require.NoError(t, err)
	assert.Equal(t, int64(5), usage.ChannelsCount)
	assert.Equal(t, int64(5), usage.MaxChannels)
	assert.Equal(t, int64(50), usage.MaxVideosPerMonth)

	// premium allows more channels
	f.user.Tier = models.PremiumSubscriptionName
	assert.NoError(t, CheckChannelQuota(ctx, f.db, &f.user))
}
