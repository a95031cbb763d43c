package payments

import (
	"context"
	"errors"
	"fmt"
	"math"
	"resumotube/m/v2/app/config"
	"resumotube/m/v2/app/db/mongo"
	"resumotube/m/v2/app/email"
	"resumotube/m/v2/app/models"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v78"
)

var (
	ErrInvalidPlan               = errors.New("invalid plan")
	ErrNoSubscription            = errors.New("no active subscription found")
	ErrPaymentNotCompleted       = errors.New("payment not completed")
	ErrInvalidSubscriptionID     = errors.New("invalid subscription id")
	ErrSubscriptionNotActive     = errors.New("subscription not active")
	ErrInvalidSessionMetadata    = errors.New("invalid session metadata")
	ErrInvalidSubscriptionPeriod = errors.New("invalid subscription period")
	ErrSubscriptionNotUpdated    = errors.New("failed to update subscription status")
)

// Service implements the subscription flows on top of Stripe and the users collection.
type Service struct {
	DB          mongo.MongoClient
	Gateway     Gateway
	Email       email.Sender
	FrontendURL string
	Currency    string
}

func NewService(db mongo.MongoClient, gateway Gateway, sender email.Sender, cfg *config.Config) *Service {
	currency := cfg.StripeCurrency
	if currency == "" {
		currency = "brl"
	}
	return &Service{
		DB:          db,
		Gateway:     gateway,
		Email:       sender,
		FrontendURL: cfg.FrontendURL,
		Currency:    currency,
	}
}

type CheckoutResult struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// CreateCheckout starts a monthly subscription checkout for planID, creating the Stripe customer on first use.
func (s *Service) CreateCheckout(ctx context.Context, user *models.MongoUser, planID string) (*CheckoutResult, error) {
	plan, ok := models.PlanByID(planID)
	if !ok {
		return nil, fmt.Errorf("CreateCheckout: %q: %w", planID, ErrInvalidPlan)
	}

	customerID, err := s.customerID(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("CreateCheckout: %w", err)
	}

	params := &stripe.CheckoutSessionParams{
		Customer:           stripe.String(customerID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(s.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(plan.Name),
					},
					UnitAmount: stripe.Int64(int64(math.Round(plan.Price * 100))),
					Recurring: &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
						Interval: stripe.String(string(stripe.PriceRecurringIntervalMonth)),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		Mode:                stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL:          stripe.String(s.FrontendURL + "/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:           stripe.String(s.FrontendURL + "/landing.html"),
		AllowPromotionCodes: stripe.Bool(true),
	}
	params.AddMetadata(UserIDMetadata, user.ID.Hex())
	params.AddMetadata(PlanIDMetadata, string(plan.ID))

	checkout, err := s.Gateway.CreateCheckoutSession(params)
	if err != nil {
		return nil, fmt.Errorf("CreateCheckout: failed to create checkout session: %w", err)
	}
	config.CONFIG.DataDogClient.Incr("payments.checkout_created", []string{"plan:" + string(plan.ID)}, 1)
	return &CheckoutResult{SessionID: checkout.ID, URL: checkout.URL}, nil
}

func (s *Service) customerID(ctx context.Context, user *models.MongoUser) (string, error) {
	if user.StripeCustomerID != "" {
		c, err := s.Gateway.GetCustomer(user.StripeCustomerID)
		if err != nil {
			return "", fmt.Errorf("failed to get customer %s: %w", user.StripeCustomerID, err)
		}
		return c.ID, nil
	}
	c, err := s.Gateway.CreateCustomer(user.Email, user.ID.Hex())
	if err != nil {
		return "", fmt.Errorf("failed to create customer: %w", err)
	}
	if err := s.DB.UpdateUserStripeCustomerId(ctx, user.ID, c.ID); err != nil {
		return "", err
	}
	user.StripeCustomerID = c.ID
	return c.ID, nil
}

type VerifyResult struct {
	SubscriptionStatus models.SubscriptionStatus `json:"subscriptionStatus"`
	Message            string                    `json:"message"`
	PromoCode          *string                   `json:"promoCode"`
	NextBillingDate    *time.Time                `json:"nextBillingDate"`
}

// Verify activates the subscription bought in a completed checkout session.
func (s *Service) Verify(ctx context.Context, user *models.MongoUser, sessionID string) (*VerifyResult, error) {
	if user.SubscriptionStatus == models.SubscriptionStatusActive {
		var promoCode *string
		if user.PromoCode != "" {
			promoCode = &user.PromoCode
		}
		return &VerifyResult{
			SubscriptionStatus: models.SubscriptionStatusActive,
			Message:            "Subscription already active",
			PromoCode:          promoCode,
			NextBillingDate:    user.CurrentPeriodEnd,
		}, nil
	}

	checkout, err := s.Gateway.GetCheckoutSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("Verify: failed to get checkout session: %w", err)
	}
	if checkout.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		return nil, fmt.Errorf("Verify: session %s is %s: %w", sessionID, checkout.PaymentStatus, ErrPaymentNotCompleted)
	}
	if checkout.Subscription == nil || checkout.Subscription.ID == "" {
		return nil, fmt.Errorf("Verify: session %s: %w", sessionID, ErrInvalidSubscriptionID)
	}

	sub, err := s.Gateway.GetSubscription(checkout.Subscription.ID)
	if err != nil {
		return nil, fmt.Errorf("Verify: failed to get subscription: %w", err)
	}
	if sub.Status != stripe.SubscriptionStatusActive {
		return nil, fmt.Errorf("Verify: subscription %s is %s: %w", sub.ID, sub.Status, ErrSubscriptionNotActive)
	}

	planID := checkout.Metadata[PlanIDMetadata]
	plan, ok := models.PlanByID(planID)
	if planID == "" {
		return nil, fmt.Errorf("Verify: session %s: %w", sessionID, ErrInvalidSessionMetadata)
	}

	promoCode := promoCodeFromSession(checkout)

	if sub.BillingCycleAnchor <= 0 {
		return nil, fmt.Errorf("Verify: subscription %s: %w", sub.ID, ErrInvalidSubscriptionPeriod)
	}
	nextBillingDate := time.Unix(sub.BillingCycleAnchor, 0).UTC().AddDate(0, 1, 0)

	status := models.SubscriptionStatusActive
	tier := models.MongoSubscriptionName(planID)
	startDate := time.Now().UTC()
	update := mongo.SubscriptionUpdate{
		SubscriptionStatus:    &status,
		StripeSubscriptionID:  &sub.ID,
		Tier:                  &tier,
		CurrentPeriodEnd:      &nextBillingDate,
		SubscriptionStartDate: &startDate,
	}
	if promoCode != nil {
		update.PromoCode = promoCode
	}
	modified, err := s.DB.UpdateUserSubscription(ctx, user.ID, update)
	if err != nil {
		return nil, fmt.Errorf("Verify: %w", err)
	}
	if modified == 0 {
		return nil, fmt.Errorf("Verify: user %s: %w", user.ID.Hex(), ErrSubscriptionNotUpdated)
	}
	config.CONFIG.DataDogClient.Incr("payments.subscription_activated", []string{"plan:" + planID, "source:verify"}, 1)

	if !ok {
		log.Errorf("Verify: plan not found for ID: %s", planID)
	} else {
		amountPaid := plan.Price
		if checkout.AmountTotal > 0 {
			amountPaid = float64(checkout.AmountTotal) / 100
		}
		if err := s.Email.SendPaymentSuccess(ctx, user.Email, user.DisplayName(), plan.Name, amountPaid); err != nil {
			log.WithError(err).Error("Verify: failed to send payment success email")
		}
	}

	return &VerifyResult{
		SubscriptionStatus: models.SubscriptionStatusActive,
		Message:            "Subscription activated successfully",
		PromoCode:          promoCode,
		NextBillingDate:    &nextBillingDate,
	}, nil
}

func promoCodeFromSession(checkout *stripe.CheckoutSession) *string {
	if checkout.TotalDetails == nil || checkout.TotalDetails.Breakdown == nil || len(checkout.TotalDetails.Breakdown.Discounts) == 0 {
		return nil
	}
	discount := checkout.TotalDetails.Breakdown.Discounts[0].Discount
	if discount == nil {
		return nil
	}
	if discount.PromotionCode != nil && discount.PromotionCode.Code != "" {
		return &discount.PromotionCode.Code
	}
	if discount.Coupon != nil && discount.Coupon.ID != "" {
		return &discount.Coupon.ID
	}
	return nil
}

// Cancel stops renewal at the end of the paid period.
func (s *Service) Cancel(ctx context.Context, user *models.MongoUser) (*time.Time, error) {
	if user.StripeSubscriptionID == "" {
		return nil, fmt.Errorf("Cancel: user %s: %w", user.ID.Hex(), ErrNoSubscription)
	}
	if _, err := s.Gateway.CancelSubscriptionAtPeriodEnd(user.StripeSubscriptionID); err != nil {
		return nil, fmt.Errorf("Cancel: failed to cancel subscription %s: %w", user.StripeSubscriptionID, err)
	}

	status := models.SubscriptionStatusCancelled
	cancelledAt := time.Now().UTC()
	_, err := s.DB.UpdateUserSubscription(ctx, user.ID, mongo.SubscriptionUpdate{
		SubscriptionStatus:      &status,
		SubscriptionCancelledAt: &cancelledAt,
	})
	if err != nil {
		return nil, fmt.Errorf("Cancel: %w", err)
	}
	config.CONFIG.DataDogClient.Incr("payments.subscription_cancelled", []string{"source:user"}, 1)

	var periodEnd time.Time
	if user.CurrentPeriodEnd != nil {
		periodEnd = *user.CurrentPeriodEnd
	}
	if err := s.Email.SendSubscriptionCancelled(ctx, user.Email, user.DisplayName(), periodEnd); err != nil {
		log.WithError(err).Error("Cancel: failed to send cancellation email")
	}
	return user.CurrentPeriodEnd, nil
}

type StatusResult struct {
	SubscriptionStatus    models.SubscriptionStatus    `json:"subscriptionStatus"`
	Tier                  models.MongoSubscriptionName `json:"tier"`
	CurrentPeriodEnd      *time.Time                   `json:"currentPeriodEnd"`
	SubscriptionStartDate *time.Time                   `json:"subscriptionStartDate"`
	IsCancelled           bool                         `json:"isCancelled"`
}

// Status reports a cancelled subscription as active until its paid period ends.
func Status(user *models.MongoUser, now time.Time) StatusResult {
	cancelled := user.SubscriptionStatus == models.SubscriptionStatusCancelled
	status := user.SubscriptionStatus
	if cancelled && user.CurrentPeriodEnd != nil && user.CurrentPeriodEnd.After(now) {
		status = models.SubscriptionStatusActive
	}
	return StatusResult{
		SubscriptionStatus:    status,
		Tier:                  user.Tier,
		CurrentPeriodEnd:      user.CurrentPeriodEnd,
		SubscriptionStartDate: user.SubscriptionStartDate,
		IsCancelled:           cancelled,
	}
}
