package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"resumotube/m/v2/app/config"
	"resumotube/m/v2/app/db/mongo"
	"resumotube/m/v2/app/models"
	"resumotube/m/v2/app/util"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"
	"github.com/valyala/fasthttp"
)

const WEBHOOK_TIMEOUT = 30 * time.Second

// StripeWebhook verifies the Stripe signature and applies the event to the user.
func (s *Service) StripeWebhook(ctx *fasthttp.RequestCtx) {
	payload := ctx.Request.Body()
	signatureHeader := string(ctx.Request.Header.Peek("Stripe-Signature"))
	endpointSecret := config.CONFIG.StripeWebhookSecret

	log.WithField("signature", util.Mask(signatureHeader, 8)).Info("StripeWebhook: received webhook")

	if signatureHeader == "" || endpointSecret == "" {
		log.Error("StripeWebhook: missing webhook signature or secret")
		writeError(ctx, http.StatusBadRequest, "Missing webhook signature or secret")
		return
	}

	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, endpointSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		log.Errorf("StripeWebhook: signature verification failed. %v", err)
		writeError(ctx, http.StatusBadRequest, "Webhook signature verification failed")
		return
	}
	config.CONFIG.DataDogClient.Incr("stripe.webhook", []string{"event_type:" + string(event.Type)}, 1)

	eventCtx, cancel := context.WithTimeout(context.Background(), WEBHOOK_TIMEOUT)
	defer cancel()
	if err := s.HandleEvent(eventCtx, event); err != nil {
		log.WithError(err).WithField("event_id", event.ID).Errorf("StripeWebhook: failed to process %s", event.Type)
		config.CONFIG.DataDogClient.Incr("stripe.webhook_failed", []string{"event_type:" + string(event.Type)}, 1)
		writeError(ctx, http.StatusInternalServerError, "Webhook processing failed")
		return
	}

	ctx.SetContentType("application/json")
	ctx.SetStatusCode(http.StatusOK)
	_, _ = ctx.WriteString(`{"received":true}`)
}

func writeError(ctx *fasthttp.RequestCtx, status int, message string) {
	body, _ := json.Marshal(map[string]string{"error": message})
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(status)
	ctx.SetBody(body)
}

// HandleEvent applies a verified Stripe event. Unknown event types are logged and ignored.
func (s *Service) HandleEvent(ctx context.Context, event stripe.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		var checkout stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &checkout); err != nil {
			return fmt.Errorf("HandleEvent: failed to parse %s: %w", event.Type, err)
		}
		return s.handleCheckoutSessionCompleted(ctx, &checkout)
	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("HandleEvent: failed to parse %s: %w", event.Type, err)
		}
		return s.handleSubscriptionDeleted(ctx, &sub)
	case "invoice.payment_failed":
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			return fmt.Errorf("HandleEvent: failed to parse %s: %w", event.Type, err)
		}
		return s.handlePaymentFailed(ctx, &invoice)
	default:
		log.Infof("HandleEvent: unhandled Stripe event type: %s", event.Type)
		return nil
	}
}

func (s *Service) handleCheckoutSessionCompleted(ctx context.Context, checkout *stripe.CheckoutSession) error {
	userID := checkout.Metadata[UserIDMetadata]
	log.WithFields(log.Fields{"session_id": checkout.ID, "user_id": userID}).Info("processing checkout session completion")
	if userID == "" {
		return errors.New("handleCheckoutSessionCompleted: no userId in session metadata")
	}
	user, err := s.DB.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("handleCheckoutSessionCompleted: %w", err)
	}
	if checkout.Subscription == nil || checkout.Subscription.ID == "" {
		return fmt.Errorf("handleCheckoutSessionCompleted: session %s: %w", checkout.ID, ErrInvalidSubscriptionID)
	}
	sub, err := s.Gateway.GetSubscription(checkout.Subscription.ID)
	if err != nil {
		return fmt.Errorf("handleCheckoutSessionCompleted: failed to get subscription: %w", err)
	}

	tier := tierForSubscription(sub, checkout.Metadata[PlanIDMetadata])
	status := models.SubscriptionStatusActive
	update := mongo.SubscriptionUpdate{
		Tier:                 &tier,
		SubscriptionStatus:   &status,
		StripeSubscriptionID: &sub.ID,
	}
	if sub.CurrentPeriodEnd > 0 {
		periodEnd := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		update.CurrentPeriodEnd = &periodEnd
	}
	if _, err := s.DB.UpdateUserSubscription(ctx, user.ID, update); err != nil {
		return fmt.Errorf("handleCheckoutSessionCompleted: %w", err)
	}
	log.WithFields(log.Fields{"user_id": userID, "subscription_id": sub.ID, "tier": tier}).Info("subscription activated successfully")
	config.CONFIG.DataDogClient.Incr("payments.subscription_activated", []string{"plan:" + string(tier), "source:webhook"}, 1)

	planName := "Subscription"
	if plan, ok := models.PlanForTier(tier); ok {
		planName = plan.Name
	}
	amount := float64(checkout.AmountTotal) / 100
	if err := s.Email.SendPaymentSuccess(ctx, user.Email, user.DisplayName(), planName, amount); err != nil {
		log.WithError(err).Error("handleCheckoutSessionCompleted: failed to send payment success email")
	}
	return nil
}

// tierForSubscription prefers the price nickname, then the plan in the session metadata.
func tierForSubscription(sub *stripe.Subscription, planID string) models.MongoSubscriptionName {
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		nickname := models.MongoSubscriptionName(sub.Items.Data[0].Price.Nickname)
		if _, ok := models.PlanForTier(nickname); ok {
			return nickname
		}
	}
	if plan, ok := models.PlanByID(planID); ok {
		return plan.Tier
	}
	return models.BasicSubscriptionName
}

func (s *Service) handleSubscriptionDeleted(ctx context.Context, sub *stripe.Subscription) error {
	user, err := s.DB.GetUserBySubscriptionID(ctx, sub.ID)
	if err != nil {
		log.WithError(err).Warnf("handleSubscriptionDeleted: no user for subscription %s", sub.ID)
		return nil
	}
	status := models.SubscriptionStatusCancelled
	tier := models.BasicSubscriptionName
	if _, err := s.DB.UpdateUserSubscription(ctx, user.ID, mongo.SubscriptionUpdate{
		SubscriptionStatus: &status,
		Tier:               &tier,
	}); err != nil {
		return fmt.Errorf("handleSubscriptionDeleted: %w", err)
	}
	log.WithFields(log.Fields{"user_id": user.ID.Hex(), "email": user.Email}).Info("subscription cancelled successfully")
	config.CONFIG.DataDogClient.Incr("payments.subscription_cancelled", []string{"source:webhook"}, 1)

	var periodEnd time.Time
	if sub.CurrentPeriodEnd > 0 {
		periodEnd = time.Unix(sub.CurrentPeriodEnd, 0).UTC()
	}
	if err := s.Email.SendSubscriptionCancelled(ctx, user.Email, user.DisplayName(), periodEnd); err != nil {
		log.WithError(err).Error("handleSubscriptionDeleted: failed to send cancellation email")
	}
	return nil
}

func (s *Service) handlePaymentFailed(ctx context.Context, invoice *stripe.Invoice) error {
	if invoice.Subscription == nil || invoice.Subscription.ID == "" {
		log.Warnf("handlePaymentFailed: invoice %s has no subscription", invoice.ID)
		return nil
	}
	user, err := s.DB.GetUserBySubscriptionID(ctx, invoice.Subscription.ID)
	if err != nil {
		log.WithError(err).Warnf("handlePaymentFailed: no user for subscription %s", invoice.Subscription.ID)
		return nil
	}
	status := models.SubscriptionStatusPaymentFailed
	if _, err := s.DB.UpdateUserSubscription(ctx, user.ID, mongo.SubscriptionUpdate{
		SubscriptionStatus: &status,
	}); err != nil {
		return fmt.Errorf("handlePaymentFailed: %w", err)
	}
	log.WithFields(log.Fields{"user_id": user.ID.Hex(), "email": user.Email}).Info("updated user subscription status to payment_failed")
	config.CONFIG.DataDogClient.Incr("payments.payment_failed", nil, 1)

	if err := s.Email.SendPaymentFailed(ctx, user.Email, user.DisplayName()); err != nil {
		log.WithError(err).Error("handlePaymentFailed: failed to send payment failed email")
	}
	return nil
}
