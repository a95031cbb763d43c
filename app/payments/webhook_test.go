package payments

import (
	"fmt"
	"net/http"
	"resumotube/m/v2/app/models"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"
	"github.com/valyala/fasthttp"
)

func webhookRequest(t *testing.T, payload []byte, secret string) *fasthttp.RequestCtx {
	t.Helper()
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(http.MethodPost)
	ctx.Request.SetBody(payload)
	if secret != "" {
		signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
			Payload:   payload,
			Secret:    secret,
			Timestamp: time.Now(),
		})
		ctx.Request.Header.Set("Stripe-Signature", signed.Header)
	}
	return ctx
}

func event(eventType string, object string) []byte {
	return []byte(fmt.Sprintf(`{"id":"evt_test","object":"event","type":%q,"data":{"object":%s}}`, eventType, object))
}

func TestStripeWebhookMissingSignature(t *testing.T) {
	f := newFixture(models.MongoUser{})
	ctx := webhookRequest(t, event("invoice.created", `{}`), "")
	f.service.StripeWebhook(ctx)
	assert.Equal(t, http.StatusBadRequest, ctx.Response.StatusCode())
	assert.JSONEq(t, `{"error":"Missing webhook signature or secret"}`, string(ctx.Response.Body()))
}

func TestStripeWebhookBadSignature(t *testing.T) {
	f := newFixture(models.MongoUser{})
	ctx := webhookRequest(t, event("invoice.created", `{}`), "whsec_other")
	f.service.StripeWebhook(ctx)
	assert.Equal(t, http.StatusBadRequest, ctx.Response.StatusCode())
	assert.JSONEq(t, `{"error":"Webhook signature verification failed"}`, string(ctx.Response.Body()))
}

func TestStripeWebhookUnhandledEvent(t *testing.T) {
	f := newFixture(models.MongoUser{})
	ctx := webhookRequest(t, event("invoice.created", `{}`), "whsec_test")
	f.service.StripeWebhook(ctx)
	assert.Equal(t, http.StatusOK, ctx.Response.StatusCode())
	assert.JSONEq(t, `{"received":true}`, string(ctx.Response.Body()))
}

func TestStripeWebhookCheckoutCompleted(t *testing.T) {
	f := newFixture(models.MongoUser{Tier: models.BasicSubscriptionName, SubscriptionStatus: models.SubscriptionStatusUnpaid})
	periodEnd := time.Date(2030, 5, 1, 0, 0, 0, 0, time.UTC)
	f.gateway.Subscriptions["sub_1"] = &stripe.Subscription{
		ID:               "sub_1",
		Status:           stripe.SubscriptionStatusActive,
		CurrentPeriodEnd: periodEnd.Unix(),
	}
	session := fmt.Sprintf(`{"id":"cs_1","object":"checkout.session","subscription":"sub_1","amount_total":1999,"metadata":{"userId":%q,"planId":"premium"}}`, f.user.ID.Hex())

	ctx := webhookRequest(t, event("checkout.session.completed", session), "whsec_test")
	f.service.StripeWebhook(ctx)
	require.Equal(t, http.StatusOK, ctx.Response.StatusCode(), string(ctx.Response.Body()))

	user := f.reload(t)
	assert.Equal(t, models.PremiumSubscriptionName, user.Tier)
	assert.Equal(t, models.SubscriptionStatusActive, user.SubscriptionStatus)
	assert.Equal(t, "sub_1", user.StripeSubscriptionID)
	require.NotNil(t, user.CurrentPeriodEnd)
	assert.Equal(t, periodEnd, *user.CurrentPeriodEnd)
	assert.Equal(t, "Pagamento Confirmado - ResumoTube", f.transport.Emails()[0].Subject)
}

func TestStripeWebhookCheckoutUnknownUser(t *testing.T) {
	f := newFixture(models.MongoUser{})
	session := `{"id":"cs_1","object":"checkout.session","subscription":"sub_1","metadata":{"userId":"000000000000000000000000"}}`
	ctx := webhookRequest(t, event("checkout.session.completed", session), "whsec_test")
	f.service.StripeWebhook(ctx)
	assert.Equal(t, http.StatusInternalServerError, ctx.Response.StatusCode())
	assert.JSONEq(t, `{"error":"Webhook processing failed"}`, string(ctx.Response.Body()))
}

func TestStripeWebhookSubscriptionDeleted(t *testing.T) {
	f := newFixture(models.MongoUser{
		Tier:                 models.ProSubscriptionName,
		SubscriptionStatus:   models.SubscriptionStatusActive,
		StripeSubscriptionID: "sub_1",
	})
	ctx := webhookRequest(t, event("customer.subscription.deleted", `{"id":"sub_1","object":"subscription"}`), "whsec_test")
	f.service.StripeWebhook(ctx)
	require.Equal(t, http.StatusOK, ctx.Response.StatusCode())

	user := f.reload(t)
	assert.Equal(t, models.SubscriptionStatusCancelled, user.SubscriptionStatus)
	assert.Equal(t, models.BasicSubscriptionName, user.Tier)
	assert.Len(t, f.transport.Emails(), 1)
}

func TestStripeWebhookPaymentFailed(t *testing.T) {
	f := newFixture(models.MongoUser{SubscriptionStatus: models.SubscriptionStatusActive, StripeSubscriptionID: "sub_1"})
	ctx := webhookRequest(t, event("invoice.payment_failed", `{"id":"in_1","object":"invoice","subscription":"sub_1"}`), "whsec_test")
	f.service.StripeWebhook(ctx)
	require.Equal(t, http.StatusOK, ctx.Response.StatusCode())

	assert.Equal(t, models.SubscriptionStatusPaymentFailed, f.reload(t).SubscriptionStatus)
	assert.Equal(t, "Falha no Pagamento - ResumoTube", f.transport.Emails()[0].Subject)
}

func TestStripeWebhookPaymentFailedUnknownSubscription(t *testing.T) {
	f := newFixture(models.MongoUser{})
	ctx := webhookRequest(t, event("invoice.payment_failed", `{"id":"in_1","object":"invoice","subscription":"sub_missing"}`), "whsec_test")
	f.service.StripeWebhook(ctx)
	assert.Equal(t, http.StatusOK, ctx.Response.StatusCode())
	assert.Empty(t, f.transport.Emails())
}
