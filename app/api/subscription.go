package api

import (
	"errors"
	"net/http"
	"resumotube/m/v2/app/db/mongo"
	"resumotube/m/v2/app/models"
	"resumotube/m/v2/app/payments"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

type cancelResponse struct {
	Message          string     `json:"message"`
	CurrentPeriodEnd *time.Time `json:"currentPeriodEnd"`
}

func (s *Server) Plans(ctx *fasthttp.RequestCtx) {
	writeJSON(ctx, http.StatusOK, models.Plans)
}

func (s *Server) CreateCheckout(ctx *fasthttp.RequestCtx) {
	var req struct {
		PlanID string `json:"planId"`
	}
	if !readJSON(ctx, &req) {
		return
	}
	c, cancel := s.requestContext(ctx)
	defer cancel()

	user, ok := s.currentUser(c, ctx)
	if !ok {
		return
	}
	checkout, err := s.Payments.CreateCheckout(c, user, req.PlanID)
	if errors.Is(err, payments.ErrInvalidPlan) {
		writeError(ctx, http.StatusBadRequest, "Invalid plan")
		return
	}
	if err != nil {
		log.WithError(err).Errorf("CreateCheckout: failed for %s", user.Email)
		writeError(ctx, http.StatusInternalServerError, "Error creating checkout session")
		return
	}
	writeJSON(ctx, http.StatusOK, checkout)
}

// verifyErrors maps verification failures to their response.
var verifyErrors = []struct {
	err     error
	status  int
	message string
}{
	{payments.ErrPaymentNotCompleted, http.StatusBadRequest, "Payment not completed"},
	{payments.ErrInvalidSubscriptionID, http.StatusBadRequest, "Invalid subscription ID"},
	{payments.ErrSubscriptionNotActive, http.StatusBadRequest, "Subscription not active"},
	{payments.ErrInvalidSessionMetadata, http.StatusBadRequest, "Invalid session metadata"},
	{payments.ErrInvalidSubscriptionPeriod, http.StatusInternalServerError, "Invalid subscription period"},
	{payments.ErrSubscriptionNotUpdated, http.StatusInternalServerError, "Failed to update subscription status"},
}

func (s *Server) VerifySubscription(ctx *fasthttp.RequestCtx) {
	var req struct {
		SessionID string `json:"sessionId"`
	}
	if !readJSON(ctx, &req) {
		return
	}
	c, cancel := s.requestContext(ctx)
	defer cancel()

	user, ok := s.currentUser(c, ctx)
	if !ok {
		return
	}
	result, err := s.Payments.Verify(c, user, req.SessionID)
	if err != nil {
		for _, e := range verifyErrors {
			if errors.Is(err, e.err) {
				log.WithError(err).Warnf("VerifySubscription: rejected for %s", user.Email)
				writeError(ctx, e.status, e.message)
				return
			}
		}
		log.WithError(err).Errorf("VerifySubscription: failed for %s", user.Email)
		writeError(ctx, http.StatusInternalServerError, "Error verifying subscription")
		return
	}
	writeJSON(ctx, http.StatusOK, result)
}

func (s *Server) SubscriptionStatus(ctx *fasthttp.RequestCtx) {
	c, cancel := s.requestContext(ctx)
	defer cancel()

	user, ok := s.currentUser(c, ctx)
	if !ok {
		return
	}
	writeJSON(ctx, http.StatusOK, payments.Status(user, s.Now()))
}

func (s *Server) CancelSubscription(ctx *fasthttp.RequestCtx) {
	c, cancel := s.requestContext(ctx)
	defer cancel()

	user, ok := s.currentUser(c, ctx)
	if !ok {
		return
	}
	periodEnd, err := s.Payments.Cancel(c, user)
	if errors.Is(err, payments.ErrNoSubscription) {
		writeError(ctx, http.StatusBadRequest, "No active subscription found")
		return
	}
	if err != nil {
		log.WithError(err).Errorf("CancelSubscription: failed for %s", user.Email)
		writeError(ctx, http.StatusInternalServerError, "Failed to cancel subscription")
		return
	}
	writeJSON(ctx, http.StatusOK, cancelResponse{
		Message:          "Subscription cancelled successfully",
		CurrentPeriodEnd: periodEnd,
	})
}

func (s *Server) AccountUsage(ctx *fasthttp.RequestCtx) {
	c, cancel := s.requestContext(ctx)
	defer cancel()

	user, ok := s.currentUser(c, ctx)
	if !ok {
		return
	}
	usage, err := payments.GetUsage(c, s.DB, user)
	if errors.Is(err, mongo.ErrNotFound) {
		writeError(ctx, http.StatusNotFound, "Plan not found")
		return
	}
	if err != nil {
		log.WithError(err).Errorf("AccountUsage: failed for %s", user.Email)
		writeError(ctx, http.StatusInternalServerError, "Failed to get usage statistics")
		return
	}
	writeJSON(ctx, http.StatusOK, usage)
}
