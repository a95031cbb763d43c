package payments

import (
	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/checkout/session"
	"github.com/stripe/stripe-go/v78/customer"
	"github.com/stripe/stripe-go/v78/subscription"
)

const (
	UserIDMetadata = "userId"
	PlanIDMetadata = "planId"
)

// Gateway is the subset of Stripe used by the billing flows.
type Gateway interface {
	CreateCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	CreateCustomer(email string, userID string) (*stripe.Customer, error)
	GetCheckoutSession(id string) (*stripe.CheckoutSession, error)
	GetCustomer(id string) (*stripe.Customer, error)
	GetSubscription(id string) (*stripe.Subscription, error)
	CancelSubscriptionAtPeriodEnd(id string) (*stripe.Subscription, error)
}

// StripeGateway calls Stripe with the package level stripe.Key.
type StripeGateway struct{}

func (StripeGateway) CreateCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return session.New(params)
}

func (StripeGateway) CreateCustomer(email string, userID string) (*stripe.Customer, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
	}
	params.AddMetadata(UserIDMetadata, userID)
	return customer.New(params)
}

// GetCheckoutSession expands the subscription and applied discounts.
func (StripeGateway) GetCheckoutSession(id string) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.AddExpand("subscription")
	params.AddExpand("total_details.breakdown.discounts")
	return session.Get(id, params)
}

func (StripeGateway) GetCustomer(id string) (*stripe.Customer, error) {
	return customer.Get(id, nil)
}

func (StripeGateway) GetSubscription(id string) (*stripe.Subscription, error) {
	return subscription.Get(id, nil)
}

func (StripeGateway) CancelSubscriptionAtPeriodEnd(id string) (*stripe.Subscription, error) {
	return subscription.Update(id, &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(true),
	})
}
