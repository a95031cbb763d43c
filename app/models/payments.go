package models

type MongoSubscriptionName string

type SubscriptionStatus string

const (
	BasicSubscriptionName   MongoSubscriptionName = "basic"
	ProSubscriptionName     MongoSubscriptionName = "pro"
	PremiumSubscriptionName MongoSubscriptionName = "premium"

	SubscriptionStatusUnpaid        SubscriptionStatus = "unpaid"
	SubscriptionStatusActive        SubscriptionStatus = "active"
	SubscriptionStatusCancelled     SubscriptionStatus = "cancelled"
	SubscriptionStatusPaymentFailed SubscriptionStatus = "payment_failed"
)

type SubscriptionPlan struct {
	ID                MongoSubscriptionName `json:"id"`
	Name              string                `json:"name"`
	Price             float64               `json:"price"`
	Tier              MongoSubscriptionName `json:"tier"`
	MaxChannels       int64                 `json:"maxChannels"`
	MaxVideosPerMonth int64                 `json:"maxVideosPerMonth"`
	Features          []string              `json:"features"`
	PaymentLink       string                `json:"paymentLink"`
}

// Plans is ordered from the cheapest to the most expensive plan.
var Plans = []SubscriptionPlan{
	{
		ID:                BasicSubscriptionName,
		Name:              "Basic",
		Price:             9.99,
		Tier:              BasicSubscriptionName,
		MaxChannels:       5,
		MaxVideosPerMonth: 50,
		Features: []string{
			"Up to 5 channels",
			"50 video summaries per month",
			"Basic support",
		},
		PaymentLink: "https://buy.stripe.com/test_dRmcN7b2J7y13cm9mxcwg02",
	},
	{
		ID:                ProSubscriptionName,
		Name:              "Pro",
		Price:             19.99,
		Tier:              ProSubscriptionName,
		MaxChannels:       15,
		MaxVideosPerMonth: 200,
		Features: []string{
			"Up to 15 channels",
			"200 video summaries per month",
			"Priority support",
			"Advanced analytics",
		},
		PaymentLink: "https://buy.stripe.com/test_eVq6oJ0o55pT5kuaqBcwg01",
	},
	{
		ID:                PremiumSubscriptionName,
		Name:              "Premium",
		Price:             29.99,
		Tier:              PremiumSubscriptionName,
		MaxChannels:       50,
		MaxVideosPerMonth: 1000,
		Features: []string{
			"Up to 50 channels",
			"1000 video summaries per month",
			"24/7 priority support",
			"Advanced analytics",
			"API access",
		},
		PaymentLink: "https://buy.stripe.com/test_5kQ4gBc6NcSlfZ8cyJcwg00",
	},
}

func PlanByID(id string) (SubscriptionPlan, bool) {
	for _, plan := range Plans {
		if string(plan.ID) == id {
			return plan, true
		}
	}
	return SubscriptionPlan{}, false
}

func PlanForTier(tier MongoSubscriptionName) (SubscriptionPlan, bool) {
	for _, plan := range Plans {
		if plan.Tier == tier {
			return plan, true
		}
	}
	return SubscriptionPlan{}, false
}
