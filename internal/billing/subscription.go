package billing

import "time"

// Status is the subscription lifecycle state, written only by the
// webhook processor. Cancellation is a status transition, never a
// record deletion.
type Status string

const (
	StatusNone     Status = "none"
	StatusTrialing Status = "trialing"
	StatusActive   Status = "active"
	StatusPastDue  Status = "past_due"
	StatusCanceled Status = "canceled"
)

// Tier is the application-facing entitlement level derived from Status.
type Tier string

const (
	TierFree Tier = "free"
	TierPro  Tier = "pro"
)

// Tier derives the entitlement level: active and trialing subscriptions
// are pro, everything else is free.
func (s Status) Tier() Tier {
	if s == StatusActive || s == StatusTrialing {
		return TierPro
	}
	return TierFree
}

// Period is the billing interval of a paid subscription.
type Period string

const (
	PeriodMonthly Period = "monthly"
	PeriodYearly  Period = "yearly"
)

// Subscription is the durable billing state of a user, keyed 1:1 by the
// application user id. Provider-side fields stay empty until a
// subscription exists.
type Subscription struct {
	UserID                string    `firestore:"-" json:"userId"`
	Status                Status    `firestore:"status" json:"status"`
	Tier                  Tier      `firestore:"tier" json:"tier"`
	PaymentCustomerID     string    `firestore:"paymentCustomerId" json:"paymentCustomerId,omitempty"`
	PaymentSubscriptionID string    `firestore:"paymentSubscriptionId" json:"paymentSubscriptionId,omitempty"`
	PaymentPriceID        string    `firestore:"paymentPriceId" json:"paymentPriceId,omitempty"`
	Period                Period    `firestore:"period" json:"period,omitempty"`
	CurrentPeriodStart    time.Time `firestore:"currentPeriodStart" json:"currentPeriodStart"`
	CurrentPeriodEnd      time.Time `firestore:"currentPeriodEnd" json:"currentPeriodEnd"`
	CancelAtPeriodEnd     bool      `firestore:"cancelAtPeriodEnd" json:"cancelAtPeriodEnd"`
	CreatedAt             time.Time `firestore:"createdAt" json:"-"`
	UpdatedAt             time.Time `firestore:"updatedAt" json:"-"`
}

func (s *Subscription) IsActive() bool {
	return s.Status == StatusActive
}

func (s *Subscription) IsTrialing() bool {
	return s.Status == StatusTrialing
}

// IsPro reports whether the subscription currently grants the paid tier.
func (s *Subscription) IsPro() bool {
	return s.Status.Tier() == TierPro
}
