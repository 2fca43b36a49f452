package billing

import (
	"context"
	"time"
)

// MetadataUserIDKey is the metadata key that correlates provider-side
// objects (customers, checkout sessions, subscriptions) back to the
// application user that owns them. The webhook processor relies on it
// to attribute provider events.
const MetadataUserIDKey = "firebaseUserId"

// PaymentProvider abstracts the payment provider operations the billing
// core needs. The Stripe implementation is StripeProvider; tests use
// mocks. All failed remote calls surface as *ProviderError.
type PaymentProvider interface {
	// CreateCustomer creates a provider customer and returns its id.
	CreateCustomer(ctx context.Context, params CustomerParams) (string, error)

	// FindCustomersByEmail lists existing customers matching the email,
	// newest first, up to limit.
	FindCustomersByEmail(ctx context.Context, email string, limit int64) ([]Customer, error)

	// CreateCheckoutSession creates a hosted subscription checkout flow.
	CreateCheckoutSession(ctx context.Context, params CheckoutSessionParams) (*CheckoutSession, error)

	// CreateBillingPortalSession creates a hosted self-service billing
	// flow for an existing customer.
	CreateBillingPortalSession(ctx context.Context, customerID, returnURL string) (*PortalSession, error)

	// GetSubscription fetches the provider's view of a subscription.
	GetSubscription(ctx context.Context, subscriptionID string) (*ProviderSubscription, error)

	// ParseWebhookEvent verifies the webhook signature and normalizes
	// the payload into a ProviderEvent. Events the billing core does not
	// act on are returned with an empty Type.
	ParseWebhookEvent(payload []byte, signature string) (*ProviderEvent, error)
}

// CustomerParams describes a customer to create at the provider.
type CustomerParams struct {
	Email    string
	Metadata map[string]string

	// IdempotencyKey, when set, lets the provider collapse concurrent
	// identical creation attempts into a single customer.
	IdempotencyKey string
}

// Customer is the provider's representation of a payer.
type Customer struct {
	ID    string
	Email string
}

// CheckoutSessionParams describes a hosted checkout session to create.
// Metadata is stamped on both the session and the subscription it
// eventually creates.
type CheckoutSessionParams struct {
	CustomerID        string
	PriceID           string
	SuccessURL        string
	CancelURL         string
	ClientReferenceID string
	Metadata          map[string]string
}

// CheckoutSession is a short-lived hosted flow that collects payment
// and creates a subscription.
type CheckoutSession struct {
	ID  string `json:"sessionId"`
	URL string `json:"url"`
}

// PortalSession is a short-lived hosted flow for managing an existing
// subscription.
type PortalSession struct {
	URL string `json:"url"`
}

// ProviderSubscription is the normalized provider-side subscription
// state, already mapped into the billing core's vocabulary.
type ProviderSubscription struct {
	ID                 string
	CustomerID         string
	PriceID            string
	Status             Status
	Period             Period
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	CancelAtPeriodEnd  bool
	Metadata           map[string]string
}

// EventType is the normalized provider event type. Provider
// implementations map their native event names onto these.
type EventType string

const (
	EventSubscriptionCreated  EventType = "subscription_created"
	EventSubscriptionUpdated  EventType = "subscription_updated"
	EventSubscriptionCanceled EventType = "subscription_canceled"
	EventPaymentFailed        EventType = "payment_failed"
)

// ProviderEvent is a verified, normalized webhook event. UserID is the
// application user id recovered from provider metadata and may be empty
// when the provider object was not created through this system.
type ProviderEvent struct {
	Type               EventType
	ProviderEventType  string
	UserID             string
	CustomerID         string
	SubscriptionID     string
	PriceID            string
	Status             Status
	Period             Period
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	CancelAtPeriodEnd  bool
}
