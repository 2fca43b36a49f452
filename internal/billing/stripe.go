package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	stripe "github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"
	"github.com/stripe/stripe-go/v72/webhook"
)

// StripeConfig holds the Stripe credentials. The publishable key is
// only ever handed to the client side; the secret key and webhook
// secret stay server-side.
type StripeConfig struct {
	SecretKey      string `env:"STRIPE_SECRET_KEY,required"`
	PublishableKey string `env:"STRIPE_PUBLISHABLE_KEY"`
	WebhookSecret  string `env:"STRIPE_WEBHOOK_SECRET,required"`
}

// StripeProvider implements PaymentProvider over the official Stripe
// SDK. Each instance carries its own API client so no package-global
// key is mutated.
type StripeProvider struct {
	api           *client.API
	webhookSecret string
}

// NewStripeProvider creates a Stripe-backed PaymentProvider. Missing
// credentials fail construction; callers treat that as fatal at startup.
func NewStripeProvider(cfg StripeConfig) (*StripeProvider, error) {
	if cfg.SecretKey == "" {
		return nil, ErrMissingSecretKey
	}
	if cfg.WebhookSecret == "" {
		return nil, ErrMissingWebhookSecret
	}

	api := &client.API{}
	api.Init(cfg.SecretKey, nil)

	return &StripeProvider{api: api, webhookSecret: cfg.WebhookSecret}, nil
}

func (p *StripeProvider) CreateCustomer(ctx context.Context, params CustomerParams) (string, error) {
	cp := &stripe.CustomerParams{
		Params: stripe.Params{Context: ctx},
		Email:  stripe.String(params.Email),
	}
	for k, v := range params.Metadata {
		cp.AddMetadata(k, v)
	}
	if params.IdempotencyKey != "" {
		cp.IdempotencyKey = stripe.String(params.IdempotencyKey)
	}

	cust, err := p.api.Customers.New(cp)
	if err != nil {
		return "", providerErr("create customer", err)
	}
	return cust.ID, nil
}

func (p *StripeProvider) FindCustomersByEmail(ctx context.Context, email string, limit int64) ([]Customer, error) {
	lp := &stripe.CustomerListParams{
		ListParams: stripe.ListParams{Context: ctx, Limit: stripe.Int64(limit)},
		Email:      stripe.String(email),
	}

	iter := p.api.Customers.List(lp)
	var customers []Customer
	for iter.Next() {
		c := iter.Customer()
		customers = append(customers, Customer{ID: c.ID, Email: c.Email})
	}
	if err := iter.Err(); err != nil {
		return nil, providerErr("list customers", err)
	}
	return customers, nil
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, params CheckoutSessionParams) (*CheckoutSession, error) {
	sp := &stripe.CheckoutSessionParams{
		Params:              stripe.Params{Context: ctx},
		Mode:                stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:            stripe.String(params.CustomerID),
		PaymentMethodTypes:  stripe.StringSlice([]string{"card"}),
		AllowPromotionCodes: stripe.Bool(true),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Price:    stripe.String(params.PriceID),
			Quantity: stripe.Int64(1),
		}},
		SuccessURL: stripe.String(params.SuccessURL),
		CancelURL:  stripe.String(params.CancelURL),
	}
	if params.ClientReferenceID != "" {
		sp.ClientReferenceID = stripe.String(params.ClientReferenceID)
	}
	if len(params.Metadata) > 0 {
		// Stamped on the session for checkout.session.completed and on
		// the subscription for the customer.subscription.* events.
		sp.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: params.Metadata,
		}
		for k, v := range params.Metadata {
			sp.AddMetadata(k, v)
		}
	}

	sess, err := p.api.CheckoutSessions.New(sp)
	if err != nil {
		return nil, providerErr("create checkout session", err)
	}
	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

func (p *StripeProvider) CreateBillingPortalSession(ctx context.Context, customerID, returnURL string) (*PortalSession, error) {
	ps := &stripe.BillingPortalSessionParams{
		Params:    stripe.Params{Context: ctx},
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}

	sess, err := p.api.BillingPortalSessions.New(ps)
	if err != nil {
		return nil, providerErr("create billing portal session", err)
	}
	return &PortalSession{URL: sess.URL}, nil
}

func (p *StripeProvider) GetSubscription(ctx context.Context, subscriptionID string) (*ProviderSubscription, error) {
	sub, err := p.api.Subscriptions.Get(subscriptionID, &stripe.SubscriptionParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return nil, providerErr("get subscription", err)
	}
	return toProviderSubscription(sub), nil
}

// ParseWebhookEvent verifies the Stripe-Signature header and maps the
// event onto the billing core's normalized vocabulary. Events outside
// the handled set come back with an empty Type so the processor can
// acknowledge them without acting.
func (p *StripeProvider) ParseWebhookEvent(payload []byte, signature string) (*ProviderEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, p.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWebhookVerificationFailed, err)
	}

	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("decode checkout session event: %w", err)
		}
		ev := &ProviderEvent{
			Type:              EventSubscriptionCreated,
			ProviderEventType: event.Type,
			UserID:            sess.ClientReferenceID,
		}
		if ev.UserID == "" {
			ev.UserID = sess.Metadata[MetadataUserIDKey]
		}
		if sess.Customer != nil {
			ev.CustomerID = sess.Customer.ID
		}
		if sess.Subscription != nil {
			ev.SubscriptionID = sess.Subscription.ID
		}
		return ev, nil

	case "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("decode subscription event: %w", err)
		}
		ps := toProviderSubscription(&sub)
		ev := &ProviderEvent{
			Type:               EventSubscriptionUpdated,
			ProviderEventType:  event.Type,
			UserID:             sub.Metadata[MetadataUserIDKey],
			CustomerID:         ps.CustomerID,
			SubscriptionID:     ps.ID,
			PriceID:            ps.PriceID,
			Status:             ps.Status,
			Period:             ps.Period,
			CurrentPeriodStart: ps.CurrentPeriodStart,
			CurrentPeriodEnd:   ps.CurrentPeriodEnd,
			CancelAtPeriodEnd:  ps.CancelAtPeriodEnd,
		}
		if event.Type == "customer.subscription.deleted" {
			ev.Type = EventSubscriptionCanceled
			ev.Status = StatusCanceled
		}
		return ev, nil

	case "invoice.payment_failed":
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return nil, fmt.Errorf("decode invoice event: %w", err)
		}
		ev := &ProviderEvent{
			Type:              EventPaymentFailed,
			ProviderEventType: event.Type,
		}
		if inv.Customer != nil {
			ev.CustomerID = inv.Customer.ID
		}
		if inv.Subscription != nil {
			ev.SubscriptionID = inv.Subscription.ID
			ev.UserID = inv.Subscription.Metadata[MetadataUserIDKey]
		}
		return ev, nil
	}

	return &ProviderEvent{ProviderEventType: event.Type}, nil
}

func toProviderSubscription(sub *stripe.Subscription) *ProviderSubscription {
	ps := &ProviderSubscription{
		ID:                 sub.ID,
		Status:             mapSubscriptionStatus(sub.Status),
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
		CurrentPeriodStart: time.Unix(sub.CurrentPeriodStart, 0).UTC(),
		CurrentPeriodEnd:   time.Unix(sub.CurrentPeriodEnd, 0).UTC(),
		Metadata:           sub.Metadata,
	}
	if sub.Customer != nil {
		ps.CustomerID = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		price := sub.Items.Data[0].Price
		ps.PriceID = price.ID
		if price.Recurring != nil {
			ps.Period = mapPriceInterval(price.Recurring.Interval)
		}
	}
	return ps
}

func mapSubscriptionStatus(s stripe.SubscriptionStatus) Status {
	switch s {
	case stripe.SubscriptionStatusTrialing:
		return StatusTrialing
	case stripe.SubscriptionStatusActive:
		return StatusActive
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid:
		return StatusPastDue
	case stripe.SubscriptionStatusCanceled, stripe.SubscriptionStatusIncompleteExpired:
		return StatusCanceled
	}
	return StatusNone
}

func mapPriceInterval(i stripe.PriceRecurringInterval) Period {
	switch i {
	case stripe.PriceRecurringIntervalMonth:
		return PeriodMonthly
	case stripe.PriceRecurringIntervalYear:
		return PeriodYearly
	}
	return ""
}

// providerErr wraps a Stripe SDK error, lifting the provider's error
// code out of the SDK type so callers never depend on it.
func providerErr(op string, err error) error {
	var sErr *stripe.Error
	if errors.As(err, &sErr) {
		return &ProviderError{Op: op, Code: string(sErr.Code), Err: err}
	}
	return &ProviderError{Op: op, Err: err}
}
