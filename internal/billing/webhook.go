package billing

import (
	"context"
	"log/slog"
	"time"
)

// WebhookProcessor ingests verified provider events and is the single
// writer of subscription records. Deliveries are at-least-once, so
// every write is a single-document merge that is safe to repeat.
type WebhookProcessor struct {
	users    UserStore
	subs     SubscriptionStore
	provider PaymentProvider
	log      *slog.Logger
}

// NewWebhookProcessor creates a processor. Panics on nil dependencies.
func NewWebhookProcessor(users UserStore, subs SubscriptionStore, provider PaymentProvider, log *slog.Logger) *WebhookProcessor {
	if users == nil {
		panic("billing: UserStore is required")
	}
	if subs == nil {
		panic("billing: SubscriptionStore is required")
	}
	if provider == nil {
		panic("billing: PaymentProvider is required")
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &WebhookProcessor{users: users, subs: subs, provider: provider, log: log}
}

// HandleEvent verifies and applies one webhook delivery. Events that
// cannot be correlated to an application user are acknowledged without
// effect; store failures are returned so the provider redelivers.
func (p *WebhookProcessor) HandleEvent(ctx context.Context, payload []byte, signature string) error {
	ev, err := p.provider.ParseWebhookEvent(payload, signature)
	if err != nil {
		return err
	}

	switch ev.Type {
	case EventSubscriptionCreated:
		return p.applyCreated(ctx, ev)
	case EventSubscriptionUpdated, EventSubscriptionCanceled:
		return p.applyChanged(ctx, ev)
	case EventPaymentFailed:
		return p.applyPaymentFailed(ctx, ev)
	}

	p.log.DebugContext(ctx, "ignoring provider event", "event", ev.ProviderEventType)
	return nil
}

// applyCreated handles the checkout-completed flow. The event itself
// only carries ids, so the subscription is fetched from the provider to
// fill in status, price and period before the record is written.
func (p *WebhookProcessor) applyCreated(ctx context.Context, ev *ProviderEvent) error {
	if ev.UserID == "" || ev.SubscriptionID == "" {
		p.log.WarnContext(ctx, "subscription created event without user correlation",
			"event", ev.ProviderEventType, "subscription_id", ev.SubscriptionID)
		return nil
	}

	sub, err := p.provider.GetSubscription(ctx, ev.SubscriptionID)
	if err != nil {
		return err
	}

	fields := subscriptionFields(sub)
	fields["createdAt"] = time.Now().UTC()
	if ev.CustomerID != "" {
		fields["paymentCustomerId"] = ev.CustomerID
	}
	if err := p.subs.Merge(ctx, ev.UserID, fields); err != nil {
		return err
	}

	// Back-fill the customer id on the user record. This re-links
	// identities that were resolved through the store-outage fallback
	// and is a no-op otherwise.
	customerID, _ := fields["paymentCustomerId"].(string)
	if customerID != "" {
		if err := p.users.Merge(ctx, ev.UserID, map[string]any{"paymentCustomerId": customerID}); err != nil {
			return err
		}
	}

	p.log.InfoContext(ctx, "subscription created", "user_id", ev.UserID,
		"subscription_id", sub.ID, "status", sub.Status)
	return nil
}

func (p *WebhookProcessor) applyChanged(ctx context.Context, ev *ProviderEvent) error {
	if ev.UserID == "" {
		p.log.WarnContext(ctx, "subscription event without user correlation",
			"event", ev.ProviderEventType, "subscription_id", ev.SubscriptionID)
		return nil
	}

	fields := map[string]any{
		"status":            string(ev.Status),
		"tier":              string(ev.Status.Tier()),
		"cancelAtPeriodEnd": ev.CancelAtPeriodEnd,
	}
	if ev.SubscriptionID != "" {
		fields["paymentSubscriptionId"] = ev.SubscriptionID
	}
	if ev.CustomerID != "" {
		fields["paymentCustomerId"] = ev.CustomerID
	}
	if ev.PriceID != "" {
		fields["paymentPriceId"] = ev.PriceID
		fields["period"] = string(ev.Period)
	}
	if !ev.CurrentPeriodStart.IsZero() {
		fields["currentPeriodStart"] = ev.CurrentPeriodStart
		fields["currentPeriodEnd"] = ev.CurrentPeriodEnd
	}

	if err := p.subs.Merge(ctx, ev.UserID, fields); err != nil {
		return err
	}

	p.log.InfoContext(ctx, "subscription updated", "user_id", ev.UserID,
		"subscription_id", ev.SubscriptionID, "status", ev.Status)
	return nil
}

// applyPaymentFailed marks the subscription past due. Invoice events do
// not carry the stamped metadata, so the user id is recovered from the
// provider subscription when missing.
func (p *WebhookProcessor) applyPaymentFailed(ctx context.Context, ev *ProviderEvent) error {
	userID := ev.UserID
	if userID == "" && ev.SubscriptionID != "" {
		sub, err := p.provider.GetSubscription(ctx, ev.SubscriptionID)
		if err != nil {
			return err
		}
		userID = sub.Metadata[MetadataUserIDKey]
	}
	if userID == "" {
		p.log.WarnContext(ctx, "payment failed event without user correlation",
			"event", ev.ProviderEventType, "subscription_id", ev.SubscriptionID)
		return nil
	}

	fields := map[string]any{
		"status": string(StatusPastDue),
		"tier":   string(StatusPastDue.Tier()),
	}
	if err := p.subs.Merge(ctx, userID, fields); err != nil {
		return err
	}

	p.log.InfoContext(ctx, "subscription marked past due", "user_id", userID,
		"subscription_id", ev.SubscriptionID)
	return nil
}

// subscriptionFields flattens a provider subscription into the merge
// fields of a subscription record.
func subscriptionFields(sub *ProviderSubscription) map[string]any {
	fields := map[string]any{
		"status":                string(sub.Status),
		"tier":                  string(sub.Status.Tier()),
		"paymentSubscriptionId": sub.ID,
		"cancelAtPeriodEnd":     sub.CancelAtPeriodEnd,
	}
	if sub.CustomerID != "" {
		fields["paymentCustomerId"] = sub.CustomerID
	}
	if sub.PriceID != "" {
		fields["paymentPriceId"] = sub.PriceID
		fields["period"] = string(sub.Period)
	}
	if !sub.CurrentPeriodStart.IsZero() {
		fields["currentPeriodStart"] = sub.CurrentPeriodStart
		fields["currentPeriodEnd"] = sub.CurrentPeriodEnd
	}
	return fields
}
