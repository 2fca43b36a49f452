// Package billing links application users to payment-provider customer
// records and manages the subscription lifecycle around hosted checkout
// and billing-portal sessions.
//
// The package keeps two independently-owned systems in agreement: the
// document store (the source of truth for the user's customer id once
// written) and the payment provider (the fallback source of truth when
// the store is unreachable). CustomerResolver implements that
// reconciliation policy, CheckoutService and PortalService mint hosted
// provider sessions on top of it, and WebhookProcessor is the single
// writer of the subscription record, driven by provider events.
//
// All provider access goes through the PaymentProvider interface; the
// Stripe implementation lives in stripe.go. Persistence goes through
// UserStore and SubscriptionStore, implemented by internal/firestore.
package billing
