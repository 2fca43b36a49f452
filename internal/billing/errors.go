package billing

import (
	"errors"
	"fmt"
)

var (
	// Request validation errors. Mapped to 400 at the HTTP boundary and
	// returned before any store or provider call is made.
	ErrMissingUserID    = errors.New("user id is required")
	ErrMissingUserEmail = errors.New("user email is required")
	ErrMissingPriceID   = errors.New("price id is required")

	// ErrUserNotFound is returned by UserStore implementations when no
	// record exists for the user id. Any other store error means the
	// store itself is unreachable.
	ErrUserNotFound = errors.New("user record not found")

	// ErrSubscriptionNotFound is returned by SubscriptionStore
	// implementations when no subscription record exists.
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrNoBillingAccount indicates the user has no linked provider
	// customer, so there is no billing history to manage.
	ErrNoBillingAccount = errors.New("no subscription found")

	// Provider configuration errors, fatal at startup.
	ErrMissingSecretKey     = errors.New("stripe secret key is required")
	ErrMissingWebhookSecret = errors.New("stripe webhook secret is required")

	// ErrWebhookVerificationFailed indicates an incoming webhook payload
	// did not carry a valid provider signature.
	ErrWebhookVerificationFailed = errors.New("webhook signature verification failed")
)

// ProviderError wraps a failed payment-provider call with the provider's
// error code. The code is safe to log and inspect; the wrapped error may
// contain provider detail and must not be leaked to clients verbatim.
type ProviderError struct {
	Op   string // provider operation, e.g. "create customer"
	Code string // provider error code, empty when the call never reached the provider
	Err  error
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("payment provider: %s failed (%s): %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("payment provider: %s failed: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
