package billing

import (
	"context"
	"errors"
	"fmt"
)

// PortalService mints hosted billing-portal sessions for users that
// already have a linked provider customer. Unlike checkout it never
// creates a customer: a portal session is only meaningful for users
// with billing history.
type PortalService struct {
	users    UserStore
	provider PaymentProvider
	baseURL  string
}

// NewPortalService creates a portal service. Panics on nil dependencies.
func NewPortalService(users UserStore, provider PaymentProvider, baseURL string) *PortalService {
	if users == nil {
		panic("billing: UserStore is required")
	}
	if provider == nil {
		panic("billing: PaymentProvider is required")
	}
	return &PortalService{users: users, provider: provider, baseURL: baseURL}
}

// Open creates a billing-portal session for the user. Returns
// ErrNoBillingAccount when the user has no linked customer id. Store
// failures surface to the caller: without the store there is no safe
// way to infer billing identity, and fabricating a customer for a
// portal session would be incorrect.
func (s *PortalService) Open(ctx context.Context, userID, originURL string) (*PortalSession, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}

	user, err := s.users.Get(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrNoBillingAccount
	}
	if err != nil {
		return nil, fmt.Errorf("read user record: %w", err)
	}
	if user.PaymentCustomerID == "" {
		return nil, ErrNoBillingAccount
	}

	return s.provider.CreateBillingPortalSession(ctx, user.PaymentCustomerID, redirectBase(originURL, s.baseURL))
}
