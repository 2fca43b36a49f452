package billing

import (
	"context"
	"errors"
	"log/slog"
)

// ResolutionSource tags how a customer id was obtained, so callers and
// tests can tell the degraded fallback path apart from the primary one.
type ResolutionSource string

const (
	// ResolutionSourceStore means the id came from the user record.
	ResolutionSourceStore ResolutionSource = "store"
	// ResolutionSourceCreated means a customer was created and the id
	// persisted back to the user record.
	ResolutionSourceCreated ResolutionSource = "created"
	// ResolutionSourceFallback means the store was unreachable and the
	// id was derived from the provider alone, without persistence.
	ResolutionSourceFallback ResolutionSource = "fallback"
)

// Resolution is the outcome of resolving a user's provider customer id.
type Resolution struct {
	CustomerID string
	Source     ResolutionSource
}

// ViaFallback reports whether the id was resolved on the degraded path
// and is therefore not persisted in the store.
func (r Resolution) ViaFallback() bool { return r.Source == ResolutionSourceFallback }

// CustomerResolver produces a valid provider customer id for a
// (userID, email) pair, creating one if none exists. Store failures are
// never returned to the caller; the resolver degrades to the provider
// as fallback source of truth. Provider failures propagate, since there
// is no further fallback.
type CustomerResolver struct {
	users    UserStore
	provider PaymentProvider
	log      *slog.Logger
}

// NewCustomerResolver creates a resolver. Panics on nil dependencies to
// fail fast during initialization.
func NewCustomerResolver(users UserStore, provider PaymentProvider, log *slog.Logger) *CustomerResolver {
	if users == nil {
		panic("billing: UserStore is required")
	}
	if provider == nil {
		panic("billing: PaymentProvider is required")
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &CustomerResolver{users: users, provider: provider, log: log}
}

// Resolve returns the user's provider customer id. Once a customer id
// has been persisted, the store is the source of truth and every later
// call returns that id. Within one call the store read happens before
// customer creation, which happens before the store write.
func (r *CustomerResolver) Resolve(ctx context.Context, userID, email string) (Resolution, error) {
	if userID == "" {
		return Resolution{}, ErrMissingUserID
	}
	if email == "" {
		return Resolution{}, ErrMissingUserEmail
	}

	user, err := r.users.Get(ctx, userID)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		r.log.WarnContext(ctx, "user store unreachable, resolving customer via provider",
			"user_id", userID, "error", err)
		return r.resolveViaProvider(ctx, userID, email)
	}

	if user != nil && user.PaymentCustomerID != "" {
		return Resolution{CustomerID: user.PaymentCustomerID, Source: ResolutionSourceStore}, nil
	}

	// The idempotency key collapses concurrent first-time resolutions
	// for the same user into a single provider customer.
	customerID, err := r.provider.CreateCustomer(ctx, CustomerParams{
		Email:          email,
		Metadata:       map[string]string{MetadataUserIDKey: userID},
		IdempotencyKey: "customer-create-" + userID,
	})
	if err != nil {
		return Resolution{}, err
	}

	fields := map[string]any{
		"paymentCustomerId": customerID,
		"email":             email,
	}
	if err := r.users.Merge(ctx, userID, fields); err != nil {
		// The store went down between the read and the write. The email
		// lookup below finds the customer created above, so the id is
		// still handed back; the next successful resolution re-links it.
		r.log.WarnContext(ctx, "persisting customer id failed, store degraded",
			"user_id", userID, "error", err)
		return r.resolveViaProvider(ctx, userID, email)
	}

	return Resolution{CustomerID: customerID, Source: ResolutionSourceCreated}, nil
}

// resolveViaProvider is the degraded path: the provider is queried by
// email, which is expected unique per paying user. The resolved id is
// intentionally not persisted since the store is assumed down.
func (r *CustomerResolver) resolveViaProvider(ctx context.Context, userID, email string) (Resolution, error) {
	existing, err := r.provider.FindCustomersByEmail(ctx, email, 1)
	if err != nil {
		return Resolution{}, err
	}
	if len(existing) > 0 {
		return Resolution{CustomerID: existing[0].ID, Source: ResolutionSourceFallback}, nil
	}

	customerID, err := r.provider.CreateCustomer(ctx, CustomerParams{
		Email:    email,
		Metadata: map[string]string{MetadataUserIDKey: userID},
	})
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{CustomerID: customerID, Source: ResolutionSourceFallback}, nil
}
