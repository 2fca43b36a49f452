package billing

import "context"

// UserStore persists user records keyed by the application user id.
type UserStore interface {
	// Get retrieves a user record. Returns ErrUserNotFound when no
	// document exists; any other error means the store is unreachable.
	Get(ctx context.Context, userID string) (*User, error)

	// Merge writes the given fields into the user document, creating it
	// if absent and preserving unrelated fields. Implementations stamp
	// updatedAt on every merge.
	Merge(ctx context.Context, userID string, fields map[string]any) error
}

// SubscriptionStore persists subscription records keyed by the
// application user id (one subscription per user). The webhook
// processor is the only writer; services read.
type SubscriptionStore interface {
	// Get retrieves a subscription record. Returns
	// ErrSubscriptionNotFound when no document exists.
	Get(ctx context.Context, userID string) (*Subscription, error)

	// Merge writes the given fields into the subscription document with
	// merge semantics, stamping updatedAt.
	Merge(ctx context.Context, userID string, fields map[string]any) error
}
