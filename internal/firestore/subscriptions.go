package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/keepcase/billing/internal/billing"
)

const subscriptionsCollection = "subscriptions"

// SubscriptionStore implements billing.SubscriptionStore on a Firestore
// collection keyed 1:1 by the application user id.
type SubscriptionStore struct {
	client *firestore.Client
}

var _ billing.SubscriptionStore = (*SubscriptionStore)(nil)

func NewSubscriptionStore(client *firestore.Client) *SubscriptionStore {
	if client == nil {
		panic("firestore: client is required")
	}
	return &SubscriptionStore{client: client}
}

func (s *SubscriptionStore) Get(ctx context.Context, userID string) (*billing.Subscription, error) {
	snap, err := s.client.Collection(subscriptionsCollection).Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, billing.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("get subscription %q: %w", userID, err)
	}

	var sub billing.Subscription
	if err := snap.DataTo(&sub); err != nil {
		return nil, fmt.Errorf("decode subscription %q: %w", userID, err)
	}
	sub.UserID = snap.Ref.ID
	return &sub, nil
}

// Merge writes the fields into the subscription document with merge
// semantics, stamping updatedAt server-side. Individual merges are
// atomic at the storage layer, which is the only ordering guarantee
// concurrent webhook deliveries get.
func (s *SubscriptionStore) Merge(ctx context.Context, userID string, fields map[string]any) error {
	data := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		data[k] = v
	}
	data["updatedAt"] = firestore.ServerTimestamp

	if _, err := s.client.Collection(subscriptionsCollection).Doc(userID).Set(ctx, data, firestore.MergeAll); err != nil {
		return fmt.Errorf("merge subscription %q: %w", userID, err)
	}
	return nil
}
