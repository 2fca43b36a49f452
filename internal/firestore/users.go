package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/keepcase/billing/internal/billing"
)

const usersCollection = "users"

// UserStore implements billing.UserStore on a Firestore collection
// keyed by the application user id.
type UserStore struct {
	client *firestore.Client
}

var _ billing.UserStore = (*UserStore)(nil)

func NewUserStore(client *firestore.Client) *UserStore {
	if client == nil {
		panic("firestore: client is required")
	}
	return &UserStore{client: client}
}

func (s *UserStore) Get(ctx context.Context, userID string) (*billing.User, error) {
	snap, err := s.client.Collection(usersCollection).Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, billing.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user %q: %w", userID, err)
	}

	var user billing.User
	if err := snap.DataTo(&user); err != nil {
		return nil, fmt.Errorf("decode user %q: %w", userID, err)
	}
	user.ID = snap.Ref.ID
	return &user, nil
}

// Merge writes the fields into the user document with merge semantics,
// creating the document if absent. updatedAt is stamped server-side on
// every write so record timestamps are monotonic.
func (s *UserStore) Merge(ctx context.Context, userID string, fields map[string]any) error {
	data := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		data[k] = v
	}
	data["updatedAt"] = firestore.ServerTimestamp

	if _, err := s.client.Collection(usersCollection).Doc(userID).Set(ctx, data, firestore.MergeAll); err != nil {
		return fmt.Errorf("merge user %q: %w", userID, err)
	}
	return nil
}
