package billing

import "time"

// User is the identity anchor stored in the users collection. The
// document id is the application user id; PaymentCustomerID is written
// at most once by the resolver and thereafter treated as immutable.
type User struct {
	ID                string    `firestore:"-"`
	Email             string    `firestore:"email"`
	DisplayName       string    `firestore:"displayName"`
	PaymentCustomerID string    `firestore:"paymentCustomerId"`
	CreatedAt         time.Time `firestore:"createdAt"`
	UpdatedAt         time.Time `firestore:"updatedAt"`
}
