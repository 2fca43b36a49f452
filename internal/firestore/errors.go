package firestore

import "errors"

var (
	ErrMissingProjectID   = errors.New("firestore project id is required")
	ErrMissingCredentials = errors.New("firestore credentials are required")
	ErrInvalidCredentials = errors.New("firestore credentials are invalid")
	ErrFailedToConnect    = errors.New("failed to connect to firestore")
)
