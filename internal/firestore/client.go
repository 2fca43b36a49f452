package firestore

import (
	"context"
	"encoding/base64"
	"errors"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

// New creates a Firestore client through the Firebase Admin SDK.
// It returns an error if the credentials are absent or the client
// cannot be created.
func New(ctx context.Context, cfg Config) (*firestore.Client, error) {
	if cfg.ProjectID == "" {
		return nil, ErrMissingProjectID
	}

	var creds option.ClientOption
	switch {
	case cfg.CredentialsFile != "":
		creds = option.WithCredentialsFile(cfg.CredentialsFile)
	case cfg.CredentialsJSONBase64 != "":
		decoded, err := base64.StdEncoding.DecodeString(cfg.CredentialsJSONBase64)
		if err != nil {
			return nil, errors.Join(ErrInvalidCredentials, err)
		}
		creds = option.WithCredentialsJSON(decoded)
	default:
		return nil, ErrMissingCredentials
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, creds)
	if err != nil {
		return nil, errors.Join(ErrFailedToConnect, err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, errors.Join(ErrFailedToConnect, err)
	}
	return client, nil
}
