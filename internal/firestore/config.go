package firestore

// Config represents the Firestore connection configuration. Credentials
// come either from a service-account file path or from the raw JSON,
// base64-encoded for env-var transport.
type Config struct {
	ProjectID             string `env:"FIREBASE_PROJECT_ID,required"`             // ProjectID is the Firebase/GCP project the collections live in.
	CredentialsFile       string `env:"FIREBASE_CREDENTIALS_FILE"`                // CredentialsFile is the path to a service-account JSON file.
	CredentialsJSONBase64 string `env:"FIREBASE_CREDENTIALS_JSON_BASE64"`         // CredentialsJSONBase64 is the base64-encoded service-account JSON.
}
