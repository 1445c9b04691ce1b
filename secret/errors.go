package secret

import "errors"

// DefaultRef is the credential name looked up when none is configured.
const DefaultRef = "GOOGLE_API_KEY"

var (
	// ErrNoCredential is returned when no provider yields a credential.
	ErrNoCredential = errors.New("secret: no API key configured; set GOOGLE_API_KEY in the environment or a .env file, or PUT /v1/settings/api-key")

	// ErrNotSet is returned by a Provider that has no value for a ref.
	ErrNotSet = errors.New("secret: value not set")
)
