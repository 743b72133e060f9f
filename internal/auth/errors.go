package auth

import "errors"

// Authentication errors
var (
	// ErrMissingCredentials indicates no Authorization header was sent.
	ErrMissingCredentials = errors.New("authentication credentials were not provided")

	// ErrInvalidScheme indicates an unsupported Authorization scheme.
	ErrInvalidScheme = errors.New("unsupported authorization scheme")

	// ErrInvalidToken indicates the token is malformed, unknown, expired,
	// or belongs to an inactive user. Callers get no finer detail.
	ErrInvalidToken = errors.New("invalid token")
)
