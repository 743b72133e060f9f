package domain

import "time"

// Token is a persisted API authentication token.
// Only the SHA-256 digest of the opaque key is stored; the plaintext key is
// handed to the client once at issuance and never recoverable afterwards.
type Token struct {
	// ID is the unique identifier (auto-generated).
	ID int64 `json:"id"`

	// UserID is the user this token authenticates.
	UserID int64 `json:"user_id"`

	// Digest is the hex-encoded SHA-256 of the plaintext token key.
	Digest string `json:"-"`

	// CreatedAt is the timestamp when the token was issued.
	CreatedAt time.Time `json:"created_at"`

	// ExpiresAt is the optional expiry. Nil means the token never expires.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// IsExpired reports whether the token is past its expiry.
func (t *Token) IsExpired() bool {
	return t.ExpiresAt != nil && time.Now().UTC().After(*t.ExpiresAt)
}
