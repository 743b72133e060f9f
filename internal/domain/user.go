// Package domain contains the core business entities for Galley.
// These are pure Go structs with no external dependencies, representing
// the fundamental concepts of the recipe management system.
package domain

import (
	"strings"
	"time"
)

// User represents a registered account in the system.
// Users own recipes, tags, and ingredients; all queries are scoped to the owner.
type User struct {
	// ID is the unique identifier for the user (auto-generated).
	ID int64 `json:"id"`

	// Email is the unique login identifier. The domain part is stored
	// lowercased; the local part keeps its original casing.
	Email string `json:"email"`

	// Name is the display name shown on the profile.
	Name string `json:"name"`

	// PasswordHash is the bcrypt hash of the user's password.
	// This should never be exposed in API responses.
	PasswordHash string `json:"-"`

	// IsActive indicates whether the account is active.
	// Inactive users cannot authenticate or perform any operations.
	IsActive bool `json:"is_active"`

	// IsStaff grants access to administrative tooling.
	IsStaff bool `json:"is_staff"`

	// IsSuperuser grants unrestricted administrative privileges.
	IsSuperuser bool `json:"is_superuser"`

	// CreatedAt is the timestamp when the user was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the timestamp when the user was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUser creates a new User with default values.
// The email is normalized before being stored.
func NewUser(email, name, passwordHash string) *User {
	now := time.Now().UTC()
	return &User{
		Email:        NormalizeEmail(email),
		Name:         name,
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NormalizeEmail lowercases the domain part of an email address while
// preserving the case of the local part. Addresses without an @ are
// returned unchanged; validation happens elsewhere.
func NormalizeEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at+1] + strings.ToLower(email[at+1:])
}

// CanAuthenticate returns true if the user is allowed to authenticate.
func (u *User) CanAuthenticate() bool {
	return u.IsActive
}
