// Package domain contains the core business entities for Galley.
package domain

import (
	"errors"
	"fmt"
)

// Domain errors - these represent business rule violations.
// They are distinct from infrastructure errors (database, network, etc.).

var (
	// ===========================================
	// User Errors
	// ===========================================

	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists indicates a user with the same email exists.
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrUserInactive indicates the user account is disabled.
	ErrUserInactive = errors.New("user account is inactive")

	// ErrInvalidCredentials indicates authentication failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrEmailRequired indicates user creation was attempted without an email.
	ErrEmailRequired = errors.New("email address is required")

	// ===========================================
	// Token Errors
	// ===========================================

	// ErrTokenNotFound indicates the presented token is unknown.
	ErrTokenNotFound = errors.New("token not found")

	// ErrTokenExpired indicates the presented token is past its expiry.
	ErrTokenExpired = errors.New("token has expired")

	// ===========================================
	// Catalog Errors (tags and ingredients)
	// ===========================================

	// ErrCatalogItemNotFound indicates the requested tag or ingredient does
	// not exist, or is not owned by the caller. The two cases are reported
	// identically so existence is never confirmed to non-owners.
	ErrCatalogItemNotFound = errors.New("not found")

	// ErrCatalogItemExists indicates a same-named item already exists for
	// the owner.
	ErrCatalogItemExists = errors.New("item with this name already exists")

	// ErrInvalidCatalogName indicates the name is empty or too long.
	ErrInvalidCatalogName = errors.New("name must be between 1 and 255 characters")

	// ===========================================
	// Recipe Errors
	// ===========================================

	// ErrRecipeNotFound indicates the requested recipe does not exist, or is
	// not owned by the caller. Deliberately indistinguishable from the
	// outside; the service layer logs the ownership case for auditing.
	ErrRecipeNotFound = errors.New("recipe not found")

	// ErrInvalidRecipeTitle indicates the title is empty or too long.
	ErrInvalidRecipeTitle = errors.New("title must be between 1 and 255 characters")

	// ErrInvalidRecipeTime indicates a negative preparation time.
	ErrInvalidRecipeTime = errors.New("time_minutes must be non-negative")

	// ErrInvalidRecipePrice indicates a malformed or negative price.
	ErrInvalidRecipePrice = errors.New("price must be a non-negative decimal with at most two fractional digits")

	// ===========================================
	// Media Errors
	// ===========================================

	// ErrNotAnImage indicates an upload payload that does not decode as an image.
	ErrNotAnImage = errors.New("uploaded file is not a valid image")

	// ErrMediaNotFound indicates the requested media object does not exist.
	ErrMediaNotFound = errors.New("media not found")
)

// DomainError wraps a domain error with additional context.
type DomainError struct {
	// Err is the underlying domain error.
	Err error

	// Message provides additional context.
	Message string

	// Resource identifies the affected resource (e.g., recipe title, tag name).
	Resource string
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Err.Error(), e.Message, e.Resource)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/errors.As.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError with context.
func NewDomainError(err error, message, resource string) *DomainError {
	return &DomainError{
		Err:      err,
		Message:  message,
		Resource: resource,
	}
}

// WrapError wraps an error with domain context if it's not already a DomainError.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}

	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return err
	}

	return &DomainError{
		Err:     err,
		Message: message,
	}
}
