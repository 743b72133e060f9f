// Package service provides business logic services for Galley.
package service

import "errors"

// Common service errors.
var (
	// Registration and profile errors. The password error is wrapped with
	// the configured minimum length where it is raised.
	ErrInvalidPassword = errors.New("invalid password")
	ErrInvalidEmail    = errors.New("invalid email format")

	// General errors
	ErrInternalError = errors.New("internal server error")
)
