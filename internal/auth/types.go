// Package auth provides token authentication middleware for the Galley API.
package auth

import (
	"context"

	"github.com/galley-app/galley/internal/domain"
)

// AuthContext carries the authenticated identity through a request.
type AuthContext struct {
	// User is the authenticated user.
	User *domain.User

	// TokenDigest is the digest of the token that authenticated the
	// request. Logout revokes exactly this token.
	TokenDigest string
}

// UserID returns the authenticated user's ID.
func (a *AuthContext) UserID() int64 {
	return a.User.ID
}

type authCtxKey struct{}

// WithAuthContext returns a context carrying the authenticated identity.
func WithAuthContext(ctx context.Context, ac *AuthContext) context.Context {
	return context.WithValue(ctx, authCtxKey{}, ac)
}

// FromContext extracts the authenticated identity from the context.
// The second return is false if the request was not authenticated.
func FromContext(ctx context.Context) (*AuthContext, bool) {
	ac, ok := ctx.Value(authCtxKey{}).(*AuthContext)
	return ac, ok
}
