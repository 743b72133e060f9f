package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/galley-app/galley/internal/domain"
)

// Accepted Authorization schemes. "Token" is the canonical scheme;
// "Bearer" is accepted as an alias for generic HTTP clients.
const (
	SchemeToken  = "Token"
	SchemeBearer = "Bearer"
)

// TokenVerifier resolves a plaintext token to its user.
// Implemented by the token service.
type TokenVerifier interface {
	// VerifyToken returns the token's user and the token digest.
	// Returns ErrInvalidToken-compatible domain errors on failure.
	VerifyToken(ctx context.Context, token string) (*domain.User, string, error)
}

// Middleware authenticates requests via the Authorization header.
type Middleware struct {
	verifier TokenVerifier
	logger   zerolog.Logger
}

// NewMiddleware creates a new authentication middleware.
func NewMiddleware(verifier TokenVerifier, logger zerolog.Logger) *Middleware {
	return &Middleware{
		verifier: verifier,
		logger:   logger.With().Str("component", "auth").Logger(),
	}
}

// Require wraps a handler, rejecting requests without a valid token.
func (m *Middleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := ParseAuthorizationHeader(r.Header.Get("Authorization"))
		if err != nil {
			m.unauthorized(w, err.Error())
			return
		}

		user, digest, err := m.verifier.VerifyToken(r.Context(), token)
		if err != nil {
			m.logger.Debug().Err(err).Msg("token verification failed")
			m.unauthorized(w, ErrInvalidToken.Error())
			return
		}

		ctx := WithAuthContext(r.Context(), &AuthContext{
			User:        user,
			TokenDigest: digest,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ParseAuthorizationHeader extracts the token from an Authorization header.
func ParseAuthorizationHeader(header string) (string, error) {
	if header == "" {
		return "", ErrMissingCredentials
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", ErrInvalidToken
	}

	scheme := parts[0]
	if !strings.EqualFold(scheme, SchemeToken) && !strings.EqualFold(scheme, SchemeBearer) {
		return "", ErrInvalidScheme
	}

	return strings.TrimSpace(parts[1]), nil
}

// unauthorized writes a 401 response in the API's error shape.
func (m *Middleware) unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", SchemeToken)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
