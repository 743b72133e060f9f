package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	memorycache "github.com/galley-app/galley/internal/cache/memory"
	"github.com/galley-app/galley/internal/domain"
	"github.com/galley-app/galley/internal/pkg/crypto"
)

func newTestTokenService(tokens *mockTokenRepository, users *mockUserRepository, cfg TokenServiceConfig) *TokenService {
	return NewTokenService(tokens, users, nil, cfg, zerolog.Nop())
}

func TestTokenService_IssueAndVerify(t *testing.T) {
	users := newMockUserRepository()
	users.users[1] = &domain.User{ID: 1, Email: "user@example.com", IsActive: true}
	tokens := newMockTokenRepository()
	svc := newTestTokenService(tokens, users, TokenServiceConfig{})

	out, err := svc.IssueToken(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Token) != crypto.TokenLength {
		t.Fatalf("expected %d-char token, got %d", crypto.TokenLength, len(out.Token))
	}

	// Plaintext never reaches storage.
	if _, ok := tokens.tokens[out.Token]; ok {
		t.Error("token stored in plaintext")
	}
	if _, ok := tokens.tokens[crypto.DigestToken(out.Token)]; !ok {
		t.Error("token digest not stored")
	}

	user, digest, err := svc.VerifyToken(context.Background(), out.Token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != 1 {
		t.Errorf("expected user 1, got %d", user.ID)
	}
	if digest != crypto.DigestToken(out.Token) {
		t.Error("digest mismatch")
	}
}

func TestTokenService_VerifyFailures(t *testing.T) {
	users := newMockUserRepository()
	users.users[1] = &domain.User{ID: 1, Email: "user@example.com", IsActive: true}
	tokens := newMockTokenRepository()
	svc := newTestTokenService(tokens, users, TokenServiceConfig{})

	out, err := svc.IssueToken(context.Background(), 1)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	t.Run("malformed token", func(t *testing.T) {
		if _, _, err := svc.VerifyToken(context.Background(), "not-a-token"); !errors.Is(err, domain.ErrTokenNotFound) {
			t.Errorf("expected ErrTokenNotFound, got %v", err)
		}
	})

	t.Run("unknown token", func(t *testing.T) {
		unknown, _ := crypto.GenerateToken()
		if _, _, err := svc.VerifyToken(context.Background(), unknown); !errors.Is(err, domain.ErrTokenNotFound) {
			t.Errorf("expected ErrTokenNotFound, got %v", err)
		}
	})

	t.Run("inactive user", func(t *testing.T) {
		users.users[1].IsActive = false
		defer func() { users.users[1].IsActive = true }()

		if _, _, err := svc.VerifyToken(context.Background(), out.Token); !errors.Is(err, domain.ErrUserInactive) {
			t.Errorf("expected ErrUserInactive, got %v", err)
		}
	})

	t.Run("user deleted", func(t *testing.T) {
		saved := users.users[1]
		delete(users.users, 1)
		defer func() { users.users[1] = saved }()

		if _, _, err := svc.VerifyToken(context.Background(), out.Token); !errors.Is(err, domain.ErrTokenNotFound) {
			t.Errorf("expected ErrTokenNotFound, got %v", err)
		}
	})
}

func TestTokenService_ExpiredToken(t *testing.T) {
	users := newMockUserRepository()
	users.users[1] = &domain.User{ID: 1, Email: "user@example.com", IsActive: true}
	tokens := newMockTokenRepository()
	svc := newTestTokenService(tokens, users, TokenServiceConfig{})

	out, err := svc.IssueToken(context.Background(), 1)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	digest := crypto.DigestToken(out.Token)
	past := time.Now().Add(-time.Minute)
	tokens.tokens[digest].ExpiresAt = &past

	if _, _, err := svc.VerifyToken(context.Background(), out.Token); !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}

	// Lazily removed on the failed verification.
	if _, ok := tokens.tokens[digest]; ok {
		t.Error("expired token not removed")
	}
}

func TestTokenService_TTL(t *testing.T) {
	users := newMockUserRepository()
	users.users[1] = &domain.User{ID: 1, IsActive: true}
	tokens := newMockTokenRepository()

	// Zero TTL issues non-expiring tokens.
	svc := newTestTokenService(tokens, users, TokenServiceConfig{})
	out, err := svc.IssueToken(context.Background(), 1)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if tokens.tokens[crypto.DigestToken(out.Token)].ExpiresAt != nil {
		t.Error("expected no expiry with zero TTL")
	}

	// Positive TTL sets an expiry.
	svc = newTestTokenService(tokens, users, TokenServiceConfig{TokenTTL: time.Hour})
	out, err = svc.IssueToken(context.Background(), 1)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	stored := tokens.tokens[crypto.DigestToken(out.Token)]
	if stored.ExpiresAt == nil {
		t.Fatal("expected expiry to be set")
	}
	if until := time.Until(*stored.ExpiresAt); until > time.Hour || until < 55*time.Minute {
		t.Errorf("unexpected expiry %v from now", until)
	}
}

func TestTokenService_CachedVerification(t *testing.T) {
	users := newMockUserRepository()
	users.users[1] = &domain.User{ID: 1, Email: "user@example.com", IsActive: true}
	tokens := newMockTokenRepository()

	cache := memorycache.NewCache()
	defer cache.Stop()

	svc := NewTokenService(tokens, users, cache, TokenServiceConfig{CacheTTL: time.Minute}, zerolog.Nop())

	out, err := svc.IssueToken(context.Background(), 1)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, _, err := svc.VerifyToken(context.Background(), out.Token); err != nil {
		t.Fatalf("first verification: %v", err)
	}

	// Second verification is served from the cache even with the backing
	// row gone.
	digest := crypto.DigestToken(out.Token)
	delete(tokens.tokens, digest)

	user, _, err := svc.VerifyToken(context.Background(), out.Token)
	if err != nil {
		t.Fatalf("cached verification: %v", err)
	}
	if user.Email != "user@example.com" {
		t.Errorf("unexpected cached user %q", user.Email)
	}

	// Dropping the cached entry forces the storage path again.
	svc.dropCached(context.Background(), digest)
	if _, _, err := svc.VerifyToken(context.Background(), out.Token); !errors.Is(err, domain.ErrTokenNotFound) {
		t.Errorf("expected ErrTokenNotFound after revocation, got %v", err)
	}
}

func TestTokenService_RevokeAllForUser(t *testing.T) {
	users := newMockUserRepository()
	users.users[1] = &domain.User{ID: 1, IsActive: true}
	users.users[2] = &domain.User{ID: 2, IsActive: true}
	tokens := newMockTokenRepository()
	svc := newTestTokenService(tokens, users, TokenServiceConfig{})

	for i := 0; i < 3; i++ {
		if _, err := svc.IssueToken(context.Background(), 1); err != nil {
			t.Fatalf("issue: %v", err)
		}
	}
	other, err := svc.IssueToken(context.Background(), 2)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	deleted, err := svc.RevokeAllForUser(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != 3 {
		t.Errorf("expected 3 deleted, got %d", deleted)
	}

	// Other users' tokens survive.
	if _, _, err := svc.VerifyToken(context.Background(), other.Token); err != nil {
		t.Errorf("unrelated token revoked: %v", err)
	}
}
