package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/galley-app/galley/internal/domain"
	"github.com/galley-app/galley/internal/pkg/crypto"
	"github.com/galley-app/galley/internal/repository"
)

// TokenService issues and verifies opaque API tokens.
type TokenService struct {
	tokenRepo repository.TokenRepository
	userRepo  repository.UserRepository
	cache     repository.Cache
	logger    zerolog.Logger

	tokenTTL time.Duration
	cacheTTL time.Duration
}

// TokenServiceConfig contains token service settings.
type TokenServiceConfig struct {
	// TokenTTL is how long issued tokens stay valid. Zero means tokens
	// never expire.
	TokenTTL time.Duration

	// CacheTTL is how long verified tokens stay memoized. Also bounds how
	// long a revoked-elsewhere token may keep working on this node.
	CacheTTL time.Duration
}

// NewTokenService creates a new TokenService. The cache may be nil, in
// which case every verification hits storage.
func NewTokenService(
	tokenRepo repository.TokenRepository,
	userRepo repository.UserRepository,
	cache repository.Cache,
	cfg TokenServiceConfig,
	logger zerolog.Logger,
) *TokenService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return &TokenService{
		tokenRepo: tokenRepo,
		userRepo:  userRepo,
		cache:     cache,
		logger:    logger.With().Str("service", "token").Logger(),
		tokenTTL:  cfg.TokenTTL,
		cacheTTL:  cfg.CacheTTL,
	}
}

// =============================================================================
// Input/Output Structs
// =============================================================================

// IssueTokenOutput contains a freshly issued token.
type IssueTokenOutput struct {
	// Token is the plaintext token. This is the only time it is visible;
	// storage keeps the digest.
	Token string
}

// =============================================================================
// Service Methods
// =============================================================================

// IssueToken creates a new token for the user and returns the plaintext.
func (s *TokenService) IssueToken(ctx context.Context, userID int64) (*IssueTokenOutput, error) {
	plaintext, err := crypto.GenerateToken()
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to generate token")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	token := &domain.Token{
		UserID:    userID,
		Digest:    crypto.DigestToken(plaintext),
		CreatedAt: time.Now().UTC(),
	}
	if s.tokenTTL > 0 {
		expires := token.CreatedAt.Add(s.tokenTTL)
		token.ExpiresAt = &expires
	}

	if err := s.tokenRepo.Create(ctx, token); err != nil {
		s.logger.Error().Err(err).Msg("failed to store token")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Int64("user_id", userID).Msg("token issued")

	return &IssueTokenOutput{Token: plaintext}, nil
}

// VerifyToken resolves a plaintext token to its user. Returns the user and
// the token digest. Satisfies auth.TokenVerifier.
func (s *TokenService) VerifyToken(ctx context.Context, plaintext string) (*domain.User, string, error) {
	if !crypto.ValidToken(plaintext) {
		return nil, "", domain.ErrTokenNotFound
	}
	digest := crypto.DigestToken(plaintext)

	if user := s.cachedUser(ctx, digest); user != nil {
		if !user.CanAuthenticate() {
			return nil, "", domain.ErrUserInactive
		}
		return user, digest, nil
	}

	token, err := s.tokenRepo.GetByDigest(ctx, digest)
	if err != nil {
		if errors.Is(err, domain.ErrTokenNotFound) {
			return nil, "", err
		}
		s.logger.Error().Err(err).Msg("failed to look up token")
		return nil, "", fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if token.IsExpired() {
		// Lazy cleanup; the sweeper catches the rest.
		_ = s.tokenRepo.DeleteByDigest(ctx, digest)
		return nil, "", domain.ErrTokenExpired
	}

	user, err := s.userRepo.GetByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, "", domain.ErrTokenNotFound
		}
		s.logger.Error().Err(err).Msg("failed to load token user")
		return nil, "", fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if !user.CanAuthenticate() {
		return nil, "", domain.ErrUserInactive
	}

	s.cacheUser(ctx, digest, user, token.ExpiresAt)

	return user, digest, nil
}

// RevokeToken deletes a single token (logout).
func (s *TokenService) RevokeToken(ctx context.Context, digest string) error {
	if err := s.tokenRepo.DeleteByDigest(ctx, digest); err != nil {
		if errors.Is(err, domain.ErrTokenNotFound) {
			return err
		}
		s.logger.Error().Err(err).Msg("failed to revoke token")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.dropCached(ctx, digest)
	return nil
}

// RevokeAllForUser deletes all of a user's tokens.
// Cached verifications elsewhere age out within CacheTTL.
func (s *TokenService) RevokeAllForUser(ctx context.Context, userID int64) (int64, error) {
	deleted, err := s.tokenRepo.DeleteByUserID(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to revoke user tokens")
		return 0, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Int64("user_id", userID).
		Int64("count", deleted).
		Msg("user tokens revoked")

	return deleted, nil
}

// CleanupExpired deletes all expired tokens. Called by the sweeper.
func (s *TokenService) CleanupExpired(ctx context.Context) (int64, error) {
	deleted, err := s.tokenRepo.DeleteExpired(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to delete expired tokens")
		return 0, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return deleted, nil
}

// =============================================================================
// Cache helpers
// =============================================================================

// cachedUser returns the memoized user for a digest, or nil.
func (s *TokenService) cachedUser(ctx context.Context, digest string) *domain.User {
	if s.cache == nil {
		return nil
	}

	data, err := s.cache.Get(ctx, repository.CacheKey{}.Token(digest))
	if err != nil {
		if !errors.Is(err, repository.ErrCacheMiss) {
			s.logger.Warn().Err(err).Msg("token cache read failed")
		}
		return nil
	}

	var user domain.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil
	}
	return &user
}

// cacheUser memoizes a verified token. The entry never outlives the token.
func (s *TokenService) cacheUser(ctx context.Context, digest string, user *domain.User, expiresAt *time.Time) {
	if s.cache == nil {
		return
	}

	ttl := s.cacheTTL
	if expiresAt != nil {
		if remaining := time.Until(*expiresAt); remaining < ttl {
			ttl = remaining
		}
	}
	if ttl <= 0 {
		return
	}

	// PasswordHash carries json:"-" so the serialized entry holds no secrets.
	data, err := json.Marshal(user)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, repository.CacheKey{}.Token(digest), data, ttl); err != nil {
		s.logger.Warn().Err(err).Msg("token cache write failed")
	}
}

// dropCached removes a memoized token.
func (s *TokenService) dropCached(ctx context.Context, digest string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, repository.CacheKey{}.Token(digest)); err != nil {
		s.logger.Warn().Err(err).Msg("token cache delete failed")
	}
}
