package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/galley-app/galley/internal/domain"
	"github.com/galley-app/galley/internal/repository"
)

// tokenRepository implements repository.TokenRepository for PostgreSQL.
type tokenRepository struct {
	db *DB
}

// NewTokenRepository creates a new PostgreSQL token repository.
func NewTokenRepository(db *DB) repository.TokenRepository {
	return &tokenRepository{db: db}
}

// Create persists a new token.
func (r *tokenRepository) Create(ctx context.Context, token *domain.Token) error {
	query := `
		INSERT INTO auth_tokens (user_id, digest, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := r.db.conn(ctx).QueryRow(ctx, query,
		token.UserID,
		token.Digest,
		token.CreatedAt,
		token.ExpiresAt,
	).Scan(&token.ID)

	if err != nil {
		return fmt.Errorf("failed to create token: %w", err)
	}

	return nil
}

// GetByDigest retrieves a token by its key digest.
func (r *tokenRepository) GetByDigest(ctx context.Context, digest string) (*domain.Token, error) {
	query := `
		SELECT id, user_id, digest, created_at, expires_at
		FROM auth_tokens
		WHERE digest = $1
	`

	token := &domain.Token{}
	err := r.db.conn(ctx).QueryRow(ctx, query, digest).Scan(
		&token.ID,
		&token.UserID,
		&token.Digest,
		&token.CreatedAt,
		&token.ExpiresAt,
	)

	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	return token, nil
}

// DeleteByDigest deletes a single token.
func (r *tokenRepository) DeleteByDigest(ctx context.Context, digest string) error {
	tag, err := r.db.conn(ctx).Exec(ctx, `DELETE FROM auth_tokens WHERE digest = $1`, digest)
	if err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrTokenNotFound
	}

	return nil
}

// DeleteByUserID deletes all tokens for a user.
func (r *tokenRepository) DeleteByUserID(ctx context.Context, userID int64) (int64, error) {
	tag, err := r.db.conn(ctx).Exec(ctx, `DELETE FROM auth_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete user tokens: %w", err)
	}

	return tag.RowsAffected(), nil
}

// DeleteExpired deletes all expired tokens.
func (r *tokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM auth_tokens WHERE expires_at IS NOT NULL AND expires_at < $1`

	tag, err := r.db.conn(ctx).Exec(ctx, query, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}

	return tag.RowsAffected(), nil
}

// Ensure tokenRepository implements repository.TokenRepository.
var _ repository.TokenRepository = (*tokenRepository)(nil)
