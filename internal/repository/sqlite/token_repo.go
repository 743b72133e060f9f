package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/galley-app/galley/internal/domain"
	"github.com/galley-app/galley/internal/repository"
)

// tokenRepository implements repository.TokenRepository for SQLite.
type tokenRepository struct {
	db *DB
}

// NewTokenRepository creates a new SQLite token repository.
func NewTokenRepository(db *DB) repository.TokenRepository {
	return &tokenRepository{db: db}
}

// Create persists a new token.
func (r *tokenRepository) Create(ctx context.Context, token *domain.Token) error {
	query := `
		INSERT INTO auth_tokens (user_id, digest, created_at, expires_at)
		VALUES (?, ?, ?, ?)
	`

	var expiresAt interface{}
	if token.ExpiresAt != nil {
		expiresAt = token.ExpiresAt.Format(time.RFC3339)
	}

	result, err := r.db.ExecContext(ctx, query,
		token.UserID,
		token.Digest,
		token.CreatedAt.Format(time.RFC3339),
		expiresAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create token: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	token.ID = id

	return nil
}

// GetByDigest retrieves a token by its key digest.
func (r *tokenRepository) GetByDigest(ctx context.Context, digest string) (*domain.Token, error) {
	query := `
		SELECT id, user_id, digest, created_at, expires_at
		FROM auth_tokens
		WHERE digest = ?
	`

	token := &domain.Token{}
	var createdAt string
	var expiresAt sql.NullString

	err := r.db.QueryRowContext(ctx, query, digest).Scan(
		&token.ID,
		&token.UserID,
		&token.Digest,
		&createdAt,
		&expiresAt,
	)

	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	token.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if expiresAt.Valid {
		t, _ := time.Parse(time.RFC3339, expiresAt.String)
		token.ExpiresAt = &t
	}

	return token, nil
}

// DeleteByDigest deletes a single token.
func (r *tokenRepository) DeleteByDigest(ctx context.Context, digest string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM auth_tokens WHERE digest = ?`, digest)
	if err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return domain.ErrTokenNotFound
	}

	return nil
}

// DeleteByUserID deletes all tokens for a user.
func (r *tokenRepository) DeleteByUserID(ctx context.Context, userID int64) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM auth_tokens WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete user tokens: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	return rowsAffected, nil
}

// DeleteExpired deletes all expired tokens.
func (r *tokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM auth_tokens WHERE expires_at IS NOT NULL AND expires_at < ?`

	result, err := r.db.ExecContext(ctx, query, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	return rowsAffected, nil
}

// Ensure tokenRepository implements repository.TokenRepository.
var _ repository.TokenRepository = (*tokenRepository)(nil)
