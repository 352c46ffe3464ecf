package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fintrackapp/auth-service/internal/domain"
	"github.com/fintrackapp/auth-service/pkg/database"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// verificationRepository implements VerificationRepository interface
type verificationRepository struct {
	db *database.Postgres
}

// NewVerificationRepository creates a new verification token repository
func NewVerificationRepository(db *database.Postgres) VerificationRepository {
	return &verificationRepository{db: db}
}

// Create creates a new verification token record
func (r *verificationRepository) Create(ctx context.Context, token *domain.VerificationToken) error {
	query := `
		INSERT INTO verification_tokens (id, user_id, token_hash, kind, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if token.ID == "" {
		token.ID = uuid.New().String()
	}

	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}

	_, err := r.db.DB.ExecContext(ctx, query,
		token.ID,
		token.UserID,
		token.TokenHash,
		string(token.Kind),
		token.ExpiresAt,
		token.CreatedAt,
	)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" { // unique_violation
				return fmt.Errorf("verification token with hash already exists: %w", ErrDuplicateToken)
			}
		}
		return fmt.Errorf("failed to create verification token: %w", err)
	}

	return nil
}

// GetByTokenHash retrieves a verification token by its hash
func (r *verificationRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.VerificationToken, error) {
	query := `
		SELECT id, user_id, token_hash, kind, expires_at, used_at, created_at
		FROM verification_tokens
		WHERE token_hash = $1
	`

	token := &domain.VerificationToken{}
	var kind string
	var usedAt sql.NullTime

	err := r.db.DB.QueryRowContext(ctx, query, tokenHash).Scan(
		&token.ID,
		&token.UserID,
		&token.TokenHash,
		&kind,
		&token.ExpiresAt,
		&usedAt,
		&token.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("verification token not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get verification token: %w", err)
	}

	token.Kind = domain.VerificationKind(kind)
	if usedAt.Valid {
		token.UsedAt = &usedAt.Time
	}

	return token, nil
}

// MarkUsed consumes the token. The used-at guard makes consumption single-use
// even under concurrent confirmation attempts.
func (r *verificationRepository) MarkUsed(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE verification_tokens
		SET used_at = $2
		WHERE id = $1 AND used_at IS NULL
	`

	result, err := r.db.DB.ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("failed to mark verification token used: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("verification token with id %s not found: %w", id, ErrNotFound)
	}

	return nil
}

// SupersedeForUser invalidates earlier unused tokens of the same kind
func (r *verificationRepository) SupersedeForUser(ctx context.Context, userID string, kind domain.VerificationKind, at time.Time) error {
	query := `
		UPDATE verification_tokens
		SET used_at = $3
		WHERE user_id = $1 AND kind = $2 AND used_at IS NULL
	`

	if _, err := r.db.DB.ExecContext(ctx, query, userID, string(kind), at); err != nil {
		return fmt.Errorf("failed to supersede verification tokens: %w", err)
	}

	return nil
}

// DeleteExpired removes expired and consumed verification tokens
func (r *verificationRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		DELETE FROM verification_tokens
		WHERE expires_at < $1 OR used_at IS NOT NULL
	`

	result, err := r.db.DB.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired verification tokens: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}
