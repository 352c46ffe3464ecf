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

const userColumns = `id, email, password_hash, created_at, updated_at, last_login_at,
	is_active, is_email_verified, token_version, failed_login_attempts, locked, locked_until`

// userRepository implements UserRepository interface
type userRepository struct {
	db *database.Postgres
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.Postgres) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user in the database
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, created_at, updated_at, is_active, is_email_verified, token_version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	// Generate UUID if not provided
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}

	_, err := r.db.DB.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
		user.IsActive,
		user.IsEmailVerified,
		user.TokenVersion,
	)

	if err != nil {
		// Check for unique constraint violation (duplicate email)
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" { // unique_violation
				return fmt.Errorf("user with email %s already exists: %w", user.Email, ErrDuplicateEmail)
			}
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByEmail retrieves a user by email
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1`, userColumns)

	user, err := r.scanUser(r.db.DB.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with email %s not found: %w", email, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

// GetByID retrieves a user by ID
func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)

	user, err := r.scanUser(r.db.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with id %s not found: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return user, nil
}

// UpdatePassword replaces the stored password hash
func (r *userRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	query := `
		UPDATE users
		SET password_hash = $2, updated_at = $3
		WHERE id = $1
	`

	return r.execExpectingRow(ctx, "failed to update password", query, userID, passwordHash, time.Now())
}

// UpdateLastLogin updates the last login timestamp for a user
func (r *userRepository) UpdateLastLogin(ctx context.Context, userID string) error {
	query := `
		UPDATE users
		SET last_login_at = $2
		WHERE id = $1
	`

	return r.execExpectingRow(ctx, "failed to update last login", query, userID, time.Now())
}

// MarkEmailVerified sets the email-verified flag
func (r *userRepository) MarkEmailVerified(ctx context.Context, userID string) error {
	query := `
		UPDATE users
		SET is_email_verified = TRUE, updated_at = $2
		WHERE id = $1
	`

	return r.execExpectingRow(ctx, "failed to mark email verified", query, userID, time.Now())
}

// IncrementTokenVersion bumps the user's token version. The increment happens
// in SQL so concurrent bumps never lose an update.
func (r *userRepository) IncrementTokenVersion(ctx context.Context, userID string) error {
	query := `
		UPDATE users
		SET token_version = token_version + 1, updated_at = $2
		WHERE id = $1
	`

	return r.execExpectingRow(ctx, "failed to increment token version", query, userID, time.Now())
}

// RecordLoginFailure atomically increments the failed-attempt counter and
// returns the new count.
func (r *userRepository) RecordLoginFailure(ctx context.Context, userID string) (int, error) {
	query := `
		UPDATE users
		SET failed_login_attempts = failed_login_attempts + 1, updated_at = $2
		WHERE id = $1
		RETURNING failed_login_attempts
	`

	var count int
	err := r.db.DB.QueryRowContext(ctx, query, userID, time.Now()).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("user with id %s not found: %w", userID, ErrNotFound)
		}
		return 0, fmt.Errorf("failed to record login failure: %w", err)
	}

	return count, nil
}

// SetLock marks the account locked until the given time
func (r *userRepository) SetLock(ctx context.Context, userID string, until time.Time) error {
	query := `
		UPDATE users
		SET locked = TRUE, locked_until = $2, updated_at = $3
		WHERE id = $1
	`

	return r.execExpectingRow(ctx, "failed to set account lock", query, userID, until, time.Now())
}

// ClearLockState resets the failed-attempt counter and lock fields
func (r *userRepository) ClearLockState(ctx context.Context, userID string) error {
	query := `
		UPDATE users
		SET failed_login_attempts = 0, locked = FALSE, locked_until = NULL, updated_at = $2
		WHERE id = $1
	`

	return r.execExpectingRow(ctx, "failed to clear lock state", query, userID, time.Now())
}

// UnlockExpired clears lock state on all accounts whose lock has expired
func (r *userRepository) UnlockExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE users
		SET failed_login_attempts = 0, locked = FALSE, locked_until = NULL, updated_at = $1
		WHERE locked = TRUE AND locked_until IS NOT NULL AND locked_until < $1
	`

	result, err := r.db.DB.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to unlock expired accounts: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}

func (r *userRepository) execExpectingRow(ctx context.Context, msg, query string, args ...interface{}) error {
	result, err := r.db.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", msg, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", msg, ErrNotFound)
	}

	return nil
}

func (r *userRepository) scanUser(row *sql.Row) (*domain.User, error) {
	user := &domain.User{}
	var lastLoginAt, lockedUntil sql.NullTime

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
		&lastLoginAt,
		&user.IsActive,
		&user.IsEmailVerified,
		&user.TokenVersion,
		&user.FailedLoginAttempts,
		&user.Locked,
		&lockedUntil,
	)
	if err != nil {
		return nil, err
	}

	if lastLoginAt.Valid {
		user.LastLoginAt = &lastLoginAt.Time
	}
	if lockedUntil.Valid {
		user.LockedUntil = &lockedUntil.Time
	}

	return user, nil
}
