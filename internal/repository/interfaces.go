package repository

import (
	"context"
	"time"

	"github.com/fintrackapp/auth-service/internal/domain"
)

// UserRepository defines methods for credential store operations
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	UpdateLastLogin(ctx context.Context, userID string) error
	MarkEmailVerified(ctx context.Context, userID string) error

	// IncrementTokenVersion bumps the per-user counter embedded in access
	// tokens. The counter only ever increases.
	IncrementTokenVersion(ctx context.Context, userID string) error

	// RecordLoginFailure atomically increments the failed-attempt counter and
	// returns the new value.
	RecordLoginFailure(ctx context.Context, userID string) (int, error)

	// SetLock marks the account locked until the given time.
	SetLock(ctx context.Context, userID string, until time.Time) error

	// ClearLockState resets the failed-attempt counter and clears the lock
	// fields unconditionally.
	ClearLockState(ctx context.Context, userID string) error

	// UnlockExpired clears lock state on every account whose lock expiry has
	// passed. Returns the number of unlocked accounts.
	UnlockExpired(ctx context.Context, now time.Time) (int64, error)
}

// TokenRepository defines methods for the refresh token store
type TokenRepository interface {
	Create(ctx context.Context, token *domain.RefreshToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)
	GetByID(ctx context.Context, id string) (*domain.RefreshToken, error)
	GetActiveByUserID(ctx context.Context, userID string) ([]*domain.RefreshToken, error)

	// RevokeByTokenHash sets revoked-at on the matching record only if it is
	// not already set. This single conditional update is the atomic
	// compare-and-set the rotation protocol relies on: of two concurrent
	// rotations presenting the same token, exactly one observes success.
	// Returns ErrAlreadyRevoked when the record exists but was revoked,
	// ErrNotFound when no record matches.
	RevokeByTokenHash(ctx context.Context, tokenHash string, at time.Time) error

	// Revoke sets revoked-at on a single record by id (selective session
	// termination).
	Revoke(ctx context.Context, id string, at time.Time) error

	// RevokeFamily sets revoked-at on every non-revoked record of the family.
	RevokeFamily(ctx context.Context, familyID string, at time.Time) error

	// RevokeAllForUser revokes every family belonging to the user.
	RevokeAllForUser(ctx context.Context, userID string, at time.Time) error

	// DeleteExpired removes expired records as well as revoked records older
	// than the retention period. Returns the number of deleted rows.
	DeleteExpired(ctx context.Context, now time.Time, revokedRetention time.Duration) (int64, error)
}

// VerificationRepository defines methods for single-use verification and
// password reset tokens
type VerificationRepository interface {
	Create(ctx context.Context, token *domain.VerificationToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.VerificationToken, error)

	// MarkUsed sets used-at, but only once; a second call for the same record
	// returns ErrNotFound.
	MarkUsed(ctx context.Context, id string, at time.Time) error

	// SupersedeForUser invalidates earlier unused tokens of the same kind
	// before a new one is issued.
	SupersedeForUser(ctx context.Context, userID string, kind domain.VerificationKind, at time.Time) error

	// DeleteExpired removes expired and consumed records. Returns the number
	// of deleted rows.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
