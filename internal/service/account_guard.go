package service

import (
	"context"
	"fmt"
	"time"

	"github.com/fintrackapp/auth-service/internal/domain"
	"github.com/fintrackapp/auth-service/internal/repository"
	"go.uber.org/zap"
)

// AccountGuard applies the lockout policy: N consecutive failed logins lock
// the account for the configured duration; a successful login heals all prior
// failure state. An expired lock is treated as unlocked at read time, the
// sweeper clears stale rows eagerly as a second line of defense.
type AccountGuard struct {
	users        repository.UserRepository
	maxAttempts  int
	lockDuration time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

// NewAccountGuard creates a new account guard
func NewAccountGuard(users repository.UserRepository, maxAttempts int, lockDuration time.Duration, logger *zap.Logger) *AccountGuard {
	return &AccountGuard{
		users:        users,
		maxAttempts:  maxAttempts,
		lockDuration: lockDuration,
		logger:       logger,
		now:          time.Now,
	}
}

// CheckLocked returns an AccountLockedError with the remaining duration when
// the lock is in effect. A locked attempt consumes neither a rate-limit slot
// nor a failed-attempt increment; the lock itself is the defense.
func (g *AccountGuard) CheckLocked(user *domain.User) error {
	now := g.now()
	if !user.IsLockedAt(now) {
		return nil
	}

	return &AccountLockedError{RetryAfter: user.LockedUntil.Sub(now)}
}

// RecordFailure increments the failed-attempt counter and locks the account
// once the threshold is crossed.
func (g *AccountGuard) RecordFailure(ctx context.Context, user *domain.User) error {
	count, err := g.users.RecordLoginFailure(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("failed to record login failure: %w", err)
	}

	if count < g.maxAttempts {
		return nil
	}

	until := g.now().Add(g.lockDuration)
	if err := g.users.SetLock(ctx, user.ID, until); err != nil {
		return fmt.Errorf("failed to lock account: %w", err)
	}

	g.logger.Warn("account locked after repeated login failures",
		zap.String("user_id", user.ID),
		zap.Int("failed_attempts", count),
		zap.Time("locked_until", until),
	)

	return nil
}

// RecordSuccess resets the counter and clears lock fields unconditionally.
// The write is skipped when there is nothing to heal.
func (g *AccountGuard) RecordSuccess(ctx context.Context, user *domain.User) error {
	if user.FailedLoginAttempts == 0 && !user.Locked {
		return nil
	}

	if err := g.users.ClearLockState(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to clear lock state: %w", err)
	}

	return nil
}
