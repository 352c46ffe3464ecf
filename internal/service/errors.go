package service

import (
	"errors"
	"fmt"
	"time"
)

// Expected, recoverable-by-caller failure kinds. All of them surface directly
// at the API boundary; the service performs no internal retries.
var (
	// ErrInvalidCredentials covers both unknown email and wrong password so
	// responses cannot be used for account enumeration.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrEmailNotVerified is returned on login when the account email has not
	// been confirmed yet.
	ErrEmailNotVerified = errors.New("email not verified")

	// ErrEmailTaken is returned on registration for an existing email.
	ErrEmailTaken = errors.New("user with this email already exists")

	// ErrInvalidToken is returned for malformed or unknown tokens.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired is returned for structurally valid tokens past expiry.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenRevoked is returned when an access token's embedded token
	// version no longer matches the user's stored version.
	ErrTokenRevoked = errors.New("token revoked")

	// ErrTokenReuseDetected is returned when an already-rotated refresh token
	// is presented again. Family revocation has completed by the time this is
	// returned.
	ErrTokenReuseDetected = errors.New("refresh token reuse detected")

	// ErrSessionNotFound is returned when a session record does not exist or
	// belongs to another user.
	ErrSessionNotFound = errors.New("session not found")

	// ErrCannotRevokeCurrentSession is returned when selective termination
	// targets the caller's own session; logout must be used instead.
	ErrCannotRevokeCurrentSession = errors.New("cannot revoke current session")

	// ErrAccountLocked is the errors.Is target for AccountLockedError.
	ErrAccountLocked = errors.New("account locked")

	// ErrRateLimitExceeded is the errors.Is target for RateLimitError.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)

// AccountLockedError carries the remaining lockout duration. Disclosing retry
// timing is acceptable here since it does not aid enumeration.
type AccountLockedError struct {
	RetryAfter time.Duration
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account locked, try again in %v", e.RetryAfter.Round(time.Second))
}

// Is makes errors.Is(err, ErrAccountLocked) match.
func (e *AccountLockedError) Is(target error) bool {
	return target == ErrAccountLocked
}

// RateLimitError carries the duration until the next attempt may succeed.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, try again in %v", e.RetryAfter.Round(time.Second))
}

// Is makes errors.Is(err, ErrRateLimitExceeded) match.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimitExceeded
}
