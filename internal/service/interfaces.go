package service

import (
	"context"
	"time"

	"github.com/fintrackapp/auth-service/internal/domain"
	"github.com/fintrackapp/auth-service/internal/dto"
)

// AuthService defines methods for credential and token lifecycle operations
type AuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest, meta domain.ClientMeta) (*AuthResult, error)
	Login(ctx context.Context, req *dto.LoginRequest, meta domain.ClientMeta) (*AuthResult, error)
	Refresh(ctx context.Context, refreshToken string, meta domain.ClientMeta) (*AuthResult, error)
	Logout(ctx context.Context, refreshToken string) error
	VerifyAccess(ctx context.Context, accessToken string) (*domain.AccessClaims, error)
	GetUser(ctx context.Context, userID string) (*dto.UserResponse, error)

	RequestEmailVerification(ctx context.Context, email string, meta domain.ClientMeta) error
	ConfirmEmailVerification(ctx context.Context, verificationToken string) error
	RequestPasswordReset(ctx context.Context, email string, meta domain.ClientMeta) error
	ConfirmPasswordReset(ctx context.Context, resetToken, newPassword string) error
}

// SessionService defines methods for the session registry
type SessionService interface {
	ListSessions(ctx context.Context, userID, currentSessionID string) ([]domain.SessionView, error)
	RevokeSession(ctx context.Context, userID, sessionID, currentSessionID string) error
	RevokeAllSessions(ctx context.Context, userID string) error
}

// RateLimiter is the sliding-window attempt counter applied to sensitive
// operations. Check either records the attempt and returns nil, or returns a
// RateLimitError without recording it. Cleanup bounds memory by dropping
// buckets that have gone stale; shared-store implementations may make it a
// no-op.
type RateLimiter interface {
	Check(ctx context.Context, operation, key string, maxAttempts int, window time.Duration) error
	Cleanup(ctx context.Context) error
}

// Rate-limited operation names.
const (
	OpLogin                = "login"
	OpRegister             = "register"
	OpRefresh              = "refresh"
	OpVerificationRequest  = "verification_request"
	OpPasswordResetRequest = "password_reset_request"
)

// Notifier delivers out-of-band messages (email). Implementations are invoked
// fire-and-forget: a delivery failure never fails the triggering operation.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}
