package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fintrackapp/auth-service/internal/dto"
)

// AuthResult contains the auth response plus the raw refresh token secret,
// which the handler layer places in an httpOnly cookie and never logs.
type AuthResult struct {
	AuthResponse     *dto.AuthResponse
	RefreshToken     string
	RefreshExpiresIn int // Refresh token expiry in seconds
}

const notifyTimeout = 10 * time.Second

// notify delivers a message fire-and-forget. Delivery failures are logged and
// never propagate to the triggering operation.
func (s *authService) notify(to, subject, body string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		if err := s.notifier.Send(ctx, to, subject, body); err != nil {
			s.logger.Warn("notification delivery failed",
				zap.String("subject", subject), zap.Error(err))
		}
	}()
}
