package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fintrackapp/auth-service/internal/domain"
	"github.com/fintrackapp/auth-service/internal/repository"
	"go.uber.org/zap"
)

// sessionService implements SessionService interface
type sessionService struct {
	users  repository.UserRepository
	tokens repository.TokenRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewSessionService creates a new session registry service
func NewSessionService(users repository.UserRepository, tokens repository.TokenRepository, logger *zap.Logger) SessionService {
	return &sessionService{
		users:  users,
		tokens: tokens,
		logger: logger,
		now:    time.Now,
	}
}

// ListSessions returns one view per active refresh token record. The caller's
// current session is flagged by record id, never by token value.
func (s *sessionService) ListSessions(ctx context.Context, userID, currentSessionID string) ([]domain.SessionView, error) {
	records, err := s.tokens.GetActiveByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	views := make([]domain.SessionView, 0, len(records))
	for _, record := range records {
		view := domain.SessionView{
			ID:        record.ID,
			CreatedAt: record.CreatedAt,
			ExpiresAt: record.ExpiresAt,
			Current:   record.ID == currentSessionID,
		}
		if record.DeviceInfo != nil {
			view.DeviceInfo = *record.DeviceInfo
		}
		if record.IPAddress != nil {
			view.IPAddress = *record.IPAddress
		}
		views = append(views, view)
	}

	return views, nil
}

// RevokeSession terminates a single session. The caller's own session must be
// ended through logout instead.
func (s *sessionService) RevokeSession(ctx context.Context, userID, sessionID, currentSessionID string) error {
	if sessionID == currentSessionID {
		return ErrCannotRevokeCurrentSession
	}

	record, err := s.tokens.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("failed to get session record: %w", err)
	}

	// A foreign or already-dead record is indistinguishable from a missing one.
	if record.UserID != userID || !record.IsActiveAt(s.now()) {
		return ErrSessionNotFound
	}

	if err := s.tokens.Revoke(ctx, record.ID, s.now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	return nil
}

// RevokeAllSessions revokes every refresh token family and bumps the token
// version, invalidating all outstanding access tokens. Deliberately
// destructive: it ends the caller's own session too.
func (s *sessionService) RevokeAllSessions(ctx context.Context, userID string) error {
	if err := s.tokens.RevokeAllForUser(ctx, userID, s.now()); err != nil {
		return fmt.Errorf("failed to revoke user sessions: %w", err)
	}

	if err := s.users.IncrementTokenVersion(ctx, userID); err != nil {
		return fmt.Errorf("failed to increment token version: %w", err)
	}

	s.logger.Info("all sessions revoked", zap.String("user_id", userID))

	return nil
}
