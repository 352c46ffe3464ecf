package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fintrackapp/auth-service/internal/domain"
	"github.com/fintrackapp/auth-service/internal/repository"
	"github.com/fintrackapp/auth-service/internal/utils"
	"go.uber.org/zap"
)

// RequestEmailVerification issues a fresh single-use verification token.
// Unknown addresses succeed silently so the endpoint cannot be used to probe
// which emails are registered.
func (s *authService) RequestEmailVerification(ctx context.Context, email string, meta domain.ClientMeta) error {
	key := utils.SanitizeEmail(email) + "|" + meta.IP
	if err := s.limiter.Check(ctx, OpVerificationRequest, key, s.tokenLimit.Max, s.tokenLimit.Window); err != nil {
		return err
	}

	user, err := s.users.GetByEmail(ctx, utils.SanitizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	if user.IsEmailVerified {
		return nil
	}

	return s.issueVerificationEmail(ctx, user)
}

// ConfirmEmailVerification consumes a verification token and marks the email
// verified.
func (s *authService) ConfirmEmailVerification(ctx context.Context, verificationToken string) error {
	record, err := s.consumeVerificationToken(ctx, verificationToken, domain.VerificationKindEmail)
	if err != nil {
		return err
	}

	if err := s.users.MarkEmailVerified(ctx, record.UserID); err != nil {
		return fmt.Errorf("failed to mark email verified: %w", err)
	}

	return nil
}

// RequestPasswordReset issues a fresh single-use reset token. As with
// verification requests, unknown addresses succeed silently.
func (s *authService) RequestPasswordReset(ctx context.Context, email string, meta domain.ClientMeta) error {
	key := utils.SanitizeEmail(email) + "|" + meta.IP
	if err := s.limiter.Check(ctx, OpPasswordResetRequest, key, s.tokenLimit.Max, s.tokenLimit.Window); err != nil {
		return err
	}

	user, err := s.users.GetByEmail(ctx, utils.SanitizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	secret, err := s.issueVerificationToken(ctx, user, domain.VerificationKindReset, s.resetTTL)
	if err != nil {
		return err
	}

	s.notify(user.Email, "Reset your fintrack password",
		"Use this code to reset your password: "+secret+
			"\nThe code expires in "+s.resetTTL.String()+". If you didn't request this, you can ignore this message.")

	return nil
}

// ConfirmPasswordReset consumes a reset token, replaces the password, bumps
// the token version and revokes every refresh token family, ending all
// sessions.
func (s *authService) ConfirmPasswordReset(ctx context.Context, resetToken, newPassword string) error {
	if !utils.ValidatePassword(newPassword) {
		return fmt.Errorf("password must be at least 8 characters long and contain uppercase, lowercase, and number")
	}

	record, err := s.consumeVerificationToken(ctx, resetToken, domain.VerificationKindReset)
	if err != nil {
		return err
	}

	passwordHash, err := utils.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, record.UserID, passwordHash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if err := s.tokens.RevokeAllForUser(ctx, record.UserID, s.now()); err != nil {
		return fmt.Errorf("failed to revoke sessions after password reset: %w", err)
	}

	if err := s.users.IncrementTokenVersion(ctx, record.UserID); err != nil {
		return fmt.Errorf("failed to increment token version: %w", err)
	}

	if user, err := s.users.GetByID(ctx, record.UserID); err == nil {
		s.notify(user.Email, "Your fintrack password was changed",
			"Your password was just changed and all devices were signed out. If this wasn't you, contact support immediately.")
	}

	return nil
}

// issueVerificationEmail creates an email verification token and sends it.
func (s *authService) issueVerificationEmail(ctx context.Context, user *domain.User) error {
	secret, err := s.issueVerificationToken(ctx, user, domain.VerificationKindEmail, s.verificationTTL)
	if err != nil {
		return err
	}

	s.notify(user.Email, "Verify your fintrack email",
		"Use this code to verify your email address: "+secret+
			"\nThe code expires in "+s.verificationTTL.String()+".")

	return nil
}

// issueVerificationToken supersedes earlier unused tokens of the same kind and
// stores a new hashed token, returning the raw secret for delivery.
func (s *authService) issueVerificationToken(ctx context.Context, user *domain.User, kind domain.VerificationKind, ttl time.Duration) (string, error) {
	now := s.now()

	if err := s.verifications.SupersedeForUser(ctx, user.ID, kind, now); err != nil {
		return "", fmt.Errorf("failed to supersede verification tokens: %w", err)
	}

	secret, err := utils.NewTokenSecret()
	if err != nil {
		return "", fmt.Errorf("failed to generate verification secret: %w", err)
	}

	record := &domain.VerificationToken{
		UserID:    user.ID,
		TokenHash: utils.HashTokenSecret(secret),
		Kind:      kind,
		ExpiresAt: now.Add(ttl),
	}

	if err := s.verifications.Create(ctx, record); err != nil {
		return "", fmt.Errorf("failed to save verification token: %w", err)
	}

	s.logger.Debug("verification token issued",
		zap.String("user_id", user.ID), zap.String("kind", string(kind)))

	return secret, nil
}

// consumeVerificationToken validates and single-use-consumes a token of the
// expected kind.
func (s *authService) consumeVerificationToken(ctx context.Context, raw string, kind domain.VerificationKind) (*domain.VerificationToken, error) {
	record, err := s.verifications.GetByTokenHash(ctx, utils.HashTokenSecret(raw))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to get verification token: %w", err)
	}

	if record.Kind != kind || record.UsedAt != nil {
		return nil, ErrInvalidToken
	}

	if !s.now().Before(record.ExpiresAt) {
		return nil, ErrTokenExpired
	}

	// used-at is set at most once; losing this race means the token was
	// consumed concurrently.
	if err := s.verifications.MarkUsed(ctx, record.ID, s.now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to consume verification token: %w", err)
	}

	return record, nil
}
