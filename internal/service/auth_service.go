package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fintrackapp/auth-service/internal/config"
	"github.com/fintrackapp/auth-service/internal/domain"
	"github.com/fintrackapp/auth-service/internal/dto"
	"github.com/fintrackapp/auth-service/internal/repository"
	"github.com/fintrackapp/auth-service/internal/token"
	"github.com/fintrackapp/auth-service/internal/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// authService implements AuthService interface
type authService struct {
	users         repository.UserRepository
	tokens        repository.TokenRepository
	verifications repository.VerificationRepository
	issuer        *token.Issuer
	guard         *AccountGuard
	limiter       RateLimiter
	notifier      Notifier
	logger        *zap.Logger

	bcryptCost           int
	refreshTTL           time.Duration
	rememberMeRefreshTTL time.Duration
	verificationTTL      time.Duration
	resetTTL             time.Duration
	requireVerifiedEmail bool
	loginLimit           limitRule
	tokenLimit           limitRule

	now func() time.Time
}

type limitRule struct {
	Max    int
	Window time.Duration
}

// NewAuthService creates a new auth service
func NewAuthService(
	repos *repository.Repositories,
	issuer *token.Issuer,
	guard *AccountGuard,
	limiter RateLimiter,
	notifier Notifier,
	cfg *config.Config,
	logger *zap.Logger,
) AuthService {
	return &authService{
		users:                repos.User,
		tokens:               repos.Token,
		verifications:        repos.Verification,
		issuer:               issuer,
		guard:                guard,
		limiter:              limiter,
		notifier:             notifier,
		logger:               logger,
		bcryptCost:           cfg.Security.BCryptCost,
		refreshTTL:           cfg.JWT.RefreshTokenExpiry.Duration,
		rememberMeRefreshTTL: cfg.JWT.RememberMeRefreshTokenExpiry.Duration,
		verificationTTL:      cfg.Security.VerificationTokenExpiry.Duration,
		resetTTL:             cfg.Security.PasswordResetTokenExpiry.Duration,
		requireVerifiedEmail: cfg.Security.RequireVerifiedEmailOnAuth,
		loginLimit:           limitRule{Max: cfg.RateLimit.LoginMax, Window: cfg.RateLimit.LoginWindow.Duration},
		tokenLimit:           limitRule{Max: cfg.RateLimit.TokenMax, Window: cfg.RateLimit.TokenWindow.Duration},
		now:                  time.Now,
	}
}

// Register registers a new user
func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest, meta domain.ClientMeta) (*AuthResult, error) {
	if !utils.ValidateEmail(req.Email) {
		return nil, fmt.Errorf("invalid email format")
	}

	if !utils.ValidatePassword(req.Password) {
		return nil, fmt.Errorf("password must be at least 8 characters long and contain uppercase, lowercase, and number")
	}

	email := utils.SanitizeEmail(req.Email)

	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check user existence: %w", err)
	}

	passwordHash, err := utils.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		Email:           email,
		PasswordHash:    passwordHash,
		IsActive:        true,
		IsEmailVerified: false,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := s.issueVerificationEmail(ctx, user); err != nil {
		// Registration already succeeded; the user can re-request later.
		s.logger.Warn("failed to issue verification email",
			zap.String("user_id", user.ID), zap.Error(err))
	}

	return s.startSession(ctx, user, meta, false)
}

// Login authenticates a user and starts a new token family
func (s *authService) Login(ctx context.Context, req *dto.LoginRequest, meta domain.ClientMeta) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, utils.SanitizeEmail(req.Email))
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	// A locked account is rejected before the limiter runs: the lock itself is
	// the defense and such attempts consume no rate-limit slot.
	if user != nil {
		if err := s.guard.CheckLocked(user); err != nil {
			return nil, err
		}
	}

	if err := s.limiter.Check(ctx, OpLogin, meta.IP, s.loginLimit.Max, s.loginLimit.Window); err != nil {
		return nil, err
	}

	if user == nil || !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	if !utils.CheckPasswordHash(req.Password, user.PasswordHash) {
		if err := s.guard.RecordFailure(ctx, user); err != nil {
			s.logger.Error("failed to record login failure",
				zap.String("user_id", user.ID), zap.Error(err))
		}
		return nil, ErrInvalidCredentials
	}

	// Only enforced after the password check so the response cannot be used
	// to probe which addresses are registered.
	if s.requireVerifiedEmail && !user.IsEmailVerified {
		return nil, ErrEmailNotVerified
	}

	if err := s.guard.RecordSuccess(ctx, user); err != nil {
		return nil, err
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn("failed to update last login",
			zap.String("user_id", user.ID), zap.Error(err))
	}

	return s.startSession(ctx, user, meta, req.RememberMe)
}

// Refresh validates and rotates a refresh token, minting a new access token.
// Presenting an already-consumed token is treated as theft: the whole family
// is revoked before the error is returned.
func (s *authService) Refresh(ctx context.Context, refreshToken string, meta domain.ClientMeta) (*AuthResult, error) {
	tokenHash := utils.HashTokenSecret(refreshToken)
	now := s.now()

	record, err := s.tokens.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	if record.RevokedAt != nil {
		return nil, s.handleReuse(ctx, record)
	}

	if !now.Before(record.ExpiresAt) {
		// Left in place for the cleanup sweeper.
		return nil, ErrTokenExpired
	}

	// Atomic compare-and-set on revoked-at. Of two concurrent rotations of the
	// same token exactly one wins; the loser observes ErrAlreadyRevoked and
	// goes down the reuse path.
	if err := s.tokens.RevokeByTokenHash(ctx, tokenHash, now); err != nil {
		if errors.Is(err, repository.ErrAlreadyRevoked) {
			return nil, s.handleReuse(ctx, record)
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to consume token: %w", err)
	}

	user, err := s.users.GetByID(ctx, record.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !user.IsActive {
		return nil, ErrInvalidToken
	}

	return s.continueFamily(ctx, user, record, meta)
}

// Logout revokes the single matching refresh token record. It is idempotent:
// an already-revoked or unknown token is not an error.
func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	err := s.tokens.RevokeByTokenHash(ctx, utils.HashTokenSecret(refreshToken), s.now())
	if err != nil && !errors.Is(err, repository.ErrNotFound) && !errors.Is(err, repository.ErrAlreadyRevoked) {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	return nil
}

// VerifyAccess validates an access token. Beyond signature and expiry, the
// embedded token version must equal the user's current stored version, which
// is how "log out everywhere" invalidates every outstanding access token
// without a blocklist.
func (s *authService) VerifyAccess(ctx context.Context, accessToken string) (*domain.AccessClaims, error) {
	claims, err := s.issuer.Parse(accessToken)
	if err != nil {
		if errors.Is(err, token.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !user.IsActive {
		return nil, ErrTokenRevoked
	}

	if claims.TokenVersion != user.TokenVersion {
		return nil, ErrTokenRevoked
	}

	return claims, nil
}

// GetUser gets user information
func (s *authService) GetUser(ctx context.Context, userID string) (*dto.UserResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	response := &dto.UserResponse{
		ID:              user.ID,
		Email:           user.Email,
		CreatedAt:       user.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       user.UpdatedAt.Format(time.RFC3339),
		IsEmailVerified: user.IsEmailVerified,
	}

	if user.LastLoginAt != nil {
		lastLogin := user.LastLoginAt.Format(time.RFC3339)
		response.LastLoginAt = &lastLogin
	}

	return response, nil
}

// handleReuse revokes the whole family of a replayed token. The revocation is
// not optional: if it fails, the failure propagates instead of the reuse
// error, since silently keeping a compromised family alive defeats the
// control.
func (s *authService) handleReuse(ctx context.Context, record *domain.RefreshToken) error {
	if err := s.tokens.RevokeFamily(ctx, record.FamilyID, s.now()); err != nil {
		return fmt.Errorf("failed to revoke token family after reuse: %w", err)
	}

	s.logger.Warn("refresh token reuse detected, family revoked",
		zap.String("user_id", record.UserID),
		zap.String("family_id", record.FamilyID),
	)

	if user, err := s.users.GetByID(ctx, record.UserID); err == nil {
		s.notify(user.Email, "Security alert",
			"A sign-in token for your account was used twice. All sessions in that line have been signed out. "+
				"If this wasn't you, please change your password.")
	}

	return ErrTokenReuseDetected
}

// startSession creates the first refresh token of a new family and mints the
// matching access token.
func (s *authService) startSession(ctx context.Context, user *domain.User, meta domain.ClientMeta, rememberMe bool) (*AuthResult, error) {
	return s.createRefreshRecord(ctx, user, meta, rememberMe, uuid.New().String())
}

// continueFamily creates the successor record of a rotated token, carrying the
// family id and remember-me rule forward.
func (s *authService) continueFamily(ctx context.Context, user *domain.User, prev *domain.RefreshToken, meta domain.ClientMeta) (*AuthResult, error) {
	return s.createRefreshRecord(ctx, user, meta, prev.RememberMe, prev.FamilyID)
}

func (s *authService) createRefreshRecord(ctx context.Context, user *domain.User, meta domain.ClientMeta, rememberMe bool, familyID string) (*AuthResult, error) {
	secret, err := utils.NewTokenSecret()
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh secret: %w", err)
	}

	ttl := s.refreshTTL
	if rememberMe {
		ttl = s.rememberMeRefreshTTL
	}

	record := &domain.RefreshToken{
		UserID:     user.ID,
		TokenHash:  utils.HashTokenSecret(secret),
		FamilyID:   familyID,
		RememberMe: rememberMe,
		ExpiresAt:  s.now().Add(ttl),
	}
	if meta.DeviceInfo != "" {
		record.DeviceInfo = &meta.DeviceInfo
	}
	if meta.IP != "" {
		record.IPAddress = &meta.IP
	}

	if err := s.tokens.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save refresh token: %w", err)
	}

	accessToken, err := s.issuer.Issue(user.ID, user.TokenVersion, record.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return &AuthResult{
		AuthResponse: &dto.AuthResponse{
			AccessToken: accessToken,
			TokenType:   "Bearer",
			ExpiresIn:   int(s.issuer.TTL().Seconds()),
			User: dto.UserInfo{
				ID:    user.ID,
				Email: user.Email,
			},
		},
		RefreshToken:     secret,
		RefreshExpiresIn: int(ttl.Seconds()),
	}, nil
}
