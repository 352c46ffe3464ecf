package service

import (
	"context"
	"testing"
	"time"

	"github.com/fintrackapp/auth-service/internal/domain"
	"github.com/fintrackapp/auth-service/internal/dto"
	"github.com/fintrackapp/auth-service/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailVerificationFlow(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, testEmail, false)
	ctx := context.Background()

	secret, err := env.auth.issueVerificationToken(ctx, user, domain.VerificationKindEmail, env.auth.verificationTTL)
	require.NoError(t, err)

	require.NoError(t, env.auth.ConfirmEmailVerification(ctx, secret))

	stored, err := env.users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsEmailVerified)

	// Single use.
	err = env.auth.ConfirmEmailVerification(ctx, secret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerificationTokenSuperseded(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, testEmail, false)
	ctx := context.Background()

	older, err := env.auth.issueVerificationToken(ctx, user, domain.VerificationKindEmail, env.auth.verificationTTL)
	require.NoError(t, err)
	newer, err := env.auth.issueVerificationToken(ctx, user, domain.VerificationKindEmail, env.auth.verificationTTL)
	require.NoError(t, err)

	assert.ErrorIs(t, env.auth.ConfirmEmailVerification(ctx, older), ErrInvalidToken)
	assert.NoError(t, env.auth.ConfirmEmailVerification(ctx, newer))
}

func TestVerificationTokenExpired(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, testEmail, false)
	ctx := context.Background()

	secret, err := env.auth.issueVerificationToken(ctx, user, domain.VerificationKindEmail, env.auth.verificationTTL)
	require.NoError(t, err)

	env.clock.Advance(24*time.Hour + time.Minute)

	assert.ErrorIs(t, env.auth.ConfirmEmailVerification(ctx, secret), ErrTokenExpired)
}

func TestVerificationTokenWrongKind(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, testEmail, false)
	ctx := context.Background()

	secret, err := env.auth.issueVerificationToken(ctx, user, domain.VerificationKindEmail, env.auth.verificationTTL)
	require.NoError(t, err)

	// An email verification code cannot reset a password.
	err = env.auth.ConfirmPasswordReset(ctx, secret, "NewP4ssword")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRequestEmailVerificationSilentOnUnknown(t *testing.T) {
	env := newTestEnv(t)

	assert.NoError(t, env.auth.RequestEmailVerification(context.Background(), "nobody@example.com", testMeta))
	assert.Empty(t, env.verifs.tokens)
}

func TestRequestEmailVerificationSkipsVerified(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, testEmail, true)

	assert.NoError(t, env.auth.RequestEmailVerification(context.Background(), testEmail, testMeta))
	assert.Empty(t, env.verifs.tokens)
}

func TestRequestEmailVerificationRateLimited(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, testEmail, false)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, env.auth.RequestEmailVerification(ctx, testEmail, testMeta))
	}

	err := env.auth.RequestEmailVerification(ctx, testEmail, testMeta)
	assert.ErrorIs(t, err, ErrRateLimitExceeded)
}

func TestPasswordResetFlow(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, testEmail, true)
	ctx := context.Background()

	session := env.login(t, testEmail)

	secret, err := env.auth.issueVerificationToken(ctx, user, domain.VerificationKindReset, env.auth.resetTTL)
	require.NoError(t, err)

	const newPassword = "Fr3shSecret"
	require.NoError(t, env.auth.ConfirmPasswordReset(ctx, secret, newPassword))

	// Old password dead, new one works.
	_, err = env.auth.Login(ctx,
		&dto.LoginRequest{Email: testEmail, Password: testPassword}, testMeta)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = env.auth.Login(ctx,
		&dto.LoginRequest{Email: testEmail, Password: newPassword}, testMeta)
	assert.NoError(t, err)

	// Every pre-reset credential is invalidated.
	_, err = env.auth.VerifyAccess(ctx, session.AuthResponse.AccessToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
	_, err = env.auth.Refresh(ctx, session.RefreshToken, testMeta)
	assert.ErrorIs(t, err, ErrTokenReuseDetected)

	// Reset token is single use.
	err = env.auth.ConfirmPasswordReset(ctx, secret, "An0therSecret")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestConfirmPasswordResetWeakPassword(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, testEmail, true)
	ctx := context.Background()

	secret, err := env.auth.issueVerificationToken(ctx, user, domain.VerificationKindReset, env.auth.resetTTL)
	require.NoError(t, err)

	require.Error(t, env.auth.ConfirmPasswordReset(ctx, secret, "weak"))

	// The rejected attempt must not have consumed the token.
	record, err := env.verifs.GetByTokenHash(ctx, utils.HashTokenSecret(secret))
	require.NoError(t, err)
	assert.Nil(t, record.UsedAt)
}

func TestRequestPasswordResetSilentOnUnknown(t *testing.T) {
	env := newTestEnv(t)

	assert.NoError(t, env.auth.RequestPasswordReset(context.Background(), "nobody@example.com", testMeta))
	assert.Empty(t, env.verifs.tokens)
}
