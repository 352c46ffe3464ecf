package service

import (
	"context"
	"time"

	"github.com/fintrackapp/auth-service/internal/config"
	"github.com/fintrackapp/auth-service/internal/repository"
	"go.uber.org/zap"
)

// Sweeper runs the periodic maintenance passes: purging dead token rows,
// releasing expired account locks, and dropping stale rate limiter buckets.
// Every pass is also safe to miss; lock and token expiry are always checked
// lazily on the hot paths, so a crashed sweeper never extends a lock or
// revives a token.
type Sweeper struct {
	users            repository.UserRepository
	tokens           repository.TokenRepository
	verifications    repository.VerificationRepository
	limiter          RateLimiter
	logger           *zap.Logger
	tokenInterval    time.Duration
	lockInterval     time.Duration
	bucketInterval   time.Duration
	revokedRetention time.Duration
	now              func() time.Time
}

// NewSweeper creates a cleanup sweeper from the cleanup config section.
func NewSweeper(
	users repository.UserRepository,
	tokens repository.TokenRepository,
	verifications repository.VerificationRepository,
	limiter RateLimiter,
	cfg config.CleanupConfig,
	logger *zap.Logger,
) *Sweeper {
	return &Sweeper{
		users:            users,
		tokens:           tokens,
		verifications:    verifications,
		limiter:          limiter,
		logger:           logger,
		tokenInterval:    cfg.TokenSweepInterval.Duration,
		lockInterval:     cfg.LockSweepInterval.Duration,
		bucketInterval:   cfg.BucketSweepInterval.Duration,
		revokedRetention: cfg.RevokedRetention.Duration,
		now:              time.Now,
	}
}

// Run blocks until ctx is cancelled, firing each sweep on its own ticker.
func (s *Sweeper) Run(ctx context.Context) {
	tokenTicker := time.NewTicker(s.tokenInterval)
	lockTicker := time.NewTicker(s.lockInterval)
	bucketTicker := time.NewTicker(s.bucketInterval)
	defer tokenTicker.Stop()
	defer lockTicker.Stop()
	defer bucketTicker.Stop()

	s.logger.Info("cleanup sweeper started",
		zap.Duration("token_interval", s.tokenInterval),
		zap.Duration("lock_interval", s.lockInterval),
		zap.Duration("bucket_interval", s.bucketInterval),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("cleanup sweeper stopped")
			return
		case <-tokenTicker.C:
			s.SweepTokens(ctx)
		case <-lockTicker.C:
			s.SweepLocks(ctx)
		case <-bucketTicker.C:
			s.SweepBuckets(ctx)
		}
	}
}

// SweepTokens deletes expired refresh token rows, revoked rows past the
// retention window, and spent or expired verification tokens.
func (s *Sweeper) SweepTokens(ctx context.Context) {
	now := s.now()

	deleted, err := s.tokens.DeleteExpired(ctx, now, s.revokedRetention)
	if err != nil {
		s.logger.Error("refresh token sweep failed", zap.Error(err))
	} else if deleted > 0 {
		s.logger.Info("swept refresh tokens", zap.Int64("deleted", deleted))
	}

	deleted, err = s.verifications.DeleteExpired(ctx, now)
	if err != nil {
		s.logger.Error("verification token sweep failed", zap.Error(err))
	} else if deleted > 0 {
		s.logger.Info("swept verification tokens", zap.Int64("deleted", deleted))
	}
}

// SweepLocks clears accounts whose lock window has elapsed. Purely cosmetic
// for correctness, since CheckLocked compares against the deadline anyway.
func (s *Sweeper) SweepLocks(ctx context.Context) {
	unlocked, err := s.users.UnlockExpired(ctx, s.now())
	if err != nil {
		s.logger.Error("lock sweep failed", zap.Error(err))
		return
	}
	if unlocked > 0 {
		s.logger.Info("released expired account locks", zap.Int64("unlocked", unlocked))
	}
}

// SweepBuckets asks the rate limiter to drop stale buckets.
func (s *Sweeper) SweepBuckets(ctx context.Context) {
	if err := s.limiter.Cleanup(ctx); err != nil {
		s.logger.Error("rate limit bucket sweep failed", zap.Error(err))
	}
}
