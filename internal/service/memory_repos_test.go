package service

import (
	"context"
	"sync"
	"time"

	"github.com/fintrackapp/auth-service/internal/domain"
	"github.com/fintrackapp/auth-service/internal/repository"
	"github.com/google/uuid"
)

// In-memory repository fakes with the same atomicity guarantees as the SQL
// implementations: every method takes the store mutex for its whole duration,
// so the revoke-by-hash compare-and-set behaves like the single conditional
// UPDATE it mirrors.

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
	now   func() time.Time
}

func newFakeUserRepo(now func() time.Time) *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*domain.User), now: now}
}

func copyUser(u *domain.User) *domain.User {
	cp := *u
	if u.LastLoginAt != nil {
		t := *u.LastLoginAt
		cp.LastLoginAt = &t
	}
	if u.LockedUntil != nil {
		t := *u.LockedUntil
		cp.LockedUntil = &t
	}
	return &cp
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
	}

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.CreatedAt = r.now()
	user.UpdatedAt = user.CreatedAt
	r.users[user.ID] = copyUser(user)
	return nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyUser(u), nil
}

func (r *fakeUserRepo) update(id string, fn func(*domain.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(u)
	u.UpdatedAt = r.now()
	return nil
}

func (r *fakeUserRepo) UpdatePassword(_ context.Context, userID, passwordHash string) error {
	return r.update(userID, func(u *domain.User) { u.PasswordHash = passwordHash })
}

func (r *fakeUserRepo) UpdateLastLogin(_ context.Context, userID string) error {
	now := r.now()
	return r.update(userID, func(u *domain.User) { u.LastLoginAt = &now })
}

func (r *fakeUserRepo) MarkEmailVerified(_ context.Context, userID string) error {
	return r.update(userID, func(u *domain.User) { u.IsEmailVerified = true })
}

func (r *fakeUserRepo) IncrementTokenVersion(_ context.Context, userID string) error {
	return r.update(userID, func(u *domain.User) { u.TokenVersion++ })
}

func (r *fakeUserRepo) RecordLoginFailure(_ context.Context, userID string) (int, error) {
	var count int
	err := r.update(userID, func(u *domain.User) {
		u.FailedLoginAttempts++
		count = u.FailedLoginAttempts
	})
	return count, err
}

func (r *fakeUserRepo) SetLock(_ context.Context, userID string, until time.Time) error {
	return r.update(userID, func(u *domain.User) {
		u.Locked = true
		u.LockedUntil = &until
	})
}

func (r *fakeUserRepo) ClearLockState(_ context.Context, userID string) error {
	return r.update(userID, func(u *domain.User) {
		u.FailedLoginAttempts = 0
		u.Locked = false
		u.LockedUntil = nil
	})
}

func (r *fakeUserRepo) UnlockExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var unlocked int64
	for _, u := range r.users {
		if u.Locked && u.LockedUntil != nil && !now.Before(*u.LockedUntil) {
			u.FailedLoginAttempts = 0
			u.Locked = false
			u.LockedUntil = nil
			unlocked++
		}
	}
	return unlocked, nil
}

type fakeTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]*domain.RefreshToken
	now    func() time.Time
}

func newFakeTokenRepo(now func() time.Time) *fakeTokenRepo {
	return &fakeTokenRepo{tokens: make(map[string]*domain.RefreshToken), now: now}
}

func copyToken(t *domain.RefreshToken) *domain.RefreshToken {
	cp := *t
	if t.DeviceInfo != nil {
		s := *t.DeviceInfo
		cp.DeviceInfo = &s
	}
	if t.IPAddress != nil {
		s := *t.IPAddress
		cp.IPAddress = &s
	}
	if t.RevokedAt != nil {
		at := *t.RevokedAt
		cp.RevokedAt = &at
	}
	return &cp
}

func (r *fakeTokenRepo) Create(_ context.Context, token *domain.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.tokens {
		if existing.TokenHash == token.TokenHash {
			return repository.ErrDuplicateToken
		}
	}

	if token.ID == "" {
		token.ID = uuid.New().String()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = r.now()
	}
	r.tokens[token.ID] = copyToken(token)
	return nil
}

func (r *fakeTokenRepo) GetByTokenHash(_ context.Context, tokenHash string) (*domain.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.tokens {
		if t.TokenHash == tokenHash {
			return copyToken(t), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeTokenRepo) GetByID(_ context.Context, id string) (*domain.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tokens[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyToken(t), nil
}

func (r *fakeTokenRepo) GetActiveByUserID(_ context.Context, userID string) ([]*domain.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	var out []*domain.RefreshToken
	for _, t := range r.tokens {
		if t.UserID == userID && t.IsActiveAt(now) {
			out = append(out, copyToken(t))
		}
	}
	return out, nil
}

func (r *fakeTokenRepo) RevokeByTokenHash(_ context.Context, tokenHash string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.tokens {
		if t.TokenHash == tokenHash {
			if t.RevokedAt != nil {
				return repository.ErrAlreadyRevoked
			}
			revoked := at
			t.RevokedAt = &revoked
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *fakeTokenRepo) Revoke(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tokens[id]
	if !ok || t.RevokedAt != nil {
		return repository.ErrNotFound
	}
	revoked := at
	t.RevokedAt = &revoked
	return nil
}

func (r *fakeTokenRepo) RevokeFamily(_ context.Context, familyID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.tokens {
		if t.FamilyID == familyID && t.RevokedAt == nil {
			revoked := at
			t.RevokedAt = &revoked
		}
	}
	return nil
}

func (r *fakeTokenRepo) RevokeAllForUser(_ context.Context, userID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			revoked := at
			t.RevokedAt = &revoked
		}
	}
	return nil
}

func (r *fakeTokenRepo) DeleteExpired(_ context.Context, now time.Time, revokedRetention time.Duration) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for id, t := range r.tokens {
		if t.ExpiresAt.Before(now) || (t.RevokedAt != nil && t.RevokedAt.Before(now.Add(-revokedRetention))) {
			delete(r.tokens, id)
			deleted++
		}
	}
	return deleted, nil
}

type fakeVerificationRepo struct {
	mu     sync.Mutex
	tokens map[string]*domain.VerificationToken
	now    func() time.Time
}

func newFakeVerificationRepo(now func() time.Time) *fakeVerificationRepo {
	return &fakeVerificationRepo{tokens: make(map[string]*domain.VerificationToken), now: now}
}

func copyVerification(v *domain.VerificationToken) *domain.VerificationToken {
	cp := *v
	if v.UsedAt != nil {
		at := *v.UsedAt
		cp.UsedAt = &at
	}
	return &cp
}

func (r *fakeVerificationRepo) Create(_ context.Context, token *domain.VerificationToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if token.ID == "" {
		token.ID = uuid.New().String()
	}
	token.CreatedAt = r.now()
	r.tokens[token.ID] = copyVerification(token)
	return nil
}

func (r *fakeVerificationRepo) GetByTokenHash(_ context.Context, tokenHash string) (*domain.VerificationToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, v := range r.tokens {
		if v.TokenHash == tokenHash {
			return copyVerification(v), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeVerificationRepo) MarkUsed(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.tokens[id]
	if !ok || v.UsedAt != nil {
		return repository.ErrNotFound
	}
	used := at
	v.UsedAt = &used
	return nil
}

func (r *fakeVerificationRepo) SupersedeForUser(_ context.Context, userID string, kind domain.VerificationKind, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, v := range r.tokens {
		if v.UserID == userID && v.Kind == kind && v.UsedAt == nil {
			used := at
			v.UsedAt = &used
		}
	}
	return nil
}

func (r *fakeVerificationRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for id, v := range r.tokens {
		if v.ExpiresAt.Before(now) || v.UsedAt != nil {
			delete(r.tokens, id)
			deleted++
		}
	}
	return deleted, nil
}
