package domain

import "time"

// User represents a fintrack account holder as seen by the auth service
type User struct {
	ID                  string     `json:"id" db:"id"`
	Email               string     `json:"email" db:"email"`
	PasswordHash        string     `json:"-" db:"password_hash"`
	CreatedAt           time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at" db:"updated_at"`
	LastLoginAt         *time.Time `json:"last_login_at" db:"last_login_at"`
	IsActive            bool       `json:"is_active" db:"is_active"`
	IsEmailVerified     bool       `json:"is_email_verified" db:"is_email_verified"`
	TokenVersion        int        `json:"-" db:"token_version"`
	FailedLoginAttempts int        `json:"-" db:"failed_login_attempts"`
	Locked              bool       `json:"-" db:"locked"`
	LockedUntil         *time.Time `json:"-" db:"locked_until"`
}

// IsLockedAt reports whether the account lock is in effect at the given time.
// An expired lock counts as unlocked (lazy unlock); the cleanup sweeper clears
// the stale row asynchronously.
func (u *User) IsLockedAt(now time.Time) bool {
	return u.Locked && u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// ClientMeta carries request-scoped client attributes used for session
// bookkeeping and rate limiting.
type ClientMeta struct {
	IP         string
	DeviceInfo string
}
