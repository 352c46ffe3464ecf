package domain

import "time"

// VerificationKind distinguishes single-use token purposes.
type VerificationKind string

const (
	VerificationKindEmail VerificationKind = "verification"
	VerificationKindReset VerificationKind = "reset"
)

// VerificationToken is a single-use token for email verification or password
// reset. A token is valid iff UsedAt is nil and the expiry has not passed;
// requesting a new token supersedes earlier ones of the same kind.
type VerificationToken struct {
	ID        string           `json:"id" db:"id"`
	UserID    string           `json:"user_id" db:"user_id"`
	TokenHash string           `json:"-" db:"token_hash"`
	Kind      VerificationKind `json:"kind" db:"kind"`
	ExpiresAt time.Time        `json:"expires_at" db:"expires_at"`
	UsedAt    *time.Time       `json:"used_at" db:"used_at"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}

// IsValidAt reports whether the token can still be consumed.
func (v *VerificationToken) IsValidAt(now time.Time) bool {
	return v.UsedAt == nil && now.Before(v.ExpiresAt)
}
