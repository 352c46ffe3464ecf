package domain

import "time"

// RefreshToken is one issued refresh token record. Only the SHA-256 hash of
// the secret is persisted; the raw secret is disclosed to the client once at
// creation time. All tokens descended from a single login share a family id.
type RefreshToken struct {
	ID         string     `json:"id" db:"id"`
	UserID     string     `json:"user_id" db:"user_id"`
	TokenHash  string     `json:"-" db:"token_hash"`
	FamilyID   string     `json:"family_id" db:"family_id"`
	DeviceInfo *string    `json:"device_info" db:"device_info"`
	IPAddress  *string    `json:"ip_address" db:"ip_address"`
	RememberMe bool       `json:"remember_me" db:"remember_me"`
	ExpiresAt  time.Time  `json:"expires_at" db:"expires_at"`
	RevokedAt  *time.Time `json:"revoked_at" db:"revoked_at"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

// IsActiveAt reports whether the record is still usable for rotation.
func (t *RefreshToken) IsActiveAt(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}

// SessionView is the user-facing representation of an active refresh token
// record, as returned by the session listing.
type SessionView struct {
	ID         string    `json:"id"`
	DeviceInfo string    `json:"device_info"`
	IPAddress  string    `json:"ip_address"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	Current    bool      `json:"current"`
}

// AccessClaims are the verified claims carried by an access token.
type AccessClaims struct {
	UserID       string
	SessionID    string
	TokenVersion int
	IssuedAt     time.Time
	ExpiresAt    time.Time
}
