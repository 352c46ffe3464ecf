package utils

import (
	"regexp"
	"strings"
)

// bcrypt silently works on at most 72 bytes, so longer passwords are
// rejected up front rather than truncated.
const maxPasswordBytes = 72

const maxEmailLength = 254

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidateEmail reports whether the address is plausible enough to store.
func ValidateEmail(email string) bool {
	return len(email) <= maxEmailLength && emailRegex.MatchString(email)
}

// ValidatePassword enforces the password policy: 8 to 72 bytes with at
// least one uppercase letter, one lowercase letter and one digit.
func ValidatePassword(password string) bool {
	if len(password) < 8 || len(password) > maxPasswordBytes {
		return false
	}

	hasUpper := false
	hasLower := false
	hasNumber := false

	for _, char := range password {
		switch {
		case 'A' <= char && char <= 'Z':
			hasUpper = true
		case 'a' <= char && char <= 'z':
			hasLower = true
		case '0' <= char && char <= '9':
			hasNumber = true
		}
	}

	return hasUpper && hasLower && hasNumber
}

// SanitizeEmail normalizes an address to its stored form.
func SanitizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
