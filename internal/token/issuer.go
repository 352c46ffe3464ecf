package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/fintrackapp/auth-service/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed or its signature
	// does not verify.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired is returned when a structurally valid token has passed
	// its expiry.
	ErrTokenExpired = errors.New("token expired")
)

// Issuer mints and parses access tokens. Tokens are short-lived HS256 JWTs
// carrying the subject, the session (refresh record) id and the user's token
// version at issuance time. Parsing is stateless; the token-version check
// against the credential store happens in the service layer.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// NewIssuer creates an access token issuer
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Issue mints a signed access token for the user
func (i *Issuer) Issue(userID string, tokenVersion int, sessionID string) (string, error) {
	now := time.Now()

	claims := jwt.MapClaims{
		"sub": userID,
		"sid": sessionID,
		"tv":  tokenVersion,
		"iat": now.Unix(),
		"exp": now.Add(i.ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return signed, nil
}

// Parse verifies the signature and expiry of an access token and returns its
// claims. Expiry is reported as ErrTokenExpired; every other verification
// failure collapses into ErrInvalidToken.
func (i *Issuer) Parse(tokenString string) (*domain.AccessClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return nil, ErrInvalidToken
	}

	sid, ok := claims["sid"].(string)
	if !ok {
		return nil, ErrInvalidToken
	}

	tv, ok := claims["tv"].(float64)
	if !ok {
		return nil, ErrInvalidToken
	}

	iat, ok := claims["iat"].(float64)
	if !ok {
		return nil, ErrInvalidToken
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return nil, ErrInvalidToken
	}

	return &domain.AccessClaims{
		UserID:       sub,
		SessionID:    sid,
		TokenVersion: int(tv),
		IssuedAt:     time.Unix(int64(iat), 0),
		ExpiresAt:    time.Unix(int64(exp), 0),
	}, nil
}

// TTL returns the configured access token lifetime
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}
