package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// expiryMargin treats a token as expired slightly early so that a request
// issued just before the deadline does not arrive with a dead credential.
const expiryMargin = 2 * time.Second

type Session struct {
	ID          string
	CustomerID  string
	AccessToken string
	IssuedAt    time.Time
	ExpiresAt   time.Time // zero when the backend sent no expiry metadata
}

// Valid reports whether the session's token should still be usable at now.
// When no expiry metadata was stored, expiry is recovered from the token's
// own exp claim; a token that is opaque on top of that is assumed valid
// while it exists.
func (s Session) Valid(now time.Time) bool {
	if s.AccessToken == "" {
		return false
	}

	exp := s.ExpiresAt
	if exp.IsZero() {
		exp = expiryFromToken(s.AccessToken)
	}
	if exp.IsZero() {
		return true
	}
	return now.Before(exp.Add(-expiryMargin))
}

// expiryFromToken extracts the exp claim without verifying the signature.
// The token is only inspected, never trusted: the backend re-validates it
// on every call.
func expiryFromToken(token string) time.Time {
	var claims jwt.RegisteredClaims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
