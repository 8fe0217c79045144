package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoExpiry is returned by Expiry for tokens without an exp claim.
var ErrNoExpiry = errors.New("token has no expiry")

// Expiry reads the exp claim of tokenStr WITHOUT verifying its signature.
// Clients use it only to schedule refreshes; it must never gate access.
func Expiry(tokenStr string) (time.Time, error) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, &claims); err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrNoExpiry
	}
	return claims.ExpiresAt.Time, nil
}

// ExpiresWithin reports whether tokenStr is a JWT whose expiry falls before
// now+window. Opaque tokens and tokens without exp report false.
func ExpiresWithin(tokenStr string, window time.Duration, now time.Time) bool {
	if tokenStr == "" || window <= 0 {
		return false
	}
	exp, err := Expiry(tokenStr)
	if err != nil {
		return false
	}
	return !exp.After(now.Add(window))
}
