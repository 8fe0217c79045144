package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

// SessionID identifies one refresh session.
type SessionID [16]byte

const (
	refreshSecretSize   = 32
	refreshTokenRawSize = len(SessionID{}) + refreshSecretSize
)

// ErrMalformedRefreshToken is returned for cookies that do not decode to a
// session ID and secret.
var ErrMalformedRefreshToken = errors.New("malformed refresh token")

// NewSessionID returns a random session ID.
func NewSessionID() (SessionID, error) {
	var sid SessionID
	_, err := rand.Read(sid[:])
	return sid, err
}

func (s SessionID) String() string {
	// base64url, no padding, compact
	return base64.RawURLEncoding.EncodeToString(s[:])
}

// RefreshToken is the value of the refresh cookie: the session it belongs
// to and the current rotation secret.
type RefreshToken struct {
	SessionID SessionID
	Secret    [refreshSecretSize]byte
}

// NewRefreshToken returns a token for sid with a fresh secret.
func NewRefreshToken(sid SessionID) (RefreshToken, error) {
	t := RefreshToken{SessionID: sid}
	_, err := rand.Read(t.Secret[:])
	return t, err
}

// Hash is the value stored server side for the secret.
func (t RefreshToken) Hash() [32]byte {
	return sha256.Sum256(t.Secret[:])
}

// Encode returns the cookie form of t.
func (t RefreshToken) Encode() string {
	var raw [refreshTokenRawSize]byte
	copy(raw[:len(t.SessionID)], t.SessionID[:])
	copy(raw[len(t.SessionID):], t.Secret[:])
	return base64.RawURLEncoding.EncodeToString(raw[:])
}

// ParseRefreshToken decodes a cookie produced by Encode.
func ParseRefreshToken(s string) (RefreshToken, error) {
	var t RefreshToken
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil || len(raw) != refreshTokenRawSize {
		return t, ErrMalformedRefreshToken
	}
	copy(t.SessionID[:], raw[:len(t.SessionID)])
	copy(t.Secret[:], raw[len(t.SessionID):])
	return t, nil
}
