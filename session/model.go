package session

import "time"

// Session is one signed-in browser or CLI.
type Session struct {
	SessionID string
	UserID    string
	Account   string
	Roles     []string

	RefreshHash [32]byte

	CreatedAt int64
	ExpiresAt int64
}

// Expired reports whether the session lifetime has ended at now.
func (s *Session) Expired(now time.Time) bool {
	return s == nil || now.Unix() >= s.ExpiresAt
}

// TTL returns the remaining lifetime at now, or zero.
func (s *Session) TTL(now time.Time) time.Duration {
	if s.Expired(now) {
		return 0
	}
	return time.Unix(s.ExpiresAt, 0).Sub(now)
}
