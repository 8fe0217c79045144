package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/MrEthical07/consoleauth/jwt"
	"github.com/MrEthical07/consoleauth/session"
)

// Verifier parses and verifies access tokens. *jwt.Manager implements it.
type Verifier interface {
	ParseAccess(token string) (*jwt.AccessClaims, error)
}

// SessionLookup loads a live session. *session.Store implements it.
type SessionLookup interface {
	Get(ctx context.Context, sessionID string) (*session.Session, error)
}

type claimsContextKey struct{}

// ClaimsFromContext returns the claims stored by a guard.
func ClaimsFromContext(ctx context.Context) (*jwt.AccessClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*jwt.AccessClaims)
	return claims, ok
}

// WithClaims returns a copy of ctx carrying claims.
func WithClaims(ctx context.Context, claims *jwt.AccessClaims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// Guard rejects requests without a valid bearer token with 401. When
// sessions is non-nil the token's session must also still exist.
func Guard(verifier Verifier, sessions SessionLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil {
				WriteError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				WriteError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			claims, err := verifier.ParseAccess(token)
			if err != nil {
				WriteError(w, http.StatusUnauthorized, "token expired or invalid")
				return
			}

			if sessions != nil {
				sess, err := sessions.Get(r.Context(), claims.SID)
				if err != nil || sess.UserID != claims.UID {
					WriteError(w, http.StatusUnauthorized, "session revoked")
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireJWTOnly verifies the token signature and expiry only.
func RequireJWTOnly(verifier Verifier) func(http.Handler) http.Handler {
	return Guard(verifier, nil)
}

// RequireStrict verifies the token and its live session.
func RequireStrict(verifier Verifier, sessions SessionLookup) func(http.Handler) http.Handler {
	return Guard(verifier, sessions)
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
