package middleware

import (
	"net/http"

	"github.com/MrEthical07/consoleauth/permission"
)

// RoleResolver maps role keys to the permissions they grant.
type RoleResolver interface {
	Resolve(roleKeys ...string) permission.Set
}

// RequirePerm answers 403 unless the guarded caller's roles grant perm. It
// must run behind a guard; without claims it answers 401.
func RequirePerm(roles RoleResolver, perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				WriteError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if roles == nil || !roles.Resolve(claims.Roles...).Has(perm) {
				WriteError(w, http.StatusForbidden, "permission denied: "+perm)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
