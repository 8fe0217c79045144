// Package middleware exposes the HTTP guards of the console dev backend.
//
// # Guards
//
//   - [Guard]: verifies the bearer access token, optionally against the
//     session store.
//   - [RequireJWTOnly]: stateless verification, no Redis call.
//   - [RequireStrict]: JWT plus a live session lookup, so logout and
//     refresh-reuse revocation take effect before the token expires.
//   - [RequirePerm]: rejects callers whose roles lack a permission.
//
// Guards inject the verified claims into the request context; read them with
// [ClaimsFromContext].
//
// # Architecture boundaries
//
// This package translates HTTP semantics into token and session checks. Role
// resolution is supplied by the caller.
//
// # What this package must NOT do
//
//   - Issue tokens or rotate sessions.
//   - Decide what a role grants.
package middleware
