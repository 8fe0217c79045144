// Package session stores the dev backend's refresh sessions in Redis.
//
// A refresh session is created at login and identified by a random session
// ID. The refresh cookie carries the session ID plus a secret; Redis holds
// only the SHA-256 of the secret. Every refresh rotates the secret through
// an atomic compare-and-swap script. Presenting a secret that no longer
// matches is treated as token reuse and deletes the session.
//
// # Binary encoding
//
// Sessions are stored as a compact length-prefixed binary blob so the
// rotation script can locate the refresh hash without a JSON decoder.
//
// # Architecture boundaries
//
// This package owns the [Store] (Redis operations) and the [Session] model.
// It does not issue access tokens or check passwords.
//
// # What this package must NOT do
//
//   - Import consoleauth, jwt, or permission.
//   - Store plaintext refresh secrets.
package session
