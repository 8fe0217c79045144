// Package mockapi is a runnable console backend for development and
// end-to-end tests.
//
// It speaks the protocol the client expects: POST /auth/login returns an
// access token and sets an HttpOnly refresh cookie, POST /auth/refresh
// rotates that cookie and returns a new access token, and every other
// endpoint answers 401 once the access token expires.
//
// # Storage
//
//   - Refresh sessions live in Redis through the session package. Each
//     refresh rotates the stored hash; presenting an old cookie revokes
//     the session.
//   - Users, roles, departments, menus and dictionaries live in SQLite
//     (modernc.org/sqlite, no cgo).
//
// # Fault injection
//
// [Faults] forces 401 replies, failing or slow refreshes, and counts
// refresh calls. Tests drive it directly; the dev server also exposes it
// under /__dev when enabled.
//
// # What this package must NOT do
//
//   - Be used as a production backend.
//   - Be imported outside the consoleauth module.
package mockapi
