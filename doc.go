// Package consoleauth provides the authenticated HTTP client used by the admin
// console: an in-memory access token, bearer attachment, a single shared token
// refresh per burst of 401 responses, and one replay of every rejected request.
//
// A Client is built with [New] and [Builder.Build] and is safe to use from
// many goroutines afterwards. Terminal authentication failure and per-request
// error notices are delivered through callbacks registered on the Builder, so
// the client never reaches into UI or process state on its own.
//
// # Architecture boundaries
//
// consoleauth is the public surface. It exposes [Client], [Builder], [Config],
// [Request], [Response], [RequestError] and the audit / metrics value types.
// Request, refresh, login and logout orchestration lives in internal/flows and
// is driven through dependency structs wired by Build.
//
// # What this package must NOT do
//
//   - Persist the access token anywhere but process memory.
//   - Retry a refresh, or replay a request more than once.
//   - Interpret business error codes carried in 2xx bodies.
//   - Import any sub-package that re-imports consoleauth (no import cycles).
package consoleauth
