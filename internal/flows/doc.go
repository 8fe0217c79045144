// Package flows contains pure-function orchestrators for every Client operation.
//
// Each flow function (RunRequest, RunRefresh, RunLogin) accepts a typed
// dependency struct and returns a result value classified by a FailureKind.
// The root package maps those kinds onto exported errors, metrics and audit
// events. This keeps the Client type thin and lets the request/refresh
// ordering be unit-tested with fake transports.
//
// # Architecture boundaries
//
// Flow functions decide WHEN to send, refresh and replay. They do NOT own the
// access token, the single-flight refresh handle, the HTTP client or any
// callback; ownership stays with the Client.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import consoleauth (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency funcs.
package flows
