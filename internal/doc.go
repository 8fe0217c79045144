// Package internal contains helpers private to consoleauth, currently the
// refresh token format used by the dev backend.
//
// # Sub-packages
//
//   - flows: request, refresh, login and logout orchestration for Client
//   - mockapi: the dev backend HTTP server
//   - rate: Redis-backed login and refresh limiters
//
// # What this package must NOT do
//
//   - Export types that appear in the public consoleauth API.
//   - Be imported by any package outside the consoleauth module.
package internal
