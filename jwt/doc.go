// Package jwt issues and verifies console access tokens, and lets clients read
// a token's expiry without verifying it.
//
// # Architecture boundaries
//
// Manager is used by the development backend to sign and verify tokens.
// Expiry and ExpiresWithin are used by the root client to schedule proactive
// refreshes; they never establish trust.
//
// # What this package must NOT do
//
//   - Import the root consoleauth package.
//   - Treat an unverified token as authenticated.
package jwt
