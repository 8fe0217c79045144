// Package rate provides the Redis-backed fixed-window limiters the dev
// backend applies to login and refresh.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key prefixes:
//   - rl:a:  login per account
//   - rl:ip: login per client IP
//   - rl:r:  refresh per session
//
// # What this package must NOT do
//
//   - Decide what a failed attempt is. Callers record failures.
//   - Be imported outside the consoleauth module.
package rate
