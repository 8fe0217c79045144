// Package prometheus renders client metrics in the Prometheus text
// exposition format.
//
// Counters are named consoleauth_*_total; the latency histogram is
// consoleauth_request_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global registry. Callers mount the Handler.
//   - Mutate client state.
package prometheus
