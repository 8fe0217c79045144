// Package otel exposes client metrics as OpenTelemetry observable
// instruments.
//
// Counters map to Int64ObservableCounter. Histogram buckets are published as
// cumulative Int64ObservableGauge instruments, one per bound, plus a count
// gauge, all read from one snapshot per collection.
//
// # What this package must NOT do
//
//   - Configure a MeterProvider or exporter pipeline.
//   - Mutate client state.
package otel
