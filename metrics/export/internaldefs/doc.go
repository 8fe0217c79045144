// Package internaldefs holds the metric families and bucket bounds read by
// the Prometheus and OTel exporters.
//
// # What this package must NOT do
//
//   - Import an exporter package.
//   - Perform I/O.
package internaldefs
