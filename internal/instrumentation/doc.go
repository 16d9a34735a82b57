// Package instrumentation provides OpenTelemetry metrics for the scheduling
// core, exported through Prometheus. It counts bookings, cancellations,
// availability checks, temporal-resolution rule hits, token refreshes and
// calendar backend calls.
package instrumentation
