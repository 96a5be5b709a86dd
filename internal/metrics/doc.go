// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Market data fetches by outcome, and fetch latency
//   - Snapshot cache lookups by result
//   - Poll cycle throughput and duration
package metrics
