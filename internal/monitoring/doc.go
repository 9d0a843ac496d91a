// Package monitoring provides Prometheus metrics for the bash server:
// HTTP request counters and latencies, command execution outcomes,
// session and background job gauges, and idle eviction counts.
package monitoring
