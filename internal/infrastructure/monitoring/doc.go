// Package monitoring exposes Prometheus metrics for HTTP traffic, sandbox
// executions, the SQL engine, probes and WebSocket connections.
package monitoring
