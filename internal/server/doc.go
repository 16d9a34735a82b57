// Package server holds the shared runtime context for the MCP scheduling
// server plus the sidecar HTTP endpoints: Prometheus metrics and health
// probes on a dedicated port, away from the stdio transport.
package server
