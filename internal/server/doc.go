// Package server holds the shared state of the sheetmail MCP server.
//
// ServerContext resolves credentials through a google.TokenProvider and
// lazily builds one Gmail sender and one Sheets client over a shared,
// rate limited and retrying HTTP client. HealthChecker serves /healthz and
// /readyz, and MetricsServer exposes Prometheus metrics on a separate port.
package server
