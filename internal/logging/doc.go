// Package logging provides structured logging utilities for sheetmail.
//
// All packages log through log/slog using the attribute helpers defined
// here, so that keys stay consistent between the CLI and the MCP server.
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithSpreadsheet(slog.Default(), id)
//	logger.Info("filters applied", logging.SheetID(0), logging.Status("success"))
//
// Recipients are hashed before they reach a log line:
//
//	logger.Info("message sent", logging.Recipient(headers.To))
//
// # Security Considerations
//
//   - Email addresses are hashed to prevent PII leakage while allowing correlation
//   - Tokens are never logged directly, only their length via SanitizeToken
package logging
