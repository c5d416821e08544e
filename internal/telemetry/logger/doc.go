// Package logger provides structured logging for linkport.
//
// This package wraps log/slog:
//
//   - logger.go: handler construction and the shared, reloadable level
//   - context.go: context-aware logging with request IDs
//   - sanitize.go: truncation and redaction of request-controlled values
//
// Features:
//
//   - JSON and text output formats
//   - Log level filtering, adjustable at runtime
//   - Masking of credential-bearing header lines
//   - Context propagation for per-connection request IDs
package logger
