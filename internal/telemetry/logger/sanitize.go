// Package logger provides structured logging for linkport.
package logger

import (
	"log/slog"
	"strings"
)

// MaxValueLen caps string attribute values. Request lines and header values
// come from the network and may be up to several kilobytes long.
const MaxValueLen = 512

// truncatedSuffix marks a value cut at MaxValueLen.
const truncatedSuffix = "...(truncated)"

// redactedValue is the placeholder for redacted sensitive data.
const redactedValue = "***REDACTED***"

// sensitiveHeaders are header names whose values are never logged.
var sensitiveHeaders = []string{
	"authorization",
	"proxy-authorization",
	"cookie",
	"set-cookie",
}

// sensitiveKeyPatterns are attribute keys whose values are never logged.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"token",
	"cookie",
	"authorization",
}

// sanitizeAttr redacts sensitive values and truncates long ones.
func sanitizeAttr(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		s := a.Value.String()
		if s != "" && IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
		return slog.String(a.Key, Truncate(RedactHeader(s)))
	case slog.KindGroup:
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = sanitizeAttr(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	case slog.KindAny:
		if lines, ok := a.Value.Any().([]string); ok {
			out := make([]string, len(lines))
			for i, line := range lines {
				out[i] = Truncate(RedactHeader(line))
			}
			return slog.Any(a.Key, out)
		}
	}
	return a
}

// RedactHeader masks the value of a credential-bearing header line
// ("Cookie: a=b" becomes "Cookie: ***REDACTED***"). Other strings are
// returned unchanged.
func RedactHeader(line string) string {
	name, _, ok := strings.Cut(line, ":")
	if !ok {
		return line
	}
	name = strings.TrimSpace(name)
	for _, h := range sensitiveHeaders {
		if strings.EqualFold(name, h) {
			return name + ": " + redactedValue
		}
	}
	return line
}

// Truncate shortens s to MaxValueLen bytes.
func Truncate(s string) string {
	if len(s) <= MaxValueLen {
		return s
	}
	return s[:MaxValueLen] + truncatedSuffix
}

// IsSensitiveKey checks if a key name suggests sensitive content.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}
