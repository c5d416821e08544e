package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format names a record encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Config describes the process logger. It mirrors the log section of the
// server configuration.
type Config struct {
	Level     string
	Format    string
	Output    io.Writer // nil means os.Stderr
	AddSource bool
}

// level is shared by every logger New builds so a configuration reload can
// change verbosity without rebuilding handlers.
var level = new(slog.LevelVar)

// ParseLevel maps a log.level value to a slog level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("log level %q is not one of debug, info, warn, error", s)
}

// ParseFormat maps a log.format value to a Format. Empty means JSON; console
// is accepted as an alias of text.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "json":
		return FormatJSON, nil
	case "text", "console":
		return FormatText, nil
	}
	return "", fmt.Errorf("log format %q is not one of json, text", s)
}

// New builds a logger whose handler runs every attribute through the
// sanitizer before encoding. It resets the shared level to cfg.Level.
func New(cfg Config) (*slog.Logger, error) {
	lvl, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	format, err := ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	level.Set(lvl)
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			return sanitizeAttr(a)
		},
	}

	if format == FormatText {
		return slog.New(slog.NewTextHandler(out, opts)), nil
	}
	return slog.New(slog.NewJSONHandler(out, opts)), nil
}

// SetLevel changes the level of every logger built by New. An unknown name
// leaves the level untouched.
func SetLevel(s string) error {
	lvl, err := ParseLevel(s)
	if err != nil {
		return err
	}
	level.Set(lvl)
	return nil
}

// Level reports the shared level in the form log.level accepts.
func Level() string {
	return strings.ToLower(level.Level().String())
}
