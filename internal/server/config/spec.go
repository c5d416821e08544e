// Package config defines the server configuration structure.
package config

import "time"

// ServerConfig is the root configuration for linkport-server.
type ServerConfig struct {
	Link    LinkSection    `koanf:"link"`
	Editor  EditorSection  `koanf:"editor"`
	Metrics MetricsSection `koanf:"metrics"`
	Log     LogSection     `koanf:"log"`
}

// LinkSection tunes the link listener and dispatcher.
type LinkSection struct {
	// AcceptTimeout is how long one accept waits before the loop rechecks shutdown.
	AcceptTimeout time.Duration `koanf:"accept_timeout"`

	// RetryInterval is the pause between bind attempts while the port is unavailable.
	RetryInterval time.Duration `koanf:"retry_interval"`

	// ReadTimeout bounds reading the request header block.
	ReadTimeout time.Duration `koanf:"read_timeout"`

	// ResolveTimeout bounds each Host header lookup.
	ResolveTimeout time.Duration `koanf:"resolve_timeout"`

	// DispatchRate is the maximum navigations per second (0 = unlimited).
	DispatchRate float64 `koanf:"dispatch_rate"`

	// DispatchBurst is the number of navigations allowed at once.
	DispatchBurst int `koanf:"dispatch_burst"`

	// QueueSize is the number of navigations that may wait for the UI executor.
	QueueSize int `koanf:"queue_size"`
}

// EditorSection configures the editor host.
type EditorSection struct {
	// Workspace is the root directory request paths are relative to.
	Workspace string `koanf:"workspace"`

	// Rules map file patterns to editor commands, most preferred first.
	Rules []EditorRule `koanf:"rules"`

	// DefaultCommand opens any file no rule matches. When it and Rules are
	// both empty it is derived from $VISUAL or $EDITOR.
	DefaultCommand []string `koanf:"default_command"`

	// DefaultGotoCommand moves the fallback editor to a line.
	DefaultGotoCommand []string `koanf:"default_goto_command"`
}

// EditorRule configures one editor.
type EditorRule struct {
	ID          string   `koanf:"id"`
	Pattern     string   `koanf:"pattern"`
	Command     []string `koanf:"command"`
	GotoCommand []string `koanf:"goto_command"`
}

// MetricsSection configures the Prometheus endpoint.
type MetricsSection struct {
	// Addr is a loopback host:port for /metrics. Empty disables the endpoint.
	Addr string `koanf:"addr"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
