// Package config defines the server configuration structure.
package config

import (
	"errors"
	"fmt"
	"net"
	"path"
	"strings"

	"github.com/yndnr/linkport/internal/telemetry/logger"
)

// Verify validates the configuration.
func Verify(cfg *ServerConfig) error {
	if err := verifyLink(&cfg.Link); err != nil {
		return err
	}
	if err := verifyEditor(&cfg.Editor); err != nil {
		return err
	}
	if err := verifyMetrics(&cfg.Metrics); err != nil {
		return err
	}
	return verifyLog(&cfg.Log)
}

func verifyLink(cfg *LinkSection) error {
	if cfg.AcceptTimeout <= 0 {
		return errors.New("link.accept_timeout must be positive")
	}
	if cfg.RetryInterval <= 0 {
		return errors.New("link.retry_interval must be positive")
	}
	if cfg.ReadTimeout < 0 {
		return errors.New("link.read_timeout must not be negative")
	}
	if cfg.ResolveTimeout < 0 {
		return errors.New("link.resolve_timeout must not be negative")
	}
	if cfg.DispatchRate < 0 {
		return errors.New("link.dispatch_rate must not be negative")
	}
	if cfg.DispatchBurst < 0 {
		return errors.New("link.dispatch_burst must not be negative")
	}
	if cfg.QueueSize < 0 {
		return errors.New("link.queue_size must not be negative")
	}
	return nil
}

func verifyEditor(cfg *EditorSection) error {
	if cfg.Workspace == "" {
		return errors.New("editor.workspace is required")
	}

	rules := cfg.EffectiveRules()
	if len(rules) == 0 {
		return errors.New("editor: no editor configured, set editor.rules, editor.default_command, $VISUAL or $EDITOR")
	}

	seen := make(map[string]bool, len(rules))
	for i, r := range rules {
		if r.ID == "" {
			return fmt.Errorf("editor.rules[%d].id is required", i)
		}
		if seen[r.ID] {
			return fmt.Errorf("editor.rules[%d]: duplicate id %q", i, r.ID)
		}
		seen[r.ID] = true
		if r.Pattern == "" {
			return fmt.Errorf("editor.rules[%d].pattern is required", i)
		}
		if _, err := path.Match(r.Pattern, ""); err != nil {
			return fmt.Errorf("editor.rules[%d].pattern %q: %w", i, r.Pattern, err)
		}
		if len(r.Command) == 0 {
			return fmt.Errorf("editor.rules[%d].command is required", i)
		}
	}
	return nil
}

func verifyMetrics(cfg *MetricsSection) error {
	if cfg.Addr == "" {
		return nil
	}
	host, _, err := net.SplitHostPort(cfg.Addr)
	if err != nil {
		return fmt.Errorf("metrics.addr: %w", err)
	}
	if strings.EqualFold(host, "localhost") {
		return nil
	}
	if ip := net.ParseIP(host); ip == nil || !ip.IsLoopback() {
		return fmt.Errorf("metrics.addr %q must be a loopback address", cfg.Addr)
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	if _, err := logger.ParseLevel(cfg.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if _, err := logger.ParseFormat(cfg.Format); err != nil {
		return fmt.Errorf("log.format: %w", err)
	}
	return nil
}
