// Package config provides server configuration for linkport.
//
// This package defines the server configuration structure and validation:
//
//   - spec.go: ServerConfig struct definition
//   - default.go: Default configuration values, editor from $VISUAL/$EDITOR
//   - verify.go: Validation (durations, loopback-only metrics, editor rules)
//
// Configuration is loaded via internal/infra/confloader and supports
// files and environment variables. The link listener port is fixed and is
// deliberately absent from the configuration.
package config
