// Package buildinfo provides build information for linkport.
//
// This package exposes build-time information injected via ldflags:
//
//   - Version: Semantic version (e.g., "1.0.0")
//   - Commit: Git commit hash
//   - BuildTime: Build timestamp
//   - GoVersion: Go compiler version
//
// Values not injected fall back to what the Go toolchain embedded in the
// binary (VCS revision and time, compiler version).
//
// Usage:
//
//	go build -ldflags "-X github.com/yndnr/linkport/internal/infra/buildinfo.Version=v1.0.0"
package buildinfo
