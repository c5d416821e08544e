// Package buildinfo provides build-time version information.
package buildinfo

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

const unknown = "unknown"

// Build-time variables (set via ldflags).
var (
	// Version is the semantic version.
	Version = "dev"

	// Commit is the git commit hash.
	Commit = unknown

	// BuildTime is the build timestamp.
	BuildTime = unknown

	// GoVersion is the Go version used to build.
	GoVersion = unknown
)

// readBuildInfo is replaced in tests.
var readBuildInfo = debug.ReadBuildInfo

// Info contains build information.
type Info struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	BuildTime string `json:"build_time" yaml:"build_time"`
	GoVersion string `json:"go_version" yaml:"go_version"`
}

// Get returns the build information.
func Get() Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
	}

	if info.GoVersion == unknown {
		info.GoVersion = runtime.Version()
	}

	if bi, ok := readBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch {
			case s.Key == "vcs.revision" && info.Commit == unknown:
				info.Commit = shortRevision(s.Value)
			case s.Key == "vcs.time" && info.BuildTime == unknown:
				info.BuildTime = s.Value
			}
		}
	}

	return info
}

// String returns a formatted version string.
func String() string {
	info := Get()
	return info.Version + " (" + info.Commit + ") built at " + info.BuildTime
}

// Banner returns the version line printed by the binaries.
func Banner(program string) string {
	info := Get()
	return fmt.Sprintf("%s %s (commit: %s, built: %s, %s)",
		program, info.Version, info.Commit, info.BuildTime, info.GoVersion)
}

func shortRevision(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}
