// Package version provides build-time version information.
//
// Variables are set at build time via ldflags:
//
//	go build -ldflags "-X github.com/rickgao/voyagerbot/internal/version.Version=1.0.0 \
//	                   -X github.com/rickgao/voyagerbot/internal/version.Commit=$(git rev-parse --short HEAD)" \
//	    ./cmd/voyagerbot
package version

import "runtime/debug"

var (
	// Version is the semantic version (e.g., "1.0.0")
	Version = "dev"

	// Commit is the git commit hash (short form)
	Commit = "unknown"

	// BuildTime is the UTC build timestamp (ISO 8601)
	BuildTime = "unknown"
)

// String returns a formatted version string. Unset fields fall back to
// the VCS information embedded by the Go toolchain.
func String() string {
	commit, built := Commit, BuildTime
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			switch {
			case s.Key == "vcs.revision" && commit == "unknown" && len(s.Value) >= 7:
				commit = s.Value[:7]
			case s.Key == "vcs.time" && built == "unknown":
				built = s.Value
			}
		}
	}
	return "voyagerbot " + Version + " (" + commit + ") built " + built
}
