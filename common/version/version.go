// Package version provides build-time version information.
package version

var (
	// Version is the semantic version (set via ldflags)
	Version = "v0.0.0-dev"

	// GitCommit is the git commit hash (set via ldflags)
	GitCommit = "unknown"
)

// Info returns a human-readable version string for startup logs.
func Info() string {
	return Version + " (" + GitCommit + ")"
}
