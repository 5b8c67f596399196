// Package version holds build information injected at link time.
package version

import "fmt"

// Set with: go build -ldflags "-X debatearena/pkg/version.Version=v1.2.3".
//
//nolint:gochecknoglobals // ldflags targets must be package-level vars.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String returns a one-line description of the build.
func String() string {
	return fmt.Sprintf("debatearena %s (commit %s, built %s)", Version, Commit, Date)
}
