// Package version holds build metadata, overridden at link time via
// -ldflags "-X github.com/streamvault/hlsfetch/internal/core/version.Version=...".
package version

var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)
