// Package buildinfo holds version metadata stamped in with -ldflags -X.
package buildinfo

import "fmt"

// Set at link time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String formats the version for `tally --version`.
func String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date)
}
