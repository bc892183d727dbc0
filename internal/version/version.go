// Package version holds build metadata for autofilm-dash.
//
// Set at link time:
//
//	go build -ldflags "-X github.com/rickgao/autofilm-dash/internal/version.Version=0.3.0 \
//	                   -X github.com/rickgao/autofilm-dash/internal/version.Commit=$(git rev-parse --short HEAD) \
//	                   -X github.com/rickgao/autofilm-dash/internal/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)" \
//	    ./cmd/autofilm-dash
package version

// Build-time variables (set via ldflags)
var (
	// Version is the semantic version (e.g., "0.3.0")
	Version = "dev"

	// Commit is the git commit hash (short form)
	Commit = "unknown"

	// BuildTime is the UTC build timestamp (ISO 8601)
	BuildTime = "unknown"
)

// String returns a formatted version string.
func String() string {
	return Version + " (" + Commit + ") built " + BuildTime
}

// UserAgent is sent on REST and websocket requests.
func UserAgent() string {
	return "autofilm-dash/" + Version
}
