package version

// Version is the engine version, overridden at build time via
// -ldflags "-X github.com/strategraph-lab/strategraph/internal/version.Version=v1.2.3".
var Version = "main"

// Get returns the current engine version.
func Get() string {
	return Version
}
