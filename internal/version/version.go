package version

// Version is the engine version, overridden at build time with
// -ldflags "-X github.com/rxtech-lab/argo-options/internal/version.Version=v1.2.3".
// "main" marks a development build and accepts every config version.
var Version = "v1.0.0"

// GetVersion returns the engine version.
func GetVersion() string {
	return Version
}
