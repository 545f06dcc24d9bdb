package app

// version is set at build time via -ldflags "-X .../internal/app.version=v1.2.3".
var version = "dev"

// BuildVersion returns the binary's version string.
func BuildVersion() string {
	return version
}
