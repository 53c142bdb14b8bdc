// Package version provides build and version information.
package version

// Version is the current application version.
// Overridden at build time with -ldflags "-X .../internal/version.Version=...".
var Version = "0.3.0"

// Repo is the GitHub repository releases are published to.
const Repo = "litescript/ls-torrent-search"
