package version

import "strings"

// Version is the build version, set at link time:
//
//	go build -ldflags "-X github.com/leszamis/modsync/internal/version.Version=1.12"
var Version = "dev"

// IsDev reports whether the binary was built without a release version.
func IsDev() bool {
	return Version == "" || Version == "dev"
}

// Matches reports whether a remote version marker names the local build.
// Markers carry no ordering: any difference means an update is available.
func Matches(local, remote string) bool {
	return strings.TrimSpace(local) == strings.TrimSpace(remote)
}

// UserAgent returns the User-Agent header sent with every request
func UserAgent() string {
	return "modsync/" + Version
}
