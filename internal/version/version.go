// Package version reports the running build's version.
package version

import (
	"runtime/debug"
	"strings"

	"golang.org/x/mod/semver"
)

// Fallback is reported when no version can be discovered.
const Fallback = "0.0.0-dev"

// Version is set at link time:
//
//	go build -ldflags "-X qtermpi/internal/version.Version=v1.2.3"
var Version = ""

var readBuildInfo = debug.ReadBuildInfo

// Resolve returns the link-time version if set, otherwise the main module
// version recorded in the build info, otherwise Fallback. The result never
// carries a leading "v".
func Resolve() string {
	if v, ok := normalize(Version); ok {
		return v
	}
	if info, ok := readBuildInfo(); ok {
		if v, ok := normalize(info.Main.Version); ok {
			return v
		}
	}
	return Fallback
}

// normalize accepts "1.2.3" or "v1.2.3" and rejects "(devel)", empty and
// anything else that is not semver.
func normalize(v string) (string, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", false
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return "", false
	}
	// Canonical drops "+build" metadata; keep it.
	return strings.TrimPrefix(semver.Canonical(v), "v") + semver.Build(v), true
}
