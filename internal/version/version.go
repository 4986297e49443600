package version

import (
	"fmt"
	"runtime"
)

const (
	unknown = "UNKNOWN"
)

// BinaryName is the name of the binary, set at build time with -ldflags.
var BinaryName = "hist-temps"

// Version is substituted with the release version at build time. Builds
// without it report "dev", which also switches logging to the
// human-readable handler.
var Version = "dev"

// BuildDate is substituted with the build date at build time.
var BuildDate = unknown

// VersionString returns the verbose version shown by --version
func VersionString() string {
	return fmt.Sprintf("%s (%s/%s). build date: %s", Version, runtime.GOOS, runtime.GOARCH, BuildDate)
}
