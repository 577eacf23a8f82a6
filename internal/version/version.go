package version

import (
	"fmt"
	"runtime"
	"time"
)

// Set with -ldflags "-X github.com/Gundoganfa/SomeNiceLinks/internal/version.Version=v0.1.0".
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = time.Now().Format(time.RFC3339)
	GoVersion = runtime.Version()
)

// Info is the build information reported by the server and the client.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// Current returns the build information of the running binary.
func Current() Info {
	return Info{Version: Version, Commit: Commit, BuildDate: BuildDate, GoVersion: GoVersion}
}

func (i Info) String() string {
	return fmt.Sprintf("%s (commit=%s, built=%s, go=%s)", i.Version, i.Commit, i.BuildDate, i.GoVersion)
}

// String renders the current build information on one line.
func String() string { return Current().String() }
