// Package version exposes build metadata stamped in via -ldflags.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set at build time:
//
//	go build -ldflags "-X .../internal/version.Version=v1.2.3 -X .../internal/version.Commit=abc123"
var (
	Version = "dev"
	Commit  = "unknown"
)

// Info is the version report printed by `stranka version`.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get assembles the version report, falling back to module build info when
// the binary was installed with `go install` rather than the release build.
func Get() Info {
	v := Version
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
			v = info.Main.Version
		}
	}
	return Info{
		Version:   v,
		Commit:    Commit,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String renders the short one-line form.
func (i Info) String() string {
	return fmt.Sprintf("stranka %s (%s, %s, %s)", i.Version, i.Commit, i.GoVersion, i.Platform)
}
