// Package version reports the build version of chronicle.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"time"
)

// Set at build time via ldflags:
//
//	go build -ldflags="-X github.com/muurk/chronicle/internal/version.Version=v0.3.0 \
//	                   -X github.com/muurk/chronicle/internal/version.Commit=abc123"
//
// When unset they are derived from the module's VCS build info, falling
// back to a "dev" version.
var (
	// Version is the semantic version of the application
	Version = ""
	// Commit is the git commit hash
	Commit = ""
	// BuildTime is the commit time reported by the toolchain, if known
	BuildTime = ""
)

func init() {
	if Version == "" || Commit == "" {
		fromBuildInfo(readBuildInfo())
	}

	if Version == "" {
		Version = "dev"
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

func readBuildInfo() *debug.BuildInfo {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return nil
	}
	return info
}

// fromBuildInfo fills unset fields from the VCS settings the toolchain
// embeds when building inside a git checkout
func fromBuildInfo(info *debug.BuildInfo) {
	if info == nil {
		return
	}

	if Version == "" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	var revision, modified, vcsTime string
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			modified = setting.Value
		case "vcs.time":
			vcsTime = setting.Value
		}
	}

	if Commit == "" && revision != "" {
		Commit = revision
		if len(Commit) > 7 {
			Commit = Commit[:7]
		}
		if modified == "true" {
			Commit += "-dirty"
		}
	}

	if vcsTime != "" {
		if t, err := time.Parse(time.RFC3339, vcsTime); err == nil {
			BuildTime = t.UTC().Format(time.RFC3339)
			if Version == "" {
				Version = "dev-" + t.Format("20060102")
			}
		}
	}
}

// Full returns the version string including commit
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}

// UserAgent is sent with every request to the inventory API
func UserAgent() string {
	return fmt.Sprintf("chronicle/%s (%s/%s)", Version, runtime.GOOS, runtime.GOARCH)
}
