package app

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Build metadata, overridden with -ldflags "-X .../internal/app.Version=...".
var (
	Version   = "dev"
	GitCommit = "unknown"
	GitTag    = ""
	BuildTime = "unknown"
)

// VersionInfo describes the running binary.
type VersionInfo struct {
	Version   string
	GitCommit string
	GitTag    string
	BuildTime string
	GoVersion string
	Platform  string
}

// GetVersionInfo returns the build metadata. When no commit was injected at
// link time the VCS revision recorded by the Go toolchain is used.
func GetVersionInfo() VersionInfo {
	v := VersionInfo{
		Version:   Version,
		GitCommit: GitCommit,
		GitTag:    GitTag,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if v.GitCommit == "unknown" {
		if rev := vcsRevision(); rev != "" {
			v.GitCommit = rev
		}
	}
	return v
}

func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 7 {
			return s.Value[:7]
		}
	}
	return ""
}

// Label is the tag when present, otherwise the version.
func (v VersionInfo) Label() string {
	if v.GitTag != "" {
		return v.GitTag
	}
	return v.Version
}

// FullString is the banner printed by the version command and logged at startup.
func (v VersionInfo) FullString() string {
	return fmt.Sprintf("Melodia %s (commit: %s, built: %s, %s %s)",
		v.Label(), v.GitCommit, v.BuildTime, v.GoVersion, v.Platform)
}
