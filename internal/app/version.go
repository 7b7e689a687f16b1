package app

import (
	"fmt"
	"runtime/debug"
)

// Set through -ldflags "-X github.com/heartmarshall/submission-backend/internal/app.Version=...".
var (
	Version   = "dev"
	Commit    = ""
	BuildTime = ""
)

// BuildVersion describes the running binary for startup logs, /health and
// the CLI. Commit and build time fall back to the VCS stamp the toolchain
// embeds when ldflags did not set them.
func BuildVersion() string {
	return formatVersion(Version, Commit, BuildTime, readBuildInfo)
}

func readBuildInfo() (*debug.BuildInfo, bool) {
	return debug.ReadBuildInfo()
}

func formatVersion(version, commit, built string, info func() (*debug.BuildInfo, bool)) string {
	if commit == "" || built == "" {
		if bi, ok := info(); ok {
			for _, s := range bi.Settings {
				switch s.Key {
				case "vcs.revision":
					if commit == "" {
						commit = s.Value
					}
				case "vcs.time":
					if built == "" {
						built = s.Value
					}
				}
			}
		}
	}
	if len(commit) > 12 {
		commit = commit[:12]
	}
	if commit == "" {
		commit = "unknown"
	}
	if built == "" {
		built = "unknown"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, built)
}
