// Package buildinfo holds the version stamped into the binary at link time:
//
//	go build -ldflags "-X github.com/m3rciful/voicebot/core/buildinfo.Version=v1.4.0"
//
// Commit and Date are set the same way.
package buildinfo

import "runtime/debug"

var (
	Version = "dev"
	Commit  = ""
	// Date is the build time in RFC3339.
	Date = ""
)

// Revision returns Commit, falling back to the VCS revision the go tool
// records in module builds, and "local" when neither is known.
func Revision() string {
	if Commit != "" {
		return Commit
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && s.Value != "" {
				return s.Value[:min(len(s.Value), 12)]
			}
		}
	}
	return "local"
}
