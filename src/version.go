package tapewolf

import (
	"fmt"
	"runtime/debug"
)

// Set at build time via `-ldflags "-X 'github.com/doismellburning/tapewolf/src.TapewolfVersion=X'"`
var TapewolfVersion string

func getBuildSettingOrDefault(bi *debug.BuildInfo, key string, defaultValue string) string {
	for _, bs := range bi.Settings {
		if bs.Key == key {
			return bs.Value
		}
	}

	return defaultValue
}

// VersionString reports the release version when one was stamped in,
// otherwise whatever the VCS metadata can offer.
func VersionString() string {
	if TapewolfVersion != "" {
		return TapewolfVersion
	}

	var buildInfo, ok = debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}

	var commit = getBuildSettingOrDefault(buildInfo, "vcs.revision", "UNKNOWN")
	var dirty = getBuildSettingOrDefault(buildInfo, "vcs.modified", "")

	if dirty == "true" {
		return fmt.Sprintf("dev (%s, modified)", commit)
	}

	return fmt.Sprintf("dev (%s)", commit)
}
