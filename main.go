package main

import (
	"fmt"
	"os"
	"runtime/debug"
	"strings"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func resolveVersionInfo(v, c, d, moduleVersion string, settings map[string]string) (string, string, string) {
	if v == "dev" {
		mv := strings.TrimSpace(moduleVersion)
		if mv != "" && mv != "(devel)" {
			v = mv
		}
	}
	if c == "none" {
		rev := strings.TrimSpace(settings["vcs.revision"])
		if rev != "" {
			if len(rev) > 12 {
				rev = rev[:12]
			}
			c = rev
		}
	}
	if d == "unknown" {
		if t := strings.TrimSpace(settings["vcs.time"]); t != "" {
			d = t
		}
	}
	return v, c, d
}

func buildSettingsMap(in []debug.BuildSetting) map[string]string {
	out := make(map[string]string, len(in))
	for _, s := range in {
		out[s.Key] = s.Value
	}
	return out
}

func runtimeVersionInfo() (string, string, string) {
	info, ok := debug.ReadBuildInfo()
	if !ok || info == nil {
		return version, commit, date
	}
	return resolveVersionInfo(version, commit, date, info.Main.Version, buildSettingsMap(info.Settings))
}

func versionString(v, c, d string) string {
	return fmt.Sprintf("truthterm %s\ncommit: %s\nbuilt: %s\n", v, c, d)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "truthterm: %v\n", err)
		os.Exit(1)
	}
}
