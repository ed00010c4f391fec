// Package misc keeps small helpers needed across the program.
package misc

import (
	"runtime/debug"
	"strings"
)

// Set at build time via -ldflags, with build info as fallback.
var (
	appName = "docxodus"
	version = ""
	gitHash = ""
)

// GetAppName returns the short program name used for log files and reports.
func GetAppName() string {
	return appName
}

// GetVersion returns program version if known.
func GetVersion() string {
	if len(version) != 0 {
		return version
	}
	if bi, ok := debug.ReadBuildInfo(); ok && len(bi.Main.Version) != 0 {
		return bi.Main.Version
	}
	return "unknown"
}

// GetGitHash returns VCS revision recorded in build info, shortened for display.
func GetGitHash() string {
	if len(gitHash) != 0 {
		return gitHash
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" {
				if len(s.Value) > 12 {
					return s.Value[:12]
				}
				return s.Value
			}
		}
	}
	return "unknown"
}

// AppVersion builds full version string for the cli.
func AppVersion() string {
	var b strings.Builder
	b.WriteString(GetVersion())
	if h := GetGitHash(); h != "unknown" {
		b.WriteString(" (")
		b.WriteString(h)
		b.WriteString(")")
	}
	return b.String()
}
