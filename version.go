package main

import "strings"

// Set at build time with -ldflags "-X main.buildVersion=... -X main.buildCommit=...".
var (
	buildVersion = "dev"
	buildCommit  = "unknown"
)

func versionString() string {
	return formatVersion(buildVersion, buildCommit)
}

// formatVersion returns release versions unchanged and tags dev builds with
// the short commit when one is known.
func formatVersion(version, commit string) string {
	v := strings.TrimSpace(version)
	if v == "" {
		v = "dev"
	}
	if v != "dev" {
		return v
	}
	c := strings.TrimSpace(commit)
	if c == "" || c == "unknown" {
		return v
	}
	if len(c) > 7 {
		c = c[:7]
	}
	return v + "-" + c
}
