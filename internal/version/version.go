// Package version exposes the panekit release version embedded at
// build time.
package version

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var raw string

// Get returns the release version with surrounding whitespace trimmed.
func Get() string {
	return strings.TrimSpace(raw)
}

// Line returns the one-line banner printed by the version command and
// logged at shell startup.
func Line() string {
	return "panekit version " + Get()
}
