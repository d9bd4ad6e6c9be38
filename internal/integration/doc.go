// Package integration provides cross-package integration tests for panekit.
// These tests compose the stack the way cmd/panekit does: workspace policy
// parsed from YAML, a real SQLite store, and the orchestration facade on top.
//
// Build tag: integration
// Run with: go test -tags integration ./internal/integration/...
package integration
