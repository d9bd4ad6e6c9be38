package models

import "fmt"

// LayoutMode identifies the top-level arrangement strategy for panes.
type LayoutMode string

const (
	// SinglePane collapses all panes into one visible slot.
	SinglePane LayoutMode = "single_pane"
	// SplitScreen arranges panes side by side with fractional sizes.
	SplitScreen LayoutMode = "split_screen"
	// Tabbed groups all panes into tab groups with one active tab each.
	Tabbed LayoutMode = "tabbed"
	// Grid arranges panes in a row-major square grid.
	Grid LayoutMode = "grid"
	// Custom uses a caller-supplied configuration verbatim.
	Custom LayoutMode = "custom"
)

// Valid returns true if the mode is a known value.
func (m LayoutMode) Valid() bool {
	switch m {
	case SinglePane, SplitScreen, Tabbed, Grid, Custom:
		return true
	default:
		return false
	}
}

// String returns the mode identifier.
func (m LayoutMode) String() string {
	return string(m)
}

// AllModes returns every known layout mode in declaration order.
func AllModes() []LayoutMode {
	return []LayoutMode{SinglePane, SplitScreen, Tabbed, Grid, Custom}
}

// ParseLayoutMode converts a string into a LayoutMode.
// It returns an error for unknown values.
func ParseLayoutMode(s string) (LayoutMode, error) {
	m := LayoutMode(s)
	if !m.Valid() {
		return "", fmt.Errorf("unknown layout mode %q", s)
	}
	return m, nil
}

// ModeSet is a set of layout modes.
type ModeSet map[LayoutMode]bool

// NewModeSet builds a set from the given modes.
func NewModeSet(modes ...LayoutMode) ModeSet {
	s := make(ModeSet, len(modes))
	for _, m := range modes {
		s[m] = true
	}
	return s
}

// Has returns true if the set contains the mode.
func (s ModeSet) Has(m LayoutMode) bool {
	return s[m]
}

// Empty returns true if the set contains no modes.
func (s ModeSet) Empty() bool {
	return len(s) == 0
}

// Intersect returns the modes present in both sets.
func (s ModeSet) Intersect(other ModeSet) ModeSet {
	out := make(ModeSet)
	for m := range s {
		if s[m] && other[m] {
			out[m] = true
		}
	}
	return out
}

// Clone returns a copy of the set.
func (s ModeSet) Clone() ModeSet {
	out := make(ModeSet, len(s))
	for m, ok := range s {
		if ok {
			out[m] = true
		}
	}
	return out
}

// Modes returns the members in declaration order for stable output.
func (s ModeSet) Modes() []LayoutMode {
	var out []LayoutMode
	for _, m := range AllModes() {
		if s[m] {
			out = append(out, m)
		}
	}
	return out
}
