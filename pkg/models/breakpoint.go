package models

import (
	"fmt"
	"sort"
)

// Breakpoint is a named viewport-width threshold.
type Breakpoint struct {
	// Name identifies the breakpoint (e.g. "mobile", "desktop").
	Name string `json:"name" mapstructure:"name"`
	// MinWidth is the smallest viewport width in pixels that maps to this breakpoint.
	MinWidth int `json:"min_width" mapstructure:"min_width"`
}

// BreakpointTable is an ordered list of breakpoints, ascending by MinWidth.
type BreakpointTable []Breakpoint

// DefaultBreakpoints returns the standard four-class table.
func DefaultBreakpoints() BreakpointTable {
	return BreakpointTable{
		{Name: "mobile", MinWidth: 0},
		{Name: "tablet", MinWidth: 768},
		{Name: "desktop", MinWidth: 1280},
		{Name: "ultrawide", MinWidth: 1920},
	}
}

// Sort orders the table ascending by MinWidth in place.
func (t BreakpointTable) Sort() {
	sort.Slice(t, func(i, j int) bool { return t[i].MinWidth < t[j].MinWidth })
}

// Validate checks that the table is usable for classification.
func (t BreakpointTable) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("breakpoint table is empty")
	}
	seenName := make(map[string]bool, len(t))
	seenWidth := make(map[int]string, len(t))
	for _, bp := range t {
		if bp.Name == "" {
			return fmt.Errorf("breakpoint with min_width %d has no name", bp.MinWidth)
		}
		if seenName[bp.Name] {
			return fmt.Errorf("duplicate breakpoint name %q", bp.Name)
		}
		seenName[bp.Name] = true
		if bp.MinWidth < 0 {
			return fmt.Errorf("breakpoint %q has negative min_width %d", bp.Name, bp.MinWidth)
		}
		if other, ok := seenWidth[bp.MinWidth]; ok {
			return fmt.Errorf("breakpoints %q and %q share min_width %d", other, bp.Name, bp.MinWidth)
		}
		seenWidth[bp.MinWidth] = bp.Name
	}
	return nil
}

// Clone returns a copy of the table.
func (t BreakpointTable) Clone() BreakpointTable {
	out := make(BreakpointTable, len(t))
	copy(out, t)
	return out
}
