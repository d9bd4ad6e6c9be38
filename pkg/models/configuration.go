package models

import (
	"fmt"
	"math"
)

// SplitSizeTolerance is the floating-point tolerance when checking that
// split-screen sizes sum to 1.0.
const SplitSizeTolerance = 1e-6

// Rect is a position in the configuration's abstract cell grid.
type Rect struct {
	// X is the column of the slot.
	X int `json:"x"`
	// Y is the row of the slot.
	Y int `json:"y"`
	// W is the width of the slot in cells.
	W int `json:"w"`
	// H is the height of the slot in cells.
	H int `json:"h"`
}

// PaneSlot places a single pane inside a layout configuration.
// A slot is positioned either by a grid Rect or by membership in a tab
// group, never both. Slots are owned by the configuration that contains
// them and are copied, not shared, across transitions.
type PaneSlot struct {
	// PaneID identifies the hosted pane.
	PaneID string `json:"pane_id"`
	// Position is the slot's cell rectangle, nil for tabbed slots.
	Position *Rect `json:"position,omitempty"`
	// TabGroupID is the owning tab group, empty for positioned slots.
	TabGroupID string `json:"tab_group_id,omitempty"`
	// Visible reports whether the pane is currently rendered.
	Visible bool `json:"visible"`
}

// Clone returns a deep copy of the slot.
func (p PaneSlot) Clone() PaneSlot {
	out := p
	if p.Position != nil {
		r := *p.Position
		out.Position = &r
	}
	return out
}

// TabGroup is an ordered collection of panes shown one at a time.
type TabGroup struct {
	// ID identifies the group within its configuration.
	ID string `json:"id"`
	// Tabs lists the member pane IDs in display order.
	Tabs []string `json:"tabs"`
	// ActiveTab is the pane currently shown; it must be a member of Tabs.
	ActiveTab string `json:"active_tab"`
}

// Clone returns a deep copy of the group.
func (g TabGroup) Clone() TabGroup {
	out := g
	out.Tabs = append([]string(nil), g.Tabs...)
	return out
}

// LayoutConfiguration is the complete description of a pane arrangement.
// It is a value object: transitions replace the whole configuration
// rather than mutating it in place.
type LayoutConfiguration struct {
	// Mode is the arrangement strategy this configuration realizes.
	Mode LayoutMode `json:"mode"`
	// Panes lists every hosted pane's slot; never empty.
	Panes []PaneSlot `json:"panes"`
	// SplitSizes holds one fraction per pane for split-screen mode.
	SplitSizes []float64 `json:"split_sizes,omitempty"`
	// TabGroups holds the tab groups for tabbed mode.
	TabGroups []TabGroup `json:"tab_groups,omitempty"`
	// Overlays is the stack of additive overlay IDs, bottom first.
	Overlays []string `json:"overlays,omitempty"`
}

// Clone returns a deep copy of the configuration.
func (c LayoutConfiguration) Clone() LayoutConfiguration {
	out := c
	out.Panes = make([]PaneSlot, len(c.Panes))
	for i, p := range c.Panes {
		out.Panes[i] = p.Clone()
	}
	if c.SplitSizes != nil {
		out.SplitSizes = append([]float64(nil), c.SplitSizes...)
	}
	if c.TabGroups != nil {
		out.TabGroups = make([]TabGroup, len(c.TabGroups))
		for i, g := range c.TabGroups {
			out.TabGroups[i] = g.Clone()
		}
	}
	if c.Overlays != nil {
		out.Overlays = append([]string(nil), c.Overlays...)
	}
	return out
}

// PaneIDs returns the pane IDs in slot order.
func (c LayoutConfiguration) PaneIDs() []string {
	ids := make([]string, len(c.Panes))
	for i, p := range c.Panes {
		ids[i] = p.PaneID
	}
	return ids
}

// HasPane returns true if the configuration contains the pane.
func (c LayoutConfiguration) HasPane(paneID string) bool {
	for _, p := range c.Panes {
		if p.PaneID == paneID {
			return true
		}
	}
	return false
}

// Validate checks the configuration's structural invariants.
func (c LayoutConfiguration) Validate() error {
	if !c.Mode.Valid() {
		return fmt.Errorf("invalid layout mode %q", c.Mode)
	}
	if len(c.Panes) == 0 {
		return fmt.Errorf("configuration has no panes")
	}
	seen := make(map[string]bool, len(c.Panes))
	for _, p := range c.Panes {
		if p.PaneID == "" {
			return fmt.Errorf("pane slot with empty pane ID")
		}
		if seen[p.PaneID] {
			return fmt.Errorf("duplicate pane %q", p.PaneID)
		}
		seen[p.PaneID] = true
		if p.Position != nil && p.TabGroupID != "" {
			return fmt.Errorf("pane %q has both a position and a tab group", p.PaneID)
		}
		if p.Position == nil && p.TabGroupID == "" {
			return fmt.Errorf("pane %q has neither a position nor a tab group", p.PaneID)
		}
	}

	switch c.Mode {
	case SplitScreen:
		if len(c.SplitSizes) != len(c.Panes) {
			return fmt.Errorf("split sizes count %d does not match pane count %d", len(c.SplitSizes), len(c.Panes))
		}
		sum := 0.0
		for i, s := range c.SplitSizes {
			if s <= 0 {
				return fmt.Errorf("split size %d is %v, must be positive", i, s)
			}
			sum += s
		}
		if math.Abs(sum-1.0) > SplitSizeTolerance {
			return fmt.Errorf("split sizes sum to %v, expected 1.0", sum)
		}
	case Tabbed:
		if len(c.TabGroups) == 0 {
			return fmt.Errorf("tabbed configuration has no tab groups")
		}
		for _, g := range c.TabGroups {
			if err := c.validateTabGroup(g); err != nil {
				return err
			}
		}
	}
	return nil
}

// validateTabGroup checks the single-active-tab invariant for one group.
func (c LayoutConfiguration) validateTabGroup(g TabGroup) error {
	if g.ID == "" {
		return fmt.Errorf("tab group with empty ID")
	}
	if len(g.Tabs) == 0 {
		return fmt.Errorf("tab group %q has no tabs", g.ID)
	}
	if g.ActiveTab == "" {
		return fmt.Errorf("tab group %q has no active tab", g.ID)
	}
	member := false
	for _, t := range g.Tabs {
		if t == g.ActiveTab {
			member = true
			break
		}
	}
	if !member {
		return fmt.Errorf("tab group %q active tab %q is not a member", g.ID, g.ActiveTab)
	}
	if !c.HasPane(g.ActiveTab) {
		return fmt.Errorf("tab group %q active tab %q references a missing pane", g.ID, g.ActiveTab)
	}
	return nil
}

// Equal reports whether two configurations are structurally identical.
// Replaying a transition event for an already-current configuration must
// be a no-op, so this comparison is exact, not tolerance-based.
func (c LayoutConfiguration) Equal(other LayoutConfiguration) bool {
	if c.Mode != other.Mode || len(c.Panes) != len(other.Panes) ||
		len(c.SplitSizes) != len(other.SplitSizes) ||
		len(c.TabGroups) != len(other.TabGroups) ||
		len(c.Overlays) != len(other.Overlays) {
		return false
	}
	for i, p := range c.Panes {
		q := other.Panes[i]
		if p.PaneID != q.PaneID || p.TabGroupID != q.TabGroupID || p.Visible != q.Visible {
			return false
		}
		if (p.Position == nil) != (q.Position == nil) {
			return false
		}
		if p.Position != nil && *p.Position != *q.Position {
			return false
		}
	}
	for i, s := range c.SplitSizes {
		if s != other.SplitSizes[i] {
			return false
		}
	}
	for i, g := range c.TabGroups {
		h := other.TabGroups[i]
		if g.ID != h.ID || g.ActiveTab != h.ActiveTab || len(g.Tabs) != len(h.Tabs) {
			return false
		}
		for j, t := range g.Tabs {
			if t != h.Tabs[j] {
				return false
			}
		}
	}
	for i, o := range c.Overlays {
		if o != other.Overlays[i] {
			return false
		}
	}
	return true
}
