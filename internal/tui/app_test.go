package tui

import (
	"testing"

	"github.com/panekit/panekit/pkg/models"
)

func TestModeForKey(t *testing.T) {
	tests := []struct {
		key  string
		want models.LayoutMode
		ok   bool
	}{
		{"1", models.SinglePane, true},
		{"2", models.SplitScreen, true},
		{"3", models.Tabbed, true},
		{"4", models.Grid, true},
		{"5", models.Custom, true},
		{"6", "", false},
		{"q", "", false},
	}

	for _, tt := range tests {
		got, ok := modeForKey(tt.key)
		if got != tt.want || ok != tt.ok {
			t.Errorf("modeForKey(%q) = %v, %v, want %v, %v", tt.key, got, ok, tt.want, tt.ok)
		}
	}
}

func TestHasOverlay(t *testing.T) {
	overlays := []string{"modal", "palette"}

	if !hasOverlay(overlays, "palette") {
		t.Error("hasOverlay should find palette")
	}
	if hasOverlay(overlays, "toast") {
		t.Error("hasOverlay should not find toast")
	}
	if hasOverlay(nil, "modal") {
		t.Error("hasOverlay on nil should be false")
	}
}

func TestCustomShowcase_SinglePane(t *testing.T) {
	cfg := customShowcase([]string{"editor"}, "editor")

	if cfg.Mode != models.Custom {
		t.Errorf("Mode = %v, want %v", cfg.Mode, models.Custom)
	}
	if len(cfg.Panes) != 1 {
		t.Fatalf("Panes = %d, want 1", len(cfg.Panes))
	}
	pos := cfg.Panes[0].Position
	if pos == nil || *pos != (models.Rect{X: 0, Y: 0, W: 1, H: 1}) {
		t.Errorf("Position = %+v, want full cell", pos)
	}
}

func TestCustomShowcase_FocusedSpansLeft(t *testing.T) {
	cfg := customShowcase([]string{"editor", "terminal", "preview"}, "terminal")

	if err := cfg.Validate(); err != nil {
		t.Fatalf("showcase config invalid: %v", err)
	}
	if len(cfg.Panes) != 3 {
		t.Fatalf("Panes = %d, want 3", len(cfg.Panes))
	}

	// Focused pane comes first and spans the left column.
	first := cfg.Panes[0]
	if first.PaneID != "terminal" {
		t.Errorf("first pane = %s, want terminal", first.PaneID)
	}
	if first.Position.W != 2 || first.Position.H != 2 {
		t.Errorf("focused span = %dx%d, want 2x2", first.Position.W, first.Position.H)
	}

	// The rest stack in a right-hand column, all visible.
	rows := map[int]string{}
	for _, slot := range cfg.Panes[1:] {
		if !slot.Visible {
			t.Errorf("pane %s not visible", slot.PaneID)
		}
		if slot.Position.X != 2 {
			t.Errorf("pane %s X = %d, want 2", slot.PaneID, slot.Position.X)
		}
		rows[slot.Position.Y] = slot.PaneID
	}
	if rows[0] != "editor" || rows[1] != "preview" {
		t.Errorf("right column = %v, want editor then preview", rows)
	}
}

func TestCustomShowcase_UnknownFocusFallsBack(t *testing.T) {
	cfg := customShowcase([]string{"editor", "terminal"}, "gone")

	if cfg.Panes[0].PaneID != "editor" {
		t.Errorf("first pane = %s, want editor", cfg.Panes[0].PaneID)
	}
}

func TestCustomShowcase_NoPanes(t *testing.T) {
	cfg := customShowcase(nil, "")

	if len(cfg.Panes) != 0 {
		t.Errorf("Panes = %d, want 0", len(cfg.Panes))
	}
	if cfg.Mode != models.Custom {
		t.Errorf("Mode = %v, want %v", cfg.Mode, models.Custom)
	}
}
