package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/panekit/panekit/internal/engine"
	"github.com/panekit/panekit/pkg/models"
)

// Shared styles for the shell chrome.
var (
	paneBorderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240"))

	focusedBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("205")).
				Bold(true)

	paneNameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236")).
			Padding(0, 1)

	statusErrorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("196")).
				Background(lipgloss.Color("236")).
				Bold(true).
				Padding(0, 1)

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			Background(lipgloss.Color("236")).
			Padding(0, 2)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245")).
				Padding(0, 2)

	overlayStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("58")).
			Padding(0, 1)

	logStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))
)

// renderPaneArea draws the authoritative configuration into a
// width-by-height cell area.
func renderPaneArea(cfg models.LayoutConfiguration, focused string, width, height int) string {
	if cfg.Mode == models.Tabbed {
		return renderTabbedArea(cfg, width, height)
	}

	rects := PaneRects(cfg, width, height)
	if len(rects) == 0 {
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, "no visible panes")
	}

	type placed struct {
		id   string
		rect CellRect
	}
	var slots []placed
	for _, slot := range cfg.Panes {
		if rect, ok := rects[slot.PaneID]; ok {
			slots = append(slots, placed{id: slot.PaneID, rect: rect})
		}
	}
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].rect.Y != slots[j].rect.Y {
			return slots[i].rect.Y < slots[j].rect.Y
		}
		return slots[i].rect.X < slots[j].rect.X
	})

	// Compose rows of panes sharing a top edge.
	var bands []string
	var row []string
	rowY := -1
	flush := func() {
		if len(row) > 0 {
			bands = append(bands, lipgloss.JoinHorizontal(lipgloss.Top, row...))
			row = nil
		}
	}
	for _, s := range slots {
		if s.rect.Y != rowY {
			flush()
			rowY = s.rect.Y
		}
		row = append(row, paneBox(s.id, s.rect, s.id == focused))
	}
	flush()
	return lipgloss.JoinVertical(lipgloss.Left, bands...)
}

// renderTabbedArea draws a tab bar per group and the active tab's pane
// underneath.
func renderTabbedArea(cfg models.LayoutConfiguration, width, height int) string {
	var parts []string
	bodyHeight := height - len(cfg.TabGroups)
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	for _, group := range cfg.TabGroups {
		var tabs []string
		for _, id := range group.Tabs {
			if id == group.ActiveTab {
				tabs = append(tabs, tabActiveStyle.Render(id))
			} else {
				tabs = append(tabs, tabInactiveStyle.Render(id))
			}
		}
		parts = append(parts, lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
		parts = append(parts, paneBox(group.ActiveTab, CellRect{Width: width, Height: bodyHeight}, true))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// paneBox draws one pane as a bordered box with its name centered.
func paneBox(id string, rect CellRect, focused bool) string {
	style := paneBorderStyle
	if focused {
		style = focusedBorderStyle
	}

	innerWidth := rect.Width - 2
	innerHeight := rect.Height - 2
	if innerWidth < 1 {
		innerWidth = 1
	}
	if innerHeight < 1 {
		innerHeight = 1
	}

	name := id
	if focused {
		name = "● " + id
	}
	content := lipgloss.Place(innerWidth, innerHeight, lipgloss.Center, lipgloss.Center,
		paneNameStyle.Render(name))
	return style.Width(innerWidth).Height(innerHeight).Render(content)
}

// statusLine summarizes the engine state in one row.
func statusLine(state models.LayoutState, breakpoint string, vw, vh int, locked bool, dropped uint64) string {
	parts := []string{
		fmt.Sprintf("mode:%s", state.Current.Mode),
		fmt.Sprintf("status:%s", state.Status),
		fmt.Sprintf("bp:%s %dx%d", breakpoint, vw, vh),
	}
	if locked {
		parts = append(parts, "locked")
	}
	if state.UnsavedChanges {
		parts = append(parts, "unsaved")
	} else if state.LastSavedAt != nil {
		parts = append(parts, "saved "+state.LastSavedAt.Format("15:04:05"))
	}
	if n := len(state.Current.Overlays); n > 0 {
		parts = append(parts, overlayStyle.Render(fmt.Sprintf("overlays:%d", n)))
	}
	if dropped > 0 {
		parts = append(parts, fmt.Sprintf("dropped:%d", dropped))
	}

	line := strings.Join(parts, "  ")
	if state.Status == models.StatusError {
		return statusErrorStyle.Render(line + "  error:" + string(state.LastError))
	}
	return statusStyle.Render(line)
}

// formatEvent renders one engine event as an event-log line.
func formatEvent(ev engine.Event) string {
	ts := ev.Timestamp.Format("15:04:05")
	switch ev.Type {
	case engine.EventTransitionStarted, engine.EventTransitionCompleted:
		mode := ""
		if ev.Config != nil {
			mode = string(ev.Config.Mode)
		} else if ev.Request != nil {
			mode = string(ev.Request.ToMode)
		}
		return fmt.Sprintf("%s %s %s", ts, ev.Type, mode)
	case engine.EventTransitionRejected, engine.EventTransitionFailed:
		mode := ""
		if ev.Request != nil {
			mode = string(ev.Request.ToMode) + " "
		}
		return fmt.Sprintf("%s %s %s(%s)", ts, ev.Type, mode, ev.Reason)
	case engine.EventPreferenceSaved:
		return fmt.Sprintf("%s %s scope=%s", ts, ev.Type, ev.Scope)
	case engine.EventPreferenceSaveFailed:
		return fmt.Sprintf("%s %s scope=%s %s: %s", ts, ev.Type, ev.Scope, ev.Reason, ev.Error)
	default:
		return fmt.Sprintf("%s %s", ts, ev.Type)
	}
}

// renderEventLog shows the most recent lines, newest last.
func renderEventLog(lines []string, max int) string {
	if max <= 0 {
		return ""
	}
	start := 0
	if len(lines) > max {
		start = len(lines) - max
	}
	var view []string
	for _, line := range lines[start:] {
		view = append(view, logStyle.Render("  "+line))
	}
	for len(view) < max {
		view = append(view, "")
	}
	return strings.Join(view, "\n")
}
