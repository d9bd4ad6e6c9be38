package tui

import (
	"github.com/panekit/panekit/pkg/models"
)

// CellRect is a pane's placement in terminal cells.
type CellRect struct {
	// X is the leftmost column.
	X int
	// Y is the topmost row.
	Y int
	// Width is the width in columns.
	Width int
	// Height is the height in rows.
	Height int
}

// LayoutManager tracks terminal size and the rows reserved for shell
// chrome around the pane area.
type LayoutManager struct {
	// totalWidth is the terminal width.
	totalWidth int
	// totalHeight is the terminal height.
	totalHeight int
	// statusHeight is the height reserved for the status bar.
	statusHeight int
	// logHeight is the height reserved for the event log.
	logHeight int
	// footerHeight is the height reserved for the help footer.
	footerHeight int
}

// NewLayoutManager creates a LayoutManager with the given terminal dimensions.
func NewLayoutManager(width, height int) *LayoutManager {
	return &LayoutManager{
		totalWidth:   width,
		totalHeight:  height,
		statusHeight: 1,
		logHeight:    6,
		footerHeight: 1,
	}
}

// SetSize updates the terminal dimensions.
func (l *LayoutManager) SetSize(width, height int) {
	l.totalWidth = width
	l.totalHeight = height
}

// ContentSize returns the pane area's width and height in cells. The
// event log collapses before the pane area does on short terminals.
func (l *LayoutManager) ContentSize() (int, int) {
	width := l.totalWidth
	if width < 1 {
		width = 1
	}
	height := l.totalHeight - l.statusHeight - l.LogLines() - l.footerHeight
	if height < 1 {
		height = 1
	}
	return width, height
}

// LogLines returns how many event-log rows fit the current terminal.
func (l *LayoutManager) LogLines() int {
	// Keep at least 6 rows for panes before granting the log any space.
	spare := l.totalHeight - l.statusHeight - l.footerHeight - 6
	if spare <= 0 {
		return 0
	}
	if spare < l.logHeight {
		return spare
	}
	return l.logHeight
}

// TotalWidth returns the current terminal width.
func (l *LayoutManager) TotalWidth() int {
	return l.totalWidth
}

// TotalHeight returns the current terminal height.
func (l *LayoutManager) TotalHeight() int {
	return l.totalHeight
}

// PaneRects converts a layout configuration's abstract slot grid into
// terminal cell rectangles for a width by height pane area. Only
// visible panes get a rectangle. Boundaries are computed by integer
// proportion so rounding spreads across slots and the rectangles tile
// the area exactly.
func PaneRects(cfg models.LayoutConfiguration, width, height int) map[string]CellRect {
	out := make(map[string]CellRect)
	if width < 1 || height < 1 {
		return out
	}

	switch cfg.Mode {
	case models.SplitScreen:
		splitRects(cfg, width, height, out)
	default:
		gridRects(cfg, width, height, out)
	}
	return out
}

// splitRects divides the width by the configuration's split sizes,
// with the last pane absorbing the rounding remainder.
func splitRects(cfg models.LayoutConfiguration, width, height int, out map[string]CellRect) {
	x := 0
	for i, slot := range cfg.Panes {
		if !slot.Visible {
			continue
		}
		w := width - x
		if i < len(cfg.Panes)-1 && i < len(cfg.SplitSizes) {
			w = int(float64(width) * cfg.SplitSizes[i])
			if w < 1 {
				w = 1
			}
			if w > width-x {
				w = width - x
			}
		}
		out[slot.PaneID] = CellRect{X: x, Y: 0, Width: w, Height: height}
		x += w
	}
}

// gridRects scales positioned slots from abstract grid coordinates to
// cells. Tabbed slots carry no position and render full-area; so does
// a configuration whose grid extent is degenerate.
func gridRects(cfg models.LayoutConfiguration, width, height int, out map[string]CellRect) {
	cols, rows := 0, 0
	for _, slot := range cfg.Panes {
		if slot.Position == nil {
			continue
		}
		if edge := slot.Position.X + slot.Position.W; edge > cols {
			cols = edge
		}
		if edge := slot.Position.Y + slot.Position.H; edge > rows {
			rows = edge
		}
	}

	for _, slot := range cfg.Panes {
		if !slot.Visible {
			continue
		}
		if slot.Position == nil || cols < 1 || rows < 1 {
			out[slot.PaneID] = CellRect{X: 0, Y: 0, Width: width, Height: height}
			continue
		}
		p := slot.Position
		x0 := p.X * width / cols
		x1 := (p.X + p.W) * width / cols
		y0 := p.Y * height / rows
		y1 := (p.Y + p.H) * height / rows
		out[slot.PaneID] = CellRect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
	}
}
