// Package responsive classifies viewport widths into breakpoints and
// adapts the layout when the breakpoint changes.
package responsive

import (
	"fmt"

	"github.com/panekit/panekit/pkg/models"
)

// Classifier maps a viewport width to a breakpoint name. It holds a
// sorted copy of its breakpoint table, so classification is
// deterministic and allocation-free.
type Classifier struct {
	table models.BreakpointTable
}

// NewClassifier builds a classifier from a breakpoint table.
func NewClassifier(table models.BreakpointTable) (*Classifier, error) {
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("building classifier: %w", err)
	}
	sorted := table.Clone()
	sorted.Sort()
	return &Classifier{table: sorted}, nil
}

// Classify returns the name of the greatest breakpoint whose minimum
// width does not exceed the given width. Widths below the smallest
// breakpoint still classify as the smallest, never as unknown.
func (c *Classifier) Classify(width int) string {
	for i := len(c.table) - 1; i >= 0; i-- {
		if c.table[i].MinWidth <= width {
			return c.table[i].Name
		}
	}
	return c.table[0].Name
}

// Rank returns the ordinal position of a breakpoint name, smallest
// first, or -1 for unknown names. Useful for ordering comparisons.
func (c *Classifier) Rank(name string) int {
	for i, bp := range c.table {
		if bp.Name == name {
			return i
		}
	}
	return -1
}

// Breakpoints returns a copy of the sorted table.
func (c *Classifier) Breakpoints() models.BreakpointTable {
	return c.table.Clone()
}
