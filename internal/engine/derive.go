// Package engine owns the authoritative layout state and the transition
// protocol around it.
package engine

import (
	"fmt"
	"math"

	"github.com/panekit/panekit/pkg/models"
)

// DeriveInput carries everything configuration derivation depends on.
// Derivation is pure: the same input always yields the same output, and
// nothing outside the returned value is touched.
type DeriveInput struct {
	// ToMode is the target layout mode.
	ToMode models.LayoutMode
	// PaneIDs are the active panes, in host order.
	PaneIDs []string
	// FocusedPaneID picks the visible pane for collapsing modes; panes
	// not in PaneIDs fall back to the first pane.
	FocusedPaneID string
	// PriorSplitSizes are the split sizes of an earlier configuration
	// for the identical pane set, nil when there is none.
	PriorSplitSizes []float64
	// Custom is the caller-supplied configuration for custom mode.
	Custom *models.LayoutConfiguration
}

// DeriveConfiguration computes the pane arrangement for a target mode.
// Overlay stacks are intentionally absent from the result; the state
// machine re-attaches the live stack when the transition finalizes.
func DeriveConfiguration(in DeriveInput) (models.LayoutConfiguration, error) {
	if in.ToMode == models.Custom {
		return deriveCustom(in)
	}
	if len(in.PaneIDs) == 0 {
		return models.LayoutConfiguration{}, fmt.Errorf("deriving %s configuration: no active panes", in.ToMode)
	}
	seen := make(map[string]bool, len(in.PaneIDs))
	for _, id := range in.PaneIDs {
		if id == "" {
			return models.LayoutConfiguration{}, fmt.Errorf("deriving %s configuration: empty pane ID", in.ToMode)
		}
		if seen[id] {
			return models.LayoutConfiguration{}, fmt.Errorf("deriving %s configuration: duplicate pane %q", in.ToMode, id)
		}
		seen[id] = true
	}

	focused := in.FocusedPaneID
	if !seen[focused] {
		focused = in.PaneIDs[0]
	}

	switch in.ToMode {
	case models.SinglePane:
		return deriveSinglePane(in.PaneIDs, focused), nil
	case models.SplitScreen:
		return deriveSplitScreen(in.PaneIDs, in.PriorSplitSizes), nil
	case models.Tabbed:
		return deriveTabbed(in.PaneIDs, focused), nil
	case models.Grid:
		return deriveGrid(in.PaneIDs), nil
	default:
		return models.LayoutConfiguration{}, fmt.Errorf("deriving configuration: unknown mode %q", in.ToMode)
	}
}

// deriveSinglePane collapses every pane into one full slot; only the
// focused pane is visible.
func deriveSinglePane(paneIDs []string, focused string) models.LayoutConfiguration {
	cfg := models.LayoutConfiguration{Mode: models.SinglePane}
	for _, id := range paneIDs {
		cfg.Panes = append(cfg.Panes, models.PaneSlot{
			PaneID:   id,
			Position: &models.Rect{X: 0, Y: 0, W: 1, H: 1},
			Visible:  id == focused,
		})
	}
	return cfg
}

// deriveSplitScreen places panes side by side. Sizes come from a prior
// configuration for the same pane set when available, otherwise every
// pane gets an equal share, with the final share absorbing the
// floating-point remainder so the sizes sum to exactly 1.0.
func deriveSplitScreen(paneIDs []string, prior []float64) models.LayoutConfiguration {
	n := len(paneIDs)
	cfg := models.LayoutConfiguration{Mode: models.SplitScreen}
	for i, id := range paneIDs {
		cfg.Panes = append(cfg.Panes, models.PaneSlot{
			PaneID:   id,
			Position: &models.Rect{X: i, Y: 0, W: 1, H: 1},
			Visible:  true,
		})
	}
	if len(prior) == n {
		cfg.SplitSizes = append([]float64(nil), prior...)
		return cfg
	}
	cfg.SplitSizes = make([]float64, n)
	share := 1.0 / float64(n)
	rest := 1.0
	for i := 0; i < n-1; i++ {
		cfg.SplitSizes[i] = share
		rest -= share
	}
	cfg.SplitSizes[n-1] = rest
	return cfg
}

// deriveTabbed puts every pane into one tab group with the focused pane
// as the active tab.
func deriveTabbed(paneIDs []string, focused string) models.LayoutConfiguration {
	const groupID = "main"
	cfg := models.LayoutConfiguration{
		Mode: models.Tabbed,
		TabGroups: []models.TabGroup{{
			ID:        groupID,
			Tabs:      append([]string(nil), paneIDs...),
			ActiveTab: focused,
		}},
	}
	for _, id := range paneIDs {
		cfg.Panes = append(cfg.Panes, models.PaneSlot{
			PaneID:     id,
			TabGroupID: groupID,
			Visible:    id == focused,
		})
	}
	return cfg
}

// deriveGrid lays panes out row-major in a square grid sized by the
// ceiling of the square root of the pane count.
func deriveGrid(paneIDs []string) models.LayoutConfiguration {
	side := int(math.Ceil(math.Sqrt(float64(len(paneIDs)))))
	cfg := models.LayoutConfiguration{Mode: models.Grid}
	for i, id := range paneIDs {
		cfg.Panes = append(cfg.Panes, models.PaneSlot{
			PaneID:   id,
			Position: &models.Rect{X: i % side, Y: i / side, W: 1, H: 1},
			Visible:  true,
		})
	}
	return cfg
}

// deriveCustom clones and validates the caller-supplied configuration.
// The caller keeps ownership of the original.
func deriveCustom(in DeriveInput) (models.LayoutConfiguration, error) {
	if in.Custom == nil {
		return models.LayoutConfiguration{}, fmt.Errorf("deriving custom configuration: no configuration supplied")
	}
	if in.Custom.Mode != models.Custom {
		return models.LayoutConfiguration{}, fmt.Errorf("deriving custom configuration: supplied mode is %q", in.Custom.Mode)
	}
	cfg := in.Custom.Clone()
	if err := cfg.Validate(); err != nil {
		return models.LayoutConfiguration{}, fmt.Errorf("deriving custom configuration: %w", err)
	}
	return cfg, nil
}
