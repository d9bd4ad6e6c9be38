// Package engine owns the authoritative layout state and the transition
// protocol around it.
package engine

import "sync"

// StaticPaneHost is a PaneHost backed by an explicit pane list. The TUI
// shell and tests drive it directly; an embedding application would
// implement PaneHost over its own window tree instead.
type StaticPaneHost struct {
	mu      sync.RWMutex
	panes   []string
	focused string
	// focusOrder tracks focus history, most recent last, so collapsing
	// to a single pane keeps the most recently focused one visible.
	focusOrder []string
}

// NewStaticPaneHost builds a host with the given panes. The first pane
// starts focused.
func NewStaticPaneHost(paneIDs ...string) *StaticPaneHost {
	h := &StaticPaneHost{}
	h.SetPanes(paneIDs)
	return h
}

// ActivePaneIDs returns the current pane population.
func (h *StaticPaneHost) ActivePaneIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]string(nil), h.panes...)
}

// FocusedPaneID returns the most recently focused active pane, or the
// first pane when focus was never set.
func (h *StaticPaneHost) FocusedPaneID() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.focused != "" {
		return h.focused
	}
	if len(h.panes) > 0 {
		return h.panes[0]
	}
	return ""
}

// SetPanes replaces the pane population. Focus falls back through the
// focus history to the most recent pane that still exists.
func (h *StaticPaneHost) SetPanes(paneIDs []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.panes = append([]string(nil), paneIDs...)
	present := make(map[string]bool, len(paneIDs))
	for _, id := range paneIDs {
		present[id] = true
	}
	// Drop vanished panes from the focus history.
	kept := h.focusOrder[:0]
	for _, id := range h.focusOrder {
		if present[id] {
			kept = append(kept, id)
		}
	}
	h.focusOrder = kept
	if !present[h.focused] {
		h.focused = ""
		if len(kept) > 0 {
			h.focused = kept[len(kept)-1]
		}
	}
}

// AddPane appends a pane if not already present.
func (h *StaticPaneHost) AddPane(paneID string) {
	if paneID == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, id := range h.panes {
		if id == paneID {
			return
		}
	}
	h.panes = append(h.panes, paneID)
}

// RemovePane removes a pane; focus moves to the most recently focused
// survivor.
func (h *StaticPaneHost) RemovePane(paneID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, id := range h.panes {
		if id == paneID {
			h.panes = append(h.panes[:i], h.panes[i+1:]...)
			break
		}
	}
	kept := h.focusOrder[:0]
	for _, id := range h.focusOrder {
		if id != paneID {
			kept = append(kept, id)
		}
	}
	h.focusOrder = kept
	if h.focused == paneID {
		h.focused = ""
		if len(kept) > 0 {
			h.focused = kept[len(kept)-1]
		}
	}
}

// SetFocus marks a pane as focused. Unknown panes are ignored.
func (h *StaticPaneHost) SetFocus(paneID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	found := false
	for _, id := range h.panes {
		if id == paneID {
			found = true
			break
		}
	}
	if !found {
		return
	}
	h.focused = paneID
	kept := h.focusOrder[:0]
	for _, id := range h.focusOrder {
		if id != paneID {
			kept = append(kept, id)
		}
	}
	h.focusOrder = append(kept, paneID)
}
