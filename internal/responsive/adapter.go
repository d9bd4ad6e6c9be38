// Package responsive classifies viewport widths into breakpoints and
// adapts the layout when the breakpoint changes.
package responsive

import (
	"context"
	"log"
	"sync"

	"github.com/panekit/panekit/pkg/models"
)

// TransitionRequester is the slice of the state machine the adapter
// drives. Requests carry the responsive origin; the machine itself
// queues or coalesces them when a transition is already in flight.
type TransitionRequester interface {
	// CurrentMode returns the mode of the current configuration.
	CurrentMode() models.LayoutMode
	// RequestResponsiveTransition submits a responsive-origin request
	// for the given target mode under the given breakpoint.
	RequestResponsiveTransition(ctx context.Context, toMode models.LayoutMode, breakpoint string)
}

// OverrideSource yields the merged preference view consulted on
// breakpoint changes. Implementations re-merge from an in-memory cache;
// a breakpoint change never triggers a fetch from persistence.
type OverrideSource interface {
	// Merged returns the current merged preference.
	Merged() models.Preference
}

// Adapter subscribes to viewport size changes, classifies them, and
// requests a layout transition when the breakpoint class changes and
// the merged preferences override the mode for the new class.
type Adapter struct {
	classifier *Classifier
	machine    TransitionRequester
	prefs      OverrideSource

	mu         sync.Mutex
	breakpoint string
	width      int
	height     int
}

// NewAdapter wires a classifier, a transition requester, and an
// override source together. The initial breakpoint is unset until the
// first resize observation.
func NewAdapter(classifier *Classifier, machine TransitionRequester, prefs OverrideSource) *Adapter {
	return &Adapter{
		classifier: classifier,
		machine:    machine,
		prefs:      prefs,
	}
}

// Breakpoint returns the most recently observed breakpoint name, or
// empty if no resize has been observed yet.
func (a *Adapter) Breakpoint() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.breakpoint
}

// ViewportSize returns the most recently observed viewport dimensions.
func (a *Adapter) ViewportSize() (width, height int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.width, a.height
}

// HandleResize consumes one viewport size observation. When the
// breakpoint class changes, the merged preference override for the new
// class is looked up; if it names a mode different from the current
// one, a responsive-origin transition is requested. Resizes within the
// same breakpoint are recorded but trigger nothing, and overrides the
// responsive path cannot honor (custom, unknown modes) are skipped
// with a warning.
func (a *Adapter) HandleResize(ctx context.Context, width, height int) {
	next := a.classifier.Classify(width)

	a.mu.Lock()
	a.width, a.height = width, height
	prev := a.breakpoint
	a.breakpoint = next
	a.mu.Unlock()

	if next == prev {
		return
	}
	log.Printf("[responsive] breakpoint %s -> %s (width %d)", orUnset(prev), next, width)

	override, ok := a.prefs.Merged().OverrideFor(next)
	if !ok {
		return
	}
	// Stored overrides are not trusted: a seeded or hand-edited store
	// can name custom, which the responsive path cannot derive, or an
	// unknown mode entirely.
	if override == models.Custom || !override.Valid() {
		log.Printf("[responsive] warning: ignoring %s override %q, not a responsive target", next, override)
		return
	}
	if override == a.machine.CurrentMode() {
		return
	}
	a.machine.RequestResponsiveTransition(ctx, override, next)
}

func orUnset(bp string) string {
	if bp == "" {
		return "(unset)"
	}
	return bp
}
