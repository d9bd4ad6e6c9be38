// Package capability maps panes to the layout modes they support.
package capability

import (
	"github.com/panekit/panekit/pkg/models"
)

// Registry answers which layout modes a pane supports and which
// permission a mode requires. It is read-only after construction, so
// lookups need no locking and are safe from any goroutine.
type Registry struct {
	modesByPane     map[string]models.ModeSet
	wildcard        models.ModeSet
	modePermissions map[models.LayoutMode]string
}

// NewRegistry builds a registry from capability rules and a mode
// permission table. If no rule covers the wildcard pane ID, unknown
// panes conservatively support only single-pane mode, so an
// unregistered pane degrades gracefully instead of blocking the shell.
func NewRegistry(rules []models.CapabilityRule, modePermissions map[models.LayoutMode]string) *Registry {
	r := &Registry{
		modesByPane:     make(map[string]models.ModeSet, len(rules)),
		wildcard:        models.NewModeSet(models.SinglePane),
		modePermissions: make(map[models.LayoutMode]string, len(modePermissions)),
	}
	for _, rule := range rules {
		set := rule.Modes()
		if rule.PaneID == models.WildcardPaneID {
			r.wildcard = set
			continue
		}
		r.modesByPane[rule.PaneID] = set
	}
	for mode, perm := range modePermissions {
		if perm != "" {
			r.modePermissions[mode] = perm
		}
	}
	return r
}

// SupportedModes returns the modes the pane supports. Unknown panes get
// the wildcard rule's set. The returned set is shared; callers must not
// mutate it.
func (r *Registry) SupportedModes(paneID string) models.ModeSet {
	if set, ok := r.modesByPane[paneID]; ok {
		return set
	}
	return r.wildcard
}

// RequiredPermission returns the permission gating a mode, if any.
func (r *Registry) RequiredPermission(mode models.LayoutMode) (string, bool) {
	perm, ok := r.modePermissions[mode]
	return perm, ok
}

// IntersectionFor returns the modes supported by every listed pane.
// An empty pane list yields every mode, since no pane constrains it.
func (r *Registry) IntersectionFor(paneIDs []string) models.ModeSet {
	if len(paneIDs) == 0 {
		return models.NewModeSet(models.AllModes()...)
	}
	out := r.SupportedModes(paneIDs[0]).Clone()
	for _, id := range paneIDs[1:] {
		out = out.Intersect(r.SupportedModes(id))
		if out.Empty() {
			break
		}
	}
	return out
}
