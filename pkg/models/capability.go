package models

// WildcardPaneID matches any pane not covered by a specific rule.
const WildcardPaneID = "*"

// CapabilityRule declares which layout modes a pane supports. Rules are
// read-only after registry construction; a request violating a rule is a
// validation rejection, never a crash.
type CapabilityRule struct {
	// PaneID is the pane this rule covers, or WildcardPaneID.
	PaneID string `json:"pane_id" yaml:"pane_id"`
	// AllowedModes lists the modes the pane supports.
	AllowedModes []LayoutMode `json:"allowed_modes" yaml:"allowed_modes"`
	// RequiredPermission, if set, gates the rule's modes behind a
	// permission grant.
	RequiredPermission string `json:"required_permission,omitempty" yaml:"required_permission,omitempty"`
}

// Modes returns the allowed modes as a set.
func (r CapabilityRule) Modes() ModeSet {
	return NewModeSet(r.AllowedModes...)
}
