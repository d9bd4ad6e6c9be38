// Package engine owns the authoritative layout state and the transition
// protocol around it.
package engine

import (
	"fmt"

	"github.com/panekit/panekit/internal/capability"
	"github.com/panekit/panekit/pkg/models"
)

// PermissionProvider answers permission checks during validation. It is
// called synchronously and must not block or call back into the engine;
// an absent permission is false, never an error.
type PermissionProvider interface {
	HasPermission(name string) bool
}

// RestrictionSource exposes the active workspace's layout restrictions.
// An empty set means the workspace does not restrict modes.
type RestrictionSource interface {
	LayoutRestrictions() models.ModeSet
}

// PaneHost supplies the live pane population and the focus signal used
// to pick the active pane on transitions. Implementations must not call
// back into the engine.
type PaneHost interface {
	// ActivePaneIDs returns the IDs of all hosted panes.
	ActivePaneIDs() []string
	// FocusedPaneID returns the most recently focused pane's ID.
	FocusedPaneID() string
}

// ValidationContext carries everything a validation decision needs
// beyond the request itself.
type ValidationContext struct {
	// ActivePaneIDs are the panes that must all support the target mode.
	ActivePaneIDs []string
	// Permissions answers permission checks; nil grants nothing.
	Permissions PermissionProvider
	// Restrictions is the workspace's allowed-mode set; empty means
	// unrestricted.
	Restrictions models.ModeSet
}

// Decision is a validation verdict. Rejections are ordinary values; the
// caller decides how to surface them.
type Decision struct {
	// Allowed is true when the request passed every check.
	Allowed bool
	// Reason is set when the request was refused.
	Reason models.RejectReason
	// Detail is a human-readable explanation of the refusal.
	Detail string
}

// Accept is the decision for a request that passed validation.
func Accept() Decision {
	return Decision{Allowed: true}
}

// Reject builds a refusal decision.
func Reject(reason models.RejectReason, format string, args ...any) Decision {
	return Decision{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// Validator decides whether transition requests are allowed. It is a
// pure decision function over the capability registry and the supplied
// context; it never mutates state.
type Validator struct {
	registry *capability.Registry
}

// NewValidator creates a validator over the given registry.
func NewValidator(registry *capability.Registry) *Validator {
	return &Validator{registry: registry}
}

// SupportedByAll reports whether the mode is in the capability
// intersection of the listed panes.
func (v *Validator) SupportedByAll(paneIDs []string, mode models.LayoutMode) bool {
	return v.registry.IntersectionFor(paneIDs).Has(mode)
}

// Validate runs the ordered checks for one request, short-circuiting on
// the first failure. Capability mismatches are reported before
// permission and workspace issues: they are structural and cannot be
// fixed by a grant, so they are the most actionable refusal.
func (v *Validator) Validate(req models.TransitionRequest, vctx ValidationContext) Decision {
	supported := v.registry.IntersectionFor(vctx.ActivePaneIDs)
	if !supported.Has(req.ToMode) {
		return Reject(models.RejectUnsupportedByPane,
			"mode %s is not supported by every active pane", req.ToMode)
	}

	if perm, ok := v.registry.RequiredPermission(req.ToMode); ok {
		if vctx.Permissions == nil || !vctx.Permissions.HasPermission(perm) {
			return Reject(models.RejectInsufficientPermission,
				"mode %s requires permission %q", req.ToMode, perm)
		}
	}

	if !vctx.Restrictions.Empty() && !vctx.Restrictions.Has(req.ToMode) {
		return Reject(models.RejectWorkspaceRestricted,
			"workspace restricts layouts to %v", vctx.Restrictions.Modes())
	}

	return Accept()
}
