package models

// RejectReason explains why a transition request was refused. Rejections
// are expected outcomes returned to the caller as values; they are never
// treated as failures.
type RejectReason string

const (
	// RejectUnsupportedByPane means at least one active pane does not
	// support the requested mode.
	RejectUnsupportedByPane RejectReason = "unsupported_by_pane"
	// RejectInsufficientPermission means the caller lacks the permission
	// the requested mode requires.
	RejectInsufficientPermission RejectReason = "insufficient_permission"
	// RejectWorkspaceRestricted means the workspace restricts layouts to
	// a set that excludes the requested mode.
	RejectWorkspaceRestricted RejectReason = "workspace_restricted"
	// RejectLocked means the layout is frozen by an explicit lock.
	RejectLocked RejectReason = "locked"
	// RejectTransitionInProgress means another transition is in flight.
	RejectTransitionInProgress RejectReason = "transition_in_progress"
)

// Valid returns true if the reason is a known value.
func (r RejectReason) Valid() bool {
	switch r {
	case RejectUnsupportedByPane, RejectInsufficientPermission,
		RejectWorkspaceRestricted, RejectLocked, RejectTransitionInProgress:
		return true
	default:
		return false
	}
}

// FailureKind classifies an unexpected transition failure. Failures move
// the state machine into the error status while preserving the previous
// configuration.
type FailureKind string

const (
	// FailureInvariantViolation means configuration derivation produced
	// an internally inconsistent result.
	FailureInvariantViolation FailureKind = "internal_invariant_violation"
	// FailureTimeout means the transition did not complete within its
	// timeout.
	FailureTimeout FailureKind = "timeout"
)

// Valid returns true if the kind is a known value.
func (k FailureKind) Valid() bool {
	switch k {
	case FailureInvariantViolation, FailureTimeout:
		return true
	default:
		return false
	}
}
