package models

import "time"

// LayoutStatus is the state machine's coarse status.
type LayoutStatus string

const (
	// StatusIdle means no transition is in flight.
	StatusIdle LayoutStatus = "idle"
	// StatusTransitioning means exactly one transition is in flight.
	StatusTransitioning LayoutStatus = "transitioning"
	// StatusError means the last transition failed; the previous
	// configuration remains current and renderable.
	StatusError LayoutStatus = "error"
)

// Valid returns true if the status is a known value.
func (s LayoutStatus) Valid() bool {
	switch s {
	case StatusIdle, StatusTransitioning, StatusError:
		return true
	default:
		return false
	}
}

// LayoutState is the authoritative layout record for one hosting session.
// It is mutated only by the layout state machine; every other component
// reads snapshots of it.
type LayoutState struct {
	// Current is the configuration the shell should render.
	Current LayoutConfiguration `json:"current"`
	// Status is the machine's coarse status.
	Status LayoutStatus `json:"status"`
	// PendingRequest is the in-flight request while transitioning.
	PendingRequest *TransitionRequest `json:"pending_request,omitempty"`
	// LastError is the failure kind that put the machine into the error
	// status, empty otherwise.
	LastError FailureKind `json:"last_error,omitempty"`
	// UnsavedChanges is true when the layout diverges from the last
	// persisted preferences.
	UnsavedChanges bool `json:"unsaved_changes"`
	// LastSavedAt is when preferences were last persisted, if ever.
	LastSavedAt *time.Time `json:"last_saved_at,omitempty"`
}

// Clone returns a deep copy of the state.
func (s LayoutState) Clone() LayoutState {
	out := s
	out.Current = s.Current.Clone()
	if s.PendingRequest != nil {
		r := s.PendingRequest.Clone()
		out.PendingRequest = &r
	}
	if s.LastSavedAt != nil {
		t := *s.LastSavedAt
		out.LastSavedAt = &t
	}
	return out
}
