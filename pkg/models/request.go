package models

import "time"

// TransitionOrigin identifies what triggered a transition request.
type TransitionOrigin string

const (
	// OriginUser marks a request made by an explicit user action.
	OriginUser TransitionOrigin = "user"
	// OriginResponsive marks a request issued by the responsive adapter.
	OriginResponsive TransitionOrigin = "responsive"
	// OriginPreferenceLoad marks a request applying restored preferences.
	OriginPreferenceLoad TransitionOrigin = "preference-load"
)

// Valid returns true if the origin is a known value.
func (o TransitionOrigin) Valid() bool {
	switch o {
	case OriginUser, OriginResponsive, OriginPreferenceLoad:
		return true
	default:
		return false
	}
}

// TransitionRequest describes one requested layout change. It is
// ephemeral: it exists only while its transition is pending or in flight.
type TransitionRequest struct {
	// ID uniquely identifies the request.
	ID string `json:"id"`
	// FromMode is the mode at the time the request was made.
	FromMode LayoutMode `json:"from_mode"`
	// ToMode is the requested target mode.
	ToMode LayoutMode `json:"to_mode"`
	// RequestedAt is when the request was made.
	RequestedAt time.Time `json:"requested_at"`
	// Breakpoint is the active breakpoint at request time.
	Breakpoint string `json:"breakpoint,omitempty"`
	// Origin identifies what triggered the request.
	Origin TransitionOrigin `json:"origin"`
}

// Clone returns a copy of the request.
func (r TransitionRequest) Clone() TransitionRequest {
	return r
}
