// Package engine owns the authoritative layout state and the transition
// protocol around it.
package engine

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/panekit/panekit/pkg/models"
)

// EventType represents the type of engine event.
type EventType string

const (
	// EventTransitionStarted indicates a transition was accepted and is in flight.
	EventTransitionStarted EventType = "TransitionStarted"
	// EventTransitionCompleted indicates a transition finished and the
	// carried configuration is now current.
	EventTransitionCompleted EventType = "TransitionCompleted"
	// EventTransitionRejected indicates a request was refused by
	// validation or by the lock; the state did not change.
	EventTransitionRejected EventType = "TransitionRejected"
	// EventTransitionFailed indicates an accepted transition failed and
	// the machine entered the error status.
	EventTransitionFailed EventType = "TransitionFailed"
	// EventPreferenceSaved indicates preferences were persisted.
	EventPreferenceSaved EventType = "PreferenceSaved"
	// EventPreferenceSaveFailed indicates a preference save failed.
	EventPreferenceSaveFailed EventType = "PreferenceSaveFailed"
)

// Valid returns true if the event type is a known value.
func (t EventType) Valid() bool {
	switch t {
	case EventTransitionStarted, EventTransitionCompleted, EventTransitionRejected,
		EventTransitionFailed, EventPreferenceSaved, EventPreferenceSaveFailed:
		return true
	default:
		return false
	}
}

// Event is one engine occurrence delivered to subscribers. The same
// shape doubles as the JSON wire format when layout state is
// synchronized across sessions, so field names are stable.
type Event struct {
	// Type is the kind of event.
	Type EventType `json:"type"`
	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`
	// Request is the transition request, for transition events.
	Request *models.TransitionRequest `json:"request,omitempty"`
	// Config is the resulting configuration, for completion events.
	Config *models.LayoutConfiguration `json:"config,omitempty"`
	// Reason carries the rejection reason or failure kind.
	Reason string `json:"reason,omitempty"`
	// Scope is the preference scope, for preference events.
	Scope models.PreferenceScope `json:"scope,omitempty"`
	// Error holds failure details for save-failed events.
	Error string `json:"error,omitempty"`
}

// EncodeEvent serializes an event for the cross-session wire.
func EncodeEvent(e Event) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encoding %s event: %w", e.Type, err)
	}
	return data, nil
}

// DecodeEvent parses a wire event and checks its type is known.
func DecodeEvent(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("decoding event: %w", err)
	}
	if !e.Type.Valid() {
		return Event{}, fmt.Errorf("decoding event: unknown type %q", e.Type)
	}
	return e, nil
}
