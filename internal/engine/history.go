// Package engine owns the authoritative layout state and the transition
// protocol around it.
package engine

import (
	"sync"
	"time"

	"github.com/panekit/panekit/pkg/models"
)

// TransitionOutcome names how a transition request ended.
type TransitionOutcome string

const (
	// OutcomeCompleted means the transition finished and its
	// configuration became current.
	OutcomeCompleted TransitionOutcome = "completed"
	// OutcomeRejected means validation or the lock refused the request.
	OutcomeRejected TransitionOutcome = "rejected"
	// OutcomeFailed means an accepted transition failed into the error
	// status.
	OutcomeFailed TransitionOutcome = "failed"
)

// TransitionRecord is one entry in the transition history.
type TransitionRecord struct {
	// Request is the request this record describes.
	Request models.TransitionRequest `json:"request"`
	// Outcome is how the request ended.
	Outcome TransitionOutcome `json:"outcome"`
	// Reason carries the rejection reason or failure kind, if any.
	Reason string `json:"reason,omitempty"`
	// Latency is the time from request to terminal outcome.
	Latency time.Duration `json:"latency"`
	// EndedAt is when the record was made.
	EndedAt time.Time `json:"ended_at"`
}

// History keeps a fixed-size ring of recent transition records for the
// shell's event log and for observability. Oldest entries are evicted
// first.
type History struct {
	mu   sync.RWMutex
	buf  []TransitionRecord
	head int
	size int
}

// NewHistory creates a history ring with the given capacity.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{buf: make([]TransitionRecord, capacity)}
}

// Record appends one record, evicting the oldest when full.
func (h *History) Record(r TransitionRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.buf[h.head] = r
	h.head = (h.head + 1) % len(h.buf)
	if h.size < len(h.buf) {
		h.size++
	}
}

// Len returns the number of records currently held.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.size
}

// Recent returns up to n records, newest first.
func (h *History) Recent(n int) []TransitionRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if n < 0 {
		n = 0
	}
	if n > h.size {
		n = h.size
	}
	out := make([]TransitionRecord, 0, n)
	for i := 1; i <= n; i++ {
		idx := (h.head - i + len(h.buf)) % len(h.buf)
		out = append(out, h.buf[idx])
	}
	return out
}
