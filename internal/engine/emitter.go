// Package engine owns the authoritative layout state and the transition
// protocol around it.
package engine

import (
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// EventEmitter handles event emission for the engine.
// It provides a simple, thread-safe way to emit events to subscribers.
type EventEmitter struct {
	events       chan Event
	droppedCount atomic.Uint64

	mu     sync.RWMutex
	closed bool
}

// NewEventEmitter creates a new EventEmitter with the given buffer size.
func NewEventEmitter(bufferSize int) *EventEmitter {
	return &EventEmitter{
		events: make(chan Event, bufferSize),
	}
}

// Emit sends an event to the events channel.
// If the channel is full, it tries with a timeout before dropping the
// event. Events emitted after Close are dropped silently; recovery
// timers can outlive the session that armed them.
func (e *EventEmitter) Emit(event Event) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return
	}

	// Try immediate send first
	select {
	case e.events <- event:
		return
	default:
		// Channel full, try with timeout
	}

	// Try with 100ms timeout to give the receiver a chance to drain
	select {
	case e.events <- event:
		return
	case <-time.After(100 * time.Millisecond):
		// Timeout expired, drop the event
		count := e.droppedCount.Add(1)
		if count%10 == 1 { // Log every 10th drop to avoid spam
			log.Printf("[engine] WARNING: Event channel full, dropped event (total dropped: %d): type=%s", count, event.Type)
		}
	}
}

// DroppedCount returns the total number of events that have been dropped.
func (e *EventEmitter) DroppedCount() uint64 {
	return e.droppedCount.Load()
}

// Events returns a read-only channel of events.
// This is used by subscribers (e.g., the hosting shell) to receive updates.
func (e *EventEmitter) Events() <-chan Event {
	return e.events
}

// Close closes the events channel.
// This should be called when the engine is shut down.
func (e *EventEmitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		close(e.events)
	}
}
