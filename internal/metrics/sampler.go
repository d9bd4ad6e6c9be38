// Package metrics samples engine and process counters on a fixed
// interval for display surfaces.
package metrics

import (
	"errors"
	"log"
	"runtime"
	"sync"
	"time"
)

// DefaultInterval is how often the sampler collects a reading.
const DefaultInterval = 1000 * time.Millisecond

// Stats is one read-only observation of the engine's counters.
type Stats struct {
	// TransitionCount is the total number of completed transitions.
	TransitionCount uint64
	// LastTransitionAt is when the most recent transition completed.
	LastTransitionAt time.Time
	// LastLatency is the request-to-completion latency of the most
	// recent transition.
	LastLatency time.Duration
	// ActivePaneCount is the pane host's current population.
	ActivePaneCount int
}

// Source supplies engine counters. Reads must be cheap and must never
// mutate layout state; local sources never fail, but remote ones may.
type Source interface {
	LayoutStats() (Stats, error)
}

// Sample is one collected reading. It is JSON-serializable for display
// surfaces and diagnostics dumps.
type Sample struct {
	// At is when the sample was collected.
	At time.Time `json:"at"`
	// TransitionCount is the total number of completed transitions.
	TransitionCount uint64 `json:"transition_count"`
	// TransitionLatencyMs is the latency of the most recent transition
	// in milliseconds.
	TransitionLatencyMs float64 `json:"transition_latency_ms"`
	// LastTransitionAt is when the most recent transition completed.
	LastTransitionAt time.Time `json:"last_transition_at"`
	// ActivePaneCount is the pane host's current population.
	ActivePaneCount int `json:"active_pane_count"`
	// HeapAllocBytes is the process's live heap allocation.
	HeapAllocBytes uint64 `json:"heap_alloc_bytes"`
	// DroppedEvents is the total number of engine events dropped.
	DroppedEvents uint64 `json:"dropped_events"`
}

// SamplerConfig configures a Sampler.
type SamplerConfig struct {
	// Source supplies engine counters. Required.
	Source Source
	// Dropped reports the engine's dropped-event counter; nil reports
	// zero.
	Dropped func() uint64
	// Interval overrides DefaultInterval when > 0.
	Interval time.Duration
}

// Sampler collects a Sample on a fixed interval. Collection is strictly
// read-only; a failed collection keeps the last good sample current, so
// display surfaces always have something coherent to show.
type Sampler struct {
	source   Source
	dropped  func() uint64
	interval time.Duration

	mu       sync.RWMutex
	last     Sample
	haveLast bool
	failures uint64

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
	stopped   chan struct{}
}

// NewSampler builds a sampler from its configuration.
func NewSampler(cfg SamplerConfig) (*Sampler, error) {
	if cfg.Source == nil {
		return nil, errors.New("sampler requires a source")
	}
	s := &Sampler{
		source:   cfg.Source,
		dropped:  cfg.Dropped,
		interval: cfg.Interval,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	if s.interval <= 0 {
		s.interval = DefaultInterval
	}
	if s.dropped == nil {
		s.dropped = func() uint64 { return 0 }
	}
	return s, nil
}

// Start begins the sampling loop. One immediate sample is collected so
// Latest has data before the first interval elapses. Start is
// idempotent.
func (s *Sampler) Start() {
	s.startOnce.Do(func() {
		s.collect()
		go s.loop()
	})
}

// Stop ends the sampling loop and waits for it to exit. Stop is
// idempotent and safe to call without Start.
func (s *Sampler) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
	s.startOnce.Do(func() { close(s.stopped) })
	<-s.stopped
}

// Latest returns the most recent good sample. ok is false until the
// first successful collection.
func (s *Sampler) Latest() (Sample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.haveLast
}

// Failures reports how many collections have failed since start.
func (s *Sampler) Failures() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.failures
}

func (s *Sampler) loop() {
	defer close(s.stopped)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.collect()
		case <-s.done:
			return
		}
	}
}

// collect gathers one sample. On source failure the previous sample
// stays current.
func (s *Sampler) collect() {
	stats, err := s.source.LayoutStats()
	if err != nil {
		s.mu.Lock()
		s.failures++
		n := s.failures
		s.mu.Unlock()
		if n%10 == 1 { // Log every 10th failure
			log.Printf("[metrics] warning: sample collection failed (total failures: %d): %v", n, err)
		}
		return
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	sample := Sample{
		At:                  time.Now(),
		TransitionCount:     stats.TransitionCount,
		TransitionLatencyMs: float64(stats.LastLatency) / float64(time.Millisecond),
		LastTransitionAt:    stats.LastTransitionAt,
		ActivePaneCount:     stats.ActivePaneCount,
		HeapAllocBytes:      mem.HeapAlloc,
		DroppedEvents:       s.dropped(),
	}

	s.mu.Lock()
	s.last = sample
	s.haveLast = true
	s.mu.Unlock()
}
