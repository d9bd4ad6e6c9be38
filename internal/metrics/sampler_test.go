package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeSource returns scripted stats and can be switched into a failing
// state.
type fakeSource struct {
	mu    sync.Mutex
	stats Stats
	err   error
}

func (f *fakeSource) LayoutStats() (Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return Stats{}, f.err
	}
	return f.stats, nil
}

func (f *fakeSource) set(stats Stats, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stats = stats
	f.err = err
}

func TestNewSampler_RequiresSource(t *testing.T) {
	_, err := NewSampler(SamplerConfig{})
	if err == nil {
		t.Fatal("NewSampler() without source should return error")
	}
}

func TestSampler_CollectsImmediatelyOnStart(t *testing.T) {
	src := &fakeSource{}
	src.set(Stats{TransitionCount: 3, ActivePaneCount: 2, LastLatency: 40 * time.Millisecond}, nil)

	s, err := NewSampler(SamplerConfig{
		Source:   src,
		Interval: time.Hour, // only the immediate sample should run
		Dropped:  func() uint64 { return 7 },
	})
	if err != nil {
		t.Fatalf("NewSampler() error = %v", err)
	}
	s.Start()
	defer s.Stop()

	sample, ok := s.Latest()
	if !ok {
		t.Fatal("Latest() ok = false after Start, want true")
	}
	if sample.TransitionCount != 3 {
		t.Errorf("TransitionCount = %d, want 3", sample.TransitionCount)
	}
	if sample.ActivePaneCount != 2 {
		t.Errorf("ActivePaneCount = %d, want 2", sample.ActivePaneCount)
	}
	if sample.TransitionLatencyMs != 40 {
		t.Errorf("TransitionLatencyMs = %v, want 40", sample.TransitionLatencyMs)
	}
	if sample.DroppedEvents != 7 {
		t.Errorf("DroppedEvents = %d, want 7", sample.DroppedEvents)
	}
	if sample.HeapAllocBytes == 0 {
		t.Error("HeapAllocBytes = 0, want a live heap reading")
	}
}

func TestSampler_KeepsLastGoodSampleOnFailure(t *testing.T) {
	src := &fakeSource{}
	src.set(Stats{TransitionCount: 5}, nil)

	s, err := NewSampler(SamplerConfig{
		Source:   src,
		Interval: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewSampler() error = %v", err)
	}
	s.Start()
	defer s.Stop()

	first, ok := s.Latest()
	if !ok || first.TransitionCount != 5 {
		t.Fatalf("Latest() = %+v, %v, want TransitionCount 5", first, ok)
	}

	// Flip the source into a failing state and let a few intervals run.
	src.set(Stats{}, errors.New("engine unavailable"))
	deadline := time.After(2 * time.Second)
	for s.Failures() == 0 {
		select {
		case <-deadline:
			t.Fatal("sampler never observed a collection failure")
		case <-time.After(5 * time.Millisecond):
		}
	}

	sample, ok := s.Latest()
	if !ok {
		t.Fatal("Latest() ok = false after failures, want last good sample")
	}
	if sample.TransitionCount != 5 {
		t.Errorf("TransitionCount = %d after failures, want last good 5", sample.TransitionCount)
	}

	// Recovery: the next good reading replaces the stale sample.
	src.set(Stats{TransitionCount: 9}, nil)
	deadline = time.After(2 * time.Second)
	for {
		sample, _ = s.Latest()
		if sample.TransitionCount == 9 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("Latest().TransitionCount = %d, want 9 after recovery", sample.TransitionCount)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestSampler_LatestFalseBeforeStart(t *testing.T) {
	src := &fakeSource{}
	s, err := NewSampler(SamplerConfig{Source: src})
	if err != nil {
		t.Fatalf("NewSampler() error = %v", err)
	}
	if _, ok := s.Latest(); ok {
		t.Error("Latest() ok = true before Start, want false")
	}
	s.Stop()
}

func TestSampler_StopWithoutStart(t *testing.T) {
	src := &fakeSource{}
	s, err := NewSampler(SamplerConfig{Source: src})
	if err != nil {
		t.Fatalf("NewSampler() error = %v", err)
	}
	done := make(chan struct{})
	go func() {
		s.Stop()
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop() without Start did not return")
	}
}
