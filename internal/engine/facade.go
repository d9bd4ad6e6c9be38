// Package engine owns the authoritative layout state and the transition
// protocol around it.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/panekit/panekit/internal/capability"
	"github.com/panekit/panekit/internal/metrics"
	"github.com/panekit/panekit/internal/prefs"
	"github.com/panekit/panekit/internal/responsive"
	"github.com/panekit/panekit/pkg/models"
)

// RequiredConfig contains the minimal required configuration for a
// Facade. All fields are required and have no defaults.
type RequiredConfig struct {
	// Registry answers which modes each pane supports.
	Registry *capability.Registry
	// PaneHost supplies the active panes and focus.
	PaneHost PaneHost
}

// Option configures a Facade. Use With* functions to create Options.
type Option func(*facadeOptions)

// facadeOptions holds all optional configuration.
type facadeOptions struct {
	permissions     PermissionProvider
	restrictions    RestrictionSource
	breakpoints     models.BreakpointTable
	visual          VisualHook
	store           prefs.Store
	user            string
	workspace       string
	paneBinding     string
	systemDefault   models.Preference
	timeout         time.Duration
	grace           time.Duration
	quietPeriod     time.Duration
	saveAttempts    int
	retryBackoff    time.Duration
	historySize     int
	eventBuffer     int
	samplerInterval time.Duration
}

// WithPermissions sets the permission provider consulted during
// validation.
func WithPermissions(p PermissionProvider) Option {
	return func(o *facadeOptions) { o.permissions = p }
}

// WithRestrictions sets the workspace restriction source.
func WithRestrictions(r RestrictionSource) Option {
	return func(o *facadeOptions) { o.restrictions = r }
}

// WithBreakpoints sets the breakpoint table used for responsive
// classification.
func WithBreakpoints(table models.BreakpointTable) Option {
	return func(o *facadeOptions) { o.breakpoints = table }
}

// WithVisualHook sets the presentation hook awaited during transitions.
func WithVisualHook(h VisualHook) Option {
	return func(o *facadeOptions) { o.visual = h }
}

// WithStore sets the preference store. Without one, preferences live
// only in memory for the session.
func WithStore(s prefs.Store) Option {
	return func(o *facadeOptions) { o.store = s }
}

// WithUser sets the user name keying the user preference scope.
func WithUser(name string) Option {
	return func(o *facadeOptions) { o.user = name }
}

// WithWorkspace sets the workspace name keying the workspace preference
// scope.
func WithWorkspace(name string) Option {
	return func(o *facadeOptions) { o.workspace = name }
}

// WithPaneBinding adds the pane preference scope for the given pane,
// giving it the highest precedence in the merge.
func WithPaneBinding(paneID string) Option {
	return func(o *facadeOptions) { o.paneBinding = paneID }
}

// WithSystemDefault sets the built-in system-scope preference.
func WithSystemDefault(p models.Preference) Option {
	return func(o *facadeOptions) { o.systemDefault = p }
}

// WithTransitionTimeout bounds how long a transition may await its
// visual hook.
func WithTransitionTimeout(d time.Duration) Option {
	return func(o *facadeOptions) { o.timeout = d }
}

// WithRecoveryGrace sets how long the error status holds before
// auto-recovery.
func WithRecoveryGrace(d time.Duration) Option {
	return func(o *facadeOptions) { o.grace = d }
}

// WithAutoSaveQuietPeriod sets how long preference changes must settle
// before the auto-save fires.
func WithAutoSaveQuietPeriod(d time.Duration) Option {
	return func(o *facadeOptions) { o.quietPeriod = d }
}

// WithSaveAttempts sets how many times a retryable save failure is
// attempted.
func WithSaveAttempts(n int) Option {
	return func(o *facadeOptions) { o.saveAttempts = n }
}

// WithSaveRetryBackoff sets the first save retry delay; it doubles per
// attempt.
func WithSaveRetryBackoff(d time.Duration) Option {
	return func(o *facadeOptions) { o.retryBackoff = d }
}

// WithHistorySize sets how many transition records are retained.
func WithHistorySize(n int) Option {
	return func(o *facadeOptions) { o.historySize = n }
}

// WithEventBuffer sets the event channel buffer size.
func WithEventBuffer(n int) Option {
	return func(o *facadeOptions) { o.eventBuffer = n }
}

// WithSamplerInterval sets the performance sampling interval.
func WithSamplerInterval(d time.Duration) Option {
	return func(o *facadeOptions) { o.samplerInterval = d }
}

func defaultFacadeOptions() facadeOptions {
	return facadeOptions{
		breakpoints:   models.DefaultBreakpoints(),
		user:          "default",
		workspace:     "default",
		systemDefault: models.Preference{DefaultMode: models.SinglePane},
		historySize:   64,
		eventBuffer:   100,
	}
}

// Facade is the single entry point embedding shells use to drive the
// layout engine. It composes the state machine, validator, responsive
// adapter, preference sync, and performance sampler, and fans engine
// events out to subscribers.
type Facade struct {
	sessionID  string
	registry   *capability.Registry
	paneHost   PaneHost
	validator  *Validator
	machine    *StateMachine
	emitter    *EventEmitter
	history    *History
	classifier *responsive.Classifier
	adapter    *responsive.Adapter
	prefsSync  *prefs.Sync
	sampler    *metrics.Sampler

	mu           sync.Mutex
	listeners    map[int]func(Event)
	nextListener int
	eventChans   []chan Event
	eventBuffer  int
	started      bool
	closed       bool

	fanoutDone chan struct{}
}

// NewFacade assembles the engine. The returned facade is idle on a
// single-pane configuration; call Start to load preferences and begin
// sampling.
func NewFacade(req RequiredConfig, opts ...Option) (*Facade, error) {
	if req.Registry == nil {
		return nil, errors.New("facade requires a capability registry")
	}
	if req.PaneHost == nil {
		return nil, errors.New("facade requires a pane host")
	}
	o := defaultFacadeOptions()
	for _, opt := range opts {
		opt(&o)
	}

	sessionID := uuid.New().String()[:8]

	// Create components
	classifier, err := responsive.NewClassifier(o.breakpoints)
	if err != nil {
		return nil, err
	}
	emitter := NewEventEmitter(o.eventBuffer)
	history := NewHistory(o.historySize)
	validator := NewValidator(req.Registry)

	f := &Facade{
		sessionID:   sessionID,
		registry:    req.Registry,
		paneHost:    req.PaneHost,
		validator:   validator,
		emitter:     emitter,
		history:     history,
		classifier:  classifier,
		listeners:   make(map[int]func(Event)),
		eventBuffer: o.eventBuffer,
		fanoutDone:  make(chan struct{}),
	}

	machine, err := NewStateMachine(MachineConfig{
		Validator:         validator,
		PaneHost:          req.PaneHost,
		Permissions:       o.permissions,
		Restrictions:      o.restrictions,
		Breakpoint:        f.currentBreakpoint,
		Visual:            o.visual,
		Emit:              emitter.Emit,
		History:           history,
		TransitionTimeout: o.timeout,
		RecoveryGrace:     o.grace,
	})
	if err != nil {
		return nil, err
	}
	f.machine = machine

	chain := prefs.DefaultChain(o.user, o.workspace)
	if o.paneBinding != "" {
		chain = append(chain, prefs.ScopeRef{Scope: models.ScopePane, ID: o.paneBinding})
	}
	prefSync, err := prefs.NewSync(prefs.SyncConfig{
		Store:         o.store,
		Chain:         chain,
		SystemDefault: &o.systemDefault,
		QuietPeriod:   o.quietPeriod,
		SaveAttempts:  o.saveAttempts,
		RetryBackoff:  o.retryBackoff,
		OnSaved:       f.onPreferenceSaved,
		OnSaveFailed:  f.onPreferenceSaveFailed,
	})
	if err != nil {
		return nil, err
	}
	f.prefsSync = prefSync

	f.adapter = responsive.NewAdapter(classifier, machine, prefSync)

	sampler, err := metrics.NewSampler(metrics.SamplerConfig{
		Source:   machineStats{machine},
		Dropped:  emitter.DroppedCount,
		Interval: o.samplerInterval,
	})
	if err != nil {
		return nil, err
	}
	f.sampler = sampler

	go f.fanOut()
	return f, nil
}

// Start loads persisted preferences, applies the merged default mode,
// and begins performance sampling. A failed preference load is logged
// and the session continues on built-in defaults; layout operations
// never depend on persistence being reachable.
func (f *Facade) Start(ctx context.Context) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return errors.New("facade is closed")
	}
	if f.started {
		f.mu.Unlock()
		return errors.New("facade already started")
	}
	f.started = true
	f.mu.Unlock()

	if err := f.prefsSync.Load(ctx); err != nil {
		log.Printf("[facade] warning: preference load failed, continuing with defaults: %v", err)
	}
	merged := f.prefsSync.Merged()
	if mode := merged.DefaultMode; mode != "" && mode != models.Custom && mode != f.machine.CurrentMode() {
		out := f.machine.RequestTransition(ctx, mode, models.OriginPreferenceLoad, nil)
		if !out.Accepted {
			log.Printf("[facade] preferred mode %s not applied (%s)", mode, out.Reason)
		}
	}

	f.sampler.Start()
	log.Printf("[facade] session %s started", f.sessionID)
	return nil
}

// Close flushes unsaved preferences, stops sampling, and shuts down
// event delivery. Close is idempotent.
func (f *Facade) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	f.mu.Unlock()

	f.sampler.Stop()

	var err error
	if f.prefsSync.Dirty() {
		if ferr := f.prefsSync.Flush(context.Background()); ferr != nil {
			err = fmt.Errorf("flushing preferences: %w", ferr)
		}
	}
	f.prefsSync.Close()

	f.emitter.Close()
	<-f.fanoutDone

	f.mu.Lock()
	for _, ch := range f.eventChans {
		close(ch)
	}
	f.eventChans = nil
	f.mu.Unlock()

	log.Printf("[facade] session %s closed", f.sessionID)
	return err
}

// SessionID returns the short identifier for this hosting session.
func (f *Facade) SessionID() string {
	return f.sessionID
}

// GetState returns a deep snapshot of the authoritative layout state.
func (f *Facade) GetState() models.LayoutState {
	return f.machine.GetState()
}

// CurrentMode returns the mode of the current configuration.
func (f *Facade) CurrentMode() models.LayoutMode {
	return f.machine.CurrentMode()
}

// RequestTransition submits a user-origin transition to the given mode
// and blocks until its terminal outcome. Rejections are reported in the
// Outcome, not as errors; the error return is for malformed requests.
func (f *Facade) RequestTransition(ctx context.Context, toMode models.LayoutMode) (Outcome, error) {
	if !toMode.Valid() {
		return Outcome{}, fmt.Errorf("unknown layout mode %q", toMode)
	}
	if toMode == models.Custom {
		return Outcome{}, errors.New("custom mode requires a configuration, use RequestCustomTransition")
	}
	out := f.machine.RequestTransition(ctx, toMode, models.OriginUser, nil)
	if out.Completed() {
		f.recordUserMode(toMode)
	}
	return out, nil
}

// RequestCustomTransition submits a user-origin transition to a
// caller-supplied custom configuration.
func (f *Facade) RequestCustomTransition(ctx context.Context, cfg models.LayoutConfiguration) (Outcome, error) {
	if cfg.Mode != models.Custom {
		return Outcome{}, fmt.Errorf("configuration mode is %q, want %q", cfg.Mode, models.Custom)
	}
	return f.machine.RequestTransition(ctx, models.Custom, models.OriginUser, &cfg), nil
}

// recordUserMode remembers a completed user mode choice in the user
// preference scope, where the auto-save will pick it up.
func (f *Facade) recordUserMode(mode models.LayoutMode) {
	if mode == models.Custom {
		return
	}
	err := f.prefsSync.Update(models.ScopeUser, func(p *models.Preference) {
		p.DefaultMode = mode
	})
	if err != nil {
		log.Printf("[facade] warning: recording default mode: %v", err)
	}
}

// HandleResize consumes one viewport size observation and lets the
// responsive adapter decide whether a transition is warranted.
func (f *Facade) HandleResize(ctx context.Context, width, height int) {
	f.adapter.HandleResize(ctx, width, height)
}

// Breakpoint returns the most recently observed breakpoint name.
func (f *Facade) Breakpoint() string {
	return f.adapter.Breakpoint()
}

// ViewportSize returns the most recently observed viewport dimensions.
func (f *Facade) ViewportSize() (width, height int) {
	return f.adapter.ViewportSize()
}

// Lock freezes the layout until Unlock; transition requests are
// rejected while locked.
func (f *Facade) Lock() {
	f.machine.Lock()
}

// Unlock releases the layout lock.
func (f *Facade) Unlock() {
	f.machine.Unlock()
}

// Locked reports whether the layout is frozen.
func (f *Facade) Locked() bool {
	return f.machine.Locked()
}

// SetSplitSizes applies a divider drag to the current split-screen
// configuration. The sizes are remembered for the pane set.
func (f *Facade) SetSplitSizes(sizes []float64) error {
	return f.machine.SetSplitSizes(sizes)
}

// RegisterOverlay pushes an overlay onto the stack. Overlays are
// additive and never trigger mode validation.
func (f *Facade) RegisterOverlay(id string) {
	f.machine.RegisterOverlay(id)
}

// DismissOverlay removes an overlay from the stack.
func (f *Facade) DismissOverlay(id string) {
	f.machine.DismissOverlay(id)
}

// Subscribe registers a listener for engine events and returns its
// unsubscribe function. Listeners run on the delivery goroutine and
// must not block.
func (f *Facade) Subscribe(listener func(Event)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextListener
	f.nextListener++
	f.listeners[id] = listener

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			delete(f.listeners, id)
		})
	}
}

// Events returns a buffered channel of engine events, closed when the
// facade closes. Each call gets its own channel; when a consumer falls
// behind its buffer, events are skipped rather than stalling delivery.
func (f *Facade) Events() <-chan Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan Event, f.eventBuffer)
	if f.closed {
		close(ch)
		return ch
	}
	id := f.nextListener
	f.nextListener++
	f.listeners[id] = func(e Event) {
		select {
		case ch <- e:
		default:
		}
	}
	f.eventChans = append(f.eventChans, ch)
	return ch
}

// Preferences returns the merged preference view.
func (f *Facade) Preferences() models.Preference {
	return f.prefsSync.Merged()
}

// SetDefaultMode records a preferred default mode at a scope. Custom is
// refused: custom layouts exist only through RequestCustomTransition
// and cannot be restored from a bare mode name.
func (f *Facade) SetDefaultMode(scope models.PreferenceScope, mode models.LayoutMode) error {
	if !mode.Valid() {
		return fmt.Errorf("unknown layout mode %q", mode)
	}
	if mode == models.Custom {
		return errors.New("custom mode cannot be a default, use RequestCustomTransition for custom layouts")
	}
	err := f.prefsSync.Update(scope, func(p *models.Preference) {
		p.DefaultMode = mode
	})
	if err != nil {
		return err
	}
	f.machine.MarkUnsaved()
	return nil
}

// SetBreakpointOverride records a mode override for a breakpoint at a
// scope. The responsive adapter consults overrides on breakpoint
// changes. Custom is refused: a responsive transition cannot supply the
// configuration custom layouts require, so such an override could only
// fail derivation.
func (f *Facade) SetBreakpointOverride(scope models.PreferenceScope, breakpoint string, mode models.LayoutMode) error {
	if !mode.Valid() {
		return fmt.Errorf("unknown layout mode %q", mode)
	}
	if mode == models.Custom {
		return errors.New("custom mode cannot be a breakpoint override, responsive transitions carry no configuration")
	}
	if f.classifier.Rank(breakpoint) < 0 {
		return fmt.Errorf("unknown breakpoint %q", breakpoint)
	}
	err := f.prefsSync.Update(scope, func(p *models.Preference) {
		if p.ModeOverridesByBreakpoint == nil {
			p.ModeOverridesByBreakpoint = make(map[string]models.LayoutMode)
		}
		p.ModeOverridesByBreakpoint[breakpoint] = mode
	})
	if err != nil {
		return err
	}
	f.machine.MarkUnsaved()
	return nil
}

// ClearBreakpointOverride removes a breakpoint override at a scope.
func (f *Facade) ClearBreakpointOverride(scope models.PreferenceScope, breakpoint string) error {
	err := f.prefsSync.Update(scope, func(p *models.Preference) {
		delete(p.ModeOverridesByBreakpoint, breakpoint)
	})
	if err != nil {
		return err
	}
	f.machine.MarkUnsaved()
	return nil
}

// SavePreferences persists every scope with unsaved changes
// immediately, bypassing the auto-save debounce.
func (f *Facade) SavePreferences(ctx context.Context) error {
	return f.prefsSync.Flush(ctx)
}

// Replay applies a serialized completion event from another session.
// Replays are idempotent and ignored while a transition is in flight.
func (f *Facade) Replay(data []byte) error {
	e, err := DecodeEvent(data)
	if err != nil {
		return err
	}
	return f.machine.Replay(e)
}

// Stats is the facade's aggregated observability snapshot.
type Stats struct {
	// SessionID identifies the hosting session.
	SessionID string
	// Sample is the latest performance sample; zero until HaveSample.
	Sample metrics.Sample
	// HaveSample is false until the sampler has collected once.
	HaveSample bool
	// Recent holds recent transition records, newest first.
	Recent []TransitionRecord
	// DroppedEvents counts events dropped on the emitter channel.
	DroppedEvents uint64
}

// Stats returns a point-in-time observability snapshot.
func (f *Facade) Stats() Stats {
	sample, ok := f.sampler.Latest()
	return Stats{
		SessionID:     f.sessionID,
		Sample:        sample,
		HaveSample:    ok,
		Recent:        f.history.Recent(10),
		DroppedEvents: f.emitter.DroppedCount(),
	}
}

// RecentTransitions returns up to n transition records, newest first.
func (f *Facade) RecentTransitions(n int) []TransitionRecord {
	return f.history.Recent(n)
}

// LatestSample returns the most recent performance sample.
func (f *Facade) LatestSample() (metrics.Sample, bool) {
	return f.sampler.Latest()
}

// DroppedEvents reports how many engine events were dropped because
// subscribers could not keep up.
func (f *Facade) DroppedEvents() uint64 {
	return f.emitter.DroppedCount()
}

// currentBreakpoint supplies the adapter's breakpoint to the machine
// for request records. The adapter is wired after the machine, so the
// nil check covers construction ordering.
func (f *Facade) currentBreakpoint() string {
	if f.adapter == nil {
		return ""
	}
	return f.adapter.Breakpoint()
}

// fanOut delivers emitted events to subscribers in registration order.
// It exits when the emitter closes.
func (f *Facade) fanOut() {
	defer close(f.fanoutDone)
	for e := range f.emitter.Events() {
		f.mu.Lock()
		ids := make([]int, 0, len(f.listeners))
		for id := range f.listeners {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		ls := make([]func(Event), 0, len(ids))
		for _, id := range ids {
			ls = append(ls, f.listeners[id])
		}
		f.mu.Unlock()
		for _, l := range ls {
			l(e)
		}
	}
}

// onPreferenceSaved reflects a successful save into layout state and
// the event stream.
func (f *Facade) onPreferenceSaved(scope models.PreferenceScope, at time.Time) {
	if !f.prefsSync.Dirty() {
		f.machine.MarkSaved(at)
	}
	f.emitter.Emit(Event{Type: EventPreferenceSaved, Timestamp: at, Scope: scope})
}

// onPreferenceSaveFailed surfaces a failed save. Unsaved changes remain
// flagged so callers can retry or warn on exit.
func (f *Facade) onPreferenceSaveFailed(scope models.PreferenceScope, err error, permanent bool) {
	e := Event{Type: EventPreferenceSaveFailed, Scope: scope, Error: err.Error()}
	if permanent {
		e.Reason = "permanent"
	} else {
		e.Reason = "retryable"
	}
	f.emitter.Emit(e)
}

// machineStats adapts the state machine to the sampler's source
// contract.
type machineStats struct {
	machine *StateMachine
}

func (s machineStats) LayoutStats() (metrics.Stats, error) {
	count, lastAt, latency := s.machine.TransitionStats()
	return metrics.Stats{
		TransitionCount:  count,
		LastTransitionAt: lastAt,
		LastLatency:      latency,
		ActivePaneCount:  s.machine.ActivePaneCount(),
	}, nil
}
