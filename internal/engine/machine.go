// Package engine owns the authoritative layout state and the transition
// protocol around it.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/panekit/panekit/pkg/models"
)

const (
	// DefaultTransitionTimeout bounds how long a transition may spend
	// awaiting its visual hook before failing with a timeout.
	DefaultTransitionTimeout = 5 * time.Second
	// DefaultRecoveryGrace is how long the machine stays in the error
	// status before automatically returning to the last good
	// configuration.
	DefaultRecoveryGrace = 3 * time.Second
)

// VisualHook is an optional collaborator notified of accepted
// transitions. AwaitVisual blocks until the presentation side has
// settled (e.g. an animation finished) or the context expires. The
// engine's correctness never depends on it; it only paces finalization.
type VisualHook interface {
	AwaitVisual(ctx context.Context, req models.TransitionRequest, next models.LayoutConfiguration) error
}

// Outcome is the resolved result of one transition request.
type Outcome struct {
	// Accepted is true when the request passed the lock, serialization,
	// and validation checks and a transition was started.
	Accepted bool
	// Queued is true for a responsive request retained while another
	// transition was in flight; it will run when the machine settles.
	Queued bool
	// Reason is the rejection reason when the request was refused.
	Reason models.RejectReason
	// Failure is set when an accepted transition failed.
	Failure models.FailureKind
	// Config is the resulting configuration for completed transitions.
	Config *models.LayoutConfiguration
}

// Completed reports whether the request ended with a new current
// configuration.
func (o Outcome) Completed() bool {
	return o.Accepted && o.Failure == "" && o.Config != nil
}

// queuedResponsive is the single retained responsive request. A newer
// breakpoint change replaces it, so only the latest target is honored.
type queuedResponsive struct {
	toMode     models.LayoutMode
	breakpoint string
}

// MachineConfig configures a StateMachine.
type MachineConfig struct {
	// Validator decides transition requests. Required.
	Validator *Validator
	// PaneHost supplies active panes and focus. Required.
	PaneHost PaneHost
	// Permissions answers permission checks; nil grants nothing.
	Permissions PermissionProvider
	// Restrictions supplies workspace restrictions; nil means none.
	Restrictions RestrictionSource
	// Breakpoint reports the current breakpoint for request records;
	// nil leaves it empty.
	Breakpoint func() string
	// Visual is the optional presentation hook.
	Visual VisualHook
	// Emit receives every engine event; nil discards them.
	Emit func(Event)
	// History records transition outcomes; nil disables recording.
	History *History
	// TransitionTimeout overrides DefaultTransitionTimeout when > 0.
	TransitionTimeout time.Duration
	// RecoveryGrace overrides DefaultRecoveryGrace when > 0.
	RecoveryGrace time.Duration
}

// StateMachine owns the authoritative LayoutState and serializes every
// mutation of it through the transition protocol. All other components
// read snapshots; none of them write.
type StateMachine struct {
	validator    *Validator
	paneHost     PaneHost
	permissions  PermissionProvider
	restrictions RestrictionSource
	breakpoint   func() string
	visual       VisualHook
	emit         func(Event)
	history      *History
	timeout      time.Duration
	grace        time.Duration

	mu         sync.Mutex
	state      models.LayoutState
	locked     bool
	queued     *queuedResponsive
	priorSplit map[string][]float64
	retrySeq   uint64

	transitionCount  atomic.Uint64
	lastTransitionAt time.Time
	lastLatency      time.Duration
}

// NewStateMachine builds a machine in the idle status with a default
// single-pane configuration for the host's current panes.
func NewStateMachine(cfg MachineConfig) (*StateMachine, error) {
	if cfg.Validator == nil {
		return nil, errors.New("state machine requires a validator")
	}
	if cfg.PaneHost == nil {
		return nil, errors.New("state machine requires a pane host")
	}
	m := &StateMachine{
		validator:    cfg.Validator,
		paneHost:     cfg.PaneHost,
		permissions:  cfg.Permissions,
		restrictions: cfg.Restrictions,
		breakpoint:   cfg.Breakpoint,
		visual:       cfg.Visual,
		emit:         cfg.Emit,
		history:      cfg.History,
		timeout:      cfg.TransitionTimeout,
		grace:        cfg.RecoveryGrace,
		priorSplit:   make(map[string][]float64),
	}
	if m.emit == nil {
		m.emit = func(Event) {}
	}
	if m.timeout <= 0 {
		m.timeout = DefaultTransitionTimeout
	}
	if m.grace <= 0 {
		m.grace = DefaultRecoveryGrace
	}

	panes := m.paneHost.ActivePaneIDs()
	if len(panes) == 0 {
		log.Printf("[machine] warning: pane host reported no panes, starting with a placeholder")
		panes = []string{"workspace"}
	}
	initial, err := DeriveConfiguration(DeriveInput{
		ToMode:        models.SinglePane,
		PaneIDs:       panes,
		FocusedPaneID: m.paneHost.FocusedPaneID(),
	})
	if err != nil {
		return nil, err
	}
	m.state = models.LayoutState{Current: initial, Status: models.StatusIdle}
	return m, nil
}

// GetState returns a deep snapshot of the authoritative state.
func (m *StateMachine) GetState() models.LayoutState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone()
}

// CurrentMode returns the mode of the current configuration.
func (m *StateMachine) CurrentMode() models.LayoutMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Current.Mode
}

// Lock freezes the layout: every transition request is rejected with
// the locked reason until Unlock.
func (m *StateMachine) Lock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.locked {
		m.locked = true
		log.Printf("[machine] layout locked")
	}
}

// Unlock releases the layout lock.
func (m *StateMachine) Unlock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locked {
		m.locked = false
		log.Printf("[machine] layout unlocked")
	}
}

// Locked reports whether the layout is frozen.
func (m *StateMachine) Locked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.locked
}

// RequestTransition runs the transition protocol for one request and
// blocks until its terminal outcome. Rejections leave the state
// untouched and are returned as values, never logged as failures.
func (m *StateMachine) RequestTransition(ctx context.Context, toMode models.LayoutMode, origin models.TransitionOrigin, custom *models.LayoutConfiguration) Outcome {
	bp := ""
	if m.breakpoint != nil {
		bp = m.breakpoint()
	}
	return m.request(ctx, toMode, origin, custom, bp)
}

// RequestResponsiveTransition submits a responsive-origin request for a
// breakpoint change. While another transition is in flight the request
// is queued, coalescing to the latest target rather than being dropped.
func (m *StateMachine) RequestResponsiveTransition(ctx context.Context, toMode models.LayoutMode, breakpoint string) {
	m.request(ctx, toMode, models.OriginResponsive, nil, breakpoint)
}

func (m *StateMachine) request(ctx context.Context, toMode models.LayoutMode, origin models.TransitionOrigin, custom *models.LayoutConfiguration, bp string) Outcome {
	req := models.TransitionRequest{
		ID:          uuid.New().String(),
		ToMode:      toMode,
		RequestedAt: time.Now(),
		Breakpoint:  bp,
		Origin:      origin,
	}

	m.mu.Lock()
	req.FromMode = m.state.Current.Mode

	if m.locked {
		m.mu.Unlock()
		return m.reject(req, models.RejectLocked, "layout is locked")
	}
	if m.state.Status == models.StatusTransitioning {
		if origin == models.OriginResponsive {
			if m.queued != nil {
				log.Printf("[machine] superseding queued responsive transition %s with %s", m.queued.toMode, toMode)
			}
			m.queued = &queuedResponsive{toMode: toMode, breakpoint: bp}
			m.mu.Unlock()
			return Outcome{Queued: true, Reason: models.RejectTransitionInProgress}
		}
		m.mu.Unlock()
		return m.reject(req, models.RejectTransitionInProgress, "another transition is in flight")
	}

	panes := m.paneHost.ActivePaneIDs()
	vctx := ValidationContext{ActivePaneIDs: panes, Permissions: m.permissions}
	if m.restrictions != nil {
		vctx.Restrictions = m.restrictions.LayoutRestrictions()
	}
	if d := m.validator.Validate(req, vctx); !d.Allowed {
		m.mu.Unlock()
		return m.reject(req, d.Reason, d.Detail)
	}

	// Claim the writer slot. From here the request must reach a
	// terminal outcome: completion, failure, or timeout.
	m.state.Status = models.StatusTransitioning
	pending := req.Clone()
	m.state.PendingRequest = &pending
	m.state.LastError = ""
	m.retrySeq++
	prior := m.priorSplit[paneSetKey(panes)]
	focused := m.paneHost.FocusedPaneID()
	m.mu.Unlock()

	m.emitEvent(Event{Type: EventTransitionStarted, Request: &req})

	next, err := DeriveConfiguration(DeriveInput{
		ToMode:          toMode,
		PaneIDs:         panes,
		FocusedPaneID:   focused,
		PriorSplitSizes: prior,
		Custom:          custom,
	})
	if err == nil {
		err = next.Validate()
	}
	if err != nil {
		return m.fail(req, models.FailureInvariantViolation, err)
	}

	if m.visual != nil {
		hctx, cancel := context.WithTimeout(ctx, m.timeout)
		err := m.visual.AwaitVisual(hctx, req, next)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return m.fail(req, models.FailureTimeout, err)
			}
			return m.fail(req, models.FailureInvariantViolation, err)
		}
	}

	return m.finalize(req, next)
}

// reject resolves a refused request. State was not modified.
func (m *StateMachine) reject(req models.TransitionRequest, reason models.RejectReason, detail string) Outcome {
	log.Printf("[machine] transition to %s rejected (%s): %s", req.ToMode, reason, detail)
	m.emitEvent(Event{Type: EventTransitionRejected, Request: &req, Reason: string(reason)})
	m.record(TransitionRecord{
		Request: req,
		Outcome: OutcomeRejected,
		Reason:  string(reason),
		EndedAt: time.Now(),
	})
	return Outcome{Reason: reason}
}

// fail moves the machine to the error status, preserving the previous
// configuration, and arms the auto-recovery timer.
func (m *StateMachine) fail(req models.TransitionRequest, kind models.FailureKind, cause error) Outcome {
	m.mu.Lock()
	m.state.Status = models.StatusError
	m.state.LastError = kind
	m.state.PendingRequest = nil
	seq := m.retrySeq
	m.mu.Unlock()

	log.Printf("[machine] transition to %s failed (%s): %v", req.ToMode, kind, cause)
	m.emitEvent(Event{Type: EventTransitionFailed, Request: &req, Reason: string(kind)})
	m.record(TransitionRecord{
		Request: req,
		Outcome: OutcomeFailed,
		Reason:  string(kind),
		Latency: time.Since(req.RequestedAt),
		EndedAt: time.Now(),
	})

	time.AfterFunc(m.grace, func() { m.autoRecover(seq) })

	m.runQueued()
	return Outcome{Accepted: true, Failure: kind}
}

// finalize installs the derived configuration and settles the machine
// back to idle. The live overlay stack is re-attached here so overlays
// registered during the transition are not lost.
func (m *StateMachine) finalize(req models.TransitionRequest, next models.LayoutConfiguration) Outcome {
	now := time.Now()
	latency := now.Sub(req.RequestedAt)

	m.mu.Lock()
	next.Overlays = append([]string(nil), m.state.Current.Overlays...)
	m.state.Current = next
	m.state.Status = models.StatusIdle
	m.state.PendingRequest = nil
	m.state.LastError = ""
	// Responsive and preference-load transitions apply stored
	// preferences; only a user choice diverges from them.
	if req.Origin == models.OriginUser {
		m.state.UnsavedChanges = true
	}
	if next.Mode == models.SplitScreen {
		m.priorSplit[paneSetKey(next.PaneIDs())] = append([]float64(nil), next.SplitSizes...)
	}
	m.lastTransitionAt = now
	m.lastLatency = latency
	m.transitionCount.Add(1)
	cfg := m.state.Current.Clone()
	m.mu.Unlock()

	m.emitEvent(Event{Type: EventTransitionCompleted, Request: &req, Config: &cfg})
	m.record(TransitionRecord{
		Request: req,
		Outcome: OutcomeCompleted,
		Latency: latency,
		EndedAt: now,
	})

	m.runQueued()
	out := cfg.Clone()
	return Outcome{Accepted: true, Config: &out}
}

// runQueued executes the retained responsive request, if any. Queued
// requests outlive their submitter, so they run under a background
// context rather than the finished caller's.
func (m *StateMachine) runQueued() {
	m.mu.Lock()
	q := m.queued
	m.queued = nil
	m.mu.Unlock()
	if q == nil {
		return
	}
	log.Printf("[machine] running queued responsive transition to %s", q.toMode)
	m.request(context.Background(), q.toMode, models.OriginResponsive, nil, q.breakpoint)
}

// autoRecover returns the machine to idle on the last good
// configuration when the error status was not cleared by a retry
// within the grace period.
func (m *StateMachine) autoRecover(seq uint64) {
	m.mu.Lock()
	if m.state.Status != models.StatusError || m.retrySeq != seq {
		m.mu.Unlock()
		return
	}
	m.state.Status = models.StatusIdle
	m.state.LastError = ""
	cfg := m.state.Current.Clone()
	m.mu.Unlock()

	log.Printf("[machine] auto-recovered to last good configuration (%s)", cfg.Mode)
	m.emitEvent(Event{Type: EventTransitionCompleted, Config: &cfg})
	m.runQueued()
}

// RegisterOverlay pushes an overlay onto the stack. Overlays are
// additive to any mode and skip validation; registering an already
// present overlay is a no-op.
func (m *StateMachine) RegisterOverlay(id string) {
	if id == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.state.Current.Overlays {
		if o == id {
			return
		}
	}
	m.state.Current.Overlays = append(m.state.Current.Overlays, id)
	log.Printf("[machine] overlay %q registered", id)
}

// DismissOverlay removes an overlay from the stack if present.
func (m *StateMachine) DismissOverlay(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, o := range m.state.Current.Overlays {
		if o == id {
			m.state.Current.Overlays = append(m.state.Current.Overlays[:i], m.state.Current.Overlays[i+1:]...)
			log.Printf("[machine] overlay %q dismissed", id)
			return
		}
	}
}

// SetSplitSizes adjusts the current split-screen sizes in place, the
// way a shell applies a divider drag. The sizes are remembered for the
// pane set, so returning to split screen later restores them.
func (m *StateMachine) SetSplitSizes(sizes []float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Status != models.StatusIdle {
		return fmt.Errorf("adjusting split sizes: layout is %s", m.state.Status)
	}
	if m.state.Current.Mode != models.SplitScreen {
		return fmt.Errorf("adjusting split sizes: current mode is %s", m.state.Current.Mode)
	}
	candidate := m.state.Current.Clone()
	candidate.SplitSizes = append([]float64(nil), sizes...)
	if err := candidate.Validate(); err != nil {
		return fmt.Errorf("adjusting split sizes: %w", err)
	}
	m.state.Current = candidate
	m.priorSplit[paneSetKey(candidate.PaneIDs())] = append([]float64(nil), sizes...)
	m.state.UnsavedChanges = true
	return nil
}

// MarkSaved records a successful preference save.
func (m *StateMachine) MarkSaved(at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.UnsavedChanges = false
	m.state.LastSavedAt = &at
}

// MarkUnsaved flags in-memory divergence from persisted preferences for
// changes made outside the transition protocol.
func (m *StateMachine) MarkUnsaved() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.UnsavedChanges = true
}

// Replay applies a completion event received from another session.
// Replay is idempotent: an event for the already-current configuration
// is a no-op, and events are only applied while the machine is idle.
// The payload must still fit this session: a configuration referencing
// panes the host does not carry, or a mode some active pane does not
// support, is refused with state unchanged.
func (m *StateMachine) Replay(e Event) error {
	if e.Type != EventTransitionCompleted {
		return nil
	}
	if e.Config == nil {
		return errors.New("replaying completion event: no configuration")
	}
	if err := e.Config.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Status != models.StatusIdle {
		log.Printf("[machine] skipping replay while %s", m.state.Status)
		return nil
	}
	if m.state.Current.Equal(*e.Config) {
		return nil
	}
	// The journal may come from a session hosting different panes.
	// Permission and restriction checks are skipped (the producing
	// session passed them), but capabilities are structural and must
	// hold here too.
	active := m.paneHost.ActivePaneIDs()
	hosted := make(map[string]bool, len(active))
	for _, id := range active {
		hosted[id] = true
	}
	for _, id := range e.Config.PaneIDs() {
		if !hosted[id] {
			return fmt.Errorf("replaying completion event: pane %q is not hosted", id)
		}
	}
	if !m.validator.SupportedByAll(active, e.Config.Mode) {
		return fmt.Errorf("replaying completion event: mode %s is not supported by every active pane", e.Config.Mode)
	}
	m.state.Current = e.Config.Clone()
	m.state.UnsavedChanges = true
	return nil
}

// TransitionStats reports counters consumed by the performance sampler.
func (m *StateMachine) TransitionStats() (count uint64, lastAt time.Time, lastLatency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transitionCount.Load(), m.lastTransitionAt, m.lastLatency
}

// ActivePaneCount reports the pane host's current population.
func (m *StateMachine) ActivePaneCount() int {
	return len(m.paneHost.ActivePaneIDs())
}

func (m *StateMachine) emitEvent(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	m.emit(e)
}

func (m *StateMachine) record(r TransitionRecord) {
	if m.history != nil {
		m.history.Record(r)
	}
}

// paneSetKey builds a stable key for a pane population so split sizes
// can be reused when the same set returns to split-screen mode.
func paneSetKey(paneIDs []string) string {
	sorted := append([]string(nil), paneIDs...)
	sort.Strings(sorted)
	return strings.Join(sorted, "\x00")
}
