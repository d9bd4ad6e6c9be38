//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/panekit/panekit/internal/engine"
	"github.com/panekit/panekit/pkg/models"
)

// TestSplitScreenGetsEvenSizes verifies that two panes supporting
// split-screen transition into an even split.
func TestSplitScreenGetsEvenSizes(t *testing.T) {
	policy := `
capabilities:
  - pane_id: a
    allowed_modes: [single_pane, split_screen]
  - pane_id: b
    allowed_modes: [single_pane, split_screen]
`
	s := newStack(t, t.TempDir(), policy, []string{"a", "b"})
	s.start(t)

	out, err := s.facade.RequestTransition(context.Background(), models.SplitScreen)
	if err != nil {
		t.Fatalf("RequestTransition() error = %v", err)
	}
	if !out.Completed() {
		t.Fatalf("Outcome = %+v, want completed", out)
	}

	state := s.facade.GetState()
	if len(state.Current.SplitSizes) != 2 {
		t.Fatalf("SplitSizes = %v, want two entries", state.Current.SplitSizes)
	}
	if state.Current.SplitSizes[0] != 0.5 || state.Current.SplitSizes[1] != 0.5 {
		t.Errorf("SplitSizes = %v, want [0.5 0.5]", state.Current.SplitSizes)
	}
}

// TestUnsupportedModeLeavesStateUnchanged verifies that a pane
// supporting only single-pane rejects a grid request without any
// state change.
func TestUnsupportedModeLeavesStateUnchanged(t *testing.T) {
	policy := `
capabilities:
  - pane_id: a
    allowed_modes: [single_pane]
`
	s := newStack(t, t.TempDir(), policy, []string{"a"})
	s.start(t)

	events := &sink{}
	defer s.facade.Subscribe(events.add)()

	before := s.facade.GetState()

	out, err := s.facade.RequestTransition(context.Background(), models.Grid)
	if err != nil {
		t.Fatalf("RequestTransition() error = %v", err)
	}
	if out.Accepted {
		t.Fatal("grid request should be rejected")
	}
	if out.Reason != models.RejectUnsupportedByPane {
		t.Errorf("Reason = %v, want %v", out.Reason, models.RejectUnsupportedByPane)
	}

	after := s.facade.GetState()
	if !after.Current.Equal(before.Current) {
		t.Error("configuration changed on a rejected request")
	}
	events.waitFor(t, engine.EventTransitionRejected, 1)
}

// TestWorkspaceRestrictionBlocksAllowedMode verifies that workspace
// policy restricts a mode every pane would otherwise support.
func TestWorkspaceRestrictionBlocksAllowedMode(t *testing.T) {
	policy := `
layout_restrictions: [single_pane, tabbed]
capabilities:
  - pane_id: "*"
    allowed_modes: [single_pane, split_screen, tabbed, grid, custom]
`
	s := newStack(t, t.TempDir(), policy, []string{"editor", "terminal"})
	s.start(t)

	out, err := s.facade.RequestTransition(context.Background(), models.SplitScreen)
	if err != nil {
		t.Fatalf("RequestTransition() error = %v", err)
	}
	if out.Reason != models.RejectWorkspaceRestricted {
		t.Errorf("Reason = %v, want %v", out.Reason, models.RejectWorkspaceRestricted)
	}

	// A restricted workspace still allows what it lists.
	out, err = s.facade.RequestTransition(context.Background(), models.Tabbed)
	if err != nil {
		t.Fatalf("RequestTransition() error = %v", err)
	}
	if !out.Completed() {
		t.Errorf("tabbed outcome = %+v, want completed", out)
	}
}

// TestResizeAppliesBreakpointOverride verifies the responsive path end
// to end: a stored user override for the mobile breakpoint collapses a
// grid layout when the viewport shrinks past the threshold.
func TestResizeAppliesBreakpointOverride(t *testing.T) {
	ctx := context.Background()
	s := newStack(t, t.TempDir(), allowAllPolicy, []string{"editor", "terminal"})

	// Seed the store before startup so the override arrives through
	// the same load path a real session uses.
	err := s.db.SavePreference(ctx, models.ScopeUser, "alice", models.Preference{
		Scope: models.ScopeUser,
		ModeOverridesByBreakpoint: map[string]models.LayoutMode{
			"mobile": models.SinglePane,
		},
	})
	if err != nil {
		t.Fatalf("seeding preference: %v", err)
	}

	s.start(t)

	events := &sink{}
	defer s.facade.Subscribe(events.add)()

	s.facade.HandleResize(ctx, 1300, 800)
	if got := s.facade.Breakpoint(); got != "desktop" {
		t.Fatalf("Breakpoint() = %q, want desktop", got)
	}

	if out, err := s.facade.RequestTransition(ctx, models.Grid); err != nil || !out.Completed() {
		t.Fatalf("grid request = %+v, %v, want completed", out, err)
	}

	s.facade.HandleResize(ctx, 600, 800)

	if got := s.facade.Breakpoint(); got != "mobile" {
		t.Errorf("Breakpoint() = %q, want mobile", got)
	}
	waitForStatus(t, s.facade, models.StatusIdle)
	if got := s.facade.CurrentMode(); got != models.SinglePane {
		t.Errorf("CurrentMode() = %v, want %v", got, models.SinglePane)
	}

	// The collapse was issued by the adapter, not the user.
	events.waitFor(t, engine.EventTransitionCompleted, 2)
	responsive := false
	for _, e := range events.all() {
		if e.Type == engine.EventTransitionCompleted && e.Request != nil &&
			e.Request.Origin == models.OriginResponsive {
			responsive = true
		}
	}
	if !responsive {
		t.Error("no responsive-origin completion observed")
	}
}

// TestLockBlocksUntilUnlocked verifies the lock rejects transitions
// and releasing it lets the same request through.
func TestLockBlocksUntilUnlocked(t *testing.T) {
	s := newStack(t, t.TempDir(), allowAllPolicy, []string{"editor", "terminal"})
	s.start(t)

	s.facade.Lock()

	out, err := s.facade.RequestTransition(context.Background(), models.Tabbed)
	if err != nil {
		t.Fatalf("RequestTransition() error = %v", err)
	}
	if out.Reason != models.RejectLocked {
		t.Errorf("Reason = %v, want %v", out.Reason, models.RejectLocked)
	}

	s.facade.Unlock()

	out, err = s.facade.RequestTransition(context.Background(), models.Tabbed)
	if err != nil {
		t.Fatalf("RequestTransition() error = %v", err)
	}
	if !out.Completed() {
		t.Errorf("Outcome after unlock = %+v, want completed", out)
	}
	if got := s.facade.CurrentMode(); got != models.Tabbed {
		t.Errorf("CurrentMode() = %v, want %v", got, models.Tabbed)
	}
}

// TestTimeoutRecoversToPreviousLayout verifies that a transition
// exceeding the timeout parks the engine in the error status and the
// grace period restores the previous configuration unattended.
func TestTimeoutRecoversToPreviousLayout(t *testing.T) {
	s := newStack(t, t.TempDir(), allowAllPolicy, []string{"editor", "terminal"},
		engine.WithVisualHook(stuckVisual{}),
		engine.WithTransitionTimeout(40*time.Millisecond),
		engine.WithRecoveryGrace(60*time.Millisecond),
	)
	s.start(t)

	previous := s.facade.GetState().Current

	out, err := s.facade.RequestTransition(context.Background(), models.SplitScreen)
	if err != nil {
		t.Fatalf("RequestTransition() error = %v", err)
	}
	if out.Failure != models.FailureTimeout {
		t.Fatalf("Failure = %v, want %v", out.Failure, models.FailureTimeout)
	}

	state := s.facade.GetState()
	if state.Status != models.StatusError {
		t.Errorf("Status = %v, want %v", state.Status, models.StatusError)
	}
	if state.LastError != models.FailureTimeout {
		t.Errorf("LastError = %v, want %v", state.LastError, models.FailureTimeout)
	}
	if !state.Current.Equal(previous) {
		t.Error("failed transition must leave the previous configuration current")
	}

	// No retry arrives; the grace period elapses and the engine
	// settles back on its own.
	waitForStatus(t, s.facade, models.StatusIdle)

	state = s.facade.GetState()
	if !state.Current.Equal(previous) {
		t.Error("auto-recovery should restore the previous configuration")
	}
	if state.LastError != "" {
		t.Errorf("LastError = %v after recovery, want empty", state.LastError)
	}
}
