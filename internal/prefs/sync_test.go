package prefs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/panekit/panekit/pkg/models"
)

func testChain() []ScopeRef {
	return DefaultChain("alice", "acme")
}

func TestNewSync_RequiresChain(t *testing.T) {
	_, err := NewSync(SyncConfig{})
	if err == nil {
		t.Fatal("NewSync() with empty chain should return error")
	}
}

func TestNewSync_RejectsDuplicateScope(t *testing.T) {
	_, err := NewSync(SyncConfig{Chain: []ScopeRef{
		{Scope: models.ScopeUser, ID: "a"},
		{Scope: models.ScopeUser, ID: "b"},
	}})
	if err == nil {
		t.Fatal("NewSync() with duplicate scope should return error")
	}
}

func TestNewSync_RejectsInvalidScope(t *testing.T) {
	_, err := NewSync(SyncConfig{Chain: []ScopeRef{{Scope: "galaxy", ID: "a"}}})
	if err == nil {
		t.Fatal("NewSync() with unknown scope should return error")
	}
}

func TestSync_SystemDefaultSeedsMerge(t *testing.T) {
	s, err := NewSync(SyncConfig{
		Chain:         testChain(),
		SystemDefault: &models.Preference{DefaultMode: models.SinglePane},
	})
	if err != nil {
		t.Fatalf("NewSync() error = %v", err)
	}
	defer s.Close()

	if got := s.Merged().DefaultMode; got != models.SinglePane {
		t.Errorf("Merged().DefaultMode = %v, want %v", got, models.SinglePane)
	}
}

func TestSync_Load(t *testing.T) {
	store := NewMemoryStore()
	store.Seed(models.ScopeUser, "alice", models.Preference{
		DefaultMode: models.SplitScreen,
	})
	store.Seed(models.ScopeWorkspace, "acme", models.Preference{
		ModeOverridesByBreakpoint: map[string]models.LayoutMode{
			"mobile": models.SinglePane,
		},
	})

	s, err := NewSync(SyncConfig{
		Store:         store,
		Chain:         testChain(),
		SystemDefault: &models.Preference{DefaultMode: models.SinglePane},
	})
	if err != nil {
		t.Fatalf("NewSync() error = %v", err)
	}
	defer s.Close()

	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	merged := s.Merged()
	if merged.DefaultMode != models.SplitScreen {
		t.Errorf("DefaultMode = %v, want %v (user scope overrides system)", merged.DefaultMode, models.SplitScreen)
	}
	if mode, ok := merged.OverrideFor("mobile"); !ok || mode != models.SinglePane {
		t.Errorf("OverrideFor(mobile) = %v, %v, want %v, true", mode, ok, models.SinglePane)
	}
}

func TestSync_MergedPrecedence(t *testing.T) {
	store := NewMemoryStore()
	store.Seed(models.ScopeUser, "alice", models.Preference{
		DefaultMode: models.Tabbed,
		ModeOverridesByBreakpoint: map[string]models.LayoutMode{
			"mobile": models.Tabbed,
			"tablet": models.SplitScreen,
		},
	})
	store.Seed(models.ScopeWorkspace, "acme", models.Preference{
		ModeOverridesByBreakpoint: map[string]models.LayoutMode{
			"mobile": models.SinglePane,
		},
	})

	s, err := NewSync(SyncConfig{Store: store, Chain: testChain()})
	if err != nil {
		t.Fatalf("NewSync() error = %v", err)
	}
	defer s.Close()
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	merged := s.Merged()
	// Workspace wins for mobile, user's tablet entry survives untouched.
	if mode, _ := merged.OverrideFor("mobile"); mode != models.SinglePane {
		t.Errorf("OverrideFor(mobile) = %v, want %v", mode, models.SinglePane)
	}
	if mode, _ := merged.OverrideFor("tablet"); mode != models.SplitScreen {
		t.Errorf("OverrideFor(tablet) = %v, want %v", mode, models.SplitScreen)
	}
	if merged.DefaultMode != models.Tabbed {
		t.Errorf("DefaultMode = %v, want %v", merged.DefaultMode, models.Tabbed)
	}
}

func TestSync_UpdateMarksDirtyAndRemerges(t *testing.T) {
	s, err := NewSync(SyncConfig{Chain: testChain()})
	if err != nil {
		t.Fatalf("NewSync() error = %v", err)
	}
	defer s.Close()

	if s.Dirty() {
		t.Error("Dirty() = true before any update")
	}

	err = s.Update(models.ScopeUser, func(p *models.Preference) {
		p.DefaultMode = models.Grid
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if !s.Dirty() {
		t.Error("Dirty() = false after update, want true")
	}
	if got := s.Merged().DefaultMode; got != models.Grid {
		t.Errorf("Merged().DefaultMode = %v, want %v", got, models.Grid)
	}
}

func TestSync_UpdateRejectsScopeOutsideChain(t *testing.T) {
	s, err := NewSync(SyncConfig{Chain: testChain()})
	if err != nil {
		t.Fatalf("NewSync() error = %v", err)
	}
	defer s.Close()

	err = s.Update(models.ScopePane, func(p *models.Preference) {})
	if err == nil {
		t.Error("Update() for scope outside chain should return error")
	}
}

func TestSync_SaveNow(t *testing.T) {
	store := NewMemoryStore()
	var savedScope models.PreferenceScope
	var mu sync.Mutex

	s, err := NewSync(SyncConfig{
		Store: store,
		Chain: testChain(),
		OnSaved: func(scope models.PreferenceScope, at time.Time) {
			mu.Lock()
			savedScope = scope
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("NewSync() error = %v", err)
	}
	defer s.Close()

	if err := s.Update(models.ScopeUser, func(p *models.Preference) {
		p.DefaultMode = models.Tabbed
	}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if err := s.SaveNow(context.Background(), models.ScopeUser); err != nil {
		t.Fatalf("SaveNow() error = %v", err)
	}

	if s.Dirty() {
		t.Error("Dirty() = true after successful save, want false")
	}
	mu.Lock()
	if savedScope != models.ScopeUser {
		t.Errorf("OnSaved scope = %v, want %v", savedScope, models.ScopeUser)
	}
	mu.Unlock()

	loaded, err := store.LoadPreference(context.Background(), models.ScopeUser, "alice")
	if err != nil {
		t.Fatalf("LoadPreference() error = %v", err)
	}
	if loaded == nil || loaded.DefaultMode != models.Tabbed {
		t.Errorf("stored preference = %+v, want DefaultMode %v", loaded, models.Tabbed)
	}
}

func TestSync_SaveRetriesRetryableFailures(t *testing.T) {
	store := NewMemoryStore()
	store.FailNextSaves(2, Retryable(models.ScopeUser, "save", errors.New("disk busy")))

	s, err := NewSync(SyncConfig{
		Store:        store,
		Chain:        testChain(),
		SaveAttempts: 3,
		RetryBackoff: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewSync() error = %v", err)
	}
	defer s.Close()

	if err := s.Update(models.ScopeUser, func(p *models.Preference) {
		p.DefaultMode = models.Grid
	}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if err := s.SaveNow(context.Background(), models.ScopeUser); err != nil {
		t.Fatalf("SaveNow() error = %v, want success after retries", err)
	}
	if got := store.SaveCount(); got != 3 {
		t.Errorf("SaveCount() = %d, want 3 (two failures plus success)", got)
	}
	if s.Dirty() {
		t.Error("Dirty() = true after eventual success, want false")
	}
}

func TestSync_SavePermanentFailureDoesNotRetry(t *testing.T) {
	store := NewMemoryStore()
	store.FailNextSaves(5, Permanent(models.ScopeUser, "save", errors.New("schema mismatch")))

	var failedPermanent bool
	var mu sync.Mutex

	s, err := NewSync(SyncConfig{
		Store:        store,
		Chain:        testChain(),
		SaveAttempts: 3,
		RetryBackoff: time.Millisecond,
		OnSaveFailed: func(scope models.PreferenceScope, err error, permanent bool) {
			mu.Lock()
			failedPermanent = permanent
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("NewSync() error = %v", err)
	}
	defer s.Close()

	if err := s.Update(models.ScopeUser, func(p *models.Preference) {
		p.DefaultMode = models.Grid
	}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if err := s.SaveNow(context.Background(), models.ScopeUser); err == nil {
		t.Fatal("SaveNow() with permanent failure should return error")
	}
	if got := store.SaveCount(); got != 1 {
		t.Errorf("SaveCount() = %d, want 1 (permanent errors are not retried)", got)
	}
	if !s.Dirty() {
		t.Error("Dirty() = false after failed save, want true")
	}
	mu.Lock()
	if !failedPermanent {
		t.Error("OnSaveFailed permanent = false, want true")
	}
	mu.Unlock()
}

func TestSync_SaveGivesUpAfterAttempts(t *testing.T) {
	store := NewMemoryStore()
	store.FailNextSaves(10, Retryable(models.ScopeUser, "save", errors.New("disk busy")))

	s, err := NewSync(SyncConfig{
		Store:        store,
		Chain:        testChain(),
		SaveAttempts: 3,
		RetryBackoff: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewSync() error = %v", err)
	}
	defer s.Close()

	if err := s.Update(models.ScopeUser, func(p *models.Preference) {
		p.DefaultMode = models.Grid
	}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if err := s.SaveNow(context.Background(), models.ScopeUser); err == nil {
		t.Fatal("SaveNow() should return error after exhausting attempts")
	}
	if got := store.SaveCount(); got != 3 {
		t.Errorf("SaveCount() = %d, want 3", got)
	}
	if !s.Dirty() {
		t.Error("Dirty() = false after exhausted retries, want true")
	}
}

func TestSync_AutoSaveAfterQuietPeriod(t *testing.T) {
	store := NewMemoryStore()
	s, err := NewSync(SyncConfig{
		Store:       store,
		Chain:       testChain(),
		QuietPeriod: 50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewSync() error = %v", err)
	}
	defer s.Close()

	if err := s.Update(models.ScopeWorkspace, func(p *models.Preference) {
		p.DefaultMode = models.Tabbed
	}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	deadline := time.After(2 * time.Second)
	for s.Dirty() {
		select {
		case <-deadline:
			t.Fatal("auto-save did not fire within deadline")
		case <-time.After(10 * time.Millisecond):
		}
	}

	loaded, err := store.LoadPreference(context.Background(), models.ScopeWorkspace, "acme")
	if err != nil {
		t.Fatalf("LoadPreference() error = %v", err)
	}
	if loaded == nil || loaded.DefaultMode != models.Tabbed {
		t.Errorf("stored preference = %+v, want DefaultMode %v", loaded, models.Tabbed)
	}
}

func TestSync_AutoSaveRestartsOnNewChange(t *testing.T) {
	store := NewMemoryStore()
	s, err := NewSync(SyncConfig{
		Store:       store,
		Chain:       testChain(),
		QuietPeriod: 200 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewSync() error = %v", err)
	}
	defer s.Close()

	if err := s.Update(models.ScopeUser, func(p *models.Preference) {
		p.DefaultMode = models.Grid
	}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	time.Sleep(120 * time.Millisecond)
	if err := s.Update(models.ScopeUser, func(p *models.Preference) {
		p.DefaultMode = models.Tabbed
	}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	// 130ms after the second change: the restarted quiet period has not
	// elapsed, so nothing may have been saved yet.
	time.Sleep(130 * time.Millisecond)
	if got := store.SaveCount(); got != 0 {
		t.Errorf("SaveCount() = %d before quiet period elapsed, want 0", got)
	}

	deadline := time.After(2 * time.Second)
	for s.Dirty() {
		select {
		case <-deadline:
			t.Fatal("auto-save did not fire within deadline")
		case <-time.After(10 * time.Millisecond):
		}
	}

	loaded, err := store.LoadPreference(context.Background(), models.ScopeUser, "alice")
	if err != nil {
		t.Fatalf("LoadPreference() error = %v", err)
	}
	if loaded == nil || loaded.DefaultMode != models.Tabbed {
		t.Errorf("stored preference = %+v, want latest DefaultMode %v", loaded, models.Tabbed)
	}
}

func TestSync_FlushSavesAllDirtyScopes(t *testing.T) {
	store := NewMemoryStore()
	s, err := NewSync(SyncConfig{Store: store, Chain: testChain()})
	if err != nil {
		t.Fatalf("NewSync() error = %v", err)
	}
	defer s.Close()

	if err := s.Update(models.ScopeUser, func(p *models.Preference) {
		p.DefaultMode = models.Grid
	}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if err := s.Update(models.ScopeWorkspace, func(p *models.Preference) {
		p.ModeOverridesByBreakpoint = map[string]models.LayoutMode{
			"mobile": models.SinglePane,
		}
	}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if err := s.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if s.Dirty() {
		t.Error("Dirty() = true after Flush, want false")
	}
	if got := store.SaveCount(); got != 2 {
		t.Errorf("SaveCount() = %d, want 2", got)
	}
}

func TestSync_CloseCancelsAutoSave(t *testing.T) {
	store := NewMemoryStore()
	s, err := NewSync(SyncConfig{
		Store:       store,
		Chain:       testChain(),
		QuietPeriod: 30 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewSync() error = %v", err)
	}

	if err := s.Update(models.ScopeUser, func(p *models.Preference) {
		p.DefaultMode = models.Grid
	}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	s.Close()

	time.Sleep(100 * time.Millisecond)
	if got := store.SaveCount(); got != 0 {
		t.Errorf("SaveCount() = %d after Close, want 0", got)
	}
}

func TestSync_UpdateAfterCloseFails(t *testing.T) {
	s, err := NewSync(SyncConfig{Chain: testChain()})
	if err != nil {
		t.Fatalf("NewSync() error = %v", err)
	}
	s.Close()

	err = s.Update(models.ScopeUser, func(p *models.Preference) {})
	if err == nil {
		t.Error("Update() after Close should return error")
	}
}

func TestPersistError_Classification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"retryable persist error", Retryable(models.ScopeUser, "save", errors.New("locked")), true},
		{"permanent persist error", Permanent(models.ScopeUser, "save", errors.New("corrupt")), false},
		{"unclassified error", errors.New("mystery"), true},
		{"wrapped retryable", errors.Join(errors.New("outer"), Retryable(models.ScopeUser, "save", errors.New("locked"))), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.retryable {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.retryable)
			}
		})
	}
}

func TestPersistError_Unwrap(t *testing.T) {
	inner := errors.New("database is locked")
	err := Retryable(models.ScopeWorkspace, "save", inner)
	if !errors.Is(err, inner) {
		t.Error("errors.Is() should find the wrapped error")
	}
}
