// Package prefs merges, caches, and persists layout preferences across
// scopes.
package prefs

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/panekit/panekit/pkg/models"
)

const (
	// DefaultQuietPeriod is how long changes must sit unsaved before an
	// auto-save fires. A new change restarts the wait.
	DefaultQuietPeriod = 30 * time.Second
	// DefaultSaveAttempts is how many times a retryable save failure is
	// attempted before giving up until the next change.
	DefaultSaveAttempts = 3
	// DefaultRetryBackoff is the first retry delay; it doubles per
	// attempt.
	DefaultRetryBackoff = time.Second
)

// Store is the persistence collaborator: a key/value store addressed by
// (scope, scopeID). Load returns (nil, nil) when no preference exists
// for a key. Implementations classify failures with PersistError.
type Store interface {
	LoadPreference(ctx context.Context, scope models.PreferenceScope, scopeID string) (*models.Preference, error)
	SavePreference(ctx context.Context, scope models.PreferenceScope, scopeID string, pref models.Preference) error
}

// ScopeRef binds a preference scope to its storage key for a session.
type ScopeRef struct {
	// Scope is the preference level.
	Scope models.PreferenceScope
	// ID is the storage key within the scope (user name, workspace
	// name, pane ID).
	ID string
}

// DefaultChain is the session scope chain in ascending precedence,
// without a pane binding.
func DefaultChain(user, workspace string) []ScopeRef {
	return []ScopeRef{
		{Scope: models.ScopeSystem, ID: "default"},
		{Scope: models.ScopeUser, ID: user},
		{Scope: models.ScopeWorkspace, ID: workspace},
	}
}

// SyncConfig configures a Sync.
type SyncConfig struct {
	// Store persists preferences; nil keeps everything in memory.
	Store Store
	// Chain is the scope chain in ascending precedence. Required.
	Chain []ScopeRef
	// SystemDefault seeds the system scope before any load.
	SystemDefault *models.Preference
	// QuietPeriod overrides DefaultQuietPeriod when > 0.
	QuietPeriod time.Duration
	// SaveAttempts overrides DefaultSaveAttempts when > 0.
	SaveAttempts int
	// RetryBackoff overrides DefaultRetryBackoff when > 0.
	RetryBackoff time.Duration
	// OnSaved is called after a scope persists successfully.
	OnSaved func(scope models.PreferenceScope, at time.Time)
	// OnSaveFailed is called when a save gives up; permanent reports
	// whether retrying later could still succeed.
	OnSaveFailed func(scope models.PreferenceScope, err error, permanent bool)
}

// Sync owns the merged preference view for a session. Preferences are
// loaded once, cached, and re-merged in memory on every change; a
// breakpoint change never reaches back to the store. Saves are
// serialized per scope and debounced for auto-save.
type Sync struct {
	store    Store
	chain    []ScopeRef
	quiet    time.Duration
	attempts int
	backoff  time.Duration
	onSaved  func(models.PreferenceScope, time.Time)
	onFailed func(models.PreferenceScope, error, bool)

	mu       sync.Mutex
	working  map[models.PreferenceScope]*models.Preference
	merged   models.Preference
	dirty    map[models.PreferenceScope]bool
	gen      map[models.PreferenceScope]uint64
	debounce *time.Timer
	closed   bool

	saveMu map[models.PreferenceScope]*sync.Mutex
}

// NewSync builds a Sync from its configuration.
func NewSync(cfg SyncConfig) (*Sync, error) {
	if len(cfg.Chain) == 0 {
		return nil, fmt.Errorf("preference sync requires a scope chain")
	}
	seen := make(map[models.PreferenceScope]bool, len(cfg.Chain))
	for _, ref := range cfg.Chain {
		if !ref.Scope.Valid() {
			return nil, fmt.Errorf("invalid preference scope %q", ref.Scope)
		}
		if seen[ref.Scope] {
			return nil, fmt.Errorf("duplicate scope %q in chain", ref.Scope)
		}
		seen[ref.Scope] = true
	}

	s := &Sync{
		store:    cfg.Store,
		chain:    append([]ScopeRef(nil), cfg.Chain...),
		quiet:    cfg.QuietPeriod,
		attempts: cfg.SaveAttempts,
		backoff:  cfg.RetryBackoff,
		onSaved:  cfg.OnSaved,
		onFailed: cfg.OnSaveFailed,
		working:  make(map[models.PreferenceScope]*models.Preference),
		dirty:    make(map[models.PreferenceScope]bool),
		gen:      make(map[models.PreferenceScope]uint64),
		saveMu:   make(map[models.PreferenceScope]*sync.Mutex),
	}
	if s.quiet <= 0 {
		s.quiet = DefaultQuietPeriod
	}
	if s.attempts <= 0 {
		s.attempts = DefaultSaveAttempts
	}
	if s.backoff <= 0 {
		s.backoff = DefaultRetryBackoff
	}
	for _, ref := range s.chain {
		s.saveMu[ref.Scope] = &sync.Mutex{}
	}
	if cfg.SystemDefault != nil {
		def := cfg.SystemDefault.Clone()
		def.Scope = models.ScopeSystem
		s.working[models.ScopeSystem] = &def
	}
	s.remergeLocked()
	return s, nil
}

// Load fetches every scope in the chain from the store and rebuilds the
// merged view. Missing scopes are skipped; the merge is atomic, so
// readers never observe a partial chain.
func (s *Sync) Load(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	loaded := make(map[models.PreferenceScope]*models.Preference, len(s.chain))
	for _, ref := range s.chain {
		pref, err := s.store.LoadPreference(ctx, ref.Scope, ref.ID)
		if err != nil {
			return fmt.Errorf("loading %s preferences: %w", ref.Scope, err)
		}
		if pref != nil {
			p := pref.Clone()
			p.Scope = ref.Scope
			loaded[ref.Scope] = &p
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for scope, pref := range loaded {
		s.working[scope] = pref
	}
	s.remergeLocked()
	log.Printf("[prefs] loaded %d of %d scopes", len(loaded), len(s.chain))
	return nil
}

// Merged returns the cached merged preference view.
func (s *Sync) Merged() models.Preference {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.merged.Clone()
}

// Scope returns the working preference recorded at one scope, or nil.
func (s *Sync) Scope(scope models.PreferenceScope) *models.Preference {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p := s.working[scope]; p != nil {
		c := p.Clone()
		return &c
	}
	return nil
}

// Update applies a mutation to one scope's working preference, rebuilds
// the merged view, and arms the auto-save debounce. The quiet period
// restarts on every change, so saves only happen after changes settle.
func (s *Sync) Update(scope models.PreferenceScope, mutate func(*models.Preference)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("preference sync is closed")
	}
	if _, ok := s.saveMu[scope]; !ok {
		return fmt.Errorf("scope %q is not in this session's chain", scope)
	}
	p := s.working[scope]
	if p == nil {
		p = &models.Preference{Scope: scope}
		s.working[scope] = p
	}
	mutate(p)
	p.Scope = scope
	s.dirty[scope] = true
	s.gen[scope]++
	s.remergeLocked()
	s.armDebounceLocked()
	return nil
}

// Dirty reports whether any scope has unsaved changes.
func (s *Sync) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.dirty {
		if d {
			return true
		}
	}
	return false
}

// SaveNow persists one scope immediately, bypassing the debounce. This
// is the explicit-save path.
func (s *Sync) SaveNow(ctx context.Context, scope models.PreferenceScope) error {
	if _, ok := s.saveMu[scope]; !ok {
		return fmt.Errorf("scope %q is not in this session's chain", scope)
	}
	return s.saveScope(ctx, scope)
}

// Flush persists every dirty scope immediately. The first error is
// returned after all scopes are attempted.
func (s *Sync) Flush(ctx context.Context) error {
	s.mu.Lock()
	var scopes []models.PreferenceScope
	for _, ref := range s.chain {
		if s.dirty[ref.Scope] {
			scopes = append(scopes, ref.Scope)
		}
	}
	s.mu.Unlock()

	var firstErr error
	for _, scope := range scopes {
		if err := s.saveScope(ctx, scope); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close cancels the pending auto-save. It does not flush; callers that
// want a final save call Flush first.
func (s *Sync) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.debounce != nil {
		s.debounce.Stop()
		s.debounce = nil
	}
}

// remergeLocked rebuilds the merged view from the working scopes. The
// result is assembled off to the side and swapped in one assignment.
func (s *Sync) remergeLocked() {
	chain := make([]*models.Preference, 0, len(s.chain))
	for _, ref := range s.chain {
		chain = append(chain, s.working[ref.Scope])
	}
	s.merged = models.MergePreferences(chain...)
}

// armDebounceLocked restarts the auto-save timer.
func (s *Sync) armDebounceLocked() {
	if s.debounce != nil {
		s.debounce.Stop()
	}
	s.debounce = time.AfterFunc(s.quiet, s.autoSave)
}

// autoSave runs when changes have sat unsaved for the quiet period.
func (s *Sync) autoSave() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	var scopes []models.PreferenceScope
	for _, ref := range s.chain {
		if s.dirty[ref.Scope] {
			scopes = append(scopes, ref.Scope)
		}
	}
	s.mu.Unlock()

	for _, scope := range scopes {
		if err := s.saveScope(context.Background(), scope); err != nil {
			log.Printf("[prefs] auto-save for %s gave up: %v", scope, err)
		}
	}
}

// saveScope persists one scope, serialized against concurrent saves of
// the same scope. Retryable failures are retried with doubling backoff;
// any failure leaves the scope dirty.
func (s *Sync) saveScope(ctx context.Context, scope models.PreferenceScope) error {
	lock := s.saveMu[scope]
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	ref, ok := s.refFor(scope)
	pref := s.working[scope]
	gen := s.gen[scope]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("scope %q is not in this session's chain", scope)
	}
	if pref == nil {
		return nil
	}
	snapshot := pref.Clone()

	if s.store == nil {
		s.settleSave(scope, gen)
		return nil
	}

	var err error
	delay := s.backoff
	for attempt := 1; attempt <= s.attempts; attempt++ {
		err = s.store.SavePreference(ctx, scope, ref.ID, snapshot)
		if err == nil {
			s.settleSave(scope, gen)
			return nil
		}
		if !IsRetryable(err) {
			log.Printf("[prefs] save for %s failed permanently: %v", scope, err)
			s.notifyFailed(scope, err, true)
			return err
		}
		if attempt < s.attempts {
			log.Printf("[prefs] save attempt %d/%d for %s failed, retrying in %s: %v",
				attempt, s.attempts, scope, delay, err)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				s.notifyFailed(scope, ctx.Err(), false)
				return ctx.Err()
			}
			delay *= 2
		}
	}
	log.Printf("[prefs] save for %s failed after %d attempts: %v", scope, s.attempts, err)
	s.notifyFailed(scope, err, false)
	return err
}

// settleSave clears the dirty flag unless the scope changed again while
// the save was in flight.
func (s *Sync) settleSave(scope models.PreferenceScope, gen uint64) {
	now := time.Now()
	s.mu.Lock()
	if s.gen[scope] == gen {
		s.dirty[scope] = false
	}
	s.mu.Unlock()
	if s.onSaved != nil {
		s.onSaved(scope, now)
	}
}

func (s *Sync) notifyFailed(scope models.PreferenceScope, err error, permanent bool) {
	if s.onFailed != nil {
		s.onFailed(scope, err, permanent)
	}
}

func (s *Sync) refFor(scope models.PreferenceScope) (ScopeRef, bool) {
	for _, ref := range s.chain {
		if ref.Scope == scope {
			return ref, true
		}
	}
	return ScopeRef{}, false
}
