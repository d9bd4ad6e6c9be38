// Package prefs merges, caches, and persists layout preferences across
// scopes.
package prefs

import (
	"context"
	"sync"

	"github.com/panekit/panekit/pkg/models"
)

// MemoryStore is a Store kept entirely in memory. It is the default
// when no database is configured, and test code uses its failure
// injection to exercise the retry paths.
type MemoryStore struct {
	mu    sync.Mutex
	prefs map[memKey]models.Preference
	saves int

	// FailNextSaves makes that many upcoming saves fail with the
	// injected error before succeeding again.
	failNext int
	failWith error
}

type memKey struct {
	scope models.PreferenceScope
	id    string
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{prefs: make(map[memKey]models.Preference)}
}

// LoadPreference returns the stored preference, or (nil, nil) when the
// key has never been saved.
func (m *MemoryStore) LoadPreference(_ context.Context, scope models.PreferenceScope, scopeID string) (*models.Preference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pref, ok := m.prefs[memKey{scope, scopeID}]
	if !ok {
		return nil, nil
	}
	c := pref.Clone()
	return &c, nil
}

// SavePreference stores a copy of the preference.
func (m *MemoryStore) SavePreference(_ context.Context, scope models.PreferenceScope, scopeID string, pref models.Preference) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.failNext > 0 {
		m.failNext--
		return m.failWith
	}
	m.prefs[memKey{scope, scopeID}] = pref.Clone()
	return nil
}

// Seed stores a preference directly, bypassing failure injection.
func (m *MemoryStore) Seed(scope models.PreferenceScope, scopeID string, pref models.Preference) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs[memKey{scope, scopeID}] = pref.Clone()
}

// FailNextSaves makes the next n saves return err.
func (m *MemoryStore) FailNextSaves(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = n
	m.failWith = err
}

// SaveCount reports how many saves were attempted, including failures.
func (m *MemoryStore) SaveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
