//go:build integration

package integration

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/panekit/panekit/internal/engine"
	"github.com/panekit/panekit/internal/store"
	"github.com/panekit/panekit/internal/workspace"
	"github.com/panekit/panekit/pkg/models"
)

// stack is the composition cmd/panekit builds: policy, provider,
// store, pane host, and the facade wired together.
type stack struct {
	facade     *engine.Facade
	host       *engine.StaticPaneHost
	db         *store.DB
	provider   *workspace.Provider
	policyPath string
}

// allowAllPolicy grants every mode to every pane with no restrictions
// and no permission requirements.
const allowAllPolicy = `
capabilities:
  - pane_id: "*"
    allowed_modes: [single_pane, split_screen, tabbed, grid, custom]
`

// newStack composes a full engine stack rooted at dir. The facade is
// not started; tests seed the store first when a scenario needs it.
func newStack(t *testing.T, dir, policyYAML string, panes []string, opts ...engine.Option) *stack {
	t.Helper()

	policyPath := workspace.PolicyPath(dir)
	if err := os.MkdirAll(filepath.Dir(policyPath), 0755); err != nil {
		t.Fatalf("creating policy dir: %v", err)
	}
	if err := os.WriteFile(policyPath, []byte(policyYAML), 0644); err != nil {
		t.Fatalf("writing policy: %v", err)
	}

	policy, err := workspace.LoadPolicy(policyPath)
	if err != nil {
		t.Fatalf("loading policy: %v", err)
	}
	provider := workspace.NewProvider(policy)

	db, err := store.Open(filepath.Join(dir, "layout.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrating store: %v", err)
	}

	host := engine.NewStaticPaneHost(panes...)

	base := []engine.Option{
		engine.WithPermissions(provider),
		engine.WithRestrictions(provider),
		engine.WithStore(db),
		engine.WithUser("alice"),
		engine.WithWorkspace("acme"),
		engine.WithAutoSaveQuietPeriod(time.Hour), // explicit saves only
	}
	facade, err := engine.NewFacade(
		engine.RequiredConfig{Registry: provider.Policy().Registry(), PaneHost: host},
		append(base, opts...)...,
	)
	if err != nil {
		t.Fatalf("NewFacade() error = %v", err)
	}
	t.Cleanup(func() { facade.Close() })

	return &stack{
		facade:     facade,
		host:       host,
		db:         db,
		provider:   provider,
		policyPath: policyPath,
	}
}

// start runs the facade's startup sequence.
func (s *stack) start(t *testing.T) {
	t.Helper()
	if err := s.facade.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
}

// sink collects events delivered through Subscribe.
type sink struct {
	mu     sync.Mutex
	events []engine.Event
}

func (s *sink) add(e engine.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *sink) all() []engine.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]engine.Event(nil), s.events...)
}

func (s *sink) count(et engine.EventType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.events {
		if e.Type == et {
			n++
		}
	}
	return n
}

func (s *sink) waitFor(t *testing.T, et engine.EventType, want int) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for s.count(et) < want {
		select {
		case <-deadline:
			t.Fatalf("saw %d %s events before deadline, want %d", s.count(et), et, want)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

// waitForStatus polls until the facade reports the wanted status.
func waitForStatus(t *testing.T, f *engine.Facade, want models.LayoutStatus) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if f.GetState().Status == want {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("status = %s, want %s before deadline", f.GetState().Status, want)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

// stuckVisual is a visual hook that never settles; transitions through
// it run into the timeout.
type stuckVisual struct{}

func (stuckVisual) AwaitVisual(ctx context.Context, req models.TransitionRequest, next models.LayoutConfiguration) error {
	<-ctx.Done()
	return ctx.Err()
}
