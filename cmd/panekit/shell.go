package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/panekit/panekit/internal/config"
	"github.com/panekit/panekit/internal/engine"
	"github.com/panekit/panekit/internal/store"
	"github.com/panekit/panekit/internal/tui"
	"github.com/panekit/panekit/internal/version"
	"github.com/panekit/panekit/internal/workspace"
)

// journalKeep is how many journal rows survive the startup prune.
const journalKeep = 512

// runShell wires the engine to the terminal shell and runs until the
// user quits or the process is signalled.
func runShell() (retErr error) {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	// Recover from panics so the terminal is restored
	defer func() {
		if r := recover(); r != nil {
			retErr = fmt.Errorf("PANIC in shell: %v", r)
		}
	}()

	db, err := openStore(cfg, cwd)
	if err != nil {
		return fmt.Errorf("opening layout store: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrating layout store: %w", err)
	}

	policy, err := loadWorkspacePolicy(cwd)
	if err != nil {
		return err
	}
	provider := workspace.NewProvider(policy)

	// Live-reload workspace policy edits. Capability rules are read
	// once at startup; permissions and restrictions reload live.
	watcher, err := workspace.Watch(workspace.PolicyPath(cwd), provider, nil)
	if err != nil {
		log.Printf("[shell] warning: policy watch unavailable: %v", err)
	} else {
		defer watcher.Close()
	}

	host := engine.NewStaticPaneHost(parsePaneIDs(shellPanes)...)

	facade, err := engine.NewFacade(
		engine.RequiredConfig{Registry: provider.Policy().Registry(), PaneHost: host},
		engine.WithPermissions(provider),
		engine.WithRestrictions(provider),
		engine.WithBreakpoints(cfg.Breakpoints),
		engine.WithStore(db),
		engine.WithUser(cfg.Session.User),
		engine.WithWorkspace(cfg.Session.Workspace),
		engine.WithTransitionTimeout(cfg.Engine.TransitionTimeout),
		engine.WithRecoveryGrace(cfg.Engine.RecoveryGrace),
		engine.WithHistorySize(cfg.Engine.HistorySize),
		engine.WithEventBuffer(cfg.Engine.EventBuffer),
		engine.WithAutoSaveQuietPeriod(cfg.Preferences.AutoSaveQuietPeriod),
		engine.WithSaveAttempts(cfg.Preferences.SaveAttempts),
		engine.WithSaveRetryBackoff(cfg.Preferences.SaveRetryBackoff),
		engine.WithSamplerInterval(cfg.Metrics.SampleInterval),
	)
	if err != nil {
		return fmt.Errorf("creating layout engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := facade.Start(ctx); err != nil {
		return fmt.Errorf("starting layout engine: %w", err)
	}
	defer facade.Close()

	if err := db.PruneEvents(ctx, journalKeep); err != nil {
		log.Printf("[shell] warning: pruning journal: %v", err)
	}

	if !shellNoRestore {
		restoreLastLayout(ctx, db, facade)
	}

	// Journal completed transitions so the next session can restore
	// the last layout.
	unjournal := facade.Subscribe(func(ev engine.Event) {
		if ev.Type != engine.EventTransitionCompleted {
			return
		}
		payload, err := json.Marshal(ev)
		if err != nil {
			return
		}
		if err := db.AppendEvent(context.Background(), facade.SessionID(), string(ev.Type), payload); err != nil {
			log.Printf("[shell] warning: journaling event: %v", err)
		}
	})
	defer unjournal()

	// Suppress log output while the TUI is active (it corrupts the
	// display); --log-file redirects it instead.
	originalOutput := log.Writer()
	if shellLogFile != "" {
		lf, err := os.OpenFile(shellLogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer lf.Close()
		log.SetOutput(lf)
	} else {
		log.SetOutput(io.Discard)
	}
	defer log.SetOutput(originalOutput)

	log.Printf("[shell] %s, session %s", version.Line(), facade.SessionID())

	program, _ := tui.NewProgram(facade, host, cfg.TUI.RefreshRate)

	unsubscribe := facade.Subscribe(func(ev engine.Event) {
		program.Send(tui.EngineEventMsg{Event: ev})
	})
	defer unsubscribe()

	tuiDone := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				tuiDone <- fmt.Errorf("PANIC in TUI: %v", r)
			}
		}()
		_, err := program.Run()
		tuiDone <- err
	}()

	select {
	case err := <-tuiDone:
		return err
	case <-ctx.Done():
		program.Quit()
		<-tuiDone
		return nil
	}
}

// openStore resolves the database location from config: an explicit
// path wins, then the storage scope picks project or global.
func openStore(cfg *config.Config, workspaceRoot string) (*store.DB, error) {
	if cfg.Storage.Path != "" {
		return store.Open(cfg.Storage.Path)
	}
	if cfg.Storage.Scope == "project" {
		return store.OpenProject(workspaceRoot)
	}
	return store.OpenGlobal()
}

// loadWorkspacePolicy loads .panekit/workspace.yaml from the workspace
// root. A missing file means no policy; a malformed one is an error.
func loadWorkspacePolicy(workspaceRoot string) (*workspace.Policy, error) {
	path := workspace.PolicyPath(workspaceRoot)
	policy, err := workspace.LoadPolicy(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return workspace.DefaultPolicy(), nil
		}
		return nil, fmt.Errorf("loading workspace policy: %w", err)
	}
	return policy, nil
}

// restoreLastLayout replays the newest journaled transition so the
// shell opens where the previous session left off.
func restoreLastLayout(ctx context.Context, db *store.DB, facade *engine.Facade) {
	stored, err := db.LatestEvent(ctx, string(engine.EventTransitionCompleted))
	if err != nil {
		log.Printf("[shell] warning: reading journal: %v", err)
		return
	}
	if stored == nil {
		return
	}
	if err := facade.Replay(stored.Payload); err != nil {
		log.Printf("[shell] warning: restoring last layout: %v", err)
	}
}

// parsePaneIDs splits the --panes flag into pane IDs.
func parsePaneIDs(raw string) []string {
	var ids []string
	for _, part := range strings.Split(raw, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		ids = []string{"editor"}
	}
	return ids
}
