package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/panekit/panekit/internal/config"
	"github.com/panekit/panekit/internal/engine"
	"github.com/panekit/panekit/internal/store"
	"github.com/panekit/panekit/pkg/models"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show persisted layout state",
	Long: `Display the layout state persisted for this workspace.

Shows:
  - The last journaled layout and when it was recorded
  - Recent layout transitions
  - Stored preferences per scope`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	// Try the project database first, then global
	dbPath := cfg.Storage.Path
	if dbPath == "" {
		dbPath = store.ProjectDBPath(cwd)
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			dbPath = store.GlobalDBPath()
		}
	}

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("No layout state yet. Run 'panekit' to start the shell.")
		return nil
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	ctx := context.Background()

	fmt.Printf("Store: %s\n", db.Path())

	if err := displayLastLayout(ctx, db); err != nil {
		return err
	}
	if err := displayRecentTransitions(ctx, db); err != nil {
		return err
	}
	return displayPreferences(ctx, cfg, db)
}

// displayLastLayout shows the newest journaled configuration.
func displayLastLayout(ctx context.Context, db *store.DB) error {
	stored, err := db.LatestEvent(ctx, string(engine.EventTransitionCompleted))
	if err != nil {
		return fmt.Errorf("reading journal: %w", err)
	}
	if stored == nil {
		fmt.Println("Last layout: none recorded")
		return nil
	}

	var ev engine.Event
	if err := json.Unmarshal(stored.Payload, &ev); err != nil {
		return fmt.Errorf("decoding journal entry: %w", err)
	}

	fmt.Printf("Last layout: ")
	if ev.Config != nil {
		fmt.Printf("%s, %d panes", ev.Config.Mode, len(ev.Config.Panes))
	} else {
		fmt.Printf("(no configuration)")
	}
	fmt.Printf(" (%s ago, session %s)\n", formatAge(time.Since(stored.CreatedAt)), stored.SessionID)
	return nil
}

// displayRecentTransitions lists the latest journal entries.
func displayRecentTransitions(ctx context.Context, db *store.DB) error {
	events, err := db.RecentEvents(ctx, string(engine.EventTransitionCompleted), 5)
	if err != nil {
		return fmt.Errorf("listing journal: %w", err)
	}
	if len(events) == 0 {
		return nil
	}

	fmt.Println("\nRecent transitions:")
	for _, stored := range events {
		var ev engine.Event
		mode := "?"
		if err := json.Unmarshal(stored.Payload, &ev); err == nil && ev.Config != nil {
			mode = string(ev.Config.Mode)
		}
		fmt.Printf("  %s (%s ago)\n", mode, formatAge(time.Since(stored.CreatedAt)))
	}
	return nil
}

// displayPreferences shows what each scope has persisted.
func displayPreferences(ctx context.Context, cfg *config.Config, db *store.DB) error {
	scopes := []struct {
		scope   models.PreferenceScope
		scopeID string
	}{
		{models.ScopeUser, cfg.Session.User},
		{models.ScopeWorkspace, cfg.Session.Workspace},
	}

	fmt.Println("\nStored preferences:")
	found := false
	for _, s := range scopes {
		pref, err := db.LoadPreference(ctx, s.scope, s.scopeID)
		if err != nil {
			return fmt.Errorf("loading %s preference: %w", s.scope, err)
		}
		if pref == nil {
			continue
		}
		found = true
		fmt.Printf("  %s/%s: default %s", s.scope, s.scopeID, pref.DefaultMode)
		if len(pref.ModeOverridesByBreakpoint) > 0 {
			fmt.Printf(", %d breakpoint override(s)", len(pref.ModeOverridesByBreakpoint))
		}
		fmt.Println()
	}
	if !found {
		fmt.Println("  none")
	}
	return nil
}

// formatAge formats a duration in a human-readable way.
func formatAge(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		if m > 0 {
			return fmt.Sprintf("%dh%dm", h, m)
		}
		return fmt.Sprintf("%dh", h)
	}
	days := int(d.Hours()) / 24
	return fmt.Sprintf("%dd", days)
}
