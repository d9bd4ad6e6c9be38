package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	shellPanes     string
	shellNoRestore bool
	shellLogFile   string
)

var rootCmd = &cobra.Command{
	Use:   "panekit",
	Short: "Layout orchestration engine for multi-pane workspaces",
	Long: `Panekit manages layout transitions for a multi-pane workspace: it
validates requests against pane capabilities, user permissions, and
workspace policy, serializes concurrent transitions, adapts the layout
to viewport breakpoints, and persists layered preferences.

With no arguments, launches an interactive shell where panes are laid
out in the terminal and every engine decision is visible live.

Core capabilities:
- Single-pane, split-screen, tabbed, grid, and custom layouts
- Ordered validation with typed rejection reasons
- Responsive breakpoint transitions with per-scope overrides
- Debounced preference auto-save with retry on transient failures
- Transition journal for restoring the last layout across sessions`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runShell()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Flags for the interactive shell
	rootCmd.Flags().StringVar(&shellPanes, "panes", "editor,terminal,preview", "Comma-separated initial pane IDs")
	rootCmd.Flags().BoolVar(&shellNoRestore, "no-restore", false, "Start from defaults instead of the last journaled layout")
	rootCmd.Flags().StringVar(&shellLogFile, "log-file", "", "Write engine logs to this file instead of discarding them")

	// Add subcommands
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
