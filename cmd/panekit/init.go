package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/panekit/panekit/internal/workspace"
)

var (
	initForce      bool
	initWithConfig bool
)

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Initialize a panekit workspace",
	Long: `Initialize a directory for use with panekit.

This command sets up everything needed to run the shell:
  - Creates the .panekit directory
  - Creates an example workspace policy (workspace.yaml)
  - Optionally creates a project config template (.panekit.yaml)

The directory argument is optional and defaults to the current directory.

Examples:
  panekit init               # Initialize current directory
  panekit init ./myproject   # Initialize specific directory
  panekit init --force       # Rewrite example files even if present
  panekit init --with-config # Create .panekit.yaml template`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Rewrite example files even if present")
	initCmd.Flags().BoolVar(&initWithConfig, "with-config", false, "Create a .panekit.yaml project config template")
}

func runInit(cmd *cobra.Command, args []string) error {
	// Step 1: Resolve target directory
	targetDir := "."
	if len(args) > 0 {
		targetDir = args[0]
	}

	absPath, err := filepath.Abs(targetDir)
	if err != nil {
		return fmt.Errorf("resolving absolute path: %w", err)
	}

	if err := os.MkdirAll(absPath, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", absPath, err)
	}

	fmt.Printf("Initializing panekit in %s...\n\n", absPath)

	// Step 2: Create .panekit structure
	panekitDir := filepath.Join(absPath, workspace.WorkspaceDirName)
	if err := os.MkdirAll(panekitDir, 0755); err != nil {
		return fmt.Errorf("creating %s directory: %w", workspace.WorkspaceDirName, err)
	}
	printStatus("✓", "Created .panekit directory", color.FgGreen)

	// Step 3: Example workspace policy
	policyPath := workspace.PolicyPath(absPath)
	wrote, err := writePolicyTemplate(policyPath)
	if err != nil {
		return fmt.Errorf("creating workspace policy: %w", err)
	}
	if wrote {
		printStatus("✓", "Created example workspace policy", color.FgGreen)
	} else {
		printStatus("⚠", "Workspace policy exists, use --force to rewrite", color.FgYellow)
	}

	// Step 4: Project config template (if --with-config)
	if initWithConfig {
		configPath := filepath.Join(absPath, ".panekit.yaml")
		wrote, err := writeProjectConfigTemplate(configPath)
		if err != nil {
			return fmt.Errorf("creating project config: %w", err)
		}
		if wrote {
			printStatus("✓", "Created .panekit.yaml template", color.FgGreen)
		} else {
			printStatus("⚠", ".panekit.yaml exists, use --force to rewrite", color.FgYellow)
		}
	}

	// Step 5: Sanity-check the written policy
	if _, err := workspace.LoadPolicy(policyPath); err != nil {
		printStatus("✗", "Workspace policy does not parse", color.FgRed)
		return err
	}
	printStatus("✓", "Workspace policy parses", color.FgGreen)

	fmt.Printf("\n%s panekit initialization complete!\n\n", color.GreenString("✓"))
	fmt.Println("Next steps:")
	fmt.Println("  1. Edit the workspace policy:")
	fmt.Printf("     %s\n", policyPath)
	fmt.Println()
	fmt.Println("  2. Launch the shell:")
	fmt.Println("     panekit")
	fmt.Println()
	fmt.Println("  3. Learn more:")
	fmt.Println("     panekit --help")

	return nil
}

// writePolicyTemplate writes the example workspace.yaml. Returns false
// when the file exists and --force was not given.
func writePolicyTemplate(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil && !initForce {
		return false, nil
	}

	template := `# panekit workspace policy
#
# Restricts which layout modes this workspace allows, declares the
# permissions granted to sessions here, and scopes per-pane layout
# capabilities. Edits apply live while the shell is running.

# Modes allowed in this workspace. Empty or absent means all modes.
# layout_restrictions:
#   - single_pane
#   - split_screen
#   - grid

# Permissions granted to sessions in this workspace.
permissions:
  - layout.grid
  - layout.custom

# Per-pane capabilities. The pane "*" applies to panes not listed.
capabilities:
  - pane_id: editor
    allowed_modes: [single_pane, split_screen, tabbed, grid, custom]
  - pane_id: terminal
    allowed_modes: [single_pane, split_screen, tabbed, grid, custom]
  - pane_id: preview
    allowed_modes: [single_pane, split_screen, tabbed, grid]
  - pane_id: "*"
    allowed_modes: [single_pane, split_screen, tabbed]

# Modes that demand a permission on top of pane support.
mode_permissions:
  grid: layout.grid
  custom: layout.custom
`

	if err := os.WriteFile(path, []byte(template), 0644); err != nil {
		return false, err
	}
	return true, nil
}

// writeProjectConfigTemplate writes the .panekit.yaml override template.
func writeProjectConfigTemplate(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil && !initForce {
		return false, nil
	}

	template := `# panekit project configuration
# This file overrides defaults from ~/.config/panekit/config.yaml

# engine:
#   transition_timeout: 5s
#   recovery_grace: 3s

# preferences:
#   auto_save_quiet_period: 30s
#   save_attempts: 3

# storage:
#   scope: project

# session:
#   user: default
#   workspace: default

# breakpoints:
#   - name: mobile
#     min_width: 0
#   - name: tablet
#     min_width: 768
#   - name: desktop
#     min_width: 1280
#   - name: ultrawide
#     min_width: 1920
`

	if err := os.WriteFile(path, []byte(template), 0644); err != nil {
		return false, err
	}
	return true, nil
}

// printStatus prints a status line with color
func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Printf("%s %s\n", c.Sprint(symbol), message)
}
