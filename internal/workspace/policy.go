// Package workspace loads and serves per-workspace layout policy:
// granted permissions, layout restrictions, and pane capability rules.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/panekit/panekit/internal/capability"
	"github.com/panekit/panekit/pkg/models"
)

// PolicyFileName is the policy file's name inside the workspace dir.
const PolicyFileName = "workspace.yaml"

// WorkspaceDirName is the per-workspace state directory.
const WorkspaceDirName = ".panekit"

// Policy is the parsed workspace policy file. A zero policy restricts
// nothing and grants nothing; unknown panes then fall back to the
// capability registry's wildcard rule.
type Policy struct {
	// LayoutRestrictions, when non-empty, limits the workspace to the
	// listed modes.
	LayoutRestrictions []models.LayoutMode `yaml:"layout_restrictions"`
	// Permissions lists the permission names granted in this workspace.
	Permissions []string `yaml:"permissions"`
	// Capabilities declares which modes each pane supports. A rule for
	// pane_id "*" replaces the built-in wildcard.
	Capabilities []models.CapabilityRule `yaml:"capabilities"`
	// ModePermissions gates modes behind permission names.
	ModePermissions map[models.LayoutMode]string `yaml:"mode_permissions"`
}

// PolicyPath returns the policy file path for a workspace root.
func PolicyPath(workspaceRoot string) string {
	return filepath.Join(workspaceRoot, WorkspaceDirName, PolicyFileName)
}

// DefaultPolicy returns the policy used when no file exists: no
// restrictions and no permission grants.
func DefaultPolicy() *Policy {
	return &Policy{}
}

// LoadPolicy reads and validates a policy file.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy file: %w", err)
	}

	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing policy file: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy file %s: %w", path, err)
	}
	return &p, nil
}

// Validate checks every mode reference in the policy.
func (p *Policy) Validate() error {
	for _, m := range p.LayoutRestrictions {
		if !m.Valid() {
			return fmt.Errorf("unknown mode %q in layout_restrictions", m)
		}
	}
	for i, rule := range p.Capabilities {
		if rule.PaneID == "" {
			return fmt.Errorf("capability rule %d has no pane_id", i)
		}
		if len(rule.AllowedModes) == 0 {
			return fmt.Errorf("capability rule for pane %q allows no modes", rule.PaneID)
		}
		for _, m := range rule.AllowedModes {
			if !m.Valid() {
				return fmt.Errorf("unknown mode %q in capability rule for pane %q", m, rule.PaneID)
			}
		}
	}
	for m := range p.ModePermissions {
		if !m.Valid() {
			return fmt.Errorf("unknown mode %q in mode_permissions", m)
		}
	}
	return nil
}

// Restrictions returns the restricted-mode set, empty when the
// workspace does not restrict modes.
func (p *Policy) Restrictions() models.ModeSet {
	return models.NewModeSet(p.LayoutRestrictions...)
}

// PermissionSet returns the granted permissions as a lookup set.
func (p *Policy) PermissionSet() map[string]struct{} {
	set := make(map[string]struct{}, len(p.Permissions))
	for _, name := range p.Permissions {
		set[name] = struct{}{}
	}
	return set
}

// Registry builds a capability registry from the policy's rules.
// Rule-level required_permission entries fold into the mode permission
// table for each of the rule's modes; an explicit mode_permissions
// entry wins over a folded one.
func (p *Policy) Registry() *capability.Registry {
	perms := make(map[models.LayoutMode]string)
	for _, rule := range p.Capabilities {
		if rule.RequiredPermission == "" {
			continue
		}
		for _, m := range rule.AllowedModes {
			if _, taken := perms[m]; !taken {
				perms[m] = rule.RequiredPermission
			}
		}
	}
	for m, perm := range p.ModePermissions {
		perms[m] = perm
	}
	return capability.NewRegistry(p.Capabilities, perms)
}
