package models

// PreferenceScope identifies the level a preference applies to.
// Higher-precedence scopes override lower ones field by field.
type PreferenceScope string

const (
	// ScopeSystem is the built-in default scope.
	ScopeSystem PreferenceScope = "system"
	// ScopeUser is the per-user scope.
	ScopeUser PreferenceScope = "user"
	// ScopeWorkspace is the per-workspace scope.
	ScopeWorkspace PreferenceScope = "workspace"
	// ScopePane is the per-pane scope, the highest precedence.
	ScopePane PreferenceScope = "pane"
)

// Valid returns true if the scope is a known value.
func (s PreferenceScope) Valid() bool {
	switch s {
	case ScopeSystem, ScopeUser, ScopeWorkspace, ScopePane:
		return true
	default:
		return false
	}
}

// Rank returns the scope's precedence, lowest first.
func (s PreferenceScope) Rank() int {
	switch s {
	case ScopeSystem:
		return 0
	case ScopeUser:
		return 1
	case ScopeWorkspace:
		return 2
	case ScopePane:
		return 3
	default:
		return -1
	}
}

// ScopeChain returns all scopes in ascending precedence order.
func ScopeChain() []PreferenceScope {
	return []PreferenceScope{ScopeSystem, ScopeUser, ScopeWorkspace, ScopePane}
}

// Preference holds the layout preferences recorded at one scope.
// Preferences outlive a hosting session; the merged view of a scope
// chain drives default modes and responsive overrides.
type Preference struct {
	// Scope is the level this preference was recorded at.
	Scope PreferenceScope `json:"scope"`
	// DefaultMode is the preferred layout mode, empty when unset.
	DefaultMode LayoutMode `json:"default_mode,omitempty"`
	// ModeOverridesByBreakpoint maps breakpoint names to the mode to
	// adopt when the viewport enters that breakpoint.
	ModeOverridesByBreakpoint map[string]LayoutMode `json:"mode_overrides_by_breakpoint,omitempty"`
}

// Clone returns a deep copy of the preference.
func (p Preference) Clone() Preference {
	out := p
	if p.ModeOverridesByBreakpoint != nil {
		out.ModeOverridesByBreakpoint = make(map[string]LayoutMode, len(p.ModeOverridesByBreakpoint))
		for k, v := range p.ModeOverridesByBreakpoint {
			out.ModeOverridesByBreakpoint[k] = v
		}
	}
	return out
}

// OverrideFor returns the mode override for a breakpoint, if any.
func (p Preference) OverrideFor(breakpoint string) (LayoutMode, bool) {
	if p.ModeOverridesByBreakpoint == nil {
		return "", false
	}
	m, ok := p.ModeOverridesByBreakpoint[breakpoint]
	return m, ok
}

// MergePreferences combines preferences across a scope chain. Inputs are
// applied in ascending precedence order (system first); a later
// preference overrides earlier ones field by field, and breakpoint
// overrides merge per key. The merge builds a fresh value, so callers
// never observe a partially merged preference. Nil entries are skipped.
func MergePreferences(chain ...*Preference) Preference {
	merged := Preference{}
	for _, p := range chain {
		if p == nil {
			continue
		}
		if p.DefaultMode != "" {
			merged.DefaultMode = p.DefaultMode
		}
		if len(p.ModeOverridesByBreakpoint) > 0 {
			if merged.ModeOverridesByBreakpoint == nil {
				merged.ModeOverridesByBreakpoint = make(map[string]LayoutMode, len(p.ModeOverridesByBreakpoint))
			}
			for bp, mode := range p.ModeOverridesByBreakpoint {
				merged.ModeOverridesByBreakpoint[bp] = mode
			}
		}
	}
	return merged
}
