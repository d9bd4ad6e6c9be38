// Package config handles configuration loading and management for panekit.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/panekit/panekit/pkg/models"
)

// Config holds all configuration for panekit.
type Config struct {
	Engine      EngineConfig           `mapstructure:"engine"`
	Preferences PreferencesConfig      `mapstructure:"preferences"`
	Breakpoints models.BreakpointTable `mapstructure:"breakpoints"`
	Metrics     MetricsConfig          `mapstructure:"metrics"`
	TUI         TUIConfig              `mapstructure:"tui"`
	Storage     StorageConfig          `mapstructure:"storage"`
	Session     SessionConfig          `mapstructure:"session"`
}

// EngineConfig holds transition-protocol settings.
type EngineConfig struct {
	// TransitionTimeout bounds how long one transition may take.
	TransitionTimeout time.Duration `mapstructure:"transition_timeout"`
	// RecoveryGrace is the pause in error status before auto-recovery.
	RecoveryGrace time.Duration `mapstructure:"recovery_grace"`
	// HistorySize caps the transition history ring.
	HistorySize int `mapstructure:"history_size"`
	// EventBuffer sizes the event channel.
	EventBuffer int `mapstructure:"event_buffer"`
}

// PreferencesConfig holds preference persistence settings.
type PreferencesConfig struct {
	// AutoSaveQuietPeriod is how long changes must be quiet before an
	// automatic save fires.
	AutoSaveQuietPeriod time.Duration `mapstructure:"auto_save_quiet_period"`
	// SaveAttempts is how many times a retryable save failure is tried.
	SaveAttempts int `mapstructure:"save_attempts"`
	// SaveRetryBackoff is the initial delay between save attempts.
	SaveRetryBackoff time.Duration `mapstructure:"save_retry_backoff"`
}

// MetricsConfig holds performance sampling settings.
type MetricsConfig struct {
	SampleInterval time.Duration `mapstructure:"sample_interval"`
}

// TUIConfig holds shell display settings.
type TUIConfig struct {
	RefreshRate time.Duration `mapstructure:"refresh_rate"`
}

// StorageConfig holds preference store settings.
type StorageConfig struct {
	// Path overrides the database location; empty uses the global
	// XDG data path, or the workspace path when Scope is "project".
	Path string `mapstructure:"path"`
	// Scope is "global" or "project".
	Scope string `mapstructure:"scope"`
}

// SessionConfig identifies whose preferences a session loads.
type SessionConfig struct {
	User      string `mapstructure:"user"`
	Workspace string `mapstructure:"workspace"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (PANEKIT_*)
// 2. Project config (.panekit.yaml in current directory or parent)
// 3. User config (~/.config/panekit/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Load user config from XDG path
	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	// Load project config if present
	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			// Merge project config (takes precedence)
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	// Environment variable overrides
	v.SetEnvPrefix("PANEKIT")
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks settings that would otherwise fail deep inside the
// engine at startup.
func (c *Config) Validate() error {
	if c.Engine.TransitionTimeout <= 0 {
		return fmt.Errorf("engine.transition_timeout must be positive, got %s", c.Engine.TransitionTimeout)
	}
	if c.Engine.RecoveryGrace <= 0 {
		return fmt.Errorf("engine.recovery_grace must be positive, got %s", c.Engine.RecoveryGrace)
	}
	if c.Preferences.SaveAttempts < 1 {
		return fmt.Errorf("preferences.save_attempts must be at least 1, got %d", c.Preferences.SaveAttempts)
	}
	if err := c.Breakpoints.Validate(); err != nil {
		return fmt.Errorf("invalid breakpoints: %w", err)
	}
	switch c.Storage.Scope {
	case "global", "project":
	default:
		return fmt.Errorf("storage.scope must be \"global\" or \"project\", got %q", c.Storage.Scope)
	}
	return nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("engine.transition_timeout", cfg.Engine.TransitionTimeout.String())
	v.Set("engine.recovery_grace", cfg.Engine.RecoveryGrace.String())
	v.Set("engine.history_size", cfg.Engine.HistorySize)
	v.Set("engine.event_buffer", cfg.Engine.EventBuffer)
	v.Set("preferences.auto_save_quiet_period", cfg.Preferences.AutoSaveQuietPeriod.String())
	v.Set("preferences.save_attempts", cfg.Preferences.SaveAttempts)
	v.Set("preferences.save_retry_backoff", cfg.Preferences.SaveRetryBackoff.String())
	v.Set("metrics.sample_interval", cfg.Metrics.SampleInterval.String())
	v.Set("tui.refresh_rate", cfg.TUI.RefreshRate.String())
	v.Set("storage.path", cfg.Storage.Path)
	v.Set("storage.scope", cfg.Storage.Scope)
	v.Set("session.user", cfg.Session.User)
	v.Set("session.workspace", cfg.Session.Workspace)
	v.Set("breakpoints", breakpointMaps(cfg.Breakpoints))

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	// Transition protocol defaults
	v.SetDefault("engine.transition_timeout", "5s")
	v.SetDefault("engine.recovery_grace", "3s")
	v.SetDefault("engine.history_size", 64)
	v.SetDefault("engine.event_buffer", 100)

	// Preference persistence defaults
	v.SetDefault("preferences.auto_save_quiet_period", "30s")
	v.SetDefault("preferences.save_attempts", 3)
	v.SetDefault("preferences.save_retry_backoff", "1s")

	// Sampling and display defaults
	v.SetDefault("metrics.sample_interval", "1s")
	v.SetDefault("tui.refresh_rate", "100ms")

	// Storage defaults
	v.SetDefault("storage.path", "")
	v.SetDefault("storage.scope", "global")

	// Session defaults
	v.SetDefault("session.user", "default")
	v.SetDefault("session.workspace", "default")

	v.SetDefault("breakpoints", breakpointMaps(models.DefaultBreakpoints()))
}

// breakpointMaps converts a breakpoint table into the generic shape
// viper stores.
func breakpointMaps(table models.BreakpointTable) []map[string]any {
	out := make([]map[string]any, 0, len(table))
	for _, bp := range table {
		out = append(out, map[string]any{
			"name":      bp.Name,
			"min_width": bp.MinWidth,
		})
	}
	return out
}

// getUserConfigDir returns the XDG config directory for panekit.
func getUserConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "panekit")
	}

	// Fall back to ~/.config/panekit
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "panekit")
	}
	return filepath.Join(home, ".config", "panekit")
}

// findProjectConfig searches for .panekit.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".panekit.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			TransitionTimeout: 5 * time.Second,
			RecoveryGrace:     3 * time.Second,
			HistorySize:       64,
			EventBuffer:       100,
		},
		Preferences: PreferencesConfig{
			AutoSaveQuietPeriod: 30 * time.Second,
			SaveAttempts:        3,
			SaveRetryBackoff:    time.Second,
		},
		Breakpoints: models.DefaultBreakpoints(),
		Metrics: MetricsConfig{
			SampleInterval: time.Second,
		},
		TUI: TUIConfig{
			RefreshRate: 100 * time.Millisecond,
		},
		Storage: StorageConfig{
			Scope: "global",
		},
		Session: SessionConfig{
			User:      "default",
			Workspace: "default",
		},
	}
}
