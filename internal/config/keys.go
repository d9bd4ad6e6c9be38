// Package config provides dot-notation access to individual settings.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Keys returns every settable dot-notation key in display order.
// Breakpoints are structured and edited in the config file directly.
func Keys() []string {
	return []string{
		"engine.transition_timeout",
		"engine.recovery_grace",
		"engine.history_size",
		"engine.event_buffer",
		"preferences.auto_save_quiet_period",
		"preferences.save_attempts",
		"preferences.save_retry_backoff",
		"metrics.sample_interval",
		"tui.refresh_rate",
		"storage.path",
		"storage.scope",
		"session.user",
		"session.workspace",
	}
}

// Get retrieves a configuration value by dot-notation key.
func Get(cfg *Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "engine.transition_timeout":
		return cfg.Engine.TransitionTimeout.String(), nil
	case "engine.recovery_grace":
		return cfg.Engine.RecoveryGrace.String(), nil
	case "engine.history_size":
		return strconv.Itoa(cfg.Engine.HistorySize), nil
	case "engine.event_buffer":
		return strconv.Itoa(cfg.Engine.EventBuffer), nil
	case "preferences.auto_save_quiet_period":
		return cfg.Preferences.AutoSaveQuietPeriod.String(), nil
	case "preferences.save_attempts":
		return strconv.Itoa(cfg.Preferences.SaveAttempts), nil
	case "preferences.save_retry_backoff":
		return cfg.Preferences.SaveRetryBackoff.String(), nil
	case "metrics.sample_interval":
		return cfg.Metrics.SampleInterval.String(), nil
	case "tui.refresh_rate":
		return cfg.TUI.RefreshRate.String(), nil
	case "storage.path":
		if cfg.Storage.Path == "" {
			return "(default)", nil
		}
		return cfg.Storage.Path, nil
	case "storage.scope":
		return cfg.Storage.Scope, nil
	case "session.user":
		return cfg.Session.User, nil
	case "session.workspace":
		return cfg.Session.Workspace, nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// Set updates a configuration value by dot-notation key, parsing and
// validating the raw string.
func Set(cfg *Config, key, value string) error {
	switch strings.ToLower(key) {
	case "engine.transition_timeout":
		d, err := parsePositiveDuration(key, value)
		if err != nil {
			return err
		}
		cfg.Engine.TransitionTimeout = d
	case "engine.recovery_grace":
		d, err := parsePositiveDuration(key, value)
		if err != nil {
			return err
		}
		cfg.Engine.RecoveryGrace = d
	case "engine.history_size":
		n, err := parsePositiveInt(key, value)
		if err != nil {
			return err
		}
		cfg.Engine.HistorySize = n
	case "engine.event_buffer":
		n, err := parsePositiveInt(key, value)
		if err != nil {
			return err
		}
		cfg.Engine.EventBuffer = n
	case "preferences.auto_save_quiet_period":
		d, err := parsePositiveDuration(key, value)
		if err != nil {
			return err
		}
		cfg.Preferences.AutoSaveQuietPeriod = d
	case "preferences.save_attempts":
		n, err := parsePositiveInt(key, value)
		if err != nil {
			return err
		}
		cfg.Preferences.SaveAttempts = n
	case "preferences.save_retry_backoff":
		d, err := parsePositiveDuration(key, value)
		if err != nil {
			return err
		}
		cfg.Preferences.SaveRetryBackoff = d
	case "metrics.sample_interval":
		d, err := parsePositiveDuration(key, value)
		if err != nil {
			return err
		}
		cfg.Metrics.SampleInterval = d
	case "tui.refresh_rate":
		d, err := parsePositiveDuration(key, value)
		if err != nil {
			return err
		}
		cfg.TUI.RefreshRate = d
	case "storage.path":
		cfg.Storage.Path = value
	case "storage.scope":
		if value != "global" && value != "project" {
			return fmt.Errorf("storage.scope must be \"global\" or \"project\", got %q", value)
		}
		cfg.Storage.Scope = value
	case "session.user":
		if value == "" {
			return fmt.Errorf("session.user cannot be empty")
		}
		cfg.Session.User = value
	case "session.workspace":
		if value == "" {
			return fmt.Errorf("session.workspace cannot be empty")
		}
		cfg.Session.Workspace = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

func parsePositiveDuration(key, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, d)
	}
	return d, nil
}

func parsePositiveInt(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid number for %s: %w", key, err)
	}
	if n < 1 {
		return 0, fmt.Errorf("%s must be at least 1, got %d", key, n)
	}
	return n, nil
}
