// Package store provides SQLite-based persistence for panekit.
// It holds layout preferences per scope and a journal of layout events
// for restoring state across sessions.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/panekit/panekit/internal/prefs"
	"github.com/panekit/panekit/pkg/models"
)

// DB wraps an SQLite database connection with panekit-specific
// operations. It implements the preference store contract.
type DB struct {
	conn *sql.DB
	path string
	mu   sync.RWMutex
}

// GlobalDBPath returns the path to the per-user panekit database.
func GlobalDBPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "panekit", "panekit.db")
}

// ProjectDBPath returns the path to a workspace-local database.
func ProjectDBPath(workspaceRoot string) string {
	return filepath.Join(workspaceRoot, ".panekit", "state.db")
}

// Open opens an SQLite database at the given path.
// It creates the parent directories if they don't exist.
// WAL mode is enabled for concurrent reads.
func Open(path string) (*DB, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for concurrent reads
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// Wait briefly on contention instead of failing outright
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &DB{conn: conn, path: path}, nil
}

// OpenGlobal opens the per-user panekit database.
func OpenGlobal() (*DB, error) {
	return Open(GlobalDBPath())
}

// OpenProject opens a workspace-local database.
func OpenProject(workspaceRoot string) (*DB, error) {
	return Open(ProjectDBPath(workspaceRoot))
}

// Close closes the database connection.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.Close()
}

// Path returns the path to the database file.
func (db *DB) Path() string {
	return db.path
}

// Migrate applies all pending schema migrations.
func (db *DB) Migrate() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	// Create schema version table
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := db.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	// Apply migrations
	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Preferences},
		{2, migrationV2Events},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := db.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}

		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// Migration SQL statements
const migrationV1Preferences = `
CREATE TABLE IF NOT EXISTS layout_preferences (
	scope TEXT NOT NULL,
	scope_id TEXT NOT NULL,
	payload TEXT NOT NULL,
	updated_at DATETIME NOT NULL,
	PRIMARY KEY (scope, scope_id)
);
`

const migrationV2Events = `
CREATE TABLE IF NOT EXISTS layout_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	type TEXT NOT NULL,
	payload TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_layout_events_type ON layout_events(type);
CREATE INDEX IF NOT EXISTS idx_layout_events_created_at ON layout_events(created_at);
`

// LoadPreference returns the preference stored for a scope key, or
// (nil, nil) when none has been saved.
func (db *DB) LoadPreference(ctx context.Context, scope models.PreferenceScope, scopeID string) (*models.Preference, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var payload string
	row := db.conn.QueryRowContext(ctx,
		"SELECT payload FROM layout_preferences WHERE scope = ? AND scope_id = ?",
		string(scope), scopeID)
	if err := row.Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, classify(scope, "load", err)
	}

	var pref models.Preference
	if err := json.Unmarshal([]byte(payload), &pref); err != nil {
		return nil, prefs.Permanent(scope, "load", fmt.Errorf("decode payload: %w", err))
	}
	return &pref, nil
}

// SavePreference stores a preference for a scope key, replacing any
// previous value.
func (db *DB) SavePreference(ctx context.Context, scope models.PreferenceScope, scopeID string, pref models.Preference) error {
	payload, err := json.Marshal(pref)
	if err != nil {
		return prefs.Permanent(scope, "save", fmt.Errorf("encode payload: %w", err))
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO layout_preferences (scope, scope_id, payload, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(scope, scope_id) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`, string(scope), scopeID, string(payload), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return classify(scope, "save", err)
	}
	return nil
}

// StoredEvent is one journaled layout event.
type StoredEvent struct {
	// ID is the journal sequence number.
	ID int64
	// SessionID identifies the session that produced the event.
	SessionID string
	// Type is the event type name.
	Type string
	// Payload is the serialized event.
	Payload []byte
	// CreatedAt is when the event was journaled.
	CreatedAt time.Time
}

// AppendEvent journals one serialized layout event.
func (db *DB) AppendEvent(ctx context.Context, sessionID, eventType string, payload []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO layout_events (session_id, type, payload, created_at)
		VALUES (?, ?, ?, ?)
	`, sessionID, eventType, string(payload), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("append %s event: %w", eventType, err)
	}
	return nil
}

// RecentEvents returns up to limit journaled events, newest first,
// optionally filtered by type.
func (db *DB) RecentEvents(ctx context.Context, eventType string, limit int) ([]StoredEvent, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	query := "SELECT id, session_id, type, payload, created_at FROM layout_events"
	args := []any{}
	if eventType != "" {
		query += " WHERE type = ?"
		args = append(args, eventType)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []StoredEvent
	for rows.Next() {
		var e StoredEvent
		var created string
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Type, &e.Payload, &created); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, created); err == nil {
			e.CreatedAt = t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// LatestEvent returns the newest journaled event of a type, or
// (nil, nil) when the journal has none.
func (db *DB) LatestEvent(ctx context.Context, eventType string) (*StoredEvent, error) {
	events, err := db.RecentEvents(ctx, eventType, 1)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}
	return &events[0], nil
}

// PruneEvents deletes journaled events beyond the newest keep entries.
func (db *DB) PruneEvents(ctx context.Context, keep int) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.ExecContext(ctx, `
		DELETE FROM layout_events WHERE id NOT IN (
			SELECT id FROM layout_events ORDER BY id DESC LIMIT ?
		)
	`, keep)
	if err != nil {
		return fmt.Errorf("prune events: %w", err)
	}
	return nil
}

// classify wraps a database error with its retry semantics. Contention
// clears on its own; everything else needs intervention.
func classify(scope models.PreferenceScope, op string, err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "locked") || strings.Contains(msg, "busy") {
		return prefs.Retryable(scope, op, err)
	}
	return prefs.Permanent(scope, op, err)
}
