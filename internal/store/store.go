// Package store implements the persistence layer for the RCA chat pipeline.
//
// It uses SQLite with FTS5 full-text search to store turns and their ordered
// steps. Every mutation the notification pipeline performs is durably
// committed here before the corresponding live event is published, so a
// client reacting to a live event can immediately re-query persisted state
// without a race.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/inquesthq/inquest/internal/chat"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// ErrNotFound is returned when a turn or step does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidTransition is returned when a status update would violate the
// turn/step state machines, e.g. mutating a turn that already finished.
var ErrInvalidTransition = errors.New("invalid status transition")

// StepSearchResult embeds a Step with its FTS5 rank score.
type StepSearchResult struct {
	chat.Step
	SessionID string  `json:"session_id"`
	Rank      float64 `json:"rank"`
}

// ─── Config ──────────────────────────────────────────────────────────────────

// Config holds store configuration.
type Config struct {
	DataDir          string
	MaxSearchResults int
}

// DefaultConfig returns the default configuration for the store.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DataDir:          filepath.Join(home, ".inquest"),
		MaxSearchResults: 20,
	}
}

// ─── Store ───────────────────────────────────────────────────────────────────

// Store is the turn/step persistence engine backed by SQLite + FTS5.
type Store struct {
	db  *sql.DB
	cfg Config
}

// New creates a new Store with the given configuration.
// It creates the data directory if needed, opens SQLite with WAL mode,
// and runs migrations.
func New(cfg Config) (*Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("store: create data dir: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, "inquest.db")
	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	// SQLite performance pragmas
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("store: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, cfg: cfg}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("store: migration: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ─── Migrations ──────────────────────────────────────────────────────────────

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS turns (
			id             TEXT PRIMARY KEY,
			session_id     TEXT NOT NULL,
			user_message   TEXT NOT NULL,
			final_response TEXT,
			status         TEXT NOT NULL DEFAULT 'PENDING',
			job_id         TEXT,
			created_at     TEXT NOT NULL DEFAULT (datetime('now')),
			updated_at     TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id);
		CREATE INDEX IF NOT EXISTS idx_turns_status  ON turns(status);
		CREATE INDEX IF NOT EXISTS idx_turns_created ON turns(created_at DESC);

		CREATE TABLE IF NOT EXISTS steps (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			turn_id    TEXT    NOT NULL,
			step_type  TEXT    NOT NULL,
			tool_name  TEXT,
			content    TEXT    NOT NULL DEFAULT '',
			status     TEXT    NOT NULL DEFAULT 'PENDING',
			sequence   INTEGER NOT NULL,
			created_at TEXT    NOT NULL DEFAULT (datetime('now')),
			FOREIGN KEY (turn_id) REFERENCES turns(id)
		);

		CREATE INDEX IF NOT EXISTS idx_steps_turn ON steps(turn_id, sequence);
		CREATE INDEX IF NOT EXISTS idx_steps_type ON steps(step_type);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_steps_seq ON steps(turn_id, sequence);

		CREATE VIRTUAL TABLE IF NOT EXISTS steps_fts USING fts5(
			content,
			tool_name,
			step_type,
			content='steps',
			content_rowid='id'
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// FTS triggers (idempotent): keep steps_fts in sync with steps.
	var name string
	err := s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='trigger' AND name='steps_fts_insert'",
	).Scan(&name)

	if err == sql.ErrNoRows {
		triggers := `
			CREATE TRIGGER steps_fts_insert AFTER INSERT ON steps BEGIN
				INSERT INTO steps_fts(rowid, content, tool_name, step_type)
				VALUES (new.id, new.content, new.tool_name, new.step_type);
			END;

			CREATE TRIGGER steps_fts_delete AFTER DELETE ON steps BEGIN
				INSERT INTO steps_fts(steps_fts, rowid, content, tool_name, step_type)
				VALUES ('delete', old.id, old.content, old.tool_name, old.step_type);
			END;

			CREATE TRIGGER steps_fts_update AFTER UPDATE ON steps BEGIN
				INSERT INTO steps_fts(steps_fts, rowid, content, tool_name, step_type)
				VALUES ('delete', old.id, old.content, old.tool_name, old.step_type);
				INSERT INTO steps_fts(rowid, content, tool_name, step_type)
				VALUES (new.id, new.content, new.tool_name, new.step_type);
			END;
		`
		if _, err := s.db.Exec(triggers); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	return nil
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// nullableString converts the empty string to a SQL NULL.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
