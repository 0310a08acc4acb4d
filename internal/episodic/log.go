// Package episodic records learning sessions in an append-only SQLite
// log: what was learned, when, and with what outcome. Records are
// inserted once and never updated or deleted; consolidation does not
// touch this log. It exists for diagnostics and recency analysis only.
package episodic

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Record is one learning session: the entries it touched, in order,
// and an outcome score.
type Record struct {
	SessionID string    `json:"session_id"`
	EntryIDs  []string  `json:"entry_ids"`
	Outcome   float64   `json:"outcome"`
	CreatedAt time.Time `json:"created_at"`
}

// Log wraps the SQLite database holding session records.
type Log struct {
	db   *sql.DB
	path string
}

// Open opens or creates the episodic log database under statePath.
func Open(statePath string) (*Log, error) {
	dbPath := filepath.Join(statePath, "episodes.db")

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	l := &Log{db: db, path: dbPath}
	if err := l.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return l, nil
}

// Close closes the database connection.
func (l *Log) Close() error {
	return l.db.Close()
}

func (l *Log) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Sessions are append-only: inserted once, never rewritten.
	CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		entry_ids TEXT NOT NULL,
		outcome REAL NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_created ON sessions(created_at);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`
	_, err := l.db.Exec(schema)
	return err
}

// Append inserts a session record. A missing session id or timestamp
// is filled in. Re-appending an existing session id fails rather than
// rewriting the record.
func (l *Log) Append(rec *Record) error {
	if rec.SessionID == "" {
		rec.SessionID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	// Entry order matters; keep the sequence as a JSON array.
	idsJSON, err := json.Marshal(rec.EntryIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal entry ids: %w", err)
	}

	_, err = l.db.Exec(`
		INSERT INTO sessions (session_id, entry_ids, outcome, created_at)
		VALUES (?, ?, ?, ?)
	`, rec.SessionID, string(idsJSON), rec.Outcome, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// Recent returns the n most recent session records, newest first.
func (l *Log) Recent(n int) ([]*Record, error) {
	if n <= 0 {
		n = 100
	}

	rows, err := l.db.Query(`
		SELECT session_id, entry_ids, outcome, created_at
		FROM sessions
		ORDER BY created_at DESC, session_id DESC
		LIMIT ?
	`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var rec Record
		var idsJSON string
		if err := rows.Scan(&rec.SessionID, &idsJSON, &rec.Outcome, &rec.CreatedAt); err != nil {
			continue
		}
		if err := json.Unmarshal([]byte(idsJSON), &rec.EntryIDs); err != nil {
			continue
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// Count returns the total number of session records.
func (l *Log) Count() (int, error) {
	var count int
	err := l.db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&count)
	return count, err
}
