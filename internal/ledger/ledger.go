// Package ledger provides the SQLite-backed move history: a bounded,
// most-recent-first record of executed moves supporting single-step undo.
package ledger

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS move_history (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	moved_at   DATETIME NOT NULL,
	file_name  TEXT NOT NULL,
	from_path  TEXT NOT NULL,
	to_path    TEXT NOT NULL,
	rule_key   TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_move_history_moved_at ON move_history(moved_at);
`

// Entry is an immutable record of one executed move.
type Entry struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	FileName  string    `json:"fileName"`
	FromPath  string    `json:"fromPath"`
	ToPath    string    `json:"toPath"`
	RuleKey   string    `json:"ruleKey"`
}

// DB wraps a sql.DB with ledger operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("ledger: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ledger: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ledger: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Record appends an entry and trims the history to the newest max entries.
// A max of zero or less leaves the history unbounded.
func (db *DB) Record(e Entry, max int) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("ledger: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO move_history (moved_at, file_name, from_path, to_path, rule_key)
		VALUES (?, ?, ?, ?, ?)
	`, e.Timestamp, e.FileName, e.FromPath, e.ToPath, e.RuleKey)
	if err != nil {
		return fmt.Errorf("ledger: insert: %w", err)
	}

	if max > 0 {
		_, err = tx.Exec(`
			DELETE FROM move_history WHERE id NOT IN (
				SELECT id FROM move_history ORDER BY id DESC LIMIT ?
			)
		`, max)
		if err != nil {
			return fmt.Errorf("ledger: trim: %w", err)
		}
	}

	return tx.Commit()
}

// Entries returns up to limit entries, most recent first. A limit of zero
// or less returns everything.
func (db *DB) Entries(limit int) ([]Entry, error) {
	q := `SELECT id, moved_at, file_name, from_path, to_path, rule_key
	      FROM move_history ORDER BY id DESC`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = db.conn.Query(q+` LIMIT ?`, limit)
	} else {
		rows, err = db.conn.Query(q)
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.FileName, &e.FromPath, &e.ToPath, &e.RuleKey); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Last returns the most recent entry, or nil when the ledger is empty.
func (db *DB) Last() (*Entry, error) {
	var e Entry
	err := db.conn.QueryRow(`
		SELECT id, moved_at, file_name, from_path, to_path, rule_key
		FROM move_history ORDER BY id DESC LIMIT 1
	`).Scan(&e.ID, &e.Timestamp, &e.FileName, &e.FromPath, &e.ToPath, &e.RuleKey)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: last: %w", err)
	}
	return &e, nil
}

// Drop removes a single entry by id.
func (db *DB) Drop(id int64) error {
	if _, err := db.conn.Exec(`DELETE FROM move_history WHERE id = ?`, id); err != nil {
		return fmt.Errorf("ledger: drop: %w", err)
	}
	return nil
}

// Clear removes every entry.
func (db *DB) Clear() error {
	if _, err := db.conn.Exec(`DELETE FROM move_history`); err != nil {
		return fmt.Errorf("ledger: clear: %w", err)
	}
	return nil
}

// Count returns the number of recorded entries.
func (db *DB) Count() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM move_history`).Scan(&n); err != nil {
		return 0, fmt.Errorf("ledger: count: %w", err)
	}
	return n, nil
}
