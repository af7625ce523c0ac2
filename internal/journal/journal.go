// Package journal keeps an append-only SQLite audit trail of committed
// mutations and integrity repairs. It is strictly observability: the
// live database never depends on it, and journal failures are
// best-effort at the call sites.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/cairnmcp/cairn/internal/integrity"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// Config holds journal configuration.
type Config struct {
	DataDir string
}

// DefaultConfig places the journal under ~/.cairn.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{DataDir: filepath.Join(home, ".cairn")}
}

// Journal is the SQLite-backed audit log.
type Journal struct {
	db *sql.DB
}

// New opens (creating if needed) the journal database with WAL mode and
// runs migrations.
func New(cfg Config) (*Journal, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("journal: create data dir: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, "journal.db")
	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("journal: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("journal: pragma %q: %w", p, err)
		}
	}

	j := &Journal{db: db}
	if err := j.migrate(); err != nil {
		return nil, fmt.Errorf("journal: migration: %w", err)
	}
	return j, nil
}

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS commits (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			at       TEXT    NOT NULL DEFAULT (datetime('now')),
			changed  TEXT    NOT NULL,
			projects INTEGER NOT NULL,
			tasks    INTEGER NOT NULL,
			memories INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_commits_at ON commits(at DESC);

		CREATE TABLE IF NOT EXISTS repairs (
			id      INTEGER PRIMARY KEY AUTOINCREMENT,
			at      TEXT NOT NULL DEFAULT (datetime('now')),
			problem TEXT NOT NULL,
			repair  TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_repairs_at ON repairs(at DESC);
	`
	_, err := j.db.Exec(schema)
	return err
}

// RecordCommit appends one committed mutation with its changed-parts
// tag and the post-commit entity counts.
func (j *Journal) RecordCommit(changed string, projects, tasks, memories int) error {
	_, err := j.db.Exec(
		`INSERT INTO commits (changed, projects, tasks, memories) VALUES (?, ?, ?, ?)`,
		changed, projects, tasks, memories,
	)
	return err
}

// RecordRepairs appends one row per applied repair action.
func (j *Journal) RecordRepairs(issues []integrity.Issue) error {
	if len(issues) == 0 {
		return nil
	}
	tx, err := j.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	for _, is := range issues {
		if _, err := tx.Exec(
			`INSERT INTO repairs (problem, repair) VALUES (?, ?)`,
			is.Problem, is.Repair,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Entry is one line of recent journal activity.
type Entry struct {
	At     string `json:"at"`
	Kind   string `json:"kind"` // "commit" or "repair"
	Detail string `json:"detail"`
}

// RecentActivity returns the newest commits and repairs interleaved by
// time, newest first.
func (j *Journal) RecentActivity(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := j.db.Query(`
		SELECT at, 'commit' AS kind,
		       'changed ' || changed || ' (' || projects || 'p/' || tasks || 't/' || memories || 'm)' AS detail
		FROM commits
		UNION ALL
		SELECT at, 'repair' AS kind, problem || ' -> ' || repair AS detail
		FROM repairs
		ORDER BY at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: recent activity: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.At, &e.Kind, &e.Detail); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
