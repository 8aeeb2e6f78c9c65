// Package events keeps a queryable SQLite mirror of workflow transitions
// and gate runs across projects. The JSON audit trail in each project's
// state document stays authoritative; this log exists for cross-project
// history queries and the web dashboard.
package events

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Log wraps the SQLite connection.
type Log struct {
	conn *sql.DB
	path string
}

// DefaultPath returns ~/.tunelab/events.db, creating the directory if needed.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	dir := filepath.Join(home, ".tunelab")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create directory %s: %w", dir, err)
	}
	return filepath.Join(dir, "events.db"), nil
}

// Open opens or creates the event log at the given path.
func Open(path string) (*Log, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set journal mode: %w", err)
	}
	return &Log{conn: conn, path: path}, nil
}

// Close closes the database connection.
func (l *Log) Close() error {
	return l.conn.Close()
}

// Conn exposes the underlying connection for analytics queries.
func (l *Log) Conn() *sql.DB {
	return l.conn
}

const schema = `
CREATE TABLE IF NOT EXISTS transitions (
    id        INTEGER PRIMARY KEY AUTOINCREMENT,
    project   TEXT NOT NULL,
    step      TEXT NOT NULL,
    action    TEXT NOT NULL,
    actor     TEXT NOT NULL,
    detail    TEXT,
    timestamp TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_transitions_project ON transitions(project, timestamp DESC);

CREATE TABLE IF NOT EXISTS gate_runs (
    id        INTEGER PRIMARY KEY AUTOINCREMENT,
    project   TEXT NOT NULL,
    gate      TEXT NOT NULL,
    passed    BOOLEAN NOT NULL,
    blockers  INTEGER NOT NULL DEFAULT 0,
    warnings  INTEGER NOT NULL DEFAULT 0,
    timestamp TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_gate_runs_project ON gate_runs(project, gate, timestamp DESC);
`

// Migrate creates the schema if it does not exist.
func (l *Log) Migrate() error {
	if _, err := l.conn.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// LogTransition records one workflow transition.
func (l *Log) LogTransition(project, step, action, actor, detail string) error {
	_, err := l.conn.Exec(
		`INSERT INTO transitions (project, step, action, actor, detail) VALUES (?, ?, ?, ?, ?)`,
		project, step, action, actor, detail,
	)
	if err != nil {
		return fmt.Errorf("log transition: %w", err)
	}
	return nil
}

// LogGateRun records one gate evaluation.
func (l *Log) LogGateRun(project, gate string, passed bool, blockers, warnings int) error {
	_, err := l.conn.Exec(
		`INSERT INTO gate_runs (project, gate, passed, blockers, warnings) VALUES (?, ?, ?, ?, ?)`,
		project, gate, passed, blockers, warnings,
	)
	if err != nil {
		return fmt.Errorf("log gate run: %w", err)
	}
	return nil
}

// Transition is one row from the transitions table.
type Transition struct {
	Project   string `json:"project"`
	Step      string `json:"step"`
	Action    string `json:"action"`
	Actor     string `json:"actor"`
	Detail    string `json:"detail,omitempty"`
	Timestamp string `json:"timestamp"`
}

// RecentTransitions returns the latest transitions for a project, newest
// first. Pass "" to query across all projects.
func (l *Log) RecentTransitions(project string, limit int) ([]Transition, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT project, step, action, actor, COALESCE(detail,''), timestamp
	          FROM transitions WHERE (? = '' OR project = ?)
	          ORDER BY id DESC LIMIT ?`
	rows, err := l.conn.Query(query, project, project, limit)
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close()

	var out []Transition
	for rows.Next() {
		var t Transition
		if err := rows.Scan(&t.Project, &t.Step, &t.Action, &t.Actor, &t.Detail, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GateRun is one row from the gate_runs table.
type GateRun struct {
	Project   string `json:"project"`
	Gate      string `json:"gate"`
	Passed    bool   `json:"passed"`
	Blockers  int    `json:"blockers"`
	Warnings  int    `json:"warnings"`
	Timestamp string `json:"timestamp"`
}

// GateHistory returns past runs of one gate for a project, newest first.
func (l *Log) GateHistory(project, gate string, limit int) ([]GateRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.conn.Query(
		`SELECT project, gate, passed, blockers, warnings, timestamp
		 FROM gate_runs WHERE project = ? AND gate = ?
		 ORDER BY id DESC LIMIT ?`,
		project, gate, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query gate runs: %w", err)
	}
	defer rows.Close()

	var out []GateRun
	for rows.Next() {
		var g GateRun
		if err := rows.Scan(&g.Project, &g.Gate, &g.Passed, &g.Blockers, &g.Warnings, &g.Timestamp); err != nil {
			return nil, fmt.Errorf("scan gate run: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
