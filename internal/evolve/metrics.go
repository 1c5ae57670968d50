// Package evolve selects, scores, rewrites, and retires units based on
// tracked outcomes. Metrics live in a sqlite database; the engine reads
// them to pick pool members and to decide what to evolve or archive.
package evolve

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS unit_metrics (
	id            TEXT PRIMARY KEY,
	runs          INTEGER NOT NULL DEFAULT 0,
	total_success REAL NOT NULL DEFAULT 0,
	success_rate  REAL NOT NULL DEFAULT 0.5,
	last_used     TEXT
);

CREATE TABLE IF NOT EXISTS history (
	seq     INTEGER PRIMARY KEY AUTOINCREMENT,
	unit_id TEXT NOT NULL,
	task    TEXT,
	success REAL NOT NULL,
	ts      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_history_unit ON history(unit_id);
`

// Metrics tracks per-unit success rates in sqlite. Rates are simple
// averages over all tracked runs; history is append-only.
type Metrics struct {
	db *sql.DB
}

// UnitStats is the tracked record for one unit id.
type UnitStats struct {
	ID           string
	Runs         int
	TotalSuccess float64
	SuccessRate  float64
	LastUsed     time.Time
}

// Event is one history entry.
type Event struct {
	UnitID    string
	Task      string
	Success   float64
	Timestamp time.Time
}

// OpenMetrics opens (creating if needed) the metrics database at path.
func OpenMetrics(path string) (*Metrics, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating metrics dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening metrics db: %w", err)
	}

	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing metrics schema: %w", err)
	}

	return &Metrics{db: db}, nil
}

// Track records one run outcome for a unit and returns its updated
// success rate. The rate is the running average of all successes.
func (m *Metrics) Track(ctx context.Context, id string, success float64, task string) (float64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("tracking %s: %w", id, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO unit_metrics (id, runs, total_success, success_rate, last_used)
		VALUES (?, 1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			runs = runs + 1,
			total_success = total_success + excluded.total_success,
			success_rate = (total_success + excluded.total_success) / (runs + 1),
			last_used = excluded.last_used`,
		id, success, success, now)
	if err != nil {
		return 0, fmt.Errorf("tracking %s: %w", id, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO history (unit_id, task, success, ts) VALUES (?, ?, ?, ?)`,
		id, task, success, now)
	if err != nil {
		return 0, fmt.Errorf("tracking %s history: %w", id, err)
	}

	var rate float64
	if err := tx.QueryRowContext(ctx,
		`SELECT success_rate FROM unit_metrics WHERE id = ?`, id).Scan(&rate); err != nil {
		return 0, fmt.Errorf("reading rate for %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("tracking %s: %w", id, err)
	}
	return rate, nil
}

// Rate returns the tracked success rate for a unit id. Unknown units
// rate 0.5 so untried members neither win nor lose selection.
func (m *Metrics) Rate(ctx context.Context, id string) float64 {
	var rate float64
	err := m.db.QueryRowContext(ctx,
		`SELECT success_rate FROM unit_metrics WHERE id = ?`, id).Scan(&rate)
	if err != nil {
		return 0.5
	}
	return rate
}

// Stats returns the full tracked record for a unit id. The second
// return is false for untracked ids.
func (m *Metrics) Stats(ctx context.Context, id string) (UnitStats, bool) {
	var s UnitStats
	var lastUsed sql.NullString
	err := m.db.QueryRowContext(ctx,
		`SELECT id, runs, total_success, success_rate, last_used FROM unit_metrics WHERE id = ?`,
		id).Scan(&s.ID, &s.Runs, &s.TotalSuccess, &s.SuccessRate, &lastUsed)
	if err != nil {
		return UnitStats{}, false
	}
	if lastUsed.Valid {
		s.LastUsed, _ = time.Parse(time.RFC3339Nano, lastUsed.String)
	}
	return s, true
}

// History returns the most recent events for a unit id, newest first.
func (m *Metrics) History(ctx context.Context, id string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := m.db.QueryContext(ctx,
		`SELECT unit_id, task, success, ts FROM history WHERE unit_id = ? ORDER BY seq DESC LIMIT ?`,
		id, limit)
	if err != nil {
		return nil, fmt.Errorf("reading history for %s: %w", id, err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var task sql.NullString
		var ts string
		if err := rows.Scan(&e.UnitID, &task, &e.Success, &ts); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		e.Task = task.String
		e.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (m *Metrics) Close() error {
	return m.db.Close()
}
