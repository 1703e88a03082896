// Package journal provides an append-only SQLite log of execution lifecycle
// events. It is a diagnostics sink: the dispatcher appends to it best-effort,
// and nothing is ever read back into the live registry. The in-memory store
// remains the only source of truth and still starts empty on every boot.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/seantiz/kiln/internal/model"

	_ "modernc.org/sqlite"
)

const createEventsTable = `
CREATE TABLE IF NOT EXISTS execution_events (
    seq          INTEGER PRIMARY KEY AUTOINCREMENT,
    execution_id TEXT NOT NULL,
    kind         TEXT NOT NULL,
    status       TEXT NOT NULL,
    error        TEXT NOT NULL DEFAULT '',
    recorded_at  DATETIME NOT NULL
)`

const createEventsIndex = `
CREATE INDEX IF NOT EXISTS idx_execution_events_execution_id
ON execution_events (execution_id)`

// Event is one journaled lifecycle change of an execution.
type Event struct {
	Seq         int64     `json:"seq"`
	ExecutionID string    `json:"execution_id"`
	Kind        string    `json:"kind"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// Journal writes execution lifecycle events to a SQLite database.
type Journal struct {
	db *sql.DB
}

// Open opens (or creates) the journal database at path and runs migrations.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if _, err := db.Exec(createEventsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create events table: %w", err)
	}

	if _, err := db.Exec(createEventsIndex); err != nil {
		db.Close()
		return nil, fmt.Errorf("create events index: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record appends one event taken from an execution snapshot.
func (j *Journal) Record(ctx context.Context, e model.Execution) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO execution_events (execution_id, kind, status, error, recorded_at)
		 VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.Kind, e.Status, e.Error, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Events returns the journaled events for one execution in append order.
func (j *Journal) Events(ctx context.Context, executionID string) ([]Event, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT seq, execution_id, kind, status, error, recorded_at
		 FROM execution_events WHERE execution_id = ? ORDER BY seq ASC`,
		executionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.Seq, &ev.ExecutionID, &ev.Kind, &ev.Status, &ev.Error, &ev.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	return events, nil
}
