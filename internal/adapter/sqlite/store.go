// Package sqlite persists projection summaries to a local SQLite database. It serves
// as the pipeline sink when Kafka output is not wanted and as the CLI's result store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/couchcryptid/covid-projection-etl/internal/domain"
	"github.com/google/uuid"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// ErrNotFound is returned when no summary exists for an ID.
var ErrNotFound = errors.New("projection summary not found")

const schema = `
CREATE TABLE IF NOT EXISTS projection_summaries (
	id           TEXT PRIMARY KEY,
	state_code   TEXT NOT NULL,
	county_name  TEXT NOT NULL DEFAULT '',
	intervention TEXT NOT NULL,
	alarm_level  TEXT NOT NULL,
	payload      TEXT NOT NULL,
	processed_at TEXT NOT NULL,
	run_id       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS projection_summaries_state_idx ON projection_summaries (state_code);
`

// Store writes summaries to SQLite. Every Store gets a fresh run ID that is recorded
// on each row it writes. It implements pipeline.BatchLoader.
type Store struct {
	db    *sql.DB
	runID string
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// A single connection serializes writers and keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return &Store{db: db, runID: uuid.NewString()}, nil
}

// RunID identifies the rows written by this Store.
func (s *Store) RunID() string {
	return s.runID
}

// LoadBatch upserts the serialized summaries in one transaction.
func (s *Store) LoadBatch(ctx context.Context, events []domain.OutputEvent) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sqlite tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO projection_summaries (id, state_code, county_name, intervention, alarm_level, payload, processed_at, run_id)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	alarm_level  = excluded.alarm_level,
	payload      = excluded.payload,
	processed_at = excluded.processed_at,
	run_id       = excluded.run_id`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		var summary domain.ProjectionSummary
		if err := json.Unmarshal(ev.Value, &summary); err != nil {
			return fmt.Errorf("decode summary %s: %w", ev.Key, err)
		}
		if _, err := stmt.ExecContext(ctx,
			string(ev.Key),
			summary.Location.StateCode,
			summary.Location.CountyName,
			summary.Intervention,
			string(summary.AlarmLevel),
			string(ev.Value),
			summary.ProcessedAt.UTC().Format(time.RFC3339Nano),
			s.runID,
		); err != nil {
			return fmt.Errorf("upsert summary %s: %w", ev.Key, err)
		}
	}
	return tx.Commit()
}

// Save serializes and upserts a single summary.
func (s *Store) Save(ctx context.Context, summary domain.ProjectionSummary) error {
	out, err := domain.SerializeSummary(summary)
	if err != nil {
		return err
	}
	return s.LoadBatch(ctx, []domain.OutputEvent{out})
}

// Get returns the summary stored under id.
func (s *Store) Get(ctx context.Context, id string) (domain.ProjectionSummary, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM projection_summaries WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ProjectionSummary{}, ErrNotFound
	}
	if err != nil {
		return domain.ProjectionSummary{}, fmt.Errorf("query summary %s: %w", id, err)
	}
	return decode(payload)
}

// ListByState returns every summary for a state, ordered by ID.
func (s *Store) ListByState(ctx context.Context, stateCode string) ([]domain.ProjectionSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM projection_summaries WHERE state_code = ? ORDER BY id`, stateCode)
	if err != nil {
		return nil, fmt.Errorf("list summaries for %s: %w", stateCode, err)
	}
	defer rows.Close()

	var out []domain.ProjectionSummary
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		summary, err := decode(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, summary)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}

func decode(payload string) (domain.ProjectionSummary, error) {
	var summary domain.ProjectionSummary
	if err := json.Unmarshal([]byte(payload), &summary); err != nil {
		return domain.ProjectionSummary{}, fmt.Errorf("decode stored summary: %w", err)
	}
	return summary, nil
}
