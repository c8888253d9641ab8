// Package store persists batch verification runs in PostgreSQL.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/optimode/contactkit"
)

// ErrRunNotFound is returned by Run for an unknown run ID.
var ErrRunNotFound = errors.New("store: run not found")

// Run is one persisted batch.
type Run struct {
	ID         uuid.UUID          `json:"id"`
	Level      string             `json:"level"`
	Summary    contactkit.Summary `json:"summary"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
}

// Store wraps a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to Postgres and runs migrations.
func Open(ctx context.Context, connString string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) migrate(ctx context.Context) error {
	queryRuns := `
	CREATE TABLE IF NOT EXISTS verification_runs (
		id UUID PRIMARY KEY,
		level TEXT NOT NULL,
		total_count INT NOT NULL DEFAULT 0,
		valid_count INT NOT NULL DEFAULT 0,
		partial_count INT NOT NULL DEFAULT 0,
		invalid_count INT NOT NULL DEFAULT 0,
		unknown_count INT NOT NULL DEFAULT 0,
		started_at TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ NOT NULL
	);`

	// The full result is kept as JSONB so runs can be re-filtered later.
	queryResults := `
	CREATE TABLE IF NOT EXISTS verification_results (
		id BIGSERIAL PRIMARY KEY,
		run_id UUID NOT NULL REFERENCES verification_runs(id) ON DELETE CASCADE,
		position INT NOT NULL,
		project_id TEXT NOT NULL,
		status TEXT NOT NULL,
		has_valid_contact BOOLEAN NOT NULL,
		data JSONB NOT NULL,
		UNIQUE (run_id, position)
	);`

	if _, err := s.pool.Exec(ctx, queryRuns); err != nil {
		return fmt.Errorf("migration failed (verification_runs): %w", err)
	}
	if _, err := s.pool.Exec(ctx, queryResults); err != nil {
		return fmt.Errorf("migration failed (verification_results): %w", err)
	}
	return nil
}

// SaveRun stores a run and its results in one transaction. A zero
// run.ID is replaced by a new UUID, which is returned.
func (s *Store) SaveRun(ctx context.Context, run Run, results []contactkit.ProjectResult) (uuid.UUID, error) {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	run.Summary = contactkit.Summarize(results)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO verification_runs
			(id, level, total_count, valid_count, partial_count, invalid_count, unknown_count, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		run.ID, run.Level, run.Summary.Total, run.Summary.Valid, run.Summary.Partial,
		run.Summary.Invalid, run.Summary.Unknown, run.StartedAt, run.FinishedAt)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert run: %w", err)
	}

	batch := &pgx.Batch{}
	for i, r := range results {
		data, err := json.Marshal(r)
		if err != nil {
			return uuid.Nil, fmt.Errorf("encode result %d: %w", i, err)
		}
		batch.Queue(`
			INSERT INTO verification_results (run_id, position, project_id, status, has_valid_contact, data)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			run.ID, i, r.ID, string(r.Status), r.HasValidContact(), data)
	}
	br := tx.SendBatch(ctx, batch)
	for i := range results {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return uuid.Nil, fmt.Errorf("insert result %d: %w", i, err)
		}
	}
	if err := br.Close(); err != nil {
		return uuid.Nil, fmt.Errorf("insert results: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("commit: %w", err)
	}
	return run.ID, nil
}

// Run loads a run by ID.
func (s *Store) Run(ctx context.Context, id uuid.UUID) (Run, error) {
	run := Run{ID: id}
	err := s.pool.QueryRow(ctx, `
		SELECT level, total_count, valid_count, partial_count, invalid_count, unknown_count, started_at, finished_at
		FROM verification_runs WHERE id = $1`, id).
		Scan(&run.Level, &run.Summary.Total, &run.Summary.Valid, &run.Summary.Partial,
			&run.Summary.Invalid, &run.Summary.Unknown, &run.StartedAt, &run.FinishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Run{}, ErrRunNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("query run: %w", err)
	}
	return run, nil
}

// Results returns the stored results of a run in input order, as the JSON
// documents they were saved as.
func (s *Store) Results(ctx context.Context, id uuid.UUID) ([]json.RawMessage, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT data FROM verification_results WHERE run_id = $1 ORDER BY position ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (json.RawMessage, error) {
		var data []byte
		err := row.Scan(&data)
		return json.RawMessage(data), err
	})
	if err != nil {
		return nil, fmt.Errorf("scan results: %w", err)
	}
	if out == nil {
		out = []json.RawMessage{}
	}
	return out, nil
}
