// Package postgres persists run logs and run records in PostgreSQL using
// pgx/v5.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rhuss/laph/pkg/api"
	"github.com/rhuss/laph/pkg/eventlog"
)

// Config selects the database and pool size. A zero MaxConns means 10.
type Config struct {
	DSN            string
	MaxConns       int32
	MigrateOnStart bool
}

// Store is a PostgreSQL-backed event log and run store.
type Store struct {
	pool *pgxpool.Pool
}

var (
	_ eventlog.Sink   = (*Store)(nil)
	_ eventlog.Reader = (*Store)(nil)
)

// New connects to PostgreSQL. If MigrateOnStart is true, schema
// migrations are applied.
func New(ctx context.Context, cfg Config) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}
	poolCfg.MaxConns = 10
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	poolCfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool}
	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}
	return s, nil
}

// Log implements eventlog.Sink.
func (s *Store) Log(ctx context.Context, runID, message string) error {
	_, err := s.pool.Exec(ctx,
		"INSERT INTO run_events (run_id, logged_at, message) VALUES ($1, $2, $3)",
		runID, time.Now().UTC(), message,
	)
	if err != nil {
		return fmt.Errorf("inserting run event: %w", err)
	}
	return nil
}

// Lines implements eventlog.Reader.
func (s *Store) Lines(ctx context.Context, runID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT logged_at, message FROM run_events WHERE run_id = $1 ORDER BY id",
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying run events: %w", err)
	}
	lines, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (string, error) {
		var at time.Time
		var msg string
		if err := row.Scan(&at, &msg); err != nil {
			return "", err
		}
		return eventlog.Format(at, msg), nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading run events: %w", err)
	}
	if len(lines) == 0 {
		return nil, eventlog.ErrNotFound
	}
	return lines, nil
}

// SaveRun inserts or updates a run record.
func (s *Store) SaveRun(ctx context.Context, run *api.Run) error {
	var completed *time.Time
	if !run.CompletedAt.IsZero() {
		completed = &run.CompletedAt
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO runs (id, task, max_iterations, status, code, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status, code = EXCLUDED.code, completed_at = EXCLUDED.completed_at
	`,
		run.ID, run.Task, run.MaxIterations, string(run.Status), run.Code, run.CreatedAt, completed,
	)
	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}
	return nil
}

// GetRun retrieves a run record.
func (s *Store) GetRun(ctx context.Context, id string) (*api.Run, error) {
	var run api.Run
	var status string
	var completed *time.Time
	err := s.pool.QueryRow(ctx, `
		SELECT id, task, max_iterations, status, code, created_at, completed_at
		FROM runs WHERE id = $1
	`, id).Scan(&run.ID, &run.Task, &run.MaxIterations, &status, &run.Code, &run.CreatedAt, &completed)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eventlog.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying run: %w", err)
	}
	run.Status = api.RunStatus(status)
	if completed != nil {
		run.CompletedAt = *completed
	}
	return &run, nil
}

// HealthCheck verifies the database connection.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
