package handstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"handcut/internal/services"
	"handcut/internal/timecode"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS detection_runs (
    id TEXT PRIMARY KEY,
    source TEXT NOT NULL,
    stream_id TEXT,
    duration_seconds DOUBLE PRECISION NOT NULL DEFAULT 0,
    method TEXT NOT NULL,
    model TEXT,
    started_at TIMESTAMPTZ NOT NULL,
    finished_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_detection_runs_finished ON detection_runs(finished_at);
CREATE INDEX IF NOT EXISTS idx_detection_runs_stream ON detection_runs(stream_id);
CREATE TABLE IF NOT EXISTS detected_hands (
    run_id TEXT NOT NULL REFERENCES detection_runs(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    hand_number INTEGER NOT NULL,
    start_time TEXT NOT NULL,
    end_time TEXT NOT NULL,
    confidence DOUBLE PRECISION NOT NULL,
    PRIMARY KEY (run_id, position)
);`

const insertHandSQL = `INSERT INTO detected_hands (run_id, position, hand_number, start_time, end_time, confidence)
VALUES ($1, $2, $3, $4, $5, $6)`

// PostgresStore keeps runs in a shared PostgreSQL database.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects with dsn, verifies the connection and ensures the tables exist.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	poolCfg, err := parsePostgresDSN(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, services.Wrap(services.ErrExternalTool, "store", "postgres", "ping failed", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure postgres schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func parsePostgresDSN(dsn string) (*pgxpool.Config, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, services.Wrap(services.ErrConfiguration, "store", "postgres", "dsn is required", nil)
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "store", "postgres", "invalid dsn", err)
	}
	if cfg.MaxConns > 4 {
		cfg.MaxConns = 4
	}
	return cfg, nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// SaveRun inserts the run row, then sends every hand in one batch, all inside a transaction.
func (s *PostgresStore) SaveRun(ctx context.Context, run *Run) error {
	if err := validateRun(run); err != nil {
		return err
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin save tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO detection_runs (id, source, stream_id, duration_seconds, method, model, started_at, finished_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		run.ID, run.Source, nullableString(run.StreamID), run.DurationSeconds, run.Method,
		nullableString(run.Model), run.StartedAt.UTC(), run.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	if len(run.Hands) > 0 {
		results := tx.SendBatch(ctx, handBatch(run.ID, run.Hands))
		for i := range run.Hands {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return fmt.Errorf("insert hand %d: %w", i, err)
			}
		}
		if err := results.Close(); err != nil {
			return fmt.Errorf("close hand batch: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

func handBatch(runID string, hands []timecode.HandTimecode) *pgx.Batch {
	batch := &pgx.Batch{}
	for i, hand := range hands {
		batch.Queue(insertHandSQL, runID, i, hand.HandNumber, hand.StartTime, hand.EndTime, hand.Confidence)
	}
	return batch
}

// ListRuns returns the most recently finished runs first.
func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT r.id, r.source, COALESCE(r.stream_id, ''), r.duration_seconds, r.finished_at,
                (SELECT COUNT(1) FROM detected_hands h WHERE h.run_id = r.id)
         FROM detection_runs r
         ORDER BY r.finished_at DESC, r.id
         LIMIT $1`, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var summary RunSummary
		if err := rows.Scan(&summary.ID, &summary.Source, &summary.StreamID, &summary.DurationSeconds, &summary.FinishedAt, &summary.HandCount); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, summary)
	}
	return runs, rows.Err()
}

// GetRun loads a run with its hands in order.
func (s *PostgresStore) GetRun(ctx context.Context, id string) (*Run, error) {
	var run Run
	err := s.pool.QueryRow(ctx,
		`SELECT id, source, COALESCE(stream_id, ''), duration_seconds, method, COALESCE(model, ''), started_at, finished_at
         FROM detection_runs WHERE id = $1`, id,
	).Scan(&run.ID, &run.Source, &run.StreamID, &run.DurationSeconds, &run.Method, &run.Model, &run.StartedAt, &run.FinishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT hand_number, start_time, end_time, confidence
         FROM detected_hands WHERE run_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("query hands: %w", err)
	}
	hands, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (timecode.HandTimecode, error) {
		var hand timecode.HandTimecode
		err := row.Scan(&hand.HandNumber, &hand.StartTime, &hand.EndTime, &hand.Confidence)
		return hand, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan hands: %w", err)
	}
	run.Hands = hands
	return &run, nil
}
