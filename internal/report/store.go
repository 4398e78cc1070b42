// Package report keeps a history of ingestion runs in PostgreSQL.
package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/wordvec/internal/ingest"
	"github.com/Adithya-Monish-Kumar-K/wordvec/pkg/postgres"
)

// Schema creates the tables used by Store. It is safe to run repeatedly.
const Schema = `
CREATE TABLE IF NOT EXISTS ingestion_runs (
    run_id        UUID PRIMARY KEY,
    started_at    TIMESTAMPTZ NOT NULL,
    finished_at   TIMESTAMPTZ NOT NULL,
    total         INTEGER NOT NULL,
    generated     INTEGER NOT NULL,
    skipped       INTEGER NOT NULL,
    failed        INTEGER NOT NULL,
    invalid       INTEGER NOT NULL,
    limit_reached BOOLEAN NOT NULL
);
CREATE TABLE IF NOT EXISTS ingestion_failures (
    run_id  UUID NOT NULL REFERENCES ingestion_runs(run_id) ON DELETE CASCADE,
    word    TEXT NOT NULL,
    status  TEXT NOT NULL,
    error   TEXT NOT NULL,
    PRIMARY KEY (run_id, word)
);`

// Run is a stored run summary.
type Run struct {
	RunID        string
	StartedAt    time.Time
	FinishedAt   time.Time
	Total        int
	Generated    int
	Skipped      int
	Failed       int
	Invalid      int
	LimitReached bool
}

// Failure is a stored per-word failure.
type Failure struct {
	Word   string
	Status string
	Error  string
}

type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

func NewStore(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "report-store"),
	}
}

// Migrate creates the report tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.DB.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("creating report tables: %w", err)
	}
	return nil
}

// SaveRun stores the run summary and its failures in one transaction.
func (s *Store) SaveRun(ctx context.Context, r *ingest.Report) error {
	run, failures := fromReport(r)
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO ingestion_runs
			   (run_id, started_at, finished_at, total, generated, skipped, failed, invalid, limit_reached)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			run.RunID, run.StartedAt, run.FinishedAt, run.Total, run.Generated,
			run.Skipped, run.Failed, run.Invalid, run.LimitReached,
		)
		if err != nil {
			return fmt.Errorf("inserting run %s: %w", run.RunID, err)
		}
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO ingestion_failures (run_id, word, status, error) VALUES ($1, $2, $3, $4)`)
		if err != nil {
			return fmt.Errorf("preparing failure insert: %w", err)
		}
		defer stmt.Close()
		for _, f := range failures {
			if _, err := stmt.ExecContext(ctx, run.RunID, f.Word, f.Status, f.Error); err != nil {
				return fmt.Errorf("inserting failure for %q: %w", f.Word, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("run report saved", "run_id", run.RunID, "failures", len(failures))
	return nil
}

// LatestRun returns the most recently started run, or nil if none exist.
func (s *Store) LatestRun(ctx context.Context) (*Run, error) {
	var run Run
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT run_id, started_at, finished_at, total, generated, skipped, failed, invalid, limit_reached
		   FROM ingestion_runs ORDER BY started_at DESC LIMIT 1`,
	).Scan(&run.RunID, &run.StartedAt, &run.FinishedAt, &run.Total, &run.Generated,
		&run.Skipped, &run.Failed, &run.Invalid, &run.LimitReached)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest run: %w", err)
	}
	return &run, nil
}

// Failures lists the failed words of a run in word order.
func (s *Store) Failures(ctx context.Context, runID string) ([]Failure, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT word, status, error FROM ingestion_failures WHERE run_id = $1 ORDER BY word`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing failures of run %s: %w", runID, err)
	}
	defer rows.Close()

	var out []Failure
	for rows.Next() {
		var f Failure
		if err := rows.Scan(&f.Word, &f.Status, &f.Error); err != nil {
			return nil, fmt.Errorf("scanning failure row: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func fromReport(r *ingest.Report) (Run, []Failure) {
	run := Run{
		RunID:        r.RunID,
		StartedAt:    r.StartedAt,
		FinishedAt:   r.FinishedAt,
		Total:        r.Total,
		Generated:    r.Generated,
		Skipped:      r.Skipped,
		Failed:       r.Failed,
		Invalid:      r.Invalid,
		LimitReached: r.LimitReached,
	}
	failures := make([]Failure, 0, len(r.Failures))
	for _, o := range r.Failures {
		msg := ""
		if o.Err != nil {
			msg = o.Err.Error()
		}
		failures = append(failures, Failure{Word: o.Word, Status: string(o.Status), Error: msg})
	}
	return run, failures
}
