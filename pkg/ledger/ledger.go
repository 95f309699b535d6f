// Package ledger persists bulk ingest job submissions in Postgres so job
// state can be reconciled across process restarts and retries. The ledger
// is optional: the Data Cloud client works without one attached.
package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/natserract/datacloud/pkg/datacloud"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// Schema for the job ledger table
const Schema = `
CREATE TABLE IF NOT EXISTS ingest_jobs (
    job_id      TEXT PRIMARY KEY,
    attempt_id  UUID NOT NULL,
    source_name TEXT NOT NULL,
    object_name TEXT NOT NULL,
    operation   TEXT NOT NULL,
    state       TEXT NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS ingest_jobs_state_idx ON ingest_jobs (state);
`

// Entry is one ledger row
type Entry struct {
	JobID      string
	AttemptID  uuid.UUID
	SourceName string
	ObjectName string
	Operation  string
	State      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Store implements datacloud.JobRecorder on top of Postgres
type Store struct {
	db     *DB
	logger *zap.Logger
}

// NewStore creates a ledger store and ensures the schema exists
func NewStore(ctx context.Context, db *DB, logger *zap.Logger) (*Store, error) {
	if _, err := db.Pool().Exec(ctx, Schema); err != nil {
		return nil, fmt.Errorf("failed to initialize ledger schema: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// RecordJob inserts a new job into the ledger. Re-recording an existing job
// refreshes its state.
func (s *Store) RecordJob(ctx context.Context, job *datacloud.Job) error {
	_, err := s.db.Pool().Exec(ctx, `
		INSERT INTO ingest_jobs (job_id, attempt_id, source_name, object_name, operation, state)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (job_id) DO UPDATE
		SET state = EXCLUDED.state, updated_at = now()`,
		job.ID, uuid.New(), job.SourceName, job.Object, job.Operation, job.State)
	if err != nil {
		return fmt.Errorf("failed to record job %s: %w", job.ID, err)
	}
	return nil
}

// UpdateJobState persists an observed state transition
func (s *Store) UpdateJobState(ctx context.Context, jobID, state string) error {
	tag, err := s.db.Pool().Exec(ctx, `
		UPDATE ingest_jobs SET state = $2, updated_at = now() WHERE job_id = $1`,
		jobID, state)
	if err != nil {
		return fmt.Errorf("failed to update job %s: %w", jobID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %s not found in ledger", jobID)
	}
	return nil
}

// ListNonTerminal returns ledger entries whose last observed state is not
// terminal (JobComplete, Failed, Aborted).
func (s *Store) ListNonTerminal(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.Pool().Query(ctx, `
		SELECT job_id, attempt_id, source_name, object_name, operation, state, created_at, updated_at
		FROM ingest_jobs
		WHERE state NOT IN ($1, $2, $3)
		ORDER BY created_at`,
		datacloud.JobStateJobComplete, datacloud.JobStateFailed, datacloud.JobStateAborted)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.JobID, &e.AttemptID, &e.SourceName, &e.ObjectName,
			&e.Operation, &e.State, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// JobInspector fetches the current state of a job from the vendor
type JobInspector interface {
	JobInfo(ctx context.Context, jobID string) (*datacloud.Job, error)
}

// EntrySource is the slice of the ledger Reconcile reads from and writes to
type EntrySource interface {
	ListNonTerminal(ctx context.Context) ([]Entry, error)
	UpdateJobState(ctx context.Context, jobID, state string) error
}

// ReconcileReport summarizes a reconcile pass
type ReconcileReport struct {
	Checked int
	Updated int
	Failed  int
}

// Reconcile fetches the vendor's view of every non-terminal ledger entry
// and persists the observed state
func (s *Store) Reconcile(ctx context.Context, inspector JobInspector) (*ReconcileReport, error) {
	return Reconcile(ctx, s, inspector, s.logger)
}

// Reconcile fetches the vendor's view of every non-terminal entry in the
// source and persists the observed state. Entries whose state is unchanged
// are skipped. Lookups run with bounded concurrency; individual failures
// are counted, not fatal.
func Reconcile(ctx context.Context, source EntrySource, inspector JobInspector, logger *zap.Logger) (*ReconcileReport, error) {
	entries, err := source.ListNonTerminal(ctx)
	if err != nil {
		return nil, err
	}

	report := &ReconcileReport{Checked: len(entries)}
	var mu sync.Mutex

	p := pool.New().WithMaxGoroutines(5)
	for _, entry := range entries {
		entry := entry // capture loop variable
		p.Go(func() {
			job, err := inspector.JobInfo(ctx, entry.JobID)
			if err != nil {
				logger.Warn("Failed to fetch job during reconcile",
					zap.String("job_id", entry.JobID),
					zap.Error(err))
				mu.Lock()
				report.Failed++
				mu.Unlock()
				return
			}
			if job.State == entry.State {
				return
			}
			if err := source.UpdateJobState(ctx, entry.JobID, job.State); err != nil {
				logger.Warn("Failed to persist reconciled state",
					zap.String("job_id", entry.JobID),
					zap.Error(err))
				mu.Lock()
				report.Failed++
				mu.Unlock()
				return
			}
			logger.Info("Reconciled job state",
				zap.String("job_id", entry.JobID),
				zap.String("previous", entry.State),
				zap.String("observed", job.State))
			mu.Lock()
			report.Updated++
			mu.Unlock()
		})
	}
	p.Wait()

	return report, nil
}
