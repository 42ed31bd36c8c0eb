package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cuongbtq/property-be/internal/queue"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const jobColumns = `id, queue, payload, attempts, exceptions, max_attempts, max_exceptions,
	timeout_seconds, backoff_seconds, reserved_at, reserved_until, reserved_by, available_at, created_at`

const failedJobColumns = `id, job_id, queue, payload, attempts, exception, failed_at`

// Counts holds job counters for one queue or for the whole system
type Counts struct {
	Jobs     int `db:"jobs"`
	Reserved int `db:"reserved"`
	Failed   int `db:"failed"`
}

// Reservation pairs a job's creation and reservation timestamps
type Reservation struct {
	CreatedAt  time.Time `db:"created_at"`
	ReservedAt time.Time `db:"reserved_at"`
}

// Storage is the Postgres queue store. Reservation atomicity comes from
// FOR UPDATE SKIP LOCKED plus the reserved_by guard on every state change.
type Storage struct {
	db *sqlx.DB
}

// NewStorage creates a new Storage instance
func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{db: db}
}

// Ping checks the store is reachable
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Insert appends a new pending job. Attempts, availability and creation time are set by the database.
func (s *Storage) Insert(ctx context.Context, job *queue.Job) error {
	query := `
		INSERT INTO jobs (
			id, queue, payload, max_attempts, max_exceptions,
			timeout_seconds, backoff_seconds
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7
		)
		RETURNING attempts, exceptions, available_at, created_at
	`

	err := s.db.QueryRowxContext(
		ctx,
		query,
		job.ID,
		job.Queue,
		job.Payload,
		job.MaxAttempts,
		job.MaxExceptions,
		job.TimeoutSeconds,
		job.BackoffSeconds,
	).Scan(&job.Attempts, &job.Exceptions, &job.AvailableAt, &job.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert job: %w", err)
	}

	return nil
}

// Reserve claims the oldest eligible job in the given queues for workerID.
// A job is eligible when it is available and either unreserved or its lease has expired.
func (s *Storage) Reserve(ctx context.Context, queues []string, workerID string) (*queue.Job, error) {
	query := `
		WITH next_job AS (
			SELECT id
			FROM jobs
			WHERE queue = ANY($1)
			  AND available_at <= NOW()
			  AND (reserved_at IS NULL OR reserved_until <= NOW())
			ORDER BY created_at ASC, id ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE jobs
		SET reserved_at = NOW(),
		    reserved_until = NOW() + make_interval(secs => jobs.timeout_seconds),
		    reserved_by = $2
		FROM next_job
		WHERE jobs.id = next_job.id
		RETURNING jobs.id, jobs.queue, jobs.payload, jobs.attempts, jobs.exceptions,
		          jobs.max_attempts, jobs.max_exceptions, jobs.timeout_seconds, jobs.backoff_seconds,
		          jobs.reserved_at, jobs.reserved_until, jobs.reserved_by, jobs.available_at, jobs.created_at
	`

	var job queue.Job
	err := s.db.GetContext(ctx, &job, query, pq.Array(queues), workerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, queue.ErrNoJob
		}
		return nil, fmt.Errorf("failed to reserve job: %w", err)
	}

	return &job, nil
}

// Complete deletes a finished job still held by workerID
func (s *Storage) Complete(ctx context.Context, jobID, workerID string) error {
	query := `DELETE FROM jobs WHERE id = $1 AND reserved_by = $2`

	result, err := s.db.ExecContext(ctx, query, jobID, workerID)
	if err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}

	return expectOneRow(result, queue.ErrLeaseLost)
}

// Release puts a reserved job back with attempts+1 and a delayed available_at.
// exception also increments the exception counter.
func (s *Storage) Release(ctx context.Context, jobID, workerID string, delay time.Duration, exception bool) error {
	query := `
		UPDATE jobs
		SET attempts = attempts + 1,
		    exceptions = exceptions + $3,
		    reserved_at = NULL,
		    reserved_until = NULL,
		    reserved_by = NULL,
		    available_at = NOW() + make_interval(secs => $4)
		WHERE id = $1 AND reserved_by = $2
	`

	exceptionIncrement := 0
	if exception {
		exceptionIncrement = 1
	}

	result, err := s.db.ExecContext(ctx, query, jobID, workerID, exceptionIncrement, delay.Seconds())
	if err != nil {
		return fmt.Errorf("failed to release job: %w", err)
	}

	return expectOneRow(result, queue.ErrLeaseLost)
}

// Fail moves a reserved job into failed_jobs in a single transaction
func (s *Storage) Fail(ctx context.Context, jobID, workerID, exception string) (*queue.FailedJob, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var row struct {
		Queue          string        `db:"queue"`
		Payload        queue.Payload `db:"payload"`
		Attempts       int           `db:"attempts"`
		MaxAttempts    int           `db:"max_attempts"`
		MaxExceptions  int           `db:"max_exceptions"`
		TimeoutSeconds int           `db:"timeout_seconds"`
		BackoffSeconds int           `db:"backoff_seconds"`
	}

	deleteQuery := `
		DELETE FROM jobs
		WHERE id = $1 AND reserved_by = $2
		RETURNING queue, payload, attempts, max_attempts, max_exceptions, timeout_seconds, backoff_seconds
	`
	if err := tx.GetContext(ctx, &row, deleteQuery, jobID, workerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, queue.ErrLeaseLost
		}
		return nil, fmt.Errorf("failed to remove job: %w", err)
	}

	failed := &queue.FailedJob{
		ID:        uuid.New().String(),
		JobID:     jobID,
		Queue:     row.Queue,
		Payload:   row.Payload,
		Attempts:  row.Attempts + 1,
		Exception: exception,
	}

	insertQuery := `
		INSERT INTO failed_jobs (
			id, job_id, queue, payload, attempts, exception,
			max_attempts, max_exceptions, timeout_seconds, backoff_seconds
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10
		)
		RETURNING failed_at
	`
	err = tx.QueryRowxContext(ctx, insertQuery,
		failed.ID, failed.JobID, failed.Queue, failed.Payload, failed.Attempts, failed.Exception,
		row.MaxAttempts, row.MaxExceptions, row.TimeoutSeconds, row.BackoffSeconds,
	).Scan(&failed.FailedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to record failed job: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit failed job: %w", err)
	}

	return failed, nil
}

// ReleaseExpired clears reservations whose lease has run out and returns how many were cleared
func (s *Storage) ReleaseExpired(ctx context.Context) (int, error) {
	query := `
		UPDATE jobs
		SET reserved_at = NULL,
		    reserved_until = NULL,
		    reserved_by = NULL
		WHERE reserved_at IS NOT NULL
		  AND reserved_until <= NOW()
	`

	result, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to release expired jobs: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(rows), nil
}

// Totals counts jobs, reserved jobs and failed jobs across all queues
func (s *Storage) Totals(ctx context.Context) (*Counts, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM jobs) AS jobs,
			(SELECT COUNT(*) FROM jobs WHERE reserved_at IS NOT NULL) AS reserved,
			(SELECT COUNT(*) FROM failed_jobs) AS failed
	`

	var counts Counts
	if err := s.db.GetContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("failed to count jobs: %w", err)
	}

	return &counts, nil
}

// QueueCounts counts jobs, reserved jobs and failed jobs for one queue
func (s *Storage) QueueCounts(ctx context.Context, queueName string) (*Counts, error) {
	query := `
		SELECT
			COUNT(*) AS jobs,
			COUNT(*) FILTER (WHERE reserved_at IS NOT NULL) AS reserved,
			(SELECT COUNT(*) FROM failed_jobs WHERE queue = $1) AS failed
		FROM jobs
		WHERE queue = $1
	`

	var counts Counts
	if err := s.db.GetContext(ctx, &counts, query, queueName); err != nil {
		return nil, fmt.Errorf("failed to count queue %s: %w", queueName, err)
	}

	return &counts, nil
}

// RecentJobs lists the newest jobs of a queue
func (s *Storage) RecentJobs(ctx context.Context, queueName string, limit int) ([]queue.Job, error) {
	query := `SELECT ` + jobColumns + `
		FROM jobs
		WHERE queue = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	var jobs []queue.Job
	if err := s.db.SelectContext(ctx, &jobs, query, queueName, limit); err != nil {
		return nil, fmt.Errorf("failed to list recent jobs: %w", err)
	}

	return jobs, nil
}

// OldestJob returns the oldest job still in a queue
func (s *Storage) OldestJob(ctx context.Context, queueName string) (*queue.Job, error) {
	query := `SELECT ` + jobColumns + `
		FROM jobs
		WHERE queue = $1
		ORDER BY created_at ASC
		LIMIT 1
	`

	var job queue.Job
	if err := s.db.GetContext(ctx, &job, query, queueName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, queue.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get oldest job: %w", err)
	}

	return &job, nil
}

// RecentFailures lists the newest failed jobs of a queue
func (s *Storage) RecentFailures(ctx context.Context, queueName string, limit int) ([]queue.FailedJob, error) {
	return s.ListFailed(ctx, queueName, limit)
}

// RecentReservations returns creation and reservation times of the most recently reserved jobs
func (s *Storage) RecentReservations(ctx context.Context, queueName string, limit int) ([]Reservation, error) {
	query := `
		SELECT created_at, reserved_at
		FROM jobs
		WHERE queue = $1
		  AND reserved_at IS NOT NULL
		ORDER BY reserved_at DESC
		LIMIT $2
	`

	var reservations []Reservation
	if err := s.db.SelectContext(ctx, &reservations, query, queueName, limit); err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}

	return reservations, nil
}

// ListFailed lists failed jobs, newest first. An empty queueName lists every queue.
func (s *Storage) ListFailed(ctx context.Context, queueName string, limit int) ([]queue.FailedJob, error) {
	query := `SELECT ` + failedJobColumns + ` FROM failed_jobs WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if queueName != "" {
		query += fmt.Sprintf(" AND queue = $%d", argIdx)
		args = append(args, queueName)
		argIdx++
	}

	query += " ORDER BY failed_at DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, limit)

	var failed []queue.FailedJob
	if err := s.db.SelectContext(ctx, &failed, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list failed jobs: %w", err)
	}

	return failed, nil
}

// GetFailed retrieves a failed job by its ID
func (s *Storage) GetFailed(ctx context.Context, id string) (*queue.FailedJob, error) {
	query := `SELECT ` + failedJobColumns + ` FROM failed_jobs WHERE id = $1`

	var failed queue.FailedJob
	if err := s.db.GetContext(ctx, &failed, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, queue.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get failed job: %w", err)
	}

	return &failed, nil
}

// DeleteFailed removes a failed job without retrying it
func (s *Storage) DeleteFailed(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM failed_jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete failed job: %w", err)
	}

	return expectOneRow(result, queue.ErrJobNotFound)
}

// RetryFailed re-inserts a failed job as a fresh pending job and removes the failed record.
// It returns the new job.
func (s *Storage) RetryFailed(ctx context.Context, id string) (*queue.Job, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	job := queue.Job{ID: uuid.New().String()}

	deleteQuery := `
		DELETE FROM failed_jobs
		WHERE id = $1
		RETURNING queue, payload, max_attempts, max_exceptions, timeout_seconds, backoff_seconds
	`
	err = tx.QueryRowxContext(ctx, deleteQuery, id).Scan(
		&job.Queue,
		&job.Payload,
		&job.MaxAttempts,
		&job.MaxExceptions,
		&job.TimeoutSeconds,
		&job.BackoffSeconds,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, queue.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to remove failed job: %w", err)
	}

	insertQuery := `
		INSERT INTO jobs (
			id, queue, payload, max_attempts, max_exceptions,
			timeout_seconds, backoff_seconds
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7
		)
		RETURNING attempts, exceptions, available_at, created_at
	`
	err = tx.QueryRowxContext(ctx, insertQuery,
		job.ID, job.Queue, job.Payload, job.MaxAttempts, job.MaxExceptions,
		job.TimeoutSeconds, job.BackoffSeconds,
	).Scan(&job.Attempts, &job.Exceptions, &job.AvailableAt, &job.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to requeue job: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit retry: %w", err)
	}

	return &job, nil
}

func expectOneRow(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return notFound
	}
	return nil
}
