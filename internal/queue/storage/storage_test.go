package storage

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cuongbtq/property-be/internal/queue"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStorage(t *testing.T) (*Storage, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewStorage(sqlx.NewDb(db, "postgres")), mock
}

var jobRowColumns = []string{
	"id", "queue", "payload", "attempts", "exceptions", "max_attempts", "max_exceptions",
	"timeout_seconds", "backoff_seconds", "reserved_at", "reserved_until", "reserved_by", "available_at", "created_at",
}

func TestStorage_Insert(t *testing.T) {
	s, mock := newMockStorage(t)
	now := time.Now()

	job := &queue.Job{
		ID:             "7c9e6679-7425-40de-944b-e07fc1f90ae7",
		Queue:          queue.QueueEmails,
		Payload:        queue.Payload{Kind: "send_email"},
		MaxAttempts:    3,
		MaxExceptions:  2,
		TimeoutSeconds: 60,
		BackoffSeconds: 30,
	}

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO jobs")).
		WithArgs(job.ID, job.Queue, sqlmock.AnyArg(), 3, 2, 60, 30).
		WillReturnRows(sqlmock.NewRows([]string{"attempts", "exceptions", "available_at", "created_at"}).
			AddRow(0, 0, now, now))

	err := s.Insert(context.Background(), job)

	require.NoError(t, err)
	assert.Equal(t, now, job.CreatedAt)
	assert.Equal(t, now, job.AvailableAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_Reserve(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		s, mock := newMockStorage(t)
		now := time.Now()
		until := now.Add(time.Minute)

		rows := sqlmock.NewRows(jobRowColumns).AddRow(
			"job-1", queue.QueueEmails, []byte(`{"kind":"send_property_created_email","data":{"property_id":"p-1"}}`),
			1, 0, 3, 2, 60, 30, now, until, "worker-1", now, now,
		)

		mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE SKIP LOCKED")).
			WithArgs(sqlmock.AnyArg(), "worker-1").
			WillReturnRows(rows)

		job, err := s.Reserve(context.Background(), []string{queue.QueueEmails, queue.QueueDefault}, "worker-1")

		require.NoError(t, err)
		assert.Equal(t, "job-1", job.ID)
		assert.Equal(t, "send_property_created_email", job.Payload.Kind)
		assert.Equal(t, 1, job.Attempts)
		require.NotNil(t, job.ReservedBy)
		assert.Equal(t, "worker-1", *job.ReservedBy)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Empty queue", func(t *testing.T) {
		s, mock := newMockStorage(t)

		mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE SKIP LOCKED")).
			WillReturnRows(sqlmock.NewRows(jobRowColumns))

		job, err := s.Reserve(context.Background(), []string{queue.QueueEmails}, "worker-1")

		assert.Nil(t, job)
		assert.ErrorIs(t, err, queue.ErrNoJob)
	})

	t.Run("Database error", func(t *testing.T) {
		s, mock := newMockStorage(t)

		mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE SKIP LOCKED")).
			WillReturnError(sqlmock.ErrCancelled)

		job, err := s.Reserve(context.Background(), []string{queue.QueueEmails}, "worker-1")

		assert.Nil(t, job)
		require.Error(t, err)
		assert.NotErrorIs(t, err, queue.ErrNoJob)
	})
}

func TestStorage_Complete(t *testing.T) {
	tests := []struct {
		name        string
		rowsDeleted int64
		wantErr     error
	}{
		{name: "held by worker", rowsDeleted: 1},
		{name: "lease lost", rowsDeleted: 0, wantErr: queue.ErrLeaseLost},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStorage(t)

			mock.ExpectExec(regexp.QuoteMeta("DELETE FROM jobs WHERE id = $1 AND reserved_by = $2")).
				WithArgs("job-1", "worker-1").
				WillReturnResult(sqlmock.NewResult(0, tt.rowsDeleted))

			err := s.Complete(context.Background(), "job-1", "worker-1")

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestStorage_Release(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectExec(regexp.QuoteMeta("SET attempts = attempts + 1")).
		WithArgs("job-1", "worker-1", 1, float64(60)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.Release(context.Background(), "job-1", "worker-1", time.Minute, true)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_Fail(t *testing.T) {
	t.Run("Moves job to failed_jobs", func(t *testing.T) {
		s, mock := newMockStorage(t)
		failedAt := time.Now()

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM jobs")).
			WithArgs("job-1", "worker-1").
			WillReturnRows(sqlmock.NewRows([]string{"queue", "payload", "attempts", "max_attempts", "max_exceptions", "timeout_seconds", "backoff_seconds"}).
				AddRow(queue.QueueEmails, []byte(`{"kind":"send_email"}`), 2, 3, 2, 60, 30))
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO failed_jobs")).
			WithArgs(sqlmock.AnyArg(), "job-1", queue.QueueEmails, sqlmock.AnyArg(), 3, "mailgun: 401 Unauthorized", 3, 2, 60, 30).
			WillReturnRows(sqlmock.NewRows([]string{"failed_at"}).AddRow(failedAt))
		mock.ExpectCommit()

		failed, err := s.Fail(context.Background(), "job-1", "worker-1", "mailgun: 401 Unauthorized")

		require.NoError(t, err)
		assert.Equal(t, "job-1", failed.JobID)
		assert.Equal(t, 3, failed.Attempts)
		assert.Equal(t, "send_email", failed.Payload.Kind)
		assert.Equal(t, failedAt, failed.FailedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Lease lost rolls back", func(t *testing.T) {
		s, mock := newMockStorage(t)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM jobs")).
			WithArgs("job-1", "worker-1").
			WillReturnRows(sqlmock.NewRows([]string{"queue", "payload", "attempts", "max_attempts", "max_exceptions", "timeout_seconds", "backoff_seconds"}))
		mock.ExpectRollback()

		failed, err := s.Fail(context.Background(), "job-1", "worker-1", "boom")

		assert.Nil(t, failed)
		assert.ErrorIs(t, err, queue.ErrLeaseLost)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStorage_ReleaseExpired(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectExec(regexp.QuoteMeta("reserved_until <= NOW()")).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := s.ReleaseExpired(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestStorage_QueueCounts(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectQuery(regexp.QuoteMeta("COUNT(*) FILTER (WHERE reserved_at IS NOT NULL) AS reserved")).
		WithArgs(queue.QueueEmails).
		WillReturnRows(sqlmock.NewRows([]string{"jobs", "reserved", "failed"}).AddRow(12, 2, 6))

	counts, err := s.QueueCounts(context.Background(), queue.QueueEmails)

	require.NoError(t, err)
	assert.Equal(t, &Counts{Jobs: 12, Reserved: 2, Failed: 6}, counts)
}

func TestStorage_ListFailed(t *testing.T) {
	columns := []string{"id", "job_id", "queue", "payload", "attempts", "exception", "failed_at"}

	t.Run("Filtered by queue", func(t *testing.T) {
		s, mock := newMockStorage(t)

		mock.ExpectQuery(regexp.QuoteMeta("FROM failed_jobs WHERE 1=1 AND queue = $1 ORDER BY failed_at DESC LIMIT $2")).
			WithArgs(queue.QueueEmails, 20).
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow("f-1", "job-1", queue.QueueEmails, []byte(`{"kind":"send_email"}`), 3, "boom", time.Now()))

		failed, err := s.ListFailed(context.Background(), queue.QueueEmails, 20)

		require.NoError(t, err)
		require.Len(t, failed, 1)
		assert.Equal(t, "f-1", failed[0].ID)
	})

	t.Run("All queues", func(t *testing.T) {
		s, mock := newMockStorage(t)

		mock.ExpectQuery(regexp.QuoteMeta("FROM failed_jobs WHERE 1=1 ORDER BY failed_at DESC LIMIT $1")).
			WithArgs(50).
			WillReturnRows(sqlmock.NewRows(columns))

		failed, err := s.ListFailed(context.Background(), "", 50)

		require.NoError(t, err)
		assert.Empty(t, failed)
	})
}

func TestStorage_DeleteFailed_NotFound(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM failed_jobs WHERE id = $1")).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.DeleteFailed(context.Background(), "missing")

	assert.ErrorIs(t, err, queue.ErrJobNotFound)
}

func TestStorage_RetryFailed(t *testing.T) {
	t.Run("Requeues as a fresh job", func(t *testing.T) {
		s, mock := newMockStorage(t)
		now := time.Now()

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM failed_jobs")).
			WithArgs("f-1").
			WillReturnRows(sqlmock.NewRows([]string{"queue", "payload", "max_attempts", "max_exceptions", "timeout_seconds", "backoff_seconds"}).
				AddRow(queue.QueueEmails, []byte(`{"kind":"send_email"}`), 3, 2, 60, 30))
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO jobs")).
			WithArgs(sqlmock.AnyArg(), queue.QueueEmails, sqlmock.AnyArg(), 3, 2, 60, 30).
			WillReturnRows(sqlmock.NewRows([]string{"attempts", "exceptions", "available_at", "created_at"}).
				AddRow(0, 0, now, now))
		mock.ExpectCommit()

		job, err := s.RetryFailed(context.Background(), "f-1")

		require.NoError(t, err)
		assert.NotEmpty(t, job.ID)
		assert.Equal(t, 0, job.Attempts)
		assert.Equal(t, queue.QueueEmails, job.Queue)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unknown failed job", func(t *testing.T) {
		s, mock := newMockStorage(t)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM failed_jobs")).
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		job, err := s.RetryFailed(context.Background(), "missing")

		assert.Nil(t, job)
		assert.ErrorIs(t, err, queue.ErrJobNotFound)
	})
}
