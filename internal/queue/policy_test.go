package queue

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryPolicy_Backoff(t *testing.T) {
	policy := DefaultRetryPolicy()

	var got []time.Duration
	for attempt := 1; attempt <= 3; attempt++ {
		got = append(got, policy.Backoff(attempt))
	}

	assert.Equal(t, []time.Duration{30 * time.Second, 60 * time.Second, 120 * time.Second}, got)
	assert.Equal(t, 30*time.Second, policy.Backoff(0), "attempt below 1 is clamped")
}

func TestRetryPolicy_Validate(t *testing.T) {
	tests := []struct {
		name      string
		policy    RetryPolicy
		errString string
	}{
		{name: "default policy", policy: DefaultRetryPolicy()},
		{name: "zero attempts", policy: RetryPolicy{MaxExceptions: 1, Timeout: time.Second}, errString: "max attempts"},
		{name: "zero exceptions", policy: RetryPolicy{MaxAttempts: 1, Timeout: time.Second}, errString: "max exceptions"},
		{name: "sub-second timeout", policy: RetryPolicy{MaxAttempts: 1, MaxExceptions: 1, Timeout: 10 * time.Millisecond}, errString: "timeout"},
		{name: "negative backoff", policy: RetryPolicy{MaxAttempts: 1, MaxExceptions: 1, Timeout: time.Second, BackoffBase: -time.Second}, errString: "backoff"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate()
			if tt.errString == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errString)
		})
	}
}

func newPolicyJob(attempts, exceptions int) *Job {
	return &Job{
		ID:             "job-1",
		Queue:          QueueEmails,
		Attempts:       attempts,
		Exceptions:     exceptions,
		MaxAttempts:    3,
		MaxExceptions:  2,
		TimeoutSeconds: 60,
		BackoffSeconds: 30,
	}
}

func TestDecide(t *testing.T) {
	boom := errors.New("smtp connection refused")

	tests := []struct {
		name          string
		job           *Job
		cause         error
		wantRetry     bool
		wantDelay     time.Duration
		wantException bool
		wantAttempts  int
	}{
		{
			name:          "first exception is retried after base backoff",
			job:           newPolicyJob(0, 0),
			cause:         boom,
			wantRetry:     true,
			wantDelay:     30 * time.Second,
			wantException: true,
			wantAttempts:  1,
		},
		{
			name:          "second exception exhausts the exception budget",
			job:           newPolicyJob(1, 1),
			cause:         boom,
			wantException: true,
			wantAttempts:  2,
		},
		{
			name:          "timeout counts as an exception",
			job:           newPolicyJob(0, 0),
			cause:         &TimeoutError{Timeout: time.Minute},
			wantRetry:     true,
			wantDelay:     30 * time.Second,
			wantException: true,
			wantAttempts:  1,
		},
		{
			name:         "release keeps the exception budget",
			job:          newPolicyJob(1, 1),
			cause:        Release(5 * time.Second),
			wantRetry:    true,
			wantDelay:    5 * time.Second,
			wantAttempts: 2,
		},
		{
			name:         "release on the last attempt fails the job",
			job:          newPolicyJob(2, 0),
			cause:        Release(5 * time.Second),
			wantAttempts: 3,
		},
		{
			name:          "permanent error skips remaining budget",
			job:           newPolicyJob(0, 0),
			cause:         NewPermanentError(boom),
			wantException: true,
			wantAttempts:  1,
		},
		{
			name:          "missing handler is permanent",
			job:           newPolicyJob(0, 0),
			cause:         ErrNoHandler,
			wantException: true,
			wantAttempts:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.job, tt.cause)

			assert.Equal(t, tt.wantRetry, d.Retry)
			assert.Equal(t, tt.wantDelay, d.Delay)
			assert.Equal(t, tt.wantException, d.Exception)
			assert.Equal(t, tt.wantAttempts, d.Attempts)
			if !d.Retry {
				assert.Error(t, d.Reason)
			}
		})
	}
}

func TestDecide_AttemptsNeverExceedMax(t *testing.T) {
	job := newPolicyJob(0, 0)
	job.MaxExceptions = 10

	for {
		d := Decide(job, errors.New("boom"))
		assert.LessOrEqual(t, d.Attempts, job.MaxAttempts)
		if !d.Retry {
			assert.Equal(t, job.MaxAttempts, d.Attempts)
			break
		}
		job.Attempts = d.Attempts
		job.Exceptions++
	}
}
