package queue

import (
	"errors"
	"fmt"
	"time"
)

// RetryPolicy controls how many times a job may run and how long it waits between runs
type RetryPolicy struct {
	MaxAttempts   int
	MaxExceptions int
	Timeout       time.Duration
	BackoffBase   time.Duration
}

// DefaultRetryPolicy is used for email jobs: 3 tries, 2 exceptions, 60s timeout, 30s backoff base.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:   3,
		MaxExceptions: 2,
		Timeout:       60 * time.Second,
		BackoffBase:   30 * time.Second,
	}
}

// Backoff returns base * 2^(attempt-1). Attempt is 1-based.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return p.BackoffBase * time.Duration(uint64(1)<<uint(attempt-1))
}

// Validate checks the policy can be stored on a job row
func (p RetryPolicy) Validate() error {
	if p.MaxAttempts <= 0 {
		return fmt.Errorf("max attempts must be greater than 0")
	}
	if p.MaxExceptions <= 0 {
		return fmt.Errorf("max exceptions must be greater than 0")
	}
	if p.Timeout < time.Second {
		return fmt.Errorf("timeout must be at least 1s")
	}
	if p.BackoffBase < 0 {
		return fmt.Errorf("backoff base must not be negative")
	}
	return nil
}

// Decision is the outcome of a failed attempt
type Decision struct {
	Retry     bool
	Delay     time.Duration
	Exception bool
	Attempts  int
	Reason    error
}

// Decide computes what happens to a job after a failed attempt.
// A ReleaseError consumes an attempt but not the exception budget.
// A PermanentError fails the job regardless of the remaining budget.
func Decide(job *Job, cause error) Decision {
	policy := job.Policy()
	attempts := job.Attempts + 1

	var release *ReleaseError
	if errors.As(cause, &release) {
		if attempts < policy.MaxAttempts {
			return Decision{Retry: true, Delay: release.Delay, Attempts: attempts}
		}
		return Decision{Attempts: attempts, Reason: fmt.Errorf("%w: %d/%d", ErrMaxAttemptsExceeded, attempts, policy.MaxAttempts)}
	}

	var permanent *PermanentError
	if errors.As(cause, &permanent) || errors.Is(cause, ErrNoHandler) || errors.Is(cause, ErrInvalidPayload) {
		return Decision{Exception: true, Attempts: attempts, Reason: cause}
	}

	exceptions := job.Exceptions + 1
	if attempts < policy.MaxAttempts && exceptions < policy.MaxExceptions {
		return Decision{Retry: true, Delay: policy.Backoff(attempts), Exception: true, Attempts: attempts}
	}
	return Decision{Exception: true, Attempts: attempts, Reason: cause}
}
