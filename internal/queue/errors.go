package queue

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrJobNotFound is returned when a job or failed job cannot be found in the database
	ErrJobNotFound = errors.New("job not found")

	// ErrNoJob is returned by Reserve when no eligible job is available
	ErrNoJob = errors.New("no job available")

	// ErrLeaseLost is returned when a worker acts on a job it no longer holds
	ErrLeaseLost = errors.New("job lease lost or job no longer reserved by this worker")

	// ErrInvalidPayload is returned when job payload JSON is malformed
	ErrInvalidPayload = errors.New("invalid job payload")

	// ErrNoHandler is returned when no handler is registered for a payload kind
	ErrNoHandler = errors.New("no handler registered for job kind")

	// ErrMaxAttemptsExceeded marks a job that was released past its attempt budget
	ErrMaxAttemptsExceeded = errors.New("max attempts exceeded")
)

// SubmissionError wraps a store failure during Submit
type SubmissionError struct {
	Queue string
	Err   error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("failed to submit job to queue %q: %v", e.Queue, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// TimeoutError is reported when a handler runs past its deadline
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("job exceeded timeout of %s", e.Timeout)
}

// ReleaseError asks the worker to put the job back without counting an exception
type ReleaseError struct {
	Delay time.Duration
}

func (e *ReleaseError) Error() string {
	return fmt.Sprintf("job released back to queue with delay %s", e.Delay)
}

// Release returns an error that reschedules the current job after delay.
func Release(delay time.Duration) error {
	return &ReleaseError{Delay: delay}
}

// PermanentError fails the job immediately, skipping the remaining budget
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return "permanent failure: " + e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// NewPermanentError creates a new permanent error
func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}
