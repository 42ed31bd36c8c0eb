package queue

import (
	"encoding/json"
	"time"
)

// Queue names used across the services
const (
	QueueDefault = "default"
	QueueEmails  = "emails"
	QueueHigh    = "high"
	QueueLow     = "low"
)

// Job represents a pending or reserved row in the jobs table
type Job struct {
	ID             string     `db:"id" json:"id"`
	Queue          string     `db:"queue" json:"queue"`
	Payload        Payload    `db:"payload" json:"payload"`
	Attempts       int        `db:"attempts" json:"attempts"`
	Exceptions     int        `db:"exceptions" json:"exceptions"`
	MaxAttempts    int        `db:"max_attempts" json:"max_attempts"`
	MaxExceptions  int        `db:"max_exceptions" json:"max_exceptions"`
	TimeoutSeconds int        `db:"timeout_seconds" json:"timeout_seconds"`
	BackoffSeconds int        `db:"backoff_seconds" json:"backoff_seconds"`
	ReservedAt     *time.Time `db:"reserved_at" json:"reserved_at,omitempty"`
	ReservedUntil  *time.Time `db:"reserved_until" json:"reserved_until,omitempty"`
	ReservedBy     *string    `db:"reserved_by" json:"reserved_by,omitempty"`
	AvailableAt    time.Time  `db:"available_at" json:"available_at"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// Policy rebuilds the retry policy stored on the job row.
func (j *Job) Policy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:   j.MaxAttempts,
		MaxExceptions: j.MaxExceptions,
		Timeout:       time.Duration(j.TimeoutSeconds) * time.Second,
		BackoffBase:   time.Duration(j.BackoffSeconds) * time.Second,
	}
}

// Timeout returns the per-attempt deadline, which is also the lease length.
func (j *Job) Timeout() time.Duration {
	return time.Duration(j.TimeoutSeconds) * time.Second
}

// FailedJob is a job that exhausted its retry or exception budget
type FailedJob struct {
	ID        string    `db:"id" json:"id"`
	JobID     string    `db:"job_id" json:"job_id"`
	Queue     string    `db:"queue" json:"queue"`
	Payload   Payload   `db:"payload" json:"payload"`
	Attempts  int       `db:"attempts" json:"attempts"`
	Exception string    `db:"exception" json:"exception"`
	FailedAt  time.Time `db:"failed_at" json:"failed_at"`
}

// Payload is the serialized unit of work: a handler kind plus its arguments
type Payload struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data,omitempty"`
	Tags []string        `json:"tags,omitempty"`
}

// NewPayload marshals data into a payload of the given kind.
func NewPayload(kind string, data any, tags ...string) (Payload, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Payload{}, err
	}
	return Payload{Kind: kind, Data: raw, Tags: tags}, nil
}

// Decode unmarshals the payload arguments into v.
func (p Payload) Decode(v any) error {
	if len(p.Data) == 0 {
		return ErrInvalidPayload
	}
	if err := json.Unmarshal(p.Data, v); err != nil {
		return &PermanentError{Err: err}
	}
	return nil
}
