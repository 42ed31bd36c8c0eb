package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobWriter is the part of the store the producer needs
type JobWriter interface {
	Insert(ctx context.Context, job *Job) error
}

// WakeupPublisher delivers a best-effort hint that a queue has new work
type WakeupPublisher interface {
	Publish(ctx context.Context, body []byte, contentType string) error
}

// WakeupMessage is the body published after a successful insert
type WakeupMessage struct {
	JobID string `json:"job_id"`
	Queue string `json:"queue"`
}

// Producer submits jobs to the queue store
type Producer struct {
	store     JobWriter
	publisher WakeupPublisher
	events    EventSink
}

// NewProducer creates a producer. publisher may be nil when wake-ups are disabled.
func NewProducer(store JobWriter, publisher WakeupPublisher, events EventSink) *Producer {
	if events == nil {
		events = NopSink{}
	}
	return &Producer{
		store:     store,
		publisher: publisher,
		events:    events,
	}
}

// Submit appends a job and returns its id. Store failures come back as *SubmissionError.
func (p *Producer) Submit(ctx context.Context, queueName string, payload Payload, policy RetryPolicy) (string, error) {
	if queueName == "" {
		return "", &SubmissionError{Queue: queueName, Err: fmt.Errorf("queue name is required")}
	}
	if payload.Kind == "" {
		return "", &SubmissionError{Queue: queueName, Err: fmt.Errorf("%w: kind is required", ErrInvalidPayload)}
	}
	if err := policy.Validate(); err != nil {
		return "", &SubmissionError{Queue: queueName, Err: err}
	}

	job := &Job{
		ID:             uuid.New().String(),
		Queue:          queueName,
		Payload:        payload,
		MaxAttempts:    policy.MaxAttempts,
		MaxExceptions:  policy.MaxExceptions,
		TimeoutSeconds: int(policy.Timeout / time.Second),
		BackoffSeconds: int(policy.BackoffBase / time.Second),
	}

	if err := p.store.Insert(ctx, job); err != nil {
		p.events.Emit(ctx, Event{Kind: EventStoreError, Queue: queueName, JobKind: payload.Kind, Err: err, At: time.Now()})
		return "", &SubmissionError{Queue: queueName, Err: err}
	}

	p.events.Emit(ctx, Event{Kind: EventJobSubmitted, JobID: job.ID, Queue: queueName, JobKind: payload.Kind, At: time.Now()})
	p.wakeup(ctx, job)

	return job.ID, nil
}

// SubmitKind marshals data into a payload of the given kind and submits it.
func (p *Producer) SubmitKind(ctx context.Context, queueName, kind string, data any, policy RetryPolicy, tags ...string) (string, error) {
	payload, err := NewPayload(kind, data, tags...)
	if err != nil {
		return "", &SubmissionError{Queue: queueName, Err: fmt.Errorf("%w: %v", ErrInvalidPayload, err)}
	}
	return p.Submit(ctx, queueName, payload, policy)
}

func (p *Producer) wakeup(ctx context.Context, job *Job) {
	if p.publisher == nil {
		return
	}

	body, err := json.Marshal(WakeupMessage{JobID: job.ID, Queue: job.Queue})
	if err != nil {
		return
	}

	if err := p.publisher.Publish(ctx, body, "application/json"); err != nil {
		p.events.Emit(ctx, Event{Kind: EventWakeupFailed, JobID: job.ID, Queue: job.Queue, Err: err, At: time.Now()})
	}
}
