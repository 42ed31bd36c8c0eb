package queue

import (
	"context"
	"log/slog"
	"time"
)

// EventKind identifies a job lifecycle event
type EventKind string

const (
	EventJobSubmitted      EventKind = "job_submitted"
	EventJobReserved       EventKind = "job_reserved"
	EventJobCompleted      EventKind = "job_completed"
	EventJobRetryScheduled EventKind = "job_retry_scheduled"
	EventJobReleased       EventKind = "job_released"
	EventJobFailed         EventKind = "job_failed"
	EventFailedHookError   EventKind = "failed_hook_error"
	EventLeaseLost         EventKind = "lease_lost"
	EventLeaseExpired      EventKind = "lease_expired"
	EventWakeupFailed      EventKind = "wakeup_failed"
	EventStoreError        EventKind = "store_error"
)

// Event is a structured record of something that happened to a job
type Event struct {
	Kind     EventKind
	JobID    string
	Queue    string
	JobKind  string
	WorkerID string
	Attempts int
	Delay    time.Duration
	Duration time.Duration
	Count    int
	Err      error
	At       time.Time
}

// EventSink receives job lifecycle events
type EventSink interface {
	Emit(ctx context.Context, event Event)
}

// NopSink discards every event
type NopSink struct{}

func (NopSink) Emit(context.Context, Event) {}

// MultiSink fans an event out to several sinks
type MultiSink []EventSink

func (m MultiSink) Emit(ctx context.Context, event Event) {
	for _, sink := range m {
		sink.Emit(ctx, event)
	}
}

// LogSink writes events as slog records
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink that logs through logger
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

var eventMessages = map[EventKind]string{
	EventJobSubmitted:      "Job submitted",
	EventJobReserved:       "Job reserved",
	EventJobCompleted:      "Job completed successfully",
	EventJobRetryScheduled: "Job will be retried",
	EventJobReleased:       "Job released back to queue",
	EventJobFailed:         "Job failed permanently",
	EventFailedHookError:   "Job failure hook returned an error",
	EventLeaseLost:         "Job lease lost",
	EventLeaseExpired:      "Expired job leases released",
	EventWakeupFailed:      "Failed to publish worker wake-up",
	EventStoreError:        "Queue store operation failed",
}

func (s *LogSink) Emit(ctx context.Context, event Event) {
	msg, ok := eventMessages[event.Kind]
	if !ok {
		msg = string(event.Kind)
	}

	attrs := []slog.Attr{slog.String("event", string(event.Kind))}
	if event.JobID != "" {
		attrs = append(attrs, slog.String("job_id", event.JobID))
	}
	if event.Queue != "" {
		attrs = append(attrs, slog.String("queue", event.Queue))
	}
	if event.JobKind != "" {
		attrs = append(attrs, slog.String("job_kind", event.JobKind))
	}
	if event.WorkerID != "" {
		attrs = append(attrs, slog.String("worker_id", event.WorkerID))
	}
	if event.Attempts > 0 {
		attrs = append(attrs, slog.Int("attempts", event.Attempts))
	}
	if event.Delay > 0 {
		attrs = append(attrs, slog.Duration("retry_after", event.Delay))
	}
	if event.Duration > 0 {
		attrs = append(attrs, slog.Duration("duration", event.Duration))
	}
	if event.Count > 0 {
		attrs = append(attrs, slog.Int("count", event.Count))
	}
	if event.Err != nil {
		attrs = append(attrs, slog.String("error", event.Err.Error()))
	}

	s.logger.LogAttrs(ctx, levelFor(event.Kind), msg, attrs...)
}

func levelFor(kind EventKind) slog.Level {
	switch kind {
	case EventJobFailed, EventFailedHookError, EventStoreError:
		return slog.LevelError
	case EventJobRetryScheduled, EventLeaseLost, EventLeaseExpired, EventWakeupFailed:
		return slog.LevelWarn
	case EventJobReserved:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}
