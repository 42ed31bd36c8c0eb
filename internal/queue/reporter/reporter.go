package reporter

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cuongbtq/property-be/internal/queue"
	"github.com/cuongbtq/property-be/internal/queue/storage"
)

// ErrReportingUnavailable is returned when the queue store cannot be read
var ErrReportingUnavailable = errors.New("queue reporting unavailable")

const (
	recentJobsLimit     = 5
	recentFailuresLimit = 3
	performanceSample   = 10
)

// Store is the read side of the queue store used for reporting
type Store interface {
	Totals(ctx context.Context) (*storage.Counts, error)
	QueueCounts(ctx context.Context, queueName string) (*storage.Counts, error)
	RecentJobs(ctx context.Context, queueName string, limit int) ([]queue.Job, error)
	OldestJob(ctx context.Context, queueName string) (*queue.Job, error)
	RecentFailures(ctx context.Context, queueName string, limit int) ([]queue.FailedJob, error)
	RecentReservations(ctx context.Context, queueName string, limit int) ([]storage.Reservation, error)
}

// Summary holds system-wide totals
type Summary struct {
	TotalJobs     int `json:"total_jobs"`
	TotalFailed   int `json:"total_failed"`
	TotalReserved int `json:"total_reserved"`
	TotalPending  int `json:"total_pending"`
}

// QueueHealth is the per-queue part of a health snapshot
type QueueHealth struct {
	Pending int    `json:"pending"`
	Failed  int    `json:"failed"`
	Status  string `json:"status"`
}

// Health is the response of the health endpoint
type Health struct {
	OverallStatus   string                 `json:"overall_status"`
	Summary         Summary                `json:"summary"`
	Queues          map[string]QueueHealth `json:"queues"`
	Recommendations []string               `json:"recommendations"`
}

// RecentJob describes one of the newest jobs in a queue
type RecentJob struct {
	ID         string `json:"id"`
	AgeSeconds int64  `json:"age_seconds"`
	Attempts   int    `json:"attempts"`
}

// RecentFailure describes one of the newest failures in a queue
type RecentFailure struct {
	ID               string `json:"id"`
	Kind             string `json:"kind"`
	AgeMinutes       int64  `json:"age_minutes"`
	ExceptionSummary string `json:"exception_summary"`
}

// PerformanceMetrics measures queueing delay (reserved_at minus created_at)
// over the most recently reserved jobs
type PerformanceMetrics struct {
	AvgTimeToReserveSeconds float64 `json:"avg_time_to_reserve_seconds"`
	JobsAnalyzed            int     `json:"jobs_analyzed"`
}

// OldestPending describes the oldest job still in a queue
type OldestPending struct {
	ID         string    `json:"id"`
	AgeSeconds int64     `json:"age_seconds"`
	Attempts   int       `json:"attempts"`
	CreatedAt  time.Time `json:"created_at"`
}

// Details is only filled in detailed mode
type Details struct {
	RecentJobs         []RecentJob        `json:"recent_jobs"`
	RecentFailures     []RecentFailure    `json:"recent_failures"`
	PerformanceMetrics PerformanceMetrics `json:"performance_metrics"`
	OldestPending      *OldestPending     `json:"oldest_pending"`
}

// QueueStats is the per-queue response of the stats endpoint
type QueueStats struct {
	Pending  int    `json:"pending"`
	Reserved int    `json:"reserved"`
	Failed   int    `json:"failed"`
	Status   string `json:"status"`
	*Details
}

// Config lists the queues covered by each report
type Config struct {
	HealthQueues []string
	StatsQueues  []string
}

// DefaultConfig reports health for emails and default, and stats for every known queue
func DefaultConfig() Config {
	return Config{
		HealthQueues: []string{queue.QueueEmails, queue.QueueDefault},
		StatsQueues:  []string{queue.QueueDefault, queue.QueueEmails, queue.QueueHigh, queue.QueueLow},
	}
}

// Reporter builds health and stats snapshots from the queue store
type Reporter struct {
	store  Store
	cfg    Config
	events queue.EventSink
	now    func() time.Time
}

// NewReporter creates a new reporter. Empty queue lists fall back to DefaultConfig.
func NewReporter(store Store, cfg Config, events queue.EventSink) *Reporter {
	defaults := DefaultConfig()
	if len(cfg.HealthQueues) == 0 {
		cfg.HealthQueues = defaults.HealthQueues
	}
	if len(cfg.StatsQueues) == 0 {
		cfg.StatsQueues = defaults.StatsQueues
	}
	if events == nil {
		events = queue.NopSink{}
	}
	return &Reporter{store: store, cfg: cfg, events: events, now: time.Now}
}

// Health returns the overall health snapshot
func (r *Reporter) Health(ctx context.Context) (*Health, error) {
	totals, err := r.store.Totals(ctx)
	if err != nil {
		return nil, r.unavailable(ctx, "", err)
	}

	health := &Health{
		OverallStatus: OverallStatus(totals.Jobs, totals.Failed),
		Summary: Summary{
			TotalJobs:     totals.Jobs,
			TotalFailed:   totals.Failed,
			TotalReserved: totals.Reserved,
			TotalPending:  totals.Jobs - totals.Reserved,
		},
		Queues:          make(map[string]QueueHealth, len(r.cfg.HealthQueues)),
		Recommendations: Recommendations(totals.Jobs, totals.Failed, totals.Reserved),
	}

	for _, name := range r.cfg.HealthQueues {
		counts, err := r.store.QueueCounts(ctx, name)
		if err != nil {
			return nil, r.unavailable(ctx, name, err)
		}
		health.Queues[name] = QueueHealth{
			Pending: counts.Jobs,
			Failed:  counts.Failed,
			Status:  QueueStatus(counts.Jobs, counts.Failed),
		}
	}

	return health, nil
}

// Stats returns per-queue statistics keyed by queue name. "all" or "" expands to the configured stats queues.
func (r *Reporter) Stats(ctx context.Context, queueName string, detailed bool) (map[string]*QueueStats, error) {
	names := []string{queueName}
	if queueName == "" || queueName == "all" {
		names = r.cfg.StatsQueues
	}

	stats := make(map[string]*QueueStats, len(names))
	for _, name := range names {
		s, err := r.QueueStats(ctx, name, detailed)
		if err != nil {
			return nil, err
		}
		stats[name] = s
	}

	return stats, nil
}

// QueueStats returns statistics for a single queue
func (r *Reporter) QueueStats(ctx context.Context, queueName string, detailed bool) (*QueueStats, error) {
	counts, err := r.store.QueueCounts(ctx, queueName)
	if err != nil {
		return nil, r.unavailable(ctx, queueName, err)
	}

	stats := &QueueStats{
		Pending:  counts.Jobs,
		Reserved: counts.Reserved,
		Failed:   counts.Failed,
		Status:   QueueStatus(counts.Jobs, counts.Failed),
	}

	if detailed {
		details, err := r.details(ctx, queueName)
		if err != nil {
			return nil, r.unavailable(ctx, queueName, err)
		}
		stats.Details = details
	}

	return stats, nil
}

func (r *Reporter) details(ctx context.Context, queueName string) (*Details, error) {
	now := r.now()

	jobs, err := r.store.RecentJobs(ctx, queueName, recentJobsLimit)
	if err != nil {
		return nil, err
	}
	failures, err := r.store.RecentFailures(ctx, queueName, recentFailuresLimit)
	if err != nil {
		return nil, err
	}
	reservations, err := r.store.RecentReservations(ctx, queueName, performanceSample)
	if err != nil {
		return nil, err
	}

	details := &Details{
		RecentJobs:         make([]RecentJob, 0, len(jobs)),
		RecentFailures:     make([]RecentFailure, 0, len(failures)),
		PerformanceMetrics: performance(reservations),
	}

	for _, job := range jobs {
		details.RecentJobs = append(details.RecentJobs, RecentJob{
			ID:         job.ID,
			AgeSeconds: int64(now.Sub(job.CreatedAt).Seconds()),
			Attempts:   job.Attempts,
		})
	}

	for _, f := range failures {
		details.RecentFailures = append(details.RecentFailures, RecentFailure{
			ID:               f.ID,
			Kind:             f.Payload.Kind,
			AgeMinutes:       int64(now.Sub(f.FailedAt).Minutes()),
			ExceptionSummary: queue.SummarizeException(f.Exception),
		})
	}

	oldest, err := r.store.OldestJob(ctx, queueName)
	switch {
	case errors.Is(err, queue.ErrJobNotFound):
	case err != nil:
		return nil, err
	default:
		details.OldestPending = &OldestPending{
			ID:         oldest.ID,
			AgeSeconds: int64(now.Sub(oldest.CreatedAt).Seconds()),
			Attempts:   oldest.Attempts,
			CreatedAt:  oldest.CreatedAt,
		}
	}

	return details, nil
}

func performance(reservations []storage.Reservation) PerformanceMetrics {
	if len(reservations) == 0 {
		return PerformanceMetrics{}
	}

	var total float64
	for _, r := range reservations {
		total += r.ReservedAt.Sub(r.CreatedAt).Seconds()
	}

	avg := total / float64(len(reservations))
	return PerformanceMetrics{
		AvgTimeToReserveSeconds: math.Round(avg*100) / 100,
		JobsAnalyzed:            len(reservations),
	}
}

func (r *Reporter) unavailable(ctx context.Context, queueName string, err error) error {
	r.events.Emit(ctx, queue.Event{Kind: queue.EventStoreError, Queue: queueName, Err: err, At: r.now()})
	return fmt.Errorf("%w: %v", ErrReportingUnavailable, err)
}
