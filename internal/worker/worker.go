package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cuongbtq/property-be/internal/queue"
)

// Store is the part of the queue store the worker runtime drives
type Store interface {
	Reserve(ctx context.Context, queues []string, workerID string) (*queue.Job, error)
	Complete(ctx context.Context, jobID, workerID string) error
	Release(ctx context.Context, jobID, workerID string, delay time.Duration, exception bool) error
	Fail(ctx context.Context, jobID, workerID, exception string) (*queue.FailedJob, error)
	ReleaseExpired(ctx context.Context) (int, error)
}

// Config holds worker configuration
type Config struct {
	Logger       *slog.Logger
	Store        Store
	Registry     *Registry
	Events       queue.EventSink
	Wakeups      WakeupSource // optional
	WorkerID     string
	Queues       []string
	Concurrency  int
	PollInterval time.Duration
	Prefetch     int
}

// Worker polls the queue store and runs registered handlers
type Worker struct {
	logger       *slog.Logger
	store        Store
	registry     *Registry
	events       queue.EventSink
	wakeups      WakeupSource
	workerID     string
	queues       []string
	concurrency  int
	pollInterval time.Duration
	prefetch     int
	wakeChan     chan struct{}
	wg           sync.WaitGroup
	stopChan     chan struct{}
	stopOnce     sync.Once
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) (*Worker, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("worker store is required")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("worker registry is required")
	}
	if len(cfg.Queues) == 0 {
		return nil, fmt.Errorf("at least one queue is required")
	}
	if cfg.Concurrency <= 0 {
		return nil, fmt.Errorf("concurrency must be greater than 0")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 3 * time.Second
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = cfg.Concurrency
	}

	events := cfg.Events
	if events == nil {
		events = queue.NopSink{}
	}

	return &Worker{
		logger:       cfg.Logger,
		store:        cfg.Store,
		registry:     cfg.Registry,
		events:       events,
		wakeups:      cfg.Wakeups,
		workerID:     cfg.WorkerID,
		queues:       cfg.Queues,
		concurrency:  cfg.Concurrency,
		pollInterval: cfg.PollInterval,
		prefetch:     cfg.Prefetch,
		wakeChan:     make(chan struct{}, cfg.Concurrency),
		stopChan:     make(chan struct{}),
	}, nil
}

// Start spawns the pool and, when configured, the wake-up listener. It returns immediately.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Any("queues", w.queues),
		slog.Int("concurrency", w.concurrency),
		slog.Duration("poll_interval", w.pollInterval),
		slog.Any("job_kinds", w.registry.Kinds()),
	)

	if w.wakeups != nil {
		deliveries, err := w.wakeups.Consume(w.workerID, w.prefetch)
		if err != nil {
			// polling still works without wake-ups
			w.logger.Warn("Wake-up consumer unavailable, relying on polling",
				slog.String("error", err.Error()),
			)
		} else {
			w.wg.Add(1)
			go w.listenWakeups(ctx, deliveries)
		}
	}

	w.spawnWorkerPool(ctx)
	return nil
}

// Stop signals every goroutine to exit and waits for in-flight jobs to settle
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		w.logger.Info("Stopping worker...")
		close(w.stopChan)
	})
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}

// SweepExpiredLeases clears expired reservations. It is run by the scheduler.
func (w *Worker) SweepExpiredLeases(ctx context.Context) error {
	n, err := w.store.ReleaseExpired(ctx)
	if err != nil {
		w.events.Emit(ctx, queue.Event{Kind: queue.EventStoreError, WorkerID: w.workerID, Err: err, At: time.Now()})
		return err
	}
	if n > 0 {
		w.events.Emit(ctx, queue.Event{Kind: queue.EventLeaseExpired, WorkerID: w.workerID, Count: n, At: time.Now()})
	}
	return nil
}

// wake nudges one idle goroutine without blocking
func (w *Worker) wake() {
	select {
	case w.wakeChan <- struct{}{}:
	default:
	}
}
