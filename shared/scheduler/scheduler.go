package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// TaskFunc is the function signature for scheduled tasks
type TaskFunc func(ctx context.Context) error

// Scheduler runs periodic maintenance tasks on top of robfig/cron.
// A task that is still running when its next tick fires is skipped for that tick.
type Scheduler struct {
	cron        *cron.Cron
	logger      *slog.Logger
	taskTimeout time.Duration
	tasks       map[string]cron.EntryID
	mu          sync.Mutex
	running     bool
}

// New creates a scheduler. Each task run is bounded by taskTimeout.
func New(logger *slog.Logger, taskTimeout time.Duration) *Scheduler {
	c := cron.New(
		cron.WithSeconds(),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	if taskTimeout <= 0 {
		taskTimeout = time.Minute
	}

	return &Scheduler{
		cron:        c,
		logger:      logger,
		taskTimeout: taskTimeout,
		tasks:       make(map[string]cron.EntryID),
	}
}

// AddIntervalTask registers a task that runs every interval, replacing any task with the same name
func (s *Scheduler) AddIntervalTask(name string, interval time.Duration, task TaskFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, ok := s.tasks[name]; ok {
		s.cron.Remove(entryID)
		delete(s.tasks, name)
	}

	entryID, err := s.cron.AddFunc("@every "+interval.String(), func() {
		s.runTask(name, task)
	})
	if err != nil {
		return err
	}

	s.tasks[name] = entryID
	s.logger.Info("Scheduled task registered",
		slog.String("task", name),
		slog.Duration("interval", interval),
	)

	return nil
}

// Start begins running registered tasks
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("Scheduler started", slog.Int("tasks", len(s.tasks)))
}

// Stop waits for running tasks to finish or for ctx to expire
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
		s.logger.Info("Scheduler stopped")
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out")
	}

	s.running = false
}

// Tasks returns the names of registered tasks
func (s *Scheduler) Tasks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.tasks))
	for name := range s.tasks {
		names = append(names, name)
	}
	return names
}

func (s *Scheduler) runTask(name string, task TaskFunc) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), s.taskTimeout)
	defer cancel()

	if err := task(ctx); err != nil {
		s.logger.Error("Scheduled task failed",
			slog.String("task", name),
			slog.String("error", err.Error()),
			slog.Duration("duration", time.Since(start)),
		)
		return
	}

	s.logger.Debug("Scheduled task completed",
		slog.String("task", name),
		slog.Duration("duration", time.Since(start)),
	)
}
