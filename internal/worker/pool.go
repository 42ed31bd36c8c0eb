package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/property-be/internal/queue"
)

// spawnWorkerPool spawns N worker goroutines based on concurrency configuration
func (w *Worker) spawnWorkerPool(ctx context.Context) {
	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx, i)
	}

	w.logger.Info("Worker pool spawned successfully",
		slog.Int("worker_count", w.concurrency),
	)
}

// workerLoop reserves and processes jobs until stopped. It only sleeps when the queues are empty.
func (w *Worker) workerLoop(ctx context.Context, workerNum int) {
	defer w.wg.Done()

	workerName := fmt.Sprintf("%s-%d", w.workerID, workerNum)
	w.logger.Debug("Worker goroutine started",
		slog.String("worker_name", workerName),
	)

	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		default:
		}

		job, err := w.store.Reserve(ctx, w.queues, workerName)
		switch {
		case err == nil:
			w.events.Emit(ctx, queue.Event{
				Kind:     queue.EventJobReserved,
				JobID:    job.ID,
				Queue:    job.Queue,
				JobKind:  job.Payload.Kind,
				WorkerID: workerName,
				Attempts: job.Attempts,
				At:       time.Now(),
			})
			w.processJob(ctx, workerName, job)
			continue

		case errors.Is(err, queue.ErrNoJob):

		case ctx.Err() != nil:
			return

		default:
			w.events.Emit(ctx, queue.Event{Kind: queue.EventStoreError, WorkerID: workerName, Err: err, At: time.Now()})
		}

		if !w.idle(ctx) {
			return
		}
	}
}

// idle waits for the poll interval or a wake-up. It returns false when the worker must exit.
func (w *Worker) idle(ctx context.Context) bool {
	timer := time.NewTimer(w.pollInterval)
	defer timer.Stop()

	select {
	case <-w.stopChan:
		return false
	case <-ctx.Done():
		return false
	case <-w.wakeChan:
		return true
	case <-timer.C:
		return true
	}
}
