package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/cuongbtq/property-be/internal/queue"
)

const defaultJobTimeout = 60 * time.Second

// processJob runs a reserved job and settles it. Shutdown does not cancel the
// handler; a job cut off by process exit is reclaimed when its lease expires.
func (w *Worker) processJob(ctx context.Context, workerName string, job *queue.Job) {
	jobCtx := context.WithoutCancel(ctx)
	started := time.Now()

	handler, err := w.registry.Lookup(job.Payload.Kind)
	if err == nil {
		err = w.runHandler(jobCtx, handler, job)
	}

	w.settle(jobCtx, workerName, job, handler, err, time.Since(started))
}

// runHandler executes the handler under the job deadline and converts panics into errors
func (w *Worker) runHandler(ctx context.Context, handler Handler, job *queue.Job) error {
	timeout := job.Timeout()
	if timeout <= 0 {
		timeout = defaultJobTimeout
	}

	handlerCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("handler panic: %v\n%s", r, debug.Stack())
			}
		}()
		done <- handler.Handle(handlerCtx, job)
	}()

	select {
	case err := <-done:
		if err != nil && errors.Is(err, context.DeadlineExceeded) && handlerCtx.Err() != nil {
			return &queue.TimeoutError{Timeout: timeout}
		}
		return err
	case <-handlerCtx.Done():
		return &queue.TimeoutError{Timeout: timeout}
	}
}

// settle completes, reschedules or fails the job according to the retry decision
func (w *Worker) settle(ctx context.Context, workerName string, job *queue.Job, handler Handler, cause error, took time.Duration) {
	event := queue.Event{
		JobID:    job.ID,
		Queue:    job.Queue,
		JobKind:  job.Payload.Kind,
		WorkerID: workerName,
		Duration: took,
	}

	if cause == nil {
		if err := w.store.Complete(ctx, job.ID, workerName); err != nil {
			w.storeFailure(ctx, event, err)
			return
		}
		event.Kind = queue.EventJobCompleted
		event.Attempts = job.Attempts + 1
		w.emit(ctx, event)
		return
	}

	decision := queue.Decide(job, cause)
	event.Attempts = decision.Attempts
	event.Err = cause

	if decision.Retry {
		if err := w.store.Release(ctx, job.ID, workerName, decision.Delay, decision.Exception); err != nil {
			w.storeFailure(ctx, event, err)
			return
		}
		event.Kind = queue.EventJobReleased
		if decision.Exception {
			event.Kind = queue.EventJobRetryScheduled
		}
		event.Delay = decision.Delay
		w.emit(ctx, event)
		return
	}

	failed, err := w.store.Fail(ctx, job.ID, workerName, exceptionText(cause, decision.Reason))
	if err != nil {
		w.storeFailure(ctx, event, err)
		return
	}

	event.Kind = queue.EventJobFailed
	event.Err = decision.Reason
	w.emit(ctx, event)

	w.runFailureHook(ctx, workerName, job, handler, decision.Reason, failed)
}

// runFailureHook calls FailureHandler.Failed once per permanent failure. Errors and panics stay contained.
func (w *Worker) runFailureHook(ctx context.Context, workerName string, job *queue.Job, handler Handler, cause error, failed *queue.FailedJob) {
	hook, ok := handler.(FailureHandler)
	if !ok {
		return
	}

	event := queue.Event{
		Kind:     queue.EventFailedHookError,
		JobID:    job.ID,
		Queue:    job.Queue,
		JobKind:  job.Payload.Kind,
		WorkerID: workerName,
		Attempts: failed.Attempts,
	}

	defer func() {
		if r := recover(); r != nil {
			event.Err = fmt.Errorf("failure hook panic: %v", r)
			w.emit(ctx, event)
		}
	}()

	if err := hook.Failed(ctx, job, cause); err != nil {
		event.Err = err
		w.emit(ctx, event)
	}
}

func (w *Worker) storeFailure(ctx context.Context, event queue.Event, err error) {
	event.Err = err
	event.Kind = queue.EventStoreError
	if errors.Is(err, queue.ErrLeaseLost) {
		event.Kind = queue.EventLeaseLost
	}
	w.emit(ctx, event)
}

func (w *Worker) emit(ctx context.Context, event queue.Event) {
	event.At = time.Now()
	w.events.Emit(ctx, event)
}

// exceptionText is stored in failed_jobs. The first line is what reports summarize.
func exceptionText(cause, reason error) string {
	if reason == nil || errors.Is(reason, cause) {
		return cause.Error()
	}
	return reason.Error() + "\n" + cause.Error()
}
