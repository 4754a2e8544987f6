package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/videogen/genqueue/internal/engine"
	"github.com/videogen/genqueue/internal/progress"
	"github.com/videogen/genqueue/internal/queue"
	"github.com/videogen/genqueue/internal/task"
)

const (
	pollInterval          = 2 * time.Second
	finishRetryInterval   = time.Second
	finishAttemptDeadline = 5 * time.Second
)

// Worker is the single serial consumer of the queue. It drains the head one
// task at a time; there is never more than one generation in flight.
type Worker struct {
	store    *queue.Store
	reporter *progress.Reporter
	gen      engine.Generator
	logger   *slog.Logger
	wg       sync.WaitGroup
}

func New(store *queue.Store, reporter *progress.Reporter, gen engine.Generator, logger *slog.Logger) *Worker {
	return &Worker{
		store:    store,
		reporter: reporter,
		gen:      gen,
		logger:   logger,
	}
}

func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
	w.logger.Info("worker started")
}

// Stop blocks until the in-flight task, if any, has been reported finished.
func (w *Worker) Stop() {
	w.wg.Wait()
	w.logger.Info("worker stopped")
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		w.drain(ctx)
		select {
		case <-ctx.Done():
			return
		case <-w.store.Notify():
		case <-ticker.C:
		}
	}
}

func (w *Worker) drain(ctx context.Context) {
	for ctx.Err() == nil {
		head, ok := w.store.PeekHead()
		if !ok {
			return
		}
		if !w.process(ctx, head) {
			// A refused transition means the queue changed under us or a
			// task is stuck mid-completion; wait for the next signal
			// instead of re-checking the head immediately.
			return
		}
	}
}

// process runs one task through to its terminal state. It reports false when
// the processing transition was refused, in which case drain must back off to
// the notify wait.
func (w *Worker) process(ctx context.Context, t task.Task) bool {
	if err := w.reporter.Started(t.ID); err != nil {
		return false
	}

	files, err := w.gen.Generate(ctx, t, func(p float64, step, total int) {
		w.reporter.Step(t.ID, p, step, total)
	})
	if err != nil {
		w.logger.Error("generation failed", "task_id", t.ID, "error", err)
	}

	w.finish(ctx, t.ID, files, err)
	return true
}

// finish archives the outcome, retrying until the write lands. The task must
// not be left live and processing, or the queue stays wedged behind it, so an
// archive outage only stops the retries at shutdown.
func (w *Worker) finish(ctx context.Context, id int64, files []string, genErr error) {
	for {
		// The outcome must reach the archive even when the run context was
		// cancelled mid-generation.
		attemptCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finishAttemptDeadline)
		err := w.reporter.Finished(attemptCtx, id, files, genErr)
		cancel()
		if err == nil || errors.Is(err, queue.ErrNotFound) {
			return
		}

		select {
		case <-ctx.Done():
			w.logger.Error("abandoning completion on shutdown", "task_id", id, "error", err)
			return
		case <-time.After(finishRetryInterval):
		}
	}
}
