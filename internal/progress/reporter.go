package progress

import (
	"context"
	"log/slog"

	"github.com/videogen/genqueue/internal/queue"
	"github.com/videogen/genqueue/internal/task"
)

// Reporter relays generation-engine callbacks into queue store transitions.
// It owns no state; besides admission appends and user-triggered removals it
// is the only caller of the store's mutating operations. A refused
// transition means the worker integration is misbehaving, so it is logged
// rather than swallowed.
type Reporter struct {
	store  *queue.Store
	logger *slog.Logger
}

func NewReporter(store *queue.Store, logger *slog.Logger) *Reporter {
	return &Reporter{store: store, logger: logger}
}

// Started marks the head task as processing.
func (r *Reporter) Started(id int64) error {
	if err := r.store.MarkProcessing(id); err != nil {
		r.logger.Error("refused processing transition", "task_id", id, "error", err)
		return err
	}
	r.logger.Info("task processing", "task_id", id)
	return nil
}

// Step records engine progress against the active task.
func (r *Reporter) Step(id int64, progress float64, step, totalSteps int) {
	if err := r.store.UpdateProgress(id, progress, step, totalSteps); err != nil {
		r.logger.Error("refused progress update", "task_id", id, "error", err)
	}
}

// Finished archives the task's terminal outcome and removes it from the
// live ordering. The error is returned so the worker can retry a failed
// archive write; the task stays live and processing until the write lands.
func (r *Reporter) Finished(ctx context.Context, id int64, files []string, genErr error) error {
	status := task.StatusCompleted
	errMsg := ""
	if genErr != nil {
		status = task.StatusFailed
		errMsg = genErr.Error()
	}

	result, err := r.store.Complete(ctx, id, status, files, errMsg)
	if err != nil {
		r.logger.Error("refused completion", "task_id", id, "error", err)
		return err
	}
	r.logger.Info("task finished",
		"task_id", id,
		"status", result.Status,
		"files", len(result.Files),
		"duration_sec", result.DurationSec)
	return nil
}
