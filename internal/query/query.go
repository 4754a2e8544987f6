package query

import (
	"context"
	"time"

	"github.com/videogen/genqueue/internal/queue"
	"github.com/videogen/genqueue/internal/task"
)

// promptDisplayLimit bounds prompt text in listings; display only, the
// stored task keeps the full prompt.
const promptDisplayLimit = 100

// Service computes read-side views over a store snapshot plus the completed
// archive. It is stateless.
type Service struct {
	store   *queue.Store
	archive queue.Archiver
}

func NewService(store *queue.Store, archive queue.Archiver) *Service {
	return &Service{store: store, archive: archive}
}

// Status describes one task to a caller, whether live or archived.
type Status struct {
	TaskID      int64       `json:"task_id"`
	Status      task.Status `json:"status"`
	Progress    float64     `json:"progress"`
	CurrentStep int         `json:"current_step"`
	TotalSteps  int         `json:"total_steps"`
	Position    int         `json:"position,omitempty"`
	ETASeconds  *float64    `json:"eta_seconds,omitempty"`
	Files       []string    `json:"files,omitempty"`
	DurationSec float64     `json:"generation_time_seconds,omitempty"`
	Error       string      `json:"error,omitempty"`
}

// View is the aggregate queue listing.
type View struct {
	TotalTasks    int         `json:"total_tasks"`
	CurrentTaskID *int64      `json:"current_task_id"`
	IsProcessing  bool        `json:"is_processing"`
	Tasks         []task.View `json:"tasks"`
}

// StatusOf resolves a task id against the live snapshot first, then the
// archive. Unknown ids fail with queue.ErrNotFound.
func (s *Service) StatusOf(ctx context.Context, id int64) (*Status, error) {
	for _, v := range s.store.Snapshot() {
		if v.ID != id {
			continue
		}
		st := &Status{
			TaskID:      v.ID,
			Status:      v.Status,
			Progress:    v.Progress,
			CurrentStep: v.CurrentStep,
			TotalSteps:  v.TotalSteps,
			Position:    v.Position,
		}
		if v.Status == task.StatusProcessing && v.Progress > 0 {
			elapsed := time.Since(v.StartedAt).Seconds()
			eta := elapsed * (100 - v.Progress) / v.Progress
			st.ETASeconds = &eta
		}
		return st, nil
	}

	r, err := s.archive.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	st := &Status{
		TaskID:      r.TaskID,
		Status:      r.Status,
		Files:       r.Files,
		DurationSec: r.DurationSec,
		Error:       r.Error,
	}
	// The archive keeps no progress figure; 100 is only true of a task that
	// ran to completion, so a failed one reports none.
	if r.Status == task.StatusCompleted {
		st.Progress = 100
	}
	return st, nil
}

// QueueView returns the full ordered listing with truncated prompts.
func (s *Service) QueueView() *View {
	snap := s.store.Snapshot()

	view := &View{
		TotalTasks: len(snap),
		Tasks:      snap,
	}
	for i := range view.Tasks {
		view.Tasks[i].Prompt = truncate(view.Tasks[i].Prompt, promptDisplayLimit)
	}
	if len(snap) > 0 {
		id := snap[0].ID
		view.CurrentTaskID = &id
		view.IsProcessing = snap[0].Status == task.StatusProcessing
	}
	return view
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
