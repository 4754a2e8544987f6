package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/videogen/genqueue/internal/task"
)

var (
	ErrNotFound               = errors.New("task not found")
	ErrCannotRemoveProcessing = errors.New("cannot remove task that is currently processing")
	ErrNotHead                = errors.New("task is not at the head of the queue")
	ErrAlreadyProcessing      = errors.New("another task is already processing")
	ErrNotProcessing          = errors.New("task is not processing")
)

// Archiver receives terminal task results. Entries are written once and
// looked up by task id; the store never updates an archived entry.
type Archiver interface {
	Put(ctx context.Context, r *task.Result) error
	Get(ctx context.Context, id int64) (*task.Result, error)
}

// Store owns the live task ordering. All mutation and all reads go through
// one mutex so that no caller can observe a half-applied transition, and so
// a position computed from a snapshot cannot race a concurrent removal.
type Store struct {
	mu         sync.Mutex
	tasks      []*task.Task
	nextID     int64
	processing int64 // id of the processing task, 0 when idle

	archive Archiver
	notify  chan struct{}
}

func New(archive Archiver) *Store {
	return &Store{
		nextID:  1,
		archive: archive,
		notify:  make(chan struct{}, 1),
	}
}

// Notify returns a channel that receives a signal after each append. The
// worker uses it to wake up without polling; signals are coalesced.
func (s *Store) Notify() <-chan struct{} {
	return s.notify
}

// Append stamps the next task id and places the task at the tail. Ids are
// assigned inside the critical section, so concurrent submissions get
// distinct, gap-free, monotonic ids. Returns the id and 1-based position.
func (s *Store) Append(t *task.Task) (int64, int) {
	s.mu.Lock()
	t.ID = s.nextID
	s.nextID++
	t.Status = task.StatusQueued
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	s.tasks = append(s.tasks, t)
	pos := len(s.tasks)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
	return t.ID, pos
}

// PeekHead returns a copy of the task at position 1 without removing it.
func (s *Store) PeekHead() (task.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.tasks) == 0 {
		return task.Task{}, false
	}
	return *s.tasks[0], true
}

// MarkProcessing transitions the head task from queued to processing.
func (s *Store) MarkProcessing(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.processing != 0 {
		return fmt.Errorf("%w: task %d", ErrAlreadyProcessing, s.processing)
	}
	idx := s.index(id)
	if idx < 0 {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if idx != 0 {
		return fmt.Errorf("%w: id %d at position %d", ErrNotHead, id, idx+1)
	}

	t := s.tasks[0]
	t.Status = task.StatusProcessing
	t.StartedAt = time.Now()
	t.Progress = 0
	t.CurrentStep = 0
	t.TotalSteps = t.Params.Steps
	s.processing = id
	return nil
}

// UpdateProgress records worker progress against the processing task.
func (s *Store) UpdateProgress(id int64, progress float64, step, totalSteps int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.index(id)
	if idx < 0 {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	t := s.tasks[idx]
	if t.Status != task.StatusProcessing {
		return fmt.Errorf("%w: id %d is %s", ErrNotProcessing, id, t.Status)
	}

	t.Progress = min(max(progress, 0), 100)
	t.CurrentStep = step
	if totalSteps > 0 {
		t.TotalSteps = totalSteps
	}
	return nil
}

// Complete removes a live task and writes its terminal result to the
// archive. The archive write happens under the lock, before the task leaves
// the ordering, so a concurrent status read finds the task in exactly one of
// the two places. If the archive write fails the task stays live.
func (s *Store) Complete(ctx context.Context, id int64, status task.Status, files []string, errMsg string) (*task.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.index(id)
	if idx < 0 {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	t := s.tasks[idx]

	now := time.Now()
	r := &task.Result{
		TaskID:     id,
		Status:     status,
		Prompt:     t.Params.Prompt,
		Files:      files,
		Error:      errMsg,
		FinishedAt: now,
	}
	if !t.StartedAt.IsZero() {
		r.DurationSec = now.Sub(t.StartedAt).Seconds()
	}

	if err := s.archive.Put(ctx, r); err != nil {
		return nil, fmt.Errorf("archive result: %w", err)
	}

	s.tasks = append(s.tasks[:idx], s.tasks[idx+1:]...)
	if s.processing == id {
		s.processing = 0
	}
	return r, nil
}

// Remove takes a queued task out of the ordering, closing the gap. The
// processing task is refused; it can only leave by completing or failing.
func (s *Store) Remove(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.index(id)
	if idx < 0 {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if id == s.processing {
		return fmt.Errorf("%w: id %d", ErrCannotRemoveProcessing, id)
	}

	s.tasks = append(s.tasks[:idx], s.tasks[idx+1:]...)
	return nil
}

// Clear drops all queued tasks and returns how many were removed. With
// keepProcessing the active task survives at position 1.
func (s *Store) Clear(keepProcessing bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if keepProcessing && s.processing != 0 {
		removed := len(s.tasks) - 1
		s.tasks = s.tasks[:1]
		return removed
	}

	removed := len(s.tasks)
	s.tasks = nil
	s.processing = 0
	return removed
}

// Snapshot returns a consistent copy of the live ordering with derived
// positions. The copy is taken in one critical section; it can never show a
// task twice or miss one mid-mutation.
func (s *Store) Snapshot() []task.View {
	s.mu.Lock()
	defer s.mu.Unlock()

	views := make([]task.View, len(s.tasks))
	for i, t := range s.tasks {
		views[i] = task.View{
			ID:          t.ID,
			Prompt:      t.Params.Prompt,
			Status:      t.Status,
			Length:      t.Params.VideoLength,
			Steps:       t.Params.Steps,
			Position:    i + 1,
			Progress:    t.Progress,
			CurrentStep: t.CurrentStep,
			TotalSteps:  t.TotalSteps,
			CreatedAt:   t.CreatedAt,
			StartedAt:   t.StartedAt,
		}
	}
	return views
}

// ProcessingID reports the id of the active task, or 0 when the worker is
// idle.
func (s *Store) ProcessingID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processing
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// index returns the position of id in the live ordering, or -1. Callers
// hold s.mu.
func (s *Store) index(id int64) int {
	for i, t := range s.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}
