package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/videogen/genqueue/internal/task"
)

type memArchive struct {
	mu      sync.Mutex
	results map[int64]*task.Result
}

func newMemArchive() *memArchive {
	return &memArchive{results: make(map[int64]*task.Result)}
}

func (a *memArchive) Put(ctx context.Context, r *task.Result) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.results[r.TaskID] = r
	return nil
}

func (a *memArchive) Get(ctx context.Context, id int64) (*task.Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, ok := a.results[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return r, nil
}

func newTask(prompt string) *task.Task {
	return &task.Task{
		Params:      task.Params{Prompt: prompt, VideoLength: 81, Steps: 30},
		RepeatCount: 1,
	}
}

func TestStore_AppendAssignsMonotonicIDs(t *testing.T) {
	s := New(newMemArchive())

	for i := 1; i <= 5; i++ {
		id, pos := s.Append(newTask("p"))
		assert.Equal(t, int64(i), id)
		assert.Equal(t, i, pos)
	}
	assert.Equal(t, 5, s.Len())
}

func TestStore_ConcurrentAppendIDs(t *testing.T) {
	s := New(newMemArchive())

	const n = 100
	ids := make(chan int64, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, _ := s.Append(newTask("p"))
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool)
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	// Gap-free: exactly ids 1..n were handed out.
	for i := int64(1); i <= n; i++ {
		assert.True(t, seen[i], "missing id %d", i)
	}
}

func TestStore_MarkProcessing(t *testing.T) {
	s := New(newMemArchive())

	a, _ := s.Append(newTask("a"))
	b, _ := s.Append(newTask("b"))

	require.ErrorIs(t, s.MarkProcessing(b), ErrNotHead)
	require.ErrorIs(t, s.MarkProcessing(99), ErrNotFound)

	require.NoError(t, s.MarkProcessing(a))
	assert.Equal(t, a, s.ProcessingID())

	require.ErrorIs(t, s.MarkProcessing(a), ErrAlreadyProcessing)

	snap := s.Snapshot()
	assert.Equal(t, task.StatusProcessing, snap[0].Status)
	assert.Equal(t, 1, snap[0].Position)
}

func TestStore_UpdateProgress(t *testing.T) {
	s := New(newMemArchive())

	a, _ := s.Append(newTask("a"))

	require.ErrorIs(t, s.UpdateProgress(a, 10, 3, 30), ErrNotProcessing)
	require.ErrorIs(t, s.UpdateProgress(99, 10, 3, 30), ErrNotFound)

	require.NoError(t, s.MarkProcessing(a))
	require.NoError(t, s.UpdateProgress(a, 50, 15, 30))

	snap := s.Snapshot()
	assert.Equal(t, 50.0, snap[0].Progress)
	assert.Equal(t, 15, snap[0].CurrentStep)
	assert.Equal(t, 30, snap[0].TotalSteps)

	// Out-of-range progress is clamped.
	require.NoError(t, s.UpdateProgress(a, 150, 31, 30))
	assert.Equal(t, 100.0, s.Snapshot()[0].Progress)
}

func TestStore_CompleteArchives(t *testing.T) {
	s := New(newMemArchive())
	ctx := context.Background()

	a, _ := s.Append(newTask("a"))
	b, _ := s.Append(newTask("b"))
	require.NoError(t, s.MarkProcessing(a))

	r, err := s.Complete(ctx, a, task.StatusCompleted, []string{"out.mp4"}, "")
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, r.Status)
	assert.Equal(t, []string{"out.mp4"}, r.Files)

	assert.Equal(t, 1, s.Len())
	assert.Equal(t, int64(0), s.ProcessingID())

	snap := s.Snapshot()
	assert.Equal(t, b, snap[0].ID)
	assert.Equal(t, 1, snap[0].Position)

	archived, err := s.archive.Get(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, a, archived.TaskID)

	_, err = s.Complete(ctx, a, task.StatusCompleted, nil, "")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStore_RemoveShiftsPositions(t *testing.T) {
	s := New(newMemArchive())

	var ids []int64
	for i := 0; i < 5; i++ {
		id, _ := s.Append(newTask("p"))
		ids = append(ids, id)
	}

	require.NoError(t, s.Remove(ids[2]))

	snap := s.Snapshot()
	require.Len(t, snap, 4)
	want := []int64{ids[0], ids[1], ids[3], ids[4]}
	for i, v := range snap {
		assert.Equal(t, want[i], v.ID)
		assert.Equal(t, i+1, v.Position)
	}

	require.ErrorIs(t, s.Remove(ids[2]), ErrNotFound)
}

func TestStore_RemoveProcessingRefused(t *testing.T) {
	s := New(newMemArchive())

	a, _ := s.Append(newTask("a"))
	require.NoError(t, s.MarkProcessing(a))

	require.ErrorIs(t, s.Remove(a), ErrCannotRemoveProcessing)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, task.StatusProcessing, s.Snapshot()[0].Status)
}

func TestStore_ClearKeepsProcessing(t *testing.T) {
	s := New(newMemArchive())

	a, _ := s.Append(newTask("a"))
	for i := 0; i < 4; i++ {
		s.Append(newTask("p"))
	}
	require.NoError(t, s.MarkProcessing(a))

	removed := s.Clear(true)
	assert.Equal(t, 4, removed)
	require.Equal(t, 1, s.Len())
	assert.Equal(t, a, s.Snapshot()[0].ID)
}

func TestStore_ClearAll(t *testing.T) {
	s := New(newMemArchive())

	a, _ := s.Append(newTask("a"))
	s.Append(newTask("b"))
	require.NoError(t, s.MarkProcessing(a))

	removed := s.Clear(false)
	assert.Equal(t, 2, removed)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, int64(0), s.ProcessingID())
}

func TestStore_ClearEmptyQueue(t *testing.T) {
	s := New(newMemArchive())
	assert.Equal(t, 0, s.Clear(true))
}

func TestStore_SnapshotIsIsolated(t *testing.T) {
	s := New(newMemArchive())

	a, _ := s.Append(newTask("a"))
	s.Append(newTask("b"))

	snap := s.Snapshot()
	require.NoError(t, s.Remove(a))

	// The earlier snapshot still shows both tasks.
	assert.Len(t, snap, 2)
	assert.Len(t, s.Snapshot(), 1)
}

func TestStore_PeekHead(t *testing.T) {
	s := New(newMemArchive())

	_, ok := s.PeekHead()
	assert.False(t, ok)

	a, _ := s.Append(newTask("first"))
	s.Append(newTask("second"))

	head, ok := s.PeekHead()
	require.True(t, ok)
	assert.Equal(t, a, head.ID)
	assert.Equal(t, "first", head.Params.Prompt)
}
