package query

import (
	"context"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/videogen/genqueue/internal/archive"
	"github.com/videogen/genqueue/internal/queue"
	"github.com/videogen/genqueue/internal/task"
)

func setupService(t *testing.T) (*Service, *queue.Store) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	arch, err := archive.New(mr.Addr(), "", 0)
	require.NoError(t, err)

	store := queue.New(arch)
	return NewService(store, arch), store
}

func submit(store *queue.Store, prompt string) int64 {
	id, _ := store.Append(&task.Task{
		Params:      task.Params{Prompt: prompt, VideoLength: 81, Steps: 30},
		RepeatCount: 1,
	})
	return id
}

func TestStatusOf_Lifecycle(t *testing.T) {
	s, store := setupService(t)
	ctx := context.Background()

	a := submit(store, "cat")
	b := submit(store, "dog")

	require.NoError(t, store.MarkProcessing(a))

	stA, err := s.StatusOf(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, task.StatusProcessing, stA.Status)
	assert.Equal(t, 1, stA.Position)

	stB, err := s.StatusOf(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, task.StatusQueued, stB.Status)
	assert.Equal(t, 2, stB.Position)

	_, err = store.Complete(ctx, a, task.StatusCompleted, []string{"out.mp4"}, "")
	require.NoError(t, err)

	// B moved to the head; A now resolves from the archive.
	stB, err = s.StatusOf(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, 1, stB.Position)

	stA, err = s.StatusOf(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, stA.Status)
	assert.Equal(t, 100.0, stA.Progress)
	assert.Equal(t, []string{"out.mp4"}, stA.Files)
	assert.Zero(t, stA.Position)
}

func TestStatusOf_FailedArchived(t *testing.T) {
	s, store := setupService(t)
	ctx := context.Background()

	a := submit(store, "cat")
	require.NoError(t, store.MarkProcessing(a))
	require.NoError(t, store.UpdateProgress(a, 40, 12, 30))

	_, err := store.Complete(ctx, a, task.StatusFailed, nil, "engine crashed")
	require.NoError(t, err)

	// A task that died at 40% must not resurface claiming full progress.
	st, err := s.StatusOf(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, task.StatusFailed, st.Status)
	assert.Zero(t, st.Progress)
	assert.Equal(t, "engine crashed", st.Error)
}

func TestStatusOf_NotFound(t *testing.T) {
	s, _ := setupService(t)

	_, err := s.StatusOf(context.Background(), 404)
	assert.ErrorIs(t, err, queue.ErrNotFound)
}

func TestStatusOf_ETA(t *testing.T) {
	s, store := setupService(t)

	a := submit(store, "cat")
	require.NoError(t, store.MarkProcessing(a))

	st, err := s.StatusOf(context.Background(), a)
	require.NoError(t, err)
	assert.Nil(t, st.ETASeconds, "no ETA before any progress")

	require.NoError(t, store.UpdateProgress(a, 50, 15, 30))

	st, err = s.StatusOf(context.Background(), a)
	require.NoError(t, err)
	require.NotNil(t, st.ETASeconds)
	assert.GreaterOrEqual(t, *st.ETASeconds, 0.0)
}

func TestQueueView(t *testing.T) {
	s, store := setupService(t)

	view := s.QueueView()
	assert.Zero(t, view.TotalTasks)
	assert.Nil(t, view.CurrentTaskID)
	assert.False(t, view.IsProcessing)

	a := submit(store, "cat")
	submit(store, "dog")

	view = s.QueueView()
	assert.Equal(t, 2, view.TotalTasks)
	require.NotNil(t, view.CurrentTaskID)
	assert.Equal(t, a, *view.CurrentTaskID)
	assert.False(t, view.IsProcessing, "head is still queued")

	require.NoError(t, store.MarkProcessing(a))
	view = s.QueueView()
	assert.True(t, view.IsProcessing)
	assert.Equal(t, 1, view.Tasks[0].Position)
	assert.Equal(t, 2, view.Tasks[1].Position)
}

func TestQueueView_TruncatesPrompt(t *testing.T) {
	s, store := setupService(t)

	long := strings.Repeat("я", 150)
	submit(store, long)

	view := s.QueueView()
	require.Len(t, view.Tasks, 1)
	assert.Equal(t, 100, len([]rune(view.Tasks[0].Prompt)))

	// The stored task keeps the full prompt.
	head, _ := store.PeekHead()
	assert.Equal(t, long, head.Params.Prompt)
}
