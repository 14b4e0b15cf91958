package todostore

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hochfrequenz/twodo/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_AddAndGet(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	todo := domain.NewTodo("Write docs", "Document the CLI", domain.TypeText, domain.PriorityHigh, "")
	require.NoError(t, store.Add(ctx, todo))

	got, err := store.Get(ctx, todo.ID)
	require.NoError(t, err)
	assert.Equal(t, "Write docs", got.Title)
	assert.Equal(t, domain.TypeText, got.Type)
	assert.Equal(t, domain.PriorityHigh, got.Priority)
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.Empty(t, got.ParentID)
	assert.Empty(t, got.SubTaskIDs)
}

func TestStore_GetMissing(t *testing.T) {
	store := newStore(t)

	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ListFilters(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	todos := []*domain.Todo{
		domain.NewTodo("a", "", domain.TypeCode, domain.PriorityHigh, ""),
		domain.NewTodo("b", "", domain.TypeText, domain.PriorityLow, ""),
		domain.NewTodo("c", "", domain.TypeCode, domain.PriorityLow, ""),
	}
	for _, td := range todos {
		require.NoError(t, store.Add(ctx, td))
	}
	require.NoError(t, store.UpdateStatus(ctx, todos[2].ID, domain.StatusCompleted, StatusUpdate{}))

	all, err := store.List(ctx, ListOptions{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	code, err := store.List(ctx, ListOptions{Type: domain.TypeCode})
	require.NoError(t, err)
	assert.Len(t, code, 2)

	low, err := store.List(ctx, ListOptions{Priority: domain.PriorityLow})
	require.NoError(t, err)
	assert.Len(t, low, 2)

	pending, err := store.ListPending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestStore_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	todo := domain.NewTodo("a", "", domain.TypeGeneral, domain.PriorityMedium, "")
	require.NoError(t, store.Add(ctx, todo))

	require.NoError(t, store.UpdateStatus(ctx, todo.ID, domain.StatusCompleted,
		StatusUpdate{Result: "done", AssignedModel: "gpt-4o-mini"}))

	got, err := store.Get(ctx, todo.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	assert.Equal(t, "done", got.Result)
	assert.Equal(t, "gpt-4o-mini", got.AssignedModel)

	// empty fields keep the stored values
	require.NoError(t, store.UpdateStatus(ctx, todo.ID, domain.StatusPending, StatusUpdate{}))
	got, err = store.Get(ctx, todo.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.Equal(t, "done", got.Result)
}

func TestStore_UpdateStatusUnknownIDIsNoop(t *testing.T) {
	store := newStore(t)
	assert.NoError(t, store.UpdateStatus(context.Background(), "missing", domain.StatusFailed, StatusUpdate{}))
}

func TestStore_ConcurrentUpdatesDoNotClobber(t *testing.T) {
	ctx := context.Background()
	store, err := New(filepath.Join(t.TempDir(), "todos.db"))
	require.NoError(t, err)
	defer store.Close()

	var ids []string
	for i := 0; i < 20; i++ {
		td := domain.NewTodo(fmt.Sprintf("todo %d", i), "", domain.TypeGeneral, domain.PriorityMedium, "")
		require.NoError(t, store.Add(ctx, td))
		ids = append(ids, td.ID)
	}

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			assert.NoError(t, store.UpdateStatus(ctx, id, domain.StatusCompleted,
				StatusUpdate{Result: fmt.Sprintf("result %d", i)}))
		}(i, id)
	}
	wg.Wait()

	for i, id := range ids {
		got, err := store.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCompleted, got.Status)
		assert.Equal(t, fmt.Sprintf("result %d", i), got.Result)
	}
}

func TestStore_CreateChildren(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	parent := domain.NewTodo("Build web application", "Create comprehensive web application",
		domain.TypeCode, domain.PriorityHigh, "Complex project requiring multiple components")
	require.NoError(t, store.Add(ctx, parent))

	ids, err := store.CreateChildren(ctx, parent.ID, parent.SubTasks())
	require.NoError(t, err)
	require.NotEmpty(t, ids)

	got, err := store.Get(ctx, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, ids, got.SubTaskIDs)

	for _, id := range ids {
		child, err := store.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, parent.ID, child.ParentID)
		assert.Equal(t, domain.PriorityHigh, child.Priority)
	}

	topLevel, err := store.List(ctx, ListOptions{TopLevel: true})
	require.NoError(t, err)
	assert.Len(t, topLevel, 1)

	children, err := store.List(ctx, ListOptions{ParentID: parent.ID})
	require.NoError(t, err)
	assert.Len(t, children, len(ids))
}

func TestStore_CreateChildrenUnknownParent(t *testing.T) {
	store := newStore(t)

	_, err := store.CreateChildren(context.Background(), "missing", []domain.SubTaskSpec{{Title: "x"}})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	parent := domain.NewTodo("Entire platform rewrite", "", domain.TypeGeneral, domain.PriorityMedium, "")
	require.NoError(t, store.Add(ctx, parent))
	_, err := store.CreateChildren(ctx, parent.ID, parent.SubTasks())
	require.NoError(t, err)

	deleted, err := store.Delete(ctx, parent.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	all, err := store.List(ctx, ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, all)

	deleted, err = store.Delete(ctx, parent.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestStore_Stats(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	for i := 0; i < 4; i++ {
		td := domain.NewTodo(fmt.Sprintf("t%d", i), "", domain.TypeGeneral, domain.PriorityMedium, "")
		require.NoError(t, store.Add(ctx, td))
		if i%2 == 0 {
			require.NoError(t, store.UpdateStatus(ctx, td.ID, domain.StatusCompleted, StatusUpdate{}))
		}
	}

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.Completed)
	assert.Equal(t, 2, stats.Pending)
}

func TestStore_RecordRun(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	start := time.Now().Add(-time.Minute)
	require.NoError(t, store.RecordRun(ctx, &domain.ScheduleRun{
		Schedule: "nightly", Trigger: "cron", StartedAt: start, FinishedAt: start.Add(time.Second), Succeeded: 2, Failed: 1,
	}))

	runs, err := store.ListRuns(ctx, "nightly", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 2, runs[0].Succeeded)
	assert.Equal(t, 1, runs[0].Failed)
	assert.NotEmpty(t, runs[0].ID)
}

func TestStore_ListRunsAllSchedules(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	base := time.Now().Add(-time.Hour)
	for i, name := range []string{"nightly", "hourly", "nightly"} {
		start := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, store.RecordRun(ctx, &domain.ScheduleRun{
			Schedule: name, Trigger: "manual", StartedAt: start, FinishedAt: start.Add(time.Second),
		}))
	}

	runs, err := store.ListRuns(ctx, "", 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "nightly", runs[0].Schedule)
	assert.Equal(t, "hourly", runs[1].Schedule)

	nightly, err := store.ListRuns(ctx, "nightly", 0)
	require.NoError(t, err)
	assert.Len(t, nightly, 2)
}
