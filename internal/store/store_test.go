package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizdesk/internal/domain"
	"bizdesk/internal/gateway"
	"bizdesk/internal/store"
)

type fakeTasks struct {
	mu      sync.Mutex
	list    func(q gateway.TaskQuery) (domain.Page[domain.Task], error)
	update  func(id int64, in domain.TaskInput) (domain.Task, error)
	status  func(id int64, s domain.TaskStatus) (domain.Task, error)
	updates int
}

func (f *fakeTasks) ListTasks(_ context.Context, q gateway.TaskQuery) (domain.Page[domain.Task], error) {
	return f.list(q)
}
func (f *fakeTasks) GetTask(context.Context, int64) (domain.Task, error) {
	return domain.Task{}, errors.New("not used")
}
func (f *fakeTasks) CreateTask(_ context.Context, in domain.TaskInput) (domain.Task, error) {
	return domain.Task{ID: 100, Title: *in.Title}, nil
}
func (f *fakeTasks) UpdateTask(_ context.Context, id int64, in domain.TaskInput) (domain.Task, error) {
	f.mu.Lock()
	f.updates++
	f.mu.Unlock()
	return f.update(id, in)
}
func (f *fakeTasks) ChangeTaskStatus(_ context.Context, id int64, s domain.TaskStatus) (domain.Task, error) {
	return f.status(id, s)
}
func (f *fakeTasks) DeleteTask(context.Context, int64) error { return nil }
func (f *fakeTasks) TaskStats(context.Context) (domain.TaskStats, error) {
	return domain.TaskStats{}, nil
}

func pageOf(tasks ...domain.Task) domain.Page[domain.Task] {
	return domain.Page[domain.Task]{Items: tasks, Page: 1, PerPage: 50, Total: len(tasks), LastPage: 1}
}

func TestOperationLifecycle(t *testing.T) {
	c := store.NewCache[domain.Task]()
	require.NoError(t, c.Begin(store.OpStatus, 1))
	assert.True(t, c.Operation().Loading)
	assert.ErrorIs(t, c.Begin(store.OpStatus, 1), store.ErrInFlight)
	require.NoError(t, c.Begin(store.OpStatus, 2), "other targets are not blocked")
	c.Finish(store.OpStatus, 2, nil)
	c.Finish(store.OpStatus, 1, errors.New("boom"))

	op := c.Operation()
	assert.Equal(t, store.Operation{Type: store.OpStatus, TargetID: 1, Err: "boom"}, op)
	assert.ErrorIs(t, c.Begin(store.OpStatus, 3), store.ErrUnacknowledged)
	require.NoError(t, c.Begin(store.OpDelete, 3), "other operation types are not blocked")
	c.Finish(store.OpDelete, 3, nil)

	c.ResetOperation()
	assert.True(t, c.Operation().Idle())
	require.NoError(t, c.Begin(store.OpStatus, 3))
}

func TestUnacknowledgedErrorSurvivesOtherOperations(t *testing.T) {
	c := store.NewCache[domain.Task]()
	require.NoError(t, c.Begin(store.OpStatus, 1))
	c.Finish(store.OpStatus, 1, errors.New("boom"))

	require.NoError(t, c.Begin(store.OpDelete, 2))
	c.Finish(store.OpDelete, 2, nil)
	assert.True(t, c.Operation().Success)
	assert.ErrorIs(t, c.Begin(store.OpStatus, 3), store.ErrUnacknowledged)

	c.ResetOperation()
	require.NoError(t, c.Begin(store.OpStatus, 3))
}

func TestSupersededListIsDiscarded(t *testing.T) {
	release := make(chan struct{})
	api := &fakeTasks{list: func(q gateway.TaskQuery) (domain.Page[domain.Task], error) {
		if q.Status == "waiting" {
			<-release
			return pageOf(domain.Task{ID: 1, Status: domain.TaskWaiting}), nil
		}
		return pageOf(domain.Task{ID: 2, Status: domain.TaskCompleted}), nil
	}}
	s := store.NewTaskStore(api)

	done := make(chan error)
	go func() {
		_, err := s.Fetch(context.Background(), gateway.TaskQuery{Status: "waiting"})
		done <- err
	}()
	// wait until the slow request holds its ticket
	require.Eventually(t, func() bool { return s.ListState().Loading }, timeout, tick)

	_, err := s.Fetch(context.Background(), gateway.TaskQuery{Status: "completed"})
	require.NoError(t, err)
	close(release)
	assert.ErrorIs(t, <-done, store.ErrStale)

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, int64(2), items[0].ID)
}

func TestRescheduleRollsBackOnFailure(t *testing.T) {
	orig := domain.Task{ID: 7, Start: domain.MustWallTime("2024-06-03T09:00:00"), End: domain.MustWallTime("2024-06-03T10:00:00")}
	api := &fakeTasks{
		list: func(gateway.TaskQuery) (domain.Page[domain.Task], error) { return pageOf(orig), nil },
		update: func(int64, domain.TaskInput) (domain.Task, error) {
			return domain.Task{}, &gateway.Error{Kind: gateway.KindServer, Status: 500, Message: "down"}
		},
	}
	s := store.NewTaskStore(api)
	_, err := s.Fetch(context.Background(), gateway.TaskQuery{})
	require.NoError(t, err)

	err = s.Reschedule(context.Background(), 7, domain.MustWallTime("2024-06-04T14:00:00"), domain.MustWallTime("2024-06-04T15:00:00"), false)
	require.Error(t, err)
	got, _ := s.Item(7)
	assert.Equal(t, "2024-06-03T09:00:00", got.Start.String())
	assert.Equal(t, "2024-06-03T10:00:00", got.End.String())
	assert.Equal(t, "down", s.Operation().Err)
}

func TestRescheduleKeepsOptimisticMoveOnSuccess(t *testing.T) {
	orig := domain.Task{ID: 7, Start: domain.MustWallTime("2024-06-03T09:00:00")}
	api := &fakeTasks{
		list: func(gateway.TaskQuery) (domain.Page[domain.Task], error) { return pageOf(orig), nil },
		update: func(id int64, in domain.TaskInput) (domain.Task, error) {
			// the response is deliberately different; it must not be applied
			return domain.Task{ID: id, Title: "server copy"}, nil
		},
	}
	s := store.NewTaskStore(api)
	_, err := s.Fetch(context.Background(), gateway.TaskQuery{})
	require.NoError(t, err)
	require.NoError(t, s.Reschedule(context.Background(), 7, domain.MustWallTime("2024-06-05T08:00:00"), domain.WallTime{}, true))
	got, _ := s.Item(7)
	assert.Equal(t, "2024-06-05T08:00:00", got.Start.String())
	assert.True(t, got.AllDay)
	assert.Empty(t, got.Title)
}

func TestRescheduleWithoutEndKeepsDuration(t *testing.T) {
	orig := domain.Task{ID: 7, Start: domain.MustWallTime("2024-06-03T09:00:00"), End: domain.MustWallTime("2024-06-03T10:00:00")}
	var sent domain.TaskInput
	api := &fakeTasks{
		list: func(gateway.TaskQuery) (domain.Page[domain.Task], error) { return pageOf(orig), nil },
		update: func(id int64, in domain.TaskInput) (domain.Task, error) {
			sent = in
			return domain.Task{ID: id}, nil
		},
	}
	s := store.NewTaskStore(api)
	_, err := s.Fetch(context.Background(), gateway.TaskQuery{})
	require.NoError(t, err)

	require.NoError(t, s.Reschedule(context.Background(), 7, domain.MustWallTime("2024-06-04T11:00:00"), domain.WallTime{}, false))
	got, _ := s.Item(7)
	assert.Equal(t, "2024-06-04T11:00:00", got.Start.String())
	assert.Equal(t, "2024-06-04T12:00:00", got.End.String())
	require.NotNil(t, sent.End)
	assert.Equal(t, "2024-06-04T12:00:00", sent.End.String())
}

func TestChangeStatusUpdatesCacheAndSelection(t *testing.T) {
	api := &fakeTasks{
		list: func(gateway.TaskQuery) (domain.Page[domain.Task], error) {
			return pageOf(domain.Task{ID: 3, Status: domain.TaskNotStarted}), nil
		},
		status: func(id int64, s domain.TaskStatus) (domain.Task, error) { return domain.Task{ID: id, Status: s}, nil },
	}
	s := store.NewTaskStore(api)
	_, err := s.Fetch(context.Background(), gateway.TaskQuery{})
	require.NoError(t, err)
	first, _ := s.Item(3)
	s.Select(first)

	_, err = s.ChangeStatus(context.Background(), 3, domain.TaskCompleted)
	require.NoError(t, err)
	got, _ := s.Item(3)
	assert.Equal(t, domain.TaskCompleted, got.Status)
	sel, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, domain.TaskCompleted, sel.Status)
	assert.True(t, s.Operation().Success)

	s.ResetOperation()
	_, err = s.ChangeStatus(context.Background(), 3, "archived")
	assert.True(t, gateway.IsKind(err, gateway.KindValidation))
}
