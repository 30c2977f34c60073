package store

import (
	"context"
	"errors"
	"log/slog"

	"bizdesk/internal/domain"
	"bizdesk/internal/gateway"
)

// TaskAPI is the part of the gateway the task store needs.
type TaskAPI interface {
	ListTasks(ctx context.Context, q gateway.TaskQuery) (domain.Page[domain.Task], error)
	GetTask(ctx context.Context, id int64) (domain.Task, error)
	CreateTask(ctx context.Context, in domain.TaskInput) (domain.Task, error)
	UpdateTask(ctx context.Context, id int64, in domain.TaskInput) (domain.Task, error)
	ChangeTaskStatus(ctx context.Context, id int64, status domain.TaskStatus) (domain.Task, error)
	DeleteTask(ctx context.Context, id int64) error
	TaskStats(ctx context.Context) (domain.TaskStats, error)
}

type TaskStore struct {
	*Cache[domain.Task]
	api    TaskAPI
	Logger *slog.Logger
}

func NewTaskStore(api TaskAPI) *TaskStore {
	return &TaskStore{Cache: NewCache[domain.Task](), api: api}
}

func (s *TaskStore) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Fetch loads one page of tasks. A response overtaken by a newer Fetch is
// dropped and ErrStale returned.
func (s *TaskStore) Fetch(ctx context.Context, q gateway.TaskQuery) (domain.Page[domain.Task], error) {
	ticket := s.BeginList()
	page, err := s.api.ListTasks(ctx, q)
	if err != nil {
		if staleErr := s.FailList(ticket, err); staleErr != nil {
			return domain.Page[domain.Task]{}, staleErr
		}
		return domain.Page[domain.Task]{}, err
	}
	if err := s.ApplyList(ticket, page); err != nil {
		s.logger().Debug("discarding superseded task list", "query", q.Values().Encode())
		return domain.Page[domain.Task]{}, err
	}
	return page, nil
}

// Load fetches one task into the selection slot.
func (s *TaskStore) Load(ctx context.Context, id int64) (domain.Task, error) {
	t, err := s.api.GetTask(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	s.Select(t)
	if _, ok := s.Item(id); ok {
		s.Upsert(t)
	}
	return t, nil
}

func (s *TaskStore) Create(ctx context.Context, in domain.TaskInput) (domain.Task, error) {
	var created domain.Task
	err := runOp(s.Cache, OpCreate, 0, func() error {
		t, err := s.api.CreateTask(ctx, in)
		if err != nil {
			return err
		}
		created = t
		s.Upsert(t)
		s.Select(t)
		return nil
	})
	return created, err
}

func (s *TaskStore) Update(ctx context.Context, id int64, in domain.TaskInput) (domain.Task, error) {
	var updated domain.Task
	err := runOp(s.Cache, OpUpdate, id, func() error {
		t, err := s.api.UpdateTask(ctx, id, in)
		if err != nil {
			return err
		}
		updated = t
		s.Upsert(t)
		return nil
	})
	return updated, err
}

// ChangeStatus applies the server's answer; concurrent changes on the same
// task resolve to whichever response arrives last.
func (s *TaskStore) ChangeStatus(ctx context.Context, id int64, status domain.TaskStatus) (domain.Task, error) {
	var updated domain.Task
	err := runOp(s.Cache, OpStatus, id, func() error {
		if !status.Valid() {
			return &gateway.Error{Kind: gateway.KindValidation, Message: "invalid status", Fields: map[string][]string{"status": {"unknown status " + string(status)}}}
		}
		t, err := s.api.ChangeTaskStatus(ctx, id, status)
		if err != nil {
			return err
		}
		updated = t
		s.Upsert(t)
		return nil
	})
	return updated, err
}

func (s *TaskStore) Delete(ctx context.Context, id int64) error {
	return runOp(s.Cache, OpDelete, id, func() error {
		if err := s.api.DeleteTask(ctx, id); err != nil {
			return err
		}
		s.Remove(id)
		return nil
	})
}

// Reschedule moves a task optimistically and rolls the move back when the
// update fails. The update response is not applied; callers re-fetch.
func (s *TaskStore) Reschedule(ctx context.Context, id int64, start, end domain.WallTime, allDay bool) error {
	return runOp(s.Cache, OpReschedule, id, func() error {
		rollback, ok := s.Patch(id, func(t *domain.Task) {
			// A move without a new end keeps the task's duration.
			if end.IsZero() && !t.End.IsZero() && !t.Start.IsZero() {
				end = t.End.Add(start.Time().Sub(t.Start.Time()))
			}
			t.Start, t.End, t.AllDay = start, end, allDay
		})
		if !ok {
			return errors.New("task not in view")
		}
		in := domain.TaskInput{Start: &start, AllDay: &allDay}
		if !end.IsZero() {
			in.End = &end
		}
		if _, err := s.api.UpdateTask(ctx, id, in); err != nil {
			rollback()
			return err
		}
		return nil
	})
}

func (s *TaskStore) Stats(ctx context.Context) (domain.TaskStats, error) {
	return s.api.TaskStats(ctx)
}
