package engine

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"bizdesk/internal/domain"
	"bizdesk/internal/events"
	"bizdesk/internal/repo"
)

func validateTask(t domain.Task) error {
	fe := fieldErrors{}
	if strings.TrimSpace(t.Title) == "" {
		fe.add("title", "The title field is required.")
	}
	if !t.Type.Valid() {
		fe.add("type", "The selected type is invalid.")
	}
	if !t.Status.Valid() {
		fe.add("status", "The selected status is invalid.")
	}
	if !t.Priority.Valid() {
		fe.add("priority", "The selected priority is invalid.")
	}
	if t.Start.IsZero() {
		fe.add("start_date", "The start date field is required.")
	}
	if !t.End.IsZero() && t.End.Before(t.Start) {
		fe.add("end_date", "The end date must be a date after or equal to start date.")
	}
	return fe.err()
}

func applyTaskInput(t *domain.Task, in domain.TaskInput) {
	t.Title = valueOr(in.Title, t.Title)
	t.Description = valueOr(in.Description, t.Description)
	t.Type = valueOr(in.Type, t.Type)
	t.Status = valueOr(in.Status, t.Status)
	t.Priority = valueOr(in.Priority, t.Priority)
	t.Start = valueOr(in.Start, t.Start)
	t.End = valueOr(in.End, t.End)
	t.AllDay = valueOr(in.AllDay, t.AllDay)
	if in.AssignedTo != nil {
		t.AssignedTo = idOrNil(in.AssignedTo)
	}
	if in.ProjectID != nil {
		t.ProjectID = idOrNil(in.ProjectID)
	}
}

func (e Engine) checkTaskProject(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	if t.ProjectID == nil {
		return nil
	}
	if _, err := e.Repo.GetProject(ctx, tx, *t.ProjectID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return invalid("project_id", "The selected project is invalid.")
		}
		return err
	}
	return nil
}

func (e Engine) CreateTask(ctx context.Context, in domain.TaskInput, actorID int64) (domain.Task, error) {
	t := domain.Task{
		Type:      domain.TaskTypeTodo,
		Status:    domain.TaskNotStarted,
		Priority:  domain.PriorityNormal,
		CreatedBy: actorID,
	}
	applyTaskInput(&t, in)
	if err := validateTask(t); err != nil {
		return domain.Task{}, err
	}
	t.CreatedAt = e.stamp()
	t.UpdatedAt = t.CreatedAt
	var id int64
	err := e.Repo.WithTx(ctx, func(tx *sql.Tx) error {
		if err := e.checkTaskProject(ctx, tx, t); err != nil {
			return err
		}
		var err error
		if id, err = e.Repo.InsertTask(ctx, tx, t); err != nil {
			return err
		}
		if t.ProjectID != nil {
			return e.Events.Append(ctx, tx, events.TaskLinked, *t.ProjectID, actorID, events.EventPayload{"task_id": id, "title": t.Title})
		}
		return nil
	})
	if err != nil {
		return domain.Task{}, err
	}
	return e.Repo.GetTask(ctx, nil, id)
}

func (e Engine) UpdateTask(ctx context.Context, id int64, in domain.TaskInput) (domain.Task, error) {
	var updated domain.Task
	err := e.Repo.WithTx(ctx, func(tx *sql.Tx) error {
		t, err := e.Repo.GetTask(ctx, tx, id)
		if err != nil {
			return wrapNotFound("task", id, err)
		}
		applyTaskInput(&t, in)
		if err := validateTask(t); err != nil {
			return err
		}
		if err := e.checkTaskProject(ctx, tx, t); err != nil {
			return err
		}
		t.UpdatedAt = e.stamp()
		if err := e.Repo.UpdateTask(ctx, tx, t); err != nil {
			return err
		}
		updated = t
		return nil
	})
	return updated, err
}

func (e Engine) ChangeTaskStatus(ctx context.Context, id int64, status domain.TaskStatus) (domain.Task, error) {
	if !status.Valid() {
		return domain.Task{}, invalid("status", "The selected status is invalid.")
	}
	return e.UpdateTask(ctx, id, domain.TaskInput{Status: &status})
}

func (e Engine) GetTask(ctx context.Context, id int64) (domain.Task, error) {
	t, err := e.Repo.GetTask(ctx, nil, id)
	return t, wrapNotFound("task", id, err)
}

func (e Engine) DeleteTask(ctx context.Context, id int64) error {
	return wrapNotFound("task", id, e.Repo.DeleteTask(ctx, id))
}

func (e Engine) ListTasks(ctx context.Context, f repo.TaskFilters) (domain.Page[domain.Task], error) {
	if f.Status != "" && !domain.TaskStatus(f.Status).Valid() {
		return domain.Page[domain.Task]{}, invalid("status", "The selected status is invalid.")
	}
	if f.Type != "" && !domain.TaskType(f.Type).Valid() {
		return domain.Page[domain.Task]{}, invalid("type", "The selected type is invalid.")
	}
	return e.Repo.ListTasks(ctx, f)
}

// TaskStats is computed against the engine clock read as wall-clock time.
func (e Engine) TaskStats(ctx context.Context) (domain.TaskStats, error) {
	return e.Repo.TaskStats(ctx, domain.NewWallTime(e.now()))
}
