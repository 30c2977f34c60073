package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"bizdesk/internal/domain"
)

type TaskFilters struct {
	Status     string
	Type       string
	Priority   string
	AssignedTo int64
	ProjectID  int64
	Search     string
	// From and To bound start_date to [From, To).
	From domain.WallTime
	To   domain.WallTime
	Pagination
}

const taskColumns = `id,title,description,type,status,priority,start_date,COALESCE(end_date,''),all_day,created_by,assigned_to,project_id,created_at,updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (domain.Task, error) {
	var (
		t                   domain.Task
		start, end          string
		allDay              int
		assignedTo, project sql.NullInt64
	)
	if err := s.Scan(&t.ID, &t.Title, &t.Description, &t.Type, &t.Status, &t.Priority, &start, &end, &allDay, &t.CreatedBy, &assignedTo, &project, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return t, ErrNotFound
		}
		return t, err
	}
	var err error
	if t.Start, err = domain.ParseWallTime(start); err != nil {
		return t, fmt.Errorf("task %d start_date: %w", t.ID, err)
	}
	if t.End, err = domain.ParseWallTime(end); err != nil {
		return t, fmt.Errorf("task %d end_date: %w", t.ID, err)
	}
	t.AllDay = allDay == 1
	t.AssignedTo = idPtr(assignedTo)
	t.ProjectID = idPtr(project)
	return t, nil
}

func wallOrNil(w domain.WallTime) any {
	if w.IsZero() {
		return nil
	}
	return w.String()
}

func (r Repo) InsertTask(ctx context.Context, tx *sql.Tx, t domain.Task) (int64, error) {
	res, err := r.q(tx).ExecContext(ctx, `INSERT INTO tasks(title,description,type,status,priority,start_date,end_date,all_day,created_by,assigned_to,project_id,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.Title, t.Description, t.Type, t.Status, t.Priority, t.Start.String(), wallOrNil(t.End), boolInt(t.AllDay),
		t.CreatedBy, nullableID(t.AssignedTo), nullableID(t.ProjectID), t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) UpdateTask(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	return affectedOne(r.q(tx).ExecContext(ctx, `UPDATE tasks SET title=?, description=?, type=?, status=?, priority=?, start_date=?, end_date=?, all_day=?, assigned_to=?, project_id=?, updated_at=? WHERE id=?`,
		t.Title, t.Description, t.Type, t.Status, t.Priority, t.Start.String(), wallOrNil(t.End), boolInt(t.AllDay),
		nullableID(t.AssignedTo), nullableID(t.ProjectID), t.UpdatedAt, t.ID))
}

func (r Repo) GetTask(ctx context.Context, tx *sql.Tx, id int64) (domain.Task, error) {
	return scanTask(r.q(tx).QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id))
}

func (r Repo) DeleteTask(ctx context.Context, id int64) error {
	return affectedOne(r.DB.ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, id))
}

func (f TaskFilters) where() where {
	var w where
	if f.Status != "" {
		w.add("status=?", f.Status)
	}
	if f.Type != "" {
		w.add("type=?", f.Type)
	}
	if f.Priority != "" {
		w.add("priority=?", f.Priority)
	}
	if f.AssignedTo != 0 {
		w.add("assigned_to=?", f.AssignedTo)
	}
	if f.ProjectID != 0 {
		w.add("project_id=?", f.ProjectID)
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		w.add("(title LIKE ? OR description LIKE ?)", like, like)
	}
	if !f.From.IsZero() {
		w.add("start_date>=?", f.From.String())
	}
	if !f.To.IsZero() {
		w.add("start_date<?", f.To.String())
	}
	return w
}

// ListTasks returns one page ordered by start date.
func (r Repo) ListTasks(ctx context.Context, f TaskFilters) (domain.Page[domain.Task], error) {
	p := f.Pagination.normalize()
	w := f.where()
	page := domain.Page[domain.Task]{Page: p.Page, PerPage: p.PerPage, Items: []domain.Task{}}
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`+w.String(), w.args...).Scan(&page.Total); err != nil {
		return page, err
	}
	page.LastPage = lastPage(page.Total, p.PerPage)
	args := append(append([]any{}, w.args...), p.PerPage, p.offset())
	rows, err := r.DB.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks`+w.String()+` ORDER BY start_date ASC, id ASC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return page, err
	}
	defer rows.Close()
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return page, err
		}
		page.Items = append(page.Items, t)
	}
	return page, rows.Err()
}

const upcomingLimit = 5

// TaskStats aggregates all tasks relative to now.
func (r Repo) TaskStats(ctx context.Context, now domain.WallTime) (domain.TaskStats, error) {
	stats := domain.TaskStats{
		ByStatus:   map[domain.TaskStatus]int{},
		ByType:     map[domain.TaskType]int{},
		ByPriority: map[domain.TaskPriority]int{},
		Upcoming:   []domain.Task{},
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT status,type,priority,COUNT(*) FROM tasks GROUP BY status,type,priority`)
	if err != nil {
		return stats, err
	}
	for rows.Next() {
		var (
			status   domain.TaskStatus
			typ      domain.TaskType
			priority domain.TaskPriority
			n        int
		)
		if err := rows.Scan(&status, &typ, &priority, &n); err != nil {
			rows.Close()
			return stats, err
		}
		stats.Total += n
		stats.ByStatus[status] += n
		stats.ByType[typ] += n
		stats.ByPriority[priority] += n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return stats, err
	}

	today := now.Date()
	tomorrow := today.Add(24 * time.Hour)
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE status<>? AND COALESCE(end_date,start_date)<?`,
		domain.TaskCompleted, now.String()).Scan(&stats.Overdue); err != nil {
		return stats, err
	}
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE start_date>=? AND start_date<?`,
		today.String(), tomorrow.String()).Scan(&stats.DueToday); err != nil {
		return stats, err
	}
	up, err := r.DB.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE status<>? AND start_date>=? ORDER BY start_date ASC LIMIT ?`,
		domain.TaskCompleted, now.String(), upcomingLimit)
	if err != nil {
		return stats, err
	}
	defer up.Close()
	for up.Next() {
		t, err := scanTask(up)
		if err != nil {
			return stats, err
		}
		stats.Upcoming = append(stats.Upcoming, t)
	}
	return stats, up.Err()
}
