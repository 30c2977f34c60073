package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"bizdesk/internal/domain"
)

// FilterAll is the filter value meaning "no filter"; it is never sent.
const FilterAll = "all"

// TaskQuery scopes a task listing. Empty and "all" values are dropped.
type TaskQuery struct {
	Page       int
	PerPage    int
	Status     string
	Type       string
	Priority   string
	AssignedTo string
	ProjectID  int64
	Search     string
	// From and To bound start_date to [From, To).
	From domain.WallTime
	To   domain.WallTime
}

func setFilter(v url.Values, key, value string) {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, FilterAll) {
		return
	}
	v.Set(key, value)
}

// Values renders the query string parameters.
func (q TaskQuery) Values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PerPage > 0 {
		v.Set("per_page", strconv.Itoa(q.PerPage))
	}
	setFilter(v, "status", q.Status)
	setFilter(v, "type", q.Type)
	setFilter(v, "priority", q.Priority)
	setFilter(v, "assigned_to", q.AssignedTo)
	setFilter(v, "search", q.Search)
	if q.ProjectID > 0 {
		v.Set("project_id", strconv.FormatInt(q.ProjectID, 10))
	}
	if !q.From.IsZero() {
		v.Set("start", q.From.String())
	}
	if !q.To.IsZero() {
		v.Set("end", q.To.String())
	}
	return v
}

func taskPath(id int64) string { return fmt.Sprintf("tasks/%d", id) }

func (c *Client) ListTasks(ctx context.Context, q TaskQuery) (domain.Page[domain.Task], error) {
	var page domain.Page[domain.Task]
	err := c.get(ctx, "tasks", q.Values(), &page)
	return page, err
}

func (c *Client) GetTask(ctx context.Context, id int64) (domain.Task, error) {
	var t domain.Task
	err := c.get(ctx, taskPath(id), nil, &t)
	return t, err
}

func (c *Client) CreateTask(ctx context.Context, in domain.TaskInput) (domain.Task, error) {
	var t domain.Task
	err := c.send(ctx, http.MethodPost, "tasks", in, &t)
	return t, err
}

func (c *Client) UpdateTask(ctx context.Context, id int64, in domain.TaskInput) (domain.Task, error) {
	var t domain.Task
	err := c.send(ctx, http.MethodPut, taskPath(id), in, &t)
	return t, err
}

func (c *Client) ChangeTaskStatus(ctx context.Context, id int64, status domain.TaskStatus) (domain.Task, error) {
	var t domain.Task
	err := c.send(ctx, http.MethodPatch, taskPath(id)+"/status", map[string]domain.TaskStatus{"status": status}, &t)
	return t, err
}

func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.send(ctx, http.MethodDelete, taskPath(id), nil, nil)
}

func (c *Client) TaskStats(ctx context.Context) (domain.TaskStats, error) {
	var s domain.TaskStats
	err := c.get(ctx, "tasks/stats", nil, &s)
	return s, err
}
