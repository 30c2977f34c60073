package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"bizdesk/internal/domain"
	"bizdesk/internal/engine"
	"bizdesk/internal/repo"
)

type pageParams struct {
	Page    int `query:"page" minimum:"0"`
	PerPage int `query:"per_page" minimum:"0" maximum:"500"`
}

func (p pageParams) pagination() repo.Pagination {
	return repo.Pagination{Page: p.Page, PerPage: p.PerPage}
}

type listTasksInput struct {
	pageParams
	Start      string `query:"start" doc:"Inclusive lower bound of start_date (2006-01-02T15:04:05)"`
	End        string `query:"end" doc:"Exclusive upper bound of start_date"`
	Status     string `query:"status"`
	Type       string `query:"type"`
	Priority   string `query:"priority"`
	AssignedTo string `query:"assigned_to" doc:"User id, or \"me\""`
	ProjectID  int64  `query:"project_id"`
	Search     string `query:"search"`
}

func (in listTasksInput) filters(ctx context.Context) (repo.TaskFilters, error) {
	f := repo.TaskFilters{
		Status:     in.Status,
		Type:       in.Type,
		Priority:   in.Priority,
		ProjectID:  in.ProjectID,
		Search:     strings.TrimSpace(in.Search),
		Pagination: in.pagination(),
	}
	for _, bound := range []struct {
		field string
		raw   string
		dst   *domain.WallTime
	}{{"start", in.Start, &f.From}, {"end", in.End, &f.To}} {
		if bound.raw == "" {
			continue
		}
		w, err := parseWall(bound.field, &bound.raw)
		if err != nil {
			return f, err
		}
		*bound.dst = *w
	}
	switch in.AssignedTo {
	case "":
	case "me":
		p, err := currentUser(ctx)
		if err != nil {
			return f, err
		}
		f.AssignedTo = p.UserID
	default:
		id, err := strconv.ParseInt(in.AssignedTo, 10, 64)
		if err != nil || id <= 0 {
			return f, fieldError{field: "assigned_to", msg: "The assigned to must be a user id."}
		}
		f.AssignedTo = id
	}
	return f, nil
}

type taskOutput struct {
	Body TaskResponse `json:"body"`
}

type taskIDInput struct {
	ID int64 `path:"id"`
}

func registerTasks(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "tasks-list",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List tasks",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *listTasksInput) (*struct {
		Body paginatedTasks `json:"body"`
	}, error) {
		f, err := input.filters(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		page, err := e.ListTasks(ctx, f)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body paginatedTasks `json:"body"`
		}{Body: paginatedTasks{
			Items:    toTaskResponses(page.Items),
			PageMeta: PageMeta{Page: page.Page, PerPage: page.PerPage, Total: page.Total, LastPage: page.LastPage},
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "tasks-stats",
		Method:      http.MethodGet,
		Path:        "/tasks/stats",
		Summary:     "Task dashboard counters",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body TaskStatsResponse `json:"body"`
	}, error) {
		stats, err := e.TaskStats(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TaskStatsResponse `json:"body"`
		}{Body: toTaskStatsResponse(stats)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "tasks-create",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Create a task",
		Tags:          []string{"Tasks"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body TaskRequest `json:"body"`
	}) (*taskOutput, error) {
		p, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}
		in, err := input.Body.toInput()
		if err != nil {
			return nil, handleError(err)
		}
		t, err := e.CreateTask(ctx, in, p.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &taskOutput{Body: toTaskResponse(t)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "tasks-get",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}",
		Summary:     "Get a task",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *taskIDInput) (*taskOutput, error) {
		t, err := e.GetTask(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &taskOutput{Body: toTaskResponse(t)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "tasks-update",
		Method:      http.MethodPut,
		Path:        "/tasks/{id}",
		Summary:     "Update a task",
		Description: "Only the fields present in the body change.",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *struct {
		ID   int64       `path:"id"`
		Body TaskRequest `json:"body"`
	}) (*taskOutput, error) {
		in, err := input.Body.toInput()
		if err != nil {
			return nil, handleError(err)
		}
		t, err := e.UpdateTask(ctx, input.ID, in)
		if err != nil {
			return nil, handleError(err)
		}
		return &taskOutput{Body: toTaskResponse(t)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "tasks-status",
		Method:      http.MethodPatch,
		Path:        "/tasks/{id}/status",
		Summary:     "Change the status of a task",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *struct {
		ID   int64             `path:"id"`
		Body TaskStatusRequest `json:"body"`
	}) (*taskOutput, error) {
		t, err := e.ChangeTaskStatus(ctx, input.ID, domain.TaskStatus(input.Body.Status))
		if err != nil {
			return nil, handleError(err)
		}
		return &taskOutput{Body: toTaskResponse(t)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "tasks-delete",
		Method:        http.MethodDelete,
		Path:          "/tasks/{id}",
		Summary:       "Delete a task",
		Tags:          []string{"Tasks"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *taskIDInput) (*struct{}, error) {
		if err := e.DeleteTask(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return nil, nil
	})
}
