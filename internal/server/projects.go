package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"bizdesk/internal/domain"
	"bizdesk/internal/engine"
	"bizdesk/internal/repo"
)

type projectOutput struct {
	Body ProjectResponse `json:"body"`
}

type projectIDInput struct {
	ID int64 `path:"id"`
}

func registerProjects(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "projects-list",
		Method:      http.MethodGet,
		Path:        "/projects",
		Summary:     "List projects",
		Tags:        []string{"Projects"},
	}, func(ctx context.Context, input *struct {
		pageParams
		Status         string `query:"status"`
		SectorID       int64  `query:"sector_id"`
		GovernorateID  int64  `query:"governorate_id"`
		PipelineTypeID int64  `query:"pipeline_type_id"`
		Search         string `query:"search"`
	}) (*struct {
		Body paginatedProjects `json:"body"`
	}, error) {
		page, err := e.ListProjects(ctx, repo.ProjectFilters{
			Status:         input.Status,
			SectorID:       input.SectorID,
			GovernorateID:  input.GovernorateID,
			PipelineTypeID: input.PipelineTypeID,
			Search:         strings.TrimSpace(input.Search),
			Pagination:     input.pagination(),
		})
		if err != nil {
			return nil, handleError(err)
		}
		items := make([]ProjectResponse, 0, len(page.Items))
		for _, p := range page.Items {
			items = append(items, toProjectResponse(p))
		}
		return &struct {
			Body paginatedProjects `json:"body"`
		}{Body: paginatedProjects{
			Items:    items,
			PageMeta: PageMeta{Page: page.Page, PerPage: page.PerPage, Total: page.Total, LastPage: page.LastPage},
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "projects-stats",
		Method:      http.MethodGet,
		Path:        "/projects/stats",
		Summary:     "Project dashboard counters",
		Tags:        []string{"Projects"},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body ProjectStatsResponse `json:"body"`
	}, error) {
		stats, err := e.ProjectStats(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ProjectStatsResponse `json:"body"`
		}{Body: toProjectStatsResponse(stats)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "projects-create",
		Method:        http.MethodPost,
		Path:          "/projects",
		Summary:       "Create a project",
		Description:   "Choosing a pipeline type without a stage places the project on the first stage of that pipeline.",
		Tags:          []string{"Projects"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body ProjectRequest `json:"body"`
	}) (*projectOutput, error) {
		p, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}
		project, err := e.CreateProject(ctx, input.Body.toInput(), p.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &projectOutput{Body: toProjectResponse(project)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "projects-get",
		Method:      http.MethodGet,
		Path:        "/projects/{id}",
		Summary:     "Get a project",
		Tags:        []string{"Projects"},
	}, func(ctx context.Context, input *projectIDInput) (*projectOutput, error) {
		project, err := e.GetProject(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &projectOutput{Body: toProjectResponse(project)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "projects-update",
		Method:      http.MethodPut,
		Path:        "/projects/{id}",
		Summary:     "Update a project",
		Tags:        []string{"Projects"},
	}, func(ctx context.Context, input *struct {
		ID   int64          `path:"id"`
		Body ProjectRequest `json:"body"`
	}) (*projectOutput, error) {
		p, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}
		project, err := e.UpdateProject(ctx, input.ID, input.Body.toInput(), p.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &projectOutput{Body: toProjectResponse(project)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "projects-status",
		Method:      http.MethodPatch,
		Path:        "/projects/{id}/status",
		Summary:     "Change the status of a project",
		Tags:        []string{"Projects"},
	}, func(ctx context.Context, input *struct {
		ID   int64                `path:"id"`
		Body ProjectStatusRequest `json:"body"`
	}) (*projectOutput, error) {
		p, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}
		project, err := e.ChangeProjectStatus(ctx, input.ID, domain.ProjectStatus(input.Body.Status), p.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &projectOutput{Body: toProjectResponse(project)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "projects-stage",
		Method:      http.MethodPatch,
		Path:        "/projects/{id}/stage",
		Summary:     "Move a project to another stage of its pipeline",
		Tags:        []string{"Projects"},
	}, func(ctx context.Context, input *struct {
		ID   int64               `path:"id"`
		Body ProjectStageRequest `json:"body"`
	}) (*projectOutput, error) {
		p, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}
		project, err := e.ChangeProjectStage(ctx, input.ID, input.Body.PipelineStageID, p.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &projectOutput{Body: toProjectResponse(project)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "projects-delete",
		Method:        http.MethodDelete,
		Path:          "/projects/{id}",
		Summary:       "Delete a project",
		Tags:          []string{"Projects"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *projectIDInput) (*struct{}, error) {
		if err := e.DeleteProject(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "projects-activities",
		Method:      http.MethodGet,
		Path:        "/projects/{id}/activities",
		Summary:     "Activity feed of a project, newest first",
		Tags:        []string{"Projects"},
	}, func(ctx context.Context, input *struct {
		ID    int64 `path:"id"`
		Limit int   `query:"limit" minimum:"0" maximum:"200"`
	}) (*struct {
		Body itemsBody[ActivityResponse] `json:"body"`
	}, error) {
		acts, err := e.ProjectActivities(ctx, input.ID, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body itemsBody[ActivityResponse] `json:"body"`
		}{Body: itemsBody[ActivityResponse]{Items: toActivityResponses(acts)}}, nil
	})
}

type blockageOutput struct {
	Body domain.Blockage `json:"body"`
}

type subresourceInput struct {
	ProjectID int64 `path:"id"`
	ID        int64 `path:"item"`
}

func registerBlockages(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "blockages-list",
		Method:      http.MethodGet,
		Path:        "/projects/{id}/blockages",
		Summary:     "List the blockages of a project",
		Tags:        []string{"Blockages"},
	}, func(ctx context.Context, input *struct {
		ProjectID int64 `path:"id"`
	}) (*struct {
		Body itemsBody[domain.Blockage] `json:"body"`
	}, error) {
		items, err := e.ListBlockages(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body itemsBody[domain.Blockage] `json:"body"`
		}{Body: itemsBody[domain.Blockage]{Items: items}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "blockages-create",
		Method:        http.MethodPost,
		Path:          "/projects/{id}/blockages",
		Summary:       "Report a blockage",
		Tags:          []string{"Blockages"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		ProjectID int64           `path:"id"`
		Body      BlockageRequest `json:"body"`
	}) (*blockageOutput, error) {
		p, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}
		b, err := e.AddBlockage(ctx, input.ProjectID, input.Body.toInput(), p.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &blockageOutput{Body: b}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "blockages-update",
		Method:      http.MethodPut,
		Path:        "/projects/{id}/blockages/{item}",
		Summary:     "Edit a blockage",
		Tags:        []string{"Blockages"},
	}, func(ctx context.Context, input *struct {
		ProjectID int64           `path:"id"`
		ID        int64           `path:"item"`
		Body      BlockageRequest `json:"body"`
	}) (*blockageOutput, error) {
		p, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}
		b, err := e.EditBlockage(ctx, input.ProjectID, input.ID, input.Body.toInput(), p.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &blockageOutput{Body: b}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "blockages-resolve",
		Method:      http.MethodPost,
		Path:        "/projects/{id}/blockages/{item}/resolve",
		Summary:     "Resolve a blockage",
		Description: "Resolution is final; a resolved blockage cannot be reopened.",
		Tags:        []string{"Blockages"},
	}, func(ctx context.Context, input *subresourceInput) (*blockageOutput, error) {
		p, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}
		b, err := e.ResolveBlockage(ctx, input.ProjectID, input.ID, p.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &blockageOutput{Body: b}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "blockages-delete",
		Method:        http.MethodDelete,
		Path:          "/projects/{id}/blockages/{item}",
		Summary:       "Delete a blockage",
		Tags:          []string{"Blockages"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *subresourceInput) (*struct{}, error) {
		p, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}
		if err := e.DeleteBlockage(ctx, input.ProjectID, input.ID, p.UserID); err != nil {
			return nil, handleError(err)
		}
		return nil, nil
	})
}

type contactOutput struct {
	Body domain.Contact `json:"body"`
}

func registerContacts(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "contacts-list",
		Method:      http.MethodGet,
		Path:        "/projects/{id}/contacts",
		Summary:     "List the contacts of a project, primary first",
		Tags:        []string{"Contacts"},
	}, func(ctx context.Context, input *struct {
		ProjectID int64 `path:"id"`
	}) (*struct {
		Body itemsBody[domain.Contact] `json:"body"`
	}, error) {
		items, err := e.ListContacts(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body itemsBody[domain.Contact] `json:"body"`
		}{Body: itemsBody[domain.Contact]{Items: items}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "contacts-create",
		Method:        http.MethodPost,
		Path:          "/projects/{id}/contacts",
		Summary:       "Add a contact",
		Tags:          []string{"Contacts"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		ProjectID int64          `path:"id"`
		Body      ContactRequest `json:"body"`
	}) (*contactOutput, error) {
		p, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}
		c, err := e.AddContact(ctx, input.ProjectID, input.Body.toInput(), p.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &contactOutput{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "contacts-update",
		Method:      http.MethodPut,
		Path:        "/projects/{id}/contacts/{item}",
		Summary:     "Edit a contact",
		Tags:        []string{"Contacts"},
	}, func(ctx context.Context, input *struct {
		ProjectID int64          `path:"id"`
		ID        int64          `path:"item"`
		Body      ContactRequest `json:"body"`
	}) (*contactOutput, error) {
		p, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}
		c, err := e.EditContact(ctx, input.ProjectID, input.ID, input.Body.toInput(), p.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &contactOutput{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "contacts-primary",
		Method:      http.MethodPost,
		Path:        "/projects/{id}/contacts/{item}/primary",
		Summary:     "Make a contact the primary contact",
		Tags:        []string{"Contacts"},
	}, func(ctx context.Context, input *subresourceInput) (*contactOutput, error) {
		p, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}
		c, err := e.SetPrimaryContact(ctx, input.ProjectID, input.ID, p.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &contactOutput{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "contacts-delete",
		Method:        http.MethodDelete,
		Path:          "/projects/{id}/contacts/{item}",
		Summary:       "Delete a contact",
		Tags:          []string{"Contacts"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *subresourceInput) (*struct{}, error) {
		p, err := currentUser(ctx)
		if err != nil {
			return nil, err
		}
		if err := e.DeleteContact(ctx, input.ProjectID, input.ID, p.UserID); err != nil {
			return nil, handleError(err)
		}
		return nil, nil
	})
}

func registerReference(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "pipeline-types-list",
		Method:      http.MethodGet,
		Path:        "/pipeline-types",
		Summary:     "Pipeline types with their stages",
		Tags:        []string{"Reference"},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body itemsBody[domain.PipelineType] `json:"body"`
	}, error) {
		items, err := e.PipelineTypes(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body itemsBody[domain.PipelineType] `json:"body"`
		}{Body: itemsBody[domain.PipelineType]{Items: items}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "pipeline-stages-list",
		Method:      http.MethodGet,
		Path:        "/pipeline-types/{id}/stages",
		Summary:     "Stages of one pipeline type, in order",
		Tags:        []string{"Reference"},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*struct {
		Body itemsBody[domain.PipelineStage] `json:"body"`
	}, error) {
		items, err := e.PipelineStages(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body itemsBody[domain.PipelineStage] `json:"body"`
		}{Body: itemsBody[domain.PipelineStage]{Items: items}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "sectors-list",
		Method:      http.MethodGet,
		Path:        "/sectors",
		Summary:     "Business sectors",
		Tags:        []string{"Reference"},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body itemsBody[domain.Sector] `json:"body"`
	}, error) {
		items, err := e.Repo.ListSectors(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body itemsBody[domain.Sector] `json:"body"`
		}{Body: itemsBody[domain.Sector]{Items: items}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "governorates-list",
		Method:      http.MethodGet,
		Path:        "/governorates",
		Summary:     "Governorates",
		Tags:        []string{"Reference"},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body itemsBody[domain.Governorate] `json:"body"`
	}, error) {
		items, err := e.Repo.ListGovernorates(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body itemsBody[domain.Governorate] `json:"body"`
		}{Body: itemsBody[domain.Governorate]{Items: items}}, nil
	})
}
