package engine

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"

	"bizdesk/internal/domain"
	"bizdesk/internal/events"
	"bizdesk/internal/repo"
)

func validateProject(p domain.Project) error {
	fe := fieldErrors{}
	if strings.TrimSpace(p.Title) == "" {
		fe.add("title", "The title field is required.")
	}
	if !p.Status.Valid() {
		fe.add("status", "The selected status is invalid.")
	}
	if p.InvestmentAmount < 0 {
		fe.add("investment_amount", "The investment amount must be at least 0.")
	}
	return fe.err()
}

func applyProjectInput(p *domain.Project, in domain.ProjectInput) {
	p.Title = valueOr(in.Title, p.Title)
	p.CompanyName = valueOr(in.CompanyName, p.CompanyName)
	p.Status = valueOr(in.Status, p.Status)
	p.InvestmentAmount = valueOr(in.InvestmentAmount, p.InvestmentAmount)
	p.Description = valueOr(in.Description, p.Description)
	if in.SectorID != nil {
		p.SectorID = idOrNil(in.SectorID)
	}
	if in.GovernorateID != nil {
		p.GovernorateID = idOrNil(in.GovernorateID)
	}
	if in.PipelineTypeID != nil {
		p.PipelineTypeID = idOrNil(in.PipelineTypeID)
	}
	if in.PipelineStageID != nil {
		p.PipelineStageID = idOrNil(in.PipelineStageID)
	}
}

var errStageOutsidePipeline = invalid("pipeline_stage_id", "The selected stage does not belong to the project's pipeline.")

// resolvePipeline keeps the stage consistent with the pipeline type. A type
// without a stage starts at its first stage; a stage without a type adopts
// the stage's type.
func (e Engine) resolvePipeline(ctx context.Context, tx *sql.Tx, p *domain.Project) error {
	if p.PipelineStageID != nil {
		stage, err := e.Repo.GetPipelineStage(ctx, tx, *p.PipelineStageID)
		if errors.Is(err, repo.ErrNotFound) {
			return invalid("pipeline_stage_id", "The selected stage is invalid.")
		}
		if err != nil {
			return err
		}
		if p.PipelineTypeID == nil {
			p.PipelineTypeID = &stage.PipelineTypeID
		} else if *p.PipelineTypeID != stage.PipelineTypeID {
			return errStageOutsidePipeline
		}
		return nil
	}
	if p.PipelineTypeID == nil {
		return nil
	}
	stages, err := e.Repo.ListPipelineStages(ctx, *p.PipelineTypeID)
	if err != nil {
		return err
	}
	if len(stages) == 0 {
		ok, err := e.Repo.PipelineTypeExists(ctx, *p.PipelineTypeID)
		if err != nil {
			return err
		}
		if !ok {
			return invalid("pipeline_type_id", "The selected pipeline type is invalid.")
		}
		return nil
	}
	sort.SliceStable(stages, func(i, j int) bool { return stages[i].Order < stages[j].Order })
	p.PipelineStageID = &stages[0].ID
	return nil
}

func (e Engine) CreateProject(ctx context.Context, in domain.ProjectInput, actorID int64) (domain.Project, error) {
	p := domain.Project{Status: domain.ProjectIdea, CreatedBy: actorID}
	applyProjectInput(&p, in)
	if err := validateProject(p); err != nil {
		return domain.Project{}, err
	}
	p.CreatedAt = e.stamp()
	p.UpdatedAt = p.CreatedAt
	var id int64
	err := e.Repo.WithTx(ctx, func(tx *sql.Tx) error {
		if err := e.resolvePipeline(ctx, tx, &p); err != nil {
			return err
		}
		var err error
		if id, err = e.Repo.InsertProject(ctx, tx, p); err != nil {
			return err
		}
		return e.Events.Append(ctx, tx, events.ProjectCreated, id, actorID, events.EventPayload{"title": p.Title, "status": p.Status})
	})
	if err != nil {
		return domain.Project{}, err
	}
	return e.Repo.GetProject(ctx, nil, id)
}

func (e Engine) UpdateProject(ctx context.Context, id int64, in domain.ProjectInput, actorID int64) (domain.Project, error) {
	var updated domain.Project
	err := e.Repo.WithTx(ctx, func(tx *sql.Tx) error {
		p, err := e.Repo.GetProject(ctx, tx, id)
		if err != nil {
			return wrapNotFound("project", id, err)
		}
		before := p
		// a new pipeline type without a stage restarts at its first stage
		if in.PipelineTypeID != nil && in.PipelineStageID == nil && !sameID(p.PipelineTypeID, in.PipelineTypeID) {
			p.PipelineStageID = nil
		}
		applyProjectInput(&p, in)
		if err := validateProject(p); err != nil {
			return err
		}
		if err := e.resolvePipeline(ctx, tx, &p); err != nil {
			return err
		}
		p.UpdatedAt = e.stamp()
		if err := e.Repo.UpdateProject(ctx, tx, p); err != nil {
			return err
		}
		updated = p
		payload := events.EventPayload{}
		if before.Status != p.Status {
			payload["status"] = map[string]any{"from": before.Status, "to": p.Status}
		}
		if !sameID(before.PipelineStageID, p.PipelineStageID) {
			payload["pipeline_stage_id"] = map[string]any{"from": before.PipelineStageID, "to": p.PipelineStageID}
		}
		return e.Events.Append(ctx, tx, events.ProjectUpdated, id, actorID, payload)
	})
	return updated, err
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (e Engine) ChangeProjectStatus(ctx context.Context, id int64, status domain.ProjectStatus, actorID int64) (domain.Project, error) {
	if !status.Valid() {
		return domain.Project{}, invalid("status", "The selected status is invalid.")
	}
	var updated domain.Project
	err := e.Repo.WithTx(ctx, func(tx *sql.Tx) error {
		p, err := e.Repo.GetProject(ctx, tx, id)
		if err != nil {
			return wrapNotFound("project", id, err)
		}
		from := p.Status
		p.Status = status
		p.UpdatedAt = e.stamp()
		if err := e.Repo.UpdateProject(ctx, tx, p); err != nil {
			return err
		}
		updated = p
		return e.Events.Append(ctx, tx, events.ProjectStatus, id, actorID, events.EventPayload{"from": from, "to": status})
	})
	return updated, err
}

// ChangeProjectStage moves a project to a stage of its own pipeline type.
func (e Engine) ChangeProjectStage(ctx context.Context, id, stageID int64, actorID int64) (domain.Project, error) {
	var updated domain.Project
	err := e.Repo.WithTx(ctx, func(tx *sql.Tx) error {
		p, err := e.Repo.GetProject(ctx, tx, id)
		if err != nil {
			return wrapNotFound("project", id, err)
		}
		if p.PipelineTypeID == nil {
			return invalid("pipeline_type_id", "The project has no pipeline type.")
		}
		stage, err := e.Repo.GetPipelineStage(ctx, tx, stageID)
		if errors.Is(err, repo.ErrNotFound) {
			return invalid("pipeline_stage_id", "The selected stage is invalid.")
		}
		if err != nil {
			return err
		}
		if stage.PipelineTypeID != *p.PipelineTypeID {
			return errStageOutsidePipeline
		}
		from := p.PipelineStageID
		p.PipelineStageID = &stage.ID
		p.UpdatedAt = e.stamp()
		if err := e.Repo.UpdateProject(ctx, tx, p); err != nil {
			return err
		}
		updated = p
		return e.Events.Append(ctx, tx, events.ProjectStage, id, actorID, events.EventPayload{"from": from, "to": stage.ID, "stage": stage.Name})
	})
	return updated, err
}

func (e Engine) GetProject(ctx context.Context, id int64) (domain.Project, error) {
	p, err := e.Repo.GetProject(ctx, nil, id)
	return p, wrapNotFound("project", id, err)
}

func (e Engine) DeleteProject(ctx context.Context, id int64) error {
	return wrapNotFound("project", id, e.Repo.DeleteProject(ctx, id))
}

func (e Engine) ListProjects(ctx context.Context, f repo.ProjectFilters) (domain.Page[domain.Project], error) {
	if f.Status != "" && !domain.ProjectStatus(f.Status).Valid() {
		return domain.Page[domain.Project]{}, invalid("status", "The selected status is invalid.")
	}
	return e.Repo.ListProjects(ctx, f)
}

func (e Engine) ProjectStats(ctx context.Context) (domain.ProjectStats, error) {
	return e.Repo.ProjectStats(ctx)
}

func (e Engine) ProjectActivities(ctx context.Context, id int64, limit int) ([]domain.Activity, error) {
	if _, err := e.GetProject(ctx, id); err != nil {
		return nil, err
	}
	return e.Events.List(ctx, id, limit)
}

func (e Engine) PipelineTypes(ctx context.Context) ([]domain.PipelineType, error) {
	return e.Repo.ListPipelineTypes(ctx)
}

func (e Engine) PipelineStages(ctx context.Context, typeID int64) ([]domain.PipelineStage, error) {
	ok, err := e.Repo.PipelineTypeExists(ctx, typeID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, wrapNotFound("pipeline type", typeID, repo.ErrNotFound)
	}
	return e.Repo.ListPipelineStages(ctx, typeID)
}
