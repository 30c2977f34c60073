package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"bizdesk/internal/domain"
	"bizdesk/internal/gateway"
	"bizdesk/internal/pipeline"
)

type ProjectAPI interface {
	ListProjects(ctx context.Context, q gateway.ProjectQuery) (domain.Page[domain.Project], error)
	GetProject(ctx context.Context, id int64) (domain.Project, error)
	CreateProject(ctx context.Context, in domain.ProjectInput) (domain.Project, error)
	UpdateProject(ctx context.Context, id int64, in domain.ProjectInput) (domain.Project, error)
	ChangeProjectStatus(ctx context.Context, id int64, status domain.ProjectStatus) (domain.Project, error)
	ChangeProjectStage(ctx context.Context, id, stageID int64) (domain.Project, error)
	DeleteProject(ctx context.Context, id int64) error
	ProjectStats(ctx context.Context) (domain.ProjectStats, error)
	ProjectActivities(ctx context.Context, id int64, limit int) ([]domain.Activity, error)
	PipelineTypes(ctx context.Context) ([]domain.PipelineType, error)

	ListBlockages(ctx context.Context, projectID int64) ([]domain.Blockage, error)
	CreateBlockage(ctx context.Context, projectID int64, in domain.BlockageInput) (domain.Blockage, error)
	UpdateBlockage(ctx context.Context, projectID, id int64, in domain.BlockageInput) (domain.Blockage, error)
	ResolveBlockage(ctx context.Context, projectID, id int64) (domain.Blockage, error)
	DeleteBlockage(ctx context.Context, projectID, id int64) error

	ListContacts(ctx context.Context, projectID int64) ([]domain.Contact, error)
	CreateContact(ctx context.Context, projectID int64, in domain.ContactInput) (domain.Contact, error)
	UpdateContact(ctx context.Context, projectID, id int64, in domain.ContactInput) (domain.Contact, error)
	SetPrimaryContact(ctx context.Context, projectID, id int64) (domain.Contact, error)
	DeleteContact(ctx context.Context, projectID, id int64) error
}

var (
	ErrStageNotInPipeline = errors.New("stage does not belong to the project's pipeline type")
	ErrNoPipelineType     = errors.New("project has no pipeline type")
	ErrAlreadyResolved    = errors.New("blockage already resolved")
)

// ProjectStore caches projects plus the blockages and contacts of each.
type ProjectStore struct {
	*Cache[domain.Project]
	api    ProjectAPI
	Logger *slog.Logger

	mu        sync.Mutex
	types     []domain.PipelineType
	blockages map[int64]*Cache[domain.Blockage]
	contacts  map[int64]*Cache[domain.Contact]
}

func NewProjectStore(api ProjectAPI) *ProjectStore {
	return &ProjectStore{
		Cache:     NewCache[domain.Project](),
		api:       api,
		blockages: map[int64]*Cache[domain.Blockage]{},
		contacts:  map[int64]*Cache[domain.Contact]{},
	}
}

func (s *ProjectStore) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *ProjectStore) Fetch(ctx context.Context, q gateway.ProjectQuery) (domain.Page[domain.Project], error) {
	ticket := s.BeginList()
	page, err := s.api.ListProjects(ctx, q)
	if err != nil {
		if staleErr := s.FailList(ticket, err); staleErr != nil {
			return domain.Page[domain.Project]{}, staleErr
		}
		return domain.Page[domain.Project]{}, err
	}
	if err := s.ApplyList(ticket, page); err != nil {
		s.logger().Debug("discarding superseded project list", "query", q.Values().Encode())
		return domain.Page[domain.Project]{}, err
	}
	return page, nil
}

func (s *ProjectStore) Load(ctx context.Context, id int64) (domain.Project, error) {
	p, err := s.api.GetProject(ctx, id)
	if err != nil {
		return domain.Project{}, err
	}
	s.Select(p)
	if _, ok := s.Item(id); ok {
		s.Upsert(p)
	}
	return p, nil
}

func runOp[T Entity](c *Cache[T], op OpType, target int64, fn func() error) error {
	if err := c.Begin(op, target); err != nil {
		return err
	}
	err := fn()
	c.Finish(op, target, err)
	return err
}

func (s *ProjectStore) Create(ctx context.Context, in domain.ProjectInput) (domain.Project, error) {
	var created domain.Project
	err := runOp(s.Cache, OpCreate, 0, func() error {
		p, err := s.api.CreateProject(ctx, in)
		if err != nil {
			return err
		}
		created = p
		s.Upsert(p)
		s.Select(p)
		return nil
	})
	return created, err
}

func (s *ProjectStore) Update(ctx context.Context, id int64, in domain.ProjectInput) (domain.Project, error) {
	var updated domain.Project
	err := runOp(s.Cache, OpUpdate, id, func() error {
		p, err := s.api.UpdateProject(ctx, id, in)
		if err != nil {
			return err
		}
		updated = p
		s.Upsert(p)
		return nil
	})
	return updated, err
}

func (s *ProjectStore) ChangeStatus(ctx context.Context, id int64, status domain.ProjectStatus) (domain.Project, error) {
	var updated domain.Project
	err := runOp(s.Cache, OpStatus, id, func() error {
		if !status.Valid() {
			return &gateway.Error{Kind: gateway.KindValidation, Message: "invalid status", Fields: map[string][]string{"status": {"unknown status " + string(status)}}}
		}
		p, err := s.api.ChangeProjectStatus(ctx, id, status)
		if err != nil {
			return err
		}
		updated = p
		s.Upsert(p)
		return nil
	})
	return updated, err
}

// PipelineTypes returns the pipeline types, loading them once.
func (s *ProjectStore) PipelineTypes(ctx context.Context) ([]domain.PipelineType, error) {
	s.mu.Lock()
	cached := s.types
	s.mu.Unlock()
	if cached != nil {
		return cached, nil
	}
	types, err := s.api.PipelineTypes(ctx)
	if err != nil {
		return nil, err
	}
	if types == nil {
		types = []domain.PipelineType{}
	}
	s.mu.Lock()
	s.types = types
	s.mu.Unlock()
	return types, nil
}

// Stages returns the stages of a pipeline type sorted by order.
func (s *ProjectStore) Stages(ctx context.Context, typeID int64) ([]domain.PipelineStage, error) {
	types, err := s.PipelineTypes(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range types {
		if t.ID == typeID {
			return pipeline.Sorted(t.Stages), nil
		}
	}
	return nil, fmt.Errorf("pipeline type %d not found", typeID)
}

// Progress builds the pipeline view of a project.
func (s *ProjectStore) Progress(ctx context.Context, p domain.Project) (pipeline.View, error) {
	if p.PipelineTypeID == nil {
		return pipeline.View{}, ErrNoPipelineType
	}
	stages, err := s.Stages(ctx, *p.PipelineTypeID)
	if err != nil {
		return pipeline.View{}, err
	}
	return pipeline.Progress(stages, p.PipelineStageID), nil
}

// ChangeStage moves a project to another stage of its pipeline type. Stages
// from another pipeline are rejected before any request is sent.
func (s *ProjectStore) ChangeStage(ctx context.Context, id, stageID int64) (domain.Project, error) {
	var updated domain.Project
	err := runOp(s.Cache, OpStage, id, func() error {
		p, ok := s.Item(id)
		if sel, selOK := s.Selected(); !ok && selOK && sel.ID == id {
			p, ok = sel, true
		}
		if !ok {
			loaded, err := s.api.GetProject(ctx, id)
			if err != nil {
				return err
			}
			p = loaded
		}
		if p.PipelineTypeID == nil {
			return ErrNoPipelineType
		}
		stages, err := s.Stages(ctx, *p.PipelineTypeID)
		if err != nil {
			return err
		}
		if !pipeline.ContainsStage(stages, stageID) {
			return fmt.Errorf("stage %d: %w", stageID, ErrStageNotInPipeline)
		}
		res, err := s.api.ChangeProjectStage(ctx, id, stageID)
		if err != nil {
			return err
		}
		updated = res
		s.Upsert(res)
		return nil
	})
	return updated, err
}

func (s *ProjectStore) Delete(ctx context.Context, id int64) error {
	return runOp(s.Cache, OpDelete, id, func() error {
		if err := s.api.DeleteProject(ctx, id); err != nil {
			return err
		}
		s.Remove(id)
		s.mu.Lock()
		delete(s.blockages, id)
		delete(s.contacts, id)
		s.mu.Unlock()
		return nil
	})
}

func (s *ProjectStore) Stats(ctx context.Context) (domain.ProjectStats, error) {
	return s.api.ProjectStats(ctx)
}

func (s *ProjectStore) Activities(ctx context.Context, id int64, limit int) ([]domain.Activity, error) {
	return s.api.ProjectActivities(ctx, id, limit)
}
