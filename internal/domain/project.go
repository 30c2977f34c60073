package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ProjectStatus is the single derived status of a project. The API exposes it
// as three booleans; they are collapsed here so that no two can hold at once.
type ProjectStatus string

const (
	ProjectStatusUnset  ProjectStatus = ""
	ProjectIdea         ProjectStatus = "idea"
	ProjectInProgress   ProjectStatus = "in_progress"
	ProjectInProduction ProjectStatus = "in_production"
)

var ProjectStatuses = []ProjectStatus{ProjectIdea, ProjectInProgress, ProjectInProduction}

func (s ProjectStatus) Valid() bool { return contains(ProjectStatuses, s) }

// ErrAmbiguousProjectStatus is returned when more than one status flag is set.
var ErrAmbiguousProjectStatus = errors.New("ambiguous project status: more than one status flag set")

// ProjectStatusFromFlags collapses the wire flags into a ProjectStatus.
func ProjectStatusFromFlags(idea, inProgress, inProduction bool) (ProjectStatus, error) {
	var (
		set    int
		status ProjectStatus
	)
	if idea {
		set++
		status = ProjectIdea
	}
	if inProgress {
		set++
		status = ProjectInProgress
	}
	if inProduction {
		set++
		status = ProjectInProduction
	}
	if set > 1 {
		return ProjectStatusUnset, fmt.Errorf("%w (idea=%t in_progress=%t in_production=%t)", ErrAmbiguousProjectStatus, idea, inProgress, inProduction)
	}
	return status, nil
}

// Flags expands the status back into the wire booleans.
func (s ProjectStatus) Flags() (idea, inProgress, inProduction bool) {
	return s == ProjectIdea, s == ProjectInProgress, s == ProjectInProduction
}

type Project struct {
	ID               int64         `json:"id"`
	Title            string        `json:"title"`
	CompanyName      string        `json:"company_name"`
	SectorID         *int64        `json:"sector_id,omitempty"`
	GovernorateID    *int64        `json:"governorate_id,omitempty"`
	PipelineTypeID   *int64        `json:"pipeline_type_id,omitempty"`
	PipelineStageID  *int64        `json:"pipeline_stage_id,omitempty"`
	Status           ProjectStatus `json:"-"`
	InvestmentAmount float64       `json:"investment_amount"`
	Description      string        `json:"description,omitempty"`
	CreatedBy        int64         `json:"created_by,omitempty"`
	CreatedAt        string        `json:"created_at,omitempty"`
	UpdatedAt        string        `json:"updated_at,omitempty"`
}

func (p Project) Key() int64 { return p.ID }

type projectStatusFlags struct {
	IsIdea         bool `json:"is_idea"`
	IsInProgress   bool `json:"is_in_progress"`
	IsInProduction bool `json:"is_in_production"`
}

type projectAlias Project

type projectWire struct {
	projectAlias
	projectStatusFlags
}

func (p *Project) UnmarshalJSON(data []byte) error {
	var w projectWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	status, err := ProjectStatusFromFlags(w.IsIdea, w.IsInProgress, w.IsInProduction)
	if err != nil {
		return fmt.Errorf("project %d: %w", w.ID, err)
	}
	*p = Project(w.projectAlias)
	p.Status = status
	return nil
}

func (p Project) MarshalJSON() ([]byte, error) {
	idea, inProgress, inProduction := p.Status.Flags()
	return json.Marshal(projectWire{
		projectAlias:       projectAlias(p),
		projectStatusFlags: projectStatusFlags{IsIdea: idea, IsInProgress: inProgress, IsInProduction: inProduction},
	})
}
