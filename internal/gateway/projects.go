package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"bizdesk/internal/domain"
)

// ProjectQuery scopes a project listing. Empty and "all" values are dropped.
type ProjectQuery struct {
	Page           int
	PerPage        int
	Status         string
	SectorID       int64
	GovernorateID  int64
	PipelineTypeID int64
	Search         string
}

func setID(v url.Values, key string, id int64) {
	if id > 0 {
		v.Set(key, strconv.FormatInt(id, 10))
	}
}

func (q ProjectQuery) Values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PerPage > 0 {
		v.Set("per_page", strconv.Itoa(q.PerPage))
	}
	setFilter(v, "status", q.Status)
	setFilter(v, "search", q.Search)
	setID(v, "sector_id", q.SectorID)
	setID(v, "governorate_id", q.GovernorateID)
	setID(v, "pipeline_type_id", q.PipelineTypeID)
	return v
}

func projectPath(id int64) string { return fmt.Sprintf("projects/%d", id) }

// ListProjects fetches one page of projects. A row whose status flags are
// ambiguous is logged and left out instead of failing the whole page.
func (c *Client) ListProjects(ctx context.Context, q ProjectQuery) (domain.Page[domain.Project], error) {
	var raw domain.Page[json.RawMessage]
	if err := c.get(ctx, "projects", q.Values(), &raw); err != nil {
		return domain.Page[domain.Project]{}, err
	}
	page := domain.Page[domain.Project]{
		Items:    make([]domain.Project, 0, len(raw.Items)),
		Page:     raw.Page,
		PerPage:  raw.PerPage,
		Total:    raw.Total,
		LastPage: raw.LastPage,
	}
	for _, item := range raw.Items {
		var p domain.Project
		if err := json.Unmarshal(item, &p); err != nil {
			if errors.Is(err, domain.ErrAmbiguousProjectStatus) {
				c.logger().Warn("skipping project row", "err", err)
				continue
			}
			return domain.Page[domain.Project]{}, err
		}
		page.Items = append(page.Items, p)
	}
	return page, nil
}

func (c *Client) GetProject(ctx context.Context, id int64) (domain.Project, error) {
	var p domain.Project
	err := c.get(ctx, projectPath(id), nil, &p)
	return p, err
}

func (c *Client) CreateProject(ctx context.Context, in domain.ProjectInput) (domain.Project, error) {
	var p domain.Project
	err := c.send(ctx, http.MethodPost, "projects", in, &p)
	return p, err
}

func (c *Client) UpdateProject(ctx context.Context, id int64, in domain.ProjectInput) (domain.Project, error) {
	var p domain.Project
	err := c.send(ctx, http.MethodPut, projectPath(id), in, &p)
	return p, err
}

func (c *Client) ChangeProjectStatus(ctx context.Context, id int64, status domain.ProjectStatus) (domain.Project, error) {
	var p domain.Project
	err := c.send(ctx, http.MethodPatch, projectPath(id)+"/status", map[string]domain.ProjectStatus{"status": status}, &p)
	return p, err
}

func (c *Client) ChangeProjectStage(ctx context.Context, id, stageID int64) (domain.Project, error) {
	var p domain.Project
	err := c.send(ctx, http.MethodPatch, projectPath(id)+"/stage", map[string]int64{"pipeline_stage_id": stageID}, &p)
	return p, err
}

func (c *Client) DeleteProject(ctx context.Context, id int64) error {
	return c.send(ctx, http.MethodDelete, projectPath(id), nil, nil)
}

func (c *Client) ProjectStats(ctx context.Context) (domain.ProjectStats, error) {
	var s domain.ProjectStats
	err := c.get(ctx, "projects/stats", nil, &s)
	return s, err
}

func (c *Client) ProjectActivities(ctx context.Context, id int64, limit int) ([]domain.Activity, error) {
	var res struct {
		Items []domain.Activity `json:"items"`
	}
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	err := c.get(ctx, projectPath(id)+"/activities", q, &res)
	return res.Items, err
}

func (c *Client) ListBlockages(ctx context.Context, projectID int64) ([]domain.Blockage, error) {
	var res struct {
		Items []domain.Blockage `json:"items"`
	}
	err := c.get(ctx, projectPath(projectID)+"/blockages", nil, &res)
	return res.Items, err
}

func (c *Client) CreateBlockage(ctx context.Context, projectID int64, in domain.BlockageInput) (domain.Blockage, error) {
	var b domain.Blockage
	err := c.send(ctx, http.MethodPost, projectPath(projectID)+"/blockages", in, &b)
	return b, err
}

func (c *Client) UpdateBlockage(ctx context.Context, projectID, id int64, in domain.BlockageInput) (domain.Blockage, error) {
	var b domain.Blockage
	err := c.send(ctx, http.MethodPut, fmt.Sprintf("%s/blockages/%d", projectPath(projectID), id), in, &b)
	return b, err
}

func (c *Client) ResolveBlockage(ctx context.Context, projectID, id int64) (domain.Blockage, error) {
	var b domain.Blockage
	err := c.send(ctx, http.MethodPost, fmt.Sprintf("%s/blockages/%d/resolve", projectPath(projectID), id), struct{}{}, &b)
	return b, err
}

func (c *Client) DeleteBlockage(ctx context.Context, projectID, id int64) error {
	return c.send(ctx, http.MethodDelete, fmt.Sprintf("%s/blockages/%d", projectPath(projectID), id), nil, nil)
}

func (c *Client) ListContacts(ctx context.Context, projectID int64) ([]domain.Contact, error) {
	var res struct {
		Items []domain.Contact `json:"items"`
	}
	err := c.get(ctx, projectPath(projectID)+"/contacts", nil, &res)
	return res.Items, err
}

func (c *Client) CreateContact(ctx context.Context, projectID int64, in domain.ContactInput) (domain.Contact, error) {
	var ct domain.Contact
	err := c.send(ctx, http.MethodPost, projectPath(projectID)+"/contacts", in, &ct)
	return ct, err
}

func (c *Client) UpdateContact(ctx context.Context, projectID, id int64, in domain.ContactInput) (domain.Contact, error) {
	var ct domain.Contact
	err := c.send(ctx, http.MethodPut, fmt.Sprintf("%s/contacts/%d", projectPath(projectID), id), in, &ct)
	return ct, err
}

func (c *Client) SetPrimaryContact(ctx context.Context, projectID, id int64) (domain.Contact, error) {
	var ct domain.Contact
	err := c.send(ctx, http.MethodPost, fmt.Sprintf("%s/contacts/%d/primary", projectPath(projectID), id), struct{}{}, &ct)
	return ct, err
}

func (c *Client) DeleteContact(ctx context.Context, projectID, id int64) error {
	return c.send(ctx, http.MethodDelete, fmt.Sprintf("%s/contacts/%d", projectPath(projectID), id), nil, nil)
}

func (c *Client) PipelineTypes(ctx context.Context) ([]domain.PipelineType, error) {
	var res struct {
		Items []domain.PipelineType `json:"items"`
	}
	err := c.get(ctx, "pipeline-types", nil, &res)
	return res.Items, err
}

func (c *Client) PipelineStages(ctx context.Context, typeID int64) ([]domain.PipelineStage, error) {
	var res struct {
		Items []domain.PipelineStage `json:"items"`
	}
	err := c.get(ctx, fmt.Sprintf("pipeline-types/%d/stages", typeID), nil, &res)
	return res.Items, err
}

func (c *Client) Sectors(ctx context.Context) ([]domain.Sector, error) {
	var res struct {
		Items []domain.Sector `json:"items"`
	}
	err := c.get(ctx, "sectors", nil, &res)
	return res.Items, err
}

func (c *Client) Governorates(ctx context.Context) ([]domain.Governorate, error) {
	var res struct {
		Items []domain.Governorate `json:"items"`
	}
	err := c.get(ctx, "governorates", nil, &res)
	return res.Items, err
}
