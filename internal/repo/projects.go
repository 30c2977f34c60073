package repo

import (
	"context"
	"database/sql"

	"bizdesk/internal/domain"
)

type ProjectFilters struct {
	Status         string
	SectorID       int64
	GovernorateID  int64
	PipelineTypeID int64
	Search         string
	Pagination
}

const projectColumns = `id,title,company_name,sector_id,governorate_id,pipeline_type_id,pipeline_stage_id,status,investment_amount,description,created_by,created_at,updated_at`

func scanProject(s scanner) (domain.Project, error) {
	var (
		p                                domain.Project
		sector, gov, pipeType, pipeStage sql.NullInt64
	)
	err := s.Scan(&p.ID, &p.Title, &p.CompanyName, &sector, &gov, &pipeType, &pipeStage, &p.Status, &p.InvestmentAmount, &p.Description, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	p.SectorID = idPtr(sector)
	p.GovernorateID = idPtr(gov)
	p.PipelineTypeID = idPtr(pipeType)
	p.PipelineStageID = idPtr(pipeStage)
	return p, err
}

func (r Repo) InsertProject(ctx context.Context, tx *sql.Tx, p domain.Project) (int64, error) {
	res, err := r.q(tx).ExecContext(ctx, `INSERT INTO projects(title,company_name,sector_id,governorate_id,pipeline_type_id,pipeline_stage_id,status,investment_amount,description,created_by,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.Title, p.CompanyName, nullableID(p.SectorID), nullableID(p.GovernorateID), nullableID(p.PipelineTypeID), nullableID(p.PipelineStageID),
		p.Status, p.InvestmentAmount, p.Description, p.CreatedBy, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) UpdateProject(ctx context.Context, tx *sql.Tx, p domain.Project) error {
	return affectedOne(r.q(tx).ExecContext(ctx, `UPDATE projects SET title=?, company_name=?, sector_id=?, governorate_id=?, pipeline_type_id=?, pipeline_stage_id=?, status=?, investment_amount=?, description=?, updated_at=? WHERE id=?`,
		p.Title, p.CompanyName, nullableID(p.SectorID), nullableID(p.GovernorateID), nullableID(p.PipelineTypeID), nullableID(p.PipelineStageID),
		p.Status, p.InvestmentAmount, p.Description, p.UpdatedAt, p.ID))
}

func (r Repo) GetProject(ctx context.Context, tx *sql.Tx, id int64) (domain.Project, error) {
	return scanProject(r.q(tx).QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id=?`, id))
}

func (r Repo) DeleteProject(ctx context.Context, id int64) error {
	return affectedOne(r.DB.ExecContext(ctx, `DELETE FROM projects WHERE id=?`, id))
}

func (f ProjectFilters) where() where {
	var w where
	if f.Status != "" {
		w.add("status=?", f.Status)
	}
	if f.SectorID != 0 {
		w.add("sector_id=?", f.SectorID)
	}
	if f.GovernorateID != 0 {
		w.add("governorate_id=?", f.GovernorateID)
	}
	if f.PipelineTypeID != 0 {
		w.add("pipeline_type_id=?", f.PipelineTypeID)
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		w.add("(title LIKE ? OR company_name LIKE ?)", like, like)
	}
	return w
}

// ListProjects returns one page, newest first.
func (r Repo) ListProjects(ctx context.Context, f ProjectFilters) (domain.Page[domain.Project], error) {
	p := f.Pagination.normalize()
	w := f.where()
	page := domain.Page[domain.Project]{Page: p.Page, PerPage: p.PerPage, Items: []domain.Project{}}
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects`+w.String(), w.args...).Scan(&page.Total); err != nil {
		return page, err
	}
	page.LastPage = lastPage(page.Total, p.PerPage)
	args := append(append([]any{}, w.args...), p.PerPage, p.offset())
	rows, err := r.DB.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects`+w.String()+` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return page, err
	}
	defer rows.Close()
	for rows.Next() {
		pr, err := scanProject(rows)
		if err != nil {
			return page, err
		}
		page.Items = append(page.Items, pr)
	}
	return page, rows.Err()
}

func (r Repo) ProjectStats(ctx context.Context) (domain.ProjectStats, error) {
	stats := domain.ProjectStats{
		ByStatus: map[domain.ProjectStatus]int{},
		ByStage:  map[string]int{},
		BySector: map[string]int{},
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT status, COUNT(*), COALESCE(SUM(investment_amount),0) FROM projects GROUP BY status`)
	if err != nil {
		return stats, err
	}
	for rows.Next() {
		var (
			status domain.ProjectStatus
			n      int
			amount float64
		)
		if err := rows.Scan(&status, &n, &amount); err != nil {
			rows.Close()
			return stats, err
		}
		stats.Total += n
		stats.ByStatus[status] = n
		stats.TotalInvestment += amount
	}
	rows.Close()

	if err := r.countInto(ctx, stats.ByStage, `SELECT COALESCE(s.name,'(none)'), COUNT(*) FROM projects p LEFT JOIN pipeline_stages s ON s.id=p.pipeline_stage_id GROUP BY 1`); err != nil {
		return stats, err
	}
	if err := r.countInto(ctx, stats.BySector, `SELECT COALESCE(s.name,'(none)'), COUNT(*) FROM projects p LEFT JOIN sectors s ON s.id=p.sector_id GROUP BY 1`); err != nil {
		return stats, err
	}
	err = r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM blockages WHERE status<>?`, domain.BlockageResolved).Scan(&stats.OpenBlockages)
	return stats, err
}

func (r Repo) countInto(ctx context.Context, into map[string]int, query string) error {
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			name string
			n    int
		)
		if err := rows.Scan(&name, &n); err != nil {
			return err
		}
		into[name] = n
	}
	return rows.Err()
}
