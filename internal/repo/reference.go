package repo

import (
	"context"
	"database/sql"

	"bizdesk/internal/domain"
)

func (r Repo) InsertSector(ctx context.Context, name string) (int64, error) {
	return r.insertNamed(ctx, `INSERT INTO sectors(name) VALUES (?)`, name)
}

func (r Repo) InsertGovernorate(ctx context.Context, name string) (int64, error) {
	return r.insertNamed(ctx, `INSERT INTO governorates(name) VALUES (?)`, name)
}

func (r Repo) InsertPipelineType(ctx context.Context, name string) (int64, error) {
	return r.insertNamed(ctx, `INSERT INTO pipeline_types(name) VALUES (?)`, name)
}

func (r Repo) insertNamed(ctx context.Context, query, name string) (int64, error) {
	res, err := r.DB.ExecContext(ctx, query, name)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) InsertPipelineStage(ctx context.Context, s domain.PipelineStage) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO pipeline_stages(pipeline_type_id,name,stage_order,color) VALUES (?,?,?,?)`,
		s.PipelineTypeID, s.Name, s.Order, s.Color)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) ListSectors(ctx context.Context) ([]domain.Sector, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name FROM sectors ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Sector{}
	for rows.Next() {
		var s domain.Sector
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

func (r Repo) ListGovernorates(ctx context.Context) ([]domain.Governorate, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name FROM governorates ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Governorate{}
	for rows.Next() {
		var g domain.Governorate
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, err
		}
		res = append(res, g)
	}
	return res, rows.Err()
}

// ListPipelineTypes returns every type with its stages attached.
func (r Repo) ListPipelineTypes(ctx context.Context) ([]domain.PipelineType, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name FROM pipeline_types ORDER BY id`)
	if err != nil {
		return nil, err
	}
	types := []domain.PipelineType{}
	for rows.Next() {
		var t domain.PipelineType
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			rows.Close()
			return nil, err
		}
		types = append(types, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range types {
		stages, err := r.ListPipelineStages(ctx, types[i].ID)
		if err != nil {
			return nil, err
		}
		types[i].Stages = stages
	}
	return types, nil
}

func (r Repo) PipelineTypeExists(ctx context.Context, id int64) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT 1 FROM pipeline_types WHERE id=?`, id).Scan(&n)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

// ListPipelineStages returns the stages of a type in stored order; callers
// that need display order sort by Order.
func (r Repo) ListPipelineStages(ctx context.Context, typeID int64) ([]domain.PipelineStage, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,pipeline_type_id,name,stage_order,color FROM pipeline_stages WHERE pipeline_type_id=? ORDER BY id`, typeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.PipelineStage{}
	for rows.Next() {
		var s domain.PipelineStage
		if err := rows.Scan(&s.ID, &s.PipelineTypeID, &s.Name, &s.Order, &s.Color); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

func (r Repo) GetPipelineStage(ctx context.Context, tx *sql.Tx, id int64) (domain.PipelineStage, error) {
	var s domain.PipelineStage
	err := r.q(tx).QueryRowContext(ctx, `SELECT id,pipeline_type_id,name,stage_order,color FROM pipeline_stages WHERE id=?`, id).
		Scan(&s.ID, &s.PipelineTypeID, &s.Name, &s.Order, &s.Color)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	return s, err
}

// CountReference reports how many rows of the reference tables exist.
func (r Repo) CountReference(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT (SELECT COUNT(*) FROM sectors)+(SELECT COUNT(*) FROM governorates)+(SELECT COUNT(*) FROM pipeline_types)`).Scan(&n)
	return n, err
}
