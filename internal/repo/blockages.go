package repo

import (
	"context"
	"database/sql"

	"bizdesk/internal/domain"
)

const blockageColumns = `id,project_id,title,description,priority,status,blocks_progress,assigned_to,COALESCE(expected_resolution_date,''),COALESCE(resolved_at,''),created_at`

func scanBlockage(s scanner) (domain.Blockage, error) {
	var (
		b        domain.Blockage
		blocks   int
		assigned sql.NullInt64
	)
	err := s.Scan(&b.ID, &b.ProjectID, &b.Title, &b.Description, &b.Priority, &b.Status, &blocks, &assigned, &b.ExpectedResolutionDate, &b.ResolvedAt, &b.CreatedAt)
	if err == sql.ErrNoRows {
		return b, ErrNotFound
	}
	b.BlocksProgress = blocks == 1
	b.AssignedTo = idPtr(assigned)
	return b, err
}

func (r Repo) InsertBlockage(ctx context.Context, tx *sql.Tx, b domain.Blockage) (int64, error) {
	res, err := r.q(tx).ExecContext(ctx, `INSERT INTO blockages(project_id,title,description,priority,status,blocks_progress,assigned_to,expected_resolution_date,resolved_at,created_at)
VALUES (?,?,?,?,?,?,?,?,?,?)`,
		b.ProjectID, b.Title, b.Description, b.Priority, b.Status, boolInt(b.BlocksProgress), nullableID(b.AssignedTo),
		nullable(b.ExpectedResolutionDate), nullable(b.ResolvedAt), b.CreatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) UpdateBlockage(ctx context.Context, tx *sql.Tx, b domain.Blockage) error {
	return affectedOne(r.q(tx).ExecContext(ctx, `UPDATE blockages SET title=?, description=?, priority=?, status=?, blocks_progress=?, assigned_to=?, expected_resolution_date=?, resolved_at=? WHERE id=? AND project_id=?`,
		b.Title, b.Description, b.Priority, b.Status, boolInt(b.BlocksProgress), nullableID(b.AssignedTo),
		nullable(b.ExpectedResolutionDate), nullable(b.ResolvedAt), b.ID, b.ProjectID))
}

func (r Repo) GetBlockage(ctx context.Context, tx *sql.Tx, projectID, id int64) (domain.Blockage, error) {
	return scanBlockage(r.q(tx).QueryRowContext(ctx, `SELECT `+blockageColumns+` FROM blockages WHERE id=? AND project_id=?`, id, projectID))
}

func (r Repo) DeleteBlockage(ctx context.Context, tx *sql.Tx, projectID, id int64) error {
	return affectedOne(r.q(tx).ExecContext(ctx, `DELETE FROM blockages WHERE id=? AND project_id=?`, id, projectID))
}

func (r Repo) ListBlockages(ctx context.Context, projectID int64) ([]domain.Blockage, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+blockageColumns+` FROM blockages WHERE project_id=? ORDER BY created_at DESC, id DESC`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Blockage{}
	for rows.Next() {
		b, err := scanBlockage(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, b)
	}
	return res, rows.Err()
}
