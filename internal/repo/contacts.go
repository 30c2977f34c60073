package repo

import (
	"context"
	"database/sql"

	"bizdesk/internal/domain"
)

const contactColumns = `id,project_id,name,title,email,phone,notes,is_primary,is_external`

func scanContact(s scanner) (domain.Contact, error) {
	var (
		c                 domain.Contact
		primary, external int
	)
	err := s.Scan(&c.ID, &c.ProjectID, &c.Name, &c.Title, &c.Email, &c.Phone, &c.Notes, &primary, &external)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	c.IsPrimary = primary == 1
	c.IsExternal = external == 1
	return c, err
}

func (r Repo) InsertContact(ctx context.Context, tx *sql.Tx, c domain.Contact) (int64, error) {
	res, err := r.q(tx).ExecContext(ctx, `INSERT INTO contacts(project_id,name,title,email,phone,notes,is_primary,is_external) VALUES (?,?,?,?,?,?,?,?)`,
		c.ProjectID, c.Name, c.Title, c.Email, c.Phone, c.Notes, boolInt(c.IsPrimary), boolInt(c.IsExternal))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) UpdateContact(ctx context.Context, tx *sql.Tx, c domain.Contact) error {
	return affectedOne(r.q(tx).ExecContext(ctx, `UPDATE contacts SET name=?, title=?, email=?, phone=?, notes=?, is_primary=?, is_external=? WHERE id=? AND project_id=?`,
		c.Name, c.Title, c.Email, c.Phone, c.Notes, boolInt(c.IsPrimary), boolInt(c.IsExternal), c.ID, c.ProjectID))
}

func (r Repo) GetContact(ctx context.Context, tx *sql.Tx, projectID, id int64) (domain.Contact, error) {
	return scanContact(r.q(tx).QueryRowContext(ctx, `SELECT `+contactColumns+` FROM contacts WHERE id=? AND project_id=?`, id, projectID))
}

func (r Repo) DeleteContact(ctx context.Context, tx *sql.Tx, projectID, id int64) error {
	return affectedOne(r.q(tx).ExecContext(ctx, `DELETE FROM contacts WHERE id=? AND project_id=?`, id, projectID))
}

// ClearPrimaryContact demotes every primary contact of a project except keep.
func (r Repo) ClearPrimaryContact(ctx context.Context, tx *sql.Tx, projectID, keep int64) error {
	_, err := r.q(tx).ExecContext(ctx, `UPDATE contacts SET is_primary=0 WHERE project_id=? AND id<>? AND is_primary=1`, projectID, keep)
	return err
}

func (r Repo) ListContacts(ctx context.Context, projectID int64) ([]domain.Contact, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+contactColumns+` FROM contacts WHERE project_id=? ORDER BY is_primary DESC, name ASC`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Contact{}
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}
