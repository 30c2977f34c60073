package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"bizdesk/internal/domain"
)

// UserRecord is a user row including credentials.
type UserRecord struct {
	domain.User
	PasswordHash     string
	TwoFactorSecret  string
	TwoFactorPending string
	CreatedAt        string
}

var ErrEmailTaken = errors.New("email already registered")

const userColumns = `id,name,email,password_hash,COALESCE(two_factor_secret,''),COALESCE(two_factor_pending,''),two_factor_enabled,created_at`

func scanUser(row *sql.Row) (UserRecord, error) {
	var u UserRecord
	var enabled int
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.TwoFactorSecret, &u.TwoFactorPending, &enabled, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return u, ErrNotFound
	}
	u.TwoFactorEnabled = enabled == 1
	return u, err
}

func (r Repo) InsertUser(ctx context.Context, u UserRecord) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO users(name,email,password_hash,created_at) VALUES (?,?,?,?)`,
		u.Name, strings.ToLower(u.Email), u.PasswordHash, u.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return 0, ErrEmailTaken
		}
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) GetUser(ctx context.Context, id int64) (UserRecord, error) {
	return scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=?`, id))
}

func (r Repo) GetUserByEmail(ctx context.Context, email string) (UserRecord, error) {
	return scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email=?`, strings.ToLower(strings.TrimSpace(email))))
}

// SetTwoFactorPending stores a provisioned secret awaiting verification.
func (r Repo) SetTwoFactorPending(ctx context.Context, userID int64, secret string) error {
	return affectedOne(r.DB.ExecContext(ctx, `UPDATE users SET two_factor_pending=? WHERE id=?`, nullable(secret), userID))
}

// EnableTwoFactor promotes the pending secret.
func (r Repo) EnableTwoFactor(ctx context.Context, userID int64) error {
	return affectedOne(r.DB.ExecContext(ctx, `UPDATE users SET two_factor_secret=two_factor_pending, two_factor_pending=NULL, two_factor_enabled=1 WHERE id=? AND two_factor_pending IS NOT NULL`, userID))
}

func (r Repo) DisableTwoFactor(ctx context.Context, userID int64) error {
	return affectedOne(r.DB.ExecContext(ctx, `UPDATE users SET two_factor_secret=NULL, two_factor_pending=NULL, two_factor_enabled=0 WHERE id=?`, userID))
}

func (r Repo) RevokeToken(ctx context.Context, jti, at string) error {
	_, err := r.DB.ExecContext(ctx, `INSERT OR IGNORE INTO revoked_tokens(jti,revoked_at) VALUES (?,?)`, jti, at)
	return err
}

func (r Repo) TokenRevoked(ctx context.Context, jti string) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT 1 FROM revoked_tokens WHERE jti=?`, jti).Scan(&n)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}
