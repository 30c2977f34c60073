package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SQLStore persists credentials and session scratch in the client database.
// Scratch rows older than TTL are ignored and pruned on write.
type SQLStore struct {
	DB  *sql.DB
	TTL time.Duration
	Now func() time.Time
}

func (s SQLStore) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s SQLStore) ttl() time.Duration {
	if s.TTL <= 0 {
		return 12 * time.Hour
	}
	return s.TTL
}

func (s SQLStore) Load(ctx context.Context) (Credentials, error) {
	var (
		c        Credentials
		userJSON string
		issuedAt string
	)
	err := s.DB.QueryRowContext(ctx, `SELECT session_id, token, user_json, issued_at FROM credentials WHERE id=1`).
		Scan(&c.SessionID, &c.Token, &userJSON, &issuedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Credentials{}, ErrNoCredentials
	}
	if err != nil {
		return Credentials{}, err
	}
	if err := json.Unmarshal([]byte(userJSON), &c.User); err != nil {
		return Credentials{}, fmt.Errorf("decode stored user: %w", err)
	}
	if c.IssuedAt, err = time.Parse(time.RFC3339, issuedAt); err != nil {
		return Credentials{}, fmt.Errorf("decode issued_at: %w", err)
	}
	return c, nil
}

func (s SQLStore) Save(ctx context.Context, c Credentials) error {
	userJSON, err := json.Marshal(c.User)
	if err != nil {
		return err
	}
	_, err = s.DB.ExecContext(ctx, `
INSERT INTO credentials(id, session_id, token, user_json, issued_at) VALUES (1,?,?,?,?)
ON CONFLICT(id) DO UPDATE SET session_id=excluded.session_id, token=excluded.token,
  user_json=excluded.user_json, issued_at=excluded.issued_at`,
		c.SessionID, c.Token, string(userJSON), c.IssuedAt.UTC().Format(time.RFC3339))
	return err
}

func (s SQLStore) Clear(ctx context.Context) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM credentials`)
	return err
}

func (s SQLStore) Get(ctx context.Context, sessionID, key string) ([]byte, bool, error) {
	var value []byte
	err := s.DB.QueryRowContext(ctx, `SELECT value FROM session_scratch WHERE session_id=? AND key=? AND expires_at>?`,
		sessionID, key, s.now().Format(time.RFC3339)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (s SQLStore) Put(ctx context.Context, sessionID, key string, value []byte) error {
	now := s.now()
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM session_scratch WHERE expires_at<=?`, now.Format(time.RFC3339)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
INSERT INTO session_scratch(session_id, key, value, expires_at) VALUES (?,?,?,?)
ON CONFLICT(session_id, key) DO UPDATE SET value=excluded.value, expires_at=excluded.expires_at`,
		sessionID, key, value, now.Add(s.ttl()).Format(time.RFC3339)); err != nil {
		return err
	}
	return tx.Commit()
}

func (s SQLStore) Delete(ctx context.Context, sessionID, key string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM session_scratch WHERE session_id=? AND key=?`, sessionID, key)
	return err
}

func (s SQLStore) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM session_scratch WHERE session_id=?`, sessionID)
	return err
}
