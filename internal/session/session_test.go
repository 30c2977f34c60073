package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizdesk/internal/db"
	"bizdesk/internal/domain"
	"bizdesk/internal/migrate"
	"bizdesk/internal/session"
)

func newSQLStore(t *testing.T) session.SQLStore {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir(), Name: db.ClientDB})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(context.Background(), conn, migrate.Client))
	return session.SQLStore{DB: conn}
}

func TestLifecycle(t *testing.T) {
	ctx := context.Background()
	s := session.New(nil, nil)
	assert.Equal(t, session.Absent, s.State())
	_, ok := s.Token()
	assert.False(t, ok)

	require.NoError(t, s.Issue(ctx, "tok-1", domain.User{ID: 1, Email: "a@example.com"}))
	assert.Equal(t, session.Issued, s.State())
	tok, ok := s.Token()
	assert.True(t, ok)
	assert.Equal(t, "tok-1", tok)

	var reasons []string
	s.OnInvalidate(func(reason string) { reasons = append(reasons, reason) })
	require.NoError(t, s.Invalidate(ctx, "401"))
	require.NoError(t, s.Invalidate(ctx, "again"))
	assert.Equal(t, session.Invalidated, s.State())
	assert.Equal(t, []string{"401"}, reasons)
	_, ok = s.Token()
	assert.False(t, ok)
}

func TestInvalidateClearsStoreAndScratch(t *testing.T) {
	ctx := context.Background()
	store := newSQLStore(t)
	s := session.New(store, store)
	require.NoError(t, s.Issue(ctx, "tok", domain.User{ID: 7}))
	require.NoError(t, s.Scratch().Put(ctx, "2fa", []byte("secret")))

	restored := session.New(store, store)
	require.NoError(t, restored.Restore(ctx))
	assert.Equal(t, session.Issued, restored.State())
	assert.Equal(t, s.ID(), restored.ID())
	v, ok, err := restored.Scratch().Get(ctx, "2fa")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "secret", string(v))

	require.NoError(t, restored.Invalidate(ctx, "logout"))
	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, session.ErrNoCredentials)
	_, ok, err = store.Get(ctx, s.ID(), "2fa")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLScratchExpires(t *testing.T) {
	ctx := context.Background()
	store := newSQLStore(t)
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	store.Now = func() time.Time { return now }
	store.TTL = time.Minute
	require.NoError(t, store.Put(ctx, "s1", "k", []byte("v")))
	_, ok, err := store.Get(ctx, "s1", "k")
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok, err = store.Get(ctx, "s1", "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryScratchIsolatesSessions(t *testing.T) {
	ctx := context.Background()
	m := session.NewMemoryScratch(8, 0)
	require.NoError(t, m.Put(ctx, "a", "k", []byte("1")))
	require.NoError(t, m.Put(ctx, "b", "k", []byte("2")))
	require.NoError(t, m.DeleteSession(ctx, "a"))
	_, ok, _ := m.Get(ctx, "a", "k")
	assert.False(t, ok)
	v, ok, _ := m.Get(ctx, "b", "k")
	assert.True(t, ok)
	assert.Equal(t, "2", string(v))
}
