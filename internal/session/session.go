// Package session holds the authentication state of the client: the bearer
// token, the user it belongs to and the session-scoped scratch space.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"bizdesk/internal/domain"
)

// State is the token lifecycle: absent -> issued -> invalidated.
type State int

const (
	Absent State = iota
	Issued
	Invalidated
)

func (s State) String() string {
	switch s {
	case Issued:
		return "issued"
	case Invalidated:
		return "invalidated"
	default:
		return "absent"
	}
}

// ErrNoCredentials is returned by a TokenStore that holds nothing.
var ErrNoCredentials = errors.New("no stored credentials")

type Credentials struct {
	SessionID string
	Token     string
	User      domain.User
	IssuedAt  time.Time
}

// TokenStore persists credentials across process runs.
type TokenStore interface {
	Load(ctx context.Context) (Credentials, error)
	Save(ctx context.Context, c Credentials) error
	Clear(ctx context.Context) error
}

// Scratch is storage whose entries live only as long as a session.
type Scratch interface {
	Get(ctx context.Context, sessionID, key string) ([]byte, bool, error)
	Put(ctx context.Context, sessionID, key string, value []byte) error
	Delete(ctx context.Context, sessionID, key string) error
	DeleteSession(ctx context.Context, sessionID string) error
}

// Session is passed explicitly to everything that talks to the API.
type Session struct {
	mu      sync.RWMutex
	state   State
	creds   Credentials
	store   TokenStore
	scratch Scratch
	hooks   []func(reason string)

	Logger *slog.Logger
	Now    func() time.Time
}

// New returns an absent session. store and scratch may be nil.
func New(store TokenStore, scratch Scratch) *Session {
	if scratch == nil {
		scratch = NewMemoryScratch(64, 0)
	}
	return &Session{store: store, scratch: scratch}
}

func (s *Session) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *Session) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Restore loads stored credentials. A missing row leaves the session absent.
func (s *Session) Restore(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	creds, err := s.store.Load(ctx)
	if errors.Is(err, ErrNoCredentials) {
		return nil
	}
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.creds = creds
	s.state = Issued
	s.mu.Unlock()
	return nil
}

// Issue stores a freshly obtained token and starts a new session scope.
func (s *Session) Issue(ctx context.Context, token string, user domain.User) error {
	if token == "" {
		return errors.New("empty token")
	}
	creds := Credentials{
		SessionID: uuid.NewString(),
		Token:     token,
		User:      user,
		IssuedAt:  s.now().UTC(),
	}
	if s.store != nil {
		if err := s.store.Save(ctx, creds); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.creds = creds
	s.state = Issued
	s.mu.Unlock()
	s.logger().Debug("session issued", "user", user.Email, "session", creds.SessionID)
	return nil
}

// SetUser refreshes the cached user without touching the token.
func (s *Session) SetUser(ctx context.Context, user domain.User) error {
	s.mu.Lock()
	if s.state != Issued {
		s.mu.Unlock()
		return nil
	}
	s.creds.User = user
	creds := s.creds
	s.mu.Unlock()
	if s.store != nil {
		return s.store.Save(ctx, creds)
	}
	return nil
}

// Token returns the bearer token while the session is issued.
func (s *Session) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != Issued {
		return "", false
	}
	return s.creds.Token, true
}

func (s *Session) User() (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.User, s.state == Issued
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// ID identifies the current session scope; empty before any login.
func (s *Session) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.SessionID
}

// OnInvalidate registers fn to run after every invalidation.
func (s *Session) OnInvalidate(fn func(reason string)) {
	s.mu.Lock()
	s.hooks = append(s.hooks, fn)
	s.mu.Unlock()
}

// Invalidate drops the token, the stored credentials and the session scratch.
// Calling it on a session that is not issued is a no-op.
func (s *Session) Invalidate(ctx context.Context, reason string) error {
	s.mu.Lock()
	if s.state != Issued {
		s.mu.Unlock()
		return nil
	}
	sessionID := s.creds.SessionID
	s.creds = Credentials{}
	s.state = Invalidated
	hooks := append([]func(string){}, s.hooks...)
	s.mu.Unlock()

	var errs []error
	if s.store != nil {
		errs = append(errs, s.store.Clear(ctx))
	}
	errs = append(errs, s.scratch.DeleteSession(ctx, sessionID))
	s.logger().Info("session invalidated", "reason", reason)
	for _, fn := range hooks {
		fn(reason)
	}
	return errors.Join(errs...)
}

// Scratch returns the scratch space bound to the current session.
func (s *Session) Scratch() Bag {
	return Bag{scratch: s.scratch, sessionID: s.ID()}
}

// Bag is a Scratch bound to one session id.
type Bag struct {
	scratch   Scratch
	sessionID string
}

func (b Bag) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return b.scratch.Get(ctx, b.sessionID, key)
}

func (b Bag) Put(ctx context.Context, key string, value []byte) error {
	return b.scratch.Put(ctx, b.sessionID, key, value)
}

func (b Bag) Delete(ctx context.Context, key string) error {
	return b.scratch.Delete(ctx, b.sessionID, key)
}
