package engine

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"bizdesk/internal/config"
	"bizdesk/internal/events"
	"bizdesk/internal/repo"
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config config.Sandbox
	Now    func() time.Time
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

func New(db *sql.DB, cfg config.Sandbox) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Config: cfg,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) stamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

func (e Engine) cost() int {
	if e.BcryptCost != 0 {
		return e.BcryptCost
	}
	return bcrypt.DefaultCost
}

// ValidationError carries per-field messages.
type ValidationError struct {
	Message string
	Fields  map[string][]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, n := range names {
		parts = append(parts, n+": "+strings.Join(e.Fields[n], ", "))
	}
	return fmt.Sprintf("%s (%s)", e.Message, strings.Join(parts, "; "))
}

type fieldErrors map[string][]string

func (f fieldErrors) add(field, msg string) {
	f[field] = append(f[field], msg)
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Message: "The given data was invalid.", Fields: f}
}

func invalid(field, msg string) error {
	return &ValidationError{Message: msg, Fields: map[string][]string{field: {msg}}}
}

// ConflictError reports a request that is well formed but not allowed in the
// current state of the resource.
type ConflictError struct {
	Reason string
}

func (e ConflictError) Error() string { return e.Reason }

var ErrInvalidCredentials = errors.New("invalid credentials")

func valueOr[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}

func idOrNil(p *int64) *int64 {
	if p == nil || *p == 0 {
		return nil
	}
	return p
}

// wrapNotFound names the missing entity while keeping repo.ErrNotFound.
func wrapNotFound(kind string, id int64, err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("%s %d: %w", kind, id, repo.ErrNotFound)
	}
	return err
}

