// Package app wires configuration, storage and the API client into the
// runtime the CLI commands share.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"bizdesk/internal/calendar"
	"bizdesk/internal/config"
	"bizdesk/internal/db"
	"bizdesk/internal/engine"
	"bizdesk/internal/gateway"
	"bizdesk/internal/migrate"
	"bizdesk/internal/server"
	"bizdesk/internal/session"
	"bizdesk/internal/store"
	"bizdesk/internal/twofactor"
)

// Runtime bundles the client objects one command invocation works with.
type Runtime struct {
	Config   *config.Config
	Logger   *slog.Logger
	DB       *sql.DB
	Session  *session.Session
	Client   *gateway.Client
	Tasks    *store.TaskStore
	Projects *store.ProjectStore
}

// NewLogger builds the slog logger described by cfg.log.
func NewLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// Open restores the stored session and returns a ready runtime.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	conn, err := db.Open(db.Config{Workspace: cfg.Workspace, Name: db.ClientDB})
	if err != nil {
		return nil, fmt.Errorf("open client db: %w", err)
	}
	if err := migrate.Migrate(ctx, conn, migrate.Client); err != nil {
		conn.Close()
		return nil, err
	}
	creds := session.SQLStore{DB: conn, TTL: cfg.Sandbox.TokenTTL}
	sess := session.New(creds, creds)
	sess.Logger = logger
	if err := sess.Restore(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("restore session: %w", err)
	}

	client := gateway.New(cfg.API.BaseURL, sess)
	client.HTTPClient = &http.Client{Timeout: cfg.API.Timeout}
	client.Logger = logger

	tasks := store.NewTaskStore(client)
	tasks.Logger = logger
	projects := store.NewProjectStore(client)
	projects.Logger = logger

	return &Runtime{
		Config:   cfg,
		Logger:   logger,
		DB:       conn,
		Session:  sess,
		Client:   client,
		Tasks:    tasks,
		Projects: projects,
	}, nil
}

func (r *Runtime) Close() error {
	if r == nil || r.DB == nil {
		return nil
	}
	return r.DB.Close()
}

// TwoFactor returns an enrollment flow whose provisioning data lives in the
// current session's scratch space.
func (r *Runtime) TwoFactor() *twofactor.Flow {
	return twofactor.New(r.Client, r.Session.Scratch())
}

// Scheduler returns a calendar view over the task store using the configured
// zone and default view.
func (r *Runtime) Scheduler(notifier calendar.Notifier) (*calendar.Scheduler, error) {
	view, err := calendar.ParseView(r.Config.Calendar.DefaultView)
	if err != nil {
		return nil, err
	}
	loc, err := r.Config.Location()
	if err != nil {
		return nil, err
	}
	s := calendar.NewScheduler(r.Tasks, notifier, view)
	s.Location = loc
	s.Logger = r.Logger
	return s, nil
}

// Sandbox is a running local API backend.
type Sandbox struct {
	Engine  engine.Engine
	Handler http.Handler
	db      *sql.DB
}

func (s *Sandbox) Close() error { return s.db.Close() }

// OpenSandbox prepares the sandbox database and HTTP handler.
func OpenSandbox(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Sandbox, error) {
	conn, err := db.Open(db.Config{Workspace: cfg.Workspace, Name: db.SandboxDB})
	if err != nil {
		return nil, fmt.Errorf("open sandbox db: %w", err)
	}
	if err := migrate.Migrate(ctx, conn, migrate.Sandbox); err != nil {
		conn.Close()
		return nil, err
	}
	e := engine.New(conn, cfg.Sandbox)
	if cfg.Sandbox.Seed {
		if err := e.Seed(ctx); err != nil {
			conn.Close()
			return nil, fmt.Errorf("seed sandbox: %w", err)
		}
	}
	handler, err := server.New(server.Config{Engine: e, Logger: logger})
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &Sandbox{Engine: e, Handler: handler, db: conn}, nil
}

// Serve runs the sandbox on addr until ctx is cancelled.
func (s *Sandbox) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("sandbox listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
