package app

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"bizdesk/internal/config"
	"bizdesk/internal/engine"
	"bizdesk/internal/gateway"
	"bizdesk/internal/session"
)

func TestNewLoggerHonoursFormatAndLevel(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Format = "json"
	cfg.Log.Level = "warn"
	var buf bytes.Buffer
	logger, err := NewLogger(cfg, &buf)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown", "k", 1)
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info record written at warn level: %s", out)
	}
	if !strings.HasPrefix(out, "{") || !strings.Contains(out, `"msg":"shown"`) {
		t.Fatalf("expected a json record, got %q", out)
	}
}

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Level = "chatty"
	if _, err := NewLogger(cfg, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func setupWorkspace(t *testing.T) (*config.Config, *Sandbox) {
	t.Helper()
	ctx := context.Background()
	cfg := config.Default()
	cfg.Workspace = t.TempDir()
	cfg.Log.Level = "error"
	logger, err := NewLogger(cfg, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	sb, err := OpenSandbox(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("open sandbox: %v", err)
	}
	t.Cleanup(func() { sb.Close() })
	ts := httptest.NewServer(sb.Handler)
	t.Cleanup(ts.Close)
	cfg.API.BaseURL = ts.URL + "/api"
	return cfg, sb
}

func openRuntime(t *testing.T, cfg *config.Config) *Runtime {
	t.Helper()
	logger, err := NewLogger(cfg, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	rt, err := Open(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("open runtime: %v", err)
	}
	return rt
}

func TestSessionSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	cfg, _ := setupWorkspace(t)

	rt := openRuntime(t, cfg)
	if rt.Session.State() != session.Absent {
		t.Fatalf("fresh workspace state = %s", rt.Session.State())
	}
	if _, err := rt.Client.Login(ctx, engine.DemoEmail, engine.DemoPassword); err != nil {
		t.Fatalf("login: %v", err)
	}
	rt.Close()

	rt = openRuntime(t, cfg)
	defer rt.Close()
	if rt.Session.State() != session.Issued {
		t.Fatalf("restored state = %s, want issued", rt.Session.State())
	}
	page, err := rt.Tasks.Fetch(ctx, gateway.TaskQuery{PerPage: 50})
	if err != nil {
		t.Fatalf("fetch tasks: %v", err)
	}
	if page.Total == 0 || len(rt.Tasks.Items()) != len(page.Items) {
		t.Fatalf("unexpected task page: total=%d cached=%d", page.Total, len(rt.Tasks.Items()))
	}
}

func TestLogoutDropsStoredSession(t *testing.T) {
	ctx := context.Background()
	cfg, _ := setupWorkspace(t)

	rt := openRuntime(t, cfg)
	if _, err := rt.Client.Login(ctx, engine.DemoEmail, engine.DemoPassword); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := rt.Client.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	rt.Close()

	rt = openRuntime(t, cfg)
	defer rt.Close()
	if rt.Session.State() == session.Issued {
		t.Fatalf("session restored after logout")
	}
	_, err := rt.Client.Me(ctx)
	if !gateway.IsKind(err, gateway.KindAuth) {
		t.Fatalf("me after logout: got %v, want auth error", err)
	}
}

func TestSchedulerUsesConfiguredView(t *testing.T) {
	cfg, _ := setupWorkspace(t)
	cfg.Calendar.DefaultView = "week"
	rt := openRuntime(t, cfg)
	defer rt.Close()
	sched, err := rt.Scheduler(nil)
	if err != nil {
		t.Fatalf("scheduler: %v", err)
	}
	if got := sched.View(); got != "week" {
		t.Fatalf("view = %s, want week", got)
	}
	if days := len(sched.Window().Days()); days != 7 {
		t.Fatalf("week window has %d days", days)
	}
}
