package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"bizdesk/internal/calendar"
	"bizdesk/internal/config"
	"bizdesk/internal/db"
	"bizdesk/internal/domain"
	"bizdesk/internal/engine"
	"bizdesk/internal/gateway"
	"bizdesk/internal/migrate"
	"bizdesk/internal/session"
	"bizdesk/internal/store"
)

var testNow = time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)

type testServer struct {
	URL    string
	Engine engine.Engine
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

// API returns the base URL the gateway talks to.
func (s *testServer) API() string { return s.URL + "/api" }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace, Name: db.SandboxDB})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	ctx := context.Background()
	if err := migrate.Migrate(ctx, conn, migrate.Sandbox); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, config.Default().Sandbox)
	e.Now = func() time.Time { return testNow }
	e.Events.Now = e.Now
	e.BcryptCost = bcrypt.MinCost
	if err := e.Seed(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}
	handler, err := New(Config{Engine: e})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		Engine: e,
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func loggedIn(t *testing.T, srv *testServer) *gateway.Client {
	t.Helper()
	c := gateway.New(srv.API(), session.New(nil, nil))
	res, err := c.Login(context.Background(), engine.DemoEmail, engine.DemoPassword)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.RequiresTwoFactor {
		t.Fatalf("demo user should not require two factor")
	}
	return c
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details struct {
			Fields map[string][]string `json:"fields"`
		} `json:"details"`
	} `json:"error"`
}

func TestHealthIsPublicAndDataIsNot(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, body := doJSON(t, srv.Client(), http.MethodGet, srv.API()+"/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status %d: %s", res.StatusCode, string(body))
	}
	res, body = doJSON(t, srv.Client(), http.MethodGet, srv.API()+"/tasks", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d %s", res.StatusCode, string(body))
	}
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if env.Error.Code != "unauthorized" {
		t.Fatalf("expected unauthorized code, got %q", env.Error.Code)
	}
	res, body = doJSON(t, srv.Client(), http.MethodGet, srv.API()+"/tasks", nil, bearer("not-a-token"))
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d %s", res.StatusCode, string(body))
	}
}

func TestLoginWithWrongPassword(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	c := gateway.New(srv.API(), session.New(nil, nil))
	_, err := c.Login(context.Background(), engine.DemoEmail, "wrong-password")
	if !gateway.IsKind(err, gateway.KindAuth) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if c.Session.State() != session.Absent {
		t.Fatalf("expected absent session, got %s", c.Session.State())
	}
}

func TestListTasksWithinWindow(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	c := loggedIn(t, srv)
	ctx := context.Background()

	all, err := c.ListTasks(ctx, gateway.TaskQuery{PerPage: 100})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if all.Total == 0 || len(all.Items) != all.Total {
		t.Fatalf("expected seeded tasks, got total=%d items=%d", all.Total, len(all.Items))
	}

	created, err := c.CreateTask(ctx, domain.TaskInput{
		Title: domain.Ptr("Site visit"),
		Type:  domain.Ptr(domain.TaskTypeMeeting),
		Start: domain.Ptr(domain.MustWallTime("2030-01-10T09:30:00")),
		End:   domain.Ptr(domain.MustWallTime("2030-01-10T11:00:00")),
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if created.Start.String() != "2030-01-10T09:30:00" {
		t.Fatalf("wall clock not preserved: %s", created.Start)
	}
	if created.Status != domain.TaskNotStarted || created.Priority != domain.PriorityNormal {
		t.Fatalf("unexpected defaults: %s %s", created.Status, created.Priority)
	}

	window, err := c.ListTasks(ctx, gateway.TaskQuery{
		From: domain.MustWallTime("2030-01-06T00:00:00"),
		To:   domain.MustWallTime("2030-01-13T00:00:00"),
	})
	if err != nil {
		t.Fatalf("list window: %v", err)
	}
	if len(window.Items) != 1 || window.Items[0].ID != created.ID {
		t.Fatalf("expected only the new task in the window, got %+v", window.Items)
	}

	moved, err := c.UpdateTask(ctx, created.ID, domain.TaskInput{
		Start: domain.Ptr(domain.MustWallTime("2030-01-20T09:30:00")),
		End:   domain.Ptr(domain.MustWallTime("2030-01-20T11:00:00")),
	})
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if moved.Title != "Site visit" {
		t.Fatalf("partial update lost the title: %q", moved.Title)
	}
}

func TestRescheduleWithoutEndKeepsDuration(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	c := loggedIn(t, srv)
	ctx := context.Background()

	created, err := c.CreateTask(ctx, domain.TaskInput{
		Title: domain.Ptr("Survey"),
		Type:  domain.Ptr(domain.TaskTypeMeeting),
		Start: domain.Ptr(domain.MustWallTime("2030-01-10T09:00:00")),
		End:   domain.Ptr(domain.MustWallTime("2030-01-10T10:00:00")),
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	var notes []string
	sched := calendar.NewScheduler(store.NewTaskStore(c), calendar.NotifierFunc(func(_, msg string) {
		notes = append(notes, msg)
	}), calendar.ViewWeek)
	sched.Location = time.UTC
	if err := sched.GoTo(ctx, time.Date(2030, 1, 10, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("load window: %v", err)
	}
	if err := sched.Reschedule(ctx, created.ID, domain.MustWallTime("2030-01-11T11:00:00"), domain.WallTime{}, false); err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if len(notes) != 0 {
		t.Fatalf("unexpected notifications: %v", notes)
	}
	got, err := c.GetTask(ctx, created.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.Start.String() != "2030-01-11T11:00:00" || got.End.String() != "2030-01-11T12:00:00" {
		t.Fatalf("expected 11:00-12:00 on the next day, got %s-%s", got.Start, got.End)
	}
}

func TestValidationErrorsCarryFields(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	c := loggedIn(t, srv)
	ctx := context.Background()

	_, err := c.CreateTask(ctx, domain.TaskInput{Start: domain.Ptr(domain.MustWallTime("2030-01-10T09:30:00"))})
	if !gateway.IsKind(err, gateway.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if msgs := gateway.FieldErrors(err)["title"]; len(msgs) == 0 {
		t.Fatalf("expected a title message, got %v", gateway.FieldErrors(err))
	}

	token, _ := c.Session.Token()
	res, body := doJSON(t, srv.Client(), http.MethodPatch, srv.API()+"/tasks/1/status", map[string]any{"status": "finished"}, bearer(token))
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d %s", res.StatusCode, string(body))
	}
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if env.Error.Code != "validation_failed" || len(env.Error.Details.Fields["status"]) == 0 {
		t.Fatalf("expected status field error, got %s", string(body))
	}

	res, body = doJSON(t, srv.Client(), http.MethodPost, srv.API()+"/tasks", map[string]any{
		"title":      "Bad date",
		"start_date": "10/01/2030",
	}, bearer(token))
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for malformed date, got %d %s", res.StatusCode, string(body))
	}
}

func TestMissingTaskIsNotFound(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	c := loggedIn(t, srv)

	_, err := c.GetTask(context.Background(), 9999)
	if !gateway.IsKind(err, gateway.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if c.Session.State() != session.Issued {
		t.Fatalf("a 404 must not touch the session, got %s", c.Session.State())
	}
}

func TestProjectStatusTravelsAsFlags(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	c := loggedIn(t, srv)
	ctx := context.Background()

	p, err := c.CreateProject(ctx, domain.ProjectInput{
		Title:       domain.Ptr("Solar farm"),
		CompanyName: domain.Ptr("Helios"),
		Status:      domain.Ptr(domain.ProjectInProduction),
	})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	if p.Status != domain.ProjectInProduction {
		t.Fatalf("expected in_production, got %q", p.Status)
	}

	token, _ := c.Session.Token()
	res, body := doJSON(t, srv.Client(), http.MethodGet, srv.API()+"/projects/"+strconv.FormatInt(p.ID, 10), nil, bearer(token))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get project %d: %s", res.StatusCode, string(body))
	}
	var flags map[string]any
	_ = json.Unmarshal(body, &flags)
	if flags["is_in_production"] != true || flags["is_idea"] != false || flags["is_in_progress"] != false {
		t.Fatalf("unexpected flags: %s", string(body))
	}

	p, err = c.ChangeProjectStatus(ctx, p.ID, domain.ProjectIdea)
	if err != nil {
		t.Fatalf("change status: %v", err)
	}
	if p.Status != domain.ProjectIdea {
		t.Fatalf("expected idea, got %q", p.Status)
	}
	acts, err := c.ProjectActivities(ctx, p.ID, 10)
	if err != nil {
		t.Fatalf("activities: %v", err)
	}
	if len(acts) < 2 {
		t.Fatalf("expected created and status activities, got %d", len(acts))
	}
}

func TestSinglePrimaryContact(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	c := loggedIn(t, srv)
	ctx := context.Background()

	p, err := c.CreateProject(ctx, domain.ProjectInput{Title: domain.Ptr("Port expansion"), CompanyName: domain.Ptr("Harbor Co")})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	first, err := c.CreateContact(ctx, p.ID, domain.ContactInput{Name: domain.Ptr("Amal"), IsPrimary: domain.Ptr(true)})
	if err != nil {
		t.Fatalf("first contact: %v", err)
	}
	second, err := c.CreateContact(ctx, p.ID, domain.ContactInput{Name: domain.Ptr("Badr"), IsPrimary: domain.Ptr(true)})
	if err != nil {
		t.Fatalf("second contact: %v", err)
	}

	primaries := func() []int64 {
		t.Helper()
		contacts, err := c.ListContacts(ctx, p.ID)
		if err != nil {
			t.Fatalf("list contacts: %v", err)
		}
		var ids []int64
		for _, ct := range contacts {
			if ct.IsPrimary {
				ids = append(ids, ct.ID)
			}
		}
		return ids
	}
	if ids := primaries(); len(ids) != 1 || ids[0] != second.ID {
		t.Fatalf("expected only the second contact primary, got %v", ids)
	}
	if _, err := c.SetPrimaryContact(ctx, p.ID, first.ID); err != nil {
		t.Fatalf("set primary: %v", err)
	}
	if ids := primaries(); len(ids) != 1 || ids[0] != first.ID {
		t.Fatalf("expected only the first contact primary, got %v", ids)
	}
}

func TestResolvedBlockageCannotBeResolvedAgain(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	c := loggedIn(t, srv)
	ctx := context.Background()

	p, err := c.CreateProject(ctx, domain.ProjectInput{Title: domain.Ptr("Mill"), CompanyName: domain.Ptr("Grain SA")})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	b, err := c.CreateBlockage(ctx, p.ID, domain.BlockageInput{Title: domain.Ptr("Permit pending")})
	if err != nil {
		t.Fatalf("create blockage: %v", err)
	}
	b, err = c.ResolveBlockage(ctx, p.ID, b.ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if b.Status != domain.BlockageResolved || b.ResolvedAt == "" {
		t.Fatalf("expected resolved blockage, got %+v", b)
	}
	_, err = c.ResolveBlockage(ctx, p.ID, b.ID)
	if !gateway.IsKind(err, gateway.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestReferenceData(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	c := loggedIn(t, srv)
	ctx := context.Background()

	types, err := c.PipelineTypes(ctx)
	if err != nil {
		t.Fatalf("pipeline types: %v", err)
	}
	if len(types) == 0 {
		t.Fatalf("expected seeded pipeline types")
	}
	stages, err := c.PipelineStages(ctx, types[0].ID)
	if err != nil {
		t.Fatalf("stages: %v", err)
	}
	for i := 1; i < len(stages); i++ {
		if stages[i-1].Order > stages[i].Order {
			t.Fatalf("stages out of order: %+v", stages)
		}
	}
	if _, err := c.PipelineStages(ctx, 9999); !gateway.IsKind(err, gateway.KindNotFound) {
		t.Fatalf("expected not found for unknown pipeline, got %v", err)
	}
	sectors, err := c.Sectors(ctx)
	if err != nil || len(sectors) == 0 {
		t.Fatalf("sectors: %v %d", err, len(sectors))
	}
	govs, err := c.Governorates(ctx)
	if err != nil || len(govs) == 0 {
		t.Fatalf("governorates: %v %d", err, len(govs))
	}
}

func wrongCode(t *testing.T, secret string) string {
	t.Helper()
	valid := map[string]bool{}
	for _, d := range []time.Duration{-30 * time.Second, 0, 30 * time.Second} {
		code, err := engine.CodeAt(secret, testNow.Add(d))
		if err != nil {
			t.Fatalf("code: %v", err)
		}
		valid[code] = true
	}
	for _, candidate := range []string{"000000", "111111", "222222", "333333"} {
		if !valid[candidate] {
			return candidate
		}
	}
	t.Fatalf("no wrong code available")
	return ""
}

func TestTwoFactorChallengeLogin(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	c := loggedIn(t, srv)
	ctx := context.Background()

	prov, err := c.SetupTwoFactor(ctx)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if prov.Secret == "" || prov.QRPayload == "" {
		t.Fatalf("expected provisioning data, got %+v", prov)
	}
	code, err := engine.CodeAt(prov.Secret, testNow)
	if err != nil {
		t.Fatalf("code: %v", err)
	}
	if err := c.VerifyTwoFactor(ctx, code); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if enabled, err := c.TwoFactorStatus(ctx); err != nil || !enabled {
		t.Fatalf("expected enabled, got %t %v", enabled, err)
	}
	if err := c.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}

	res, err := c.Login(ctx, engine.DemoEmail, engine.DemoPassword)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !res.RequiresTwoFactor || res.TempToken == "" || res.Token != "" {
		t.Fatalf("expected a pending challenge, got %+v", res)
	}
	if c.Session.State() == session.Issued {
		t.Fatalf("session must stay unauthenticated until the challenge passes")
	}
	if _, err := c.CompleteChallenge(ctx, res.TempToken, wrongCode(t, prov.Secret)); !gateway.IsKind(err, gateway.KindValidation) {
		t.Fatalf("expected validation error for a wrong code, got %v", err)
	}
	user, err := c.CompleteChallenge(ctx, res.TempToken, code)
	if err != nil {
		t.Fatalf("challenge: %v", err)
	}
	if !user.TwoFactorEnabled || c.Session.State() != session.Issued {
		t.Fatalf("expected an issued session for a 2fa user, got %+v %s", user, c.Session.State())
	}
	if _, err := c.CompleteChallenge(ctx, res.TempToken, code); !gateway.IsKind(err, gateway.KindAuth) {
		t.Fatalf("a temporary token must work once, got %v", err)
	}

	// The temporary token is not a session token.
	hres, body := doJSON(t, srv.Client(), http.MethodGet, srv.API()+"/auth/me", nil, bearer(res.TempToken))
	if hres.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for challenge token, got %d %s", hres.StatusCode, string(body))
	}

	if err := c.DisableTwoFactor(ctx, "wrong-password"); !gateway.IsKind(err, gateway.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := c.DisableTwoFactor(ctx, engine.DemoPassword); err != nil {
		t.Fatalf("disable: %v", err)
	}
}

func TestRevokedTokenInvalidatesClientSession(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	c := loggedIn(t, srv)
	ctx := context.Background()

	var reason string
	c.Session.OnInvalidate(func(r string) { reason = r })
	token, _ := c.Session.Token()
	res, body := doJSON(t, srv.Client(), http.MethodPost, srv.API()+"/auth/logout", nil, bearer(token))
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("logout status %d: %s", res.StatusCode, string(body))
	}

	_, err := c.ListTasks(ctx, gateway.TaskQuery{})
	if !gateway.IsKind(err, gateway.KindAuth) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if c.Session.State() != session.Invalidated {
		t.Fatalf("expected invalidated session, got %s", c.Session.State())
	}
	if reason == "" {
		t.Fatalf("expected invalidation hook to run")
	}
	if _, ok := c.Session.Token(); ok {
		t.Fatalf("token must be dropped")
	}
}

func TestRegisterSignsIn(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	c := gateway.New(srv.API(), session.New(nil, nil))
	ctx := context.Background()

	u, err := c.Register(ctx, "Nour", "nour@example.com", "long-enough")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if c.Session.State() != session.Issued {
		t.Fatalf("expected issued session, got %s", c.Session.State())
	}
	me, err := c.Me(ctx)
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if me.ID != u.ID || me.Email != "nour@example.com" {
		t.Fatalf("unexpected me: %+v", me)
	}
	other := gateway.New(srv.API(), session.New(nil, nil))
	if _, err := other.Register(ctx, "Nour", "NOUR@example.com", "long-enough"); !gateway.IsKind(err, gateway.KindValidation) {
		t.Fatalf("expected duplicate email to be rejected, got %v", err)
	}
}

func TestOpenAPIDocument(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, body := doJSON(t, srv.Client(), http.MethodGet, srv.API()+"/openapi.json", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("openapi status %d", res.StatusCode)
	}
	var doc struct {
		Paths map[string]any `json:"paths"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		t.Fatalf("unmarshal openapi: %v", err)
	}
	if _, ok := doc.Paths["/api/tasks"]; !ok {
		t.Fatalf("expected /api/tasks in the document")
	}
}
