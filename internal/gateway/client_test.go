package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizdesk/internal/domain"
	"bizdesk/internal/gateway"
	"bizdesk/internal/session"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newAPI(t *testing.T, r chi.Router) (*gateway.Client, *session.Session) {
	t.Helper()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	s := session.New(nil, nil)
	return gateway.New(srv.URL+"/api", s), s
}

func TestRequestsCarryAcceptAndBearer(t *testing.T) {
	var accept, authz string
	r := chi.NewRouter()
	r.Get("/api/tasks/{id}", func(w http.ResponseWriter, req *http.Request) {
		accept = req.Header.Get("Accept")
		authz = req.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, map[string]any{"id": 4, "title": "Call ACME", "status": "waiting", "start_date": "2024-06-01 09:00:00"})
	})
	c, s := newAPI(t, r)
	require.NoError(t, s.Issue(context.Background(), "tok-1", domain.User{ID: 1}))

	task, err := c.GetTask(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, "application/json", accept)
	assert.Equal(t, "Bearer tok-1", authz)
	assert.Equal(t, domain.TaskWaiting, task.Status)
	assert.Equal(t, "2024-06-01T09:00:00", task.Start.String())
}

func TestUnauthorizedInvalidatesSession(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/tasks", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": map[string]any{"code": "unauthorized", "message": "token expired"}})
	})
	c, s := newAPI(t, r)
	require.NoError(t, s.Issue(context.Background(), "stale", domain.User{ID: 1}))
	invalidated := 0
	s.OnInvalidate(func(string) { invalidated++ })

	_, err := c.ListTasks(context.Background(), gateway.TaskQuery{})
	require.Error(t, err)
	assert.True(t, gateway.IsKind(err, gateway.KindAuth))
	assert.Equal(t, session.Invalidated, s.State())
	assert.Equal(t, 1, invalidated)
}

func TestLoginUnauthorizedKeepsSession(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/auth/login", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": map[string]any{"message": "invalid credentials"}})
	})
	c, s := newAPI(t, r)
	require.NoError(t, s.Issue(context.Background(), "keep", domain.User{ID: 1}))

	_, err := c.Login(context.Background(), "a@example.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, "invalid credentials", err.Error())
	assert.Equal(t, session.Issued, s.State())
}

func TestLoginWithTwoFactorChallenge(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/auth/login", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"requires_two_factor": true, "temp_token": "tmp", "email": "a@example.com"})
	})
	r.Post("/api/auth/two-factor/challenge", func(w http.ResponseWriter, req *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(req.Body).Decode(&body)
		if body["temp_token"] != "tmp" || body["code"] != "123456" {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": map[string]any{"message": "invalid code"}})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"token": "full", "user": map[string]any{"id": 3, "email": "a@example.com"}})
	})
	c, s := newAPI(t, r)
	res, err := c.Login(context.Background(), "a@example.com", "pw")
	require.NoError(t, err)
	assert.True(t, res.RequiresTwoFactor)
	assert.Equal(t, session.Absent, s.State())

	_, err = c.CompleteChallenge(context.Background(), res.TempToken, "000000")
	assert.True(t, gateway.IsKind(err, gateway.KindValidation))

	user, err := c.CompleteChallenge(context.Background(), res.TempToken, "123456")
	require.NoError(t, err)
	assert.Equal(t, int64(3), user.ID)
	tok, ok := s.Token()
	assert.True(t, ok)
	assert.Equal(t, "full", tok)
}

func TestValidationErrorsExposeFields(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/tasks", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": map[string]any{
			"code":    "validation_failed",
			"message": "the given data was invalid",
			"details": map[string]any{"fields": map[string]any{"title": []string{"title is required"}}},
		}})
	})
	c, _ := newAPI(t, r)
	_, err := c.CreateTask(context.Background(), domain.TaskInput{})
	require.Error(t, err)
	assert.Equal(t, gateway.KindValidation, gateway.KindOf(err))
	assert.Equal(t, map[string][]string{"title": {"title is required"}}, gateway.FieldErrors(err))
}

func TestStatusKinds(t *testing.T) {
	cases := map[int]gateway.Kind{
		http.StatusNotFound:            gateway.KindNotFound,
		http.StatusConflict:            gateway.KindConflict,
		http.StatusBadRequest:          gateway.KindConflict,
		http.StatusInternalServerError: gateway.KindServer,
	}
	for status, kind := range cases {
		status, kind := status, kind
		r := chi.NewRouter()
		r.Delete("/api/tasks/{id}", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, status, map[string]any{"message": "nope"})
		})
		c, _ := newAPI(t, r)
		err := c.DeleteTask(context.Background(), 1)
		assert.Equal(t, kind, gateway.KindOf(err), "status %d", status)
	}
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := gateway.New(srv.URL, nil)
	err := c.Health(context.Background())
	assert.Equal(t, gateway.KindNetwork, gateway.KindOf(err))
}

func TestTaskQueryDropsAll(t *testing.T) {
	q := gateway.TaskQuery{
		Status:     "all",
		Type:       "meeting",
		AssignedTo: "ALL",
		From:       domain.MustWallTime("2024-06-01T00:00:00"),
		To:         domain.MustWallTime("2024-06-08T00:00:00"),
	}
	v := q.Values()
	assert.False(t, v.Has("status"))
	assert.False(t, v.Has("assigned_to"))
	assert.Equal(t, "meeting", v.Get("type"))
	assert.Equal(t, "2024-06-01T00:00:00", v.Get("start"))
	assert.Equal(t, "2024-06-08T00:00:00", v.Get("end"))
}

func TestAmbiguousProjectStatusRejected(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/projects/{id}", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"id": 1, "title": "x", "is_idea": true, "is_in_production": true})
	})
	c, _ := newAPI(t, r)
	_, err := c.GetProject(context.Background(), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAmbiguousProjectStatus)
}

func TestAmbiguousProjectRowIsSkippedInList(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/projects", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"items": []map[string]any{
				{"id": 1, "title": "clean", "is_idea": true},
				{"id": 2, "title": "broken", "is_idea": true, "is_in_production": true},
			},
			"page": 1, "per_page": 50, "total": 2, "last_page": 1,
		})
	})
	c, _ := newAPI(t, r)
	page, err := c.ListProjects(context.Background(), gateway.ProjectQuery{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, int64(1), page.Items[0].ID)
	assert.Equal(t, domain.ProjectIdea, page.Items[0].Status)
}

func TestConcurrentFirstRequests(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/tasks", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"items": []any{}, "page": 1, "per_page": 50, "total": 0, "last_page": 1})
	})
	c, _ := newAPI(t, r)

	const n = 8
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.ListTasks(context.Background(), gateway.TaskQuery{})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
}
