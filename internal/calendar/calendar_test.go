package calendar_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizdesk/internal/calendar"
	"bizdesk/internal/domain"
	"bizdesk/internal/gateway"
	"bizdesk/internal/store"
)

type fakeTasks struct {
	mu      sync.Mutex
	tasks   []domain.Task
	queries []gateway.TaskQuery
	failUpd error

	// hold, when set, parks UpdateTask until it is closed.
	hold chan struct{}
}

func (f *fakeTasks) ListTasks(_ context.Context, q gateway.TaskQuery) (domain.Page[domain.Task], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	items := append([]domain.Task(nil), f.tasks...)
	return domain.Page[domain.Task]{Items: items, Page: 1, PerPage: q.PerPage, Total: len(items), LastPage: 1}, nil
}
func (f *fakeTasks) GetTask(context.Context, int64) (domain.Task, error) {
	return domain.Task{}, errors.New("not used")
}
func (f *fakeTasks) CreateTask(context.Context, domain.TaskInput) (domain.Task, error) {
	return domain.Task{}, errors.New("not used")
}
func (f *fakeTasks) UpdateTask(_ context.Context, id int64, in domain.TaskInput) (domain.Task, error) {
	if f.hold != nil {
		<-f.hold
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpd != nil {
		return domain.Task{}, f.failUpd
	}
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.tasks[i].Start = *in.Start
			if in.End != nil {
				f.tasks[i].End = *in.End
			}
			f.tasks[i].AllDay = *in.AllDay
			return f.tasks[i], nil
		}
	}
	return domain.Task{}, &gateway.Error{Kind: gateway.KindNotFound, Status: 404}
}
func (f *fakeTasks) ChangeTaskStatus(context.Context, int64, domain.TaskStatus) (domain.Task, error) {
	return domain.Task{}, errors.New("not used")
}
func (f *fakeTasks) DeleteTask(context.Context, int64) error { return nil }
func (f *fakeTasks) TaskStats(context.Context) (domain.TaskStats, error) {
	return domain.TaskStats{}, nil
}

func (f *fakeTasks) lastQuery() gateway.TaskQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[len(f.queries)-1]
}

type recorder struct {
	mu       sync.Mutex
	messages []string
}

func (r *recorder) Notify(level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, level+": "+message)
}

func withLocal(t *testing.T, loc *time.Location) {
	t.Helper()
	prev := time.Local
	time.Local = loc
	t.Cleanup(func() { time.Local = prev })
}

func TestWindowFor(t *testing.T) {
	anchor := time.Date(2024, 5, 15, 13, 0, 0, 0, time.UTC) // Wednesday

	day := calendar.WindowFor(calendar.ViewDay, anchor)
	assert.Equal(t, "2024-05-15T00:00:00", day.Start.String())
	assert.Equal(t, "2024-05-16T00:00:00", day.End.String())

	week := calendar.WindowFor(calendar.ViewWeek, anchor)
	assert.Equal(t, "2024-05-13T00:00:00", week.Start.String())
	assert.Equal(t, "2024-05-20T00:00:00", week.End.String())

	month := calendar.WindowFor(calendar.ViewMonth, anchor)
	assert.Equal(t, "2024-04-29T00:00:00", month.Start.String())
	assert.Equal(t, "2024-06-03T00:00:00", month.End.String())
	assert.Len(t, month.Days(), 35)
	assert.True(t, month.Contains(domain.MustWallTime("2024-05-31T23:00:00")))
	assert.False(t, month.Contains(month.End))
}

func TestStepMonthClampsToFirst(t *testing.T) {
	next := calendar.Step(calendar.ViewMonth, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), 1)
	assert.Equal(t, time.February, next.Month())
}

func TestEventRoundTripKeepsWallClock(t *testing.T) {
	withLocal(t, time.FixedZone("UTC+3", 3*60*60))

	task := domain.Task{ID: 1, Title: "call", Start: domain.MustWallTime("2024-05-15T09:00:00"), Status: domain.TaskCompleted}
	ev := calendar.ToEvent(task)
	assert.Equal(t, "2024-05-15T09:00:00", ev.Start)
	assert.Equal(t, "2024-05-15T10:00:00", ev.End, "missing end defaults to one hour")
	assert.Equal(t, "success", ev.Color)

	back, err := calendar.ParseWallClock(ev.Start)
	require.NoError(t, err)
	assert.Equal(t, 9, back.Time().Hour())
	assert.True(t, back.Equal(task.Start))
}

func TestAllDayEventEndsNextDay(t *testing.T) {
	ev := calendar.ToEvent(domain.Task{Start: domain.MustWallTime("2024-05-15T00:00:00"), AllDay: true})
	assert.Equal(t, "2024-05-16T00:00:00", ev.End)
}

func newScheduler(t *testing.T, api *fakeTasks, rec *recorder) *calendar.Scheduler {
	t.Helper()
	s := calendar.NewScheduler(store.NewTaskStore(api), rec, calendar.ViewWeek)
	s.Location = time.UTC
	s.Now = func() time.Time { return time.Date(2024, 5, 15, 10, 30, 0, 0, time.UTC) }
	require.NoError(t, s.Today(context.Background()))
	return s
}

func TestCanCreateAt(t *testing.T) {
	s := newScheduler(t, &fakeTasks{}, &recorder{})
	assert.ErrorIs(t, s.CanCreateAt(time.Date(2024, 5, 14, 23, 0, 0, 0, time.UTC)), calendar.ErrPastDate)
	assert.NoError(t, s.CanCreateAt(time.Date(2024, 5, 15, 8, 0, 0, 0, time.UTC)), "earlier today is allowed")
	assert.NoError(t, s.CanCreateAt(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)))
}

func TestWindowChangesRefetch(t *testing.T) {
	api := &fakeTasks{}
	s := newScheduler(t, api, &recorder{})
	ctx := context.Background()

	q := api.lastQuery()
	assert.Equal(t, "2024-05-13T00:00:00", q.From.String())

	require.NoError(t, s.Navigate(ctx, 1))
	assert.Equal(t, "2024-05-20T00:00:00", api.lastQuery().From.String())

	require.NoError(t, s.SetView(ctx, calendar.ViewMonth))
	assert.Equal(t, "2024-04-29T00:00:00", api.lastQuery().From.String())

	require.NoError(t, s.SetFilters(ctx, calendar.Filters{Status: "all", Type: "call"}))
	vals := api.lastQuery().Values()
	assert.False(t, vals.Has("status"))
	assert.Equal(t, "call", vals.Get("type"))
	assert.Len(t, api.queries, 4)
}

func TestFailedRescheduleRevertsAndNotifiesOnce(t *testing.T) {
	start := domain.MustWallTime("2024-05-15T09:00:00")
	api := &fakeTasks{
		tasks:   []domain.Task{{ID: 7, Title: "demo", Start: start, End: start.Add(time.Hour)}},
		failUpd: &gateway.Error{Kind: gateway.KindServer, Status: 500, Message: "database unavailable"},
	}
	rec := &recorder{}
	s := newScheduler(t, api, rec)

	moved := domain.MustWallTime("2024-05-16T11:00:00")
	err := s.Reschedule(context.Background(), 7, moved, moved.Add(time.Hour), false)
	require.Error(t, err)

	events := s.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "2024-05-15T09:00:00", events[0].Start)
	assert.Equal(t, []string{"error: Could not move task: database unavailable"}, rec.messages)
}

func TestRescheduleShowsMoveWhilePending(t *testing.T) {
	start := domain.MustWallTime("2024-05-15T09:00:00")
	api := &fakeTasks{
		tasks: []domain.Task{{ID: 7, Title: "demo", Start: start, End: start.Add(time.Hour)}},
		hold:  make(chan struct{}),
	}
	rec := &recorder{}
	s := newScheduler(t, api, rec)

	moved := domain.MustWallTime("2024-05-16T11:00:00")
	done := make(chan error, 1)
	go func() { done <- s.Reschedule(context.Background(), 7, moved, moved.Add(time.Hour), false) }()

	require.Eventually(t, func() bool {
		events := s.Events()
		return len(events) == 1 && events[0].Start == "2024-05-16T11:00:00"
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "2024-05-16T12:00:00", s.Events()[0].End)
	select {
	case err := <-done:
		t.Fatalf("reschedule returned before the update finished: %v", err)
	default:
	}

	close(api.hold)
	require.NoError(t, <-done)
	events := s.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "2024-05-16T11:00:00", events[0].Start)
	assert.Empty(t, rec.messages)
}

func TestRescheduleRefetchesOnSuccess(t *testing.T) {
	start := domain.MustWallTime("2024-05-15T09:00:00")
	api := &fakeTasks{tasks: []domain.Task{{ID: 7, Start: start}}}
	rec := &recorder{}
	s := newScheduler(t, api, rec)
	before := len(api.queries)

	moved := domain.MustWallTime("2024-05-17T00:00:00")
	require.NoError(t, s.Reschedule(context.Background(), 7, moved, domain.WallTime{}, true))
	assert.Len(t, api.queries, before+1)
	events := s.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "2024-05-17T00:00:00", events[0].Start)
	assert.True(t, events[0].AllDay)
	assert.Empty(t, rec.messages)
}

func TestParseView(t *testing.T) {
	v, err := calendar.ParseView(" Week ")
	require.NoError(t, err)
	assert.Equal(t, calendar.ViewWeek, v)
	v, err = calendar.ParseView("")
	require.NoError(t, err)
	assert.Equal(t, calendar.ViewMonth, v)
	_, err = calendar.ParseView("year")
	assert.Error(t, err)
}
