package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"bizdesk/internal/domain"
	"bizdesk/internal/gateway"
	"bizdesk/internal/store"
)

// ErrPastDate rejects creating a task on a day before today.
var ErrPastDate = errors.New("cannot create a task in the past")

// windowPageSize bounds a single window fetch; the calendar does not page.
const windowPageSize = 500

// Notifier shows transient messages to the user.
type Notifier interface {
	Notify(level, message string)
}

type NotifierFunc func(level, message string)

func (f NotifierFunc) Notify(level, message string) { f(level, message) }

// Filters narrows the tasks shown. "all" or empty means no filter.
type Filters struct {
	Status     string
	Type       string
	AssignedTo string
}

func (f Filters) Query(w Window) gateway.TaskQuery {
	return gateway.TaskQuery{
		PerPage:    windowPageSize,
		Status:     f.Status,
		Type:       f.Type,
		AssignedTo: f.AssignedTo,
		From:       w.Start,
		To:         w.End,
	}
}

// Scheduler keeps the visible window and filters and refreshes the task
// store whenever either changes.
type Scheduler struct {
	tasks    *store.TaskStore
	notifier Notifier

	// Now and Location decide what "today" is.
	Now      func() time.Time
	Location *time.Location
	Logger   *slog.Logger

	mu      sync.Mutex
	view    View
	anchor  time.Time
	filters Filters
}

func NewScheduler(tasks *store.TaskStore, notifier Notifier, view View) *Scheduler {
	if notifier == nil {
		notifier = NotifierFunc(func(string, string) {})
	}
	if view == "" {
		view = ViewMonth
	}
	s := &Scheduler{tasks: tasks, notifier: notifier, Now: time.Now, view: view}
	s.anchor = s.today()
	return s
}

func (s *Scheduler) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *Scheduler) loc() *time.Location {
	if s.Location != nil {
		return s.Location
	}
	return time.Local
}

func (s *Scheduler) today() time.Time {
	now := s.Now().In(s.loc())
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc())
}

func (s *Scheduler) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

func (s *Scheduler) Filters() Filters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters
}

func (s *Scheduler) Window() Window {
	s.mu.Lock()
	defer s.mu.Unlock()
	return WindowFor(s.view, s.anchor)
}

// Events returns the cached tasks as calendar events.
func (s *Scheduler) Events() []Event {
	return ToEvents(s.tasks.Items())
}

// Refresh fetches the tasks of the current window. A fetch overtaken by a
// later one is not an error.
func (s *Scheduler) Refresh(ctx context.Context) error {
	s.mu.Lock()
	q := s.filters.Query(WindowFor(s.view, s.anchor))
	s.mu.Unlock()
	if _, err := s.tasks.Fetch(ctx, q); err != nil {
		if errors.Is(err, store.ErrStale) {
			return nil
		}
		return err
	}
	return nil
}

func (s *Scheduler) SetView(ctx context.Context, v View) error {
	s.mu.Lock()
	s.view = v
	s.mu.Unlock()
	return s.Refresh(ctx)
}

// Navigate moves the window by n views (negative goes back).
func (s *Scheduler) Navigate(ctx context.Context, n int) error {
	s.mu.Lock()
	s.anchor = Step(s.view, s.anchor, n)
	s.mu.Unlock()
	return s.Refresh(ctx)
}

func (s *Scheduler) GoTo(ctx context.Context, day time.Time) error {
	s.mu.Lock()
	s.anchor = day
	s.mu.Unlock()
	return s.Refresh(ctx)
}

func (s *Scheduler) Today(ctx context.Context) error {
	return s.GoTo(ctx, s.today())
}

func (s *Scheduler) SetFilters(ctx context.Context, f Filters) error {
	s.mu.Lock()
	s.filters = f
	s.mu.Unlock()
	return s.Refresh(ctx)
}

// Reschedule applies a drag or resize. The move shows immediately; on
// failure it is reverted and the user notified once. On success the window
// is re-fetched so the cache matches the server.
func (s *Scheduler) Reschedule(ctx context.Context, id int64, start, end domain.WallTime, allDay bool) error {
	err := s.tasks.Reschedule(ctx, id, start, end, allDay)
	switch {
	case errors.Is(err, store.ErrInFlight), errors.Is(err, store.ErrUnacknowledged):
		return err
	case err != nil:
		s.notifier.Notify("error", fmt.Sprintf("Could not move task: %s", gateway.Message(err)))
		s.tasks.ResetOperation()
		return err
	}
	s.logger().Debug("task rescheduled", "task_id", id, "start", start.String(), "all_day", allDay)
	s.tasks.ResetOperation()
	return s.Refresh(ctx)
}

// CanCreateAt reports whether a new task may start on day. Only the date
// counts; any time today is allowed.
func (s *Scheduler) CanCreateAt(day time.Time) error {
	d := day.In(s.loc())
	d = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, s.loc())
	if d.Before(s.today()) {
		return ErrPastDate
	}
	return nil
}
