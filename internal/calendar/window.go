// Package calendar turns tasks into calendar events for a visible window and
// mediates drag-to-reschedule against the task store.
package calendar

import (
	"fmt"
	"strings"
	"time"

	"bizdesk/internal/domain"
)

// View is the span the calendar shows at once.
type View string

const (
	ViewDay   View = "day"
	ViewWeek  View = "week"
	ViewMonth View = "month"
)

// ParseView reads a view name, ignoring case and surrounding space. An empty
// name selects the month view.
func ParseView(s string) (View, error) {
	switch v := View(strings.ToLower(strings.TrimSpace(s))); v {
	case ViewDay, ViewWeek, ViewMonth:
		return v, nil
	case "":
		return ViewMonth, nil
	default:
		return "", fmt.Errorf("unknown calendar view %q (day, week, month)", s)
	}
}

// Window is the visible range [Start, End).
type Window struct {
	Start domain.WallTime
	End   domain.WallTime
}

func (w Window) Contains(t domain.WallTime) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Days lists the first instant of every day in the window.
func (w Window) Days() []domain.WallTime {
	var days []domain.WallTime
	for d := w.Start.Date(); d.Before(w.End); d = d.Add(24 * time.Hour) {
		days = append(days, d)
	}
	return days
}

func (w Window) String() string {
	return fmt.Sprintf("[%s, %s)", w.Start, w.End)
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func mondayOf(t time.Time) time.Time {
	d := midnight(t)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// WindowFor returns the window of view containing anchor's wall-clock date.
// Weeks start on Monday; month windows cover whole weeks.
func WindowFor(view View, anchor time.Time) Window {
	switch view {
	case ViewDay:
		d := midnight(anchor)
		return Window{Start: domain.NewWallTime(d), End: domain.NewWallTime(d.AddDate(0, 0, 1))}
	case ViewWeek:
		m := mondayOf(anchor)
		return Window{Start: domain.NewWallTime(m), End: domain.NewWallTime(m.AddDate(0, 0, 7))}
	default:
		first := time.Date(anchor.Year(), anchor.Month(), 1, 0, 0, 0, 0, time.UTC)
		next := first.AddDate(0, 1, 0)
		end := mondayOf(next)
		if end.Before(next) {
			end = end.AddDate(0, 0, 7)
		}
		return Window{Start: domain.NewWallTime(mondayOf(first)), End: domain.NewWallTime(end)}
	}
}

// Step moves anchor by n units of view.
func Step(view View, anchor time.Time, n int) time.Time {
	switch view {
	case ViewDay:
		return anchor.AddDate(0, 0, n)
	case ViewWeek:
		return anchor.AddDate(0, 0, 7*n)
	default:
		// clamp to the 1st so Jan 31 + 1 month does not skip February
		first := time.Date(anchor.Year(), anchor.Month(), 1, anchor.Hour(), anchor.Minute(), 0, 0, anchor.Location())
		return first.AddDate(0, n, 0)
	}
}
