package calendar

import (
	"time"

	"bizdesk/internal/classify"
	"bizdesk/internal/domain"
)

// Event is a task as handed to a calendar renderer. Start and End are
// zone-less wall-clock strings so the renderer cannot shift them.
type Event struct {
	ID       int64
	Title    string
	Start    string
	End      string
	AllDay   bool
	Color    string
	Status   domain.TaskStatus
	Type     domain.TaskType
	Priority domain.TaskPriority
}

const defaultDuration = time.Hour

// ToEvent converts a task. A missing end defaults to one hour after start,
// or to the next day for all-day tasks.
func ToEvent(t domain.Task) Event {
	end := t.End
	if end.IsZero() || end.Before(t.Start) {
		if t.AllDay {
			end = t.Start.Date().Add(24 * time.Hour)
		} else {
			end = t.Start.Add(defaultDuration)
		}
	}
	return Event{
		ID:       t.ID,
		Title:    t.Title,
		Start:    t.Start.String(),
		End:      end.String(),
		AllDay:   t.AllDay,
		Color:    classify.TaskStatus(t.Status).Color,
		Status:   t.Status,
		Type:     t.Type,
		Priority: t.Priority,
	}
}

// ParseWallClock is the inverse of the event formatting.
func ParseWallClock(s string) (domain.WallTime, error) {
	return domain.ParseWallTime(s)
}

// ToEvents converts tasks, dropping those without a start.
func ToEvents(tasks []domain.Task) []Event {
	out := make([]Event, 0, len(tasks))
	for _, t := range tasks {
		if t.Start.IsZero() {
			continue
		}
		out = append(out, ToEvent(t))
	}
	return out
}
