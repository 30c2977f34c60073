package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// WallClockLayout is the zone-less layout used for task start/end values.
const WallClockLayout = "2006-01-02T15:04:05"

var wallClockInputs = []string{
	WallClockLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// WallTime is a civil date-time without a zone. The backend stores naive
// timestamps for a fixed local time; they are held in UTC so the clock
// fields never move when formatted.
type WallTime struct {
	t time.Time
}

// NewWallTime keeps the clock fields of t and drops its zone.
func NewWallTime(t time.Time) WallTime {
	return WallTime{t: time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)}
}

// ParseWallTime accepts the naive layouts as well as RFC 3339. Values that
// carry an offset are converted to UTC first.
func ParseWallTime(s string) (WallTime, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return WallTime{}, nil
	}
	for _, layout := range wallClockInputs {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return WallTime{t: t}, nil
		}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.000000Z07:00"} {
		if t, err := time.Parse(layout, s); err == nil {
			return WallTime{t: t.UTC().Truncate(time.Second)}, nil
		}
	}
	return WallTime{}, fmt.Errorf("invalid date-time %q", s)
}

func MustWallTime(s string) WallTime {
	w, err := ParseWallTime(s)
	if err != nil {
		panic(err)
	}
	return w
}

func (w WallTime) IsZero() bool { return w.t.IsZero() }

// Time returns the value as a UTC instant.
func (w WallTime) Time() time.Time { return w.t }

func (w WallTime) String() string {
	if w.t.IsZero() {
		return ""
	}
	return w.t.Format(WallClockLayout)
}

func (w WallTime) Add(d time.Duration) WallTime { return WallTime{t: w.t.Add(d)} }

func (w WallTime) Before(o WallTime) bool { return w.t.Before(o.t) }

func (w WallTime) Equal(o WallTime) bool { return w.t.Equal(o.t) }

// Date returns the calendar day of w at midnight.
func (w WallTime) Date() WallTime {
	return WallTime{t: time.Date(w.t.Year(), w.t.Month(), w.t.Day(), 0, 0, 0, 0, time.UTC)}
}

func (w WallTime) MarshalJSON() ([]byte, error) {
	if w.t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(w.String())
}

func (w *WallTime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*w = WallTime{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseWallTime(s)
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}
