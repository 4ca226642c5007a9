package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Instant is the canonical timestamp for progress records. It decodes every
// representation the progress store has produced over time: RFC3339 and other
// date-like strings, epoch milliseconds, and {"seconds","nanoseconds"} objects.
//
// A string without a zone ("2025-03-01", "2025-03-01T09:00:00") is a wall
// clock reading in the schedule time zone. It is held as UTC until Anchor
// places it in that zone.
type Instant struct {
	time.Time
	floating bool
}

func NewInstant(t time.Time) *Instant {
	return &Instant{Time: t.UTC()}
}

type instantLayout struct {
	layout string
	zoned  bool
}

var instantLayouts = []instantLayout{
	{time.RFC3339Nano, true},
	{"2006-01-02T15:04:05", false},
	{"2006-01-02 15:04:05", false},
	{"2006-01-02T15:04", false},
	{"2006-01-02", false},
	{time.RFC1123Z, true},
	{time.RFC1123, true},
	{"Mon Jan 02 2006 15:04:05 GMT-0700", true},
	{"Mon Jan 02 2006", false},
}

// ParseInstant normalizes a date-like string into a UTC time. Zone-less
// strings are read as UTC.
func ParseInstant(raw string) (time.Time, error) {
	t, _, err := parseInstant(raw, time.UTC)
	return t, err
}

func parseInstant(raw string, loc *time.Location) (time.Time, bool, error) {
	raw = strings.TrimSpace(raw)
	if i := strings.Index(raw, " ("); i > 0 {
		// JS Date.toString() appends a zone name, e.g. "(Coordinated Universal Time)"
		raw = raw[:i]
	}
	for _, l := range instantLayouts {
		if t, err := time.ParseInLocation(l.layout, raw, loc); err == nil {
			return t.UTC(), !l.zoned, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("unrecognized timestamp %q", raw)
}

// Anchor returns the instant in loc. A zone-less reading keeps its wall
// clock, so "2025-03-01" is midnight of March 1 in loc.
func (i Instant) Anchor(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	if !i.floating {
		return i.Time.In(loc)
	}
	t := i.Time
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
}

// Anchored is Anchor as a fixed Instant, ready to be stored.
func (i Instant) Anchored(loc *time.Location) *Instant {
	return NewInstant(i.Anchor(loc))
}

func (i Instant) MarshalJSON() ([]byte, error) {
	return json.Marshal(i.Time.UTC().Format(time.RFC3339Nano))
}

func (i *Instant) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}

	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		t, floating, err := parseInstant(s, time.UTC)
		if err != nil {
			return err
		}
		i.Time, i.floating = t, floating
		return nil

	case '{':
		var ts struct {
			Seconds      *int64 `json:"seconds"`
			Nanoseconds  int64  `json:"nanoseconds"`
			XSeconds     *int64 `json:"_seconds"`
			XNanoseconds int64  `json:"_nanoseconds"`
		}
		if err := json.Unmarshal(b, &ts); err != nil {
			return err
		}
		switch {
		case ts.Seconds != nil:
			i.Time, i.floating = time.Unix(*ts.Seconds, ts.Nanoseconds).UTC(), false
		case ts.XSeconds != nil:
			i.Time, i.floating = time.Unix(*ts.XSeconds, ts.XNanoseconds).UTC(), false
		default:
			return fmt.Errorf("timestamp object has no seconds field")
		}
		return nil

	default:
		var ms int64
		if err := json.Unmarshal(b, &ms); err != nil {
			return fmt.Errorf("unrecognized timestamp %s", string(b))
		}
		i.Time, i.floating = time.UnixMilli(ms).UTC(), false
		return nil
	}
}
