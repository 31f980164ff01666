package usage

import (
	"context"
	"errors"
	"time"

	"github.com/goodtune/screenpledge/internal/events"
	"github.com/goodtune/screenpledge/internal/interval"
)

// day is 2024-06-05 00:00 UTC in epoch milliseconds.
var day = time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC).UnixMilli()

const (
	minute = int64(time.Minute / time.Millisecond)
	hour   = 60 * minute
)

// at returns day + h hours + m minutes.
func at(h, m int) int64 {
	return day + int64(h)*hour + int64(m)*minute
}

func ev(typ events.Type, ts int64) events.Event {
	return events.Event{Type: typ, Timestamp: ts}
}

func subj(typ events.Type, ts int64, subject string) events.Event {
	return events.Event{Type: typ, Timestamp: ts, Subject: subject}
}

// toggles converts a merged interval list into on/off events.
func toggles(on, off events.Type, list interval.List) []events.Event {
	out := make([]events.Event, 0, len(list)*2)
	for _, iv := range list {
		out = append(out, ev(on, iv.Start), ev(off, iv.End))
	}
	return out
}

// sessions converts a merged interval list into start/stop events for subject.
func sessions(subject string, list interval.List) []events.Event {
	out := make([]events.Event, 0, len(list)*2)
	for _, iv := range list {
		out = append(out,
			subj(events.SubjectActiveStart, iv.Start, subject),
			subj(events.SubjectActiveStop, iv.End, subject),
		)
	}
	return out
}

func concat(groups ...[]events.Event) []events.Event {
	var out []events.Event
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

var errSourceDown = errors.New("usage service not ready")

type failingSource struct{}

func (failingSource) QueryEvents(context.Context, int64, int64) ([]events.Event, error) {
	return nil, errSourceDown
}
