package dashboard

import (
	"time"

	"github.com/Wuchinator/visitor-dashboard/internal/visitor"
)

// refNow is Sunday 2024-01-07, midday UTC.
var refNow = time.Date(2024, time.January, 7, 12, 0, 0, 0, time.UTC)

func str(s string) *string { return &s }

type eventOpt func(*visitor.Event)

func withIP(ip string) eventOpt { return func(e *visitor.Event) { e.IPAddress = str(ip) } }
func withCountry(c string) eventOpt { return func(e *visitor.Event) { e.Country = str(c) } }
func withCity(c string) eventOpt { return func(e *visitor.Event) { e.City = str(c) } }
func withPage(p string) eventOpt { return func(e *visitor.Event) { e.PageURL = str(p) } }
func withLocation(l string) eventOpt { return func(e *visitor.Event) { e.Location = str(l) } }
func withUserAgent(ua string) eventOpt { return func(e *visitor.Event) { e.UserAgent = str(ua) } }

func newEvent(id int64, ts string, opts ...eventOpt) visitor.Event {
	ev := visitor.Event{ID: id, Timestamp: ts}
	for _, opt := range opts {
		opt(&ev)
	}
	return ev
}

func timed(ev visitor.Event) TimedEvent {
	at, ok := ev.ParseTime(time.UTC)
	if !ok {
		panic("bad test timestamp " + ev.Timestamp)
	}
	return TimedEvent{Event: ev, At: at}
}

func timedAll(events ...visitor.Event) []TimedEvent {
	out := make([]TimedEvent, len(events))
	for i, ev := range events {
		out[i] = timed(ev)
	}
	return out
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
