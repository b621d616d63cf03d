package dashboard

import (
	"time"

	"github.com/Wuchinator/visitor-dashboard/internal/visitor"
)

// FilterEvents keeps events with r.Start <= timestamp <= r.End, preserving
// input order. Events with a malformed timestamp are counted in skipped.
func FilterEvents(events []visitor.Event, r Range, loc *time.Location) (kept []TimedEvent, skipped int) {
	kept = make([]TimedEvent, 0, len(events))
	for _, ev := range events {
		at, ok := ev.ParseTime(loc)
		if !ok {
			skipped++
			continue
		}
		if at.Before(r.Start) || at.After(r.End) {
			continue
		}
		kept = append(kept, TimedEvent{Event: ev, At: at.In(loc)})
	}
	return kept, skipped
}
