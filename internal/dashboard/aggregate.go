package dashboard

import (
	"time"

	"github.com/Wuchinator/visitor-dashboard/internal/visitor"
)

// Aggregator runs the whole pipeline. It holds no state between runs, so
// the same events, query and clock always give the same Result.
type Aggregator struct {
	loc           *time.Location
	recentLimit   int
	maxCustomDays int
	now           func() time.Time
}

type Option func(*Aggregator)

// WithClock fixes the reference instant used for relative ranges and labels.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

func WithRecentLimit(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.recentLimit = n
		}
	}
}

// WithMaxCustomDays caps how many days a custom range may cover.
func WithMaxCustomDays(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.maxCustomDays = n
		}
	}
}

func NewAggregator(loc *time.Location, opts ...Option) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	a := &Aggregator{
		loc:           loc,
		recentLimit:   defaultRecentLimit,
		maxCustomDays: defaultMaxCustomDays,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Aggregator) Location() *time.Location { return a.loc }

func (a *Aggregator) resolve(q Query, now time.Time) (Range, error) {
	return resolveRange(q.Selector, q.Start, q.End, now, a.loc, a.maxCustomDays)
}

// Aggregate resolves the query, filters the snapshot and derives every
// dashboard figure from the filtered set. Only an invalid query is an error.
func (a *Aggregator) Aggregate(events []visitor.Event, q Query) (*Result, error) {
	now := a.now().In(a.loc)

	window, err := a.resolve(q, now)
	if err != nil {
		return nil, err
	}

	filtered, skipped := FilterEvents(events, window, a.loc)

	perDay := BuildDailyBuckets(filtered, window, q.Selector)
	labelBuckets(perDay, q.Selector, now, a.loc)

	summary := Summarize(filtered)
	summary.PerDay = perDay

	return &Result{
		Selector:     q.Selector,
		Window:       window,
		Summary:      summary,
		RecentVisits: ProjectRecent(filtered, a.recentLimit),
		Skipped:      skipped,
	}, nil
}
