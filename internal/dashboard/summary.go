package dashboard

import (
	"slices"

	"github.com/Wuchinator/visitor-dashboard/internal/visitor"
)

// tally counts keys and remembers the order they were first seen in, which
// breaks ties when ranking.
type tally struct {
	order  []string
	counts map[string]int
}

func newTally() *tally {
	return &tally{counts: make(map[string]int)}
}

func (t *tally) add(key string) {
	if key == "" {
		return
	}
	if _, ok := t.counts[key]; !ok {
		t.order = append(t.order, key)
	}
	t.counts[key]++
}

// top returns at most n keys by descending count.
func (t *tally) top(n int) []string {
	keys := slices.Clone(t.order)
	slices.SortStableFunc(keys, func(a, b string) int {
		return t.counts[b] - t.counts[a]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

// Summarize computes totals and top lists over already filtered events.
// PerDay is left empty; Aggregate fills it.
func Summarize(events []TimedEvent) Summary {
	ips := make(map[string]struct{})
	countries := newTally()
	pages := newTally()

	for _, ev := range events {
		if ip := visitor.Value(ev.IPAddress); ip != "" {
			ips[ip] = struct{}{}
		}
		countries.add(visitor.Value(ev.Country))
		pages.add(visitor.Value(ev.PageURL))
	}

	summary := Summary{
		Total:          len(events),
		UniqueVisitors: len(ips),
		TopCountries:   make([]CountryCount, 0, topCountriesLimit),
		TopPages:       make([]PageCount, 0, topPagesLimit),
		PerDay:         []DailyBucket{},
	}
	for _, c := range countries.top(topCountriesLimit) {
		summary.TopCountries = append(summary.TopCountries, CountryCount{Country: c, Count: countries.counts[c]})
	}
	for _, p := range pages.top(topPagesLimit) {
		summary.TopPages = append(summary.TopPages, PageCount{Page: p, Count: pages.counts[p]})
	}
	return summary
}
