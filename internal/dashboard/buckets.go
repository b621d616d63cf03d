package dashboard

import (
	"slices"
	"strings"
)

// BuildDailyBuckets counts events per calendar day of their local time.
// Every selector except all seeds a zero bucket for each day of r, so the
// series has no gaps. Buckets come back sorted by date.
func BuildDailyBuckets(events []TimedEvent, r Range, sel Selector) []DailyBucket {
	if r.Start.After(r.End) {
		return []DailyBucket{}
	}

	index := make(map[string]int)
	buckets := make([]DailyBucket, 0)

	if sel != SelectorAll {
		end := r.End.In(r.Start.Location())
		for day := startOfDay(r.Start); !day.After(end); day = addDays(day, 1) {
			key := dayKey(day)
			index[key] = len(buckets)
			buckets = append(buckets, DailyBucket{Date: key})
		}
	}

	for _, ev := range events {
		key := dayKey(ev.At)
		i, ok := index[key]
		if !ok {
			i = len(buckets)
			index[key] = i
			buckets = append(buckets, DailyBucket{Date: key})
		}
		buckets[i].Count++
		buckets[i].Views++
	}

	slices.SortFunc(buckets, func(a, b DailyBucket) int {
		return strings.Compare(a.Date, b.Date)
	})
	return buckets
}
