package dashboard

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// defaultMaxCustomDays bounds a custom range, one bucket per day.
const defaultMaxCustomDays = 366

func ParseSelector(s string) (Selector, error) {
	switch sel := Selector(strings.ToLower(strings.TrimSpace(s))); sel {
	case SelectorToday, SelectorWeek, SelectorMonth, SelectorAll, SelectorCustom:
		return sel, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSelector, s)
	}
}

// ResolveRange turns a selector into concrete bounds in loc. Both bounds are
// inclusive: start is midnight of its day, end is 23:59:59.999 of its day.
// The all selector starts at the Unix epoch. A custom range longer than
// 366 days is rejected with ErrInvalidRange.
func ResolveRange(sel Selector, start, end string, now time.Time, loc *time.Location) (Range, error) {
	return resolveRange(sel, start, end, now, loc, defaultMaxCustomDays)
}

func resolveRange(sel Selector, start, end string, now time.Time, loc *time.Location, maxDays int) (Range, error) {
	now = now.In(loc)
	todayEnd := endOfDay(now)

	switch sel {
	case SelectorToday:
		return Range{Start: startOfDay(now), End: todayEnd}, nil
	case SelectorWeek:
		return Range{Start: startOfDay(addDays(now, -6)), End: todayEnd}, nil
	case SelectorMonth:
		return Range{Start: startOfDay(addDays(now, -29)), End: todayEnd}, nil
	case SelectorAll:
		return Range{Start: time.UnixMilli(0).In(loc), End: todayEnd}, nil
	case SelectorCustom:
		from, err := parseDate(start, "start", loc)
		if err != nil {
			return Range{}, err
		}
		to, err := parseDate(end, "end", loc)
		if err != nil {
			return Range{}, err
		}
		// Перевёрнутый диапазон допустим и даёт пустой результат
		if span := daysBetween(from, to) + 1; span > maxDays {
			return Range{}, fmt.Errorf("%w: custom range spans %d days, limit is %d", ErrInvalidRange, span, maxDays)
		}
		return Range{Start: startOfDay(from), End: endOfDay(to)}, nil
	default:
		return Range{}, fmt.Errorf("%w: %q", ErrInvalidSelector, sel)
	}
}

func parseDate(s, bound string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: %s date is required", ErrInvalidRange, bound)
	}
	t, err := time.ParseInLocation(dateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s date %q is not YYYY-MM-DD", ErrInvalidRange, bound, s)
	}
	return t, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// addDays moves by calendar days, which is not always 24h across DST.
func addDays(t time.Time, n int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()+n, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func dayKey(t time.Time) string {
	return t.Format(dateLayout)
}

// daysBetween counts calendar days from a to b in their own locations.
func daysBetween(a, b time.Time) int {
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	// Через Unix секунды: Duration переполняется после ~292 лет
	return int((ub.Unix() - ua.Unix()) / 86400)
}
