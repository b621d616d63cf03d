package dashboard

import "time"

const invalidDateLabel = "Invalid Date"

// FormatLabel renders the axis label of a bucket date (YYYY-MM-DD). The
// wording depends on how far the selected range zooms out.
func FormatLabel(date string, sel Selector, now time.Time, loc *time.Location) string {
	day, err := time.ParseInLocation(dateLayout, date, loc)
	if err != nil {
		return invalidDateLabel
	}
	now = now.In(loc)
	offset := daysBetween(day, now)

	switch sel {
	case SelectorToday:
		if offset == 0 {
			return "Today"
		}
		return monthDay(day)
	case SelectorWeek:
		switch {
		case offset == 0:
			return "Today"
		case offset == 1:
			return "Yesterday"
		case offset >= 2 && offset <= 6:
			return day.Format("Mon")
		default:
			return monthDay(day)
		}
	case SelectorAll:
		if day.Year() == now.Year() {
			return monthDay(day)
		}
		return day.Format("Jan 06")
	default:
		return monthDay(day)
	}
}

func monthDay(t time.Time) string {
	return t.Format("Jan 2")
}

func labelBuckets(buckets []DailyBucket, sel Selector, now time.Time, loc *time.Location) {
	for i := range buckets {
		buckets[i].Label = FormatLabel(buckets[i].Date, sel, now, loc)
	}
}
