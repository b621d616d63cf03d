// Package dashboard turns a raw visitor event snapshot and a selected time
// window into the figures shown on the admin landing page: a zero-filled
// daily series, summary counts, top countries and pages, and the latest
// visits.
package dashboard

import (
	"time"

	"github.com/Wuchinator/visitor-dashboard/internal/visitor"
)

type Selector string

const (
	SelectorToday  Selector = "today"
	SelectorWeek   Selector = "week"
	SelectorMonth  Selector = "month"
	SelectorAll    Selector = "all"
	SelectorCustom Selector = "custom"
)

const (
	topCountriesLimit  = 5
	topPagesLimit      = 10
	defaultRecentLimit = 10
)

// Range is an inclusive pair of instants.
type Range struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Query is everything a caller can choose. Start and End are calendar
// dates (YYYY-MM-DD) and are read only for the custom selector.
type Query struct {
	Selector Selector `json:"range"`
	Start    string   `json:"start,omitempty"`
	End      string   `json:"end,omitempty"`
}

// TimedEvent is an event whose timestamp parsed successfully.
type TimedEvent struct {
	visitor.Event
	At time.Time
}

// DailyBucket counts the events of one calendar day. Count and Views are
// incremented together.
type DailyBucket struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
	Views int    `json:"views"`
	Label string `json:"label"`
}

type CountryCount struct {
	Country string `json:"country"`
	Count   int    `json:"count"`
}

type PageCount struct {
	Page  string `json:"page"`
	Count int    `json:"count"`
}

type Summary struct {
	Total          int            `json:"total"`
	UniqueVisitors int            `json:"uniqueVisitors"`
	TopCountries   []CountryCount `json:"topCountries"`
	TopPages       []PageCount    `json:"topPages"`
	PerDay         []DailyBucket  `json:"perDay"`
}

type RecentVisit struct {
	ID        int64  `json:"id"`
	IP        string `json:"ip"`
	Location  string `json:"location"`
	Timestamp string `json:"timestamp"`
	Page      string `json:"page"`
	Browser   string `json:"browser"`
}

// Result is one aggregation run. Skipped counts events dropped for a
// malformed timestamp.
type Result struct {
	Selector     Selector      `json:"range"`
	Window       Range         `json:"window"`
	Summary      Summary       `json:"summary"`
	RecentVisits []RecentVisit `json:"recentVisits"`
	Skipped      int           `json:"skipped"`
}
