package dashboard

import (
	"slices"
	"strings"

	"github.com/Wuchinator/visitor-dashboard/internal/visitor"
	"github.com/tidwall/gjson"
)

const unknown = "Unknown"

// browserTokens is matched in order; the first token found names the browser.
var browserTokens = []string{"Chrome", "Firefox", "Safari", "Edge"}

// ProjectRecent returns the newest limit events as display records. Events
// sharing a timestamp keep their input order.
func ProjectRecent(events []TimedEvent, limit int) []RecentVisit {
	if limit <= 0 {
		limit = defaultRecentLimit
	}

	sorted := slices.Clone(events)
	slices.SortStableFunc(sorted, func(a, b TimedEvent) int {
		return b.At.Compare(a.At)
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}

	visits := make([]RecentVisit, 0, len(sorted))
	for _, ev := range sorted {
		visits = append(visits, RecentVisit{
			ID:        ev.ID,
			IP:        orDefault(visitor.Value(ev.IPAddress), unknown),
			Location:  ResolveLocation(ev.Event),
			Timestamp: ev.Timestamp,
			Page:      orDefault(visitor.Value(ev.PageURL), "/"),
			Browser:   DetectBrowser(ev.UserAgent),
		})
	}
	return visits
}

// ResolveLocation prefers the JSON location blob and falls back to the
// plain city and country fields. It never fails.
func ResolveLocation(ev visitor.Event) string {
	if raw := visitor.Value(ev.Location); raw != "" && raw != "null" && gjson.Valid(raw) {
		parsed := gjson.Parse(raw)
		if parsed.IsObject() {
			city := strings.TrimSpace(parsed.Get("city").String())
			country := strings.TrimSpace(parsed.Get("country").String())
			if city != "" && country != "" {
				return city + ", " + country
			}
			if country != "" {
				return country
			}
		}
	}

	city, country := visitor.Value(ev.City), visitor.Value(ev.Country)
	switch {
	case city != "" && country != "":
		return city + ", " + country
	case country != "":
		return country
	default:
		return unknown
	}
}

// DetectBrowser reports Unknown for a missing agent and Other for an agent
// with no known token.
func DetectBrowser(userAgent *string) string {
	ua := visitor.Value(userAgent)
	if ua == "" {
		return unknown
	}
	for _, token := range browserTokens {
		if strings.Contains(ua, token) {
			return token
		}
	}
	return "Other"
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
