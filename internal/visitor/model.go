package visitor

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event is a single raw visitor record. Every field except Timestamp is
// optional; nil and blank strings are treated the same.
type Event struct {
	ID        int64   `db:"id" json:"id"`
	EventID   string  `db:"event_id" json:"eventId,omitempty"`
	Timestamp string  `db:"timestamp" json:"timestamp"`
	IPAddress *string `db:"ip_address" json:"ipAddress,omitempty"`
	Location  *string `db:"location" json:"location,omitempty"`
	Country   *string `db:"country" json:"country,omitempty"`
	City      *string `db:"city" json:"city,omitempty"`
	Region    *string `db:"region" json:"region,omitempty"`
	Timezone  *string `db:"timezone" json:"timezone,omitempty"`
	UserAgent *string `db:"user_agent" json:"userAgent,omitempty"`
	PageURL   *string `db:"page_url" json:"pageUrl,omitempty"`
	Referrer  *string `db:"referrer" json:"referrer,omitempty"`
	SessionID *string `db:"session_id" json:"sessionId,omitempty"`
}

// TrackRequest is the body accepted by the collector.
type TrackRequest struct {
	Timestamp string `json:"timestamp"`
	Location  string `json:"location"`
	Country   string `json:"country"`
	City      string `json:"city"`
	Region    string `json:"region"`
	Timezone  string `json:"timezone"`
	UserAgent string `json:"userAgent"`
	PageURL   string `json:"pageUrl"`
	Referrer  string `json:"referrer"`
	SessionID string `json:"sessionId"`
}

const (
	maxPageURLLen   = 2048
	maxReferrerLen  = 2048
	maxUserAgentLen = 512
	maxLocationLen  = 1024
	maxShortLen     = 128

	maxBatchSize = 100
)

// Zone-less layouts tried after RFC 3339, read in the caller's location.
var timestampLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

const dateOnlyLayout = "2006-01-02"

// ParseTime returns the instant of the event. The second result is false
// when the timestamp is missing or malformed.
func (e *Event) ParseTime(loc *time.Location) (time.Time, bool) {
	return ParseTimestamp(e.Timestamp, loc)
}

// ParseTimestamp accepts RFC 3339, zone-less local and date-only forms.
// The result is truncated to milliseconds, the resolution of range bounds.
func ParseTimestamp(raw string, loc *time.Location) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.Truncate(time.Millisecond), true
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t.Truncate(time.Millisecond), true
		}
	}
	// date-only strings are midnight UTC, as in ECMAScript Date parsing
	if t, err := time.Parse(dateOnlyLayout, raw); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// Value returns the trimmed string behind p, or "" when absent.
func Value(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func (r *TrackRequest) Validate() error {
	if len(r.PageURL) > maxPageURLLen {
		return fieldTooLong("pageUrl", maxPageURLLen)
	}
	if len(r.Referrer) > maxReferrerLen {
		return fieldTooLong("referrer", maxReferrerLen)
	}
	if len(r.UserAgent) > maxUserAgentLen {
		return fieldTooLong("userAgent", maxUserAgentLen)
	}
	if len(r.Location) > maxLocationLen {
		return fieldTooLong("location", maxLocationLen)
	}
	// Порядок фиксирован, чтобы ошибка была детерминированной
	for _, f := range []struct{ name, value string }{
		{"country", r.Country},
		{"city", r.City},
		{"region", r.Region},
		{"timezone", r.Timezone},
		{"sessionId", r.SessionID},
	} {
		if len(f.value) > maxShortLen {
			return fieldTooLong(f.name, maxShortLen)
		}
	}
	if r.Timestamp != "" {
		if _, ok := ParseTimestamp(r.Timestamp, time.UTC); !ok {
			return ErrInvalidTimestamp
		}
	}
	return nil
}

// NewEvent stamps a validated request with a fresh event id. The request's
// user agent wins over the transport header; a missing timestamp becomes now.
func NewEvent(req TrackRequest, clientIP, headerUserAgent string, now time.Time) *Event {
	ts := strings.TrimSpace(req.Timestamp)
	if ts == "" {
		ts = now.UTC().Format(time.RFC3339Nano)
	} else if t, ok := ParseTimestamp(ts, time.UTC); ok {
		ts = t.UTC().Format(time.RFC3339Nano)
	}

	userAgent := req.UserAgent
	if strings.TrimSpace(userAgent) == "" {
		userAgent = headerUserAgent
	}

	return &Event{
		EventID:   uuid.NewString(),
		Timestamp: ts,
		IPAddress: optional(clientIP),
		Location:  optional(req.Location),
		Country:   optional(req.Country),
		City:      optional(req.City),
		Region:    optional(req.Region),
		Timezone:  optional(req.Timezone),
		UserAgent: optional(userAgent),
		PageURL:   optional(req.PageURL),
		Referrer:  optional(req.Referrer),
		SessionID: optional(req.SessionID),
	}
}

// PartitionKey keeps one visitor's events on one partition.
func (e *Event) PartitionKey() string {
	if s := Value(e.SessionID); s != "" {
		return s
	}
	if ip := Value(e.IPAddress); ip != "" {
		return ip
	}
	return e.EventID
}

func (e *Event) Validate() error {
	if _, err := uuid.Parse(e.EventID); err != nil {
		return ErrInvalidEventID
	}
	if _, ok := e.ParseTime(time.UTC); !ok {
		return ErrInvalidTimestamp
	}
	return nil
}
