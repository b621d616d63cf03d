package visitor

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestParseTimestamp(t *testing.T) {
	kigali := time.FixedZone("CAT", 2*60*60)

	tests := []struct {
		raw  string
		loc  *time.Location
		want time.Time
		ok   bool
	}{
		{"2024-01-05T09:30:00Z", time.UTC, time.Date(2024, 1, 5, 9, 30, 0, 0, time.UTC), true},
		{"2024-01-05T09:30:00.250Z", time.UTC, time.Date(2024, 1, 5, 9, 30, 0, 250_000_000, time.UTC), true},
		{"2024-01-05T11:30:00+02:00", time.UTC, time.Date(2024, 1, 5, 9, 30, 0, 0, time.UTC), true},
		{"2024-01-05T11:30:00", kigali, time.Date(2024, 1, 5, 9, 30, 0, 0, time.UTC), true},
		{"2024-01-05T11:30", kigali, time.Date(2024, 1, 5, 9, 30, 0, 0, time.UTC), true},
		{"2024-01-05", kigali, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), true},
		{" 2024-01-05T09:30:00Z ", nil, time.Date(2024, 1, 5, 9, 30, 0, 0, time.UTC), true},
		{"2024-06-01T23:59:59.9995Z", time.UTC, time.Date(2024, 6, 1, 23, 59, 59, 999_000_000, time.UTC), true},
		{"2024-06-01T23:59:59.999999999+02:00", time.UTC, time.Date(2024, 6, 1, 21, 59, 59, 999_000_000, time.UTC), true},
		{"", time.UTC, time.Time{}, false},
		{"yesterday", time.UTC, time.Time{}, false},
		{"2024-13-40T00:00:00Z", time.UTC, time.Time{}, false},
	}

	for _, tt := range tests {
		got, ok := ParseTimestamp(tt.raw, tt.loc)
		if ok != tt.ok {
			t.Errorf("ParseTimestamp(%q) ok = %v, want %v", tt.raw, ok, tt.ok)
			continue
		}
		if ok && !got.Equal(tt.want) {
			t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestValueTreatsBlankAsAbsent(t *testing.T) {
	blank := "   "
	padded := " Kigali "

	if Value(nil) != "" {
		t.Error("Value(nil) should be empty")
	}
	if Value(&blank) != "" {
		t.Error("Value of blank string should be empty")
	}
	if got := Value(&padded); got != "Kigali" {
		t.Errorf("Value = %q, want Kigali", got)
	}
}

func TestTrackRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     TrackRequest
		wantErr error
	}{
		{"empty", TrackRequest{}, nil},
		{"valid timestamp", TrackRequest{Timestamp: "2024-01-05T09:30:00Z", PageURL: "/tours"}, nil},
		{"bad timestamp", TrackRequest{Timestamp: "soon"}, ErrInvalidTimestamp},
		{"long page", TrackRequest{PageURL: "/" + strings.Repeat("a", maxPageURLLen)}, ErrInvalidRequest},
		{"long country", TrackRequest{Country: strings.Repeat("x", maxShortLen+1)}, ErrInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == nil && err != nil {
				t.Fatalf("Validate() = %v, want nil", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTrackRequestValidateReportsFirstLongField(t *testing.T) {
	long := strings.Repeat("x", maxShortLen+1)
	req := TrackRequest{Country: long, City: long, Region: long, Timezone: long, SessionID: long}

	for i := 0; i < 20; i++ {
		err := req.Validate()
		if err == nil || !strings.Contains(err.Error(), "country exceeds") {
			t.Fatalf("Validate() = %v, want country reported first", err)
		}
	}
}

func TestNewEvent(t *testing.T) {
	now := time.Date(2024, 1, 5, 9, 30, 0, 0, time.UTC)

	ev := NewEvent(TrackRequest{
		PageURL:  "/tours",
		Country:  "  ",
		Location: `{"city":"Kigali","country":"Rwanda"}`,
	}, "10.0.0.1", "Firefox/121.0", now)

	if _, err := uuid.Parse(ev.EventID); err != nil {
		t.Errorf("EventID %q is not a uuid", ev.EventID)
	}
	if ev.Timestamp != "2024-01-05T09:30:00Z" {
		t.Errorf("Timestamp = %q", ev.Timestamp)
	}
	if ev.Country != nil {
		t.Errorf("blank country should be nil, got %q", *ev.Country)
	}
	if Value(ev.UserAgent) != "Firefox/121.0" {
		t.Errorf("UserAgent = %q, want header value", Value(ev.UserAgent))
	}
	if Value(ev.IPAddress) != "10.0.0.1" {
		t.Errorf("IPAddress = %q", Value(ev.IPAddress))
	}
	if err := ev.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestNewEventNormalisesTimestamp(t *testing.T) {
	ev := NewEvent(TrackRequest{
		Timestamp: "2024-01-05T11:30:00+02:00",
		UserAgent: "Chrome/120",
	}, "", "curl/8", time.Now())

	if ev.Timestamp != "2024-01-05T09:30:00Z" {
		t.Errorf("Timestamp = %q, want UTC form", ev.Timestamp)
	}
	if Value(ev.UserAgent) != "Chrome/120" {
		t.Errorf("UserAgent = %q, want request value", Value(ev.UserAgent))
	}
	if ev.IPAddress != nil {
		t.Errorf("IPAddress = %q, want nil", *ev.IPAddress)
	}
}

func TestPartitionKey(t *testing.T) {
	session, ip := "s-1", "10.0.0.1"

	if got := (&Event{EventID: "e", SessionID: &session, IPAddress: &ip}).PartitionKey(); got != session {
		t.Errorf("PartitionKey = %q, want session", got)
	}
	if got := (&Event{EventID: "e", IPAddress: &ip}).PartitionKey(); got != ip {
		t.Errorf("PartitionKey = %q, want ip", got)
	}
	if got := (&Event{EventID: "e"}).PartitionKey(); got != "e" {
		t.Errorf("PartitionKey = %q, want event id", got)
	}
}

func TestEventValidate(t *testing.T) {
	id := uuid.NewString()

	if err := (&Event{EventID: "nope", Timestamp: "2024-01-05"}).Validate(); !errors.Is(err, ErrInvalidEventID) {
		t.Errorf("bad id: err = %v", err)
	}
	if err := (&Event{EventID: id, Timestamp: "x"}).Validate(); !errors.Is(err, ErrInvalidTimestamp) {
		t.Errorf("bad timestamp: err = %v", err)
	}
	if err := (&Event{EventID: id, Timestamp: "2024-01-05T09:30:00Z"}).Validate(); err != nil {
		t.Errorf("valid event: err = %v", err)
	}
}
