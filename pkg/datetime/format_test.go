package datetime

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestFormatInZone(t *testing.T) {
	instant := time.Date(2026, 10, 15, 19, 30, 0, 0, time.UTC)

	got, err := Format(instant, "America/New_York")
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	want := Variants{
		DateTime: "Oct 15, 2026, 3:30 PM",
		DateDay:  "Thu, 10/15/2026",
		DateOnly: "Oct 15, 2026",
		TimeOnly: "3:30 PM",
	}
	if got != want {
		t.Fatalf("expected %#v, got %#v", want, got)
	}
}

func TestFormatZoneShiftsDate(t *testing.T) {
	instant := time.Date(2026, 1, 5, 2, 5, 0, 0, time.UTC)

	got, err := Format(instant, "America/Los_Angeles")
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	if got.DateOnly != "Jan 4, 2026" || got.TimeOnly != "6:05 PM" {
		t.Fatalf("unexpected rendering %#v", got)
	}
	if got.DateDay != "Sun, 01/04/2026" {
		t.Fatalf("unexpected day rendering %q", got.DateDay)
	}
}

func TestFormatDefaultsToLocal(t *testing.T) {
	instant := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	got, err := Format(instant, "")
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	if want := instant.In(time.Local).Format(layoutDateTime); got.DateTime != want {
		t.Fatalf("expected local zone rendering %q, got %q", want, got.DateTime)
	}
}

func TestFormatDeterministic(t *testing.T) {
	instant := time.Date(2026, 7, 4, 8, 15, 0, 0, time.UTC)
	first, err := Format(instant, "Europe/Berlin")
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := Format(instant, "Europe/Berlin")
		if err != nil {
			t.Fatalf("format: %v", err)
		}
		if again != first {
			t.Fatalf("expected identical output, got %#v vs %#v", again, first)
		}
	}
}

func TestFormatUnknownZone(t *testing.T) {
	if _, err := Format(time.Now(), "Mars/Olympus_Mons"); err == nil {
		t.Fatal("expected unknown zone error")
	}
}

func TestParse(t *testing.T) {
	got, err := Parse("2026-10-15T19:30:00Z")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !got.Equal(time.Date(2026, 10, 15, 19, 30, 0, 0, time.UTC)) {
		t.Fatalf("unexpected instant %s", got)
	}

	day, err := Parse("2026-10-15")
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	if day.Hour() != 0 || day.Day() != 15 {
		t.Fatalf("unexpected date %s", day)
	}

	if _, err := Parse("  "); !errors.Is(err, ErrEmptyValue) {
		t.Fatalf("expected ErrEmptyValue, got %v", err)
	}
	if _, err := Parse("next tuesday"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestDateJSON(t *testing.T) {
	var got struct {
		Born Date `json:"born"`
	}
	if err := json.Unmarshal([]byte(`{"born":"1990-01-01"}`), &got); err != nil {
		t.Fatalf("unmarshal date-only: %v", err)
	}
	if !got.Born.Equal(time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date %s", got.Born)
	}

	out, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"born":"1990-01-01T00:00:00Z"}` {
		t.Fatalf("unexpected json %s", out)
	}

	for _, in := range []string{`{"born":null}`, `{"born":""}`, `{}`} {
		var empty struct {
			Born Date `json:"born"`
		}
		if err := json.Unmarshal([]byte(in), &empty); err != nil || !empty.Born.IsZero() {
			t.Fatalf("%s: expected zero date, got %s (%v)", in, empty.Born, err)
		}
	}
	if out, _ := json.Marshal(Date{}); string(out) != "null" {
		t.Fatalf("expected null for unset date, got %s", out)
	}

	if err := json.Unmarshal([]byte(`{"born":"yesterday"}`), &got); err == nil {
		t.Fatal("expected invalid date to fail")
	}
}
