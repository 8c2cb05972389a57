// Package datetime renders appointment instants the way patient-facing
// messages and the admin table display them (en-US, 12-hour clock).
package datetime

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"
)

const (
	layoutDateTime = "Jan 2, 2006, 3:04 PM"
	layoutDateDay  = "Mon, 01/02/2006"
	layoutDateOnly = "Jan 2, 2006"
	layoutTimeOnly = "3:04 PM"
)

// ErrEmptyValue is returned by Parse for blank input.
var ErrEmptyValue = errors.New("datetime: empty value")

// Variants holds the four display renderings of one instant.
type Variants struct {
	DateTime string `json:"dateTime"`
	DateDay  string `json:"dateDay"`
	DateOnly string `json:"dateOnly"`
	TimeOnly string `json:"timeOnly"`
}

// Format renders t in timeZone. An empty zone means the process local zone.
func Format(t time.Time, timeZone string) (Variants, error) {
	loc, err := location(timeZone)
	if err != nil {
		return Variants{}, err
	}
	local := t.In(loc)
	return Variants{
		DateTime: local.Format(layoutDateTime),
		DateDay:  local.Format(layoutDateDay),
		DateOnly: local.Format(layoutDateOnly),
		TimeOnly: local.Format(layoutTimeOnly),
	}, nil
}

// Parse accepts RFC 3339 timestamps, zone-less timestamps (read in the local
// zone) and plain dates (read as UTC midnight).
func Parse(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, ErrEmptyValue
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", value, time.Local); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04", value, time.Local); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("datetime: unrecognized value %q", value)
}

func location(timeZone string) (*time.Location, error) {
	timeZone = strings.TrimSpace(timeZone)
	if timeZone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(timeZone)
	if err != nil {
		return nil, fmt.Errorf("datetime: unknown time zone %q: %w", timeZone, err)
	}
	return loc, nil
}
