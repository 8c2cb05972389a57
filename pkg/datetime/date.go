package datetime

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"
)

// Date is an instant read from JSON with Parse, so form values such as
// "1990-01-01" are accepted next to RFC 3339 timestamps. It is written back as
// RFC 3339, or null when unset.
type Date struct {
	time.Time
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.UTC().Format(time.RFC3339Nano))
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*d = Date{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t, err := Parse(raw)
	if errors.Is(err, ErrEmptyValue) {
		*d = Date{}
		return nil
	}
	if err != nil {
		return err
	}
	*d = Date{Time: t}
	return nil
}
