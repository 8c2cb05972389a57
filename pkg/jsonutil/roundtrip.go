// Package jsonutil converts values through their JSON representation.
package jsonutil

import (
	"encoding/json"
	"fmt"
)

// Decode serializes v to JSON and parses the result into a fresh T. Platform
// documents are turned into typed records this way, and anything that is not
// plain data (channels, funcs, cycles) makes it fail.
func Decode[T any](v any) (T, error) {
	var out T
	data, err := json.Marshal(v)
	if err != nil {
		return out, fmt.Errorf("jsonutil: marshal: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("jsonutil: unmarshal: %w", err)
	}
	return out, nil
}

// Clone returns a deep copy of v that shares no memory with it.
func Clone[T any](v T) (T, error) {
	return Decode[T](v)
}
