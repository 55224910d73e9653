package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FlexUint64 is a uint64 that browsers may send as a number or a string.
// Blank strings and null decode to zero, fractions are truncated and
// negative values clamp to zero so paging falls back to its defaults.
type FlexUint64 uint64

// UnmarshalJSON implements the json.Unmarshaler interface.
func (f *FlexUint64) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}

	text := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &text); err != nil {
			return fmt.Errorf("FlexUint64: %w", err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			*f = 0
			return nil
		}
	}

	if n, err := strconv.ParseUint(text, 10, 64); err == nil {
		*f = FlexUint64(n)
		return nil
	}

	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) {
		return fmt.Errorf("FlexUint64: invalid value %s", data)
	}
	switch {
	case v <= 0:
		*f = 0
	case v >= math.MaxUint64:
		*f = FlexUint64(uint64(math.MaxUint64))
	default:
		*f = FlexUint64(uint64(v))
	}
	return nil
}

// MarshalJSON implements the json.Marshaler interface.
func (f FlexUint64) MarshalJSON() ([]byte, error) {
	return json.Marshal(uint64(f))
}

// Uint64 converts FlexUint64 back to uint64.
func (f FlexUint64) Uint64() uint64 {
	return uint64(f)
}

// Int converts FlexUint64 to int, using def when unset.
func (f FlexUint64) Int(def int) int {
	switch {
	case f == 0:
		return def
	case uint64(f) > math.MaxInt32:
		return math.MaxInt32
	}
	return int(f)
}
