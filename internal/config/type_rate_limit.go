package config

import (
	"fmt"
	"strconv"
)

// TypeRateLimit is a count of new connections per second per IP, 0 means
// unlimited. Fractions are allowed: 0.5 is one connection in 2 seconds.
type TypeRateLimit struct {
	Value float64
}

func (t *TypeRateLimit) Set(value string) error {
	parsed, err := strconv.ParseFloat(value, 64) //nolint: gomnd
	if err != nil {
		return fmt.Errorf("value is not a number (%s): %w", value, err)
	}

	if parsed < 0 {
		return fmt.Errorf("rate limit should be non-negative (%s)", value)
	}

	t.Value = parsed

	return nil
}

func (t TypeRateLimit) Get(defaultValue float64) float64 {
	if t.Value == 0 {
		return defaultValue
	}

	return t.Value
}

func (t *TypeRateLimit) UnmarshalJSON(data []byte) error {
	return t.Set(string(data))
}

func (t TypeRateLimit) MarshalJSON() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t TypeRateLimit) String() string {
	return strconv.FormatFloat(t.Value, 'f', -1, 64) //nolint: gomnd
}
