package config

import (
	"fmt"
	"strconv"
	"strings"
)

// TypeBool remembers if a value was set explicitly, so a default of true
// can still be switched off.
type TypeBool struct {
	Value bool
	set   bool
}

func (t *TypeBool) Set(value string) error {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "y", "yes", "enabled", "on":
		t.Value = true
	case "0", "n", "no", "disabled", "off":
		t.Value = false
	default:
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("value is not a boolean (%s): %w", value, err)
		}

		t.Value = parsed
	}

	t.set = true

	return nil
}

func (t TypeBool) Get(defaultValue bool) bool {
	if !t.set {
		return defaultValue
	}

	return t.Value
}

func (t *TypeBool) UnmarshalJSON(data []byte) error {
	return t.Set(strings.Trim(string(data), `"`))
}

func (t TypeBool) MarshalJSON() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t TypeBool) String() string {
	return strconv.FormatBool(t.Value)
}
