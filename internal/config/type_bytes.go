package config

import (
	"fmt"
	"strings"

	"github.com/alecthomas/units"
)

// TypeBytes is a size like '1mib' or '512kb'.
type TypeBytes struct {
	Value units.Base2Bytes
}

func (t *TypeBytes) Set(value string) error {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	normalized = strings.ReplaceAll(normalized, "IB", "iB")

	parsed, err := units.ParseBase2Bytes(normalized)
	if err != nil {
		return fmt.Errorf("incorrect bytes value (%s): %w", value, err)
	}

	if parsed < 0 {
		return fmt.Errorf("bytes should be positive (%s)", value)
	}

	t.Value = parsed

	return nil
}

func (t TypeBytes) Get(defaultValue uint) uint {
	if t.Value == 0 {
		return defaultValue
	}

	return uint(t.Value)
}

func (t *TypeBytes) UnmarshalText(data []byte) error {
	return t.Set(string(data))
}

func (t TypeBytes) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t TypeBytes) String() string {
	return strings.ToLower(t.Value.String())
}
