package config

import (
	"fmt"

	"github.com/akab00m/shroud/shroudlib"
)

// TypeRange is an inclusive "min-max" range like "100-200". A single
// number is a range of one value.
type TypeRange struct {
	Min int
	Max int
	set bool
}

func (t *TypeRange) Set(value string) error {
	minValue, maxValue, err := shroudlib.ParseRange(value)
	if err != nil {
		return fmt.Errorf("incorrect range: %w", err)
	}

	t.Min = minValue
	t.Max = maxValue
	t.set = true

	return nil
}

func (t TypeRange) Get(defaultMin, defaultMax int) (int, int) {
	if !t.set {
		return defaultMin, defaultMax
	}

	return t.Min, t.Max
}

func (t TypeRange) IsSet() bool {
	return t.set
}

func (t *TypeRange) UnmarshalText(data []byte) error {
	return t.Set(string(data))
}

func (t TypeRange) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t TypeRange) String() string {
	if !t.set {
		return ""
	}

	return shroudlib.FormatRange(t.Min, t.Max)
}
