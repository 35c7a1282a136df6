package config

import (
	"fmt"

	"github.com/akab00m/shroud/shroudlib"
)

// TypeCondition pins a network condition and disables detection results.
type TypeCondition struct {
	Value shroudlib.NetworkCondition
	set   bool
}

func (t *TypeCondition) Set(value string) error {
	condition, err := shroudlib.ParseNetworkCondition(value)
	if err != nil {
		return fmt.Errorf("incorrect network condition: %w", err)
	}

	t.Value = condition
	t.set = true

	return nil
}

// Get returns nil if nothing is pinned.
func (t TypeCondition) Get() *shroudlib.NetworkCondition {
	if !t.set {
		return nil
	}

	value := t.Value

	return &value
}

func (t *TypeCondition) UnmarshalText(data []byte) error {
	return t.Set(string(data))
}

func (t TypeCondition) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t TypeCondition) String() string {
	if !t.set {
		return ""
	}

	return t.Value.String()
}
