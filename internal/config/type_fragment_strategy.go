package config

import (
	"fmt"

	"github.com/akab00m/shroud/shroudlib"
)

type TypeFragmentStrategy struct {
	Value shroudlib.FragmentStrategy
	set   bool
}

func (t *TypeFragmentStrategy) Set(value string) error {
	strategy, err := shroudlib.ParseFragmentStrategy(value)
	if err != nil {
		return fmt.Errorf("incorrect fragmentation strategy: %w", err)
	}

	t.Value = strategy
	t.set = true

	return nil
}

func (t TypeFragmentStrategy) Get(defaultValue shroudlib.FragmentStrategy) shroudlib.FragmentStrategy {
	if !t.set {
		return defaultValue
	}

	return t.Value
}

func (t *TypeFragmentStrategy) UnmarshalText(data []byte) error {
	return t.Set(string(data))
}

func (t TypeFragmentStrategy) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t TypeFragmentStrategy) String() string {
	if !t.set {
		return ""
	}

	return t.Value.String()
}
