package config

import (
	"fmt"

	"github.com/akab00m/shroud/shroudlib"
)

type TypeBrowserProfile struct {
	Value shroudlib.BrowserProfile
	set   bool
}

func (t *TypeBrowserProfile) Set(value string) error {
	profile, err := shroudlib.ParseBrowserProfile(value)
	if err != nil {
		return fmt.Errorf("incorrect browser profile: %w", err)
	}

	t.Value = profile
	t.set = true

	return nil
}

func (t TypeBrowserProfile) Get(defaultValue shroudlib.BrowserProfile) shroudlib.BrowserProfile {
	if !t.set {
		return defaultValue
	}

	return t.Value
}

func (t *TypeBrowserProfile) UnmarshalText(data []byte) error {
	return t.Set(string(data))
}

func (t TypeBrowserProfile) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t TypeBrowserProfile) String() string {
	if !t.set {
		return ""
	}

	return t.Value.String()
}
