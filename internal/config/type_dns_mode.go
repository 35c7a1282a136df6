package config

import (
	"fmt"
	"strings"
)

// DNSMode defines how hostnames are resolved.
type DNSMode uint8

const (
	dnsModeUnset DNSMode = iota

	// DNSModeDoH resolves via DNS-over-HTTPS. Censors do not see names.
	DNSModeDoH

	// DNSModePlain uses a system resolver.
	DNSModePlain
)

func (d DNSMode) String() string {
	switch d {
	case DNSModePlain:
		return "plain"
	case DNSModeDoH:
		return "doh"
	case dnsModeUnset:
	}

	return ""
}

type TypeDNSMode struct {
	Value DNSMode
}

func (t *TypeDNSMode) Set(value string) error {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "doh", "dns-over-https":
		t.Value = DNSModeDoH
	case "plain", "system", "udp":
		t.Value = DNSModePlain
	default:
		return fmt.Errorf("unknown dns mode %q, expected 'doh' or 'plain'", value)
	}

	return nil
}

func (t TypeDNSMode) Get(defaultValue DNSMode) DNSMode {
	if t.Value == dnsModeUnset {
		return defaultValue
	}

	return t.Value
}

func (t *TypeDNSMode) UnmarshalText(data []byte) error {
	return t.Set(string(data))
}

func (t TypeDNSMode) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t TypeDNSMode) String() string {
	return t.Value.String()
}
