package config

import (
	"fmt"
	"net"
	"net/url"
)

// TypeProxyURL is an upstream SOCKS5 proxy. Credentials are a part of
// URL userinfo.
type TypeProxyURL struct {
	Value *url.URL
}

func (t *TypeProxyURL) Set(value string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("value is not correct URL (%s): %w", value, err)
	}

	if parsed.Scheme != "socks5" {
		return fmt.Errorf("unsupported schema %s", parsed.Scheme)
	}

	if _, _, err := net.SplitHostPort(parsed.Host); err != nil {
		return fmt.Errorf("incorrect host:port of proxy (%s): %w", value, err)
	}

	t.Value = parsed

	return nil
}

func (t TypeProxyURL) Get(defaultValue *url.URL) *url.URL {
	if t.Value == nil {
		return defaultValue
	}

	return t.Value
}

func (t *TypeProxyURL) UnmarshalText(data []byte) error {
	return t.Set(string(data))
}

func (t TypeProxyURL) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// String hides a password.
func (t TypeProxyURL) String() string {
	if t.Value == nil {
		return ""
	}

	return t.Value.Redacted()
}
