package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// TypeBlocklistURI is either a readable local file or an http(s) URL of a
// FireHOL list. URLs which point to local networks are rejected: a list
// is downloaded through the same network the engine evades on.
type TypeBlocklistURI struct {
	Value string
}

func (t *TypeBlocklistURI) Set(value string) error {
	if stat, err := os.Stat(value); err == nil {
		return t.setFile(value, stat)
	}

	return t.setURL(value)
}

func (t *TypeBlocklistURI) setFile(value string, stat os.FileInfo) error {
	switch {
	case stat.IsDir():
		return fmt.Errorf("value is correct filepath but directory")
	case stat.Mode().Perm()&0o400 == 0:
		return fmt.Errorf("value is correct filepath but not readable")
	}

	absPath, err := filepath.Abs(value)
	if err != nil {
		return fmt.Errorf("cannot resolve absolute path of %s: %w", value, err)
	}

	t.Value = absPath

	return nil
}

func (t *TypeBlocklistURI) setURL(value string) error {
	parsedURL, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("incorrect url (%s): %w", value, err)
	}

	switch {
	case parsedURL.Scheme != "http" && parsedURL.Scheme != "https":
		return fmt.Errorf("unknown schema %s (%s)", parsedURL.Scheme, value)
	case parsedURL.Hostname() == "":
		return fmt.Errorf("incorrect url %s", value)
	case parsedURL.User != nil:
		return fmt.Errorf("credentials in url are not allowed (%s)", value)
	case isLocalHost(parsedURL.Hostname()):
		return fmt.Errorf("blocked host in url %s", value)
	}

	t.Value = parsedURL.String()

	return nil
}

func (t TypeBlocklistURI) Get(defaultValue string) string {
	if t.Value == "" {
		return defaultValue
	}

	return t.Value
}

func (t TypeBlocklistURI) IsRemote() bool {
	return strings.HasPrefix(t.Value, "http://") || strings.HasPrefix(t.Value, "https://")
}

func (t *TypeBlocklistURI) UnmarshalText(data []byte) error {
	return t.Set(string(data))
}

func (t TypeBlocklistURI) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t TypeBlocklistURI) String() string {
	return t.Value
}

func isLocalHost(hostname string) bool {
	host := strings.ToLower(hostname)

	if host == "localhost" || strings.HasSuffix(host, ".localhost") || strings.HasSuffix(host, ".local") {
		return true
	}

	ip := net.ParseIP(host)

	return ip != nil && (ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsUnspecified() ||
		ip.IsMulticast() ||
		ip.IsLinkLocalUnicast())
}
