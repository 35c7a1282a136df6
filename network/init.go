// Package network contains a default implementation of
// [shroudlib.Network].
//
// A network is a dialer plus a DNS resolver. Names are resolved with
// DNS-over-HTTPS by default: plain DNS is the first thing a censor
// poisons. A dialer can be chained through a SOCKS5 proxy which is put on
// a cooldown after a number of failed attempts.
package network

import (
	"context"
	"errors"
	"time"

	"github.com/akab00m/shroud/essentials"
)

const (
	// DefaultTimeout is a default timeout for establishing TCP
	// connections.
	DefaultTimeout = 10 * time.Second

	// DefaultHTTPTimeout is a default timeout of an HTTP client.
	DefaultHTTPTimeout = 10 * time.Second

	// DNSTimeout is a timeout of a single DNS query.
	DNSTimeout = 5 * time.Second

	// DefaultTCPKeepAlivePeriod is a period between TCP keepalive probes.
	DefaultTCPKeepAlivePeriod = 10 * time.Second

	// DefaultDOHHostname is an IP address of DNS-over-HTTPS server.
	DefaultDOHHostname = "9.9.9.9"

	// DefaultUserAgent is sent with each HTTP request, blocklist
	// downloads and DNS-over-HTTPS queries included.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

	// ProxyDialerOpenThreshold is a number of consecutive failures after
	// which a proxy is put on a cooldown.
	ProxyDialerOpenThreshold = 5

	// ProxyDialerReconnectTimeout is a duration of a proxy cooldown.
	ProxyDialerReconnectTimeout = time.Minute

	// tcpLingerTimeout is in seconds.
	tcpLingerTimeout = 1

	defaultDNSCacheSize    = 1024
	defaultDNSTTL          = 5 * time.Minute
	minDNSTTL              = 30 * time.Second
	dnsCacheCleanupPeriod  = 5 * time.Minute
	dnsResolverConcurrency = 2
)

// ErrCircuitBreakerOpened is returned when a proxy is on a cooldown.
var ErrCircuitBreakerOpened = errors.New("circuit breaker is opened")

// Dialer establishes TCP connections.
type Dialer interface {
	Dial(network, address string) (essentials.Conn, error)
	DialContext(ctx context.Context, network, address string) (essentials.Conn, error)
}
