package network

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"time"

	"github.com/akab00m/shroud/essentials"
	"github.com/akab00m/shroud/shroudlib"
)

type networkHTTPTransport struct {
	userAgent string
	next      http.RoundTripper
}

func (n networkHTTPTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", n.userAgent)

	return n.next.RoundTrip(req) //nolint: wrapcheck
}

// Network is a default implementation of [shroudlib.Network].
type Network struct {
	dialer      Dialer
	httpTimeout time.Duration
	userAgent   string
	dns         *dnsResolver
}

func (n *Network) Dial(protocol, address string) (essentials.Conn, error) {
	return n.DialContext(context.Background(), protocol, address)
}

// DialContext resolves a hostname and tries all its addresses in random
// order until one of them accepts a connection.
func (n *Network) DialContext(ctx context.Context, protocol, address string) (essentials.Conn, error) {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return nil, fmt.Errorf("incorrect address %s: %w", address, err)
	}

	ips, err := n.dnsResolve(protocol, host)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve dns names: %w", err)
	}

	rand.Shuffle(len(ips), func(i, j int) {
		ips[i], ips[j] = ips[j], ips[i]
	})

	var conn essentials.Conn

	for _, v := range ips {
		conn, err = n.dialer.DialContext(ctx, protocol, net.JoinHostPort(v, port))
		if err == nil {
			return conn, nil
		}

		if ctx.Err() != nil {
			break
		}
	}

	return nil, fmt.Errorf("cannot dial to %s:%s: %w", protocol, address, err)
}

func (n *Network) MakeHTTPClient(dialFunc func(ctx context.Context,
	network, address string) (essentials.Conn, error),
) *http.Client {
	if dialFunc == nil {
		dialFunc = n.DialContext
	}

	return makeHTTPClient(n.userAgent, n.httpTimeout, dialFunc)
}

func (n *Network) dnsResolve(protocol, hostname string) ([]string, error) {
	if net.ParseIP(hostname) != nil {
		return []string{hostname}, nil
	}

	var ips []string

	switch protocol {
	case "tcp4":
		ips = n.dns.LookupA(hostname)
	case "tcp6":
		ips = n.dns.LookupAAAA(hostname)
	default:
		ips = n.dns.LookupBoth(hostname)
	}

	if len(ips) == 0 {
		return nil, fmt.Errorf("cannot find any ips for %s:%s", protocol, hostname)
	}

	// кэш отдаёт общий слайс, а DialContext его перемешивает
	return append([]string(nil), ips...), nil
}

// DNSCacheMetrics returns counters of a DNS cache.
func (n *Network) DNSCacheMetrics() DNSCacheMetrics {
	return n.dns.Metrics()
}

// WarmUp pre-resolves a list of hostnames.
func (n *Network) WarmUp(hostnames []string) {
	n.dns.WarmUp(hostnames)
}

// Stop releases background resources.
func (n *Network) Stop() {
	n.dns.Stop()
}

// NewNetwork assembles a [shroudlib.Network] compatible structure based on
// a dialer and given params. Names are resolved with DNS-over-HTTPS
// server dohHostname which has to be an IP address.
func NewNetwork(dialer Dialer,
	userAgent, dohHostname string,
	httpTimeout time.Duration,
) (*Network, error) {
	return NewNetworkWithDNSMode(dialer, userAgent, dohHostname, httpTimeout, false)
}

// NewNetworkWithDNSMode is NewNetwork which can use a system resolver
// instead of DNS-over-HTTPS.
func NewNetworkWithDNSMode(dialer Dialer,
	userAgent, dohHostname string,
	httpTimeout time.Duration,
	usePlainDNS bool,
) (*Network, error) {
	switch {
	case httpTimeout < 0:
		return nil, fmt.Errorf("timeout should be positive number %s", httpTimeout)
	case httpTimeout == 0:
		httpTimeout = DefaultHTTPTimeout
	}

	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	var querier dnsQuerier

	if usePlainDNS {
		querier = newPlainQuerier()
	} else {
		if net.ParseIP(dohHostname) == nil {
			return nil, fmt.Errorf("hostname %s should be IP address", dohHostname)
		}

		querier = dohQuerier{
			endpoint:   makeDOHEndpoint(dohHostname),
			httpClient: makeHTTPClient(userAgent, DNSTimeout, dialer.DialContext),
		}
	}

	return &Network{
		dialer:      dialer,
		httpTimeout: httpTimeout,
		userAgent:   userAgent,
		dns:         newDNSResolver(querier),
	}, nil
}

func makeHTTPClient(userAgent string,
	timeout time.Duration,
	dialFunc func(ctx context.Context, network, address string) (essentials.Conn, error),
) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: networkHTTPTransport{
			userAgent: userAgent,
			next: &http.Transport{
				DialContext: func(ctx context.Context, network, address string) (net.Conn, error) {
					return dialFunc(ctx, network, address)
				},
			},
		},
	}
}

var _ shroudlib.Network = (*Network)(nil)
