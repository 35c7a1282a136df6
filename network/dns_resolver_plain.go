package network

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"
)

// plainQuerier uses a system resolver. It does not know TTL of records
// so everything is cached for defaultDNSTTL.
type plainQuerier struct {
	resolver *net.Resolver
}

func (p plainQuerier) Query(ctx context.Context, hostname string, qtype uint16) ([]string, time.Duration, error) {
	network := "ip4"
	if qtype == dns.TypeAAAA {
		network = "ip6"
	}

	addrs, err := p.resolver.LookupIP(ctx, network, hostname)
	if err != nil {
		return nil, 0, fmt.Errorf("cannot resolve %s: %w", hostname, err)
	}

	ips := make([]string, 0, len(addrs))

	for _, addr := range addrs {
		ips = append(ips, addr.String())
	}

	return ips, defaultDNSTTL, nil
}

func newPlainQuerier() plainQuerier {
	return plainQuerier{
		resolver: &net.Resolver{
			PreferGo: true,
		},
	}
}
