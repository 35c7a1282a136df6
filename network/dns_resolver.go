package network

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/miekg/dns"
)

// dnsQuerier asks some upstream for A or AAAA records. It returns
// addresses and a time they could be cached for.
type dnsQuerier interface {
	Query(ctx context.Context, hostname string, qtype uint16) ([]string, time.Duration, error)
}

type dnsResolver struct {
	querier  dnsQuerier
	cache    *dnsCache
	stopCh   chan struct{}
	stopOnce sync.Once
}

func (d *dnsResolver) lookup(hostname string, qtype uint16) []string {
	key := dns.TypeToString[qtype] + "/" + hostname

	if ips, ok := d.cache.Get(key); ok {
		return ips
	}

	ctx, cancel := context.WithTimeout(context.Background(), DNSTimeout)
	defer cancel()

	ips, ttl, err := d.querier.Query(ctx, hostname, qtype)
	if err != nil || len(ips) == 0 {
		return nil
	}

	d.cache.Set(key, ips, ttl)

	return ips
}

func (d *dnsResolver) LookupA(hostname string) []string {
	return d.lookup(hostname, dns.TypeA)
}

func (d *dnsResolver) LookupAAAA(hostname string) []string {
	return d.lookup(hostname, dns.TypeAAAA)
}

// LookupBoth resolves A and AAAA in parallel. IPv4 addresses go first.
func (d *dnsResolver) LookupBoth(hostname string) []string {
	var (
		ipv4 []string
		ipv6 []string
		wg   sync.WaitGroup
	)

	wg.Add(dnsResolverConcurrency)

	go func() {
		defer wg.Done()

		ipv4 = d.LookupA(hostname)
	}()

	go func() {
		defer wg.Done()

		ipv6 = d.LookupAAAA(hostname)
	}()

	wg.Wait()

	rv := make([]string, 0, len(ipv4)+len(ipv6))
	rv = append(rv, ipv4...)

	return append(rv, ipv6...)
}

// WarmUp populates a cache before the first dial.
func (d *dnsResolver) WarmUp(hostnames []string) {
	wg := &sync.WaitGroup{}

	for _, hostname := range hostnames {
		wg.Add(1)

		go func(hostname string) {
			defer wg.Done()

			d.LookupBoth(hostname)
		}(hostname)
	}

	wg.Wait()
}

func (d *dnsResolver) Metrics() DNSCacheMetrics {
	return d.cache.Metrics()
}

func (d *dnsResolver) Stop() {
	d.stopOnce.Do(func() {
		close(d.stopCh)
	})
}

func (d *dnsResolver) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stopCh:
			return
		case <-ticker.C:
			d.cache.Cleanup()
		}
	}
}

func newDNSResolver(querier dnsQuerier) *dnsResolver {
	rv := &dnsResolver{
		querier: querier,
		cache:   newDNSCache(defaultDNSCacheSize),
		stopCh:  make(chan struct{}),
	}

	go rv.cleanupLoop(dnsCacheCleanupPeriod)

	return rv
}

// dohQuerier sends RFC 8484 DNS-over-HTTPS requests.
type dohQuerier struct {
	endpoint   string
	httpClient *http.Client
}

func (d dohQuerier) Query(ctx context.Context, hostname string, qtype uint16) ([]string, time.Duration, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(hostname), qtype)
	msg.RecursionDesired = true
	msg.Id = 0 // RFC 8484 4.1: кэшируемые запросы используют id 0.

	packed, err := msg.Pack()
	if err != nil {
		return nil, 0, fmt.Errorf("cannot pack dns message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(packed))
	if err != nil {
		return nil, 0, fmt.Errorf("cannot create request: %w", err)
	}

	req.Header.Set("Accept", "application/dns-message")
	req.Header.Set("Content-Type", "application/dns-message")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("doh request has failed: %w", err)
	}

	defer func() {
		io.Copy(io.Discard, resp.Body) //nolint: errcheck
		resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("doh server returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, dns.MaxMsgSize))
	if err != nil {
		return nil, 0, fmt.Errorf("cannot read response: %w", err)
	}

	response := new(dns.Msg)
	if err := response.Unpack(body); err != nil {
		return nil, 0, fmt.Errorf("cannot unpack dns response: %w", err)
	}

	if response.Rcode != dns.RcodeSuccess {
		return nil, 0, fmt.Errorf("dns query has failed: %s", dns.RcodeToString[response.Rcode])
	}

	ips, ttl := parseAnswers(response.Answer)

	return ips, ttl, nil
}

// parseAnswers returns addresses and a minimal TTL among them. CNAME
// records are skipped: a resolver already followed them.
func parseAnswers(answers []dns.RR) ([]string, time.Duration) {
	var (
		ips    []string
		minTTL uint32
	)

	for _, rr := range answers {
		var ip net.IP

		switch record := rr.(type) {
		case *dns.A:
			ip = record.A
		case *dns.AAAA:
			ip = record.AAAA
		default:
			continue
		}

		ips = append(ips, ip.String())

		if ttl := rr.Header().Ttl; minTTL == 0 || ttl < minTTL {
			minTTL = ttl
		}
	}

	ttl := time.Duration(minTTL) * time.Second
	if ttl < minDNSTTL {
		ttl = minDNSTTL
	}

	return ips, ttl
}

func makeDOHEndpoint(hostname string) string {
	if ip := net.ParseIP(hostname); ip != nil && ip.To4() == nil {
		hostname = "[" + hostname + "]"
	}

	return "https://" + hostname + "/dns-query"
}
