// Package netcond detects what a censor does with a local network.
//
// Three probes run concurrently under a shared budget: a TCP connect to a
// CDN edge, a TCP connect to a well-known site and a plain UDP DNS query.
// An optional uTLS handshake checks if TLS itself is interfered with.
// Probe failures are never errors, they are facts about the network.
package netcond

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"
	utls "github.com/refraction-networking/utls"
)

const (
	DefaultCDNAddress     = "104.16.132.229:443"
	DefaultSiteAddress    = "142.250.185.78:443"
	DefaultDNSAddress     = "1.1.1.1:53"
	DefaultTLSServerName  = "www.google.com"
	DefaultDNSQuestion    = "www.google.com."
	DefaultProbeTimeout   = 1500 * time.Millisecond
	DefaultDetectionLimit = 3 * time.Second
)

const (
	probeCDN = iota
	probeSite
	probeUDP
	probeTLS
)

// DialFunc dials TCP connections for probes.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// ProbeResult is an outcome of a single probe.
type ProbeResult struct {
	Target    string        `json:"target"`
	Reachable bool          `json:"reachable"`
	Latency   time.Duration `json:"latency"`
	Error     string        `json:"error,omitempty"`
}

// Result is an outcome of detection. Probes which have not finished in
// time are reported as unreachable and Complete is false.
type Result struct {
	CDN  ProbeResult  `json:"cdn"`
	Site ProbeResult  `json:"site"`
	UDP  ProbeResult  `json:"udp"`
	TLS  *ProbeResult `json:"tls,omitempty"`

	Complete    bool          `json:"complete"`
	LocalIP     net.IP        `json:"local_ip,omitempty"`
	ISP         string        `json:"isp"`
	NetworkType string        `json:"network_type"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
}

// Opts configures a Detector. Zero values mean defaults.
type Opts struct {
	CDNAddress  string
	SiteAddress string
	DNSAddress  string
	DNSQuestion string

	// TLSCheck enables a uTLS handshake against SiteAddress.
	TLSCheck      bool
	TLSServerName string
	TLSHelloID    *utls.ClientHelloID

	ProbeTimeout   time.Duration
	DetectionLimit time.Duration

	ISPTable []ISP

	Dial    DialFunc
	LocalIP func() (net.IP, error)
}

func (o Opts) getCDNAddress() string {
	if o.CDNAddress == "" {
		return DefaultCDNAddress
	}

	return o.CDNAddress
}

func (o Opts) getSiteAddress() string {
	if o.SiteAddress == "" {
		return DefaultSiteAddress
	}

	return o.SiteAddress
}

func (o Opts) getDNSAddress() string {
	if o.DNSAddress == "" {
		return DefaultDNSAddress
	}

	return o.DNSAddress
}

func (o Opts) getDNSQuestion() string {
	if o.DNSQuestion == "" {
		return DefaultDNSQuestion
	}

	return dns.Fqdn(o.DNSQuestion)
}

func (o Opts) getTLSServerName() string {
	if o.TLSServerName == "" {
		return DefaultTLSServerName
	}

	return o.TLSServerName
}

func (o Opts) getTLSHelloID() utls.ClientHelloID {
	if o.TLSHelloID == nil {
		return utls.HelloChrome_Auto
	}

	return *o.TLSHelloID
}

func (o Opts) getProbeTimeout() time.Duration {
	if o.ProbeTimeout <= 0 {
		return DefaultProbeTimeout
	}

	return o.ProbeTimeout
}

func (o Opts) getDetectionLimit() time.Duration {
	if o.DetectionLimit <= 0 {
		return DefaultDetectionLimit
	}

	return o.DetectionLimit
}

func (o Opts) getISPTable() []ISP {
	if o.ISPTable == nil {
		return DefaultISPTable
	}

	return o.ISPTable
}

func (o Opts) getDial() DialFunc {
	if o.Dial == nil {
		dialer := &net.Dialer{}

		return dialer.DialContext
	}

	return o.Dial
}

// Detector runs network condition probes.
type Detector struct {
	cdnAddress     string
	siteAddress    string
	dnsAddress     string
	dnsQuestion    string
	tlsCheck       bool
	tlsServerName  string
	tlsHelloID     utls.ClientHelloID
	probeTimeout   time.Duration
	detectionLimit time.Duration
	isps           ispTable
	dial           DialFunc
	localIP        func() (net.IP, error)
}

type probeOutcome struct {
	kind   int
	result ProbeResult
}

// Detect runs all probes concurrently and waits for them at most for a
// detection limit. It never blocks longer than that and never fails.
func (d *Detector) Detect(ctx context.Context) Result {
	ctx, cancel := context.WithTimeout(ctx, d.detectionLimit)
	defer cancel()

	rv := Result{
		CDN:         ProbeResult{Target: d.cdnAddress},
		Site:        ProbeResult{Target: d.siteAddress},
		UDP:         ProbeResult{Target: d.dnsAddress},
		ISP:         ISPUnknown,
		NetworkType: NetworkTypeUnknown,
		StartedAt:   time.Now(),
	}

	probes := map[int]func(context.Context) ProbeResult{
		probeCDN:  func(ctx context.Context) ProbeResult { return d.probeTCP(ctx, d.cdnAddress) },
		probeSite: func(ctx context.Context) ProbeResult { return d.probeTCP(ctx, d.siteAddress) },
		probeUDP:  d.probeUDP,
	}

	if d.tlsCheck {
		rv.TLS = &ProbeResult{Target: d.siteAddress}
		probes[probeTLS] = d.probeTLS
	}

	outcomes := make(chan probeOutcome, len(probes))

	for kind, probe := range probes {
		go func(kind int, probe func(context.Context) ProbeResult) {
			probeCtx, probeCancel := context.WithTimeout(ctx, d.probeTimeout)
			defer probeCancel()

			outcomes <- probeOutcome{kind: kind, result: probe(probeCtx)}
		}(kind, probe)
	}

	if ip, err := d.localIP(); err == nil {
		rv.LocalIP = ip

		if isp, ok := d.isps.Lookup(ip); ok {
			rv.ISP = isp.Name
			rv.NetworkType = isp.NetworkType
		}
	}

	received := 0

loop:
	for received < len(probes) {
		select {
		case <-ctx.Done():
			break loop
		case outcome := <-outcomes:
			received++

			switch outcome.kind {
			case probeCDN:
				rv.CDN = outcome.result
			case probeSite:
				rv.Site = outcome.result
			case probeUDP:
				rv.UDP = outcome.result
			case probeTLS:
				result := outcome.result
				rv.TLS = &result
			}
		}
	}

	rv.Complete = received == len(probes)
	rv.Duration = time.Since(rv.StartedAt)

	return rv
}

func (d *Detector) probeTCP(ctx context.Context, address string) ProbeResult {
	rv := ProbeResult{Target: address}
	started := time.Now()

	conn, err := d.dial(ctx, "tcp", address)
	if err != nil {
		rv.Error = err.Error()

		return rv
	}

	conn.Close()

	rv.Reachable = true
	rv.Latency = time.Since(started)

	return rv
}

func (d *Detector) probeUDP(ctx context.Context) ProbeResult {
	rv := ProbeResult{Target: d.dnsAddress}

	msg := &dns.Msg{}
	msg.SetQuestion(d.dnsQuestion, dns.TypeA)

	client := &dns.Client{
		Net:     "udp",
		Timeout: d.probeTimeout,
	}

	_, rtt, err := client.ExchangeContext(ctx, msg, d.dnsAddress)
	if err != nil {
		rv.Error = err.Error()

		return rv
	}

	rv.Reachable = true
	rv.Latency = rtt

	return rv
}

func (d *Detector) probeTLS(ctx context.Context) ProbeResult {
	rv := ProbeResult{Target: d.siteAddress}
	started := time.Now()

	conn, err := d.dial(ctx, "tcp", d.siteAddress)
	if err != nil {
		rv.Error = err.Error()

		return rv
	}

	defer conn.Close()

	tlsConn := utls.UClient(conn, &utls.Config{
		ServerName:         d.tlsServerName,
		InsecureSkipVerify: true, //nolint: gosec
	}, d.tlsHelloID)

	if err := tlsConn.HandshakeContext(ctx); err != nil {
		rv.Error = fmt.Sprintf("handshake: %v", err)

		return rv
	}

	rv.Reachable = true
	rv.Latency = time.Since(started)

	return rv
}

func defaultLocalIP(dnsAddress string) func() (net.IP, error) {
	return func() (net.IP, error) {
		// UDP dial sends nothing, it only asks a kernel for a route.
		conn, err := net.Dial("udp", dnsAddress)
		if err != nil {
			return nil, fmt.Errorf("cannot detect outbound address: %w", err)
		}

		defer conn.Close()

		addr, ok := conn.LocalAddr().(*net.UDPAddr)
		if !ok {
			return nil, fmt.Errorf("unexpected local address %v", conn.LocalAddr())
		}

		return addr.IP, nil
	}
}

// NewDetector builds a new detector. It fails only on an incorrect ISP
// table.
func NewDetector(opts Opts) (*Detector, error) {
	isps, err := newISPTable(opts.getISPTable())
	if err != nil {
		return nil, err
	}

	localIP := opts.LocalIP
	if localIP == nil {
		localIP = defaultLocalIP(opts.getDNSAddress())
	}

	return &Detector{
		cdnAddress:     opts.getCDNAddress(),
		siteAddress:    opts.getSiteAddress(),
		dnsAddress:     opts.getDNSAddress(),
		dnsQuestion:    opts.getDNSQuestion(),
		tlsCheck:       opts.TLSCheck,
		tlsServerName:  opts.getTLSServerName(),
		tlsHelloID:     opts.getTLSHelloID(),
		probeTimeout:   opts.getProbeTimeout(),
		detectionLimit: opts.getDetectionLimit(),
		isps:           isps,
		dial:           opts.getDial(),
		localIP:        localIP,
	}, nil
}
