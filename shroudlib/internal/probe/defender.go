package probe

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/akab00m/shroud/shroudlib/internal/entropy"
	"github.com/akab00m/shroud/shroudlib/internal/tlshello"
	"github.com/yl2chen/cidranger"
)

const (
	DefaultBurstConnections = 10
	DefaultWindow           = time.Minute
	DefaultMaxTrackedIPs    = 65536

	ShortPayloadLen = 10

	burstPenalty        = 0.3
	shortPayloadPenalty = 0.1
	suspiciousThreshold = 0.8
	blacklistThreshold  = 0.9

	maxTimestampsPerIP = 256

	scoreEpsilon = 1e-9
)

// DefaultProberNetworks are source ranges active probing was observed
// from. They can be overridden with Opts.ProberNetworks.
var DefaultProberNetworks = []string{
	"175.42.1.0/24",
	"202.108.181.0/24",
	"124.238.113.0/24",
	"223.166.74.0/24",
	"111.206.216.0/24",
}

// IPMatcher is any external list of IP addresses which have to be treated
// as probers. A blocklist fits here.
type IPMatcher interface {
	Contains(net.IP) bool
}

// Opts configures a Defender.
type Opts struct {
	// ProberNetworks is a list of CIDRs of known probers. nil means
	// DefaultProberNetworks, an empty non-nil slice disables the table.
	ProberNetworks []string

	// Matcher is an optional external list of probers.
	Matcher IPMatcher

	// FallbackPage is served to HTTP probes. Empty means an nginx welcome
	// page.
	FallbackPage []byte

	// ShadowsocksEntropy is a minimal entropy of a Shadowsocks probe.
	ShadowsocksEntropy float64

	// ShadowsocksLengths are typical lengths of Shadowsocks probes.
	ShadowsocksLengths []int

	// BurstConnections is a number of connections in Window after which a
	// connection is treated as a part of a burst.
	BurstConnections int

	// Window is a trailing window for burst detection.
	Window time.Duration

	// MaxTrackedIPs bounds a number of addresses with behavioral state.
	MaxTrackedIPs int

	// Now is a clock. Default is time.Now.
	Now func() time.Time
}

func (o Opts) getProberNetworks() []string {
	if o.ProberNetworks == nil {
		return DefaultProberNetworks
	}

	return o.ProberNetworks
}

func (o Opts) getFallbackPage() []byte {
	if len(o.FallbackPage) == 0 {
		return []byte(DefaultFallbackPage)
	}

	return o.FallbackPage
}

func (o Opts) getShadowsocksEntropy() float64 {
	if o.ShadowsocksEntropy <= 0 {
		return DefaultShadowsocksEntropy
	}

	return o.ShadowsocksEntropy
}

func (o Opts) getShadowsocksLengths() []int {
	if len(o.ShadowsocksLengths) == 0 {
		return DefaultShadowsocksLengths
	}

	return o.ShadowsocksLengths
}

func (o Opts) getBurstConnections() int {
	if o.BurstConnections <= 0 {
		return DefaultBurstConnections
	}

	return o.BurstConnections
}

func (o Opts) getWindow() time.Duration {
	if o.Window <= 0 {
		return DefaultWindow
	}

	return o.Window
}

func (o Opts) getMaxTrackedIPs() int {
	if o.MaxTrackedIPs <= 0 {
		return DefaultMaxTrackedIPs
	}

	return o.MaxTrackedIPs
}

func (o Opts) getNow() func() time.Time {
	if o.Now == nil {
		return time.Now
	}

	return o.Now
}

type ipState struct {
	timestamps []time.Time
	suspicion  float64
}

func (s *ipState) trim(cutoff time.Time) {
	idx := 0
	for idx < len(s.timestamps) && !s.timestamps[idx].After(cutoff) {
		idx++
	}

	s.timestamps = s.timestamps[idx:]
}

type proberNetwork struct {
	ipNet net.IPNet
}

func (p proberNetwork) Network() net.IPNet {
	return p.ipNet
}

// Stats is a snapshot of a defender state.
type Stats struct {
	Tracked        int    `json:"tracked"`
	Blacklisted    int    `json:"blacklisted"`
	ProbesDetected uint64 `json:"probes_detected"`
}

// Defender classifies inbound connections. It is safe for concurrent use.
type Defender struct {
	probers            cidranger.Ranger
	matcher            IPMatcher
	fallbackPage       []byte
	shadowsocksEntropy float64
	shadowsocksLengths map[int]struct{}
	burstConnections   int
	window             time.Duration
	maxTrackedIPs      int
	now                func() time.Time

	mutex          sync.Mutex
	states         map[string]*ipState
	blacklist      map[string]struct{}
	probesDetected uint64
}

// Analyze checks initial bytes of a connection from sourceIP. sourceIP may
// be either an address or a host:port pair.
//
// Checks go in order: known probers and blacklisted addresses, then
// protocol signatures and then behavior of the source. First match wins.
func (d *Defender) Analyze(sourceIP string, initialBytes []byte) (bool, Type) {
	key, ip := normalizeIP(sourceIP)

	isProbe, probeType := d.analyze(key, ip, initialBytes)
	if isProbe {
		d.mutex.Lock()
		d.probesDetected++
		d.mutex.Unlock()
	}

	return isProbe, probeType
}

func (d *Defender) analyze(key string, ip net.IP, data []byte) (bool, Type) {
	if ip != nil {
		if ok, _ := d.probers.Contains(ip); ok {
			return true, TypeKnownProber
		}

		if d.matcher != nil && d.matcher.Contains(ip) {
			return true, TypeKnownProber
		}
	}

	now := d.now()

	d.mutex.Lock()
	if _, ok := d.blacklist[key]; ok {
		d.mutex.Unlock()

		return true, TypeBlacklisted
	}

	state := d.touch(key, now)
	d.mutex.Unlock()

	if probeType := d.matchSignature(data); probeType != TypeNone {
		return true, probeType
	}

	if state == nil {
		return false, TypeNone
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	burst := len(state.timestamps) > d.burstConnections
	if burst {
		state.suspicion += burstPenalty
	}

	if len(data) < ShortPayloadLen {
		state.suspicion += shortPayloadPenalty
	}

	if state.suspicion > 1 {
		state.suspicion = 1
	}

	if state.suspicion >= blacklistThreshold-scoreEpsilon {
		d.blacklist[key] = struct{}{}
	}

	switch {
	case burst:
		return true, TypeBurst
	case state.suspicion > suspiciousThreshold+scoreEpsilon:
		return true, TypeSuspicious
	}

	return false, TypeNone
}

// touch records a connection timestamp. It returns nil if a state for
// this address cannot be tracked.
func (d *Defender) touch(key string, now time.Time) *ipState {
	state, ok := d.states[key]
	if !ok {
		if len(d.states) >= d.maxTrackedIPs {
			d.prune(now)
		}

		if len(d.states) >= d.maxTrackedIPs {
			return nil
		}

		state = &ipState{}
		d.states[key] = state
	}

	state.trim(now.Add(-d.window))
	state.timestamps = append(state.timestamps, now)

	if len(state.timestamps) > maxTimestampsPerIP {
		state.timestamps = state.timestamps[len(state.timestamps)-maxTimestampsPerIP:]
	}

	return state
}

func (d *Defender) matchSignature(data []byte) Type {
	for _, sig := range signatures {
		if sig.Match(data) {
			return sig.Type
		}
	}

	if _, ok := d.shadowsocksLengths[len(data)]; ok &&
		!tlshello.IsClientHello(data) &&
		entropy.Shannon(data) >= d.shadowsocksEntropy {
		return TypeShadowsocks
	}

	return TypeNone
}

// Prune drops addresses which have no recent connections and no
// suspicion. Blacklisted addresses are never dropped. It returns a number
// of removed entries.
func (d *Defender) Prune(now time.Time) int {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	return d.prune(now)
}

func (d *Defender) prune(now time.Time) int {
	cutoff := now.Add(-d.window)
	removed := 0

	for key, state := range d.states {
		state.trim(cutoff)

		if len(state.timestamps) == 0 && state.suspicion == 0 {
			delete(d.states, key)

			removed++
		}
	}

	return removed
}

// Suspicion returns a current suspicion score of an address.
func (d *Defender) Suspicion(sourceIP string) float64 {
	key, _ := normalizeIP(sourceIP)

	d.mutex.Lock()
	defer d.mutex.Unlock()

	if state, ok := d.states[key]; ok {
		return state.suspicion
	}

	return 0
}

// IsBlacklisted tells if an address is blacklisted for a lifetime of the
// process.
func (d *Defender) IsBlacklisted(sourceIP string) bool {
	key, _ := normalizeIP(sourceIP)

	d.mutex.Lock()
	defer d.mutex.Unlock()

	_, ok := d.blacklist[key]

	return ok
}

// Stats returns a snapshot of counters.
func (d *Defender) Stats() Stats {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	return Stats{
		Tracked:        len(d.states),
		Blacklisted:    len(d.blacklist),
		ProbesDetected: d.probesDetected,
	}
}

// NewDefender builds a new defender. It fails only if a prober network is
// not a valid CIDR.
func NewDefender(opts Opts) (*Defender, error) {
	ranger := cidranger.NewPCTrieRanger()

	for _, value := range opts.getProberNetworks() {
		_, ipNet, err := net.ParseCIDR(value)
		if err != nil {
			return nil, fmt.Errorf("incorrect prober network %s: %w", value, err)
		}

		if err := ranger.Insert(proberNetwork{ipNet: *ipNet}); err != nil {
			return nil, fmt.Errorf("cannot insert prober network %s: %w", value, err)
		}
	}

	lengths := map[int]struct{}{}
	for _, v := range opts.getShadowsocksLengths() {
		lengths[v] = struct{}{}
	}

	return &Defender{
		probers:            ranger,
		matcher:            opts.Matcher,
		fallbackPage:       opts.getFallbackPage(),
		shadowsocksEntropy: opts.getShadowsocksEntropy(),
		shadowsocksLengths: lengths,
		burstConnections:   opts.getBurstConnections(),
		window:             opts.getWindow(),
		maxTrackedIPs:      opts.getMaxTrackedIPs(),
		now:                opts.getNow(),
		states:             map[string]*ipState{},
		blacklist:          map[string]struct{}{},
	}, nil
}

func normalizeIP(value string) (string, net.IP) {
	if host, _, err := net.SplitHostPort(value); err == nil {
		value = host
	}

	ip := net.ParseIP(value)
	if ip == nil {
		return value, nil
	}

	if v4 := ip.To4(); v4 != nil {
		ip = v4
	}

	return ip.String(), ip
}
