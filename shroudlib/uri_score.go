package shroudlib

import (
	"encoding/base64"
	"encoding/json"
	"net/url"
	"sort"
	"strings"

	"github.com/akab00m/shroud/shroudlib/internal/xrayconf"
)

const (
	weightProtocol  = 0.4
	weightTransport = 0.25
	weightSecurity  = 0.25
	weightFlow      = 0.1
)

// uriRequirement lists acceptable values of each URI component for a
// strategy. An empty list accepts anything.
type uriRequirement struct {
	protocols  []string
	transports []string
	securities []string
	flows      []string
}

var uriRequirements = map[Strategy]uriRequirement{
	StrategyRealityVision: {
		protocols:  []string{xrayconf.ProtocolVLESS},
		transports: []string{xrayconf.NetworkTCP},
		securities: []string{xrayconf.SecurityReality},
		flows:      []string{xrayconf.FlowVision},
	},
	StrategyRealityVisionFragment: {
		protocols:  []string{xrayconf.ProtocolVLESS},
		transports: []string{xrayconf.NetworkTCP},
		securities: []string{xrayconf.SecurityReality},
		flows:      []string{xrayconf.FlowVision},
	},
	StrategySplitHTTPCDN: {
		protocols:  []string{xrayconf.ProtocolVLESS},
		transports: []string{xrayconf.NetworkSplitHTTP},
		securities: []string{xrayconf.SecurityTLS},
	},
	StrategyHysteria2Brutal: {
		protocols: []string{xrayconf.ProtocolHysteria2},
	},
	StrategyTUICBBR: {
		protocols: []string{xrayconf.ProtocolTUIC},
	},
	StrategyVLESSWSCDN: {
		protocols:  []string{xrayconf.ProtocolVLESS},
		transports: []string{xrayconf.NetworkWS},
		securities: []string{xrayconf.SecurityTLS},
	},
	StrategyVLESSGRPCCDN: {
		protocols:  []string{xrayconf.ProtocolVLESS},
		transports: []string{xrayconf.NetworkGRPC},
		securities: []string{xrayconf.SecurityTLS},
	},
	StrategyVMessWSTLS: {
		protocols:  []string{xrayconf.ProtocolVMess},
		transports: []string{xrayconf.NetworkWS},
		securities: []string{xrayconf.SecurityTLS},
	},
	StrategyDirectFragment: {
		transports: []string{xrayconf.NetworkTCP},
		securities: []string{xrayconf.SecurityTLS, xrayconf.SecurityReality},
	},
}

// uriTraits are components of a proxy URI which matter for scoring.
type uriTraits struct {
	protocol  string
	transport string
	security  string
	flow      string
}

// vmess:// links carry base64 encoded JSON instead of a URL.
type vmessLink struct {
	Net string `json:"net"`
	TLS string `json:"tls"`
}

var (
	schemeAliases = map[string]string{
		"hy2": xrayconf.ProtocolHysteria2,
	}
	transportAliases = map[string]string{
		"xhttp": xrayconf.NetworkSplitHTTP,
		"raw":   xrayconf.NetworkTCP,
	}
)

func parseURITraits(uri string) (uriTraits, bool) {
	uri = strings.TrimSpace(uri)

	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok || scheme == "" || rest == "" {
		return uriTraits{}, false
	}

	scheme = strings.ToLower(scheme)
	if alias, ok := schemeAliases[scheme]; ok {
		scheme = alias
	}

	if scheme == xrayconf.ProtocolVMess {
		return parseVMessTraits(rest)
	}

	parsed, err := url.Parse(uri)
	if err != nil || parsed.Host == "" {
		return uriTraits{}, false
	}

	query := parsed.Query()
	rv := uriTraits{
		protocol:  scheme,
		transport: strings.ToLower(query.Get("type")),
		security:  strings.ToLower(query.Get("security")),
		flow:      strings.ToLower(query.Get("flow")),
	}

	if scheme == xrayconf.ProtocolHysteria2 || scheme == xrayconf.ProtocolTUIC {
		rv.transport = xrayconf.NetworkUDP
		rv.security = xrayconf.SecurityTLS
	}

	return rv.withDefaults(), true
}

func parseVMessTraits(payload string) (uriTraits, bool) {
	payload = strings.TrimRight(strings.TrimSpace(payload), "=")

	var (
		decoded []byte
		err     error
	)

	for _, encoding := range []*base64.Encoding{base64.RawStdEncoding, base64.RawURLEncoding} {
		if decoded, err = encoding.DecodeString(payload); err == nil {
			break
		}
	}

	if err != nil {
		return uriTraits{}, false
	}

	link := vmessLink{}
	if err := json.Unmarshal(decoded, &link); err != nil {
		return uriTraits{}, false
	}

	rv := uriTraits{
		protocol:  xrayconf.ProtocolVMess,
		transport: strings.ToLower(link.Net),
		security:  strings.ToLower(link.TLS),
	}

	return rv.withDefaults(), true
}

func (u uriTraits) withDefaults() uriTraits {
	if alias, ok := transportAliases[u.transport]; ok {
		u.transport = alias
	}

	if u.transport == "" {
		u.transport = xrayconf.NetworkTCP
	}

	if u.security == "" {
		u.security = xrayconf.SecurityNone
	}

	return u
}

func matches(allowed []string, value string) bool {
	if len(allowed) == 0 {
		return true
	}

	for _, v := range allowed {
		if v == value {
			return true
		}
	}

	return false
}

// ScoreURIFor returns how well a proxy URI fits a strategy, from 0 to
// 1. Each component which fits gives its weight: protocol 0.4,
// transport 0.25, security 0.25 and flow 0.1. Unparsable URIs get 0.
func ScoreURIFor(strategy Strategy, uri string) float64 {
	traits, ok := parseURITraits(uri)
	if !ok {
		return 0
	}

	req := uriRequirements[strategy]
	score := 0.0

	if matches(req.protocols, traits.protocol) {
		score += weightProtocol
	}

	if matches(req.transports, traits.transport) {
		score += weightTransport
	}

	if matches(req.securities, traits.security) {
		score += weightSecurity
	}

	if matches(req.flows, traits.flow) {
		score += weightFlow
	}

	if score > 1 {
		score = 1
	}

	return score
}

// PrioritizeURIs sorts URIs by their fitness to a strategy, best first.
// URIs with equal scores keep their order. A given slice is not modified.
func PrioritizeURIs(strategy Strategy, uris []string) []string {
	type scored struct {
		uri   string
		score float64
	}

	items := make([]scored, len(uris))
	for i, uri := range uris {
		items[i] = scored{uri: uri, score: ScoreURIFor(strategy, uri)}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].score > items[j].score
	})

	rv := make([]string, len(items))
	for i, item := range items {
		rv[i] = item.uri
	}

	return rv
}

// ScoreURI scores a URI against an active strategy.
func (o *Orchestrator) ScoreURI(uri string) float64 {
	return ScoreURIFor(o.GetOptimalStrategy(), uri)
}

// PrioritizeForStrategy sorts URIs by their fitness to an active
// strategy, best first.
func (o *Orchestrator) PrioritizeForStrategy(uris []string) []string {
	return PrioritizeURIs(o.GetOptimalStrategy(), uris)
}
