package shroudlib

import (
	"fmt"
	"strings"
)

// NetworkCondition is a class of censorship a network exhibits.
type NetworkCondition uint8

const (
	// ConditionNormal means that everything works.
	ConditionNormal NetworkCondition = iota

	// ConditionThrottled means that connections work but are slowed down.
	ConditionThrottled

	// ConditionHeavyDPI means that CDN ranges are blocked while some sites
	// are reachable.
	ConditionHeavyDPI

	// ConditionBlackout means that nothing is reachable.
	ConditionBlackout

	// ConditionUDPBlocked means that UDP (and QUIC) is dropped.
	ConditionUDPBlocked

	// ConditionTLSBlocked means that TLS handshakes are reset.
	ConditionTLSBlocked

	// ConditionWhitelistedOnly means that only allowlisted destinations
	// are reachable.
	ConditionWhitelistedOnly
)

var conditionNames = []string{
	"normal",
	"throttled",
	"heavy-dpi",
	"blackout",
	"udp-blocked",
	"tls-blocked",
	"whitelisted-only",
}

func (c NetworkCondition) String() string {
	if int(c) < len(conditionNames) {
		return conditionNames[c]
	}

	return fmt.Sprintf("condition(%d)", c)
}

// MarshalText is to support text encoding.
func (c NetworkCondition) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText is to support text decoding.
func (c *NetworkCondition) UnmarshalText(data []byte) error {
	value, err := ParseNetworkCondition(string(data))
	if err != nil {
		return err
	}

	*c = value

	return nil
}

// ParseNetworkCondition parses a condition name like 'heavy-dpi'.
func ParseNetworkCondition(value string) (NetworkCondition, error) {
	needle := normalizeName(value)

	for i, name := range conditionNames {
		if name == needle {
			return NetworkCondition(i), nil
		}
	}

	return ConditionNormal, fmt.Errorf("unknown network condition %q", value)
}

// NetworkConditions returns all known conditions.
func NetworkConditions() []NetworkCondition {
	rv := make([]NetworkCondition, len(conditionNames))

	for i := range conditionNames {
		rv[i] = NetworkCondition(i)
	}

	return rv
}

// Strategy is a way to reach a proxy server: a protocol, a transport and
// a set of tricks applied to a connection.
type Strategy uint8

const (
	// StrategyRealityVision is VLESS over REALITY with a vision flow.
	StrategyRealityVision Strategy = iota

	// StrategyRealityVisionFragment is StrategyRealityVision with a
	// fragmented ClientHello.
	StrategyRealityVisionFragment

	// StrategySplitHTTPCDN is VLESS over SplitHTTP behind a CDN.
	StrategySplitHTTPCDN

	// StrategyHysteria2Brutal is Hysteria2 with brutal congestion control.
	StrategyHysteria2Brutal

	// StrategyTUICBBR is TUIC with BBR.
	StrategyTUICBBR

	// StrategyVLESSWSCDN is VLESS over websockets behind a CDN.
	StrategyVLESSWSCDN

	// StrategyVLESSGRPCCDN is VLESS over gRPC behind a CDN.
	StrategyVLESSGRPCCDN

	// StrategyVMessWSTLS is VMess over websockets with TLS.
	StrategyVMessWSTLS

	// StrategyDirectFragment is a direct connection with a fragmented
	// ClientHello, no proxy at all.
	StrategyDirectFragment
)

var strategyNames = []string{
	"reality-vision",
	"reality-vision-fragment",
	"splithttp-cdn",
	"hysteria2-brutal",
	"tuic-bbr",
	"vless-ws-cdn",
	"vless-grpc-cdn",
	"vmess-ws-tls",
	"direct-fragment",
}

func (s Strategy) String() string {
	if int(s) < len(strategyNames) {
		return strategyNames[s]
	}

	return fmt.Sprintf("strategy(%d)", s)
}

// Fragments tells if connections of this strategy need a fragmented
// ClientHello.
func (s Strategy) Fragments() bool {
	return s == StrategyRealityVisionFragment || s == StrategyDirectFragment
}

// MarshalText is to support text encoding.
func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText is to support text decoding.
func (s *Strategy) UnmarshalText(data []byte) error {
	value, err := ParseStrategy(string(data))
	if err != nil {
		return err
	}

	*s = value

	return nil
}

// ParseStrategy parses a strategy name like 'reality-vision'.
func ParseStrategy(value string) (Strategy, error) {
	needle := normalizeName(value)

	for i, name := range strategyNames {
		if name == needle {
			return Strategy(i), nil
		}
	}

	return StrategyRealityVision, fmt.Errorf("unknown strategy %q", value)
}

// Strategies returns all known strategies.
func Strategies() []Strategy {
	rv := make([]Strategy, len(strategyNames))

	for i := range strategyNames {
		rv[i] = Strategy(i)
	}

	return rv
}

var fallbackChains = map[NetworkCondition][]Strategy{
	ConditionNormal: {
		StrategyRealityVision,
		StrategyHysteria2Brutal,
		StrategyVLESSGRPCCDN,
		StrategyVLESSWSCDN,
		StrategySplitHTTPCDN,
	},
	ConditionThrottled: {
		StrategyHysteria2Brutal,
		StrategyTUICBBR,
		StrategyRealityVision,
		StrategySplitHTTPCDN,
	},
	ConditionHeavyDPI: {
		StrategyRealityVisionFragment,
		StrategySplitHTTPCDN,
		StrategyVLESSWSCDN,
		StrategyDirectFragment,
	},
	ConditionBlackout: {
		StrategySplitHTTPCDN,
		StrategyVLESSWSCDN,
		StrategyRealityVisionFragment,
		StrategyDirectFragment,
	},
	ConditionUDPBlocked: {
		StrategyRealityVision,
		StrategyVLESSGRPCCDN,
		StrategyVLESSWSCDN,
		StrategySplitHTTPCDN,
	},
	ConditionTLSBlocked: {
		StrategyRealityVisionFragment,
		StrategyDirectFragment,
		StrategySplitHTTPCDN,
		StrategyVMessWSTLS,
	},
	ConditionWhitelistedOnly: {
		StrategySplitHTTPCDN,
		StrategyVLESSWSCDN,
		StrategyVLESSGRPCCDN,
		StrategyVMessWSTLS,
	},
}

// FallbackChain returns an ordered list of strategies to try for a given
// condition. Unknown conditions get a chain of ConditionNormal. A
// returned slice is a copy.
func FallbackChain(condition NetworkCondition) []Strategy {
	chain, ok := fallbackChains[condition]
	if !ok {
		chain = fallbackChains[ConditionNormal]
	}

	return append([]Strategy(nil), chain...)
}

func normalizeName(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))

	return strings.ReplaceAll(value, "_", "-")
}
