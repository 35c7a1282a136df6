package shroudlib

import (
	"encoding/json"

	"github.com/akab00m/shroud/shroudlib/internal/xrayconf"
)

// ConnectionParams is everything a caller needs to establish a connection
// with a given strategy.
type ConnectionParams struct {
	Strategy    Strategy
	Condition   NetworkCondition
	Fingerprint Fingerprint

	// Fragment is set only for strategies which fragment ClientHello.
	Fragment *FragmentSpec

	// Protocol is an outbound of an external proxy engine.
	Protocol ProtocolParams
}

type connectionParamsJSON struct {
	Strategy       Strategy                `json:"strategy"`
	Condition      NetworkCondition        `json:"condition"`
	Fingerprint    Fingerprint             `json:"fingerprint"`
	Fragment       *FragmentSpec           `json:"fragment,omitempty"`
	Protocol       string                  `json:"protocol"`
	Flow           string                  `json:"flow,omitempty"`
	StreamSettings xrayconf.StreamSettings `json:"streamSettings"`
}

// MarshalJSON renders parameters in a format of an external engine:
// protocol, flow and streamSettings are top level keys.
func (c ConnectionParams) MarshalJSON() ([]byte, error) {
	return json.Marshal(connectionParamsJSON{ //nolint: wrapcheck
		Strategy:       c.Strategy,
		Condition:      c.Condition,
		Fingerprint:    c.Fingerprint,
		Fragment:       c.Fragment,
		Protocol:       c.Protocol.Protocol,
		Flow:           c.Protocol.Flow,
		StreamSettings: c.Protocol.StreamSettings,
	})
}

// BuildConnectionParams returns parameters of a given strategy. It never
// fails: unknown strategies get parameters of REALITY.
func (o *Orchestrator) BuildConnectionParams(strategy Strategy) ConnectionParams {
	fp := o.Fingerprint(true)

	o.mutex.Lock()
	condition := o.state.NetworkCondition
	o.mutex.Unlock()

	rv := ConnectionParams{
		Strategy:    strategy,
		Condition:   condition,
		Fingerprint: fp,
	}

	common := xrayconf.Common{
		ServerName:  o.protocol.getServerName(),
		Fingerprint: fp.EngineTag,
		ALPN:        fp.ALPN,
	}

	if strategy.Fragments() {
		spec := o.fragments.Config().EngineSpec()
		rv.Fragment = &spec
		common.Fragment = &xrayconf.Fragment{
			Packets:  spec.Packets,
			Length:   spec.Length,
			Interval: spec.Interval,
		}
	}

	p := o.protocol

	switch strategy {
	case StrategySplitHTTPCDN:
		rv.Protocol = xrayconf.SplitHTTP(common, p.CDNPath, p.CDNHost)
	case StrategyHysteria2Brutal:
		rv.Protocol = xrayconf.Hysteria2(common, p.HysteriaUpMbps, p.HysteriaDownMbps)
	case StrategyTUICBBR:
		rv.Protocol = xrayconf.TUIC(common, p.TUICCongestion)
	case StrategyVLESSWSCDN:
		rv.Protocol = xrayconf.WebSocket(xrayconf.ProtocolVLESS, common, p.CDNPath, p.CDNHost)
	case StrategyVLESSGRPCCDN:
		rv.Protocol = xrayconf.GRPC(common, p.GRPCServiceName)
	case StrategyVMessWSTLS:
		rv.Protocol = xrayconf.WebSocket(xrayconf.ProtocolVMess, common, p.CDNPath, p.CDNHost)
	case StrategyDirectFragment:
		rv.Protocol = xrayconf.Direct(common)
	default:
		rv.Protocol = xrayconf.Reality(common, p.RealityPublicKey, p.RealityShortID)
	}

	return rv
}
