// Package xrayconf builds outbound parameters for an external proxy engine.
//
// Key names and "min-max" strings are a wire contract with the engine:
// they are what an Xray-compatible core expects in its outbound JSON.
package xrayconf

const (
	ProtocolVLESS     = "vless"
	ProtocolVMess     = "vmess"
	ProtocolHysteria2 = "hysteria2"
	ProtocolTUIC      = "tuic"
	ProtocolFreedom   = "freedom"

	NetworkTCP       = "tcp"
	NetworkWS        = "ws"
	NetworkGRPC      = "grpc"
	NetworkSplitHTTP = "splithttp"
	NetworkUDP       = "udp"

	SecurityNone    = "none"
	SecurityTLS     = "tls"
	SecurityReality = "reality"

	FlowVision = "xtls-rprx-vision"

	CongestionBrutal = "brutal"
	CongestionBBR    = "bbr"
)

// Fragment is a fragmentation spec the engine applies on its own.
type Fragment struct {
	Packets  string `json:"packets"`
	Length   string `json:"length"`
	Interval string `json:"interval"`
}

type Sockopt struct {
	TCPFastOpen   bool      `json:"tcpFastOpen,omitempty"`
	TCPCongestion string    `json:"tcpCongestion,omitempty"`
	Fragment      *Fragment `json:"fragment,omitempty"`
}

type TLSSettings struct {
	ServerName    string   `json:"serverName,omitempty"`
	Fingerprint   string   `json:"fingerprint,omitempty"`
	ALPN          []string `json:"alpn,omitempty"`
	AllowInsecure bool     `json:"allowInsecure,omitempty"`
}

type RealitySettings struct {
	ServerName  string `json:"serverName,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`
	PublicKey   string `json:"publicKey,omitempty"`
	ShortID     string `json:"shortId,omitempty"`
	SpiderX     string `json:"spiderX,omitempty"`
}

type WSSettings struct {
	Path    string            `json:"path"`
	Headers map[string]string `json:"headers,omitempty"`
}

type GRPCSettings struct {
	ServiceName string `json:"serviceName"`
	MultiMode   bool   `json:"multiMode"`
}

type SplitHTTPSettings struct {
	Path string `json:"path"`
	Host string `json:"host,omitempty"`
	Mode string `json:"mode,omitempty"`
}

type HysteriaSettings struct {
	Version    int    `json:"version"`
	UpMbps     int    `json:"up_mbps"`
	DownMbps   int    `json:"down_mbps"`
	Congestion string `json:"congestion"`
}

type TUICSettings struct {
	CongestionControl string `json:"congestion_control"`
	UDPRelayMode      string `json:"udp_relay_mode"`
	ZeroRTTHandshake  bool   `json:"zero_rtt_handshake"`
}

// StreamSettings is a transport section of an outbound.
type StreamSettings struct {
	Network           string             `json:"network"`
	Security          string             `json:"security"`
	TLSSettings       *TLSSettings       `json:"tlsSettings,omitempty"`
	RealitySettings   *RealitySettings   `json:"realitySettings,omitempty"`
	WSSettings        *WSSettings        `json:"wsSettings,omitempty"`
	GRPCSettings      *GRPCSettings      `json:"grpcSettings,omitempty"`
	SplitHTTPSettings *SplitHTTPSettings `json:"splithttpSettings,omitempty"`
	HysteriaSettings  *HysteriaSettings  `json:"hysteriaSettings,omitempty"`
	TUICSettings      *TUICSettings      `json:"tuicSettings,omitempty"`
	Sockopt           *Sockopt           `json:"sockopt,omitempty"`
}

// Params are protocol parameters of a single outbound.
type Params struct {
	Protocol       string         `json:"protocol"`
	Flow           string         `json:"flow,omitempty"`
	StreamSettings StreamSettings `json:"streamSettings"`
}

// Fingerprint returns a client fingerprint name whichever security
// section carries it.
func (p Params) Fingerprint() string {
	switch {
	case p.StreamSettings.RealitySettings != nil:
		return p.StreamSettings.RealitySettings.Fingerprint
	case p.StreamSettings.TLSSettings != nil:
		return p.StreamSettings.TLSSettings.Fingerprint
	}

	return ""
}

// Common are settings shared by all builders.
type Common struct {
	ServerName  string
	Fingerprint string
	ALPN        []string
	Fragment    *Fragment
}

func (c Common) tls() *TLSSettings {
	return &TLSSettings{
		ServerName:  c.ServerName,
		Fingerprint: c.Fingerprint,
		ALPN:        c.ALPN,
	}
}

func (c Common) sockopt() *Sockopt {
	if c.Fragment == nil {
		return nil
	}

	fragment := *c.Fragment

	return &Sockopt{
		Fragment: &fragment,
	}
}
