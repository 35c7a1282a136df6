// Package probe detects active probes of DPI systems.
//
// A censor which suspects a server to be a proxy connects to it and
// sends something which looks like a handshake of a known protocol, or
// replays a recorded handshake, and watches what happens. Defender
// classifies the first bytes of an inbound connection, keeps a
// suspicion score per source address and builds camouflage responses
// which never look like any VPN protocol.
package probe

import "bytes"

// Type is a kind of detected probe.
type Type uint8

const (
	TypeNone Type = iota
	TypeKnownProber
	TypeBlacklisted
	TypeVMess
	TypeVLESS
	TypeShadowsocks
	TypeOpenVPN
	TypeWireGuard
	TypeTor
	TypeHTTPConnect
	TypeHTTPGet
	TypeBurst
	TypeSuspicious
	TypeReplay
)

var typeNames = []string{
	TypeNone:        "none",
	TypeKnownProber: "known-prober",
	TypeBlacklisted: "blacklisted",
	TypeVMess:       "vmess",
	TypeVLESS:       "vless",
	TypeShadowsocks: "shadowsocks",
	TypeOpenVPN:     "openvpn",
	TypeWireGuard:   "wireguard",
	TypeTor:         "tor",
	TypeHTTPConnect: "http-connect",
	TypeHTTPGet:     "http-get",
	TypeBurst:       "burst",
	TypeSuspicious:  "suspicious",
	TypeReplay:      "replay",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}

	return "unknown"
}

// IsHTTP tells if a probe speaks plain HTTP and expects an HTTP answer.
func (t Type) IsHTTP() bool {
	return t == TypeHTTPConnect || t == TypeHTTPGet
}

// Signature describes a handshake of a protocol a censor may probe with.
// MaxLen 0 means no upper bound.
type Signature struct {
	Type        Type
	Prefix      []byte
	MinLen      int
	MaxLen      int
	Description string
}

// Match checks a prefix and a length window. Entropy requirements are out
// of the scope of a signature.
func (s Signature) Match(data []byte) bool {
	if len(data) < s.MinLen || (s.MaxLen > 0 && len(data) > s.MaxLen) {
		return false
	}

	return bytes.HasPrefix(data, s.Prefix)
}

// signatures are ordered from the most specific prefix to the least
// specific one, first match wins. Shadowsocks has no prefix at all and is
// checked separately.
var signatures = []Signature{
	{
		Type:        TypeWireGuard,
		Prefix:      []byte{0x01, 0x00, 0x00, 0x00},
		MinLen:      148,
		MaxLen:      148,
		Description: "WireGuard handshake initiation",
	},
	{
		Type:        TypeOpenVPN,
		Prefix:      []byte{0x00, 0x0e, 0x38},
		MinLen:      16,
		MaxLen:      64,
		Description: "OpenVPN over TCP P_CONTROL_HARD_RESET_CLIENT_V2",
	},
	{
		Type:        TypeTor,
		Prefix:      []byte{0x00, 0x00, 0x07},
		MinLen:      5,
		MaxLen:      16,
		Description: "Tor VERSIONS cell",
	},
	{
		Type:        TypeHTTPConnect,
		Prefix:      []byte("CONNECT "),
		MinLen:      16,
		MaxLen:      4096,
		Description: "HTTP CONNECT proxy request",
	},
	{
		Type:        TypeHTTPGet,
		Prefix:      []byte("GET "),
		MinLen:      14,
		MaxLen:      8192,
		Description: "plain HTTP GET",
	},
	{
		Type:        TypeVLESS,
		Prefix:      []byte{0x00},
		MinLen:      19,
		MaxLen:      64,
		Description: "VLESS request header (version 0)",
	},
	{
		Type:        TypeVMess,
		MinLen:      16,
		MaxLen:      16,
		Description: "VMess AEAD auth id",
	},
}

// Signatures returns a copy of the signature table.
func Signatures() []Signature {
	rv := make([]Signature, len(signatures))
	copy(rv, signatures)

	return rv
}

// Shadowsocks has no fixed prefix, so it is recognized by ciphertext-like
// entropy and one of the popular probe lengths.
var (
	DefaultShadowsocksEntropy = 7.0
	DefaultShadowsocksLengths = []int{221, 256, 384, 512}
)
