// Package fingerprint generates browser-like TLS ClientHello fingerprints.
package fingerprint

import (
	"crypto/md5" //nolint: gosec
	"encoding/hex"
	"strconv"
	"strings"
)

// Fingerprint is an immutable description of a ClientHello shape.
//
// Do not mutate slices of a fingerprint returned by an engine: JA3Hash is
// calculated once the fingerprint is validated. Use Clone and Rehash if you
// need a modified copy.
type Fingerprint struct {
	Profile             Profile  `json:"profile"`
	TLSVersion          uint16   `json:"tlsVersion"`
	CipherSuites        []uint16 `json:"cipherSuites"`
	Extensions          []uint16 `json:"extensions"`
	EllipticCurves      []uint16 `json:"ellipticCurves"`
	ECPointFormats      []uint8  `json:"ecPointFormats"`
	ALPN                []string `json:"alpn"`
	SignatureAlgorithms []uint16 `json:"signatureAlgorithms"`
	JA3Hash             string   `json:"ja3Hash"`
	EngineTag           string   `json:"engineTag"`
}

// JA3String builds a canonical JA3 string:
// version,ciphers,extensions,curves,formats.
func (f Fingerprint) JA3String() string {
	builder := strings.Builder{}

	builder.WriteString(strconv.Itoa(int(f.TLSVersion)))
	builder.WriteByte(',')
	joinUint16(&builder, f.CipherSuites)
	builder.WriteByte(',')
	joinUint16(&builder, f.Extensions)
	builder.WriteByte(',')
	joinUint16(&builder, f.EllipticCurves)
	builder.WriteByte(',')

	for i, v := range f.ECPointFormats {
		if i > 0 {
			builder.WriteByte('-')
		}

		builder.WriteString(strconv.Itoa(int(v)))
	}

	return builder.String()
}

// ComputeJA3 returns MD5 hex digest of a JA3 string.
func (f Fingerprint) ComputeJA3() string {
	sum := md5.Sum([]byte(f.JA3String())) //nolint: gosec

	return hex.EncodeToString(sum[:])
}

// Rehash updates JA3Hash after a mutation.
func (f *Fingerprint) Rehash() {
	f.JA3Hash = f.ComputeJA3()
}

// Clone makes a deep copy.
func (f Fingerprint) Clone() Fingerprint {
	f.CipherSuites = append([]uint16(nil), f.CipherSuites...)
	f.Extensions = append([]uint16(nil), f.Extensions...)
	f.EllipticCurves = append([]uint16(nil), f.EllipticCurves...)
	f.ECPointFormats = append([]uint8(nil), f.ECPointFormats...)
	f.ALPN = append([]string(nil), f.ALPN...)
	f.SignatureAlgorithms = append([]uint16(nil), f.SignatureAlgorithms...)

	return f
}

func joinUint16(builder *strings.Builder, values []uint16) {
	for i, v := range values {
		if i > 0 {
			builder.WriteByte('-')
		}

		builder.WriteString(strconv.Itoa(int(v)))
	}
}

// DefaultBlacklist is a set of JA3 hashes of well-known VPN and proxy
// client libraries. Anything that hashes to these values is flagged by
// commodity DPI boxes.
var DefaultBlacklist = []string{
	"b32309a26951912be7dba376398abc3b", // OpenVPN Connect
	"e7d705a3286e19ea42f587b344ee6865", // Tor
	"6734f37431670b3ab4292b8f60f29984", // Go crypto/tls defaults
	"c12f54a3f91dc7bafd92cb59fe009a35", // V2Ray stock TLS
	"3b5074b1b5d032e5620f69f9f700ff0e", // Python requests
	"cd08e31494f9531f560d64c695473da9", // Shadowsocks plugins
	"5d65ea3fb1d4aa7d826733d2f2cbbb1d", // curl/OpenSSL
	"36f7277af969a6947a61ae0b815907a1", // WireGuard-over-TLS wrappers
}
