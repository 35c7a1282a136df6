package fingerprint

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/akab00m/shroud/shroudlib/internal/tlshello"
)

// Real browsers produce ClientHello records clustering near this size.
const targetHelloSize = 512

// BuildClientHello serializes a fingerprint into a ClientHello record.
func (e *Engine) BuildClientHello(fp Fingerprint, serverName string) []byte {
	return BuildClientHello(fp, serverName)
}

// BuildClientHello serializes a fingerprint into a single TLS record which
// carries a ClientHello. Extension order is fixed: SNI, ALPN, groups, point
// formats, signature algorithms, supported versions, psk modes, key share
// and optional padding.
func BuildClientHello(fp Fingerprint, serverName string) []byte {
	body := make([]byte, 0, targetHelloSize)

	body = binary.BigEndian.AppendUint16(body, tlshello.VersionTLS12)
	body = append(body, randomBytes(tlshello.RandomLen)...)
	body = append(body, 0x00) // session id

	body = binary.BigEndian.AppendUint16(body, uint16(2*len(fp.CipherSuites)))
	for _, v := range fp.CipherSuites {
		body = binary.BigEndian.AppendUint16(body, v)
	}

	body = append(body, 0x01, 0x00) // null compression only

	extensions := buildExtensions(fp, serverName)

	// record header + handshake header + body + extensions length +
	// extensions
	size := tlshello.RecordHeaderLen + tlshello.HandshakeHeaderLen + len(body) + 2 + len(extensions)
	if size < targetHelloSize {
		padLen := targetHelloSize - size - 4
		if padLen < 0 {
			padLen = 0
		}

		extensions = appendExtension(extensions, tlshello.ExtensionPadding, make([]byte, padLen))
	}

	body = binary.BigEndian.AppendUint16(body, uint16(len(extensions)))
	body = append(body, extensions...)

	record := make([]byte, 0, tlshello.RecordHeaderLen+tlshello.HandshakeHeaderLen+len(body))
	record = append(record, tlshello.RecordTypeHandshake)
	record = binary.BigEndian.AppendUint16(record, tlshello.VersionTLS10)
	record = binary.BigEndian.AppendUint16(record, uint16(tlshello.HandshakeHeaderLen+len(body)))
	record = append(record,
		tlshello.HandshakeTypeClientHello,
		byte(len(body)>>16), byte(len(body)>>8), byte(len(body)))

	return append(record, body...)
}

func buildExtensions(fp Fingerprint, serverName string) []byte {
	rv := make([]byte, 0, targetHelloSize)

	if serverName != "" {
		sni := make([]byte, 0, len(serverName)+5)
		sni = binary.BigEndian.AppendUint16(sni, uint16(len(serverName)+3))
		sni = append(sni, 0x00) // host_name
		sni = binary.BigEndian.AppendUint16(sni, uint16(len(serverName)))
		sni = append(sni, serverName...)
		rv = appendExtension(rv, tlshello.ExtensionServerName, sni)
	}

	if len(fp.ALPN) > 0 {
		protos := []byte{}
		for _, v := range fp.ALPN {
			protos = append(protos, byte(len(v)))
			protos = append(protos, v...)
		}

		alpn := binary.BigEndian.AppendUint16(nil, uint16(len(protos)))
		rv = appendExtension(rv, tlshello.ExtensionALPN, append(alpn, protos...))
	}

	rv = appendExtension(rv, tlshello.ExtensionSupportedGroups, uint16List(fp.EllipticCurves))

	formats := append([]byte{byte(len(fp.ECPointFormats))}, fp.ECPointFormats...)
	rv = appendExtension(rv, tlshello.ExtensionECPointFormats, formats)

	rv = appendExtension(rv, tlshello.ExtensionSignatureAlgorithms, uint16List(fp.SignatureAlgorithms))

	rv = appendExtension(rv, tlshello.ExtensionSupportedVersions, []byte{
		0x04,
		byte(tlshello.VersionTLS13 >> 8), byte(tlshello.VersionTLS13 & 0xff),
		byte(tlshello.VersionTLS12 >> 8), byte(tlshello.VersionTLS12 & 0xff),
	})

	rv = appendExtension(rv, tlshello.ExtensionPSKKeyExchangeModes, []byte{0x01, 0x01})

	// x25519 share: group, key length, key
	keyShare := []byte{0x00, 0x24, 0x00, 0x1d, 0x00, 0x20}
	keyShare = append(keyShare, randomBytes(32)...)

	return appendExtension(rv, tlshello.ExtensionKeyShare, keyShare)
}

func appendExtension(buf []byte, extType uint16, data []byte) []byte {
	buf = binary.BigEndian.AppendUint16(buf, extType)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(data)))

	return append(buf, data...)
}

func uint16List(values []uint16) []byte {
	rv := binary.BigEndian.AppendUint16(nil, uint16(2*len(values)))

	for _, v := range values {
		rv = binary.BigEndian.AppendUint16(rv, v)
	}

	return rv
}

func randomBytes(n int) []byte {
	rv := make([]byte, n)

	if _, err := rand.Read(rv); err != nil {
		panic(fmt.Sprintf("crypto/rand.Read failed: %v", err))
	}

	return rv
}
