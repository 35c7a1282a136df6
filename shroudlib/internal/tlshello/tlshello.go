// Package tlshello knows the byte layout of a TLS ClientHello record.
//
// All functions here are tolerant to garbage: malformed input is reported
// as "not found" rather than an error, because callers always have a
// sensible fallback.
package tlshello

import "encoding/binary"

const (
	RecordTypeAlert     byte = 0x15
	RecordTypeHandshake byte = 0x16

	HandshakeTypeClientHello byte = 0x01

	RecordHeaderLen    = 5
	HandshakeHeaderLen = 4
	RandomLen          = 32

	// VersionTLS10 is a legacy record version which browsers put into the
	// first record of a connection.
	VersionTLS10 uint16 = 0x0301
	VersionTLS12 uint16 = 0x0303
	VersionTLS13 uint16 = 0x0304

	ExtensionServerName          uint16 = 0x0000
	ExtensionALPN                uint16 = 0x0010
	ExtensionSupportedGroups     uint16 = 0x000a
	ExtensionECPointFormats      uint16 = 0x000b
	ExtensionSignatureAlgorithms uint16 = 0x000d
	ExtensionPadding             uint16 = 0x0015
	ExtensionSupportedVersions   uint16 = 0x002b
	ExtensionPSKKeyExchangeModes uint16 = 0x002d
	ExtensionKeyShare            uint16 = 0x0033

	AlertLevelFatal           byte = 0x02
	AlertDescHandshakeFailure byte = 0x28

	// offset of the session id length byte inside a record.
	sessionIDOffset = RecordHeaderLen + HandshakeHeaderLen + 2 + RandomLen
	randomOffset    = RecordHeaderLen + HandshakeHeaderLen + 2
)

// IsClientHello checks record type, major version and handshake type.
func IsClientHello(data []byte) bool {
	return len(data) > RecordHeaderLen &&
		data[0] == RecordTypeHandshake &&
		data[1] == 0x03 &&
		data[5] == HandshakeTypeClientHello
}

// Random returns 32 bytes of client randomness.
func Random(data []byte) ([]byte, bool) {
	if !IsClientHello(data) || len(data) < randomOffset+RandomLen {
		return nil, false
	}

	return data[randomOffset : randomOffset+RandomLen], true
}

// LocateSNI walks the ClientHello and returns byte offsets of the first
// server name. data[start:end] is the hostname.
func LocateSNI(data []byte) (found bool, start, end int) {
	r := reader{data: data, pos: sessionIDOffset}

	sessionIDLen, ok := r.uint8()
	if !ok || !r.skip(int(sessionIDLen)) {
		return false, 0, 0
	}

	cipherSuitesLen, ok := r.uint16()
	if !ok || !r.skip(int(cipherSuitesLen)) {
		return false, 0, 0
	}

	compressionLen, ok := r.uint8()
	if !ok || !r.skip(int(compressionLen)) {
		return false, 0, 0
	}

	extensionsLen, ok := r.uint16()
	if !ok {
		return false, 0, 0
	}

	extEnd := r.pos + int(extensionsLen)
	if extEnd > len(data) {
		return false, 0, 0
	}

	for r.pos+4 <= extEnd {
		extType, _ := r.uint16()
		extLen, _ := r.uint16()

		if r.pos+int(extLen) > extEnd {
			return false, 0, 0
		}

		if extType != ExtensionServerName {
			r.skip(int(extLen))

			continue
		}

		// server name list length, name type, name length
		if _, ok := r.uint16(); !ok {
			return false, 0, 0
		}

		if _, ok := r.uint8(); !ok {
			return false, 0, 0
		}

		nameLen, ok := r.uint16()
		if !ok || nameLen == 0 || r.pos+int(nameLen) > extEnd {
			return false, 0, 0
		}

		return true, r.pos, r.pos + int(nameLen)
	}

	return false, 0, 0
}

// ServerName returns a hostname from SNI extension.
func ServerName(data []byte) (string, bool) {
	found, start, end := LocateSNI(data)
	if !found {
		return "", false
	}

	return string(data[start:end]), true
}

// AlertHandshakeFailure returns a fatal handshake_failure alert record.
func AlertHandshakeFailure() []byte {
	return []byte{
		RecordTypeAlert,
		byte(VersionTLS12 >> 8), byte(VersionTLS12 & 0xff),
		0x00, 0x02,
		AlertLevelFatal,
		AlertDescHandshakeFailure,
	}
}

type reader struct {
	data []byte
	pos  int
}

func (r *reader) skip(n int) bool {
	if n < 0 || r.pos+n > len(r.data) {
		return false
	}

	r.pos += n

	return true
}

func (r *reader) uint8() (uint8, bool) {
	if r.pos+1 > len(r.data) {
		return 0, false
	}

	r.pos++

	return r.data[r.pos-1], true
}

func (r *reader) uint16() (uint16, bool) {
	if r.pos+2 > len(r.data) {
		return 0, false
	}

	r.pos += 2

	return binary.BigEndian.Uint16(r.data[r.pos-2:]), true
}
