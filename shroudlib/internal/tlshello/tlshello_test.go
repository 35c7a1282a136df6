package tlshello_test

import (
	"encoding/binary"
	"testing"

	"github.com/akab00m/shroud/shroudlib/internal/tlshello"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

func appendUint16(b []byte, v int) []byte {
	return binary.BigEndian.AppendUint16(b, uint16(v))
}

func makeHello(sessionID []byte, host string) []byte {
	body := []byte{0x03, 0x03}
	body = append(body, make([]byte, tlshello.RandomLen)...)
	body = append(body, byte(len(sessionID)))
	body = append(body, sessionID...)
	body = appendUint16(body, 4)
	body = append(body, 0x13, 0x01, 0x13, 0x02)
	body = append(body, 0x01, 0x00)

	exts := []byte{}
	// unrelated extension first
	exts = appendUint16(exts, int(tlshello.ExtensionECPointFormats))
	exts = appendUint16(exts, 2)
	exts = append(exts, 0x01, 0x00)

	if host != "" {
		exts = appendUint16(exts, int(tlshello.ExtensionServerName))
		exts = appendUint16(exts, len(host)+5)
		exts = appendUint16(exts, len(host)+3)
		exts = append(exts, 0x00)
		exts = appendUint16(exts, len(host))
		exts = append(exts, host...)
	}

	body = appendUint16(body, len(exts))
	body = append(body, exts...)

	handshake := []byte{tlshello.HandshakeTypeClientHello, 0x00}
	handshake = appendUint16(handshake, len(body))
	handshake = append(handshake, body...)

	record := []byte{tlshello.RecordTypeHandshake, 0x03, 0x01}
	record = appendUint16(record, len(handshake))

	return append(record, handshake...)
}

type TLSHelloTestSuite struct {
	suite.Suite
}

func (suite *TLSHelloTestSuite) TestIsClientHello() {
	hello := makeHello(nil, "example.com")

	suite.True(tlshello.IsClientHello(hello))
	suite.False(tlshello.IsClientHello(hello[:5]))
	suite.False(tlshello.IsClientHello([]byte("GET / HTTP/1.1\r\n")))

	hello[5] = 0x02
	suite.False(tlshello.IsClientHello(hello))
}

func (suite *TLSHelloTestSuite) TestLocateSNI() {
	for _, sessionID := range [][]byte{nil, make([]byte, 32)} {
		hello := makeHello(sessionID, "example.com")

		found, start, end := tlshello.LocateSNI(hello)

		suite.True(found)
		suite.Equal("example.com", string(hello[start:end]))
		suite.Equal(len(hello), end)
	}
}

func (suite *TLSHelloTestSuite) TestLocateSNIAbsent() {
	found, _, _ := tlshello.LocateSNI(makeHello(nil, ""))

	suite.False(found)
}

func (suite *TLSHelloTestSuite) TestTruncatedNeverPanics() {
	hello := makeHello(make([]byte, 16), "very.long.hostname.example.org")

	for i := 0; i < len(hello); i++ {
		suite.NotPanics(func() {
			found, _, _ := tlshello.LocateSNI(hello[:i])
			suite.False(found, "prefix %d", i)
		})
	}
}

func (suite *TLSHelloTestSuite) TestRandom() {
	hello := makeHello(nil, "example.com")
	for i := 0; i < tlshello.RandomLen; i++ {
		hello[11+i] = byte(i)
	}

	random, ok := tlshello.Random(hello)

	suite.True(ok)
	suite.Len(random, tlshello.RandomLen)
	suite.EqualValues(0, random[0])
	suite.EqualValues(31, random[31])

	_, ok = tlshello.Random(hello[:20])
	suite.False(ok)
}

func (suite *TLSHelloTestSuite) TestServerName() {
	name, ok := tlshello.ServerName(makeHello(nil, "cdn.example.net"))

	suite.True(ok)
	suite.Equal("cdn.example.net", name)
}

func TestTLSHello(t *testing.T) {
	t.Parallel()
	suite.Run(t, &TLSHelloTestSuite{})
}

func TestAlertHandshakeFailure(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		[]byte{0x15, 0x03, 0x03, 0x00, 0x02, 0x02, 0x28},
		tlshello.AlertHandshakeFailure())
}
