package entropy_test

import (
	"bytes"
	"math/rand"
	"strings"
	"testing"

	"github.com/akab00m/shroud/shroudlib/internal/entropy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

func randomBytes(seed int64, size int) []byte {
	rv := make([]byte, size)
	rand.New(rand.NewSource(seed)).Read(rv) //nolint: gosec

	return rv
}

type NormalizerTestSuite struct {
	suite.Suite

	n *entropy.Normalizer
}

func (suite *NormalizerTestSuite) SetupTest() {
	suite.n = entropy.NewNormalizer()
}

func (suite *NormalizerTestSuite) TestHighEntropyIsDiluted() {
	for _, size := range []int{2048, 4096, 16384} {
		data := randomBytes(int64(size), size)
		original := entropy.Shannon(data)

		suite.Greater(original, entropy.HighEntropyThreshold)

		normalized := suite.n.NormalizePacket(data, entropy.DirectionUpload)

		suite.Greater(len(normalized), len(data))
		suite.LessOrEqual(entropy.Shannon(normalized), original)
		suite.LessOrEqual(entropy.Shannon(normalized), entropy.HighEntropyThreshold)
		suite.Contains(string(normalized), "X-Padding: ")
	}
}

func (suite *NormalizerTestSuite) TestLowEntropyIsUntouched() {
	data := []byte(strings.Repeat("GET /index.html HTTP/1.1\r\nHost: example.com\r\n\r\n", 20))
	normalized := suite.n.NormalizePacket(data, entropy.DirectionUpload)

	suite.Equal(data, normalized)
	suite.InDelta(entropy.Shannon(data), entropy.Shannon(normalized), 1e-9)
}

func (suite *NormalizerTestSuite) TestPayloadOrderIsKept() {
	data := randomBytes(1, 2048)
	normalized := suite.n.NormalizePacket(data, entropy.DirectionDownload)
	quarter := len(data) / 4

	suite.True(bytes.HasPrefix(normalized, data[:quarter]))

	for i := 0; i < 4; i++ {
		suite.True(bytes.Contains(normalized, data[i*quarter:(i+1)*quarter]))
	}
}

func (suite *NormalizerTestSuite) TestNormalizePacketSize() {
	testData := map[int]int{
		1:     64,
		64:    64,
		65:    128,
		1000:  1024,
		1400:  1460,
		16384: 16384,
		20000: 20000,
	}

	for in, out := range testData {
		data := bytes.Repeat([]byte{0xaa}, in)
		normalized := suite.n.NormalizePacketSize(data)

		suite.Len(normalized, out)
		suite.True(bytes.HasPrefix(normalized, data))
	}
}

func (suite *NormalizerTestSuite) TestRatio() {
	suite.False(suite.n.NeedsRatioCorrection())
	suite.Equal(0, suite.n.CorrectionBytesNeeded(0))

	suite.n.RecordTraffic(100, entropy.DirectionUpload)
	suite.True(suite.n.NeedsRatioCorrection())

	suite.n.RecordTraffic(150, entropy.DirectionDownload)
	suite.True(suite.n.NeedsRatioCorrection())
	suite.Equal(517, suite.n.CorrectionBytesNeeded(0))
	suite.Equal(50, suite.n.CorrectionBytesNeeded(0.5))

	suite.n.RecordTraffic(10000, entropy.DirectionDownload)
	suite.False(suite.n.NeedsRatioCorrection())
	suite.Equal(0, suite.n.CorrectionBytesNeeded(0))
}

func (suite *NormalizerTestSuite) TestStats() {
	for i := 0; i < 1500; i++ {
		suite.n.RecordTraffic(10, entropy.DirectionUpload)
	}

	suite.n.RecordTraffic(3000, entropy.DirectionDownload)

	stats := suite.n.Stats()

	suite.EqualValues(15000, stats.Uploaded)
	suite.EqualValues(3000, stats.Downloaded)
	suite.InDelta(5.0, stats.Ratio, 1e-9)
	suite.Equal(1000, stats.Packets)
	suite.InDelta(12.99, stats.AvgPacketSize, 1e-9)
}

func TestNormalizer(t *testing.T) {
	t.Parallel()
	suite.Run(t, &NormalizerTestSuite{})
}

func TestShannon(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, entropy.Shannon(nil))
	assert.Equal(t, 0.0, entropy.Shannon([]byte("aaaa")))
	assert.InDelta(t, 1.0, entropy.Shannon([]byte("abab")), 1e-9)

	all := make([]byte, 256)
	for i := range all {
		all[i] = byte(i)
	}

	assert.InDelta(t, 8.0, entropy.Shannon(all), 1e-9)
}
