package antireplay_test

import (
	"crypto/rand"
	"testing"

	"github.com/akab00m/shroud/antireplay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type StableBloomFilterTestSuite struct {
	suite.Suite

	filter *antireplay.StableBloomFilter
}

func (suite *StableBloomFilterTestSuite) SetupTest() {
	suite.filter = antireplay.NewStableBloomFilter(500, 0.001)
}

func (suite *StableBloomFilterTestSuite) TestOp() {
	suite.False(suite.filter.SeenBefore([]byte{1, 2, 3}))
	suite.False(suite.filter.SeenBefore([]byte{4, 5, 6}))
	suite.True(suite.filter.SeenBefore([]byte{1, 2, 3}))
	suite.True(suite.filter.SeenBefore([]byte{4, 5, 6}))
}

func (suite *StableBloomFilterTestSuite) TestMetrics() {
	random := make([]byte, 32)
	_, err := rand.Read(random)
	suite.NoError(err)

	suite.filter.SeenBefore(random)
	suite.filter.SeenBefore(random)

	metrics := suite.filter.Metrics()

	suite.EqualValues(2, metrics.TotalChecks)
	suite.EqualValues(1, metrics.ReplayDetected)
	suite.InDelta(50.0, metrics.ReplayRate, 0.001)
	suite.Greater(metrics.FalsePositive, 0.0)
	suite.Less(metrics.FalsePositive, 1.0)
}

func TestStableBloomFilter(t *testing.T) {
	t.Parallel()
	suite.Run(t, &StableBloomFilterTestSuite{})
}

func TestDefaults(t *testing.T) {
	t.Parallel()

	filter := antireplay.NewStableBloomFilter(0, -1)
	require.NotNil(t, filter)
	assert.False(t, filter.SeenBefore([]byte("hello")))
	assert.True(t, filter.SeenBefore([]byte("hello")))
}

func TestNoop(t *testing.T) {
	t.Parallel()

	cache := antireplay.NewNoop()

	assert.False(t, cache.SeenBefore([]byte{1}))
	assert.False(t, cache.SeenBefore([]byte{1}))
}
