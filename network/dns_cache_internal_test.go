package network

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type DNSCacheTestSuite struct {
	suite.Suite

	cache *dnsCache
	now   time.Time
}

func (suite *DNSCacheTestSuite) SetupTest() {
	suite.now = time.Now()
	suite.cache = newDNSCache(3)
	suite.cache.now = func() time.Time {
		return suite.now
	}
}

func (suite *DNSCacheTestSuite) TestGetSet() {
	suite.cache.Set("example.com", []string{"1.2.3.4"}, time.Minute)

	ips, ok := suite.cache.Get("example.com")
	suite.True(ok)
	suite.Equal([]string{"1.2.3.4"}, ips)

	_, ok = suite.cache.Get("example.org")
	suite.False(ok)

	metrics := suite.cache.Metrics()
	suite.EqualValues(1, metrics.Hits)
	suite.EqualValues(1, metrics.Misses)
	suite.Equal(1, metrics.Size)
}

func (suite *DNSCacheTestSuite) TestExpiration() {
	suite.cache.Set("example.com", []string{"1.2.3.4"}, time.Minute)

	suite.now = suite.now.Add(time.Minute)

	_, ok := suite.cache.Get("example.com")
	suite.False(ok)
	suite.Equal(0, suite.cache.Metrics().Size)
}

func (suite *DNSCacheTestSuite) TestUpdate() {
	suite.cache.Set("example.com", []string{"1.2.3.4"}, time.Minute)
	suite.cache.Set("example.com", []string{"5.6.7.8"}, time.Hour)

	suite.now = suite.now.Add(2 * time.Minute)

	ips, ok := suite.cache.Get("example.com")
	suite.True(ok)
	suite.Equal([]string{"5.6.7.8"}, ips)
}

func (suite *DNSCacheTestSuite) TestLRUEviction() {
	suite.cache.Set("host1", []string{"1.0.0.1"}, time.Minute)
	suite.cache.Set("host2", []string{"1.0.0.2"}, time.Minute)
	suite.cache.Set("host3", []string{"1.0.0.3"}, time.Minute)

	_, ok := suite.cache.Get("host1")
	suite.True(ok)

	suite.cache.Set("host4", []string{"1.0.0.4"}, time.Minute)

	_, ok = suite.cache.Get("host2")
	suite.False(ok)

	_, ok = suite.cache.Get("host1")
	suite.True(ok)

	suite.EqualValues(1, suite.cache.Metrics().Evictions)
}

func (suite *DNSCacheTestSuite) TestCleanup() {
	suite.cache.Set("host1", []string{"1.0.0.1"}, time.Second)
	suite.cache.Set("host2", []string{"1.0.0.2"}, time.Minute)
	suite.cache.Set("host3", []string{"1.0.0.3"}, time.Second)

	suite.now = suite.now.Add(10 * time.Second)

	suite.Equal(2, suite.cache.Cleanup())
	suite.Equal(1, suite.cache.Metrics().Size)
}

func TestDNSCache(t *testing.T) {
	t.Parallel()
	suite.Run(t, &DNSCacheTestSuite{})
}
