package shroudlib

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type RateLimiterTestSuite struct {
	suite.Suite

	limiter *RateLimiter
	now     time.Time
}

func (suite *RateLimiterTestSuite) SetupTest() {
	suite.limiter = NewRateLimiter(1, 2, time.Minute)
	suite.now = time.Now()
}

func (suite *RateLimiterTestSuite) TearDownTest() {
	suite.limiter.Stop()
}

func (suite *RateLimiterTestSuite) TestBurst() {
	ip := net.ParseIP("10.0.0.1")

	suite.True(suite.limiter.allowAt(ip, suite.now))
	suite.True(suite.limiter.allowAt(ip, suite.now))
	suite.False(suite.limiter.allowAt(ip, suite.now))
	suite.True(suite.limiter.allowAt(ip, suite.now.Add(time.Second)))
}

func (suite *RateLimiterTestSuite) TestIPsAreIndependent() {
	suite.True(suite.limiter.allowAt(net.ParseIP("10.0.0.1"), suite.now))
	suite.True(suite.limiter.allowAt(net.ParseIP("10.0.0.1"), suite.now))
	suite.True(suite.limiter.allowAt(net.ParseIP("10.0.0.2"), suite.now))
	suite.Equal(2, suite.limiter.Size())
}

func (suite *RateLimiterTestSuite) TestIPv4Forms() {
	suite.True(suite.limiter.allowAt(net.IPv4(10, 0, 0, 1), suite.now))
	suite.True(suite.limiter.allowAt(net.ParseIP("10.0.0.1").To4(), suite.now))
	suite.Equal(1, suite.limiter.Size())
}

func (suite *RateLimiterTestSuite) TestPrune() {
	suite.limiter.allowAt(net.ParseIP("10.0.0.1"), suite.now)
	suite.limiter.allowAt(net.ParseIP("10.0.0.2"), suite.now.Add(time.Minute))

	suite.limiter.prune(suite.now.Add(2*time.Minute + time.Second))

	suite.Equal(1, suite.limiter.Size())
}

func (suite *RateLimiterTestSuite) TestStopTwice() {
	suite.limiter.Stop()
	suite.limiter.Stop()
}

func TestRateLimiter(t *testing.T) {
	t.Parallel()
	suite.Run(t, &RateLimiterTestSuite{})
}
