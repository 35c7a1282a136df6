package stats_test

import (
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/akab00m/shroud/logger"
	"github.com/akab00m/shroud/shroudlib"
	"github.com/akab00m/shroud/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type statsdServer struct {
	conn  net.PacketConn
	mutex sync.Mutex
	data  strings.Builder
}

func (s *statsdServer) run() {
	buf := make([]byte, 65536)

	for {
		n, _, err := s.conn.ReadFrom(buf)
		if err != nil {
			return
		}

		s.mutex.Lock()
		s.data.Write(buf[:n])
		s.data.WriteByte('\n')
		s.mutex.Unlock()
	}
}

func (s *statsdServer) String() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.data.String()
}

type StatsdTestSuite struct {
	suite.Suite

	server  *statsdServer
	factory stats.StatsdFactory
}

func (suite *StatsdTestSuite) SetupTest() {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	suite.NoError(err)

	suite.server = &statsdServer{conn: conn}
	go suite.server.run()

	factory, err := stats.NewStatsd(conn.LocalAddr().String(), logger.NewNoopLogger(),
		"shroud", "influxdb")
	suite.NoError(err)

	suite.factory = factory
}

func (suite *StatsdTestSuite) TearDownTest() {
	suite.server.conn.Close()
}

func (suite *StatsdTestSuite) flushed(substrings ...string) {
	suite.NoError(suite.factory.Close())

	suite.Eventually(func() bool {
		data := suite.server.String()

		for _, v := range substrings {
			if !strings.Contains(data, v) {
				return false
			}
		}

		return true
	}, 2*time.Second, 10*time.Millisecond)
}

func (suite *StatsdTestSuite) TestStream() {
	observer := suite.factory.Make()
	defer observer.Shutdown()

	observer.EventStart(shroudlib.NewEventStart("stream", net.ParseIP("10.0.0.1")))
	observer.EventTraffic(shroudlib.NewEventTraffic("stream", 100, true))
	observer.EventFinish(shroudlib.NewEventFinish("stream"))

	suite.flushed(
		"shroud.client_connections,ip_family=ipv4:",
		"shroud.traffic,direction=to_client:100|c",
		"shroud.session_duration_seconds:")
}

func (suite *StatsdTestSuite) TestProbe() {
	observer := suite.factory.Make()
	defer observer.Shutdown()

	observer.EventProbeDetected(
		shroudlib.NewEventProbeDetected("stream", net.ParseIP("10.0.0.1"), shroudlib.ProbeReplay))
	observer.EventStrategyResult(shroudlib.NewEventStrategyResult(
		shroudlib.StrategyTUICBBR, false, time.Second, 0.4))

	suite.flushed(
		"shroud.probes_detected,probe_type=replay:1|c",
		"shroud.strategy_attempts,strategy=tuic-bbr,result=failure:1|c")
}

func TestStatsd(t *testing.T) {
	t.Parallel()
	suite.Run(t, &StatsdTestSuite{})
}

func TestStatsdUnknownTagFormat(t *testing.T) {
	t.Parallel()

	_, err := stats.NewStatsd("127.0.0.1:8125", logger.NewNoopLogger(), "shroud", "unknown")
	assert.Error(t, err)
}
