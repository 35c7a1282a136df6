package stats_test

import (
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/akab00m/shroud/events"
	"github.com/akab00m/shroud/shroudlib"
	"github.com/akab00m/shroud/stats"
	"github.com/stretchr/testify/suite"
)

type PrometheusTestSuite struct {
	suite.Suite

	factory  *stats.PrometheusFactory
	observer events.Observer
}

func (suite *PrometheusTestSuite) SetupTest() {
	suite.factory = stats.NewPrometheus("shroud", "/metrics", "test")
	suite.observer = suite.factory.Make()
}

func (suite *PrometheusTestSuite) TearDownTest() {
	suite.observer.Shutdown()
}

func (suite *PrometheusTestSuite) scrape() string {
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()

	suite.factory.Handler().ServeHTTP(rec, req)
	suite.Equal(http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	suite.NoError(err)

	return string(body)
}

func (suite *PrometheusTestSuite) TestBuildInfo() {
	suite.Contains(suite.scrape(), `shroud_build_info{version="test"} 1`)
}

func (suite *PrometheusTestSuite) TestStream() {
	suite.observer.EventStart(shroudlib.NewEventStart("stream", net.ParseIP("10.0.0.1")))
	suite.observer.EventConnectedToBackend(
		shroudlib.NewEventConnectedToBackend("stream", net.ParseIP("127.0.0.1")))
	suite.observer.EventTraffic(shroudlib.NewEventTraffic("stream", 100, true))
	suite.observer.EventTraffic(shroudlib.NewEventTraffic("stream", 30, false))

	body := suite.scrape()

	suite.Contains(body, `shroud_client_connections{ip_family="ipv4"} 1`)
	suite.Contains(body, `shroud_backend_connections{ip_family="ipv4"} 1`)
	suite.Contains(body, `shroud_traffic{direction="to_client"} 100`)
	suite.Contains(body, `shroud_traffic{direction="from_client"} 30`)
	suite.Contains(body, `shroud_time_to_first_byte_seconds_count 1`)

	suite.observer.EventFinish(shroudlib.NewEventFinish("stream"))

	body = suite.scrape()

	suite.Contains(body, `shroud_client_connections{ip_family="ipv4"} 0`)
	suite.Contains(body, `shroud_backend_connections{ip_family="ipv4"} 0`)
	suite.Contains(body, `shroud_session_duration_seconds_count 1`)
}

func (suite *PrometheusTestSuite) TestUnknownStream() {
	suite.observer.EventTraffic(shroudlib.NewEventTraffic("unknown", 100, true))
	suite.observer.EventFinish(shroudlib.NewEventFinish("unknown"))

	suite.NotContains(suite.scrape(), "shroud_traffic{")
}

func (suite *PrometheusTestSuite) TestProbes() {
	suite.observer.EventProbeDetected(
		shroudlib.NewEventProbeDetected("stream", net.ParseIP("10.0.0.1"), shroudlib.ProbeReplay))
	suite.observer.EventReplayAttack(shroudlib.NewEventReplayAttack("stream"))
	suite.observer.EventIPBlocklisted(shroudlib.NewEventIPBlocklisted(net.ParseIP("10.0.0.1")))
	suite.observer.EventConcurrencyLimited(shroudlib.NewEventConcurrencyLimited())
	suite.observer.EventIPListSize(shroudlib.NewEventIPListSize(42))

	body := suite.scrape()

	suite.Contains(body, `shroud_probes_detected{probe_type="replay"} 1`)
	suite.Contains(body, `shroud_replay_attacks 1`)
	suite.Contains(body, `shroud_ip_blocklisted 1`)
	suite.Contains(body, `shroud_concurrency_limited 1`)
	suite.Contains(body, `shroud_iplist_size 42`)
}

func (suite *PrometheusTestSuite) TestOrchestrator() {
	suite.observer.EventConditionDetected(shroudlib.NewEventConditionDetected(
		shroudlib.ConditionBlackout,
		shroudlib.DetectionResult{
			Complete:    true,
			ISP:         "TCI",
			NetworkType: "fixed",
			Duration:    100 * time.Millisecond,
		}))
	suite.observer.EventStrategyChanged(shroudlib.NewEventStrategyChanged(
		shroudlib.StrategyRealityVision, shroudlib.StrategySplitHTTPCDN, "condition"))
	suite.observer.EventStrategyResult(shroudlib.NewEventStrategyResult(
		shroudlib.StrategySplitHTTPCDN, true, 200*time.Millisecond, 0.55))
	suite.observer.EventFragmentation(shroudlib.NewEventFragmentation(
		shroudlib.FragmentThreePart, 3, false, true, false))

	body := suite.scrape()

	suite.Contains(body, `shroud_network_condition{condition="blackout"} 1`)
	suite.Contains(body, `shroud_network_condition{condition="normal"} 0`)
	suite.Contains(body, `shroud_detection_duration_seconds_count{isp="TCI",network_type="fixed"} 1`)
	suite.Contains(body,
		`shroud_strategy_changes{from="reality-vision",reason="condition",to="splithttp-cdn"} 1`)
	suite.Contains(body, `shroud_strategy_attempts{result="success",strategy="splithttp-cdn"} 1`)
	suite.Contains(body, `shroud_strategy_score{strategy="splithttp-cdn"} 0.55`)
	suite.Contains(body, `shroud_fragmentations{fragment_strategy="three-part",result="reset"} 1`)
}

func TestPrometheus(t *testing.T) {
	t.Parallel()
	suite.Run(t, &PrometheusTestSuite{})
}
