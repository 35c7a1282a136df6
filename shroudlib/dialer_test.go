package shroudlib_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/akab00m/shroud/internal/testlib"
	"github.com/akab00m/shroud/logger"
	"github.com/akab00m/shroud/shroudlib"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type DialerTestSuite struct {
	suite.Suite

	server      *httptest.Server
	networkMock *testlib.ShroudlibNetworkMock
	opts        shroudlib.OrchestratorOpts
}

func (suite *DialerTestSuite) SetupTest() {
	suite.server = httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok")) //nolint: errcheck
	}))
	suite.networkMock = &testlib.ShroudlibNetworkMock{}
	suite.opts = shroudlib.OrchestratorOpts{
		Logger:                logger.NewNoopLogger(),
		EventStream:           &testlib.EventStreamRecorder{},
		Detector:              &testlib.ConditionDetectorMock{},
		Network:               suite.networkMock,
		BrowserProfile:        shroudlib.BrowserChrome,
		TLSInsecureSkipVerify: true,
		Seed:                  7,
	}
}

func (suite *DialerTestSuite) TearDownTest() {
	suite.server.Close()
	suite.networkMock.AssertExpectations(suite.T())
}

func (suite *DialerTestSuite) address() string {
	return suite.server.Listener.Addr().String()
}

func (suite *DialerTestSuite) expectDial() {
	conn, err := net.Dial("tcp", suite.address())
	suite.Require().NoError(err)

	suite.networkMock.
		On("DialContext", mock.Anything, "tcp", suite.address()).
		Return(conn.(*net.TCPConn), nil).
		Once()
}

func (suite *DialerTestSuite) makeOrchestrator() *shroudlib.Orchestrator {
	orchestrator, err := shroudlib.NewOrchestrator(suite.opts)
	suite.Require().NoError(err)

	return orchestrator
}

func (suite *DialerTestSuite) roundTrip(conn net.Conn) {
	_, err := conn.Write([]byte("GET / HTTP/1.1\r\nHost: example.com\r\nConnection: close\r\n\r\n"))
	suite.NoError(err)

	conn.SetReadDeadline(time.Now().Add(5 * time.Second)) //nolint: errcheck

	response, _ := io.ReadAll(conn)
	suite.Contains(string(response), "HTTP/1.1 200 OK")
}

func (suite *DialerTestSuite) TestDial() {
	suite.expectDial()

	orchestrator := suite.makeOrchestrator()
	strategy := orchestrator.GetOptimalStrategy()

	conn, err := orchestrator.DialTLS(context.Background(), suite.address(), "example.com")
	suite.Require().NoError(err)

	defer conn.Close()

	suite.roundTrip(conn)

	state := orchestrator.State()

	suite.EqualValues(1, state.Successes[strategy])
	suite.EqualValues(0, orchestrator.FragmentMetrics().TotalConnections)
}

func (suite *DialerTestSuite) TestDialFragmented() {
	condition := shroudlib.ConditionHeavyDPI
	suite.opts.ForceCondition = &condition

	suite.expectDial()

	orchestrator := suite.makeOrchestrator()
	suite.Equal(shroudlib.StrategyRealityVisionFragment, orchestrator.GetOptimalStrategy())

	conn, err := orchestrator.DialTLS(context.Background(), suite.address(), "")
	suite.Require().NoError(err)

	defer conn.Close()

	suite.roundTrip(conn)

	metrics := orchestrator.FragmentMetrics()

	suite.EqualValues(1, metrics.TotalConnections)
	suite.EqualValues(0, metrics.ResetReceived)
	suite.EqualValues(1, orchestrator.State().Successes[shroudlib.StrategyRealityVisionFragment])
}

func (suite *DialerTestSuite) TestDialError() {
	suite.networkMock.
		On("DialContext", mock.Anything, "tcp", suite.address()).
		Return(nil, io.EOF).
		Once()

	orchestrator := suite.makeOrchestrator()

	_, err := orchestrator.DialTLS(context.Background(), suite.address(), "example.com")
	suite.ErrorIs(err, io.EOF)

	state := orchestrator.State()

	suite.EqualValues(1, state.Failures[shroudlib.StrategyRealityVision])
	suite.Equal(shroudlib.StrategyHysteria2Brutal, state.ActiveStrategy)
}

func (suite *DialerTestSuite) TestNoNetwork() {
	suite.opts.Network = nil

	_, err := suite.makeOrchestrator().DialTLS(context.Background(), suite.address(), "")
	suite.ErrorIs(err, shroudlib.ErrNetworkIsNotDefined)
}

func TestDialer(t *testing.T) {
	t.Parallel()
	suite.Run(t, &DialerTestSuite{})
}
