package events_test

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/akab00m/shroud/events"
	"github.com/akab00m/shroud/shroudlib"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type ObserverMock struct {
	mock.Mock
}

func (o *ObserverMock) EventStart(evt shroudlib.EventStart) {
	o.Called(evt)
}

func (o *ObserverMock) EventFinish(evt shroudlib.EventFinish) {
	o.Called(evt)
}

func (o *ObserverMock) EventTraffic(evt shroudlib.EventTraffic) {
	o.Called(evt)
}

func (o *ObserverMock) EventConnectedToBackend(evt shroudlib.EventConnectedToBackend) {
	o.Called(evt)
}

func (o *ObserverMock) EventProbeDetected(evt shroudlib.EventProbeDetected) {
	o.Called(evt)
}

func (o *ObserverMock) EventIPBlocklisted(evt shroudlib.EventIPBlocklisted) {
	o.Called(evt)
}

func (o *ObserverMock) EventConcurrencyLimited(evt shroudlib.EventConcurrencyLimited) {
	o.Called(evt)
}

func (o *ObserverMock) EventReplayAttack(evt shroudlib.EventReplayAttack) {
	o.Called(evt)
}

func (o *ObserverMock) EventIPListSize(evt shroudlib.EventIPListSize) {
	o.Called(evt)
}

func (o *ObserverMock) EventConditionDetected(evt shroudlib.EventConditionDetected) {
	o.Called(evt)
}

func (o *ObserverMock) EventStrategyChanged(evt shroudlib.EventStrategyChanged) {
	o.Called(evt)
}

func (o *ObserverMock) EventStrategyResult(evt shroudlib.EventStrategyResult) {
	o.Called(evt)
}

func (o *ObserverMock) EventFragmentation(evt shroudlib.EventFragmentation) {
	o.Called(evt)
}

func (o *ObserverMock) Shutdown() {
	o.Called()
}

type EventStreamTestSuite struct {
	suite.Suite

	ctx        context.Context
	ctxCancel  context.CancelFunc
	observers []*ObserverMock
	mutex     sync.Mutex
	stream    events.EventStream
}

func (suite *EventStreamTestSuite) SetupTest() {
	suite.ctx, suite.ctxCancel = context.WithCancel(context.Background())
	suite.observers = nil
	suite.stream = events.NewEventStream([]events.ObserverFactory{
		suite.makeObserver,
		suite.makeObserver,
	})
}

func (suite *EventStreamTestSuite) makeObserver() events.Observer {
	suite.mutex.Lock()
	defer suite.mutex.Unlock()

	observer := &ObserverMock{}
	observer.On("Shutdown").Maybe()
	observer.On("EventFinish", mock.Anything).Maybe()
	suite.observers = append(suite.observers, observer)

	return observer
}

func (suite *EventStreamTestSuite) TearDownTest() {
	suite.stream.Shutdown()
	suite.ctxCancel()
}

func (suite *EventStreamTestSuite) allObservers() []*ObserverMock {
	suite.mutex.Lock()
	defer suite.mutex.Unlock()

	return append([]*ObserverMock{}, suite.observers...)
}

// expectEverywhere waits for an event in both observers of the goroutine
// which receives it.
func (suite *EventStreamTestSuite) expectEverywhere(method string, arg interface{}) *sync.WaitGroup {
	wg := &sync.WaitGroup{}
	wg.Add(2) //nolint: mnd

	for _, observer := range suite.allObservers() {
		observer.
			On(method, arg).
			Once().
			Maybe().
			Run(func(_ mock.Arguments) {
				wg.Done()
			})
	}

	return wg
}

func (suite *EventStreamTestSuite) wait(wg *sync.WaitGroup) {
	done := make(chan struct{})

	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		suite.FailNow("event was not delivered")
	}
}

func (suite *EventStreamTestSuite) TestEventStart() {
	evt := shroudlib.NewEventStart("stream", net.ParseIP("10.0.0.1"))
	wg := suite.expectEverywhere("EventStart", evt)

	suite.stream.Send(suite.ctx, evt)
	suite.wait(wg)
}

func (suite *EventStreamTestSuite) TestEventProbeDetected() {
	evt := shroudlib.NewEventProbeDetected("stream", net.ParseIP("10.0.0.1"), shroudlib.ProbeReplay)
	wg := suite.expectEverywhere("EventProbeDetected", evt)

	suite.stream.Send(suite.ctx, evt)
	suite.wait(wg)
}

func (suite *EventStreamTestSuite) TestEventWithoutStream() {
	evt := shroudlib.NewEventStrategyChanged(shroudlib.StrategyRealityVision,
		shroudlib.StrategyTUICBBR, "failure")
	wg := suite.expectEverywhere("EventStrategyChanged", evt)

	suite.stream.Send(suite.ctx, evt)
	suite.wait(wg)
}

func (suite *EventStreamTestSuite) TestEventFragmentation() {
	evt := shroudlib.NewEventFragmentation(shroudlib.FragmentThreePart, 3, true, false, false)
	wg := suite.expectEverywhere("EventFragmentation", evt)

	suite.stream.Send(suite.ctx, evt)
	suite.wait(wg)
}

func (suite *EventStreamTestSuite) TestCancelledContext() {
	ctx, cancel := context.WithCancel(suite.ctx)
	cancel()

	suite.stream.Send(ctx, shroudlib.NewEventFinish("stream"))
}

func TestEventStream(t *testing.T) {
	t.Parallel()
	suite.Run(t, &EventStreamTestSuite{})
}

func TestNoopStream(t *testing.T) {
	t.Parallel()

	events.NewNoopStream().Send(context.Background(), shroudlib.NewEventFinish("stream"))
}
