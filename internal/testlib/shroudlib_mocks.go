package testlib

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/akab00m/shroud/shroudlib"
	"github.com/stretchr/testify/mock"
)

type AntiReplayCacheMock struct {
	mock.Mock
}

func (m *AntiReplayCacheMock) SeenBefore(data []byte) bool {
	return m.Called(data).Bool(0)
}

type IPBlocklistMock struct {
	mock.Mock
}

func (m *IPBlocklistMock) Contains(ip net.IP) bool {
	return m.Called(ip).Bool(0)
}

func (m *IPBlocklistMock) Run(updateEach time.Duration) {
	m.Called(updateEach)
}

func (m *IPBlocklistMock) Shutdown() {
	m.Called()
}

// EventStreamRecorder is an EventStream which remembers everything it
// was sent.
type EventStreamRecorder struct {
	mutex  sync.Mutex
	events []shroudlib.Event
}

func (e *EventStreamRecorder) Send(_ context.Context, evt shroudlib.Event) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.events = append(e.events, evt)
}

func (e *EventStreamRecorder) Events() []shroudlib.Event {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	return append([]shroudlib.Event(nil), e.events...)
}

type ConditionDetectorMock struct {
	mock.Mock
}

func (m *ConditionDetectorMock) Detect(ctx context.Context) shroudlib.DetectionResult {
	return m.Called(ctx).Get(0).(shroudlib.DetectionResult) //nolint: forcetypeassert
}
