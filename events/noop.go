package events

import (
	"context"

	"github.com/akab00m/shroud/shroudlib"
)

type noop struct{}

func (n noop) Send(_ context.Context, _ shroudlib.Event) {}

// NewNoopStream returns an event stream which drops everything.
func NewNoopStream() shroudlib.EventStream {
	return noop{}
}

type noopObserver struct{}

func (n noopObserver) EventStart(_ shroudlib.EventStart) {}
func (n noopObserver) EventFinish(_ shroudlib.EventFinish) {}
func (n noopObserver) EventTraffic(_ shroudlib.EventTraffic) {}
func (n noopObserver) EventConnectedToBackend(_ shroudlib.EventConnectedToBackend) {}
func (n noopObserver) EventProbeDetected(_ shroudlib.EventProbeDetected) {}
func (n noopObserver) EventIPBlocklisted(_ shroudlib.EventIPBlocklisted) {}
func (n noopObserver) EventConcurrencyLimited(_ shroudlib.EventConcurrencyLimited) {}
func (n noopObserver) EventReplayAttack(_ shroudlib.EventReplayAttack) {}
func (n noopObserver) EventIPListSize(_ shroudlib.EventIPListSize) {}
func (n noopObserver) EventConditionDetected(_ shroudlib.EventConditionDetected) {}
func (n noopObserver) EventStrategyChanged(_ shroudlib.EventStrategyChanged) {}
func (n noopObserver) EventStrategyResult(_ shroudlib.EventStrategyResult) {}
func (n noopObserver) EventFragmentation(_ shroudlib.EventFragmentation) {}
func (n noopObserver) Shutdown() {}

// NewNoopObserver returns an observer which does nothing.
func NewNoopObserver() Observer {
	return noopObserver{}
}
