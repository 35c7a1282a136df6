// Package events has a default implementation of [shroudlib.EventStream]
// and an interface of observers which consume these events.
//
// Events of a single stream are always processed by the same observer
// instance in the order they were sent. Events without stream id
// (condition changes, strategy results) are routed randomly.
package events

import "github.com/akab00m/shroud/shroudlib"

const eventChannelBuffer = 64

// Observer is an instance that listens for the incoming events.
//
// Each observer is processed by a single goroutine so it is not
// necessary to make it thread-safe.
type Observer interface {
	EventStart(shroudlib.EventStart)
	EventFinish(shroudlib.EventFinish)
	EventTraffic(shroudlib.EventTraffic)
	EventConnectedToBackend(shroudlib.EventConnectedToBackend)
	EventProbeDetected(shroudlib.EventProbeDetected)
	EventIPBlocklisted(shroudlib.EventIPBlocklisted)
	EventConcurrencyLimited(shroudlib.EventConcurrencyLimited)
	EventReplayAttack(shroudlib.EventReplayAttack)
	EventIPListSize(shroudlib.EventIPListSize)
	EventConditionDetected(shroudlib.EventConditionDetected)
	EventStrategyChanged(shroudlib.EventStrategyChanged)
	EventStrategyResult(shroudlib.EventStrategyResult)
	EventFragmentation(shroudlib.EventFragmentation)

	Shutdown()
}

// ObserverFactory creates a new observer for each goroutine of an event
// stream.
type ObserverFactory func() Observer
