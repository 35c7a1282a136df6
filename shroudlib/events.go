package shroudlib

import (
	"net"
	"time"
)

type eventBase struct {
	streamID  string
	timestamp time.Time
}

// StreamID returns a ID of the stream this event belongs to.
func (e eventBase) StreamID() string {
	return e.streamID
}

// Timestamp return a time when this event was generated.
func (e eventBase) Timestamp() time.Time {
	return e.timestamp
}

// EventStart is emitted when a gateway starts to process a new
// connection.
type EventStart struct {
	eventBase

	// RemoteIP is an IP address of the client.
	RemoteIP net.IP
}

// EventConnectedToBackend is emitted when a gateway has decided that a
// client is legitimate and has connected to a backend.
type EventConnectedToBackend struct {
	eventBase

	// RemoteIP is an IP address of the backend.
	RemoteIP net.IP
}

// EventTraffic is emitted when we read/write some bytes on a backend
// connection.
type EventTraffic struct {
	eventBase

	// Traffic is a count of bytes which were transmitted.
	Traffic uint

	// IsRead defines if we _read_ or _write_ to connection. EventTraffic is
	// bound to a backend connection, so isRead means that we've fetched
	// some bytes from the backend to send them to a client.
	IsRead bool
}

// EventFinish is emitted when we stop to manage a connection.
type EventFinish struct {
	eventBase
}

// EventProbeDetected is emitted when a probe defender has classified a
// connection as an active probe. Such connection gets a decoy response.
type EventProbeDetected struct {
	eventBase

	RemoteIP  net.IP
	ProbeType ProbeType
}

// EventConcurrencyLimited is emitted when connection was declined because
// of the concurrency limit of the worker pool or a rate limiter.
type EventConcurrencyLimited struct {
	eventBase
}

// EventIPBlocklisted is emitted when connection was declined because IP
// address was found in IP blocklist.
type EventIPBlocklisted struct {
	eventBase

	RemoteIP net.IP
}

// EventReplayAttack is emitted when a gateway sees a ClientHello it has
// already seen.
type EventReplayAttack struct {
	eventBase
}

// EventIPListSize is emitted when a blocklist updates its contents.
type EventIPListSize struct {
	eventBase

	Size int
}

// EventConditionDetected is emitted after each network condition
// detection.
type EventConditionDetected struct {
	eventBase

	Condition   NetworkCondition
	NetworkType string
	ISP         string
	Duration    time.Duration
	Complete    bool
}

// EventStrategyChanged is emitted when an active strategy is changed.
type EventStrategyChanged struct {
	eventBase

	From   Strategy
	To     Strategy
	Reason string
}

// EventStrategyResult is emitted on each reported connection attempt.
type EventStrategyResult struct {
	eventBase

	Strategy Strategy
	Success  bool
	Latency  time.Duration
	Score    float64
}

// EventFragmentation is emitted after each fragmented ClientHello.
type EventFragmentation struct {
	eventBase

	Strategy     FragmentStrategy
	Fragments    int
	Success      bool
	Reset        bool
	FallbackUsed bool
}

// NewEventStart creates a new EventStart event.
func NewEventStart(streamID string, remoteIP net.IP) EventStart {
	return EventStart{
		eventBase: eventBase{
			timestamp: time.Now(),
			streamID:  streamID,
		},
		RemoteIP: remoteIP,
	}
}

// NewEventConnectedToBackend creates a new EventConnectedToBackend event.
func NewEventConnectedToBackend(streamID string, remoteIP net.IP) EventConnectedToBackend {
	return EventConnectedToBackend{
		eventBase: eventBase{
			timestamp: time.Now(),
			streamID:  streamID,
		},
		RemoteIP: remoteIP,
	}
}

// NewEventTraffic creates a new EventTraffic event.
func NewEventTraffic(streamID string, traffic uint, isRead bool) EventTraffic {
	return EventTraffic{
		eventBase: eventBase{
			timestamp: time.Now(),
			streamID:  streamID,
		},
		Traffic: traffic,
		IsRead:  isRead,
	}
}

// NewEventFinish creates a new EventFinish event.
func NewEventFinish(streamID string) EventFinish {
	return EventFinish{
		eventBase: eventBase{
			timestamp: time.Now(),
			streamID:  streamID,
		},
	}
}

// NewEventProbeDetected creates a new EventProbeDetected event.
func NewEventProbeDetected(streamID string, remoteIP net.IP, probeType ProbeType) EventProbeDetected {
	return EventProbeDetected{
		eventBase: eventBase{
			timestamp: time.Now(),
			streamID:  streamID,
		},
		RemoteIP:  remoteIP,
		ProbeType: probeType,
	}
}

// NewEventConcurrencyLimited creates a new EventConcurrencyLimited
// event.
func NewEventConcurrencyLimited() EventConcurrencyLimited {
	return EventConcurrencyLimited{
		eventBase: eventBase{
			timestamp: time.Now(),
		},
	}
}

// NewEventIPBlocklisted creates a new EventIPBlocklisted event.
func NewEventIPBlocklisted(remoteIP net.IP) EventIPBlocklisted {
	return EventIPBlocklisted{
		eventBase: eventBase{
			timestamp: time.Now(),
		},
		RemoteIP: remoteIP,
	}
}

// NewEventReplayAttack creates a new EventReplayAttack event.
func NewEventReplayAttack(streamID string) EventReplayAttack {
	return EventReplayAttack{
		eventBase: eventBase{
			timestamp: time.Now(),
			streamID:  streamID,
		},
	}
}

// NewEventIPListSize creates a new EventIPListSize event.
func NewEventIPListSize(size int) EventIPListSize {
	return EventIPListSize{
		eventBase: eventBase{
			timestamp: time.Now(),
		},
		Size: size,
	}
}

// NewEventConditionDetected creates a new EventConditionDetected event.
func NewEventConditionDetected(condition NetworkCondition, result DetectionResult) EventConditionDetected {
	return EventConditionDetected{
		eventBase: eventBase{
			timestamp: time.Now(),
		},
		Condition:   condition,
		NetworkType: networkTypeOf(result),
		ISP:         ispOf(result),
		Duration:    result.Duration,
		Complete:    result.Complete,
	}
}

// NewEventStrategyChanged creates a new EventStrategyChanged event.
func NewEventStrategyChanged(from, to Strategy, reason string) EventStrategyChanged {
	return EventStrategyChanged{
		eventBase: eventBase{
			timestamp: time.Now(),
		},
		From:   from,
		To:     to,
		Reason: reason,
	}
}

// NewEventStrategyResult creates a new EventStrategyResult event.
func NewEventStrategyResult(strategy Strategy, success bool, latency time.Duration, score float64) EventStrategyResult {
	return EventStrategyResult{
		eventBase: eventBase{
			timestamp: time.Now(),
		},
		Strategy: strategy,
		Success:  success,
		Latency:  latency,
		Score:    score,
	}
}

// NewEventFragmentation creates a new EventFragmentation event.
func NewEventFragmentation(strategy FragmentStrategy, fragments int,
	success, reset, fallbackUsed bool,
) EventFragmentation {
	return EventFragmentation{
		eventBase: eventBase{
			timestamp: time.Now(),
		},
		Strategy:     strategy,
		Fragments:    fragments,
		Success:      success,
		Reset:        reset,
		FallbackUsed: fallbackUsed,
	}
}
