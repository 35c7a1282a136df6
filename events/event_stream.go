package events

import (
	"context"
	"math/rand"
	"runtime"
	"sync/atomic"

	"github.com/OneOfOne/xxhash"
	"github.com/akab00m/shroud/shroudlib"
)

// EventStream is a default implementation of the [shroudlib.EventStream]
// interface.
//
// EventStream manages a set of goroutines, observers. Main
// responsibility of the event stream is to route an event to relevant
// observer based on some hash so each observer will have all events
// which belong to some stream id.
//
// Thus, EventStream can spawn many observers.
type EventStream struct {
	ctx       context.Context
	ctxCancel context.CancelFunc
	chans     []chan shroudlib.Event

	// dropped считает количество потерянных событий при overflow.
	// Указатель: EventStream использует value receiver, atomic.Uint64 содержит noCopy.
	dropped *atomic.Uint64
}

// Send routes an event to an observer goroutine. Events of the same
// stream always land on the same goroutine.
//
// При переполнении канала traffic события отбрасываются. Остальные
// доставляются блокирующе.
func (e EventStream) Send(ctx context.Context, evt shroudlib.Event) {
	var chanNo uint32

	if streamID := evt.StreamID(); streamID != "" {
		chanNo = xxhash.ChecksumString32(streamID)
	} else {
		chanNo = rand.Uint32()
	}

	ch := e.chans[int(chanNo)%len(e.chans)]

	// EventTraffic и EventFragmentation идут с горячего пути relay и
	// фрагментатора. Relay не должен ждать медленного observer.
	if isDroppable(evt) {
		select {
		case <-ctx.Done():
		case <-e.ctx.Done():
		case ch <- evt:
		default:
			// Буфер переполнен, отбрасываем traffic event.
			// Метрики traffic будут чуть менее точными, но relay не блокируется.
			e.dropped.Add(1)
		}

		return
	}

	select {
	case <-ctx.Done():
	case <-e.ctx.Done():
	case ch <- evt:
	}
}

func isDroppable(evt shroudlib.Event) bool {
	switch evt.(type) {
	case shroudlib.EventTraffic, shroudlib.EventFragmentation:
		return true
	}

	return false
}

// Dropped возвращает количество отброшенных событий с момента старта.
func (e EventStream) Dropped() uint64 {
	return e.dropped.Load()
}

// Shutdown stops an event stream pipeline.
func (e EventStream) Shutdown() {
	e.ctxCancel()
}

// NewEventStream builds a new default event stream.
//
// If you give an empty array of observers, then NoopObserver is going
// to be used. If you give many observers, then they will process a
// message concurrently.
func NewEventStream(observerFactories []ObserverFactory) EventStream {
	if len(observerFactories) == 0 {
		observerFactories = append(observerFactories, NewNoopObserver)
	}

	ctx, cancel := context.WithCancel(context.Background())
	rv := EventStream{
		ctx:       ctx,
		ctxCancel: cancel,
		chans:     make([]chan shroudlib.Event, runtime.NumCPU()),
		dropped:   &atomic.Uint64{},
	}

	for i := 0; i < runtime.NumCPU(); i++ {
		rv.chans[i] = make(chan shroudlib.Event, eventChannelBuffer)

		if len(observerFactories) == 1 {
			go eventStreamProcessor(ctx, rv.chans[i], observerFactories[0]())
		} else {
			go eventStreamProcessor(ctx, rv.chans[i], newMultiObserver(observerFactories))
		}
	}

	return rv
}

func eventStreamProcessor(ctx context.Context, eventChan <-chan shroudlib.Event, observer Observer) { //nolint: cyclop
	defer observer.Shutdown()

	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-eventChan:
			switch typedEvt := evt.(type) {
			case shroudlib.EventTraffic:
				observer.EventTraffic(typedEvt)
			case shroudlib.EventStart:
				observer.EventStart(typedEvt)
			case shroudlib.EventFinish:
				observer.EventFinish(typedEvt)
			case shroudlib.EventConnectedToBackend:
				observer.EventConnectedToBackend(typedEvt)
			case shroudlib.EventProbeDetected:
				observer.EventProbeDetected(typedEvt)
			case shroudlib.EventIPBlocklisted:
				observer.EventIPBlocklisted(typedEvt)
			case shroudlib.EventConcurrencyLimited:
				observer.EventConcurrencyLimited(typedEvt)
			case shroudlib.EventReplayAttack:
				observer.EventReplayAttack(typedEvt)
			case shroudlib.EventIPListSize:
				observer.EventIPListSize(typedEvt)
			case shroudlib.EventConditionDetected:
				observer.EventConditionDetected(typedEvt)
			case shroudlib.EventStrategyChanged:
				observer.EventStrategyChanged(typedEvt)
			case shroudlib.EventStrategyResult:
				observer.EventStrategyResult(typedEvt)
			case shroudlib.EventFragmentation:
				observer.EventFragmentation(typedEvt)
			}
		}
	}
}
