package events

import "github.com/akab00m/shroud/shroudlib"

type multiObserver struct {
	observers []Observer
}

func (m multiObserver) EventStart(evt shroudlib.EventStart) {
	for _, v := range m.observers {
		v.EventStart(evt)
	}
}

func (m multiObserver) EventFinish(evt shroudlib.EventFinish) {
	for _, v := range m.observers {
		v.EventFinish(evt)
	}
}

func (m multiObserver) EventTraffic(evt shroudlib.EventTraffic) {
	for _, v := range m.observers {
		v.EventTraffic(evt)
	}
}

func (m multiObserver) EventConnectedToBackend(evt shroudlib.EventConnectedToBackend) {
	for _, v := range m.observers {
		v.EventConnectedToBackend(evt)
	}
}

func (m multiObserver) EventProbeDetected(evt shroudlib.EventProbeDetected) {
	for _, v := range m.observers {
		v.EventProbeDetected(evt)
	}
}

func (m multiObserver) EventIPBlocklisted(evt shroudlib.EventIPBlocklisted) {
	for _, v := range m.observers {
		v.EventIPBlocklisted(evt)
	}
}

func (m multiObserver) EventConcurrencyLimited(evt shroudlib.EventConcurrencyLimited) {
	for _, v := range m.observers {
		v.EventConcurrencyLimited(evt)
	}
}

func (m multiObserver) EventReplayAttack(evt shroudlib.EventReplayAttack) {
	for _, v := range m.observers {
		v.EventReplayAttack(evt)
	}
}

func (m multiObserver) EventIPListSize(evt shroudlib.EventIPListSize) {
	for _, v := range m.observers {
		v.EventIPListSize(evt)
	}
}

func (m multiObserver) EventConditionDetected(evt shroudlib.EventConditionDetected) {
	for _, v := range m.observers {
		v.EventConditionDetected(evt)
	}
}

func (m multiObserver) EventStrategyChanged(evt shroudlib.EventStrategyChanged) {
	for _, v := range m.observers {
		v.EventStrategyChanged(evt)
	}
}

func (m multiObserver) EventStrategyResult(evt shroudlib.EventStrategyResult) {
	for _, v := range m.observers {
		v.EventStrategyResult(evt)
	}
}

func (m multiObserver) EventFragmentation(evt shroudlib.EventFragmentation) {
	for _, v := range m.observers {
		v.EventFragmentation(evt)
	}
}

func (m multiObserver) Shutdown() {
	for _, v := range m.observers {
		v.Shutdown()
	}
}

func newMultiObserver(factories []ObserverFactory) Observer {
	observers := make([]Observer, len(factories))

	for i, v := range factories {
		observers[i] = v()
	}

	return multiObserver{
		observers: observers,
	}
}
