package fragment

import "time"

// Metrics is a snapshot of engine counters.
type Metrics struct {
	TotalConnections    uint64
	SuccessfulFragments uint64
	FailedFragments     uint64
	ResetReceived       uint64
	FallbackUsed        uint64
	StrategySuccess     map[Strategy]uint64
	AvgFragmentCount    float64
	AvgDelay            time.Duration
}

func (m Metrics) clone() Metrics {
	success := make(map[Strategy]uint64, len(m.StrategySuccess))
	for k, v := range m.StrategySuccess {
		success[k] = v
	}

	m.StrategySuccess = success

	return m
}

func newMetrics() Metrics {
	return Metrics{
		StrategySuccess: map[Strategy]uint64{},
	}
}
