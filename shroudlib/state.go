package shroudlib

import "time"

const (
	initialScore    = 0.5
	successBonus    = 0.05
	failurePenalty  = 0.1
	scoreDecayRatio = 0.95
)

// EvasionState is a snapshot of the orchestrator state.
type EvasionState struct {
	ActiveStrategy         Strategy             `json:"active_strategy"`
	NetworkType            string               `json:"network_type"`
	NetworkCondition       NetworkCondition     `json:"network_condition"`
	DetectedISP            string               `json:"detected_isp"`
	Attempts               map[Strategy]uint64  `json:"attempts"`
	Successes              map[Strategy]uint64  `json:"successes"`
	Failures               map[Strategy]uint64  `json:"failures"`
	LastSuccessfulStrategy *Strategy            `json:"last_successful_strategy,omitempty"`
	FallbackChainPosition  int                  `json:"fallback_chain_position"`
	TotalConnections       uint64               `json:"total_connections"`
	SuccessfulConnections  uint64               `json:"successful_connections"`
	Scores                 map[Strategy]float64 `json:"scores"`
	ConditionForced        bool                 `json:"condition_forced"`
	LastDetection          time.Time            `json:"last_detection"`
}

// SuccessRate returns a share of successful connections.
func (e EvasionState) SuccessRate() float64 {
	if e.TotalConnections == 0 {
		return 0
	}

	return float64(e.SuccessfulConnections) / float64(e.TotalConnections)
}

func (e EvasionState) clone() EvasionState {
	rv := e

	rv.Attempts = make(map[Strategy]uint64, len(e.Attempts))
	rv.Successes = make(map[Strategy]uint64, len(e.Successes))
	rv.Failures = make(map[Strategy]uint64, len(e.Failures))
	rv.Scores = make(map[Strategy]float64, len(e.Scores))

	for k, v := range e.Attempts {
		rv.Attempts[k] = v
	}

	for k, v := range e.Successes {
		rv.Successes[k] = v
	}

	for k, v := range e.Failures {
		rv.Failures[k] = v
	}

	for k, v := range e.Scores {
		rv.Scores[k] = v
	}

	if e.LastSuccessfulStrategy != nil {
		value := *e.LastSuccessfulStrategy
		rv.LastSuccessfulStrategy = &value
	}

	return rv
}

func newEvasionState() EvasionState {
	state := EvasionState{
		ActiveStrategy:   FallbackChain(ConditionNormal)[0],
		NetworkType:      "unknown",
		NetworkCondition: ConditionNormal,
		DetectedISP:      "unknown",
		Attempts:         map[Strategy]uint64{},
		Successes:        map[Strategy]uint64{},
		Failures:         map[Strategy]uint64{},
		Scores:           map[Strategy]float64{},
	}

	for _, s := range Strategies() {
		state.Scores[s] = initialScore
	}

	return state
}

func clampScore(value float64) float64 {
	switch {
	case value < 0:
		return 0
	case value > 1:
		return 1
	}

	return value
}
