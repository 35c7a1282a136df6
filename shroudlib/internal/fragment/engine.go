package fragment

import (
	"errors"
	"fmt"
	"math/rand"
	"net"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/akab00m/shroud/shroudlib/internal/tlshello"
)

const (
	adaptiveInitialScore   = 0.5
	adaptiveSuccessBonus   = 0.1
	adaptiveFailurePenalty = 0.2

	maxTrackedDestinations = 4096
)

// Outcome describes a single FragmentAndSend call.
type Outcome struct {
	Destination  string
	Strategy     Strategy
	Fragments    int
	Delay        time.Duration
	Success      bool
	Reset        bool
	FallbackUsed bool
	Err          error
}

// Opts configures an Engine.
type Opts struct {
	Config Config

	// Seed fixes randomness of cut points and delays. 0 means a
	// time-based seed.
	Seed int64

	// OnOutcome is called after each fragmented send, outside of locks.
	OnOutcome func(Outcome)
}

// Engine fragments ClientHello records. It is safe for concurrent use,
// but fragments of one record are always written sequentially.
type Engine struct {
	config    Config
	onOutcome func(Outcome)

	rndMutex sync.Mutex
	rnd      *rand.Rand

	mutex    sync.Mutex
	metrics  Metrics
	adaptive map[string]map[Strategy]float64
}

// Config returns a configuration of the engine.
func (e *Engine) Config() Config {
	return e.config
}

// Split cuts data according to a strategy. Concatenation of the result is
// always equal to data. StrategyAdaptive falls back to ThreePart here
// because it needs a destination.
func (e *Engine) Split(strategy Strategy, data []byte) [][]byte {
	e.rndMutex.Lock()
	defer e.rndMutex.Unlock()

	return splitter{
		rnd:          e.rnd,
		minFragBytes: e.config.MinFragBytes,
		maxFragBytes: e.config.MaxFragBytes,
	}.split(strategy, data)
}

// FragmentAndSend writes a ClientHello to conn in fragments. Anything which
// is not a ClientHello is written as is.
func (e *Engine) FragmentAndSend(conn net.Conn, hello []byte, destAddr string) error {
	if !e.config.Enabled || !tlshello.IsClientHello(hello) {
		if _, err := conn.Write(hello); err != nil {
			return fmt.Errorf("cannot write data: %w", err)
		}

		return nil
	}

	if tcpConn, ok := conn.(*net.TCPConn); ok {
		tcpConn.SetNoDelay(true) //nolint: errcheck
	}

	destination := destinationHost(destAddr)
	strategy := e.config.Strategy

	if strategy == StrategyAdaptive {
		strategy = e.adaptiveStrategy(destination)
	}

	fragments := e.Split(strategy, hello)
	delay, err := e.send(conn, fragments)

	outcome := Outcome{
		Destination: destination,
		Strategy:    strategy,
		Fragments:   len(fragments),
		Delay:       delay,
		Err:         err,
	}

	if err != nil && IsResetError(err) {
		outcome.Reset = true

		if e.config.FallbackOnReset {
			e.recordAdaptive(destination, strategy, false)

			fragments = e.Split(StrategyDual, hello)
			delay, err = e.send(conn, fragments)

			outcome.FallbackUsed = true
			outcome.Strategy = StrategyDual
			outcome.Fragments = len(fragments)
			outcome.Delay += delay
			outcome.Err = err
		}
	}

	outcome.Success = outcome.Err == nil

	e.record(outcome)

	if e.onOutcome != nil {
		e.onOutcome(outcome)
	}

	if outcome.Err != nil {
		return fmt.Errorf("cannot send fragmented client hello (%s): %w", outcome.Strategy, outcome.Err)
	}

	return nil
}

func (e *Engine) send(conn net.Conn, fragments [][]byte) (time.Duration, error) {
	var total time.Duration

	for i, fragment := range fragments {
		if len(fragment) == 0 {
			continue
		}

		if _, err := conn.Write(fragment); err != nil {
			return total, err //nolint: wrapcheck
		}

		if i == len(fragments)-1 {
			break
		}

		if delay := e.delay(); delay > 0 {
			total += delay

			time.Sleep(delay)
		}
	}

	return total, nil
}

func (e *Engine) delay() time.Duration {
	spread := e.config.MaxDelay - e.config.MinDelay
	if spread <= 0 {
		return e.config.MinDelay
	}

	e.rndMutex.Lock()
	defer e.rndMutex.Unlock()

	return e.config.MinDelay + time.Duration(e.rnd.Int63n(int64(spread)+1))
}

func (e *Engine) adaptiveStrategy(destination string) Strategy {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	scores, ok := e.adaptive[destination]
	if !ok || len(scores) == 0 {
		return StrategyThreePart
	}

	best := StrategyThreePart
	bestScore := -1.0

	for strategy := StrategyThreePart; strategy < StrategyAdaptive; strategy++ {
		if score, ok := scores[strategy]; ok && score > bestScore {
			best = strategy
			bestScore = score
		}
	}

	return best
}

func (e *Engine) recordAdaptive(destination string, strategy Strategy, success bool) {
	if e.config.Strategy != StrategyAdaptive {
		return
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.updateAdaptive(destination, strategy, success)
}

func (e *Engine) updateAdaptive(destination string, strategy Strategy, success bool) {
	scores, ok := e.adaptive[destination]
	if !ok {
		if len(e.adaptive) >= maxTrackedDestinations {
			for k := range e.adaptive {
				delete(e.adaptive, k)

				break
			}
		}

		scores = map[Strategy]float64{}
		e.adaptive[destination] = scores
	}

	score, ok := scores[strategy]
	if !ok {
		score = adaptiveInitialScore
	}

	if success {
		score += adaptiveSuccessBonus
	} else {
		score -= adaptiveFailurePenalty
	}

	scores[strategy] = clamp(score)
}

func (e *Engine) record(outcome Outcome) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	m := &e.metrics

	m.TotalConnections++

	if outcome.Reset {
		m.ResetReceived++
	}

	if outcome.FallbackUsed {
		m.FallbackUsed++
	}

	if outcome.Success {
		m.SuccessfulFragments++
		m.StrategySuccess[outcome.Strategy]++
	} else {
		m.FailedFragments++
	}

	n := float64(m.TotalConnections)
	m.AvgFragmentCount += (float64(outcome.Fragments) - m.AvgFragmentCount) / n
	m.AvgDelay += time.Duration((float64(outcome.Delay) - float64(m.AvgDelay)) / n)

	if e.config.Strategy == StrategyAdaptive {
		e.updateAdaptive(outcome.Destination, outcome.Strategy, outcome.Success)
	}
}

// Metrics returns a snapshot of engine counters.
func (e *Engine) Metrics() Metrics {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	return e.metrics.clone()
}

// AdaptiveScores returns a copy of per-strategy scores of a destination.
func (e *Engine) AdaptiveScores(destAddr string) map[Strategy]float64 {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	rv := map[Strategy]float64{}
	for k, v := range e.adaptive[destinationHost(destAddr)] {
		rv[k] = v
	}

	return rv
}

// IsResetError checks if an error means that a peer (or a middlebox)
// reset a connection.
func IsResetError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return true
	}

	errStr := err.Error()

	return strings.Contains(errStr, "connection reset by peer") ||
		strings.Contains(errStr, "broken pipe")
}

func destinationHost(destAddr string) string {
	if host, _, err := net.SplitHostPort(destAddr); err == nil {
		return host
	}

	return destAddr
}

func clamp(value float64) float64 {
	switch {
	case value < 0:
		return 0
	case value > 1:
		return 1
	}

	return value
}

// NewEngine builds a new fragmentation engine.
func NewEngine(opts Opts) *Engine {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Engine{
		config:    opts.Config.normalized(),
		onOutcome: opts.OnOutcome,
		rnd:       rand.New(rand.NewSource(seed)), //nolint: gosec
		metrics:   newMetrics(),
		adaptive:  map[string]map[Strategy]float64{},
	}
}
