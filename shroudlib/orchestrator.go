package shroudlib

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/akab00m/shroud/shroudlib/internal/entropy"
	"github.com/akab00m/shroud/shroudlib/internal/fingerprint"
	"github.com/akab00m/shroud/shroudlib/internal/fragment"
	"github.com/akab00m/shroud/shroudlib/internal/probe"
)

const (
	reasonDetection = "detection"
	reasonForced    = "forced"
	reasonFallback  = "fallback"
)

// Orchestrator detects network conditions and chooses an evasion
// strategy. It owns fingerprint, fragmentation, probe defense and entropy
// engines and exposes them to callers.
//
// All methods are safe for concurrent use.
type Orchestrator struct {
	ctx       context.Context
	ctxCancel context.CancelFunc
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once

	fingerprints *fingerprint.Engine
	fragments    *fragment.Engine
	defender     *probe.Defender
	normalizer   *entropy.Normalizer
	detector     ConditionDetector

	browserProfile        BrowserProfile
	protocol              ProtocolOpts
	detectionTimeout      time.Duration
	adaptationInterval    time.Duration
	tlsInsecureSkipVerify bool

	network     Network
	eventStream EventStream
	logger      Logger

	mutex         sync.Mutex
	state         EvasionState
	lastDetection DetectionResult
}

// Start runs initial detection and launches the adaptation loop. It
// blocks for at most a detection timeout. Subsequent calls do nothing.
func (o *Orchestrator) Start() {
	o.startOnce.Do(func() {
		o.detect(true)

		o.wg.Add(1)

		go func() {
			defer o.wg.Done()

			o.loop()
		}()
	})
}

// Shutdown stops the adaptation loop and cancels running detection.
func (o *Orchestrator) Shutdown() {
	o.stopOnce.Do(func() {
		o.ctxCancel()
		o.wg.Wait()
	})
}

func (o *Orchestrator) loop() {
	ticker := time.NewTicker(o.adaptationInterval)
	defer ticker.Stop()

	for {
		select {
		case <-o.ctx.Done():
			return
		case <-ticker.C:
			o.adapt()
		}
	}
}

func (o *Orchestrator) adapt() {
	o.detect(false)
	o.decayScores()

	if pruned := o.defender.Prune(time.Now()); pruned > 0 {
		o.logger.BindInt("pruned", pruned).Debug("probe defender state has been pruned")
	}
}

func (o *Orchestrator) detect(initial bool) {
	ctx, cancel := context.WithTimeout(o.ctx, o.detectionTimeout)
	defer cancel()

	result := o.detector.Detect(ctx)

	if o.ctx.Err() != nil {
		return
	}

	o.mutex.Lock()

	o.lastDetection = result
	o.state.LastDetection = time.Now()
	o.state.NetworkType = networkTypeOf(result)
	o.state.DetectedISP = ispOf(result)

	condition := o.state.NetworkCondition
	if !o.state.ConditionForced {
		condition = InferCondition(result)
	}

	changed := condition != o.state.NetworkCondition
	o.state.NetworkCondition = condition

	from, to := o.state.ActiveStrategy, o.state.ActiveStrategy
	if initial || changed {
		to = o.selectLocked()
	}

	o.mutex.Unlock()

	o.logger.
		BindStr("condition", condition.String()).
		BindStr("network_type", networkTypeOf(result)).
		BindStr("isp", ispOf(result)).
		Info("network condition has been detected")
	o.eventStream.Send(o.ctx, NewEventConditionDetected(condition, result))

	if from != to {
		o.strategyChanged(from, to, reasonDetection)
	}
}

// selectLocked picks the best scored strategy of a current chain. Ties
// are broken by chain order.
func (o *Orchestrator) selectLocked() Strategy {
	chain := FallbackChain(o.state.NetworkCondition)
	best := chain[0]

	for _, s := range chain[1:] {
		if o.state.Scores[s] > o.state.Scores[best] {
			best = s
		}
	}

	o.state.ActiveStrategy = best
	o.state.FallbackChainPosition = 0

	return best
}

func (o *Orchestrator) decayScores() {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	for s, score := range o.state.Scores {
		o.state.Scores[s] = score*scoreDecayRatio + initialScore*(1-scoreDecayRatio)
	}
}

func (o *Orchestrator) strategyChanged(from, to Strategy, reason string) {
	o.logger.
		BindStr("from", from.String()).
		BindStr("to", to.String()).
		BindStr("reason", reason).
		Info("active strategy has been changed")
	o.eventStream.Send(o.ctx, NewEventStrategyChanged(from, to, reason))
}

// SetCondition pins a network condition. Detection continues to update
// ISP and network type but does not change the condition anymore.
func (o *Orchestrator) SetCondition(condition NetworkCondition) {
	o.mutex.Lock()

	o.state.ConditionForced = true
	o.state.NetworkCondition = condition
	from := o.state.ActiveStrategy
	to := o.selectLocked()

	o.mutex.Unlock()

	if from != to {
		o.strategyChanged(from, to, reasonForced)
	}
}

// ReportResult updates statistics and scores of a strategy. A failure of
// the active strategy advances the fallback chain; an exhausted chain
// starts from the beginning.
func (o *Orchestrator) ReportResult(strategy Strategy, success bool, latency time.Duration) {
	o.mutex.Lock()

	o.state.TotalConnections++
	o.state.Attempts[strategy]++

	score := o.state.Scores[strategy]
	from, to := o.state.ActiveStrategy, o.state.ActiveStrategy

	if success {
		o.state.Successes[strategy]++
		o.state.SuccessfulConnections++
		score = clampScore(score + successBonus)

		value := strategy
		o.state.LastSuccessfulStrategy = &value
	} else {
		o.state.Failures[strategy]++
		score = clampScore(score - failurePenalty)

		if strategy == o.state.ActiveStrategy {
			chain := FallbackChain(o.state.NetworkCondition)
			o.state.FallbackChainPosition = (o.state.FallbackChainPosition + 1) % len(chain)
			o.state.ActiveStrategy = chain[o.state.FallbackChainPosition]
			to = o.state.ActiveStrategy
		}
	}

	o.state.Scores[strategy] = score

	o.mutex.Unlock()

	o.eventStream.Send(o.ctx, NewEventStrategyResult(strategy, success, latency, score))

	if from != to {
		o.strategyChanged(from, to, reasonFallback)
	}
}

// GetOptimalStrategy returns an active strategy.
func (o *Orchestrator) GetOptimalStrategy() Strategy {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	return o.state.ActiveStrategy
}

// State returns a consistent snapshot of the orchestrator state.
func (o *Orchestrator) State() EvasionState {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	return o.state.clone()
}

// LastDetection returns raw results of the latest detection.
func (o *Orchestrator) LastDetection() DetectionResult {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	return o.lastDetection
}

// Fingerprint returns a fingerprint to use for a new connection.
func (o *Orchestrator) Fingerprint(preferH2 bool) Fingerprint {
	if o.browserProfile == BrowserRandom {
		return o.fingerprints.Rotating(preferH2)
	}

	return o.fingerprints.ForProfile(o.browserProfile, preferH2)
}

// ClientHello builds raw ClientHello bytes for a current fingerprint.
func (o *Orchestrator) ClientHello(serverName string) []byte {
	return o.fingerprints.BuildClientHello(o.Fingerprint(true), serverName)
}

// FragmentAndSend writes a ClientHello into conn in fragments.
func (o *Orchestrator) FragmentAndSend(conn net.Conn, hello []byte, destAddr string) error {
	return o.fragments.FragmentAndSend(conn, hello, destAddr) //nolint: wrapcheck
}

// FragmentMetrics returns a snapshot of fragmentation metrics.
func (o *Orchestrator) FragmentMetrics() FragmentMetrics {
	return o.fragments.Metrics()
}

// FragmentConfig returns fragmentation settings.
func (o *Orchestrator) FragmentConfig() FragmentConfig {
	return o.fragments.Config()
}

// AnalyzeProbe tells if first bytes of a connection look like an active
// probe.
func (o *Orchestrator) AnalyzeProbe(sourceIP string, initialBytes []byte) (bool, ProbeType) {
	return o.defender.Analyze(sourceIP, initialBytes)
}

// FallbackResponse returns a decoy response for a given probe type.
func (o *Orchestrator) FallbackResponse(probeType ProbeType) []byte {
	return o.defender.FallbackResponse(probeType)
}

// ProbeStats returns statistics of the probe defender.
func (o *Orchestrator) ProbeStats() ProbeStats {
	return o.defender.Stats()
}

// NormalizePacket lowers entropy of a packet if it looks like pure
// ciphertext.
func (o *Orchestrator) NormalizePacket(data []byte, direction Direction) []byte {
	return o.normalizer.NormalizePacket(data, direction)
}

// NormalizePacketSize pads a packet to a common TLS record size.
func (o *Orchestrator) NormalizePacketSize(data []byte) []byte {
	return o.normalizer.NormalizePacketSize(data)
}

// RecordTraffic accounts traffic which was not normalized.
func (o *Orchestrator) RecordTraffic(size int, direction Direction) {
	o.normalizer.RecordTraffic(size, direction)
}

// NeedsRatioCorrection tells if upload:download ratio is suspicious.
func (o *Orchestrator) NeedsRatioCorrection() bool {
	return o.normalizer.NeedsRatioCorrection()
}

// CorrectionBytesNeeded returns how many download bytes restore a target
// ratio.
func (o *Orchestrator) CorrectionBytesNeeded(targetRatio float64) int {
	return o.normalizer.CorrectionBytesNeeded(targetRatio)
}

// EntropyStats returns traffic statistics of the normalizer.
func (o *Orchestrator) EntropyStats() EntropyStats {
	return o.normalizer.Stats()
}

func (o *Orchestrator) onFragmentOutcome(outcome fragment.Outcome) {
	if outcome.Err != nil {
		o.logger.
			BindStr("strategy", outcome.Strategy.String()).
			DebugError("cannot send fragmented client hello", outcome.Err)
	}

	o.eventStream.Send(o.ctx, NewEventFragmentation(
		outcome.Strategy,
		outcome.Fragments,
		outcome.Success,
		outcome.Reset,
		outcome.FallbackUsed))
}

// NewOrchestrator makes a new orchestrator. It does not start detection,
// please call Start for that.
func NewOrchestrator(opts OrchestratorOpts) (*Orchestrator, error) {
	if err := opts.valid(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	defender, err := probe.NewDefender(opts.probeOpts())
	if err != nil {
		return nil, fmt.Errorf("cannot build probe defender: %w", err)
	}

	detector, err := opts.getDetector()
	if err != nil {
		return nil, fmt.Errorf("cannot build network condition detector: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	orchestrator := &Orchestrator{
		ctx:                   ctx,
		ctxCancel:             cancel,
		fingerprints:          fingerprint.NewEngine(opts.fingerprintOpts()),
		defender:              defender,
		normalizer:            entropy.NewNormalizer(),
		detector:              detector,
		browserProfile:        opts.BrowserProfile,
		protocol:              opts.Protocol,
		detectionTimeout:      opts.getDetectionTimeout(),
		adaptationInterval:    opts.getAdaptationInterval(),
		tlsInsecureSkipVerify: opts.TLSInsecureSkipVerify,
		network:               opts.Network,
		eventStream:           opts.EventStream,
		logger:                opts.getLogger("orchestrator"),
		state:                 newEvasionState(),
	}

	orchestrator.fragments = fragment.NewEngine(fragment.Opts{
		Config:    opts.getFragmentConfig(),
		Seed:      opts.Seed,
		OnOutcome: orchestrator.onFragmentOutcome,
	})

	if opts.ForceCondition != nil {
		orchestrator.state.ConditionForced = true
		orchestrator.state.NetworkCondition = *opts.ForceCondition
		orchestrator.selectLocked()
	}

	return orchestrator, nil
}
