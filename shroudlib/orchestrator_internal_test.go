package shroudlib

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type silentLogger struct{}

func (s silentLogger) Named(_ string) Logger { return s }
func (s silentLogger) BindInt(_ string, _ int) Logger { return s }
func (s silentLogger) BindStr(_, _ string) Logger { return s }
func (s silentLogger) BindJSON(_, _ string) Logger { return s }
func (s silentLogger) Printf(_ string, _ ...interface{}) {}
func (s silentLogger) Info(_ string) {}
func (s silentLogger) InfoError(_ string, _ error) {}
func (s silentLogger) Warning(_ string) {}
func (s silentLogger) WarningError(_ string, _ error) {}
func (s silentLogger) Debug(_ string) {}
func (s silentLogger) DebugError(_ string, _ error) {}

type discardStream struct{}

func (discardStream) Send(_ context.Context, _ Event) {}

type staticDetector DetectionResult

func (s staticDetector) Detect(_ context.Context) DetectionResult {
	return DetectionResult(s)
}

func newInternalOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()

	orchestrator, err := NewOrchestrator(OrchestratorOpts{
		Logger:      silentLogger{},
		EventStream: discardStream{},
		Detector:    staticDetector{Complete: true},
	})
	require.NoError(t, err)

	return orchestrator
}

func TestDecayMovesScoresToMiddle(t *testing.T) {
	t.Parallel()

	orchestrator := newInternalOrchestrator(t)
	orchestrator.state.Scores[StrategyTUICBBR] = 1.0
	orchestrator.state.Scores[StrategyVMessWSTLS] = 0.0

	orchestrator.decayScores()

	scores := orchestrator.State().Scores

	assert.InDelta(t, 0.975, scores[StrategyTUICBBR], 1e-9)
	assert.InDelta(t, 0.025, scores[StrategyVMessWSTLS], 1e-9)
	assert.InDelta(t, 0.5, scores[StrategyRealityVision], 1e-9)

	for i := 0; i < 500; i++ {
		orchestrator.decayScores()
	}

	scores = orchestrator.State().Scores

	assert.InDelta(t, 0.5, scores[StrategyTUICBBR], 1e-6)
	assert.InDelta(t, 0.5, scores[StrategyVMessWSTLS], 1e-6)
}

func TestAdaptRedetects(t *testing.T) {
	t.Parallel()

	orchestrator := newInternalOrchestrator(t)
	orchestrator.detector = staticDetector{Complete: true, UDP: ProbeResult{}, CDN: ProbeResult{Reachable: true}}

	orchestrator.adapt()

	assert.Equal(t, ConditionUDPBlocked, orchestrator.State().NetworkCondition)
	assert.False(t, orchestrator.State().LastDetection.IsZero())
}

func TestShutdownIsIdempotent(t *testing.T) {
	t.Parallel()

	orchestrator := newInternalOrchestrator(t)
	orchestrator.Start()
	orchestrator.Shutdown()
	orchestrator.Shutdown()

	assert.Error(t, orchestrator.ctx.Err())
}
