package shroudlib_test

import (
	"encoding/json"
	"testing"

	"github.com/akab00m/shroud/internal/testlib"
	"github.com/akab00m/shroud/logger"
	"github.com/akab00m/shroud/shroudlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newParamsOrchestrator(t *testing.T) *shroudlib.Orchestrator {
	t.Helper()

	orchestrator, err := shroudlib.NewOrchestrator(shroudlib.OrchestratorOpts{
		Logger:         logger.NewNoopLogger(),
		EventStream:    &testlib.EventStreamRecorder{},
		Detector:       &testlib.ConditionDetectorMock{},
		BrowserProfile: shroudlib.BrowserFirefox,
		Protocol: shroudlib.ProtocolOpts{
			ServerName:       "www.example.com",
			RealityPublicKey: "pubkey",
			RealityShortID:   "abcd",
			CDNHost:          "cdn.example.com",
			CDNPath:          "/ray",
		},
		Seed: 1,
	})
	require.NoError(t, err)

	return orchestrator
}

func paramsJSON(t *testing.T, params shroudlib.ConnectionParams) map[string]interface{} {
	t.Helper()

	encoded, err := json.Marshal(params)
	require.NoError(t, err)

	rv := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(encoded, &rv))

	return rv
}

func TestBuildConnectionParamsReality(t *testing.T) {
	t.Parallel()

	params := newParamsOrchestrator(t).BuildConnectionParams(shroudlib.StrategyRealityVision)
	data := paramsJSON(t, params)

	assert.Nil(t, params.Fragment)
	assert.Equal(t, "reality-vision", data["strategy"])
	assert.Equal(t, "vless", data["protocol"])
	assert.Equal(t, "xtls-rprx-vision", data["flow"])
	assert.NotContains(t, data, "fragment")

	stream := data["streamSettings"].(map[string]interface{})
	reality := stream["realitySettings"].(map[string]interface{})

	assert.Equal(t, "reality", stream["security"])
	assert.Equal(t, "www.example.com", reality["serverName"])
	assert.Equal(t, "pubkey", reality["publicKey"])
	assert.Equal(t, "abcd", reality["shortId"])
	assert.Equal(t, "firefox", reality["fingerprint"])
	assert.Equal(t, params.Fingerprint.EngineTag, reality["fingerprint"])
	assert.NotContains(t, stream, "sockopt")

	fp := data["fingerprint"].(map[string]interface{})

	assert.Equal(t, "firefox", fp["profile"])
	assert.Equal(t, params.Fingerprint.ComputeJA3(), fp["ja3Hash"])
}

func TestBuildConnectionParamsFragment(t *testing.T) {
	t.Parallel()

	for _, strategy := range []shroudlib.Strategy{
		shroudlib.StrategyRealityVisionFragment,
		shroudlib.StrategyDirectFragment,
	} {
		params := newParamsOrchestrator(t).BuildConnectionParams(strategy)
		data := paramsJSON(t, params)

		require.NotNil(t, params.Fragment)

		stream := data["streamSettings"].(map[string]interface{})
		fragment := stream["sockopt"].(map[string]interface{})["fragment"].(map[string]interface{})

		assert.Equal(t, "tlshello", fragment["packets"])
		assert.Equal(t, "100-200", fragment["length"])
		assert.Equal(t, "10-50", fragment["interval"])
		assert.Equal(t, fragment, data["fragment"])
	}
}

func TestBuildConnectionParamsCDN(t *testing.T) {
	t.Parallel()

	orchestrator := newParamsOrchestrator(t)

	testData := map[shroudlib.Strategy]struct {
		protocol string
		network  string
		settings string
	}{
		shroudlib.StrategySplitHTTPCDN:    {"vless", "splithttp", "splithttpSettings"},
		shroudlib.StrategyVLESSWSCDN:      {"vless", "ws", "wsSettings"},
		shroudlib.StrategyVLESSGRPCCDN:    {"vless", "grpc", "grpcSettings"},
		shroudlib.StrategyVMessWSTLS:      {"vmess", "ws", "wsSettings"},
		shroudlib.StrategyHysteria2Brutal: {"hysteria2", "udp", "hysteriaSettings"},
		shroudlib.StrategyTUICBBR:         {"tuic", "udp", "tuicSettings"},
	}

	for strategy, expected := range testData {
		data := paramsJSON(t, orchestrator.BuildConnectionParams(strategy))
		stream := data["streamSettings"].(map[string]interface{})

		assert.Equal(t, expected.protocol, data["protocol"], strategy.String())
		assert.Equal(t, expected.network, stream["network"], strategy.String())
		assert.Equal(t, "tls", stream["security"], strategy.String())
		assert.Contains(t, stream, expected.settings, strategy.String())

		tls := stream["tlsSettings"].(map[string]interface{})
		assert.Equal(t, "firefox", tls["fingerprint"], strategy.String())
	}
}
