package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/akab00m/shroud/internal/config"
	"github.com/akab00m/shroud/shroudlib"
	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func TestKongModel(t *testing.T) {
	t.Parallel()

	testData := map[string]struct {
		args  []string
		valid bool
	}{
		"params":                 {[]string{"params", "splithttp-cdn", "--condition", "blackout"}, true},
		"prioritize":             {[]string{"prioritize", "-s", "reality-vision", "vless://a@b:443"}, true},
		"fingerprint":            {[]string{"fingerprint", "-p", "firefox"}, true},
		"prioritize-no-strategy": {[]string{"prioritize"}, false},
	}

	for name, value := range testData {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			parser, err := kong.New(&CLI{}, kong.Vars{"version": "test"})
			require.NoError(t, err)

			_, err = parser.Parse(value.args)
			if value.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestMakeFragmentConfig(t *testing.T) {
	t.Parallel()

	conf := &config.Config{}
	defaults := shroudlib.DefaultFragmentConfig()

	assert.Equal(t, defaults, makeFragmentConfig(conf))

	require.NoError(t, conf.Evasion.Fragment.Enabled.Set("false"))
	require.NoError(t, conf.Evasion.Fragment.Strategy.Set("dual"))
	require.NoError(t, conf.Evasion.Fragment.Length.Set("20-40"))
	require.NoError(t, conf.Evasion.Fragment.Interval.Set("1-5"))

	fragmentConfig := makeFragmentConfig(conf)

	assert.False(t, fragmentConfig.Enabled)
	assert.Equal(t, shroudlib.FragmentDual, fragmentConfig.Strategy)
	assert.Equal(t, 20, fragmentConfig.MinFragBytes)
	assert.Equal(t, 40, fragmentConfig.MaxFragBytes)
	assert.Equal(t, time.Millisecond, fragmentConfig.MinDelay)
	assert.Equal(t, 5*time.Millisecond, fragmentConfig.MaxDelay)
	assert.True(t, fragmentConfig.FallbackOnReset)
}

func TestMakeOrchestratorOpts(t *testing.T) {
	t.Parallel()

	conf := &config.Config{}

	require.NoError(t, conf.Evasion.ForceCondition.Set("udp-blocked"))
	require.NoError(t, conf.Protocol.CDNPath.Set("ws"))
	conf.Protocol.RealityPublicKey = "key"
	conf.Defense.Probe.FallbackPage = "/definitely/does/not/exist"

	_, err := makeOrchestratorOpts(conf)
	assert.Error(t, err)

	conf.Defense.Probe.FallbackPage = ""

	opts, err := makeOrchestratorOpts(conf)
	require.NoError(t, err)

	assert.Equal(t, shroudlib.BrowserRandom, opts.BrowserProfile)
	assert.Equal(t, shroudlib.ConditionUDPBlocked, *opts.ForceCondition)
	assert.Equal(t, "/ws", opts.Protocol.CDNPath)
	assert.Equal(t, "key", opts.Protocol.RealityPublicKey)
}

func TestLocalAddress(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "127.0.0.1:443", localAddress("0.0.0.0:443"))
	assert.Equal(t, "127.0.0.1:443", localAddress(":443"))
	assert.Equal(t, "127.0.0.1:443", localAddress("[::]:443"))
	assert.Equal(t, "10.0.0.1:443", localAddress("10.0.0.1:443"))
	assert.Equal(t, "http://127.0.0.1:3129/metrics", healthURL("0.0.0.0:3129", "/metrics"))
}

func TestCheckHTTP(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/metrics" {
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	assert.NoError(t, checkHTTP(server.URL+"/metrics"))
	assert.Error(t, checkHTTP(server.URL+"/other"))
}

func TestCheckTCP(t *testing.T) {
	t.Parallel()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := listener.Addr().String()

	assert.NoError(t, checkTCP(addr))

	listener.Close()

	assert.Error(t, checkTCP(addr))
}

func TestReadLines(t *testing.T) {
	t.Parallel()

	lines, err := readLines(strings.NewReader("vless://a@b:443\n\n# comment\n  trojan://c@d:443  \n"))
	require.NoError(t, err)

	assert.Equal(t, []string{"vless://a@b:443", "trojan://c@d:443"}, lines)
}

type OutputTestSuite struct {
	suite.Suite

	output   *bytes.Buffer
	original io.Writer
}

func (suite *OutputTestSuite) SetupTest() {
	suite.output = &bytes.Buffer{}
	suite.original = stdout
	stdout = suite.output
}

func (suite *OutputTestSuite) TearDownTest() {
	stdout = suite.original
}

func (suite *OutputTestSuite) TestParamsForCondition() {
	cmd := &Params{Condition: "blackout"}
	suite.NoError(cmd.Run(&CLI{}, "test"))

	decoded := map[string]interface{}{}
	suite.NoError(json.Unmarshal(suite.output.Bytes(), &decoded))

	suite.Equal("splithttp-cdn", decoded["strategy"])
	suite.Equal("blackout", decoded["condition"])
	suite.Contains(decoded, "streamSettings")
}

func (suite *OutputTestSuite) TestParamsExplicitStrategy() {
	cmd := &Params{Condition: "normal", Strategy: "direct-fragment"}
	suite.NoError(cmd.Run(&CLI{}, "test"))

	decoded := map[string]interface{}{}
	suite.NoError(json.Unmarshal(suite.output.Bytes(), &decoded))

	suite.Equal("direct-fragment", decoded["strategy"])
	suite.Contains(decoded, "fragment")
}

func (suite *OutputTestSuite) TestParamsUnknownStrategy() {
	cmd := &Params{Condition: "normal", Strategy: "teleport"}
	suite.Error(cmd.Run(&CLI{}, "test"))
}

func (suite *OutputTestSuite) TestFingerprint() {
	cmd := &Fingerprint{Profile: "chrome", ServerName: "example.com", Seed: 1}
	suite.NoError(cmd.Run(&CLI{}, "test"))

	decoded := fingerprintOutput{}
	suite.NoError(json.Unmarshal(suite.output.Bytes(), &decoded))

	suite.Equal(shroudlib.BrowserChrome, decoded.Fingerprint.Profile)
	suite.Len(decoded.Fingerprint.JA3Hash, 32)
	suite.True(strings.HasPrefix(decoded.ClientHello, "16"))
}

func (suite *OutputTestSuite) TestPrioritize() {
	cmd := &Prioritize{
		Strategy: "splithttp-cdn",
		URIs: []string{
			"vless://id@1.2.3.4:443?security=reality&type=tcp#reality",
			"vless://id@cdn.example.com:443?security=tls&type=splithttp#cdn",
		},
	}
	suite.NoError(cmd.Run(&CLI{}, "test"))

	lines := strings.Split(strings.TrimSpace(suite.output.String()), "\n")

	suite.Len(lines, 2)
	suite.True(strings.HasSuffix(lines[0], "#cdn"))
}

func TestOutput(t *testing.T) {
	suite.Run(t, &OutputTestSuite{})
}
