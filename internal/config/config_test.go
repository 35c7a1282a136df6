package config_test

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/akab00m/shroud/internal/config"
	"github.com/akab00m/shroud/shroudlib"
	"github.com/stretchr/testify/suite"
)

type ConfigTestSuite struct {
	suite.Suite
}

func (suite *ConfigTestSuite) ReadConfig(filename string) []byte {
	data, err := os.ReadFile(filepath.Join("testdata", filename))
	suite.NoError(err)

	return data
}

func (suite *ConfigTestSuite) TestParseBroken() {
	_, err := config.Parse(suite.ReadConfig("broken.toml"))
	suite.Error(err)
}

func (suite *ConfigTestSuite) TestParseNoBackend() {
	_, err := config.Parse(suite.ReadConfig("only_bind_to.toml"))
	suite.ErrorContains(err, "backend")
}

func (suite *ConfigTestSuite) TestParseMinimal() {
	conf, err := config.Parse(suite.ReadConfig("minimal.toml"))
	suite.NoError(err)

	suite.Equal("0.0.0.0:443", conf.BindTo.Get(""))
	suite.Equal("127.0.0.1:8443", conf.Backend.Get(""))
	suite.EqualValues(4096, conf.Concurrency.Get(4096))
	suite.True(conf.Evasion.Fragment.Enabled.Get(true))
	suite.True(conf.Evasion.Fragment.FallbackOnReset.Get(true))
	suite.Nil(conf.Evasion.ForceCondition.Get())
	suite.Equal(shroudlib.BrowserRandom, conf.Evasion.BrowserProfile.Get(shroudlib.BrowserRandom))
	suite.Equal(config.DNSModeDoH, conf.Network.DNSMode.Get(config.DNSModeDoH))
	suite.False(conf.Stats.Prometheus.Enabled.Get(false))
}

func (suite *ConfigTestSuite) TestParseFull() {
	conf, err := config.Parse(suite.ReadConfig("full.toml"))
	suite.NoError(err)

	suite.True(conf.Debug.Get(false))
	suite.Equal(config.LogFormatConsole, conf.LogFormat)
	suite.EqualValues(2048, conf.Concurrency.Get(0))
	suite.Equal(5*time.Second, conf.Timeouts.Handshake.Get(0))
	suite.Equal(2*time.Minute, conf.Timeouts.Idle.Get(0))

	suite.True(conf.Defense.AntiReplay.Enabled.Get(false))
	suite.EqualValues(2*1024*1024, conf.Defense.AntiReplay.MaxSize.Get(0))
	suite.InDelta(0.005, conf.Defense.AntiReplay.ErrorRate.Get(0), 1e-9)

	suite.EqualValues(3, conf.Defense.Blocklist.DownloadConcurrency.Get(0))
	suite.Equal(
		[]string{"https://iplists.firehol.org/files/firehol_level1.netset"},
		conf.Defense.Blocklist.RemoteURLs())
	suite.Empty(conf.Defense.Blocklist.LocalFiles())
	suite.Equal(12*time.Hour, conf.Defense.Blocklist.UpdateEach.Get(0))

	suite.InDelta(0.5, conf.Defense.RateLimit.PerSecond.Get(0), 1e-9)
	suite.EqualValues(4, conf.Defense.RateLimit.Burst.Get(0))
	suite.Equal([]string{"45.0.0.0/8"}, conf.Defense.Probe.ProberNetworks)

	suite.Equal(shroudlib.BrowserFirefox, conf.Evasion.BrowserProfile.Get(shroudlib.BrowserRandom))
	suite.Equal(30*time.Second, conf.Evasion.AdaptationInterval.Get(0))
	suite.Equal(shroudlib.ConditionHeavyDPI, *conf.Evasion.ForceCondition.Get())
	suite.EqualValues(42, conf.Evasion.Seed)

	fragment := conf.Evasion.Fragment
	suite.False(fragment.Enabled.Get(true))
	suite.False(fragment.FallbackOnReset.Get(true))
	suite.Equal(shroudlib.FragmentSNISplit, fragment.Strategy.Get(shroudlib.FragmentThreePart))

	minValue, maxValue := fragment.Length.Get(100, 200)
	suite.Equal(50, minValue)
	suite.Equal(80, maxValue)

	minValue, maxValue = fragment.Interval.Get(10, 50)
	suite.Equal(5, minValue)
	suite.Equal(15, maxValue)

	suite.Equal("1.1.1.1:53", conf.Evasion.Detection.DNSAddress.Get(""))
	suite.True(conf.Evasion.Detection.TLSCheck.Get(false))

	suite.Equal("/ws", conf.Protocol.CDNPath.Get(""))
	suite.EqualValues(200, conf.Protocol.HysteriaDownMbps.Get(0))

	suite.Equal(net.ParseIP("1.1.1.1"), conf.Network.DOHIP.Get(nil))
	suite.Equal(config.DNSModePlain, conf.Network.DNSMode.Get(config.DNSModeDoH))
	suite.Len(conf.Network.Proxies, 1)
	suite.Equal("127.0.0.1:1080", conf.Network.Proxies[0].Get(nil).Host)

	suite.Equal("datadog", conf.Stats.StatsD.TagFormat.Get(""))
	suite.Equal("/metrics", conf.Stats.Prometheus.HTTPPath.Get(""))
}

func (suite *ConfigTestSuite) TestStringMasksSecrets() {
	conf, err := config.Parse(suite.ReadConfig("full.toml"))
	suite.NoError(err)

	text := conf.String()

	suite.NotContains(text, "public-key-value")
	suite.NotContains(text, "abcdef")
	suite.NotContains(text, "password")
	suite.Contains(text, "www.apple.com")
	suite.Equal("public-key-value", conf.Protocol.RealityPublicKey)
}

func (suite *ConfigTestSuite) TestValidate() {
	conf, err := config.Parse(suite.ReadConfig("minimal.toml"))
	suite.NoError(err)

	conf.Defense.Probe.ProberNetworks = []string{"not-a-cidr"}
	suite.Error(conf.Validate())

	conf.Defense.Probe.ProberNetworks = nil
	conf.LogFormat = "xml"
	suite.ErrorContains(conf.Validate(), "log format")

	conf.LogFormat = ""
	suite.NoError(conf.Stats.Prometheus.Enabled.Set("yes"))
	suite.ErrorContains(conf.Validate(), "prometheus")

	suite.NoError(conf.Stats.Prometheus.BindTo.Set("127.0.0.1:3129"))
	suite.NoError(conf.Validate())

	suite.NoError(conf.Defense.Blocklist.Enabled.Set("true"))
	suite.ErrorContains(conf.Validate(), "blocklist")
}

func TestConfig(t *testing.T) {
	t.Parallel()
	suite.Run(t, &ConfigTestSuite{})
}
