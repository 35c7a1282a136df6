package config

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/pelletier/go-toml"
)

type tomlConfig struct {
	Debug       bool   `toml:"debug" json:"debug,omitempty"`
	LogFormat   string `toml:"log-format" json:"logFormat,omitempty"`
	BindTo      string `toml:"bind-to" json:"bindTo,omitempty"`
	Backend     string `toml:"backend" json:"backend,omitempty"`
	Concurrency uint   `toml:"concurrency" json:"concurrency,omitempty"`
	Timeouts    struct {
		Handshake string `toml:"handshake" json:"handshake,omitempty"`
		Idle      string `toml:"idle" json:"idle,omitempty"`
		TCP       string `toml:"tcp" json:"tcp,omitempty"`
		HTTP      string `toml:"http" json:"http,omitempty"`
	} `toml:"timeouts" json:"timeouts,omitempty"`
	Defense struct {
		AntiReplay struct {
			Enabled   *bool   `toml:"enabled" json:"enabled,omitempty"`
			MaxSize   string  `toml:"max-size" json:"maxSize,omitempty"`
			ErrorRate float64 `toml:"error-rate" json:"errorRate,omitempty"`
		} `toml:"anti-replay" json:"antiReplay,omitempty"`
		Blocklist struct {
			Enabled             *bool    `toml:"enabled" json:"enabled,omitempty"`
			DownloadConcurrency uint     `toml:"download-concurrency" json:"downloadConcurrency,omitempty"`
			URLs                []string `toml:"urls" json:"urls,omitempty"`
			UpdateEach          string   `toml:"update-each" json:"updateEach,omitempty"`
		} `toml:"blocklist" json:"blocklist,omitempty"`
		RateLimit struct {
			Enabled   *bool   `toml:"enabled" json:"enabled,omitempty"`
			PerSecond float64 `toml:"per-second" json:"perSecond,omitempty"`
			Burst     uint    `toml:"burst" json:"burst,omitempty"`
		} `toml:"rate-limit" json:"rateLimit,omitempty"`
		Probe struct {
			ProberNetworks     []string `toml:"prober-networks" json:"proberNetworks,omitempty"`
			BurstConnections   uint     `toml:"burst-connections" json:"burstConnections,omitempty"`
			ShadowsocksEntropy float64  `toml:"shadowsocks-entropy" json:"shadowsocksEntropy,omitempty"`
			FallbackPage       string   `toml:"fallback-page" json:"fallbackPage,omitempty"`
		} `toml:"probe" json:"probe,omitempty"`
	} `toml:"defense" json:"defense,omitempty"`
	Evasion struct {
		BrowserProfile      string `toml:"browser-profile" json:"browserProfile,omitempty"`
		FingerprintRotation string `toml:"fingerprint-rotation" json:"fingerprintRotation,omitempty"`
		AdaptationInterval  string `toml:"adaptation-interval" json:"adaptationInterval,omitempty"`
		ForceCondition      string `toml:"force-condition" json:"forceCondition,omitempty"`
		Seed                int64  `toml:"seed" json:"seed,omitempty"`
		Fragment            struct {
			Enabled         *bool  `toml:"enabled" json:"enabled,omitempty"`
			Strategy        string `toml:"strategy" json:"strategy,omitempty"`
			Packets         string `toml:"packets" json:"packets,omitempty"`
			Length          string `toml:"length" json:"length,omitempty"`
			Interval        string `toml:"interval" json:"interval,omitempty"`
			FallbackOnReset *bool  `toml:"fallback-on-reset" json:"fallbackOnReset,omitempty"`
		} `toml:"fragment" json:"fragment,omitempty"`
		Detection struct {
			Timeout       string `toml:"timeout" json:"timeout,omitempty"`
			ProbeTimeout  string `toml:"probe-timeout" json:"probeTimeout,omitempty"`
			CDNAddress    string `toml:"cdn-address" json:"cdnAddress,omitempty"`
			SiteAddress   string `toml:"site-address" json:"siteAddress,omitempty"`
			DNSAddress    string `toml:"dns-address" json:"dnsAddress,omitempty"`
			TLSCheck      *bool  `toml:"tls-check" json:"tlsCheck,omitempty"`
			TLSServerName string `toml:"tls-server-name" json:"tlsServerName,omitempty"`
		} `toml:"detection" json:"detection,omitempty"`
	} `toml:"evasion" json:"evasion,omitempty"`
	Protocol struct {
		ServerName       string `toml:"server-name" json:"serverName,omitempty"`
		RealityPublicKey string `toml:"reality-public-key" json:"realityPublicKey,omitempty"`
		RealityShortID   string `toml:"reality-short-id" json:"realityShortId,omitempty"`
		CDNHost          string `toml:"cdn-host" json:"cdnHost,omitempty"`
		CDNPath          string `toml:"cdn-path" json:"cdnPath,omitempty"`
		GRPCServiceName  string `toml:"grpc-service-name" json:"grpcServiceName,omitempty"`
		HysteriaUpMbps   uint   `toml:"hysteria-up-mbps" json:"hysteriaUpMbps,omitempty"`
		HysteriaDownMbps uint   `toml:"hysteria-down-mbps" json:"hysteriaDownMbps,omitempty"`
		TUICCongestion   string `toml:"tuic-congestion" json:"tuicCongestion,omitempty"`
	} `toml:"protocol" json:"protocol,omitempty"`
	Network struct {
		DOHIP     string   `toml:"doh-ip" json:"dohIp,omitempty"`
		DNSMode   string   `toml:"dns-mode" json:"dnsMode,omitempty"`
		UserAgent string   `toml:"user-agent" json:"userAgent,omitempty"`
		Proxies   []string `toml:"proxies" json:"proxies,omitempty"`
	} `toml:"network" json:"network,omitempty"`
	Stats struct {
		StatsD struct {
			Enabled      *bool  `toml:"enabled" json:"enabled,omitempty"`
			Address      string `toml:"address" json:"address,omitempty"`
			MetricPrefix string `toml:"metric-prefix" json:"metricPrefix,omitempty"`
			TagFormat    string `toml:"tag-format" json:"tagFormat,omitempty"`
		} `toml:"statsd" json:"statsd,omitempty"`
		Prometheus struct {
			Enabled      *bool  `toml:"enabled" json:"enabled,omitempty"`
			BindTo       string `toml:"bind-to" json:"bindTo,omitempty"`
			HTTPPath     string `toml:"http-path" json:"httpPath,omitempty"`
			MetricPrefix string `toml:"metric-prefix" json:"metricPrefix,omitempty"`
		} `toml:"prometheus" json:"prometheus,omitempty"`
	} `toml:"stats" json:"stats,omitempty"`
}

// Parse reads TOML, checks every value with Type* wrappers and validates
// the result.
func Parse(rawData []byte) (*Config, error) {
	tomlConf := &tomlConfig{}
	if err := toml.Unmarshal(rawData, tomlConf); err != nil {
		return nil, fmt.Errorf("cannot parse toml config: %w", err)
	}

	jsonBuf := &bytes.Buffer{}
	if err := json.NewEncoder(jsonBuf).Encode(tomlConf); err != nil {
		panic(err)
	}

	conf := &Config{}
	if err := json.NewDecoder(jsonBuf).Decode(conf); err != nil {
		return nil, fmt.Errorf("cannot parse a config: %w", err)
	}

	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("cannot validate a config: %w", err)
	}

	return conf, nil
}
