package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"strings"
)

const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

type Optional struct {
	Enabled TypeBool `json:"enabled"`
}

type ListConfig struct {
	Optional

	DownloadConcurrency TypeConcurrency    `json:"downloadConcurrency"`
	URLs                []TypeBlocklistURI `json:"urls"`
	UpdateEach          TypeDuration       `json:"updateEach"`
}

// LocalFiles and RemoteURLs split list sources by their kind.
func (l ListConfig) LocalFiles() []string {
	rv := []string{}

	for _, v := range l.URLs {
		if !v.IsRemote() {
			rv = append(rv, v.Get(""))
		}
	}

	return rv
}

func (l ListConfig) RemoteURLs() []string {
	rv := []string{}

	for _, v := range l.URLs {
		if v.IsRemote() {
			rv = append(rv, v.Get(""))
		}
	}

	return rv
}

type Config struct {
	Debug       TypeBool        `json:"debug"`
	LogFormat   string          `json:"logFormat"`
	BindTo      TypeHostPort    `json:"bindTo"`
	Backend     TypeHostPort    `json:"backend"`
	Concurrency TypeConcurrency `json:"concurrency"`
	Timeouts    struct {
		Handshake TypeDuration `json:"handshake"`
		Idle      TypeDuration `json:"idle"`
		TCP       TypeDuration `json:"tcp"`
		HTTP      TypeDuration `json:"http"`
	} `json:"timeouts"`
	Defense struct {
		AntiReplay struct {
			Optional

			MaxSize   TypeBytes     `json:"maxSize"`
			ErrorRate TypeErrorRate `json:"errorRate"`
		} `json:"antiReplay"`
		Blocklist ListConfig `json:"blocklist"`
		RateLimit struct {
			Optional

			PerSecond TypeRateLimit   `json:"perSecond"`
			Burst     TypeConcurrency `json:"burst"`
		} `json:"rateLimit"`
		Probe struct {
			ProberNetworks     []string        `json:"proberNetworks"`
			BurstConnections   TypeConcurrency `json:"burstConnections"`
			ShadowsocksEntropy TypeFloat       `json:"shadowsocksEntropy"`
			FallbackPage       string          `json:"fallbackPage"`
		} `json:"probe"`
	} `json:"defense"`
	Evasion struct {
		BrowserProfile      TypeBrowserProfile `json:"browserProfile"`
		FingerprintRotation TypeDuration       `json:"fingerprintRotation"`
		AdaptationInterval  TypeDuration       `json:"adaptationInterval"`
		ForceCondition      TypeCondition      `json:"forceCondition"`
		Seed                int64              `json:"seed"`
		Fragment            struct {
			Enabled         TypeBool             `json:"enabled"`
			Strategy        TypeFragmentStrategy `json:"strategy"`
			Packets         string               `json:"packets"`
			Length          TypeRange            `json:"length"`
			Interval        TypeRange            `json:"interval"`
			FallbackOnReset TypeBool             `json:"fallbackOnReset"`
		} `json:"fragment"`
		Detection struct {
			Timeout       TypeDuration `json:"timeout"`
			ProbeTimeout  TypeDuration `json:"probeTimeout"`
			CDNAddress    TypeHostPort `json:"cdnAddress"`
			SiteAddress   TypeHostPort `json:"siteAddress"`
			DNSAddress    TypeHostPort `json:"dnsAddress"`
			TLSCheck      TypeBool     `json:"tlsCheck"`
			TLSServerName string       `json:"tlsServerName"`
		} `json:"detection"`
	} `json:"evasion"`
	Protocol struct {
		ServerName       string          `json:"serverName"`
		RealityPublicKey string          `json:"realityPublicKey"`
		RealityShortID   string          `json:"realityShortId"`
		CDNHost          string          `json:"cdnHost"`
		CDNPath          TypeHTTPPath    `json:"cdnPath"`
		GRPCServiceName  string          `json:"grpcServiceName"`
		HysteriaUpMbps   TypeConcurrency `json:"hysteriaUpMbps"`
		HysteriaDownMbps TypeConcurrency `json:"hysteriaDownMbps"`
		TUICCongestion   string          `json:"tuicCongestion"`
	} `json:"protocol"`
	Network struct {
		DOHIP     TypeIP         `json:"dohIp"`
		DNSMode   TypeDNSMode    `json:"dnsMode"`
		UserAgent string         `json:"userAgent"`
		Proxies   []TypeProxyURL `json:"proxies"`
	} `json:"network"`
	Stats struct {
		StatsD struct {
			Optional

			Address      TypeHostPort        `json:"address"`
			MetricPrefix TypeMetricPrefix    `json:"metricPrefix"`
			TagFormat    TypeStatsdTagFormat `json:"tagFormat"`
		} `json:"statsd"`
		Prometheus struct {
			Optional

			BindTo       TypeHostPort     `json:"bindTo"`
			HTTPPath     TypeHTTPPath     `json:"httpPath"`
			MetricPrefix TypeMetricPrefix `json:"metricPrefix"`
		} `json:"prometheus"`
	} `json:"stats"`
}

func (c *Config) Validate() error {
	if c.BindTo.Get("") == "" {
		return fmt.Errorf("incorrect bind-to parameter %s", c.BindTo.String())
	}

	switch c.LogFormat {
	case "", LogFormatJSON, LogFormatConsole:
	default:
		return fmt.Errorf("unknown log format %s", c.LogFormat)
	}

	if c.Backend.Get("") == "" {
		return fmt.Errorf("incorrect backend parameter %s", c.Backend.String())
	}

	for _, value := range c.Defense.Probe.ProberNetworks {
		if _, _, err := net.ParseCIDR(value); err != nil {
			return fmt.Errorf("incorrect prober network %s: %w", value, err)
		}
	}

	if c.Defense.Blocklist.Enabled.Get(false) && len(c.Defense.Blocklist.URLs) == 0 {
		return fmt.Errorf("blocklist is enabled but has no urls")
	}

	if len(c.Network.Proxies) > 1 {
		return fmt.Errorf("only one upstream proxy is supported")
	}

	fragment := c.Evasion.Fragment
	if fragment.Length.IsSet() && fragment.Length.Min == 0 {
		return fmt.Errorf("fragment length should start from 1 byte")
	}

	if c.Stats.Prometheus.Enabled.Get(false) && c.Stats.Prometheus.BindTo.Get("") == "" {
		return fmt.Errorf("prometheus bind-to is required when prometheus is enabled")
	}

	if c.Stats.StatsD.Enabled.Get(false) && c.Stats.StatsD.Address.Get("") == "" {
		return fmt.Errorf("statsd address is required when statsd is enabled")
	}

	return nil
}

func (c *Config) String() string {
	// REALITY keys identify a server, they should not leak into logs.
	safe := *c
	safe.Protocol.RealityPublicKey = maskSecret(safe.Protocol.RealityPublicKey)
	safe.Protocol.RealityShortID = maskSecret(safe.Protocol.RealityShortID)

	buf := &bytes.Buffer{}
	encoder := json.NewEncoder(buf)

	encoder.SetEscapeHTML(false)

	if err := encoder.Encode(safe); err != nil {
		return "{}"
	}

	return strings.TrimSpace(buf.String())
}

func maskSecret(value string) string {
	if value == "" {
		return ""
	}

	return "***"
}
