package shroudlib

import (
	"context"
	"net"
	"time"

	"github.com/akab00m/shroud/shroudlib/internal/fingerprint"
	"github.com/akab00m/shroud/shroudlib/internal/fragment"
	"github.com/akab00m/shroud/shroudlib/internal/netcond"
	"github.com/akab00m/shroud/shroudlib/internal/probe"
)

// ConditionDetector measures a network and returns raw probe results.
// The default implementation runs TCP, UDP DNS and (optionally) uTLS
// probes concurrently.
type ConditionDetector interface {
	Detect(ctx context.Context) DetectionResult
}

// IPMatcher is something which can tell if an IP belongs to a set. Any
// IPBlocklist is an IPMatcher.
type IPMatcher interface {
	Contains(net.IP) bool
}

// ProtocolOpts are values which go into protocol parameters built for
// an external proxy engine.
type ProtocolOpts struct {
	// ServerName is SNI for TLS and REALITY.
	ServerName string

	// RealityPublicKey and RealityShortID identify a REALITY server.
	RealityPublicKey string
	RealityShortID   string

	// CDNHost is a Host header of CDN-fronted transports.
	CDNHost string

	// CDNPath is a path of websocket and SplitHTTP transports.
	CDNPath string

	// GRPCServiceName is a service name of a gRPC transport.
	GRPCServiceName string

	// HysteriaUpMbps and HysteriaDownMbps are bandwidth hints of
	// brutal congestion control.
	HysteriaUpMbps   int
	HysteriaDownMbps int

	// TUICCongestion is a congestion control algorithm of TUIC.
	TUICCongestion string
}

func (p ProtocolOpts) getServerName() string {
	if p.ServerName == "" {
		return DefaultServerName
	}

	return p.ServerName
}

// OrchestratorOpts is a structure with settings of the orchestrator.
//
// This is not required per se, but this is to shorten function signature
// and give an ability to conveniently provide default values.
type OrchestratorOpts struct {
	// Logger defines an instance of the logger.
	//
	// This is a mandatory setting.
	Logger Logger

	// EventStream defines an instance of event stream.
	//
	// This is a mandatory setting.
	EventStream EventStream

	// Network is used by detection probes and by DialTLS.
	//
	// This is an optional setting. Without it DialTLS does not work and
	// detection uses plain system dialer.
	Network Network

	// BrowserProfile pins fingerprints to a single browser. Random
	// means weighted draw with rotation.
	//
	// This is an optional setting.
	BrowserProfile BrowserProfile

	// FingerprintRotation defines how long the same fingerprint is used.
	//
	// This is an optional setting. Default: 120 seconds.
	FingerprintRotation time.Duration

	// FragmentConfig defines how ClientHello is fragmented.
	//
	// This is an optional setting. Default is DefaultFragmentConfig().
	FragmentConfig *FragmentConfig

	// ProberNetworks is a list of CIDRs of known active probers.
	//
	// This is an optional setting.
	ProberNetworks []string

	// ProbeMatcher is an additional source of known probers, usually
	// an IP blocklist.
	//
	// This is an optional setting.
	ProbeMatcher IPMatcher

	// FallbackPage is a body of a decoy HTTP response.
	//
	// This is an optional setting.
	FallbackPage []byte

	// ShadowsocksEntropy and ShadowsocksLengths tune Shadowsocks probe
	// detection.
	//
	// These are optional settings.
	ShadowsocksEntropy float64
	ShadowsocksLengths []int

	// BurstConnections is a count of connections per minute from the
	// same IP which is considered as probing.
	//
	// This is an optional setting. Default: 10.
	BurstConnections int

	// CDNAddress, SiteAddress and DNSAddress are targets of detection
	// probes.
	//
	// These are optional settings.
	CDNAddress  string
	SiteAddress string
	DNSAddress  string

	// TLSCheck enables uTLS handshake probe which detects TLSBlocked
	// condition.
	//
	// This is an optional setting.
	TLSCheck      bool
	TLSServerName string

	// ProbeTimeout is a timeout of a single detection probe.
	//
	// This is an optional setting. Default: 1.5 seconds.
	ProbeTimeout time.Duration

	// DetectionTimeout is a budget for whole detection.
	//
	// This is an optional setting. Default: 3 seconds.
	DetectionTimeout time.Duration

	// ISPTable is a table of known ISP prefixes.
	//
	// This is an optional setting.
	ISPTable []ISP

	// Detector replaces default network condition detector.
	//
	// This is an optional setting.
	Detector ConditionDetector

	// AdaptationInterval is a period of re-detection and score decay.
	//
	// This is an optional setting. Default: 1 minute.
	AdaptationInterval time.Duration

	// ForceCondition disables detection results and pins a network
	// condition.
	//
	// This is an optional setting.
	ForceCondition *NetworkCondition

	// Protocol defines values of protocol parameters.
	//
	// This is an optional setting.
	Protocol ProtocolOpts

	// TLSInsecureSkipVerify disables certificate verification in DialTLS.
	//
	// This is an optional setting.
	TLSInsecureSkipVerify bool

	// Seed fixes randomness of fingerprints and fragments.
	//
	// This is an optional setting.
	Seed int64
}

func (o OrchestratorOpts) valid() error {
	switch {
	case o.EventStream == nil:
		return ErrEventStreamIsNotDefined
	case o.Logger == nil:
		return ErrLoggerIsNotDefined
	}

	return nil
}

func (o OrchestratorOpts) getLogger(name string) Logger {
	return o.Logger.Named(name)
}

func (o OrchestratorOpts) getFragmentConfig() FragmentConfig {
	if o.FragmentConfig == nil {
		return fragment.DefaultConfig()
	}

	return *o.FragmentConfig
}

func (o OrchestratorOpts) getDetectionTimeout() time.Duration {
	if o.DetectionTimeout == 0 {
		return DefaultDetectionTimeout
	}

	return o.DetectionTimeout
}

func (o OrchestratorOpts) getProbeTimeout() time.Duration {
	if o.ProbeTimeout == 0 {
		return DefaultProbeTimeout
	}

	return o.ProbeTimeout
}

func (o OrchestratorOpts) getAdaptationInterval() time.Duration {
	if o.AdaptationInterval == 0 {
		return DefaultAdaptationInterval
	}

	return o.AdaptationInterval
}

func (o OrchestratorOpts) fingerprintOpts() fingerprint.Opts {
	return fingerprint.Opts{
		RotationInterval: o.FingerprintRotation,
		Seed:             o.Seed,
	}
}

func (o OrchestratorOpts) probeOpts() probe.Opts {
	return probe.Opts{
		ProberNetworks:     o.ProberNetworks,
		Matcher:            o.ProbeMatcher,
		FallbackPage:       o.FallbackPage,
		ShadowsocksEntropy: o.ShadowsocksEntropy,
		ShadowsocksLengths: o.ShadowsocksLengths,
		BurstConnections:   o.BurstConnections,
	}
}

func (o OrchestratorOpts) getDetector() (ConditionDetector, error) {
	if o.Detector != nil {
		return o.Detector, nil
	}

	opts := netcond.Opts{
		CDNAddress:     o.CDNAddress,
		SiteAddress:    o.SiteAddress,
		DNSAddress:     o.DNSAddress,
		TLSCheck:       o.TLSCheck,
		TLSServerName:  o.TLSServerName,
		ProbeTimeout:   o.getProbeTimeout(),
		DetectionLimit: o.getDetectionTimeout(),
		ISPTable:       o.ISPTable,
	}

	if o.TLSCheck && o.BrowserProfile != BrowserRandom {
		helloID := fingerprint.HelloID(o.BrowserProfile)
		opts.TLSHelloID = &helloID
	}

	if o.Network != nil {
		network := o.Network
		opts.Dial = func(ctx context.Context, proto, address string) (net.Conn, error) {
			conn, err := network.DialContext(ctx, proto, address)
			if err != nil {
				return nil, err //nolint: wrapcheck
			}

			return conn, nil
		}
	}

	detector, err := netcond.NewDetector(opts)
	if err != nil {
		return nil, err //nolint: wrapcheck
	}

	return detector, nil
}
