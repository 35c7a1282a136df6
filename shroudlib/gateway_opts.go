package shroudlib

import (
	"time"

	"golang.org/x/time/rate"
)

// GatewayOpts is a structure with settings of a gateway.
type GatewayOpts struct {
	// Orchestrator analyzes first bytes of connections and provides decoy
	// responses.
	//
	// This is a mandatory setting.
	Orchestrator *Orchestrator

	// Network is used to connect to a backend.
	//
	// This is a mandatory setting.
	Network Network

	// BackendAddress is a host:port of a service which serves legitimate
	// clients.
	//
	// This is a mandatory setting.
	BackendAddress string

	// AntiReplayCache defines an instance of antireplay cache.
	//
	// This is a mandatory setting.
	AntiReplayCache AntiReplayCache

	// IPBlocklist defines an instance of IP blocklist.
	//
	// This is a mandatory setting.
	IPBlocklist IPBlocklist

	// EventStream defines an instance of event stream.
	//
	// This is a mandatory setting.
	EventStream EventStream

	// Logger defines an instance of the logger.
	//
	// This is a mandatory setting.
	Logger Logger

	// Concurrency is a size of the worker pool for connection management.
	// If we have more connections than this number, they are going to be
	// rejected.
	//
	// This is an optional setting.
	Concurrency uint

	// HandshakeTimeout is a time a client has to send first bytes.
	//
	// This is an optional setting.
	HandshakeTimeout time.Duration

	// IdleTimeout is a timeout for relay when we have to break a stream
	// because nothing is transmitted.
	//
	// This is an optional setting.
	IdleTimeout time.Duration

	// InitialBytesLen is a size of a buffer for first bytes of a client.
	//
	// This is an optional setting.
	InitialBytesLen uint

	// RateLimitPerSecond defines the maximum number of new connections per
	// second per IP. 0 disables rate limiting.
	//
	// This is an optional setting.
	RateLimitPerSecond float64

	// RateLimitBurst defines the maximum burst size for rate limiting.
	//
	// This is an optional setting. Default: 20
	RateLimitBurst int
}

func (g GatewayOpts) valid() error {
	switch {
	case g.Orchestrator == nil:
		return ErrOrchestratorIsNotDefined
	case g.Network == nil:
		return ErrNetworkIsNotDefined
	case g.BackendAddress == "":
		return ErrBackendAddressIsNotDefined
	case g.AntiReplayCache == nil:
		return ErrAntiReplayCacheIsNotDefined
	case g.IPBlocklist == nil:
		return ErrIPBlocklistIsNotDefined
	case g.EventStream == nil:
		return ErrEventStreamIsNotDefined
	case g.Logger == nil:
		return ErrLoggerIsNotDefined
	}

	return nil
}

func (g GatewayOpts) getConcurrency() int {
	if g.Concurrency == 0 {
		return DefaultConcurrency
	}

	return int(g.Concurrency)
}

func (g GatewayOpts) getHandshakeTimeout() time.Duration {
	if g.HandshakeTimeout == 0 {
		return DefaultHandshakeTimeout
	}

	return g.HandshakeTimeout
}

func (g GatewayOpts) getIdleTimeout() time.Duration {
	if g.IdleTimeout == 0 {
		return DefaultIdleTimeout
	}

	return g.IdleTimeout
}

func (g GatewayOpts) getInitialBytesLen() int {
	if g.InitialBytesLen == 0 {
		return DefaultInitialBytesLen
	}

	return int(g.InitialBytesLen)
}

func (g GatewayOpts) getRateLimitPerSecond() rate.Limit {
	return rate.Limit(g.RateLimitPerSecond)
}

func (g GatewayOpts) getRateLimitBurst() int {
	if g.RateLimitBurst == 0 {
		return 20
	}

	return g.RateLimitBurst
}

func (g GatewayOpts) getLogger(name string) Logger {
	return g.Logger.Named(name)
}
