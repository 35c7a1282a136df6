// Package shroudlib is a core of the DPI evasion engine.
//
// It consists of a set of components: a TLS fingerprint generator which
// mimics real browsers, a ClientHello fragmentation engine, an
// active-probe defender, a traffic entropy normalizer and an
// orchestrator which detects network conditions and picks an evasion
// strategy. Orchestrator is the entry point, it owns all the components
// and exposes them to a caller.
//
// There is also Gateway, a server which uses the probe defender to hide a
// backend from active probes of a censor, and Orchestrator.DialTLS, an
// evasive client dialer.
//
// All dependencies of the library are defined by interfaces: Network,
// EventStream, Logger, AntiReplayCache, IPBlocklist. Default
// implementations live in top-level packages of this repository.
package shroudlib

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/akab00m/shroud/essentials"
)

var (
	// ErrNetworkIsNotDefined is returned if Network is not defined in
	// options.
	ErrNetworkIsNotDefined = errors.New("network is not defined")

	// ErrAntiReplayCacheIsNotDefined is returned if AntiReplayCache is not
	// defined in options.
	ErrAntiReplayCacheIsNotDefined = errors.New("anti-replay cache is not defined")

	// ErrIPBlocklistIsNotDefined is returned if IPBlocklist is not defined
	// in options.
	ErrIPBlocklistIsNotDefined = errors.New("ip blocklist is not defined")

	// ErrEventStreamIsNotDefined is returned if EventStream is not defined
	// in options.
	ErrEventStreamIsNotDefined = errors.New("event stream is not defined")

	// ErrLoggerIsNotDefined is returned if Logger is not defined in
	// options.
	ErrLoggerIsNotDefined = errors.New("logger is not defined")

	// ErrOrchestratorIsNotDefined is returned if Orchestrator is not
	// defined in gateway options.
	ErrOrchestratorIsNotDefined = errors.New("orchestrator is not defined")

	// ErrBackendAddressIsNotDefined is returned if a gateway has nowhere
	// to relay legitimate clients.
	ErrBackendAddressIsNotDefined = errors.New("backend address is not defined")
)

const (
	// DefaultConcurrency is a default max count of simultaneously
	// connected clients of a gateway.
	DefaultConcurrency = 4096

	// DefaultHandshakeTimeout is a time a client has to send first bytes.
	DefaultHandshakeTimeout = 10 * time.Second

	// DefaultIdleTimeout is a default timeout for closing a connection
	// in case of idling.
	DefaultIdleTimeout = time.Minute

	// DefaultInitialBytesLen is how many bytes a gateway reads before it
	// makes a decision about a connection.
	DefaultInitialBytesLen = 1024

	// DefaultAdaptationInterval is a period of the adaptation loop.
	DefaultAdaptationInterval = time.Minute

	// DefaultDetectionTimeout is a budget for network condition detection.
	DefaultDetectionTimeout = 3 * time.Second

	// DefaultProbeTimeout is a timeout of a single detection probe.
	DefaultProbeTimeout = 1500 * time.Millisecond

	// DefaultServerName is SNI which is used for connection parameters if
	// nothing else is configured.
	DefaultServerName = "www.microsoft.com"
)

// Network defines a knowledge how to work with a network. It may sound
// fun but it encapsulates all the knowledge how to properly establish
// connections to remote hosts and configure HTTP clients.
type Network interface {
	// Dial establishes context-free TCP connections.
	Dial(network, address string) (essentials.Conn, error)

	// DialContext dials using a context. This is a preferable way of
	// establishing TCP connections.
	DialContext(ctx context.Context, network, address string) (essentials.Conn, error)

	// MakeHTTPClient builds an HTTP client with a given dial function. If
	// nothing is provided, then DialContext of this interface is going to
	// be used.
	MakeHTTPClient(func(ctx context.Context, network, address string) (essentials.Conn, error)) *http.Client
}

// AntiReplayCache is an interface that is used to detect replay attacks
// based on some traffic fingerprints.
//
// Active probers record a ClientHello of a legitimate client and replay it
// to see if a server answers the same way. A random of every ClientHello
// a gateway sees goes through this cache.
type AntiReplayCache interface {
	// SeenBefore returns true if a given data was seen before.
	SeenBefore(data []byte) bool
}

// IPBlocklist filters requests based on IP address.
//
// If a gateway finds an address in a blocklist, it closes a connection
// right after it was accepted. The same list is used by the probe
// defender as a list of known probers.
type IPBlocklist interface {
	// Contains checks if a given IP address belongs to this blocklist.
	Contains(net.IP) bool

	// Run starts a background update process.
	Run(updateEach time.Duration)

	// Shutdown stops a blocklist. It is assumed that none will access it
	// after.
	Shutdown()
}

// Event is a data structure which is populated during work of the engine.
//
// There are events of 2 kinds: bound to a stream of a gateway (they have a
// non-empty StreamID) and engine-wide ones like detected network
// conditions or strategy changes.
type Event interface {
	// StreamID returns an identifier of the stream this event belongs
	// to. Engine-wide events have an empty stream id.
	StreamID() string

	// Timestamp returns a timestamp when this event was generated.
	Timestamp() time.Time
}

// EventStream is an abstraction that accepts a set of events produced by
// the engine and routes them to the set of observers.
type EventStream interface {
	// Send delivers an event to observers. Given context has to be
	// respected. If the context is closed, all blocking operations should
	// be released ASAP.
	Send(ctx context.Context, evt Event)
}

// Logger defines an interface of the logger used by the library.
type Logger interface {
	Named(name string) Logger

	BindInt(name string, value int) Logger
	BindStr(name, value string) Logger
	BindJSON(name, value string) Logger

	Printf(format string, args ...interface{})
	Info(msg string)
	InfoError(msg string, err error)
	Warning(msg string)
	WarningError(msg string, err error)
	Debug(msg string)
	DebugError(msg string, err error)
}
