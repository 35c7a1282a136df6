package shroudlib

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/akab00m/shroud/essentials"
	"github.com/akab00m/shroud/shroudlib/internal/fragment"
	"github.com/akab00m/shroud/shroudlib/internal/probe"
	"github.com/akab00m/shroud/shroudlib/internal/relay"
	"github.com/akab00m/shroud/shroudlib/internal/tlshello"
	"github.com/panjf2000/ants/v2"
)

// Gateway hides a backend from active probes. It reads first bytes of
// each client, asks a probe defender about them and either relays a
// client to a backend or answers with a decoy: an nginx welcome page for
// HTTP probes and a TLS handshake_failure alert for everything else.
type Gateway struct {
	ctx             context.Context
	ctxCancel       context.CancelFunc
	streamWaitGroup sync.WaitGroup

	orchestrator     *Orchestrator
	backendAddress   string
	handshakeTimeout time.Duration
	idleTimeout      time.Duration
	initialBytesLen  int
	workerPool       *ants.PoolWithFunc
	rateLimiter      *RateLimiter

	network         Network
	antiReplayCache AntiReplayCache
	blocklist       IPBlocklist
	eventStream     EventStream
	logger          Logger
}

// ServeConn serves a connection. We do not check IP blocklist and
// concurrency limit here.
func (g *Gateway) ServeConn(conn essentials.Conn) {
	g.streamWaitGroup.Add(1)
	defer g.streamWaitGroup.Done()

	if g.rateLimiter != nil && !g.rateLimiter.Allow(remoteIP(conn.RemoteAddr())) {
		g.logger.BindStr("ip", hashIP(remoteIP(conn.RemoteAddr()))).Warning("rate limited")
		g.eventStream.Send(g.ctx, NewEventConcurrencyLimited())
		conn.Close()

		return
	}

	ctx, err := newStreamContext(g.ctx, g.logger, conn)
	if err != nil {
		g.logger.WarningError("cannot create stream context", err)
		conn.Close()

		return
	}
	defer ctx.Close()

	go func() {
		<-ctx.Done()
		ctx.Close()
	}()

	g.eventStream.Send(ctx, NewEventStart(ctx.streamID, ctx.ClientIP()))
	ctx.logger.Debug("stream has been started")

	defer func() {
		g.eventStream.Send(ctx, NewEventFinish(ctx.streamID))
		ctx.logger.Debug("stream has been finished")
	}()

	// Deadline сбрасывается явно после чтения первых байт, не через
	// defer: иначе он убьёт relay.
	conn.SetDeadline(time.Now().Add(g.handshakeTimeout)) //nolint: errcheck

	rewind := newConnRewind(conn)

	initial, err := g.readInitial(rewind)
	if err != nil {
		ctx.logger.InfoError("cannot read first bytes", err)

		return
	}

	if probeType, ok := g.detectProbe(ctx, initial); ok {
		g.doDecoy(ctx, probeType)

		return
	}

	conn.SetDeadline(time.Time{}) //nolint: errcheck
	rewind.Rewind()

	if err := g.doBackendCall(ctx); err != nil {
		ctx.logger.WarningError("cannot dial to backend", err)

		return
	}

	go ctx.watchIdle(g.idleTimeout)

	relay.Relay(
		ctx,
		ctx.logger.Named("relay"),
		ctx.backendConn,
		rewind,
	)
}

// readInitial collects the first record of a client even if it comes in
// several segments. It stops on a deadline with what has arrived so far.
func (g *Gateway) readInitial(r io.Reader) ([]byte, error) {
	buf := make([]byte, g.initialBytesLen)
	total := 0

	for total < initialBytesWanted(buf[:total], len(buf)) {
		n, err := r.Read(buf[total:])
		total += n

		if err != nil {
			if total == 0 {
				return nil, err //nolint: wrapcheck
			}

			break
		}
	}

	return buf[:total], nil
}

// initialBytesWanted is a whole TLS record for TLS clients and at least
// a few bytes for anything else, never more than limit.
func initialBytesWanted(data []byte, limit int) int {
	wanted := probe.ShortPayloadLen

	if len(data) > 0 && data[0] == tlshello.RecordTypeHandshake {
		wanted = tlshello.RecordHeaderLen

		if len(data) >= tlshello.RecordHeaderLen {
			wanted += int(binary.BigEndian.Uint16(data[3:tlshello.RecordHeaderLen]))
		}
	}

	return min(wanted, limit)
}

func (g *Gateway) detectProbe(ctx *streamContext, initial []byte) (ProbeType, bool) {
	if isProbe, probeType := g.orchestrator.AnalyzeProbe(ctx.ClientIP().String(), initial); isProbe {
		return probeType, true
	}

	if random, ok := tlshello.Random(initial); ok && g.antiReplayCache.SeenBefore(random) {
		ctx.logger.Warning("replay attack has been detected!")
		g.eventStream.Send(g.ctx, NewEventReplayAttack(ctx.streamID))

		return ProbeReplay, true
	}

	return ProbeNone, false
}

func (g *Gateway) doDecoy(ctx *streamContext, probeType ProbeType) {
	ctx.logger.BindStr("probe", probeType.String()).Info("active probe has been detected")
	g.eventStream.Send(g.ctx, NewEventProbeDetected(ctx.streamID, ctx.ClientIP(), probeType))

	// a read could have already used up the handshake deadline.
	ctx.clientConn.SetWriteDeadline(time.Now().Add(g.handshakeTimeout)) //nolint: errcheck

	if _, err := ctx.clientConn.Write(g.orchestrator.FallbackResponse(probeType)); err != nil {
		if fragment.IsResetError(err) {
			ctx.logger.DebugError("prober has gone", err)
		} else {
			ctx.logger.InfoError("cannot send decoy response", err)
		}
	}
}

func (g *Gateway) doBackendCall(ctx *streamContext) error {
	conn, err := g.network.DialContext(ctx, "tcp", g.backendAddress)
	if err != nil {
		return fmt.Errorf("cannot dial to %s: %w", g.backendAddress, err)
	}

	ctx.backendConn = newConnTraffic(ctx, conn, ctx.streamID,
		g.eventStream, g.orchestrator, &ctx.activity)

	g.eventStream.Send(ctx,
		NewEventConnectedToBackend(ctx.streamID, remoteIP(conn.RemoteAddr())))

	return nil
}

// Serve starts a gateway on a given listener.
func (g *Gateway) Serve(listener net.Listener) error {
	g.streamWaitGroup.Add(1)
	defer g.streamWaitGroup.Done()

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-g.ctx.Done():
				return nil
			default:
				return fmt.Errorf("cannot accept a new connection: %w", err)
			}
		}

		ipAddr := remoteIP(conn.RemoteAddr())
		logger := g.logger.BindStr("ip", hashIP(ipAddr))

		if g.blocklist.Contains(ipAddr) {
			conn.Close()
			logger.Info("ip was blacklisted")
			g.eventStream.Send(g.ctx, NewEventIPBlocklisted(ipAddr))

			continue
		}

		err = g.workerPool.Invoke(conn)

		switch {
		case err == nil:
		case errors.Is(err, ants.ErrPoolClosed):
			conn.Close()

			return nil
		case errors.Is(err, ants.ErrPoolOverload):
			conn.Close()
			logger.Info("connection was concurrency limited")
			g.eventStream.Send(g.ctx, NewEventConcurrencyLimited())
		}
	}
}

// Shutdown 'gracefully' shutdowns all connections. Please remember that
// it does not close an underlying listener.
func (g *Gateway) Shutdown() {
	g.ctxCancel()
	g.streamWaitGroup.Wait()
	g.workerPool.Release()

	g.blocklist.Shutdown()

	if g.rateLimiter != nil {
		g.rateLimiter.Stop()
	}
}

// NewGateway makes a new gateway instance.
func NewGateway(opts GatewayOpts) (*Gateway, error) {
	if err := opts.valid(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	gateway := &Gateway{
		ctx:              ctx,
		ctxCancel:        cancel,
		orchestrator:     opts.Orchestrator,
		backendAddress:   opts.BackendAddress,
		handshakeTimeout: opts.getHandshakeTimeout(),
		idleTimeout:      opts.getIdleTimeout(),
		initialBytesLen:  opts.getInitialBytesLen(),
		network:          opts.Network,
		antiReplayCache:  opts.AntiReplayCache,
		blocklist:        opts.IPBlocklist,
		eventStream:      opts.EventStream,
		logger:           opts.getLogger("gateway"),
	}

	if limit := opts.getRateLimitPerSecond(); limit > 0 {
		gateway.rateLimiter = NewRateLimiter(limit, opts.getRateLimitBurst(), time.Minute)
	}

	pool, err := ants.NewPoolWithFunc(opts.getConcurrency(),
		func(arg interface{}) {
			gateway.ServeConn(arg.(essentials.Conn)) //nolint: forcetypeassert
		},
		ants.WithLogger(opts.getLogger("ants")),
		ants.WithNonblocking(true))
	if err != nil {
		cancel()

		return nil, fmt.Errorf("cannot create worker pool: %w", err)
	}

	gateway.workerPool = pool

	return gateway, nil
}
