package cli

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/akab00m/shroud/antireplay"
	"github.com/akab00m/shroud/events"
	"github.com/akab00m/shroud/internal/config"
	"github.com/akab00m/shroud/internal/utils"
	"github.com/akab00m/shroud/ipblocklist"
	"github.com/akab00m/shroud/logger"
	"github.com/akab00m/shroud/network"
	"github.com/akab00m/shroud/shroudlib"
	"github.com/akab00m/shroud/stats"
	"github.com/rs/zerolog"
)

func makeLogger(conf *config.Config) shroudlib.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	zerolog.TimestampFieldName = "timestamp"
	zerolog.LevelFieldName = "level"

	var output io.Writer = os.Stdout

	if conf.LogFormat == config.LogFormatConsole {
		output = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	baseLogger := zerolog.New(output).
		With().
		Timestamp().
		Logger().
		Level(zerolog.WarnLevel)

	if conf.Debug.Get(false) {
		baseLogger = baseLogger.Level(zerolog.DebugLevel)
	}

	return logger.NewZeroLogger(baseLogger)
}

func makeNetwork(conf *config.Config, version string) (*network.Network, error) {
	tcpTimeout := conf.Timeouts.TCP.Get(network.DefaultTimeout)
	httpTimeout := conf.Timeouts.HTTP.Get(network.DefaultHTTPTimeout)
	dohIP := conf.Network.DOHIP.Get(net.ParseIP(network.DefaultDOHHostname)).String()
	usePlainDNS := conf.Network.DNSMode.Get(config.DNSModeDoH) == config.DNSModePlain

	userAgent := conf.Network.UserAgent
	if userAgent == "" {
		userAgent = "shroud/" + version
	}

	baseDialer, err := network.NewDefaultDialer(tcpTimeout)
	if err != nil {
		return nil, fmt.Errorf("cannot build a default dialer: %w", err)
	}

	var dialer network.Dialer = baseDialer

	if len(conf.Network.Proxies) > 0 {
		dialer, err = network.NewProxyDialer(baseDialer, conf.Network.Proxies[0].Get(nil))
		if err != nil {
			return nil, fmt.Errorf("cannot build a proxy dialer: %w", err)
		}
	}

	ntw, err := network.NewNetworkWithDNSMode(dialer, userAgent, dohIP, httpTimeout, usePlainDNS)
	if err != nil {
		return nil, fmt.Errorf("cannot build a network: %w", err)
	}

	return ntw, nil
}

func makeAntiReplayCache(conf *config.Config) shroudlib.AntiReplayCache {
	if !conf.Defense.AntiReplay.Enabled.Get(true) {
		return antireplay.NewNoop()
	}

	return antireplay.NewStableBloomFilter(
		conf.Defense.AntiReplay.MaxSize.Get(antireplay.DefaultStableBloomFilterMaxSize),
		conf.Defense.AntiReplay.ErrorRate.Get(antireplay.DefaultStableBloomFilterErrorRate),
	)
}

func makeIPBlocklist(conf *config.Config,
	logger shroudlib.Logger,
	ntw shroudlib.Network,
	updateCallback ipblocklist.FireholUpdateCallback,
) (shroudlib.IPBlocklist, error) {
	if !conf.Defense.Blocklist.Enabled.Get(false) {
		return ipblocklist.NewNoop(), nil
	}

	blocklist, err := ipblocklist.NewFirehol(logger.Named("blocklist"),
		ntw,
		conf.Defense.Blocklist.DownloadConcurrency.Get(ipblocklist.DefaultFireholDownloadConcurrency),
		conf.Defense.Blocklist.RemoteURLs(),
		conf.Defense.Blocklist.LocalFiles(),
		updateCallback)
	if err != nil {
		return nil, fmt.Errorf("incorrect parameters for firehol: %w", err)
	}

	go blocklist.Run(conf.Defense.Blocklist.UpdateEach.Get(ipblocklist.DefaultFireholUpdateEach))

	return blocklist, nil
}

type closer func() error

func makeEventStream(conf *config.Config, logger shroudlib.Logger, version string) (events.EventStream, []closer, error) {
	factories := make([]events.ObserverFactory, 0, 2) //nolint: gomnd
	closers := []closer{}

	if conf.Stats.StatsD.Enabled.Get(false) {
		statsdFactory, err := stats.NewStatsd(
			conf.Stats.StatsD.Address.Get(""),
			logger.Named("statsd"),
			conf.Stats.StatsD.MetricPrefix.Get(stats.DefaultMetricPrefix),
			conf.Stats.StatsD.TagFormat.Get(stats.DefaultStatsdTagFormat))
		if err != nil {
			return events.EventStream{}, nil, fmt.Errorf("cannot build statsd observer: %w", err)
		}

		factories = append(factories, statsdFactory.Make)
		closers = append(closers, statsdFactory.Close)
	}

	if conf.Stats.Prometheus.Enabled.Get(false) {
		prometheus := stats.NewPrometheus(
			conf.Stats.Prometheus.MetricPrefix.Get(stats.DefaultMetricPrefix),
			conf.Stats.Prometheus.HTTPPath.Get("/"),
			version)

		listener, err := utils.NewListener(conf.Stats.Prometheus.BindTo.Get(""))
		if err != nil {
			return events.EventStream{}, nil, fmt.Errorf("cannot start a listener for prometheus: %w", err)
		}

		go prometheus.Serve(listener) //nolint: errcheck

		factories = append(factories, prometheus.Make)
		closers = append(closers, prometheus.Close)
	}

	return events.NewEventStream(factories), closers, nil
}

func makeFragmentConfig(conf *config.Config) shroudlib.FragmentConfig {
	section := conf.Evasion.Fragment
	rv := shroudlib.DefaultFragmentConfig()

	rv.Enabled = section.Enabled.Get(rv.Enabled)
	rv.Strategy = section.Strategy.Get(rv.Strategy)
	rv.FallbackOnReset = section.FallbackOnReset.Get(rv.FallbackOnReset)
	rv.EnginePackets = section.Packets
	rv.MinFragBytes, rv.MaxFragBytes = section.Length.Get(rv.MinFragBytes, rv.MaxFragBytes)

	minDelay, maxDelay := section.Interval.Get(
		int(rv.MinDelay/time.Millisecond),
		int(rv.MaxDelay/time.Millisecond))
	rv.MinDelay = time.Duration(minDelay) * time.Millisecond
	rv.MaxDelay = time.Duration(maxDelay) * time.Millisecond

	return rv
}

func makeOrchestratorOpts(conf *config.Config) (shroudlib.OrchestratorOpts, error) {
	fragmentConfig := makeFragmentConfig(conf)
	evasion := conf.Evasion
	protocol := conf.Protocol

	opts := shroudlib.OrchestratorOpts{
		BrowserProfile:      evasion.BrowserProfile.Get(shroudlib.BrowserRandom),
		FingerprintRotation: evasion.FingerprintRotation.Get(0),
		FragmentConfig:      &fragmentConfig,
		ProberNetworks:      conf.Defense.Probe.ProberNetworks,
		ShadowsocksEntropy:  conf.Defense.Probe.ShadowsocksEntropy.Get(0),
		BurstConnections:    int(conf.Defense.Probe.BurstConnections.Get(0)),
		CDNAddress:          evasion.Detection.CDNAddress.Get(""),
		SiteAddress:         evasion.Detection.SiteAddress.Get(""),
		DNSAddress:          evasion.Detection.DNSAddress.Get(""),
		TLSCheck:            evasion.Detection.TLSCheck.Get(false),
		TLSServerName:       evasion.Detection.TLSServerName,
		ProbeTimeout:        evasion.Detection.ProbeTimeout.Get(0),
		DetectionTimeout:    evasion.Detection.Timeout.Get(0),
		AdaptationInterval:  evasion.AdaptationInterval.Get(0),
		ForceCondition:      evasion.ForceCondition.Get(),
		Seed:                evasion.Seed,
		Protocol: shroudlib.ProtocolOpts{
			ServerName:       protocol.ServerName,
			RealityPublicKey: protocol.RealityPublicKey,
			RealityShortID:   protocol.RealityShortID,
			CDNHost:          protocol.CDNHost,
			CDNPath:          protocol.CDNPath.Get(""),
			GRPCServiceName:  protocol.GRPCServiceName,
			HysteriaUpMbps:   int(protocol.HysteriaUpMbps.Get(0)),
			HysteriaDownMbps: int(protocol.HysteriaDownMbps.Get(0)),
			TUICCongestion:   protocol.TUICCongestion,
		},
	}

	if path := conf.Defense.Probe.FallbackPage; path != "" {
		page, err := os.ReadFile(path)
		if err != nil {
			return opts, fmt.Errorf("cannot read fallback page: %w", err)
		}

		opts.FallbackPage = page
	}

	return opts, nil
}

func runGateway(conf *config.Config, version string) error { //nolint: funlen
	logger := makeLogger(conf)

	logger.BindJSON("configuration", conf.String()).Debug("configuration")

	ntw, err := makeNetwork(conf, version)
	if err != nil {
		return fmt.Errorf("cannot build network: %w", err)
	}

	defer ntw.Stop()

	eventStream, closers, err := makeEventStream(conf, logger, version)
	if err != nil {
		return fmt.Errorf("cannot build event stream: %w", err)
	}

	defer func() {
		eventStream.Shutdown()

		for _, fn := range closers {
			fn() //nolint: errcheck
		}
	}()

	blocklist, err := makeIPBlocklist(conf, logger, ntw, func(ctx context.Context, size int) {
		eventStream.Send(ctx, shroudlib.NewEventIPListSize(size))
	})
	if err != nil {
		return fmt.Errorf("cannot build ip blocklist: %w", err)
	}

	orchestratorOpts, err := makeOrchestratorOpts(conf)
	if err != nil {
		return fmt.Errorf("cannot build orchestrator options: %w", err)
	}

	orchestratorOpts.Logger = logger
	orchestratorOpts.EventStream = eventStream
	orchestratorOpts.Network = ntw
	orchestratorOpts.ProbeMatcher = blocklist

	orchestrator, err := shroudlib.NewOrchestrator(orchestratorOpts)
	if err != nil {
		return fmt.Errorf("cannot create orchestrator: %w", err)
	}

	orchestrator.Start()
	defer orchestrator.Shutdown()

	gatewayOpts := shroudlib.GatewayOpts{
		Orchestrator:     orchestrator,
		Network:          ntw,
		BackendAddress:   conf.Backend.Get(""),
		AntiReplayCache:  makeAntiReplayCache(conf),
		IPBlocklist:      blocklist,
		EventStream:      eventStream,
		Logger:           logger,
		Concurrency:      conf.Concurrency.Get(shroudlib.DefaultConcurrency),
		HandshakeTimeout: conf.Timeouts.Handshake.Get(shroudlib.DefaultHandshakeTimeout),
		IdleTimeout:      conf.Timeouts.Idle.Get(shroudlib.DefaultIdleTimeout),
	}

	if conf.Defense.RateLimit.Enabled.Get(false) {
		gatewayOpts.RateLimitPerSecond = conf.Defense.RateLimit.PerSecond.Get(0)
		gatewayOpts.RateLimitBurst = int(conf.Defense.RateLimit.Burst.Get(0))
	}

	gateway, err := shroudlib.NewGateway(gatewayOpts)
	if err != nil {
		return fmt.Errorf("cannot create gateway: %w", err)
	}

	listener, err := utils.NewListener(conf.BindTo.Get(""))
	if err != nil {
		return fmt.Errorf("cannot start gateway: %w", err)
	}

	ctx := utils.RootContext()

	go gateway.Serve(listener) //nolint: errcheck

	logger.BindStr("bind_to", conf.BindTo.Get("")).
		BindStr("strategy", orchestrator.GetOptimalStrategy().String()).
		Warning("gateway has started")

	<-ctx.Done()

	listener.Close()
	gateway.Shutdown()

	return nil
}
