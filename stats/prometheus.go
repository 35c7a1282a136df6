package stats

import (
	"context"
	"net"
	"net/http"

	"github.com/akab00m/shroud/events"
	"github.com/akab00m/shroud/shroudlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type prometheusProcessor struct {
	streams map[string]*streamInfo
	factory *PrometheusFactory
}

func (p prometheusProcessor) EventStart(evt shroudlib.EventStart) {
	info := acquireStreamInfo()
	info.startTime = evt.Timestamp()
	info.tags[TagIPFamily] = getIPFamily(evt.RemoteIP)

	p.streams[evt.StreamID()] = info

	p.factory.metricClientConnections.
		WithLabelValues(info.tags[TagIPFamily]).
		Inc()
}

func (p prometheusProcessor) EventConnectedToBackend(evt shroudlib.EventConnectedToBackend) {
	info, ok := p.streams[evt.StreamID()]
	if !ok {
		return
	}

	info.hasBackend = true

	p.factory.metricBackendConnections.
		WithLabelValues(info.tags[TagIPFamily]).
		Inc()
}

func (p prometheusProcessor) EventTraffic(evt shroudlib.EventTraffic) {
	info, ok := p.streams[evt.StreamID()]
	if !ok {
		return
	}

	if ttfb, ok := info.markFirstByte(evt.IsRead, evt.Traffic); ok {
		p.factory.metricTTFB.Observe(ttfb.Seconds())
	}

	p.factory.metricTraffic.
		WithLabelValues(getDirection(evt.IsRead)).
		Add(float64(evt.Traffic))
}

func (p prometheusProcessor) EventFinish(evt shroudlib.EventFinish) {
	info, ok := p.streams[evt.StreamID()]
	if !ok {
		return
	}

	defer func() {
		delete(p.streams, evt.StreamID())
		releaseStreamInfo(info)
	}()

	if !info.startTime.IsZero() {
		p.factory.metricSessionDuration.Observe(evt.Timestamp().Sub(info.startTime).Seconds())
	}

	p.factory.metricClientConnections.
		WithLabelValues(info.tags[TagIPFamily]).
		Dec()

	if info.hasBackend {
		p.factory.metricBackendConnections.
			WithLabelValues(info.tags[TagIPFamily]).
			Dec()
	}
}

func (p prometheusProcessor) EventProbeDetected(evt shroudlib.EventProbeDetected) {
	p.factory.metricProbesDetected.
		WithLabelValues(evt.ProbeType.String()).
		Inc()
}

func (p prometheusProcessor) EventConcurrencyLimited(_ shroudlib.EventConcurrencyLimited) {
	p.factory.metricConcurrencyLimited.Inc()
}

func (p prometheusProcessor) EventIPBlocklisted(_ shroudlib.EventIPBlocklisted) {
	p.factory.metricIPBlocklisted.Inc()
}

func (p prometheusProcessor) EventReplayAttack(_ shroudlib.EventReplayAttack) {
	p.factory.metricReplayAttacks.Inc()
}

func (p prometheusProcessor) EventIPListSize(evt shroudlib.EventIPListSize) {
	p.factory.metricIPListSize.Set(float64(evt.Size))
}

func (p prometheusProcessor) EventConditionDetected(evt shroudlib.EventConditionDetected) {
	for _, cond := range shroudlib.NetworkConditions() {
		value := 0.0
		if cond == evt.Condition {
			value = 1
		}

		p.factory.metricNetworkCondition.
			WithLabelValues(cond.String()).
			Set(value)
	}

	p.factory.metricDetectionDuration.
		WithLabelValues(evt.NetworkType, evt.ISP).
		Observe(evt.Duration.Seconds())
}

func (p prometheusProcessor) EventStrategyChanged(evt shroudlib.EventStrategyChanged) {
	p.factory.metricStrategyChanges.
		WithLabelValues(evt.From.String(), evt.To.String(), evt.Reason).
		Inc()
}

func (p prometheusProcessor) EventStrategyResult(evt shroudlib.EventStrategyResult) {
	strategy := evt.Strategy.String()

	p.factory.metricStrategyAttempts.
		WithLabelValues(strategy, getResult(evt.Success)).
		Inc()
	p.factory.metricStrategyScore.
		WithLabelValues(strategy).
		Set(evt.Score)

	if evt.Success {
		p.factory.metricStrategyLatency.
			WithLabelValues(strategy).
			Observe(evt.Latency.Seconds())
	}
}

func (p prometheusProcessor) EventFragmentation(evt shroudlib.EventFragmentation) {
	result := getResult(evt.Success)
	if evt.Reset {
		result = TagResultReset
	}

	p.factory.metricFragmentations.
		WithLabelValues(evt.Strategy.String(), result).
		Inc()
}

func (p prometheusProcessor) Shutdown() {
	for k, v := range p.streams {
		releaseStreamInfo(v)
		delete(p.streams, k)
	}
}

// PrometheusFactory is a factory of [events.Observer] which collect
// information in a format suitable for Prometheus.
//
// This factory can also serve on a given listener. In that case it starts HTTP
// server with a single endpoint - a Prometheus-compatible scrape output.
type PrometheusFactory struct {
	httpServer *http.Server

	metricClientConnections  *prometheus.GaugeVec
	metricBackendConnections *prometheus.GaugeVec
	metricNetworkCondition   *prometheus.GaugeVec
	metricStrategyScore      *prometheus.GaugeVec
	metricIPListSize         prometheus.Gauge

	metricTraffic          *prometheus.CounterVec
	metricProbesDetected   *prometheus.CounterVec
	metricStrategyChanges  *prometheus.CounterVec
	metricStrategyAttempts *prometheus.CounterVec
	metricFragmentations   *prometheus.CounterVec

	metricIPBlocklisted      prometheus.Counter
	metricConcurrencyLimited prometheus.Counter
	metricReplayAttacks      prometheus.Counter

	metricDetectionDuration *prometheus.HistogramVec
	metricStrategyLatency   *prometheus.HistogramVec
	metricSessionDuration   prometheus.Histogram // Длительность сессий для расчёта throughput
	metricTTFB              prometheus.Histogram // Time To First Byte для latency анализа

	metricBuildInfo *prometheus.GaugeVec
}

// Make builds a new observer.
func (p *PrometheusFactory) Make() events.Observer {
	return prometheusProcessor{
		streams: make(map[string]*streamInfo),
		factory: p,
	}
}

// Handler returns an HTTP handler with a scrape output.
func (p *PrometheusFactory) Handler() http.Handler {
	return p.httpServer.Handler
}

// Serve starts an HTTP server on a given listener.
func (p *PrometheusFactory) Serve(listener net.Listener) error {
	return p.httpServer.Serve(listener) //nolint: wrapcheck
}

// Close stops a factory. Please pay attention that underlying listener
// is not closed.
func (p *PrometheusFactory) Close() error {
	return p.httpServer.Shutdown(context.Background()) //nolint: wrapcheck
}

// NewPrometheus builds an events.ObserverFactory which can serve HTTP
// endpoint with Prometheus scrape data.
func NewPrometheus(metricPrefix, httpPath, version string) *PrometheusFactory { //nolint: funlen
	registry := prometheus.NewPedanticRegistry()
	httpHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
	mux := http.NewServeMux()

	mux.Handle(httpPath, httpHandler)

	factory := &PrometheusFactory{
		httpServer: &http.Server{
			Handler: mux,
		},

		metricClientConnections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricPrefix,
			Name:      MetricClientConnections,
			Help:      "A number of actively processing client connections.",
		}, []string{TagIPFamily}),
		metricBackendConnections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricPrefix,
			Name:      MetricBackendConnections,
			Help:      "A number of client connections relayed to a backend.",
		}, []string{TagIPFamily}),
		metricNetworkCondition: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricPrefix,
			Name:      MetricNetworkCondition,
			Help:      "Current network condition: 1 for the detected one, 0 for others.",
		}, []string{TagCondition}),
		metricStrategyScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricPrefix,
			Name:      MetricStrategyScore,
			Help:      "Current score of the evasion strategy.",
		}, []string{TagStrategy}),
		metricIPListSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricPrefix,
			Name:      MetricIPListSize,
			Help:      "A size of the ip blocklist.",
		}),

		metricTraffic: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricPrefix,
			Name:      MetricTraffic,
			Help:      "Traffic which is relayed between clients and a backend.",
		}, []string{TagDirection}),
		metricProbesDetected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricPrefix,
			Name:      MetricProbesDetected,
			Help:      "A number of active probes which got a decoy response.",
		}, []string{TagProbeType}),
		metricStrategyChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricPrefix,
			Name:      MetricStrategyChanges,
			Help:      "A number of evasion strategy switches.",
		}, []string{TagFrom, TagTo, TagReason}),
		metricStrategyAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricPrefix,
			Name:      MetricStrategyAttempts,
			Help:      "A number of reported connection attempts per strategy.",
		}, []string{TagStrategy, TagResult}),
		metricFragmentations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricPrefix,
			Name:      MetricFragmentations,
			Help:      "A number of fragmented ClientHello messages.",
		}, []string{TagFragment, TagResult}),

		metricIPBlocklisted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricPrefix,
			Name:      MetricIPBlocklisted,
			Help:      "A number of rejected sessions due to ip blocklisting.",
		}),
		metricConcurrencyLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricPrefix,
			Name:      MetricConcurrencyLimited,
			Help:      "A number of sessions that were rejected by concurrency limiter.",
		}),
		metricReplayAttacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricPrefix,
			Name:      MetricReplayAttacks,
			Help:      "A number of detected replayed ClientHello messages.",
		}),

		metricDetectionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricPrefix,
			Name:      MetricDetectionDuration,
			Help:      "Duration of network condition detection.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5},
		}, []string{TagNetworkType, TagISP}),
		metricStrategyLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricPrefix,
			Name:      MetricStrategyLatency,
			Help:      "Handshake latency of successful connection attempts.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{TagStrategy}),
		metricSessionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricPrefix,
			Name:      MetricSessionDuration,
			Help:      "Duration of client sessions in seconds. Use with traffic metrics to calculate throughput.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
		}),
		metricTTFB: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricPrefix,
			Name:      MetricTTFB,
			Help:      "Time from connection start to first byte sent to a client.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}),

		metricBuildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricPrefix,
			Name:      "build_info",
			Help:      "Build information about shroud.",
		}, []string{"version"}),
	}

	registry.MustRegister(factory.metricClientConnections)
	registry.MustRegister(factory.metricBackendConnections)
	registry.MustRegister(factory.metricNetworkCondition)
	registry.MustRegister(factory.metricStrategyScore)
	registry.MustRegister(factory.metricIPListSize)

	registry.MustRegister(factory.metricTraffic)
	registry.MustRegister(factory.metricProbesDetected)
	registry.MustRegister(factory.metricStrategyChanges)
	registry.MustRegister(factory.metricStrategyAttempts)
	registry.MustRegister(factory.metricFragmentations)

	registry.MustRegister(factory.metricIPBlocklisted)
	registry.MustRegister(factory.metricConcurrencyLimited)
	registry.MustRegister(factory.metricReplayAttacks)

	registry.MustRegister(factory.metricDetectionDuration)
	registry.MustRegister(factory.metricStrategyLatency)
	registry.MustRegister(factory.metricSessionDuration)
	registry.MustRegister(factory.metricTTFB)

	registry.MustRegister(factory.metricBuildInfo)
	factory.metricBuildInfo.WithLabelValues(version).Set(1)

	return factory
}
