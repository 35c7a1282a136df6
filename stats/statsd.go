package stats

import (
	"fmt"
	"strings"

	"github.com/akab00m/shroud/events"
	"github.com/akab00m/shroud/shroudlib"
	statsd "github.com/smira/go-statsd"
)

type statsdProcessor struct {
	streams map[string]*streamInfo
	client  *statsd.Client
}

func (s statsdProcessor) EventStart(evt shroudlib.EventStart) {
	info := acquireStreamInfo()
	info.startTime = evt.Timestamp()
	info.tags[TagIPFamily] = getIPFamily(evt.RemoteIP)

	s.streams[evt.StreamID()] = info

	s.client.GaugeDelta(MetricClientConnections, 1, info.T(TagIPFamily))
}

func (s statsdProcessor) EventConnectedToBackend(evt shroudlib.EventConnectedToBackend) {
	info, ok := s.streams[evt.StreamID()]
	if !ok {
		return
	}

	info.hasBackend = true

	s.client.GaugeDelta(MetricBackendConnections, 1, info.T(TagIPFamily))
}

func (s statsdProcessor) EventTraffic(evt shroudlib.EventTraffic) {
	info, ok := s.streams[evt.StreamID()]
	if !ok {
		return
	}

	if ttfb, ok := info.markFirstByte(evt.IsRead, evt.Traffic); ok {
		s.client.PrecisionTiming(MetricTTFB, ttfb)
	}

	s.client.Incr(MetricTraffic, int64(evt.Traffic),
		statsd.StringTag(TagDirection, getDirection(evt.IsRead)))
}

func (s statsdProcessor) EventFinish(evt shroudlib.EventFinish) {
	info, ok := s.streams[evt.StreamID()]
	if !ok {
		return
	}

	defer func() {
		delete(s.streams, evt.StreamID())
		releaseStreamInfo(info)
	}()

	s.client.PrecisionTiming(MetricSessionDuration, evt.Timestamp().Sub(info.startTime))
	s.client.GaugeDelta(MetricClientConnections, -1, info.T(TagIPFamily))

	if info.hasBackend {
		s.client.GaugeDelta(MetricBackendConnections, -1, info.T(TagIPFamily))
	}
}

func (s statsdProcessor) EventProbeDetected(evt shroudlib.EventProbeDetected) {
	s.client.Incr(MetricProbesDetected, 1,
		statsd.StringTag(TagProbeType, evt.ProbeType.String()))
}

func (s statsdProcessor) EventConcurrencyLimited(_ shroudlib.EventConcurrencyLimited) {
	s.client.Incr(MetricConcurrencyLimited, 1)
}

func (s statsdProcessor) EventIPBlocklisted(_ shroudlib.EventIPBlocklisted) {
	s.client.Incr(MetricIPBlocklisted, 1)
}

func (s statsdProcessor) EventReplayAttack(_ shroudlib.EventReplayAttack) {
	s.client.Incr(MetricReplayAttacks, 1)
}

func (s statsdProcessor) EventIPListSize(evt shroudlib.EventIPListSize) {
	s.client.Gauge(MetricIPListSize, int64(evt.Size))
}

func (s statsdProcessor) EventConditionDetected(evt shroudlib.EventConditionDetected) {
	for _, cond := range shroudlib.NetworkConditions() {
		var value int64
		if cond == evt.Condition {
			value = 1
		}

		s.client.Gauge(MetricNetworkCondition, value,
			statsd.StringTag(TagCondition, cond.String()))
	}

	s.client.PrecisionTiming(MetricDetectionDuration, evt.Duration,
		statsd.StringTag(TagNetworkType, evt.NetworkType),
		statsd.StringTag(TagISP, evt.ISP))
}

func (s statsdProcessor) EventStrategyChanged(evt shroudlib.EventStrategyChanged) {
	s.client.Incr(MetricStrategyChanges, 1,
		statsd.StringTag(TagFrom, evt.From.String()),
		statsd.StringTag(TagTo, evt.To.String()),
		statsd.StringTag(TagReason, evt.Reason))
}

func (s statsdProcessor) EventStrategyResult(evt shroudlib.EventStrategyResult) {
	strategyTag := statsd.StringTag(TagStrategy, evt.Strategy.String())

	s.client.Incr(MetricStrategyAttempts, 1,
		strategyTag,
		statsd.StringTag(TagResult, getResult(evt.Success)))
	s.client.FGauge(MetricStrategyScore, evt.Score, strategyTag)

	if evt.Success {
		s.client.PrecisionTiming(MetricStrategyLatency, evt.Latency, strategyTag)
	}
}

func (s statsdProcessor) EventFragmentation(evt shroudlib.EventFragmentation) {
	result := getResult(evt.Success)
	if evt.Reset {
		result = TagResultReset
	}

	s.client.Incr(MetricFragmentations, 1,
		statsd.StringTag(TagFragment, evt.Strategy.String()),
		statsd.StringTag(TagResult, result))
}

func (s statsdProcessor) Shutdown() {
	for k, v := range s.streams {
		releaseStreamInfo(v)
		delete(s.streams, k)
	}
}

// StatsdFactory is a factory of [events.Observer] which dumps information
// to statsd.
//
// Tags are supported in influxdb, datadog and graphite formats.
type StatsdFactory struct {
	client *statsd.Client
}

// Make builds a new observer.
func (s StatsdFactory) Make() events.Observer {
	return statsdProcessor{
		streams: make(map[string]*streamInfo),
		client:  s.client,
	}
}

// Close flushes and stops a statsd client.
func (s StatsdFactory) Close() error {
	return s.client.Close() //nolint: wrapcheck
}

// NewStatsd builds an events.ObserverFactory that sends events to statsd.
func NewStatsd(address string, logger shroudlib.Logger,
	metricPrefix, tagFormat string,
) (StatsdFactory, error) {
	options := []statsd.Option{
		statsd.MetricPrefix(metricPrefix + "."),
		statsd.Logger(logger),
		statsd.FlushInterval(DefaultStatsdFlushInterval),
	}

	switch strings.ToLower(tagFormat) {
	case "datadog":
		options = append(options, statsd.TagStyle(statsd.TagFormatDatadog))
	case "influxdb":
		options = append(options, statsd.TagStyle(statsd.TagFormatInfluxDB))
	case "graphite":
		options = append(options, statsd.TagStyle(statsd.TagFormatGraphite))
	default:
		return StatsdFactory{}, fmt.Errorf("unknown tag format %s", tagFormat)
	}

	return StatsdFactory{
		client: statsd.NewClient(address, options...),
	}, nil
}
