// Package stats contains implementations of [events.Observer] which
// export metrics of a gateway and an orchestrator.
//
// There are 2 implementations: Prometheus and statsd. Both share the same
// metric names and tags.
package stats

import "time"

const (
	// DefaultMetricPrefix is a prefix of all metric names.
	DefaultMetricPrefix = "shroud"

	// DefaultStatsdTagFormat is a default format of statsd tags.
	DefaultStatsdTagFormat = "influxdb"

	// DefaultStatsdFlushInterval is how often statsd client flushes its
	// buffer.
	DefaultStatsdFlushInterval = time.Second
)

const (
	MetricClientConnections  = "client_connections"
	MetricBackendConnections = "backend_connections"
	MetricTraffic            = "traffic"
	MetricProbesDetected     = "probes_detected"
	MetricIPBlocklisted      = "ip_blocklisted"
	MetricConcurrencyLimited = "concurrency_limited"
	MetricReplayAttacks      = "replay_attacks"
	MetricIPListSize         = "iplist_size"
	MetricNetworkCondition   = "network_condition"
	MetricDetectionDuration  = "detection_duration_seconds"
	MetricStrategyChanges    = "strategy_changes"
	MetricStrategyAttempts   = "strategy_attempts"
	MetricStrategyScore      = "strategy_score"
	MetricStrategyLatency    = "strategy_latency_seconds"
	MetricFragmentations     = "fragmentations"
	MetricSessionDuration    = "session_duration_seconds"
	MetricTTFB               = "time_to_first_byte_seconds"

	TagIPFamily     = "ip_family"
	TagIPFamilyIPv4 = "ipv4"
	TagIPFamilyIPv6 = "ipv6"

	TagDirection           = "direction"
	TagDirectionToClient   = "to_client"
	TagDirectionFromClient = "from_client"

	TagProbeType   = "probe_type"
	TagCondition   = "condition"
	TagNetworkType = "network_type"
	TagISP         = "isp"
	TagStrategy    = "strategy"
	TagFrom        = "from"
	TagTo          = "to"
	TagReason      = "reason"
	TagFragment    = "fragment_strategy"

	TagResult        = "result"
	TagResultSuccess = "success"
	TagResultFailure = "failure"
	TagResultReset   = "reset"
)
