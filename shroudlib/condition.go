package shroudlib

import "github.com/akab00m/shroud/shroudlib/internal/netcond"

// InferCondition maps results of network probes to a network condition.
//
// Incomplete detection gives ConditionNormal: it is better to start with
// something than to block. A CDN which is up while a well-known site is
// down does not mean anything special, so UDP decides in that case.
func InferCondition(result DetectionResult) NetworkCondition {
	switch {
	case !result.Complete:
		return ConditionNormal
	case !result.CDN.Reachable && !result.Site.Reachable:
		return ConditionBlackout
	case !result.CDN.Reachable:
		return ConditionHeavyDPI
	case result.TLS != nil && !result.TLS.Reachable:
		return ConditionTLSBlocked
	case !result.UDP.Reachable:
		return ConditionUDPBlocked
	}

	return ConditionNormal
}

func networkTypeOf(result DetectionResult) string {
	if !result.Complete || result.NetworkType == "" {
		return netcond.NetworkTypeUnknown
	}

	return result.NetworkType
}

func ispOf(result DetectionResult) string {
	if result.ISP == "" {
		return netcond.ISPUnknown
	}

	return result.ISP
}
