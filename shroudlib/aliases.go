package shroudlib

import (
	"github.com/akab00m/shroud/shroudlib/internal/entropy"
	"github.com/akab00m/shroud/shroudlib/internal/fingerprint"
	"github.com/akab00m/shroud/shroudlib/internal/fragment"
	"github.com/akab00m/shroud/shroudlib/internal/netcond"
	"github.com/akab00m/shroud/shroudlib/internal/probe"
	"github.com/akab00m/shroud/shroudlib/internal/xrayconf"
)

// Types of internal components which are a part of the public API.
type (
	BrowserProfile   = fingerprint.Profile
	Fingerprint      = fingerprint.Fingerprint
	FragmentConfig   = fragment.Config
	FragmentStrategy = fragment.Strategy
	FragmentMetrics  = fragment.Metrics
	FragmentSpec     = fragment.EngineSpec
	ProbeType        = probe.Type
	ProbeStats       = probe.Stats
	DetectionResult  = netcond.Result
	ProbeResult      = netcond.ProbeResult
	ISP              = netcond.ISP
	ProtocolParams   = xrayconf.Params
	EntropyStats     = entropy.Stats
	Direction        = entropy.Direction
)

const (
	BrowserChrome  = fingerprint.ProfileChrome
	BrowserFirefox = fingerprint.ProfileFirefox
	BrowserSafari  = fingerprint.ProfileSafari
	BrowserIOS     = fingerprint.ProfileIOS
	BrowserEdge    = fingerprint.ProfileEdge
	BrowserAndroid = fingerprint.ProfileAndroid
	BrowserRandom  = fingerprint.ProfileRandom

	FragmentThreePart   = fragment.StrategyThreePart
	FragmentRandomSplit = fragment.StrategyRandomSplit
	FragmentByteLevel   = fragment.StrategyByteLevel
	FragmentSNISplit    = fragment.StrategySNISplit
	FragmentDual        = fragment.StrategyDual
	FragmentAdaptive    = fragment.StrategyAdaptive

	DirectionUpload   = entropy.DirectionUpload
	DirectionDownload = entropy.DirectionDownload

	ProbeNone       = probe.TypeNone
	ProbeReplay     = probe.TypeReplay
	ProbeKnown      = probe.TypeKnownProber
	ProbeSuspicious = probe.TypeSuspicious
)

// ParseBrowserProfile parses a profile name like 'chrome'.
func ParseBrowserProfile(value string) (BrowserProfile, error) {
	return fingerprint.ParseProfile(value) //nolint: wrapcheck
}

// ParseFragmentStrategy parses a fragmentation strategy name like
// 'three-part'.
func ParseFragmentStrategy(value string) (FragmentStrategy, error) {
	return fragment.ParseStrategy(value) //nolint: wrapcheck
}

// ParseRange parses "<min>-<max>" strings used by fragment settings.
func ParseRange(value string) (int, int, error) {
	return fragment.ParseRange(value) //nolint: wrapcheck
}

// FormatRange formats a range as "<min>-<max>".
func FormatRange(minValue, maxValue int) string {
	return fragment.FormatRange(minValue, maxValue)
}

// DefaultFragmentConfig returns default fragmentation settings.
func DefaultFragmentConfig() FragmentConfig {
	return fragment.DefaultConfig()
}

// DefaultISPTable returns a table of known national ISP prefixes.
func DefaultISPTable() []ISP {
	return append([]ISP(nil), netcond.DefaultISPTable...)
}

// BrowserProfiles returns all known browser profiles.
func BrowserProfiles() []BrowserProfile {
	return fingerprint.Profiles()
}

// Shannon computes Shannon entropy of data in bits per byte.
func Shannon(data []byte) float64 {
	return entropy.Shannon(data)
}
