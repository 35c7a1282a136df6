// Package fragment splits a TLS ClientHello into several TCP writes so
// that DPI boxes with small reassembly buffers cannot see the SNI.
package fragment

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Strategy defines how a ClientHello is cut.
type Strategy uint8

const (
	// StrategyThreePart sends a record header, everything up to the end of
	// the SNI hostname and then the remainder.
	StrategyThreePart Strategy = iota
	// StrategyRandomSplit sends chunks of [MinFragBytes, MaxFragBytes].
	StrategyRandomSplit
	// StrategyByteLevel sends 1-5 byte chunks.
	StrategyByteLevel
	// StrategySNISplit cuts inside of the hostname itself.
	StrategySNISplit
	// StrategyDual is a plain 50/50 split.
	StrategyDual
	// StrategyAdaptive picks a strategy per destination based on history.
	StrategyAdaptive
)

var strategyNames = []string{
	StrategyThreePart:   "three-part",
	StrategyRandomSplit: "random-split",
	StrategyByteLevel:   "byte-level",
	StrategySNISplit:    "sni-split",
	StrategyDual:        "dual",
	StrategyAdaptive:    "adaptive",
}

func (s Strategy) String() string {
	if int(s) < len(strategyNames) {
		return strategyNames[s]
	}

	return "unknown"
}

func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Strategy) UnmarshalText(data []byte) error {
	value, err := ParseStrategy(string(data))
	if err != nil {
		return err
	}

	*s = value

	return nil
}

// ParseStrategy parses a strategy name. Both kebab and bare forms are
// accepted: "three-part", "threepart".
func ParseStrategy(value string) (Strategy, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(value)), "_", "-")

	for i, name := range strategyNames {
		if name == normalized || strings.ReplaceAll(name, "-", "") == normalized {
			return Strategy(i), nil
		}
	}

	return StrategyThreePart, fmt.Errorf("unknown fragmentation strategy %q", value)
}

const (
	DefaultMinDelay     = 10 * time.Millisecond
	DefaultMaxDelay     = 50 * time.Millisecond
	DefaultMinFragBytes = 100
	DefaultMaxFragBytes = 200

	// DefaultEnginePackets tells the external engine to fragment only the
	// TLS ClientHello.
	DefaultEnginePackets = "tlshello"
)

// Config is a fragmentation configuration.
type Config struct {
	Enabled         bool
	Strategy        Strategy
	MinDelay        time.Duration
	MaxDelay        time.Duration
	MinFragBytes    int
	MaxFragBytes    int
	FallbackOnReset bool

	// EngineFragmentSpec is a "min-max" length spec for an external proxy
	// engine which does fragmentation on its own. Empty means it is
	// derived from MinFragBytes and MaxFragBytes.
	EngineFragmentSpec string

	// EngineIntervalSpec is a "min-max" delay spec in milliseconds for an
	// external engine. Empty means it is derived from delays.
	EngineIntervalSpec string

	// EnginePackets is the packets selector of the external engine.
	EnginePackets string
}

// DefaultConfig returns an enabled ThreePart configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		Strategy:        StrategyThreePart,
		MinDelay:        DefaultMinDelay,
		MaxDelay:        DefaultMaxDelay,
		MinFragBytes:    DefaultMinFragBytes,
		MaxFragBytes:    DefaultMaxFragBytes,
		FallbackOnReset: true,
	}
}

// EngineSpec is what an external proxy engine needs to fragment on its own.
type EngineSpec struct {
	Packets  string `json:"packets"`
	Length   string `json:"length"`
	Interval string `json:"interval"`
}

// EngineSpec renders "min-max" strings for an external engine.
func (c Config) EngineSpec() EngineSpec {
	c = c.normalized()

	rv := EngineSpec{
		Packets:  c.EnginePackets,
		Length:   c.EngineFragmentSpec,
		Interval: c.EngineIntervalSpec,
	}

	if rv.Packets == "" {
		rv.Packets = DefaultEnginePackets
	}

	if rv.Length == "" {
		rv.Length = FormatRange(c.MinFragBytes, c.MaxFragBytes)
	}

	if rv.Interval == "" {
		rv.Interval = FormatRange(int(c.MinDelay/time.Millisecond), int(c.MaxDelay/time.Millisecond))
	}

	return rv
}

func (c Config) normalized() Config {
	if c.MinDelay < 0 {
		c.MinDelay = 0
	}

	if c.MaxDelay < c.MinDelay {
		c.MaxDelay = c.MinDelay
	}

	if c.MinFragBytes <= 0 {
		c.MinFragBytes = DefaultMinFragBytes
	}

	if c.MaxFragBytes < c.MinFragBytes {
		c.MaxFragBytes = c.MinFragBytes
	}

	return c
}

// FormatRange renders "min-max".
func FormatRange(minValue, maxValue int) string {
	return strconv.Itoa(minValue) + "-" + strconv.Itoa(maxValue)
}

// ParseRange parses "min-max" or a single number.
func ParseRange(value string) (int, int, error) {
	value = strings.TrimSpace(value)

	left, right, found := strings.Cut(value, "-")
	if !found {
		right = left
	}

	minValue, err := strconv.Atoi(strings.TrimSpace(left))
	if err != nil {
		return 0, 0, fmt.Errorf("incorrect range start in %q: %w", value, err)
	}

	maxValue, err := strconv.Atoi(strings.TrimSpace(right))
	if err != nil {
		return 0, 0, fmt.Errorf("incorrect range end in %q: %w", value, err)
	}

	if minValue < 0 || maxValue < minValue {
		return 0, 0, fmt.Errorf("incorrect range %q", value)
	}

	return minValue, maxValue, nil
}
