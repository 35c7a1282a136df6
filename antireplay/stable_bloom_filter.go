package antireplay

import (
	"sync"
	"sync/atomic"

	"github.com/OneOfOne/xxhash"
	"github.com/akab00m/shroud/shroudlib"
	boom "github.com/tylertreat/BoomFilters"
)

// StableBloomFilter is an anti-replay cache with counters of checks.
type StableBloomFilter struct {
	filter boom.StableBloomFilter
	mutex  sync.Mutex

	totalChecks    atomic.Uint64
	replayDetected atomic.Uint64
}

// SeenBefore adds a digest to the filter and reports if it was there.
func (s *StableBloomFilter) SeenBefore(digest []byte) bool {
	s.totalChecks.Add(1)

	s.mutex.Lock()
	isDuplicate := s.filter.TestAndAdd(digest)
	s.mutex.Unlock()

	if isDuplicate {
		s.replayDetected.Add(1)
	}

	return isDuplicate
}

// Metrics returns current anti-replay statistics.
type Metrics struct {
	TotalChecks    uint64  // Total number of messages checked
	ReplayDetected uint64  // Number of replays detected
	ReplayRate     float64 // Percentage of replays (0.0 to 100.0)
	FalsePositive  float64 // Current false positive rate of the filter
}

// Metrics returns current statistics.
func (s *StableBloomFilter) Metrics() Metrics {
	totalChecks := s.totalChecks.Load()
	replayDetected := s.replayDetected.Load()

	var replayRate float64
	if totalChecks > 0 {
		replayRate = float64(replayDetected) / float64(totalChecks) * 100.0 //nolint: mnd
	}

	s.mutex.Lock()
	falsePositive := s.filter.FalsePositiveRate()
	s.mutex.Unlock()

	return Metrics{
		TotalChecks:    totalChecks,
		ReplayDetected: replayDetected,
		ReplayRate:     replayRate,
		FalsePositive:  falsePositive,
	}
}

// NewStableBloomFilter returns an anti-replay cache based on a stable
// bloom filter.
//
//   - byteSize: memory allocation in bytes (0 for default 1 MB)
//   - errorRate: desired false positive rate (negative for default 1%)
func NewStableBloomFilter(byteSize uint, errorRate float64) *StableBloomFilter {
	if byteSize == 0 {
		byteSize = DefaultStableBloomFilterMaxSize
	}

	if errorRate < 0 {
		errorRate = DefaultStableBloomFilterErrorRate
	}

	sf := boom.NewDefaultStableBloomFilter(byteSize*8, errorRate) //nolint: mnd
	sf.SetHash(xxhash.New64())

	return &StableBloomFilter{
		filter: *sf,
	}
}

var _ shroudlib.AntiReplayCache = (*StableBloomFilter)(nil)
