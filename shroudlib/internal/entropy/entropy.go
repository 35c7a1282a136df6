// Package entropy makes a statistical shape of a byte stream look like
// ordinary HTTPS.
//
// Encrypted proxy traffic is indistinguishable from random noise: its
// Shannon entropy is close to 8 bits per byte, packet sizes are arbitrary
// and upload is often comparable to download. Real browsing is a bit
// more structured. Normalizer dilutes high-entropy payloads with
// header-shaped filler, pads packets to common record sizes and tracks
// upload:download ratio.
package entropy

import (
	"math"
	"sync"
)

const (
	// HighEntropyThreshold is an entropy which looks like pure ciphertext.
	HighEntropyThreshold = 7.8

	// RatioThreshold is an upload:download ratio above which correction
	// traffic is required. Normal browsing is 0.05-0.3.
	RatioThreshold = 0.5

	// DefaultTargetRatio is a ratio CorrectionBytesNeeded aims at.
	DefaultTargetRatio = 0.15

	historySize = 1000

	initialFillerRatio = 0.10
	fillerRatioStep    = 0.05
	maxFillerRatio     = 0.50
	insertionPoints    = 4
)

// PacketSizes is a table of common HTTPS/TLS record sizes.
var PacketSizes = []int{64, 128, 256, 512, 1024, 1460, 2048, 4096, 8192, 16384}

// Direction of traffic from the point of view of a client.
type Direction uint8

const (
	DirectionUpload Direction = iota
	DirectionDownload
)

func (d Direction) String() string {
	if d == DirectionDownload {
		return "download"
	}

	return "upload"
}

// Stats is a snapshot of normalizer counters.
type Stats struct {
	Uploaded          uint64  `json:"uploaded"`
	Downloaded        uint64  `json:"downloaded"`
	Ratio             float64 `json:"ratio"`
	Packets           int     `json:"packets"`
	AvgPacketSize     float64 `json:"avg_packet_size"`
	PacketsNormalized uint64  `json:"packets_normalized"`
	PaddingBytes      uint64  `json:"padding_bytes"`
}

// Shannon computes H = -sum(p*log2(p)) over byte frequencies. An empty
// slice has 0 entropy.
func Shannon(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}

	var counts [256]int

	for _, b := range data {
		counts[b]++
	}

	total := float64(len(data))
	rv := 0.0

	for _, count := range counts {
		if count == 0 {
			continue
		}

		p := float64(count) / total
		rv -= p * math.Log2(p)
	}

	return rv
}

// Normalizer is safe for concurrent use.
type Normalizer struct {
	mutex sync.Mutex

	uploaded   uint64
	downloaded uint64

	history    [historySize]int
	historyPos int
	historyLen int

	packetsNormalized uint64
	paddingBytes      uint64
}

// NormalizePacket records traffic and, if data looks like ciphertext,
// returns a copy with low-entropy filler interleaved at evenly spaced
// points. Otherwise data is returned as is.
func (n *Normalizer) NormalizePacket(data []byte, dir Direction) []byte {
	rv := data

	if original := Shannon(data); original > HighEntropyThreshold {
		rv = dilute(data, original)
	}

	n.mutex.Lock()
	defer n.mutex.Unlock()

	if len(rv) != len(data) {
		n.packetsNormalized++
		n.paddingBytes += uint64(len(rv) - len(data))
	}

	n.recordTraffic(len(rv), dir)

	return rv
}

// NormalizePacketSize pads data with filler up to the next common record
// size. Payloads bigger than the largest size are returned unchanged.
func (n *Normalizer) NormalizePacketSize(data []byte) []byte {
	for _, size := range PacketSizes {
		if size < len(data) {
			continue
		}

		if size == len(data) {
			return data
		}

		rv := make([]byte, 0, size)
		rv = append(rv, data...)
		rv = append(rv, filler(size-len(data))...)

		n.mutex.Lock()
		n.paddingBytes += uint64(size - len(data))
		n.mutex.Unlock()

		return rv
	}

	return data
}

// RecordTraffic accounts bytes which were sent or received without
// normalization.
func (n *Normalizer) RecordTraffic(size int, dir Direction) {
	if size <= 0 {
		return
	}

	n.mutex.Lock()
	defer n.mutex.Unlock()

	n.recordTraffic(size, dir)
}

func (n *Normalizer) recordTraffic(size int, dir Direction) {
	if dir == DirectionDownload {
		n.downloaded += uint64(size)
	} else {
		n.uploaded += uint64(size)
	}

	n.history[n.historyPos] = size
	n.historyPos = (n.historyPos + 1) % historySize

	if n.historyLen < historySize {
		n.historyLen++
	}
}

// NeedsRatioCorrection tells if upload:download ratio is suspiciously high.
func (n *Normalizer) NeedsRatioCorrection() bool {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	if n.downloaded == 0 {
		return n.uploaded > 0
	}

	return float64(n.uploaded)/float64(n.downloaded) > RatioThreshold
}

// CorrectionBytesNeeded returns how many bytes of dummy downstream traffic
// restore targetRatio. Non-positive targetRatio means DefaultTargetRatio.
// Callers are responsible for injecting this traffic.
func (n *Normalizer) CorrectionBytesNeeded(targetRatio float64) int {
	if targetRatio <= 0 {
		targetRatio = DefaultTargetRatio
	}

	n.mutex.Lock()
	defer n.mutex.Unlock()

	needed := math.Ceil(float64(n.uploaded)/targetRatio - float64(n.downloaded))
	if needed <= 0 {
		return 0
	}

	return int(needed)
}

// Stats returns a snapshot of counters.
func (n *Normalizer) Stats() Stats {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	rv := Stats{
		Uploaded:          n.uploaded,
		Downloaded:        n.downloaded,
		Packets:           n.historyLen,
		PacketsNormalized: n.packetsNormalized,
		PaddingBytes:      n.paddingBytes,
	}

	if n.downloaded > 0 {
		rv.Ratio = float64(n.uploaded) / float64(n.downloaded)
	}

	if n.historyLen > 0 {
		total := 0
		for i := 0; i < n.historyLen; i++ {
			total += n.history[i]
		}

		rv.AvgPacketSize = float64(total) / float64(n.historyLen)
	}

	return rv
}

// NewNormalizer returns a normalizer with empty state.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

func dilute(data []byte, original float64) []byte {
	var candidate []byte

	for ratio := initialFillerRatio; ratio <= maxFillerRatio+1e-9; ratio += fillerRatioStep {
		candidate = interleave(data, int(math.Ceil(float64(len(data))*ratio)))
		if Shannon(candidate) <= HighEntropyThreshold {
			break
		}
	}

	if candidate == nil || Shannon(candidate) > original {
		return data
	}

	return candidate
}

// interleave inserts fillerSize bytes of filler at four evenly spaced
// points, the last one is after the payload.
func interleave(data []byte, fillerSize int) []byte {
	rv := make([]byte, 0, len(data)+fillerSize)
	chunk := fillerSize / insertionPoints
	prev := 0

	for i := 1; i <= insertionPoints; i++ {
		point := len(data) * i / insertionPoints
		rv = append(rv, data[prev:point]...)
		prev = point

		size := chunk
		if i == insertionPoints {
			size = fillerSize - chunk*(insertionPoints-1)
		}

		rv = append(rv, filler(size)...)
	}

	return rv
}

// filler returns size bytes which look like an HTTP header line:
// "X-Padding: 0000...\r\n".
func filler(size int) []byte {
	const header = "X-Padding: "

	rv := make([]byte, size)

	for i := range rv {
		rv[i] = '0'
	}

	copy(rv, header)

	if size >= len(header)+2 {
		rv[size-2] = '\r'
		rv[size-1] = '\n'
	}

	return rv
}
