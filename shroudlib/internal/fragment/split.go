package fragment

import (
	"math/rand"

	"github.com/akab00m/shroud/shroudlib/internal/tlshello"
)

const (
	byteLevelMin = 1
	byteLevelMax = 5
)

type splitter struct {
	rnd          *rand.Rand
	minFragBytes int
	maxFragBytes int
}

func (s splitter) split(strategy Strategy, data []byte) [][]byte {
	if len(data) < 2 {
		return [][]byte{data}
	}

	switch strategy {
	case StrategyRandomSplit:
		return s.chunked(data, s.minFragBytes, s.maxFragBytes)
	case StrategyByteLevel:
		return s.chunked(data, byteLevelMin, byteLevelMax)
	case StrategySNISplit:
		return s.sniSplit(data)
	case StrategyDual:
		return dual(data)
	default:
		return threePart(data)
	}
}

func (s splitter) chunked(data []byte, minSize, maxSize int) [][]byte {
	rv := make([][]byte, 0, len(data)/minSize+1)

	for len(data) > 0 {
		size := minSize + s.rnd.Intn(maxSize-minSize+1)
		if size > len(data) {
			size = len(data)
		}

		rv = append(rv, data[:size])
		data = data[size:]
	}

	return rv
}

func (s splitter) sniSplit(data []byte) [][]byte {
	found, start, end := tlshello.LocateSNI(data)
	if !found {
		return threePart(data)
	}

	rv := [][]byte{data[:start]}
	host := data[start:end]

	pieces := 2 + s.rnd.Intn(2)
	if pieces > len(host) {
		pieces = len(host)
	}

	// pieces-1 distinct ascending cut points inside of the hostname
	cuts := make([]int, 0, pieces-1)

	for len(cuts) < pieces-1 {
		lower := 1
		if len(cuts) > 0 {
			lower = cuts[len(cuts)-1] + 1
		}

		upper := len(host) - (pieces - 1 - len(cuts)) // inclusive
		cuts = append(cuts, lower+s.rnd.Intn(upper-lower+1))
	}

	prev := 0
	for _, cut := range cuts {
		rv = append(rv, host[prev:cut])
		prev = cut
	}

	rv = append(rv, host[prev:])

	if end < len(data) {
		rv = append(rv, data[end:])
	}

	return rv
}

func threePart(data []byte) [][]byte {
	if len(data) <= tlshello.RecordHeaderLen+2 {
		return dual(data)
	}

	header := data[:tlshello.RecordHeaderLen]

	if found, _, end := tlshello.LocateSNI(data); found && end < len(data) {
		return [][]byte{header, data[tlshello.RecordHeaderLen:end], data[end:]}
	}

	rest := len(data) - tlshello.RecordHeaderLen
	first := tlshello.RecordHeaderLen + rest/3
	second := tlshello.RecordHeaderLen + 2*rest/3

	return [][]byte{header, data[tlshello.RecordHeaderLen:first], data[first:second], data[second:]}
}

func dual(data []byte) [][]byte {
	middle := len(data) / 2

	return [][]byte{data[:middle], data[middle:]}
}
