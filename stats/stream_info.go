package stats

import (
	"net"
	"sync"
	"time"

	statsd "github.com/smira/go-statsd"
)

type streamInfo struct {
	hasBackend    bool
	tags          map[string]string
	startTime     time.Time // время начала сессии
	firstByteTime time.Time // время получения первого байта (для TTFB)
	hasFirstByte  bool      // флаг получения первого байта
}

func (s streamInfo) T(key string) statsd.Tag {
	return statsd.StringTag(key, s.tags[key])
}

func (s *streamInfo) Reset() {
	s.hasBackend = false
	s.hasFirstByte = false
	s.startTime = time.Time{}
	s.firstByteTime = time.Time{}

	for k := range s.tags {
		delete(s.tags, k)
	}
}

// markFirstByte returns time to the first byte sent to a client. It
// returns false if it was already reported.
func (s *streamInfo) markFirstByte(isRead bool, traffic uint) (time.Duration, bool) {
	if s.hasFirstByte || !isRead || traffic == 0 {
		return 0, false
	}

	s.firstByteTime = time.Now()
	s.hasFirstByte = true

	return s.firstByteTime.Sub(s.startTime), true
}

var streamInfoPool = sync.Pool{
	New: func() interface{} {
		return &streamInfo{
			tags: make(map[string]string),
		}
	},
}

func acquireStreamInfo() *streamInfo {
	return streamInfoPool.Get().(*streamInfo) //nolint: forcetypeassert
}

func releaseStreamInfo(info *streamInfo) {
	info.Reset()
	streamInfoPool.Put(info)
}

// getDirection converts a direction of backend traffic into a direction
// from the client point of view.
func getDirection(isRead bool) string {
	if isRead {
		return TagDirectionToClient
	}

	return TagDirectionFromClient
}

func getIPFamily(ip net.IP) string {
	if ip.To4() != nil {
		return TagIPFamilyIPv4
	}

	return TagIPFamilyIPv6
}

func getResult(success bool) string {
	if success {
		return TagResultSuccess
	}

	return TagResultFailure
}
