package shroudlib

import (
	"bytes"
	"context"
	"io"
	"sync/atomic"
	"time"

	"github.com/akab00m/shroud/essentials"
)

// trafficFlushThreshold: порог накопленного трафика для эмиссии
// EventTraffic. Меньше событий, меньше channel sends.
const trafficFlushThreshold uint64 = 32 * 1024

// trafficRecorder accounts bytes per direction. Orchestrator feeds it into
// the entropy normalizer.
type trafficRecorder interface {
	RecordTraffic(size int, direction Direction)
}

// connTraffic wraps a backend connection. Reads are downloads of a
// client, writes are uploads.
type connTraffic struct {
	essentials.Conn

	streamID string
	stream   EventStream
	recorder trafficRecorder
	ctx      context.Context

	// Pointer-based: все копии connTraffic разделяют одни и те же
	// аккумуляторы.
	readAcc  *atomic.Uint64
	writeAcc *atomic.Uint64
	activity *atomic.Int64
}

func (c connTraffic) Read(b []byte) (int, error) {
	n, err := c.Conn.Read(b)

	if n > 0 {
		c.touch()
		c.recorder.RecordTraffic(n, DirectionDownload)

		if accumulated := c.readAcc.Add(uint64(n)); accumulated >= trafficFlushThreshold {
			c.readAcc.Store(0)
			c.stream.Send(c.ctx, NewEventTraffic(c.streamID, uint(accumulated), true))
		}
	}

	return n, err //nolint: wrapcheck
}

func (c connTraffic) Write(b []byte) (int, error) {
	n, err := c.Conn.Write(b)

	if n > 0 {
		c.touch()
		c.recorder.RecordTraffic(n, DirectionUpload)

		if accumulated := c.writeAcc.Add(uint64(n)); accumulated >= trafficFlushThreshold {
			c.writeAcc.Store(0)
			c.stream.Send(c.ctx, NewEventTraffic(c.streamID, uint(accumulated), false))
		}
	}

	return n, err //nolint: wrapcheck
}

func (c connTraffic) touch() {
	if c.activity != nil {
		c.activity.Store(time.Now().UnixNano())
	}
}

// FlushTraffic эмитит оставшийся накопленный трафик.
func (c connTraffic) FlushTraffic() {
	if r := c.readAcc.Swap(0); r > 0 {
		c.stream.Send(c.ctx, NewEventTraffic(c.streamID, uint(r), true))
	}

	if w := c.writeAcc.Swap(0); w > 0 {
		c.stream.Send(c.ctx, NewEventTraffic(c.streamID, uint(w), false))
	}
}

func (c connTraffic) Close() error {
	c.FlushTraffic()

	return c.Conn.Close() //nolint: wrapcheck
}

func newConnTraffic(ctx context.Context, conn essentials.Conn, streamID string,
	stream EventStream, recorder trafficRecorder, activity *atomic.Int64,
) connTraffic {
	return connTraffic{
		Conn:     conn,
		streamID: streamID,
		stream:   stream,
		recorder: recorder,
		ctx:      ctx,
		readAcc:  &atomic.Uint64{},
		writeAcc: &atomic.Uint64{},
		activity: activity,
	}
}

// connRewind remembers everything it has read until Rewind is called.
// After that, remembered bytes are read again before the rest of the
// connection. This is how a gateway peeks first bytes of a client and
// still passes them to a backend.
type connRewind struct {
	essentials.Conn

	// До Rewind(): TeeReader(conn, buf). После: MultiReader(buf, conn).
	active atomic.Pointer[io.Reader]
	buf    bytes.Buffer
}

func (c *connRewind) Read(p []byte) (int, error) {
	r := c.active.Load()

	return (*r).Read(p) //nolint: wrapcheck
}

func (c *connRewind) Rewind() {
	mr := io.Reader(io.MultiReader(&c.buf, c.Conn))
	c.active.Store(&mr)
}

func newConnRewind(conn essentials.Conn) *connRewind {
	rv := &connRewind{
		Conn: conn,
	}
	tr := io.Reader(io.TeeReader(conn, &rv.buf))
	rv.active.Store(&tr)

	return rv
}
