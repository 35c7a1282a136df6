package shroudlib

import (
	"bytes"
	"context"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bufferConn struct {
	net.Conn

	reader  io.Reader
	written bytes.Buffer
}

func (b *bufferConn) Read(p []byte) (int, error) { return b.reader.Read(p) }

func (b *bufferConn) Write(p []byte) (int, error) { return b.written.Write(p) }

func (b *bufferConn) Close() error { return nil }

func (b *bufferConn) CloseRead() error { return nil }

func (b *bufferConn) CloseWrite() error { return nil }

func (b *bufferConn) RemoteAddr() net.Addr { return nil }

type countingRecorder struct {
	mutex sync.Mutex
	sizes map[Direction]int
}

func (c *countingRecorder) RecordTraffic(size int, direction Direction) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.sizes[direction] += size
}

type collectingStream struct {
	mutex  sync.Mutex
	events []Event
}

func (c *collectingStream) Send(_ context.Context, evt Event) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.events = append(c.events, evt)
}

func TestConnRewind(t *testing.T) {
	t.Parallel()

	conn := newConnRewind(&bufferConn{reader: bytes.NewReader([]byte("hello world"))})
	head := make([]byte, 5)

	_, err := io.ReadFull(conn, head)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(head))

	conn.Rewind()

	all, err := io.ReadAll(conn)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(all))
}

func TestConnTraffic(t *testing.T) {
	t.Parallel()

	payload := bytes.Repeat([]byte{1}, int(trafficFlushThreshold)+10)
	recorder := &countingRecorder{sizes: map[Direction]int{}}
	stream := &collectingStream{}
	activity := &atomic.Int64{}

	conn := newConnTraffic(context.Background(),
		&bufferConn{reader: bytes.NewReader(payload)},
		"stream", stream, recorder, activity)

	_, err := io.ReadAll(conn)
	require.NoError(t, err)

	_, err = conn.Write([]byte("abc"))
	require.NoError(t, err)

	require.NoError(t, conn.Close())

	assert.Equal(t, len(payload), recorder.sizes[DirectionDownload])
	assert.Equal(t, 3, recorder.sizes[DirectionUpload])
	assert.NotZero(t, activity.Load())

	var read, written uint

	for _, evt := range stream.events {
		traffic, ok := evt.(EventTraffic)
		require.True(t, ok)
		assert.Equal(t, "stream", traffic.StreamID())

		if traffic.IsRead {
			read += traffic.Traffic
		} else {
			written += traffic.Traffic
		}
	}

	assert.EqualValues(t, len(payload), read)
	assert.EqualValues(t, 3, written)
}

func TestHashIP(t *testing.T) {
	t.Parallel()

	hashed := hashIP(net.ParseIP("10.0.0.1"))

	assert.Len(t, hashed, 12)
	assert.Equal(t, hashed, hashIP(net.ParseIP("10.0.0.1")))
	assert.NotEqual(t, hashed, hashIP(net.ParseIP("10.0.0.2")))
}

func TestRemoteIP(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "10.0.0.1",
		remoteIP(&net.TCPAddr{IP: net.ParseIP("10.0.0.1"), Port: 1}).String())
	assert.Equal(t, "10.0.0.2",
		remoteIP(&net.UDPAddr{IP: net.ParseIP("10.0.0.2"), Port: 1}).String())
	assert.Equal(t, "0.0.0.0", remoteIP(nil).String())
}

func TestStreamContextIdle(t *testing.T) {
	t.Parallel()

	conn := &bufferConn{reader: bytes.NewReader(nil)}
	ctx, err := newStreamContext(context.Background(), silentLogger{}, conn)
	require.NoError(t, err)

	assert.NotEmpty(t, ctx.streamID)

	go ctx.watchIdle(20 * time.Millisecond)

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("idle stream was not closed")
	}
}
