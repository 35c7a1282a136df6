package shroudlib

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/akab00m/shroud/essentials"
)

const streamIDLength = 16

// streamContext is a context of a single client connection. It is closed
// when any side of the stream is gone.
type streamContext struct {
	ctx       context.Context
	ctxCancel context.CancelFunc
	closeOnce sync.Once

	clientConn  essentials.Conn
	backendConn essentials.Conn
	streamID    string
	clientIP    net.IP
	activity    atomic.Int64
	logger      Logger
}

func (s *streamContext) Deadline() (time.Time, bool) {
	return s.ctx.Deadline()
}

func (s *streamContext) Done() <-chan struct{} {
	return s.ctx.Done()
}

func (s *streamContext) Err() error {
	return s.ctx.Err() //nolint: wrapcheck
}

func (s *streamContext) Value(key interface{}) interface{} {
	return s.ctx.Value(key)
}

func (s *streamContext) ClientIP() net.IP {
	return s.clientIP
}

func (s *streamContext) Close() {
	s.closeOnce.Do(func() {
		s.ctxCancel()

		if s.clientConn != nil {
			s.clientConn.Close()
		}

		if s.backendConn != nil {
			s.backendConn.Close()
		}
	})
}

// watchIdle closes a stream if nothing was transmitted for a timeout.
func (s *streamContext) watchIdle(timeout time.Duration) {
	s.activity.Store(time.Now().UnixNano())

	ticker := time.NewTicker(timeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-s.Done():
			return
		case now := <-ticker.C:
			last := time.Unix(0, s.activity.Load())
			if now.Sub(last) > timeout {
				s.logger.Info("stream is idle, closing")
				s.Close()

				return
			}
		}
	}
}

func newStreamContext(ctx context.Context, logger Logger, conn essentials.Conn) (*streamContext, error) {
	idBytes := make([]byte, streamIDLength)

	if _, err := rand.Read(idBytes); err != nil {
		return nil, fmt.Errorf("cannot generate stream id: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	streamID := base64.RawURLEncoding.EncodeToString(idBytes)
	clientIP := remoteIP(conn.RemoteAddr())

	return &streamContext{
		ctx:        ctx,
		ctxCancel:  cancel,
		clientConn: conn,
		streamID:   streamID,
		clientIP:   clientIP,
		logger: logger.
			BindStr("stream-id", streamID).
			BindStr("client-ip", hashIP(clientIP)),
	}, nil
}
