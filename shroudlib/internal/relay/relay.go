package relay

import (
	"context"
	"errors"
	"io"

	"github.com/akab00m/shroud/essentials"
)

// Relay pumps bytes between a client and a backend until both directions
// are finished or ctx is done. Both connections are closed on exit.
func Relay(ctx context.Context, log Logger, backendConn, clientConn essentials.Conn) {
	defer backendConn.Close()
	defer clientConn.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-ctx.Done()
		// FIN в обе стороны: pump увидит EOF и завершится,
		// полный Close выполнят defer выше.
		backendConn.CloseWrite() //nolint: errcheck
		clientConn.CloseWrite()  //nolint: errcheck
	}()

	setTCPNoDelay(backendConn)
	setTCPNoDelay(clientConn)
	setTCPUserTimeout(backendConn, tcpUserTimeoutMs)
	setTCPUserTimeout(clientConn, tcpUserTimeoutMs)

	closeChan := make(chan struct{})

	go func() {
		defer close(closeChan)

		pump(log, backendConn, clientConn, "client -> backend")
	}()

	setTCPQuickACK(clientConn)

	pump(log, clientConn, backendConn, "backend -> client")

	<-closeChan
}

func pump(log Logger, dst, src essentials.Conn, direction string) {
	defer src.CloseRead()  //nolint: errcheck
	defer dst.CloseWrite() //nolint: errcheck

	copyBuffer := acquireCopyBuffer()
	defer releaseCopyBuffer(copyBuffer)

	n, err := io.CopyBuffer(dst, src, *copyBuffer)

	switch {
	case err == nil:
		log.Printf("%s has been finished", direction)
	case errors.Is(err, io.EOF):
		log.Printf("%s has been finished because of EOF. Written %d bytes", direction, n)
	default:
		log.Printf("%s has been finished (written %d bytes): %v", direction, n, err)
	}
}
