//go:build linux

package relay

import (
	"net"

	"golang.org/x/sys/unix"
)

func withSocket(conn net.Conn, fn func(fd int)) {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return
	}

	rawConn, err := tcpConn.SyscallConn()
	if err != nil {
		return
	}

	rawConn.Control(func(fd uintptr) { //nolint: errcheck
		fn(int(fd))
	})
}

func setTCPNoDelay(conn net.Conn) {
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		_ = tcpConn.SetNoDelay(true)
	}
}

// setTCPQuickACK включает немедленную отправку ACK.
func setTCPQuickACK(conn net.Conn) {
	withSocket(conn, func(fd int) {
		_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_QUICKACK, 1) //nolint: nosnakecase
	})
}

// setTCPUserTimeout закрывает соединение, если данные не подтверждены за
// timeoutMs. Без этого мёртвые соединения висят до retransmit timeout.
func setTCPUserTimeout(conn net.Conn, timeoutMs int) {
	withSocket(conn, func(fd int) {
		_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_USER_TIMEOUT, timeoutMs) //nolint: nosnakecase
	})
}
