//go:build !linux

package relay

import "net"

// TCP_QUICKACK и TCP_USER_TIMEOUT есть только в Linux.

func setTCPNoDelay(conn net.Conn) {
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		_ = tcpConn.SetNoDelay(true)
	}
}

func setTCPQuickACK(conn net.Conn) {}

func setTCPUserTimeout(conn net.Conn, timeoutMs int) {}
