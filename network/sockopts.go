package network

import (
	"fmt"
	"net"
)

// SetClientSocketOptions tunes a TCP socket accepted from a client of a
// gateway.
func SetClientSocketOptions(conn net.Conn) error {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}

	return setCommonSocketOptions(tcpConn)
}

// SetServerSocketOptions tunes a TCP socket that represents an outgoing
// connection: to a backend, a proxy or a destination of an evasive dial.
func SetServerSocketOptions(conn net.Conn) error {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}

	return setCommonSocketOptions(tcpConn)
}

func setCommonSocketOptions(conn *net.TCPConn) error {
	// TCP_NODELAY: каждый Write фрагментатора уходит отдельным сегментом.
	if err := conn.SetNoDelay(true); err != nil {
		return fmt.Errorf("cannot set TCP_NODELAY: %w", err)
	}

	if err := conn.SetKeepAlive(true); err != nil {
		return fmt.Errorf("cannot enable TCP keepalive: %w", err)
	}

	if err := conn.SetKeepAlivePeriod(DefaultTCPKeepAlivePeriod); err != nil {
		return fmt.Errorf("cannot set time period of TCP keepalive probes: %w", err)
	}

	if err := conn.SetLinger(tcpLingerTimeout); err != nil {
		return fmt.Errorf("cannot set TCP linger timeout: %w", err)
	}

	rawConn, err := conn.SyscallConn()
	if err != nil {
		return fmt.Errorf("cannot get underlying raw connection: %w", err)
	}

	if err := setSocketReuseAddrPort(rawConn); err != nil {
		return fmt.Errorf("cannot setup SO_REUSEADDR/PORT: %w", err)
	}

	return nil
}
