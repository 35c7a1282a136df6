package network

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/akab00m/shroud/essentials"
)

type defaultDialer struct {
	net.Dialer
}

func (d *defaultDialer) Dial(network, address string) (essentials.Conn, error) {
	return d.DialContext(context.Background(), network, address)
}

func (d *defaultDialer) DialContext(ctx context.Context, network, address string) (essentials.Conn, error) {
	switch network {
	case "tcp", "tcp4", "tcp6": //nolint: goconst
	default:
		return nil, fmt.Errorf("unsupported network %s", network)
	}

	conn, err := d.Dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, fmt.Errorf("cannot dial to %s: %w", address, err)
	}

	if err := SetServerSocketOptions(conn); err != nil {
		conn.Close()

		return nil, fmt.Errorf("cannot set socket options: %w", err)
	}

	return conn.(essentials.Conn), nil //nolint: forcetypeassert
}

// NewDefaultDialer build a new dialer which dials bypassing proxies
// etc.
//
// Connections have TCP_NODELAY: fragments of a ClientHello are sent as
// separate segments only if Nagle does not glue them back.
func NewDefaultDialer(timeout time.Duration) (Dialer, error) {
	switch {
	case timeout < 0:
		return nil, fmt.Errorf("timeout %v should be positive number", timeout)
	case timeout == 0:
		timeout = DefaultTimeout
	}

	return &defaultDialer{
		Dialer: net.Dialer{
			Timeout: timeout,
		},
	}, nil
}
