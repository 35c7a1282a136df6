package shroudlib

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/akab00m/shroud/shroudlib/internal/fingerprint"
	"github.com/akab00m/shroud/shroudlib/internal/fragment"
	utls "github.com/refraction-networking/utls"
)

// DialTLS establishes a TLS connection with an active strategy: a
// browser fingerprint of a current rotation and, if the strategy needs
// it, a fragmented ClientHello. The result of the attempt is reported
// back to the orchestrator.
//
// An empty serverName means a host of the address.
func (o *Orchestrator) DialTLS(ctx context.Context, address, serverName string) (net.Conn, error) {
	if o.network == nil {
		return nil, ErrNetworkIsNotDefined
	}

	strategy := o.GetOptimalStrategy()
	started := time.Now()

	conn, err := o.dialTLS(ctx, strategy, address, serverName)

	o.ReportResult(strategy, err == nil, time.Since(started))

	if err != nil {
		return nil, err
	}

	return conn, nil
}

func (o *Orchestrator) dialTLS(ctx context.Context, strategy Strategy,
	address, serverName string,
) (net.Conn, error) {
	if serverName == "" {
		host, _, err := net.SplitHostPort(address)
		if err != nil {
			return nil, fmt.Errorf("incorrect address %s: %w", address, err)
		}

		serverName = host
	}

	conn, err := o.network.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("cannot dial to %s: %w", address, err)
	}

	var baseConn net.Conn = conn

	if strategy.Fragments() {
		baseConn = fragment.NewConn(conn, o.fragments, address)
	}

	fp := o.Fingerprint(true)
	tlsConn := utls.UClient(baseConn, &utls.Config{
		ServerName:         serverName,
		InsecureSkipVerify: o.tlsInsecureSkipVerify, //nolint: gosec
	}, fingerprint.HelloID(fp.Profile))

	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()

		return nil, fmt.Errorf("cannot perform tls handshake with %s: %w", address, err)
	}

	o.logger.
		BindStr("strategy", strategy.String()).
		BindStr("profile", fp.Profile.String()).
		Debug("tls connection has been established")

	return tlsConn, nil
}
