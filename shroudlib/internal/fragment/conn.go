package fragment

import (
	"sync"

	"github.com/akab00m/shroud/essentials"
)

// Conn fragments the first write of a connection if it is a ClientHello.
// All further writes go straight to the underlying connection.
type Conn struct {
	essentials.Conn

	engine   *Engine
	destAddr string
	once     sync.Once
}

func (c *Conn) Write(p []byte) (int, error) {
	written := false

	var err error

	c.once.Do(func() {
		written = true
		err = c.engine.FragmentAndSend(c.Conn, p, c.destAddr)
	})

	if !written {
		return c.Conn.Write(p) //nolint: wrapcheck
	}

	if err != nil {
		return 0, err
	}

	return len(p), nil
}

// NewConn wraps a connection. destAddr is used by adaptive strategy
// selection; pass an empty string to use a remote address.
func NewConn(conn essentials.Conn, engine *Engine, destAddr string) *Conn {
	if destAddr == "" && conn.RemoteAddr() != nil {
		destAddr = conn.RemoteAddr().String()
	}

	return &Conn{
		Conn:     conn,
		engine:   engine,
		destAddr: destAddr,
	}
}
