// Package essentials defines the small set of types every other package
// agrees on.
package essentials

import "net"

// CloseableReader is a reader whose read side can be shut down
// independently of the writer.
type CloseableReader interface {
	CloseRead() error
}

// CloseableWriter is a writer whose write side can be shut down
// independently of the reader.
type CloseableWriter interface {
	CloseWrite() error
}

// Conn is an extension of net.Conn that can close read and write parts
// separately. *net.TCPConn satisfies it.
type Conn interface {
	net.Conn
	CloseableReader
	CloseableWriter
}
