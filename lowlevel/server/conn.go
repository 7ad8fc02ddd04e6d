// File: server/conn.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Conn bridges an accepted TCP connection's raw file descriptor to
// reactor.FDHandler, so reads arrive as readiness events rather than via a
// blocking goroutine per connection.

package server

import (
	"net"
	"sync/atomic"

	"github.com/kestrel-io/ioscheduler/reactor"
)

// ConnHandler receives connection lifecycle and data events. Methods are
// invoked from the scheduler's own goroutine(s); implementations must not
// block.
type ConnHandler interface {
	OnData(c *Conn, data []byte)
	OnClose(c *Conn)
}

// Conn represents one accepted connection registered with a Server's
// reactor.IOReactor. It implements reactor.FDHandler.
type Conn struct {
	fd     uintptr
	raddr  net.Addr
	srv    *Server
	cb     ConnHandler
	closed atomic.Bool
}

var _ reactor.FDHandler = (*Conn)(nil)

// RemoteAddr returns the connection's remote address.
func (c *Conn) RemoteAddr() net.Addr { return c.raddr }

// Write writes b directly to the underlying socket.
func (c *Conn) Write(b []byte) (int, error) {
	return writeFD(c.fd, b)
}

// Close tears down the connection and unregisters it from the reactor. It
// is idempotent.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.srv.ioReactor.Unregister(c.fd)
	c.srv.decConn()
	err := closeFD(c.fd)
	c.cb.OnClose(c)
	return err
}

// OnReady implements reactor.FDHandler: a readiness event fired for c.fd.
func (c *Conn) OnReady(mask reactor.EventMask) {
	if c.closed.Load() {
		return
	}
	if mask&reactor.EventError != 0 {
		c.Close()
		return
	}
	if mask&reactor.EventRead != 0 {
		buf := make([]byte, 4096)
		n, err := readFD(c.fd, buf)
		if err != nil || n == 0 {
			c.Close()
			return
		}
		c.cb.OnData(c, buf[:n])
	}
}
