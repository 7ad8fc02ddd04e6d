// File: server/run.go
// Package server implements the core server startup, connection acceptor,
// and graceful shutdown for the scheduler's lowlevel server wiring.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"context"
	"net"
)

// getFD extracts the raw file descriptor backing a *net.TCPConn so it can
// be registered with the reactor directly.
func getFD(c *net.TCPConn) uintptr {
	raw, err := c.SyscallConn()
	var fd uintptr
	if err == nil {
		raw.Control(func(f uintptr) { fd = f })
	}
	return fd
}

// Run starts the server: it launches the io scheduler's worker loop —
// which drains the installed reactor on every cycle that finds no other
// work pending, so no separate poll-tick operation is needed — then begins
// accepting connections and blocks until Shutdown is called.
func (s *Server) Run(handler ConnHandler) error {
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		_, _ = s.ioScheduler.Run()
	}()

	go func() {
		for {
			conn, err := s.listener.AcceptTCP()
			if err != nil {
				return
			}
			if !s.incConn() {
				conn.Close()
				continue
			}

			c := &Conn{fd: getFD(conn), raddr: conn.RemoteAddr(), srv: s, cb: handler}
			s.ioReactor.Register(c.fd, c)
			// Wake a reactor that may already be blocked in Wait so this
			// connection's registration is applied on the next cycle
			// instead of sitting pending until the next unrelated event.
			s.ioReactor.Interrupt()
		}
	}()

	<-s.shutdownCh

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.listener.Close()
	s.ioScheduler.Stop()
	// Shutdown requires that no worker is inside Run: wait for the worker
	// loop to return, for at most ShutdownTimeout.
	select {
	case <-workerDone:
	case <-ctx.Done():
	}
	s.ioScheduler.Shutdown()
	_ = s.ioReactor.Close()
	return nil
}

// Shutdown signals Run to stop accepting and processing.
func (s *Server) Shutdown() {
	close(s.shutdownCh)
}
