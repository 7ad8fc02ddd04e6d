// File: server/server.go
// Package server runs a TCP accept loop over the io-multiplexing scheduler:
// each accepted connection's raw file descriptor is registered with the
// scheduler's reactor, so reads are driven by epoll/IOCP readiness rather
// than a dedicated goroutine per connection.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/kestrel-io/ioscheduler/reactor"
	"github.com/kestrel-io/ioscheduler/scheduler"
)

var ErrAlreadyRunning = errors.New("server already running")

// Server accepts TCP connections and drives their I/O through an
// io-multiplexing scheduler.Scheduler bound to a reactor.IOReactor.
type Server struct {
	cfg      *Config
	listener *net.TCPListener

	ioReactor   *reactor.IOReactor
	ioScheduler *scheduler.Scheduler

	shutdownCh chan struct{}
	connMu     sync.Mutex
	connCount  int64
}

// NewServer constructs a Server bound to cfg.ListenAddr, with its own
// reactor and scheduler pair.
func NewServer(cfg *Config, opts ...ServerOption) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", cfg.ListenAddr, err)
	}
	tcpLn, ok := ln.(*net.TCPListener)
	if !ok {
		ln.Close()
		return nil, fmt.Errorf("server: %s did not yield a TCP listener", cfg.ListenAddr)
	}

	ioReactor, err := reactor.NewIOReactor()
	if err != nil {
		tcpLn.Close()
		return nil, fmt.Errorf("io reactor init failure: %w", err)
	}
	ioSched := scheduler.NewScheduler(cfg.SchedulerWorkers)
	if err := ioSched.InitTask(ioReactor); err != nil {
		ioReactor.Close()
		tcpLn.Close()
		return nil, fmt.Errorf("io scheduler init failure: %w", err)
	}

	srv := &Server{
		cfg:         cfg,
		listener:    tcpLn,
		ioReactor:   ioReactor,
		ioScheduler: ioSched,
		shutdownCh:  make(chan struct{}),
	}

	for _, opt := range opts {
		opt(srv)
	}

	return srv, nil
}

// GetIOScheduler exposes the scheduler driving this server's connections,
// for callers that need to post their own completions onto the same loop.
func (s *Server) GetIOScheduler() *scheduler.Scheduler {
	return s.ioScheduler
}

// ActiveConnections returns the current number of accepted connections.
func (s *Server) ActiveConnections() int64 {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	return s.connCount
}

func (s *Server) incConn() bool {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.cfg.MaxConnections > 0 && s.connCount >= int64(s.cfg.MaxConnections) {
		return false
	}
	s.connCount++
	return true
}

func (s *Server) decConn() {
	s.connMu.Lock()
	s.connCount--
	s.connMu.Unlock()
}
