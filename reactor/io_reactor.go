// File: reactor/io_reactor.go
// Author: momentics <momentics@gmail.com>
//
// IOReactor adapts the platform EventReactor (epoll on Linux, IOCP on
// Windows) to the scheduler.Reactor contract: it drains readiness events
// into operations and supports a concurrent, idempotent interrupt of a
// blocked Wait.

package reactor

import (
	"sync"

	"github.com/eapache/queue"
	"github.com/kestrel-io/ioscheduler/scheduler"
)

// FDHandler is a long-lived per-descriptor callback invoked once for each
// readiness event delivered against the descriptor it was registered with.
// Unlike scheduler.Operation, a handler is reused across many events; the
// reactor wraps each firing in a fresh one-shot Operation around it.
type FDHandler interface {
	OnReady(mask EventMask)
}

// pendingRegistration is a deferred Register/Unregister request applied at
// the top of the next Run call, so callers on other goroutines never touch
// the underlying epoll/IOCP set directly while a Wait may be in flight.
type pendingRegistration struct {
	fd      uintptr
	handler FDHandler
	remove  bool
}

var _ scheduler.Reactor = (*IOReactor)(nil)

// IOReactor implements scheduler.Reactor over a platform EventReactor.
type IOReactor struct {
	events EventReactor
	wake   *interruptFd

	handlersMu sync.RWMutex
	handlers   map[uintptr]FDHandler

	pendingMu sync.Mutex
	pending   *queue.Queue

	interrupted bool
	buf         []Event
}

// NewIOReactor constructs an IOReactor over the platform-appropriate
// EventReactor, with eventfd (Linux) or completion-key (Windows) backed
// interrupt support.
func NewIOReactor() (*IOReactor, error) {
	events, err := NewReactor()
	if err != nil {
		return nil, err
	}
	wake, err := newInterrupt(events)
	if err != nil {
		_ = events.Close()
		return nil, err
	}
	return &IOReactor{
		events:   events,
		wake:     wake,
		handlers: make(map[uintptr]FDHandler),
		pending:  queue.New(),
		buf:      make([]Event, 128),
	}, nil
}

// Register arranges for handler to be invoked once per readiness event
// delivered against fd. Safe to call concurrently with Run.
func (r *IOReactor) Register(fd uintptr, handler FDHandler) {
	r.pendingMu.Lock()
	r.pending.Add(pendingRegistration{fd: fd, handler: handler})
	r.pendingMu.Unlock()
}

// Unregister stops delivering events for fd. Safe to call concurrently
// with Run.
func (r *IOReactor) Unregister(fd uintptr) {
	r.pendingMu.Lock()
	r.pending.Add(pendingRegistration{fd: fd, remove: true})
	r.pendingMu.Unlock()
}

func (r *IOReactor) applyPending() {
	r.pendingMu.Lock()
	n := r.pending.Length()
	regs := make([]pendingRegistration, 0, n)
	for i := 0; i < n; i++ {
		regs = append(regs, r.pending.Remove().(pendingRegistration))
	}
	r.pendingMu.Unlock()

	if len(regs) == 0 {
		return
	}
	r.handlersMu.Lock()
	defer r.handlersMu.Unlock()
	for _, reg := range regs {
		if reg.remove {
			delete(r.handlers, reg.fd)
			continue
		}
		r.handlers[reg.fd] = reg.handler
		_ = r.events.Register(reg.fd, reg.fd)
	}
}

// Run implements scheduler.Reactor. blockUsec < 0 blocks indefinitely, 0 is
// non-blocking, > 0 bounds the wait in microseconds (rounded up to whole
// milliseconds, the underlying syscalls' granularity).
func (r *IOReactor) Run(blockUsec int64, out *scheduler.OperationQueue) (int, error) {
	r.applyPending()

	timeoutMs := -1
	switch {
	case blockUsec == 0:
		timeoutMs = 0
	case blockUsec > 0:
		timeoutMs = int((blockUsec + 999) / 1000)
	}

	n, err := r.events.Wait(r.buf, timeoutMs)
	if err != nil {
		return 0, err
	}

	r.handlersMu.Lock()
	r.interrupted = false
	r.handlersMu.Unlock()

	produced := 0
	for i := 0; i < n; i++ {
		ev := r.buf[i]
		if r.wake.IsInterrupt(ev) {
			r.wake.Drain()
			continue
		}
		r.handlersMu.RLock()
		handler, ok := r.handlers[ev.Fd]
		r.handlersMu.RUnlock()
		if !ok {
			continue
		}
		out.PushBack(newFDReadyOp(handler, ev.Mask), 0)
		produced++
	}
	return produced, nil
}

// Interrupt wakes a concurrently blocked Run. Idempotent and safe to call
// from any goroutine, including one not registered with the scheduler.
func (r *IOReactor) Interrupt() {
	r.handlersMu.Lock()
	already := r.interrupted
	r.interrupted = true
	r.handlersMu.Unlock()
	if already {
		return
	}
	_ = r.wake.Write()
}

// Close releases the underlying epoll/IOCP resources and the interrupt fd.
func (r *IOReactor) Close() error {
	_ = r.wake.Close()
	return r.events.Close()
}

type fdReadyOp struct {
	handler FDHandler
	mask    EventMask
}

var fdReadyOpPool = sync.Pool{New: func() any { return new(fdReadyOp) }}

func newFDReadyOp(handler FDHandler, mask EventMask) *fdReadyOp {
	op := fdReadyOpPool.Get().(*fdReadyOp)
	op.handler = handler
	op.mask = mask
	return op
}

func (o *fdReadyOp) Complete(_ *scheduler.Scheduler, _ error, _ uint64) {
	handler, mask := o.handler, o.mask
	o.handler = nil
	fdReadyOpPool.Put(o)
	handler.OnReady(mask)
}

func (o *fdReadyOp) Destroy() {
	o.handler = nil
	fdReadyOpPool.Put(o)
}
