// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Scheduler is the core of the package: it owns the global operation queue,
// the mutex and wakeup event guarding it, the stopped/shutdown/
// task-interrupted flags, the outstanding-work counter, and the reactor
// reference. It implements the dequeue loop shared by Run, RunOne, WaitOne,
// Poll and PollOne, and the enqueue policies that give handler continuations
// same-thread locality without sacrificing cross-worker visibility.

package scheduler

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/kestrel-io/ioscheduler/internal/gls"
)

type dequeueMode int

const (
	modeRun dequeueMode = iota
	modeWaitOne
	modePoll
)

// Scheduler is the I/O-multiplexing task scheduler core.
type Scheduler struct {
	mu    sync.Mutex
	event *WakeupEvent

	queue    *OperationQueue
	sentinel *taskSentinel
	reactor  Reactor

	outstandingWork int64 // atomic

	stopped         bool
	shutdownFlag    atomic.Bool
	taskInterrupted bool
	oneThread       bool

	concurrencyHint int

	workers *gls.Registry[*threadContext]
}

// NewScheduler constructs a Scheduler with the given concurrency hint. It
// does not start any workers or install a reactor; callers drive it via
// Run/RunOne/etc. from their own goroutines and must call InitTask once a
// reactor is available.
func NewScheduler(concurrencyHint int) *Scheduler {
	s := &Scheduler{
		queue:   NewOperationQueue(),
		workers: gls.NewRegistry[*threadContext](),
	}
	s.event = NewWakeupEvent(&s.mu)
	s.sentinel = newTaskSentinel()
	s.Initialize(concurrencyHint)
	return s
}

// Initialize records the concurrency hint and derives one_thread_: true iff
// the hint promises at most one concurrent worker, in which case mutex
// locking around the fast enqueue path and private-queue draining may be
// (and is) elided.
func (s *Scheduler) Initialize(concurrencyHint int) {
	s.mu.Lock()
	s.concurrencyHint = concurrencyHint
	s.oneThread = concurrencyHint == 1
	s.mu.Unlock()
}

// InitTask installs the reactor reference and plants the sentinel. It
// returns ErrShutdown if the scheduler has already been shut down, and
// ErrReactorAlreadyInstalled if called again with a different reactor
// before a Shutdown; calling it again with the same reactor is a no-op.
func (s *Scheduler) InitTask(r Reactor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shutdownFlag.Load() {
		return ErrShutdown
	}
	if s.reactor != nil {
		if s.reactor != r {
			return ErrReactorAlreadyInstalled
		}
		return nil
	}
	s.reactor = r
	s.queue.PushBack(s.sentinel, 0)
	s.taskInterrupted = false
	return nil
}

// Run calls RunOne repeatedly until it returns 0, which happens only once the
// scheduler is stopped (by Stop or by outstanding work reaching zero),
// returning the number of handlers executed.
func (s *Scheduler) Run() (int, error) {
	count := 0
	for {
		n, err := s.RunOne()
		if err != nil {
			return count, err
		}
		if n == 0 {
			return count, nil
		}
		count++
	}
}

// RunOne executes at most one handler, blocking indefinitely on an empty
// queue until work arrives or the scheduler stops.
func (s *Scheduler) RunOne() (int, error) {
	tc, outermost := s.enterThreadContext()
	defer func() {
		if outermost {
			s.exitThreadContext(tc)
		}
	}()
	return s.doDequeue(modeRun, tc, 0)
}

// WaitOne executes at most one handler, blocking for at most d on an empty
// queue.
func (s *Scheduler) WaitOne(d time.Duration) (int, error) {
	tc, outermost := s.enterThreadContext()
	defer func() {
		if outermost {
			s.exitThreadContext(tc)
		}
	}()
	return s.doDequeue(modeWaitOne, tc, d)
}

// Poll drives the non-blocking dequeue loop until no more work is
// immediately available, returning the number of handlers executed.
func (s *Scheduler) Poll() (int, error) {
	count := 0
	for {
		n, err := s.PollOne()
		if err != nil {
			return count, err
		}
		if n == 0 {
			return count, nil
		}
		count++
	}
}

// PollOne executes at most one handler without blocking.
func (s *Scheduler) PollOne() (int, error) {
	tc, outermost := s.enterThreadContext()
	defer func() {
		if outermost {
			s.exitThreadContext(tc)
		}
	}()
	return s.doDequeue(modePoll, tc, 0)
}

// doDequeue implements the dequeue loop of spec §4.2. tc is the calling
// goroutine's already-registered thread context.
func (s *Scheduler) doDequeue(mode dequeueMode, tc *threadContext, wait time.Duration) (int, error) {
	waitedOnce := false
	for {
		s.mu.Lock()

		if s.stopped {
			s.mu.Unlock()
			return 0, nil
		}

		// A worker's own private queue (continuations posted by the
		// handler it is currently/most-recently running) takes priority
		// over the global queue: it requires no lock to drain and is how
		// one_thread_ mode achieves same-thread FIFO continuation order
		// without ever publishing to the global queue.
		if !tc.privateQueue.Empty() {
			op, taskResult, _ := tc.privateQueue.PopFront()
			s.mu.Unlock()
			s.runOperation(tc, op, taskResult)
			return 1, nil
		}

		op, taskResult, ok := s.queue.PeekFront()
		if !ok {
			switch mode {
			case modeRun:
				s.event.Clear()
				s.event.Wait()
				continue
			case modeWaitOne:
				if !waitedOnce {
					waitedOnce = true
					s.event.WaitFor(wait)
					continue
				}
				s.mu.Unlock()
				return 0, nil
			default: // modePoll
				s.mu.Unlock()
				return 0, nil
			}
		}

		if s.isSentinel(op) {
			s.queue.PopFront()
			more := !s.queue.Empty()
			s.taskInterrupted = more
			if more && !s.oneThread {
				s.event.UnlockAndSignalOne()
			} else {
				s.mu.Unlock()
			}

			var block int64
			switch {
			case mode == modePoll:
				block = 0
			case mode == modeRun && !more:
				block = -1
			case mode == modeWaitOne && !more:
				block = wait.Microseconds()
			default:
				block = 0
			}

			// A reactor failure never surfaces through the scheduler's own
			// return value (spec §7(ii)): it is the reactor's job to report
			// it via the operation it would otherwise have produced. All
			// three dequeue modes treat it identically here and simply
			// cycle the loop.
			//
			// The task-cleanup scope runs on every exit path via defer; if
			// the reactor panics, s.mu is released again so the
			// panic does not leave the scheduler locked.
			reactorReturned := false
			func() {
				defer func() {
					s.taskCleanup(tc) // reacquires s.mu and leaves it locked
					if !reactorReturned {
						s.mu.Unlock()
					}
				}()
				_, _ = s.reactor.Run(block, tc.privateQueue)
				reactorReturned = true
			}()

			if mode == modeRun {
				s.mu.Unlock()
				continue
			}

			op2, _, ok2 := s.queue.PeekFront()
			if !ok2 || s.isSentinel(op2) {
				if !s.oneThread {
					s.event.SignalOne()
				}
				s.mu.Unlock()
				return 0, nil
			}
			s.mu.Unlock()
			continue
		}

		// A real operation.
		s.queue.PopFront()
		more := !s.queue.Empty()
		if more && !s.oneThread {
			s.event.UnlockAndSignalOne()
		} else {
			s.mu.Unlock()
		}
		s.runOperation(tc, op, taskResult)
		return 1, nil
	}
}

// runOperation invokes op.Complete under the work-cleanup guard (spec
// §4.3b), which runs on every exit path including a panic, via defer.
func (s *Scheduler) runOperation(tc *threadContext, op Operation, taskResult uint64) {
	defer s.workCleanup(tc)
	op.Complete(s, nil, taskResult)
}

// taskCleanup implements spec §4.3a. Called with s.mu unlocked; returns with
// s.mu held, so the caller can continue the dequeue loop under the same
// lock it would otherwise have had to reacquire itself.
func (s *Scheduler) taskCleanup(tc *threadContext) {
	if tc.privateWork != 0 {
		atomic.AddInt64(&s.outstandingWork, tc.privateWork)
		tc.privateWork = 0
	}
	s.mu.Lock()
	s.taskInterrupted = true
	s.queue.PushQueueBack(tc.privateQueue)
	s.queue.PushBack(s.sentinel, 0)
}

// workCleanup implements spec §4.3b. Called with s.mu unlocked.
func (s *Scheduler) workCleanup(tc *threadContext) {
	delta := tc.privateWork
	tc.privateWork = 0
	switch {
	case delta > 1:
		atomic.AddInt64(&s.outstandingWork, delta-1)
	case delta < 1:
		s.WorkFinished()
	}
	if !s.oneThread && !tc.privateQueue.Empty() {
		s.mu.Lock()
		s.queue.PushQueueBack(tc.privateQueue)
		s.mu.Unlock()
	}
	// one_thread_ mode leaves tc.privateQueue unpublished here so a still-
	// active doDequeue loop can drain it locally (line ~182) without ever
	// touching the global queue. exitThreadContext is responsible for
	// publishing whatever is left once this tc is actually torn down.
}

// Stop sets stopped_, releases every waiter, and interrupts the reactor if a
// worker is currently inside it.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopAllThreadsLocked()
	s.mu.Unlock()
}

func (s *Scheduler) stopAllThreadsLocked() {
	s.stopped = true
	s.event.SignalAll()
	if !s.taskInterrupted && s.reactor != nil {
		s.taskInterrupted = true
		s.reactor.Interrupt()
	}
}

// Stopped reports whether the scheduler is currently stopped. It acquires
// the mutex to pair with Stop's release, per spec §5.
func (s *Scheduler) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// Restart clears stopped_ so that a subsequent Run/RunOne can process new
// work.
func (s *Scheduler) Restart() {
	s.mu.Lock()
	s.stopped = false
	s.mu.Unlock()
}

// WorkStarted increments the outstanding-work counter.
func (s *Scheduler) WorkStarted() {
	atomic.AddInt64(&s.outstandingWork, 1)
}

// WorkFinished decrements the outstanding-work counter. Reaching zero stops
// the scheduler: the next entry to any run* method returns 0.
func (s *Scheduler) WorkFinished() {
	if atomic.AddInt64(&s.outstandingWork, -1) == 0 {
		s.Stop()
	}
}

// CompensatingWorkStarted adds one to the calling goroutine's private
// outstanding-work delta if it is a registered worker, otherwise it falls
// through to a direct increment of the global counter.
func (s *Scheduler) CompensatingWorkStarted() {
	if tc, ok := s.currentThreadContext(); ok {
		tc.privateWork++
		return
	}
	atomic.AddInt64(&s.outstandingWork, 1)
}

// OutstandingWork returns the current value of the outstanding-work
// counter, mainly for diagnostics and tests.
func (s *Scheduler) OutstandingWork() int64 {
	return atomic.LoadInt64(&s.outstandingWork)
}

// PostImmediateCompletion enqueues op for eventual execution, incrementing
// outstanding work: directly on the global counter, or, when the fast path is
// taken, on the calling worker's private delta (spec §4.4).
func (s *Scheduler) PostImmediateCompletion(op Operation, isContinuation bool) {
	if s.shutdownFlag.Load() {
		op.Destroy()
		return
	}
	if s.oneThread || isContinuation {
		if tc, ok := s.currentThreadContext(); ok {
			tc.privateQueue.PushBack(op, 0)
			tc.privateWork++
			return
		}
	}
	atomic.AddInt64(&s.outstandingWork, 1)
	s.mu.Lock()
	s.queue.PushBack(op, 0)
	s.wakeOneThreadAndUnlock()
}

// PostDeferredCompletion enqueues op without incrementing outstanding work:
// the caller has already accounted for it via an earlier WorkStarted.
func (s *Scheduler) PostDeferredCompletion(op Operation) {
	if s.shutdownFlag.Load() {
		op.Destroy()
		return
	}
	if s.oneThread {
		if tc, ok := s.currentThreadContext(); ok {
			tc.privateQueue.PushBack(op, 0)
			return
		}
	}
	s.mu.Lock()
	s.queue.PushBack(op, 0)
	s.wakeOneThreadAndUnlock()
}

// PostDeferredCompletions is the batched form of PostDeferredCompletion: the
// whole queue splices in one shot, leaving ops empty.
func (s *Scheduler) PostDeferredCompletions(ops *OperationQueue) {
	if ops == nil || ops.Empty() {
		return
	}
	if s.shutdownFlag.Load() {
		for {
			op, _, ok := ops.PopFront()
			if !ok {
				break
			}
			op.Destroy()
		}
		return
	}
	if s.oneThread {
		if tc, ok := s.currentThreadContext(); ok {
			tc.privateQueue.PushQueueBack(ops)
			return
		}
	}
	s.mu.Lock()
	s.queue.PushQueueBack(ops)
	s.wakeOneThreadAndUnlock()
}

// DoDispatch unconditionally increments outstanding work and enqueues op
// globally, making it visible to any worker rather than pinning it to the
// caller's own private queue.
func (s *Scheduler) DoDispatch(op Operation) {
	if s.shutdownFlag.Load() {
		op.Destroy()
		return
	}
	atomic.AddInt64(&s.outstandingWork, 1)
	s.mu.Lock()
	s.queue.PushBack(op, 0)
	s.wakeOneThreadAndUnlock()
}

// AbandonOperations takes ownership of ops and discards them without
// running, used during forced teardown of sub-contexts.
func (s *Scheduler) AbandonOperations(ops *OperationQueue) {
	if ops == nil {
		return
	}
	for {
		op, _, ok := ops.PopFront()
		if !ok {
			break
		}
		op.Destroy()
	}
}

// Shutdown marks the scheduler shut down, destroys every operation left in
// the global queue (skipping the sentinel), and clears the reactor
// reference. It is idempotent; callers must ensure no worker is inside Run*
// when calling it.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shutdownFlag.Load() {
		return
	}
	s.shutdownFlag.Store(true)
	for {
		op, _, ok := s.queue.PopFront()
		if !ok {
			break
		}
		if s.isSentinel(op) {
			continue
		}
		op.Destroy()
	}
	s.reactor = nil
}

// wakeOneThreadAndUnlock implements spec §4.5: wake one waiter if present;
// otherwise, if the reactor is not already interrupted, interrupt it so a
// worker parked inside Run cycles back through the queue within bounded
// time. The caller must hold s.mu and must not use it again afterward.
func (s *Scheduler) wakeOneThreadAndUnlock() {
	if s.event.MaybeUnlockAndSignalOne() {
		return
	}
	if !s.taskInterrupted && s.reactor != nil {
		s.taskInterrupted = true
		s.reactor.Interrupt()
	}
	s.mu.Unlock()
}
