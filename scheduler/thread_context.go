// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// threadContext is the per-worker state registered with a Scheduler while a
// goroutine is inside Run/RunOne/WaitOne/Poll/PollOne: a private operation
// queue used to batch enqueues originating from the currently executing
// handler, and a private delta folded into the global outstanding-work
// counter at well-defined cleanup points.

package scheduler

// threadContext holds one worker's private state for the duration of a
// single Run*/Poll*/WaitOne call (re-entrant nested calls on the same
// goroutine, per spec §4.4, reuse the existing registration).
type threadContext struct {
	scheduler    *Scheduler
	privateQueue *OperationQueue
	privateWork  int64 // unpublished delta to outstanding-work counter
	depth        int   // nesting depth, for reentrant Poll/PollOne
}

func newThreadContext(s *Scheduler) *threadContext {
	return &threadContext{scheduler: s, privateQueue: NewOperationQueue()}
}

// enter registers ctx for the calling goroutine, or increments the nesting
// depth of an already-registered context (nested Poll/PollOne calls).
// Returns the active context and whether this call created the outermost
// registration.
func (s *Scheduler) enterThreadContext() (*threadContext, bool) {
	if tc, ok := s.workers.Get(); ok {
		tc.depth++
		// A reentrant poll on the same goroutine while one_thread_ is set
		// must not leave the outer worker's pending continuations stranded
		// in a private queue nobody will drain: publish them to the global
		// queue before the nested call starts consulting it.
		if s.oneThread && !tc.privateQueue.Empty() {
			s.mu.Lock()
			s.queue.PushQueueBack(tc.privateQueue)
			s.mu.Unlock()
		}
		return tc, false
	}
	tc := newThreadContext(s)
	tc.depth = 1
	s.workers.Set(tc)
	return tc, true
}

// exit decrements the nesting depth and, once it reaches zero, unregisters
// the context for the calling goroutine. one_thread_ mode deliberately leaves
// continuations posted during the handler that just ran sitting in
// tc.privateQueue (workCleanup's splice is skipped in that mode, see
// workCleanup) on the assumption that the same tc will be consulted again
// before it is torn down. That assumption fails whenever the caller drives
// repeated work through separate top-level calls — Run's own loop over
// RunOne, Poll's loop over PollOne, or a caller looping WaitOne — since each
// such call registers and tears down its own threadContext. Publish any
// residual queue content to the global queue before discarding tc so it is
// picked up by whatever call comes next instead of leaking, undestroyed,
// with the scheduler package accounting for it forever.
func (s *Scheduler) exitThreadContext(tc *threadContext) {
	tc.depth--
	if tc.depth != 0 {
		return
	}
	if !tc.privateQueue.Empty() {
		s.mu.Lock()
		s.queue.PushQueueBack(tc.privateQueue)
		s.wakeOneThreadAndUnlock()
	}
	s.workers.Clear()
}

// currentThreadContext returns the calling goroutine's registered context,
// if it is currently a worker of s.
func (s *Scheduler) currentThreadContext() (*threadContext, bool) {
	return s.workers.Get()
}
