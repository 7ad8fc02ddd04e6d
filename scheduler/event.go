// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// WakeupEvent is a condition-variable-like primitive bound to the
// scheduler's mutex. It adds, on top of sync.Cond, a bounded WaitFor and the
// fused unlock-and-signal operations the scheduler's fairness hand-off
// (spec §4.2, §4.5) relies on to avoid a lost-wakeup window between
// signaling a waiter and releasing the lock.
//
// Grounded on the sync.Cond-bound-to-a-mutex idiom used by
// other_examples/ava-labs-Simplex's scheduler: the condition variable is
// always waited on and signaled with its lock held.

package scheduler

import (
	"sync"
	"time"
)

// WakeupEvent wraps a sync.Cond bound to an externally owned mutex.
type WakeupEvent struct {
	mu      *sync.Mutex
	cond    *sync.Cond
	waiting int
}

// NewWakeupEvent binds a new event to mu. mu must be the same mutex the
// caller holds across Wait/Signal calls.
func NewWakeupEvent(mu *sync.Mutex) *WakeupEvent {
	return &WakeupEvent{mu: mu, cond: sync.NewCond(mu)}
}

// Wait blocks the calling goroutine, atomically releasing mu and reacquiring
// it before returning. The caller must hold mu.
func (e *WakeupEvent) Wait() {
	e.waiting++
	e.cond.Wait()
	e.waiting--
}

// WaitFor blocks for at most d, atomically releasing mu for the duration of
// the wait and reacquiring it before returning. Reports whether it returned
// because of a signal (true) or because the timeout elapsed (false). The
// caller must hold mu.
func (e *WakeupEvent) WaitFor(d time.Duration) bool {
	if d <= 0 {
		return false
	}
	timedOut := false
	timer := time.AfterFunc(d, func() {
		e.mu.Lock()
		timedOut = true
		e.cond.Broadcast()
		e.mu.Unlock()
	})
	defer timer.Stop()

	e.waiting++
	e.cond.Wait()
	e.waiting--
	return !timedOut
}

// Clear is a no-op placeholder kept for parity with the specified contract;
// this implementation carries no extra "signaled" state to reset, since
// sync.Cond already only wakes goroutines that are actually parked in Wait.
func (e *WakeupEvent) Clear() {}

// SignalOne releases one waiting goroutine, if any. The caller must hold mu.
func (e *WakeupEvent) SignalOne() {
	e.cond.Signal()
}

// SignalAll releases every waiting goroutine. The caller must hold mu.
func (e *WakeupEvent) SignalAll() {
	e.cond.Broadcast()
}

// HasWaiters reports whether any goroutine is currently parked in Wait.
func (e *WakeupEvent) HasWaiters() bool {
	return e.waiting > 0
}

// UnlockAndSignalOne wakes one waiter (if any) and releases mu. The caller
// must hold mu and must not use it again without re-locking.
func (e *WakeupEvent) UnlockAndSignalOne() {
	e.cond.Signal()
	e.mu.Unlock()
}

// MaybeUnlockAndSignalOne wakes one waiter and releases mu, reporting true,
// only if a waiter was present; otherwise it leaves mu held and returns
// false so the caller can decide whether to interrupt the reactor instead
// before unlocking itself.
func (e *WakeupEvent) MaybeUnlockAndSignalOne() bool {
	if e.waiting == 0 {
		return false
	}
	e.cond.Signal()
	e.mu.Unlock()
	return true
}
