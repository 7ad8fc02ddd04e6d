// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The task sentinel is a process-unique, operation-shaped marker that
// reserves the reactor's slot in the global FIFO. It is distinguished purely
// by address identity: it is never completed, only popped, inspected and
// re-pushed. It is created with the scheduler and destroyed only at
// shutdown, and it is never counted as outstanding work.

package scheduler

type taskSentinel struct{}

func (s *taskSentinel) Complete(*Scheduler, error, uint64) {
	panic("scheduler: task sentinel must never be completed")
}

func (s *taskSentinel) Destroy() {}

func newTaskSentinel() *taskSentinel {
	return &taskSentinel{}
}

// isSentinel reports whether op is this scheduler's sentinel, by address
// identity — the invariant the FIFO relies on to reserve the reactor slot.
func (s *Scheduler) isSentinel(op Operation) bool {
	sentinel, ok := op.(*taskSentinel)
	return ok && sentinel == s.sentinel
}
