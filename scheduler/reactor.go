// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Reactor is the external collaborator that translates OS readiness events
// into operations. The scheduler never calls an OS poll primitive directly;
// it only ever calls Run under the protection of the sentinel, and
// Interrupt when it needs to force a blocked worker back out.

package scheduler

// Reactor drains ready I/O events into operations.
type Reactor interface {
	// Run drains currently-ready events into out, appending zero or more
	// operations. blockUsec < 0 blocks indefinitely, 0 is non-blocking,
	// >0 bounds the wait in microseconds. Returns the number of operations
	// appended.
	Run(blockUsec int64, out *OperationQueue) (produced int, err error)

	// Interrupt is idempotent and causes a concurrently blocked Run to
	// return promptly without producing new operations.
	Interrupt()
}
