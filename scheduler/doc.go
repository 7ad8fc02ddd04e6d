// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package scheduler implements the I/O-multiplexing task scheduler at the
// core of ioscheduler: a global FIFO of operations, per-worker private
// queues for locality, a sentinel that reserves the reactor's slot in the
// FIFO, and a wakeup primitive used both to coordinate idle workers and to
// interrupt a worker parked inside the reactor.
package scheduler
