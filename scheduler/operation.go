// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package scheduler

import "sync"

// Operation is an opaque unit of deferred work with a single completion
// entry point. Exclusive ownership transfers to the scheduler on enqueue;
// Complete or Destroy is called exactly once, and the operation must not be
// referenced afterward.
type Operation interface {
	// Complete consumes the operation, running its handler logic. taskResult
	// is set by the reactor before enqueue for I/O-derived operations and is
	// unused (zero) for plain posted handlers.
	Complete(s *Scheduler, err error, taskResult uint64)

	// Destroy releases the operation without running it, used by Shutdown
	// and AbandonOperations.
	Destroy()
}

// opNode is the intrusive-style link wrapper used by OperationQueue. Nodes
// are pooled so push/splice/pop never allocate on the steady-state path.
type opNode struct {
	op         Operation
	taskResult uint64
	next       *opNode
}

var opNodePool = sync.Pool{New: func() any { return new(opNode) }}

func getOpNode(op Operation, taskResult uint64) *opNode {
	n := opNodePool.Get().(*opNode)
	n.op = op
	n.taskResult = taskResult
	n.next = nil
	return n
}

func putOpNode(n *opNode) {
	n.op = nil
	n.next = nil
	opNodePool.Put(n)
}
