// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// High-precision timer scheduler: a min-heap of pending callbacks drained by
// a single goroutine, woken early whenever a new task lands at the head of
// the heap. This is the api.Scheduler used for heartbeats and timeouts; it is
// unrelated to the io-multiplexing scheduler package, which drives readiness
// events rather than wall-clock deadlines.

package concurrency

import (
	"container/heap"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kestrel-io/ioscheduler/api"
)

var errTaskCanceled = errors.New("concurrency: task canceled")

type timerTask struct {
	deadline int64 // UnixNano
	fn       func()
	index    int // heap index, maintained by container/heap
	canceled atomic.Bool
	done     chan struct{}
	err      error
}

// Cancel marks the task canceled; it is a no-op once the task has fired.
func (t *timerTask) Cancel() error {
	select {
	case <-t.done:
		return t.err
	default:
	}
	t.canceled.Store(true)
	return nil
}

func (t *timerTask) Done() <-chan struct{} { return t.done }
func (t *timerTask) Err() error            { return t.err }

var _ api.Cancelable = (*timerTask)(nil)

type taskHeap []*timerTask

func (h taskHeap) Len() int          { return len(h) }
func (h taskHeap) Less(i, j int) bool { return h[i].deadline < h[j].deadline }
func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *taskHeap) Push(x any) {
	t := x.(*timerTask)
	t.index = len(*h)
	*h = append(*h, t)
}
func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}

// Scheduler runs scheduled callbacks on a dedicated goroutine, ordered by
// deadline via a binary heap so the earliest-due task is always O(1) to
// inspect.
type Scheduler struct {
	mu     sync.Mutex
	timerQ taskHeap
	notify chan struct{}
	stop   chan struct{}
}

var _ api.Scheduler = (*Scheduler)(nil)

// NewScheduler constructs and starts a Scheduler.
func NewScheduler() *Scheduler {
	s := &Scheduler{
		notify: make(chan struct{}, 1),
		stop:   make(chan struct{}),
	}
	go s.run()
	return s
}

// Schedule arranges for fn to run after delayNanos has elapsed.
func (s *Scheduler) Schedule(delayNanos int64, fn func()) (api.Cancelable, error) {
	if fn == nil {
		return nil, errors.New("concurrency: nil callback")
	}
	t := &timerTask{
		deadline: time.Now().UnixNano() + delayNanos,
		fn:       fn,
		done:     make(chan struct{}),
	}
	s.mu.Lock()
	heap.Push(&s.timerQ, t)
	wasHead := s.timerQ[0] == t
	s.mu.Unlock()
	if wasHead {
		s.wake()
	}
	return t, nil
}

// Cancel aborts a previously scheduled task if it has not yet fired.
func (s *Scheduler) Cancel(c api.Cancelable) error {
	return c.Cancel()
}

// clockBase is the fixed origin Now measures monotonic time from.
var clockBase = time.Now()

// Now returns monotonic time in nanoseconds, measured from package
// initialization.
func (s *Scheduler) Now() int64 {
	return int64(time.Since(clockBase))
}

// Stop halts the scheduler's goroutine; scheduled callbacks that have not
// fired yet are never run.
func (s *Scheduler) Stop() {
	close(s.stop)
}

func (s *Scheduler) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Scheduler) run() {
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		s.mu.Lock()
		if s.timerQ.Len() == 0 {
			s.mu.Unlock()
			select {
			case <-s.notify:
				continue
			case <-s.stop:
				return
			}
		}

		next := s.timerQ[0]
		wait := time.Duration(next.deadline - time.Now().UnixNano())
		if wait > 0 {
			s.mu.Unlock()
			timer.Reset(wait)
			select {
			case <-timer.C:
			case <-s.notify:
				timer.Stop()
			case <-s.stop:
				timer.Stop()
				return
			}
			continue
		}

		task := heap.Pop(&s.timerQ).(*timerTask)
		s.mu.Unlock()

		if task.canceled.Load() {
			task.err = errTaskCanceled
			close(task.done)
			continue
		}
		task.fn()
		close(task.done)
	}
}
