//go:build windows
// +build windows

// File: reactor/interrupt_windows.go
// Author: momentics <momentics@gmail.com>
//
// PostQueuedCompletionStatus-backed interrupt for the Windows IOCP reactor:
// posting a zero-byte completion with a reserved key wakes a thread parked
// in GetQueuedCompletionStatus without touching any registered handle.

package reactor

import (
	"errors"

	"golang.org/x/sys/windows"
)

var errInterruptUnsupported = errors.New("reactor: interrupt requires a windows IOCP reactor")

// interruptUserData is a completion key value no real registered handle
// will ever be assigned, reserved to distinguish wakeups from I/O
// completions.
const interruptUserData = ^uintptr(0)

type interruptFd struct {
	iocp windows.Handle
}

// newInterrupt reserves the wakeup completion key on events' IOCP.
func newInterrupt(events EventReactor) (*interruptFd, error) {
	wr, ok := events.(*windowsReactor)
	if !ok {
		return nil, errInterruptUnsupported
	}
	return &interruptFd{iocp: wr.iocp}, nil
}

// Write posts a wakeup completion.
func (i *interruptFd) Write() error {
	return windows.PostQueuedCompletionStatus(i.iocp, 0, interruptUserData, nil)
}

// IsInterrupt reports whether ev originated from the wakeup completion
// rather than a registered I/O completion.
func (i *interruptFd) IsInterrupt(ev Event) bool {
	return ev.UserData == interruptUserData
}

// Drain is a no-op on Windows: PostQueuedCompletionStatus delivers exactly
// one completion per Write, with no persistent counter to empty.
func (i *interruptFd) Drain() {}

// Close is a no-op: the wakeup key does not own any handle of its own, the
// IOCP it was registered against belongs to the reactor.
func (i *interruptFd) Close() error { return nil }
