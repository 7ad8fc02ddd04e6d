//go:build linux
// +build linux

// File: reactor/interrupt_linux.go
// Author: momentics <momentics@gmail.com>
//
// Eventfd-backed interrupt for the Linux epoll reactor, grounded on the
// eventfd wakeup-pipe idiom (register the fd for read-readiness, write 8
// bytes to wake, drain on the way out).

package reactor

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// interruptFd is an eventfd registered with the reactor's epoll instance so
// that a concurrently blocked Wait returns promptly when Write is called.
type interruptFd struct {
	fd int
}

// interruptUserData is the reserved userData value the interrupt eventfd is
// registered with.
const interruptUserData = ^uintptr(0)

// newInterrupt registers an eventfd with events for wakeup use.
func newInterrupt(events EventReactor) (*interruptFd, error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return nil, err
	}
	if err := events.Register(uintptr(fd), interruptUserData); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	return &interruptFd{fd: fd}, nil
}

// IsInterrupt reports whether ev originated from the interrupt eventfd
// rather than a registered I/O descriptor.
func (i *interruptFd) IsInterrupt(ev Event) bool {
	return ev.Fd == uintptr(i.fd)
}

// Write wakes any goroutine blocked in the reactor's Wait.
func (i *interruptFd) Write() error {
	var one uint64 = 1
	buf := (*[8]byte)(unsafe.Pointer(&one))[:]
	_, err := unix.Write(i.fd, buf)
	return err
}

// Drain empties the eventfd counter so repeated interrupts do not pile up
// readiness notifications beyond the one pending wakeup.
func (i *interruptFd) Drain() {
	var buf [8]byte
	for {
		_, err := unix.Read(i.fd, buf[:])
		if err != nil {
			return
		}
	}
}

func (i *interruptFd) Close() error {
	return unix.Close(i.fd)
}
