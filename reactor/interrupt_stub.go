//go:build !linux && !windows
// +build !linux,!windows

// File: reactor/interrupt_stub.go
// Author: momentics <momentics@gmail.com>

package reactor

import "errors"

type interruptFd struct{}

func newInterrupt(events EventReactor) (*interruptFd, error) {
	return nil, errors.New("reactor: this platform is not supported")
}

func (i *interruptFd) Write() error { return errors.New("reactor: this platform is not supported") }

func (i *interruptFd) IsInterrupt(ev Event) bool { return false }

func (i *interruptFd) Drain() {}

func (i *interruptFd) Close() error { return nil }
