// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package scheduler

import "errors"

// Sentinel errors returned by the scheduler's public contract.
var (
	// ErrShutdown is returned by InitTask when called after Shutdown.
	ErrShutdown = errors.New("scheduler: shut down")

	// ErrReactorAlreadyInstalled is returned by InitTask if called twice with
	// different reactors before a Shutdown.
	ErrReactorAlreadyInstalled = errors.New("scheduler: reactor already installed")
)
