// File: facade/hioload.go
// Thin facade over the io-multiplexing scheduler and the wall-clock timer
// scheduler.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// HioloadWS aggregates the two scheduling concerns a caller embedding this
// module needs: an io-multiplexing scheduler.Scheduler bound to a
// reactor.IOReactor for readiness-driven work, and a wall-clock
// internal/concurrency.Scheduler for heartbeats and timeouts. Everything
// else a consumer needs — connection handling, protocol framing — is its
// own concern built on top of GetIOScheduler/GetScheduler.

package facade

import (
	"fmt"
	"log"
	"sync"

	"github.com/kestrel-io/ioscheduler/api"
	"github.com/kestrel-io/ioscheduler/control"
	"github.com/kestrel-io/ioscheduler/internal/concurrency"
	"github.com/kestrel-io/ioscheduler/reactor"
	ioscheduler "github.com/kestrel-io/ioscheduler/scheduler"
)

// Config holds parameters immutable per run. IOSchedulerWorkers cannot be
// changed at runtime; the Control hot-reload hook only warns about the
// mismatch rather than attempting to re-Initialize a live scheduler.
type Config struct {
	HeartbeatInterval  int64 // Interval for heartbeat tasks, in nanoseconds.
	ShutdownTimeout    int64 // Timeout for graceful shutdown, in nanoseconds.
	IOSchedulerWorkers int   // Concurrency hint for the io-multiplexing scheduler.
}

// DefaultConfig returns sane defaults for typical use.
func DefaultConfig() *Config {
	return &Config{
		HeartbeatInterval:  10 * 1e9, // 10-second heartbeat
		ShutdownTimeout:    60 * 1e9, // 60-second graceful shutdown
		IOSchedulerWorkers: 1,        // single-threaded io scheduler by default
	}
}

// HioloadWS is the main facade type.
type HioloadWS struct {
	control     *control.ConfigStore
	scheduler   api.Scheduler // high-resolution timer scheduler
	ioReactor   *reactor.IOReactor
	ioScheduler *ioscheduler.Scheduler // I/O-multiplexing operation scheduler

	config  *Config
	mu      sync.RWMutex
	started bool
}

// New constructs HioloadWS with the given configuration. It installs the
// reactor on the io scheduler and exposes the scheduler's concurrency hint
// via Control for observability and hot-reload.
func New(cfg *Config) (*HioloadWS, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	h := &HioloadWS{config: cfg}

	h.control = control.NewConfigStore()
	h.scheduler = concurrency.NewScheduler()

	ioReactor, err := reactor.NewIOReactor()
	if err != nil {
		return nil, fmt.Errorf("io reactor init failure: %w", err)
	}
	h.ioReactor = ioReactor
	h.ioScheduler = ioscheduler.NewScheduler(cfg.IOSchedulerWorkers)
	if err := h.ioScheduler.InitTask(h.ioReactor); err != nil {
		return nil, fmt.Errorf("io scheduler init failure: %w", err)
	}

	h.control.SetConfig(map[string]any{
		"heartbeat_interval":   cfg.HeartbeatInterval,
		"shutdown_timeout":     cfg.ShutdownTimeout,
		"io_scheduler.workers": cfg.IOSchedulerWorkers,
	})

	// The io scheduler's concurrency hint governs whether lock elision is
	// safe for the fast enqueue path; it cannot be changed once workers
	// are running, so hot-reload only logs the mismatch rather than
	// attempting to re-Initialize a live scheduler.
	h.control.OnReload(func() {
		snap := h.control.GetSnapshot()
		if w, ok := snap["io_scheduler.workers"].(int); ok && w != cfg.IOSchedulerWorkers {
			log.Printf("[facade] io_scheduler.workers changed to %d; restart required to apply", w)
		}
	})

	return h, nil
}

// Start launches the io scheduler's worker loop. Subsequent calls have no
// effect.
func (h *HioloadWS) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.started {
		return nil
	}
	go h.ioScheduler.Run()
	h.started = true
	return nil
}

// Stop tears down the io scheduler, its reactor, and the timer scheduler.
// Calling Stop on a non-started facade is a no-op.
func (h *HioloadWS) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.started {
		return nil
	}
	h.ioScheduler.Stop()
	h.ioScheduler.Shutdown()
	_ = h.ioReactor.Close()
	if stoppable, ok := h.scheduler.(interface{ Stop() }); ok {
		stoppable.Stop()
	}
	h.started = false
	return nil
}

// Shutdown tears down the facade by delegating to Stop.
func (h *HioloadWS) Shutdown() error {
	return h.Stop()
}

// GetControl returns the config store for dynamic config and hot-reload.
func (h *HioloadWS) GetControl() *control.ConfigStore {
	return h.control
}

// GetScheduler exposes the high-resolution Scheduler for timed tasks.
func (h *HioloadWS) GetScheduler() api.Scheduler {
	return h.scheduler
}

// GetIOScheduler exposes the I/O-multiplexing operation scheduler, for
// callers that need to post their own completions onto the same event loop.
func (h *HioloadWS) GetIOScheduler() *ioscheduler.Scheduler {
	return h.ioScheduler
}

// GetIOReactor exposes the reactor backing GetIOScheduler, for callers that
// register their own file descriptors.
func (h *HioloadWS) GetIOReactor() *reactor.IOReactor {
	return h.ioReactor
}
