package facade_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/kestrel-io/ioscheduler/facade"
)

func TestHioloadWSLifecycle(t *testing.T) {
	h, err := facade.New(facade.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if err := h.Start(); err != nil {
		t.Fatal(err)
	}

	var executed atomic.Bool
	c, err := h.GetScheduler().Schedule(1_000_000, func() { executed.Store(true) })
	if err != nil {
		t.Fatal(err)
	}
	defer c.Cancel()

	time.Sleep(20 * time.Millisecond)
	if !executed.Load() {
		t.Error("scheduled timer callback did not run")
	}

	if h.GetIOScheduler() == nil {
		t.Error("GetIOScheduler returned nil")
	}
	if h.GetIOReactor() == nil {
		t.Error("GetIOReactor returned nil")
	}

	var called atomic.Bool
	h.GetControl().OnReload(func() { called.Store(true) })
	h.GetControl().SetConfig(map[string]any{"io_scheduler.workers": 4})
	time.Sleep(10 * time.Millisecond)
	if !called.Load() {
		t.Error("reload hook not triggered")
	}

	if err := h.Shutdown(); err != nil {
		t.Error(err)
	}
}
