package supervisor

import (
	"context"
	"errors"
	"testing"
	"time"

	"pkt.systems/owlcore/core"
	"pkt.systems/owlcore/schema"
)

type stubHandle struct {
	pid  int
	done chan struct{}
}

func newStubHandle(pid int) *stubHandle {
	return &stubHandle{pid: pid, done: make(chan struct{})}
}

func (h *stubHandle) Events() core.EngineStream                        { return nil }
func (h *stubHandle) Navigate(ctx context.Context, url string) error   { return nil }
func (h *stubHandle) Back(ctx context.Context) error                   { return nil }
func (h *stubHandle) Forward(ctx context.Context) error                { return nil }
func (h *stubHandle) Reload(ctx context.Context) error                 { return nil }
func (h *stubHandle) StopLoading(ctx context.Context) error            { return nil }
func (h *stubHandle) SetMuted(ctx context.Context, muted bool) error   { return nil }
func (h *stubHandle) SetVisible(ctx context.Context, vis bool) error   { return nil }
func (h *stubHandle) Throttle(ctx context.Context, t schema.Throttle) error {
	return nil
}
func (h *stubHandle) Nav(ctx context.Context) (schema.NavState, error) {
	return schema.NavState{}, nil
}
func (h *stubHandle) PID() int              { return h.pid }
func (h *stubHandle) Done() <-chan struct{} { return h.done }
func (h *stubHandle) Close() error {
	select {
	case <-h.done:
	default:
		close(h.done)
	}
	return nil
}

type stubEngine struct {
	spawned int
}

func (e *stubEngine) Spawn(ctx context.Context, req core.SpawnRequest) (core.EngineHandle, error) {
	e.spawned++
	return newStubHandle(1000 + e.spawned), nil
}

func TestSupervisorEnforcesLimit(t *testing.T) {
	sup := New(&stubEngine{}, Config{MaxTabs: 2}, nil)
	ctx := context.Background()
	if _, err := sup.Spawn(ctx, core.SpawnRequest{Tab: 1}); err != nil {
		t.Fatalf("spawn 1: %v", err)
	}
	h2, err := sup.Spawn(ctx, core.SpawnRequest{Tab: 2})
	if err != nil {
		t.Fatalf("spawn 2: %v", err)
	}
	if _, err := sup.Spawn(ctx, core.SpawnRequest{Tab: 3}); !errors.Is(err, schema.ErrTabLimit) {
		t.Fatalf("expected ErrTabLimit, got %v", err)
	}
	if err := h2.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := sup.Spawn(ctx, core.SpawnRequest{Tab: 3}); err != nil {
		t.Fatalf("spawn after close: %v", err)
	}
}

func TestSupervisorForgetsExitedProcesses(t *testing.T) {
	engine := &stubEngine{}
	sup := New(engine, Config{MaxTabs: 4}, nil)
	h, err := sup.Spawn(context.Background(), core.SpawnRequest{Tab: 1})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	if sup.Count() != 1 {
		t.Fatalf("count = %d, want 1", sup.Count())
	}
	// Simulate a crash: the inner handle's done channel closes without a
	// Close call on the wrapper.
	h.(*handle).EngineHandle.(*stubHandle).Close()
	deadline := time.Now().Add(2 * time.Second)
	for sup.Count() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("exited process never deregistered")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestCloseAllStopsEverything(t *testing.T) {
	sup := New(&stubEngine{}, Config{}, nil)
	ctx := context.Background()
	h1, _ := sup.Spawn(ctx, core.SpawnRequest{Tab: 1})
	h2, _ := sup.Spawn(ctx, core.SpawnRequest{Tab: 2})
	if err := sup.CloseAll(); err != nil {
		t.Fatalf("close all: %v", err)
	}
	for _, h := range []core.EngineHandle{h1, h2} {
		select {
		case <-h.Done():
		default:
			t.Fatalf("handle still running after CloseAll")
		}
	}
	if sup.Count() != 0 {
		t.Fatalf("count = %d after CloseAll", sup.Count())
	}
}
