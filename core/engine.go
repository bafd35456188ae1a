package core

import (
	"context"

	"pkt.systems/owlcore/schema"
)

// Engine spawns per-tab browser engine processes and exposes their event
// streams. Each spawned handle owns exactly one OS process.
type Engine interface {
	Spawn(ctx context.Context, req SpawnRequest) (EngineHandle, error)
}

// SpawnRequest describes a tab engine invocation.
type SpawnRequest struct {
	Tab schema.TabID
	URL string
}

// EngineHandle exposes navigation, execution directives and lifecycle
// controls for one tab's engine process.
type EngineHandle interface {
	Events() EngineStream
	Navigate(ctx context.Context, url string) error
	Back(ctx context.Context) error
	Forward(ctx context.Context) error
	Reload(ctx context.Context) error
	StopLoading(ctx context.Context) error
	SetMuted(ctx context.Context, muted bool) error
	SetVisible(ctx context.Context, visible bool) error
	Throttle(ctx context.Context, t schema.Throttle) error
	Nav(ctx context.Context) (schema.NavState, error)
	PID() int
	// Done is closed when the engine process exits for any reason.
	Done() <-chan struct{}
	Close() error
}

// EngineStream yields normalized events from a tab engine.
type EngineStream interface {
	Next(ctx context.Context) (schema.EngineEvent, error)
	Close() error
}

// Limiter applies OS-level resource budgets to engine processes.
type Limiter interface {
	Apply(ctx context.Context, pid int, budget schema.Budget) error
	Remove(ctx context.Context, pid int) error
	// Degraded reports whether the limiter fell back to a weaker mechanism
	// than full cgroup control.
	Degraded() bool
	Close() error
}
