// Package supervisor wraps a tab engine with process accounting: it caps the
// number of concurrent tab processes and keeps a registry of live handles so
// shutdown and diagnostics always see the full set, even for processes whose
// tabs have already been dropped by the tree.
package supervisor

import (
	"context"
	"sync"

	"pkt.systems/owlcore/core"
	"pkt.systems/owlcore/schema"
	"pkt.systems/pslog"
)

// DefaultMaxTabs bounds concurrent engine processes.
const DefaultMaxTabs = 64

// Config tunes the supervisor.
type Config struct {
	MaxTabs int
}

// Supervisor implements core.Engine by delegating to an inner engine.
type Supervisor struct {
	engine core.Engine
	log    pslog.Logger
	max    int

	mu   sync.Mutex
	live map[schema.TabID]core.EngineHandle
}

// New wraps engine with accounting.
func New(engine core.Engine, cfg Config, logger pslog.Logger) *Supervisor {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	max := cfg.MaxTabs
	if max <= 0 {
		max = DefaultMaxTabs
	}
	return &Supervisor{
		engine: engine,
		log:    logger,
		max:    max,
		live:   make(map[schema.TabID]core.EngineHandle),
	}
}

// Spawn starts a tab process if the cap allows it.
func (s *Supervisor) Spawn(ctx context.Context, req core.SpawnRequest) (core.EngineHandle, error) {
	s.mu.Lock()
	if len(s.live) >= s.max {
		count := len(s.live)
		s.mu.Unlock()
		s.log.Warn("tab limit reached", "live", count, "max", s.max)
		return nil, schema.ErrTabLimit
	}
	s.mu.Unlock()

	inner, err := s.engine.Spawn(ctx, req)
	if err != nil {
		return nil, err
	}
	h := &handle{EngineHandle: inner, sup: s, tab: req.Tab}
	s.mu.Lock()
	s.live[req.Tab] = h
	count := len(s.live)
	s.mu.Unlock()
	s.log.Debug("engine spawned", "tab", req.Tab, "pid", inner.PID(), "live", count)
	go func() {
		<-inner.Done()
		s.forget(req.Tab, h)
	}()
	return h, nil
}

// Count reports live engine processes.
func (s *Supervisor) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// CloseAll stops every live engine. Used on shutdown as a backstop for
// handles the service no longer tracks.
func (s *Supervisor) CloseAll() error {
	s.mu.Lock()
	handles := make([]core.EngineHandle, 0, len(s.live))
	for tab, h := range s.live {
		handles = append(handles, h)
		delete(s.live, tab)
	}
	s.mu.Unlock()
	var firstErr error
	for _, h := range handles {
		if err := h.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Supervisor) forget(tab schema.TabID, h core.EngineHandle) {
	s.mu.Lock()
	if cur, ok := s.live[tab]; ok && cur == h {
		delete(s.live, tab)
	}
	s.mu.Unlock()
}

// handle deregisters from the supervisor on close.
type handle struct {
	core.EngineHandle
	sup *Supervisor
	tab schema.TabID
}

func (h *handle) Close() error {
	h.sup.forget(h.tab, h)
	return h.EngineHandle.Close()
}
