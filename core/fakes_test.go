package core

import (
	"context"
	"io"
	"sync"
	"time"

	"pkt.systems/owlcore/schema"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeStream struct {
	handle *fakeHandle
}

func (s *fakeStream) Next(ctx context.Context) (schema.EngineEvent, error) {
	select {
	case <-ctx.Done():
		return schema.EngineEvent{}, ctx.Err()
	case ev, ok := <-s.handle.events:
		if !ok {
			return schema.EngineEvent{}, io.EOF
		}
		return ev, nil
	case <-s.handle.done:
		return schema.EngineEvent{}, io.EOF
	}
}

func (s *fakeStream) Close() error { return nil }

type fakeHandle struct {
	mu        sync.Mutex
	pid       int
	tab       schema.TabID
	navs      []string
	throttles []schema.Throttle
	visible   []bool
	muted     bool
	nav       schema.NavState
	closed    bool
	done      chan struct{}
	events    chan schema.EngineEvent
}

func newFakeHandle(pid int, tab schema.TabID) *fakeHandle {
	return &fakeHandle{
		pid:    pid,
		tab:    tab,
		done:   make(chan struct{}),
		events: make(chan schema.EngineEvent, 16),
	}
}

func (h *fakeHandle) Events() EngineStream { return &fakeStream{handle: h} }

func (h *fakeHandle) Navigate(ctx context.Context, url string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.navs = append(h.navs, url)
	return nil
}

func (h *fakeHandle) Back(ctx context.Context) error    { return nil }
func (h *fakeHandle) Forward(ctx context.Context) error { return nil }
func (h *fakeHandle) Reload(ctx context.Context) error  { return nil }

func (h *fakeHandle) StopLoading(ctx context.Context) error { return nil }

func (h *fakeHandle) SetMuted(ctx context.Context, muted bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.muted = muted
	return nil
}

func (h *fakeHandle) SetVisible(ctx context.Context, visible bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.visible = append(h.visible, visible)
	return nil
}

func (h *fakeHandle) Throttle(ctx context.Context, t schema.Throttle) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.throttles = append(h.throttles, t)
	return nil
}

func (h *fakeHandle) Nav(ctx context.Context) (schema.NavState, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.nav, nil
}

func (h *fakeHandle) PID() int { return h.pid }

func (h *fakeHandle) Done() <-chan struct{} { return h.done }

func (h *fakeHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.closed {
		h.closed = true
		close(h.done)
	}
	return nil
}

// crash simulates the engine process dying without a Close call.
func (h *fakeHandle) crash() {
	h.Close()
}

func (h *fakeHandle) throttleCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.throttles)
}

func (h *fakeHandle) lastThrottle() (schema.Throttle, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.throttles) == 0 {
		return schema.Throttle{}, false
	}
	return h.throttles[len(h.throttles)-1], true
}

func (h *fakeHandle) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

type fakeEngine struct {
	mu      sync.Mutex
	nextPID int
	handles []*fakeHandle
	// block makes Spawn wait for ctx cancellation, for timeout tests.
	block bool
}

func (e *fakeEngine) Spawn(ctx context.Context, req SpawnRequest) (EngineHandle, error) {
	if e.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextPID++
	h := newFakeHandle(e.nextPID+1000, req.Tab)
	e.handles = append(e.handles, h)
	return h, nil
}

func (e *fakeEngine) handleFor(tab schema.TabID) *fakeHandle {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := len(e.handles) - 1; i >= 0; i-- {
		if e.handles[i].tab == tab {
			return e.handles[i]
		}
	}
	return nil
}

type fakeLimiter struct {
	mu       sync.Mutex
	applied  map[int]schema.Budget
	removed  []int
	degraded bool
}

func newFakeLimiter() *fakeLimiter {
	return &fakeLimiter{applied: make(map[int]schema.Budget)}
}

func (l *fakeLimiter) Apply(ctx context.Context, pid int, budget schema.Budget) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.applied[pid] = budget
	return nil
}

func (l *fakeLimiter) Remove(ctx context.Context, pid int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.removed = append(l.removed, pid)
	return nil
}

func (l *fakeLimiter) Degraded() bool { return l.degraded }

func (l *fakeLimiter) Close() error { return nil }

func (l *fakeLimiter) budgetFor(pid int) (schema.Budget, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.applied[pid]
	return b, ok
}

type recordingSink struct {
	mu       sync.Mutex
	tabs     []schema.TabsEvent
	navs     []schema.NavEvent
	favicons []schema.FaviconEvent
	sidebars []schema.SidebarEvent
	health   []schema.HealthEvent
}

func (r *recordingSink) OnTabs(event schema.TabsEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tabs = append(r.tabs, event)
}

func (r *recordingSink) OnNav(event schema.NavEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.navs = append(r.navs, event)
}

func (r *recordingSink) OnFavicon(event schema.FaviconEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.favicons = append(r.favicons, event)
}

func (r *recordingSink) OnSidebar(event schema.SidebarEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sidebars = append(r.sidebars, event)
}

func (r *recordingSink) OnHealth(event schema.HealthEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.health = append(r.health, event)
}

func (r *recordingSink) lastTabs() (schema.TabsEvent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.tabs) == 0 {
		return schema.TabsEvent{}, false
	}
	return r.tabs[len(r.tabs)-1], true
}

// newTestService wires a service with fakes and a controllable clock.
func newTestService(cfg schema.ServiceConfig, engine *fakeEngine, limiter *fakeLimiter, sink EventSink) (*service, *fakeClock, error) {
	svc, err := NewService(cfg, ServiceDeps{Engine: engine, Limiter: limiter, EventSink: sink})
	if err != nil {
		return nil, nil, err
	}
	impl := svc.(*service)
	clock := newFakeClock()
	impl.now = clock.Now
	return impl, clock, nil
}
