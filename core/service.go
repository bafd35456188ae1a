package core

import (
	"context"
	"errors"
	"io"
	"net/url"
	"sync"
	"time"

	"pkt.systems/owlcore/internal/logx"
	"pkt.systems/owlcore/schema"
	"pkt.systems/pslog"
)

// service implements the core service behavior. A single mutex sequences
// every state mutation; engine and limiter calls happen off the lock so a
// slow or wedged tab process cannot stall the control plane.
type service struct {
	cfg     schema.ServiceConfig
	engine  Engine
	limiter Limiter
	sink    EventSink
	logger  pslog.Logger
	now     func() time.Time

	mu       sync.Mutex
	ids      idAllocator
	tree     *tree
	active   schema.TabID
	pressure schema.Pressure
	sidebar  bool
	closed   *closedRing
	shutdown bool
}

// NewService constructs the core service implementation.
func NewService(cfg schema.ServiceConfig, deps ServiceDeps) (Service, error) {
	normalized, err := schema.NormalizeServiceConfig(cfg)
	if err != nil {
		return nil, err
	}
	cfg = normalized
	if deps.Engine == nil {
		return nil, errors.New("missing engine")
	}
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	s := &service{
		cfg:      cfg,
		engine:   deps.Engine,
		limiter:  deps.Limiter,
		sink:     deps.EventSink,
		logger:   logger,
		now:      time.Now,
		tree:     newTree(),
		pressure: schema.PressureLow,
		sidebar:  true,
		closed:   newClosedRing(cfg.RecentlyClosedMax),
	}
	if s.limiter != nil && s.limiter.Degraded() {
		s.emitHealth(schema.HealthEvent{
			LimitsDegraded: true,
			Detail:         "cgroup control unavailable, using process priorities",
		})
	}
	return s, nil
}

func (s *service) CreateTab(ctx context.Context, req schema.CreateTabRequest) (schema.CreateTabResponse, error) {
	if ctx == nil {
		return schema.CreateTabResponse{}, errors.New("missing context")
	}
	log := logx.Ctx(ctx)
	target := req.URL
	if target == "" && !req.Group {
		target = s.cfg.HomeURL
	}
	s.mu.Lock()
	if req.Parent != schema.NoTab {
		if _, ok := s.tree.get(req.Parent); !ok {
			s.mu.Unlock()
			return schema.CreateTabResponse{}, schema.ErrTabNotFound
		}
	}
	id := s.ids.next()
	s.mu.Unlock()
	log = log.With("tab", id)
	log.Info("tab create start", "parent", req.Parent, "url", target, "group", req.Group)

	var handle EngineHandle
	if !req.Group {
		var err error
		handle, err = s.spawn(ctx, id, target)
		if err != nil {
			log.Warn("tab create failed", "err", err)
			return schema.CreateTabResponse{}, err
		}
	}

	t := &tab{
		ID:       id,
		Parent:   req.Parent,
		URL:      target,
		Title:    target,
		IsGroup:  req.Group,
		Expanded: true,
		handle:   handle,
	}
	if req.Group {
		t.URL = ""
		t.Title = "group"
		if req.Title != "" {
			t.Title = req.Title
		}
	}

	now := s.now()
	s.mu.Lock()
	if err := s.tree.insert(t); err != nil {
		s.mu.Unlock()
		s.release(handle, 0)
		log.Warn("tab create failed", "err", err)
		return schema.CreateTabResponse{}, err
	}
	if !req.Group && (req.Activate || s.active == schema.NoTab) {
		s.setActiveLocked(t, now)
	} else {
		// Fresh background tabs start in the visible tier and decay.
		t.graceUntil = now.Add(s.cfg.HiddenGrace)
		t.hiddenSince = now
	}
	directives := s.recomputeLocked(now)
	tabs := s.tabsEventLocked()
	node := t.Snapshot(s.active)
	s.mu.Unlock()

	if handle != nil {
		go s.consumeEvents(handle, id)
		go s.watchExit(handle, id)
	}
	s.executeDirectives(ctx, directives)
	s.emitTabs(tabs)
	log.Info("tab create done", "active", node.IsActive)
	return schema.CreateTabResponse{Tab: node}, nil
}

// setActiveLocked moves focus to t and hides the previously active tab, so
// its grace and discard clocks start running. Caller holds the service lock.
func (s *service) setActiveLocked(t *tab, now time.Time) {
	if prev, ok := s.tree.get(s.active); ok && prev.ID != t.ID {
		applySignal(prev, schema.SignalVisibilityHidden, s.cfg, now)
	}
	s.active = t.ID
	applySignal(t, schema.SignalFocusGained, s.cfg, now)
}

func (s *service) CloseTab(ctx context.Context, req schema.CloseTabRequest) (schema.CloseTabResponse, error) {
	if ctx == nil {
		return schema.CloseTabResponse{}, errors.New("missing context")
	}
	log := logx.WithTab(ctx, req.TabID)
	now := s.now()
	s.mu.Lock()
	if _, ok := s.tree.get(req.TabID); !ok {
		s.mu.Unlock()
		return schema.CloseTabResponse{}, schema.ErrTabNotFound
	}
	newActive := s.active
	activeClosed := s.active == req.TabID
	if req.Subtree {
		activeClosed = s.tree.isAncestor(req.TabID, s.active)
	}
	if activeClosed {
		newActive = s.tree.successor(req.TabID)
	}
	var removed []*tab
	if req.Subtree {
		subtree, err := s.tree.removeSubtree(req.TabID)
		if err != nil {
			s.mu.Unlock()
			return schema.CloseTabResponse{}, err
		}
		removed = subtree
	} else {
		// Plain close keeps descendants: they move into the closed tab's
		// slot under its parent.
		t, err := s.tree.remove(req.TabID)
		if err != nil {
			s.mu.Unlock()
			return schema.CloseTabResponse{}, err
		}
		removed = append(removed, t)
	}
	for _, t := range removed {
		if !t.IsGroup {
			s.closed.Push(schema.ClosedTab{Title: t.Title, URL: t.URL})
		}
	}
	if activeClosed {
		s.active = newActive
		if successor, ok := s.tree.get(newActive); ok {
			applySignal(successor, schema.SignalFocusGained, s.cfg, now)
		}
	}
	directives := s.recomputeLocked(now)
	tabs := s.tabsEventLocked()
	s.mu.Unlock()

	for _, t := range removed {
		s.release(t.handle, pidOf(t.handle))
	}
	s.executeDirectives(ctx, directives)
	s.emitTabs(tabs)
	log.Info("tab closed", "removed", len(removed), "new_active", newActive)
	resp := schema.CloseTabResponse{Closed: len(removed)}
	if activeClosed {
		resp.NewActive = newActive
	}
	return resp, nil
}

func (s *service) SelectTab(ctx context.Context, req schema.SelectTabRequest) (schema.SelectTabResponse, error) {
	if ctx == nil {
		return schema.SelectTabResponse{}, errors.New("missing context")
	}
	log := logx.WithTab(ctx, req.TabID)
	s.mu.Lock()
	t, ok := s.tree.get(req.TabID)
	if !ok {
		s.mu.Unlock()
		return schema.SelectTabResponse{}, schema.ErrTabNotFound
	}
	if t.IsGroup {
		s.mu.Unlock()
		return schema.SelectTabResponse{}, schema.ErrIsGroup
	}
	resume := t.Suspended
	target := t.URL
	s.mu.Unlock()

	var handle EngineHandle
	if resume {
		var err error
		handle, err = s.spawn(ctx, req.TabID, target)
		if err != nil {
			log.Warn("tab resume failed", "err", err)
			return schema.SelectTabResponse{}, err
		}
	}

	now := s.now()
	var stale EngineHandle
	s.mu.Lock()
	t, ok = s.tree.get(req.TabID)
	if !ok {
		s.mu.Unlock()
		s.release(handle, 0)
		return schema.SelectTabResponse{}, schema.ErrTabNotFound
	}
	if resume {
		if t.handle != nil {
			// Someone resumed it concurrently; keep theirs.
			stale = handle
			handle = t.handle
		} else {
			t.handle = handle
			t.Suspended = false
			t.Crashed = false
			t.Class = ""
		}
	}
	s.setActiveLocked(t, now)
	directives := s.recomputeLocked(now)
	tabs := s.tabsEventLocked()
	node := t.Snapshot(s.active)
	attached := resume && stale == nil && handle != nil
	s.mu.Unlock()

	s.release(stale, 0)
	if attached {
		go s.consumeEvents(handle, req.TabID)
		go s.watchExit(handle, req.TabID)
	}
	s.executeDirectives(ctx, directives)
	s.emitTabs(tabs)
	log.Info("tab selected", "resumed", resume)
	return schema.SelectTabResponse{Tab: node, Resumed: resume}, nil
}

func (s *service) MoveTab(ctx context.Context, req schema.MoveTabRequest) (schema.MoveTabResponse, error) {
	if ctx == nil {
		return schema.MoveTabResponse{}, errors.New("missing context")
	}
	s.mu.Lock()
	if err := s.tree.move(req.TabID, req.Parent, req.Index); err != nil {
		s.mu.Unlock()
		return schema.MoveTabResponse{}, err
	}
	tabs := s.tabsEventLocked()
	s.mu.Unlock()
	s.emitTabs(tabs)
	logx.WithTab(ctx, req.TabID).Info("tab moved", "parent", req.Parent, "index", req.Index)
	return schema.MoveTabResponse{Tree: tabs.Tree}, nil
}

func (s *service) SetFlag(ctx context.Context, req schema.SetFlagRequest) (schema.SetFlagResponse, error) {
	if ctx == nil {
		return schema.SetFlagResponse{}, errors.New("missing context")
	}
	if err := schema.ValidateFlag(req.Flag); err != nil {
		return schema.SetFlagResponse{}, err
	}
	now := s.now()
	s.mu.Lock()
	t, ok := s.tree.get(req.TabID)
	if !ok {
		s.mu.Unlock()
		return schema.SetFlagResponse{}, schema.ErrTabNotFound
	}
	var handle EngineHandle
	switch req.Flag {
	case schema.FlagPinned:
		t.Pinned = req.Value
		s.tree.reorderPinnedFirst(t.Parent)
	case schema.FlagMuted:
		t.Muted = req.Value
		handle = t.handle
	case schema.FlagExpanded:
		t.Expanded = req.Value
	}
	directives := s.recomputeLocked(now)
	tabs := s.tabsEventLocked()
	node := t.Snapshot(s.active)
	s.mu.Unlock()

	if handle != nil {
		if err := handle.SetMuted(ctx, req.Value); err != nil {
			logx.WithTab(ctx, req.TabID).Warn("mute failed", "err", err)
		}
	}
	s.executeDirectives(ctx, directives)
	s.emitTabs(tabs)
	return schema.SetFlagResponse{Tab: node}, nil
}

func (s *service) ReopenTab(ctx context.Context, req schema.ReopenTabRequest) (schema.ReopenTabResponse, error) {
	if ctx == nil {
		return schema.ReopenTabResponse{}, errors.New("missing context")
	}
	s.mu.Lock()
	entry, ok := s.closed.Pop()
	s.mu.Unlock()
	if !ok {
		return schema.ReopenTabResponse{}, schema.ErrTabNotFound
	}
	resp, err := s.CreateTab(ctx, schema.CreateTabRequest{URL: entry.URL, Activate: req.Activate})
	if err != nil {
		return schema.ReopenTabResponse{}, err
	}
	return schema.ReopenTabResponse{Tab: resp.Tab}, nil
}

func (s *service) DiscardTab(ctx context.Context, req schema.DiscardTabRequest) (schema.DiscardTabResponse, error) {
	if ctx == nil {
		return schema.DiscardTabResponse{}, errors.New("missing context")
	}
	s.mu.Lock()
	t, ok := s.tree.get(req.TabID)
	if !ok {
		s.mu.Unlock()
		return schema.DiscardTabResponse{}, schema.ErrTabNotFound
	}
	if t.IsGroup {
		s.mu.Unlock()
		return schema.DiscardTabResponse{}, schema.ErrIsGroup
	}
	if t.handle == nil {
		node := t.Snapshot(s.active)
		s.mu.Unlock()
		return schema.DiscardTabResponse{Tab: node}, nil
	}
	handle := t.handle
	pid := handle.PID()
	t.handle = nil
	t.Suspended = true
	t.Class = ""
	t.Nav = schema.NavState{}
	node := t.Snapshot(s.active)
	tabs := s.tabsEventLocked()
	s.mu.Unlock()
	s.release(handle, pid)
	s.emitTabs(tabs)
	logx.WithTab(ctx, req.TabID).Info("tab unloaded", "pid", pid)
	return schema.DiscardTabResponse{Tab: node}, nil
}

func (s *service) Navigate(ctx context.Context, req schema.NavigateRequest) error {
	if ctx == nil {
		return errors.New("missing context")
	}
	now := s.now()
	s.mu.Lock()
	id := req.TabID
	if id == schema.NoTab {
		id = s.active
	}
	t, ok := s.tree.get(id)
	if !ok {
		s.mu.Unlock()
		return schema.ErrTabNotFound
	}
	if t.IsGroup {
		s.mu.Unlock()
		return schema.ErrIsGroup
	}
	t.URL = req.URL
	t.lastInput = now
	handle := t.handle
	s.mu.Unlock()

	log := logx.WithTab(ctx, id)
	if handle == nil {
		// Suspended tab: the new URL loads on resume.
		log.Info("navigation deferred", "url", req.URL)
		return nil
	}
	if err := handle.Navigate(ctx, req.URL); err != nil {
		log.Warn("navigation failed", "url", req.URL, "err", err)
		return s.classifyEngineErr(id, handle, err)
	}
	log.Info("navigation", "url", req.URL)
	return nil
}

func (s *service) NavAction(ctx context.Context, req schema.NavActionRequest) error {
	if ctx == nil {
		return errors.New("missing context")
	}
	s.mu.Lock()
	t, ok := s.tree.get(s.active)
	if !ok {
		s.mu.Unlock()
		return schema.ErrTabNotFound
	}
	id := t.ID
	handle := t.handle
	s.mu.Unlock()
	if handle == nil {
		return schema.ErrEngineGone
	}
	var err error
	switch req.Action {
	case schema.NavBack:
		err = handle.Back(ctx)
	case schema.NavForward:
		err = handle.Forward(ctx)
	case schema.NavReload:
		err = handle.Reload(ctx)
	case schema.NavStop:
		err = handle.StopLoading(ctx)
	default:
		return schema.ErrProtocol
	}
	if err != nil {
		return s.classifyEngineErr(id, handle, err)
	}
	if nav, err := handle.Nav(ctx); err == nil {
		s.mu.Lock()
		if cur, ok := s.tree.get(id); ok && cur.handle == handle {
			cur.Nav = nav
		}
		s.mu.Unlock()
		s.emitNav(schema.NavEvent{Tab: id, Nav: nav})
	}
	return nil
}

func (s *service) Signal(ctx context.Context, req schema.SignalRequest) error {
	if ctx == nil {
		return errors.New("missing context")
	}
	if err := schema.ValidateSignal(req.Signal); err != nil {
		return err
	}
	now := s.now()
	s.mu.Lock()
	t, ok := s.tree.get(req.TabID)
	if !ok {
		s.mu.Unlock()
		return schema.ErrTabNotFound
	}
	applySignal(t, req.Signal, s.cfg, now)
	directives := s.recomputeLocked(now)
	s.mu.Unlock()
	s.executeDirectives(ctx, directives)
	return nil
}

func (s *service) ReportPressure(ctx context.Context, req schema.PressureRequest) error {
	if ctx == nil {
		return errors.New("missing context")
	}
	if err := schema.ValidatePressure(req.Level); err != nil {
		return err
	}
	now := s.now()
	s.mu.Lock()
	if req.Level == s.pressure {
		s.mu.Unlock()
		return nil
	}
	prev := s.pressure
	s.pressure = req.Level
	directives := s.recomputeLocked(now)
	s.mu.Unlock()
	s.logger.Info("memory pressure changed", "from", prev, "to", req.Level, "directives", len(directives))
	s.executeDirectives(ctx, directives)
	return nil
}

func (s *service) ToggleSidebar(ctx context.Context, req schema.SidebarToggleRequest) (schema.SidebarToggleResponse, error) {
	if ctx == nil {
		return schema.SidebarToggleResponse{}, errors.New("missing context")
	}
	s.mu.Lock()
	if req.Visible != nil {
		s.sidebar = *req.Visible
	} else {
		s.sidebar = !s.sidebar
	}
	visible := s.sidebar
	s.mu.Unlock()
	s.emitSidebar(schema.SidebarEvent{Visible: visible})
	return schema.SidebarToggleResponse{Visible: visible}, nil
}

func (s *service) Tree(ctx context.Context, req schema.TreeRequest) (schema.TreeResponse, error) {
	if ctx == nil {
		return schema.TreeResponse{}, errors.New("missing context")
	}
	s.mu.Lock()
	snap := s.tree.snapshot(s.active)
	s.mu.Unlock()
	return schema.TreeResponse{Tree: snap}, nil
}

func (s *service) State(ctx context.Context, req schema.StateRequest) (schema.StateResponse, error) {
	if ctx == nil {
		return schema.StateResponse{}, errors.New("missing context")
	}
	s.mu.Lock()
	snap := schema.StateSnapshot{
		Active:         s.active,
		Pressure:       s.pressure,
		SidebarVisible: s.sidebar,
		RecentlyClosed: s.closed.Entries(),
	}
	s.tree.each(func(t *tab) {
		status := schema.TabStatus{
			ID:        t.ID,
			Class:     t.Class,
			Suspended: t.Suspended,
			Crashed:   t.Crashed,
		}
		if t.handle != nil {
			status.PID = t.handle.PID()
			status.Budget = s.cfg.Budgets[t.Class]
		}
		snap.Tabs = append(snap.Tabs, status)
	})
	s.mu.Unlock()
	if s.limiter != nil {
		snap.LimitsDegraded = s.limiter.Degraded()
	}
	return schema.StateResponse{State: snap}, nil
}

func (s *service) Recompute(ctx context.Context) error {
	if ctx == nil {
		return errors.New("missing context")
	}
	now := s.now()
	s.mu.Lock()
	directives := s.recomputeLocked(now)
	s.mu.Unlock()
	s.executeDirectives(ctx, directives)
	return nil
}

func (s *service) Close(ctx context.Context) error {
	if ctx == nil {
		return errors.New("missing context")
	}
	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		return nil
	}
	s.shutdown = true
	var handles []*tab
	s.tree.each(func(t *tab) {
		if t.handle != nil {
			handles = append(handles, t)
		}
	})
	s.mu.Unlock()
	for _, t := range handles {
		s.release(t.handle, pidOf(t.handle))
	}
	if s.limiter != nil {
		if err := s.limiter.Close(); err != nil {
			s.logger.Warn("limiter close failed", "err", err)
		}
	}
	s.logger.Info("service closed", "tabs_stopped", len(handles))
	return nil
}

// spawn starts a tab engine with the configured deadline and applies the
// spawn timeout error mapping.
func (s *service) spawn(ctx context.Context, id schema.TabID, url string) (EngineHandle, error) {
	spawnCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.SpawnTimeout)
	defer cancel()
	handle, err := s.engine.Spawn(spawnCtx, SpawnRequest{Tab: id, URL: url})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(spawnCtx.Err(), context.DeadlineExceeded) {
			return nil, schema.ErrSpawnTimeout
		}
		return nil, err
	}
	return handle, nil
}

// release tears down an engine handle and its limiter slot.
func (s *service) release(handle EngineHandle, pid int) {
	if handle == nil {
		return
	}
	if err := handle.Close(); err != nil {
		s.logger.Warn("engine close failed", "err", err)
	}
	if s.limiter != nil && pid > 0 {
		if err := s.limiter.Remove(context.Background(), pid); err != nil {
			s.logger.Debug("limiter remove failed", "pid", pid, "err", err)
		}
	}
}

func pidOf(handle EngineHandle) int {
	if handle == nil {
		return 0
	}
	return handle.PID()
}

// executeDirectives applies scheduling decisions off the service lock.
func (s *service) executeDirectives(ctx context.Context, directives []directive) {
	for _, d := range directives {
		if d.discard {
			s.discardTab(d)
			continue
		}
		if s.limiter != nil && d.pid > 0 {
			if err := s.limiter.Apply(ctx, d.pid, d.budget); err != nil {
				s.logger.Warn("budget apply failed", "tab", d.tab, "pid", d.pid, "err", err)
			}
		}
		if err := d.handle.Throttle(ctx, d.throttle); err != nil {
			s.logger.Debug("throttle failed", "tab", d.tab, "err", err)
		}
		if err := d.handle.SetVisible(ctx, d.visible); err != nil {
			s.logger.Debug("visibility failed", "tab", d.tab, "err", err)
		}
	}
}

// discardTab tears down a discard candidate's process while keeping its node
// in the tree so the UI can restore it later.
func (s *service) discardTab(d directive) {
	s.mu.Lock()
	t, ok := s.tree.get(d.tab)
	if !ok || t.handle != d.handle {
		s.mu.Unlock()
		return
	}
	handle := t.handle
	t.handle = nil
	t.Suspended = true
	t.Class = ""
	t.Nav = schema.NavState{}
	tabs := s.tabsEventLocked()
	s.mu.Unlock()
	s.release(handle, d.pid)
	s.emitTabs(tabs)
	s.logger.Info("tab discarded", "tab", d.tab, "pid", d.pid)
}

// watchExit marks the tab crashed when its engine process exits without a
// matching close or discard. The crash marker rides the tabs event so the UI
// can tell a dead tab from a cleanly unloaded one.
func (s *service) watchExit(handle EngineHandle, id schema.TabID) {
	<-handle.Done()
	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		return
	}
	t, ok := s.tree.get(id)
	if !ok || t.handle != handle {
		s.mu.Unlock()
		return
	}
	pid := handle.PID()
	t.handle = nil
	t.Suspended = true
	t.Crashed = true
	t.Class = ""
	t.Nav = schema.NavState{}
	tabs := s.tabsEventLocked()
	s.mu.Unlock()
	if s.limiter != nil && pid > 0 {
		_ = s.limiter.Remove(context.Background(), pid)
	}
	s.emitTabs(tabs)
	s.logger.Warn("engine exited unexpectedly", "tab", id, "pid", pid)
}

// consumeEvents pumps one engine's event stream into tab state and sink
// events. The goroutine lives as long as the handle's stream.
func (s *service) consumeEvents(handle EngineHandle, id schema.TabID) {
	stream := handle.Events()
	defer func() {
		if err := stream.Close(); err != nil {
			s.logger.Debug("event stream close failed", "tab", id, "err", err)
		}
	}()
	ctx := context.Background()
	for {
		event, err := stream.Next(ctx)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, context.Canceled) {
				s.logger.Debug("event stream ended", "tab", id, "err", err)
			}
			return
		}
		s.handleEngineEvent(handle, id, event)
	}
}

func (s *service) handleEngineEvent(handle EngineHandle, id schema.TabID, event schema.EngineEvent) {
	switch event.Kind {
	case schema.EngineLoadStarted, schema.EngineLoadFinished:
		loading := event.Kind == schema.EngineLoadStarted
		s.mu.Lock()
		t, ok := s.tree.get(id)
		if !ok || t.handle != handle {
			s.mu.Unlock()
			return
		}
		t.Nav.IsLoading = loading
		nav := t.Nav
		active := s.active == id
		s.mu.Unlock()
		if active {
			s.emitNav(schema.NavEvent{Tab: id, Nav: nav})
		}
	case schema.EngineURLChanged:
		s.mu.Lock()
		t, ok := s.tree.get(id)
		if !ok || t.handle != handle {
			s.mu.Unlock()
			return
		}
		t.URL = event.URL
		if nav, err := handle.Nav(context.Background()); err == nil {
			t.Nav = nav
		}
		nav := t.Nav
		active := s.active == id
		tabs := s.tabsEventLocked()
		s.mu.Unlock()
		if active {
			s.emitNav(schema.NavEvent{Tab: id, Nav: nav})
		}
		s.emitTabs(tabs)
		s.resolveFavicon(id, event.URL)
	case schema.EngineTitleChanged:
		s.mu.Lock()
		t, ok := s.tree.get(id)
		if !ok || t.handle != handle {
			s.mu.Unlock()
			return
		}
		t.Title = event.Title
		tabs := s.tabsEventLocked()
		s.mu.Unlock()
		s.emitTabs(tabs)
	case schema.EngineChildOpened:
		// Pages opening popups become child tabs in the tree.
		go func() {
			ctx := pslog.ContextWithLogger(context.Background(), s.logger)
			if _, err := s.CreateTab(ctx, schema.CreateTabRequest{Parent: id, URL: event.URL}); err != nil {
				s.logger.Warn("child tab create failed", "tab", id, "url", event.URL, "err", err)
			}
		}()
	case schema.EngineCrashed:
		// The process may survive a renderer crash; mark the tab so the UI
		// can show it, without tearing anything down.
		s.mu.Lock()
		t, ok := s.tree.get(id)
		if !ok || t.handle != handle {
			s.mu.Unlock()
			return
		}
		t.Crashed = true
		tabs := s.tabsEventLocked()
		s.mu.Unlock()
		s.emitTabs(tabs)
		s.logger.Warn("renderer crashed", "tab", id)
	}
}

// resolveFavicon updates the favicon for every tab sharing the navigated
// origin. The origin favicon path is a guess, which is good enough for a
// sidebar icon.
func (s *service) resolveFavicon(id schema.TabID, rawURL string) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return
	}
	uri := parsed.Scheme + "://" + parsed.Host + "/favicon.ico"
	origin := parsed.Scheme + "://" + parsed.Host
	s.mu.Lock()
	var ids []schema.TabID
	s.tree.each(func(t *tab) {
		if t.IsGroup {
			return
		}
		if u, err := url.Parse(t.URL); err == nil && u.Scheme+"://"+u.Host == origin {
			t.FaviconURI = uri
			ids = append(ids, t.ID)
		}
	})
	s.mu.Unlock()
	if len(ids) > 0 {
		s.emitFavicon(schema.FaviconEvent{Tabs: ids, URI: uri})
	}
}

// classifyEngineErr maps failures on a dead handle to ErrEngineGone.
func (s *service) classifyEngineErr(id schema.TabID, handle EngineHandle, err error) error {
	select {
	case <-handle.Done():
		return schema.ErrEngineGone
	default:
		return err
	}
}

func (s *service) tabsEventLocked() schema.TabsEvent {
	return schema.TabsEvent{Tree: s.tree.snapshot(s.active)}
}

func (s *service) emitTabs(event schema.TabsEvent) {
	if s.sink == nil {
		return
	}
	s.sink.OnTabs(event)
}

func (s *service) emitNav(event schema.NavEvent) {
	if s.sink == nil {
		return
	}
	s.sink.OnNav(event)
}

func (s *service) emitFavicon(event schema.FaviconEvent) {
	if s.sink == nil {
		return
	}
	s.sink.OnFavicon(event)
}

func (s *service) emitSidebar(event schema.SidebarEvent) {
	if s.sink == nil {
		return
	}
	s.sink.OnSidebar(event)
}

func (s *service) emitHealth(event schema.HealthEvent) {
	if s.sink == nil {
		return
	}
	s.sink.OnHealth(event)
}
