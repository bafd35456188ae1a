package owlcore

import (
	"context"
	"errors"
	"sync"
	"time"

	"pkt.systems/owlcore/bridge"
	"pkt.systems/owlcore/core"
	"pkt.systems/owlcore/internal/enginecdp"
	"pkt.systems/owlcore/internal/eventbus"
	"pkt.systems/owlcore/internal/limiter"
	"pkt.systems/owlcore/internal/pressure"
	"pkt.systems/owlcore/internal/session"
	"pkt.systems/owlcore/internal/supervisor"
	"pkt.systems/owlcore/schema"
	"pkt.systems/pslog"
)

// DefaultRecomputeInterval is how often the scheduler re-evaluates classes
// when nothing else triggers it, so grace and discard deadlines fire on time.
const DefaultRecomputeInterval = 5 * time.Second

// Server composes the tab service, engine, limiter, pressure monitor and
// the UI bridge.
type Server interface {
	Start(ctx context.Context) error
	Wait() error
	Stop(ctx context.Context) error
}

// ServerConfig configures the compositor.
type ServerConfig struct {
	Service  schema.ServiceConfig
	Bridge   bridge.Config
	Engine   enginecdp.Config
	Limiter  limiter.Config
	Pressure pressure.Config
	// StateDir holds the saved session; empty disables session persistence.
	StateDir string
	// MaxTabs caps concurrent engine processes.
	MaxTabs int
	// RecomputeInterval is the scheduler tick period.
	RecomputeInterval time.Duration
}

// ServerDeps captures dependency overrides, mainly for tests. Nil fields are
// built from the config.
type ServerDeps struct {
	ServiceDeps core.ServiceDeps
}

// ServerOption toggles compositor components.
type ServerOption func(*serverOptions)

type serverOptions struct {
	enableBridge   bool
	enablePressure bool
}

// WithBridge enables the UI bridge server.
func WithBridge() ServerOption {
	return func(o *serverOptions) { o.enableBridge = true }
}

// WithPressureMonitor enables the memory pressure monitor.
func WithPressureMonitor() ServerOption {
	return func(o *serverOptions) { o.enablePressure = true }
}

// New constructs a composable owlcore server.
func New(cfg ServerConfig, deps ServerDeps, opts ...ServerOption) (Server, error) {
	options := serverOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if !options.enableBridge && !options.enablePressure {
		return nil, errors.New("no services enabled")
	}
	normalized, err := schema.NormalizeServiceConfig(cfg.Service)
	if err != nil {
		return nil, err
	}
	cfg.Service = normalized
	if cfg.RecomputeInterval <= 0 {
		cfg.RecomputeInterval = DefaultRecomputeInterval
	}

	logger := deps.ServiceDeps.Logger
	serviceDeps := deps.ServiceDeps

	var super *supervisor.Supervisor
	if serviceDeps.Engine == nil {
		super = supervisor.New(enginecdp.New(cfg.Engine, logger), supervisor.Config{MaxTabs: cfg.MaxTabs}, logger)
		serviceDeps.Engine = super
	}
	if serviceDeps.Limiter == nil {
		serviceDeps.Limiter = limiter.New(cfg.Limiter, logger)
	}

	bus := eventbus.New(logger)
	if serviceDeps.EventSink == nil {
		serviceDeps.EventSink = bus
	} else {
		serviceDeps.EventSink = eventFanout{sinks: []core.EventSink{serviceDeps.EventSink, bus}}
	}

	service, err := core.NewService(cfg.Service, serviceDeps)
	if err != nil {
		return nil, err
	}

	srv := &compositeServer{
		cfg:     cfg,
		options: options,
		service: service,
		super:   super,
	}
	if cfg.StateDir != "" {
		store, err := session.NewStoreWithLogger(cfg.StateDir, logger)
		if err != nil {
			return nil, err
		}
		srv.sessions = store
	}
	if options.enableBridge {
		srv.bridge = bridge.NewServer(cfg.Bridge, service, bus)
	}
	if options.enablePressure {
		srv.monitor = pressure.NewMonitor(cfg.Pressure, logger)
	}
	return srv, nil
}

type compositeServer struct {
	cfg      ServerConfig
	options  serverOptions
	service  core.Service
	super    *supervisor.Supervisor
	bridge   *bridge.Server
	monitor  *pressure.Monitor
	sessions *session.Store
	logger   pslog.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	errCh   chan error
	started bool
}

func (s *compositeServer) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		pslog.Ctx(ctx).Warn("server start rejected", "reason", "already started")
		return errors.New("server already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.errCh = make(chan error, 2)
	s.started = true
	s.logger = pslog.Ctx(s.ctx)
	s.mu.Unlock()

	log := s.logger
	log.Info(
		"server start",
		"bridge", s.options.enableBridge,
		"pressure", s.options.enablePressure,
		"socket", s.cfg.Bridge.SocketPath,
		"max_tabs", s.cfg.MaxTabs,
	)
	if s.bridge != nil {
		go func() {
			if err := s.bridge.ListenAndServe(s.ctx); err != nil {
				log.Error("bridge server failed", "err", err)
				s.errCh <- err
			}
		}()
	}
	if s.monitor != nil {
		go func() {
			if err := s.monitor.Run(s.ctx, s.service); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("pressure monitor failed", "err", err)
				s.errCh <- err
			}
		}()
	}
	go s.recomputeLoop(s.ctx)
	if s.sessions != nil {
		go s.restoreSession(s.ctx)
	}
	return nil
}

// restoreSession replays the saved tab forest, or seeds the default session
// on first run. Runs off the start path because every restored tab spawns an
// engine process.
func (s *compositeServer) restoreSession(ctx context.Context) {
	snapshot, found, err := s.sessions.Load()
	if err != nil {
		s.logger.Warn("session restore skipped", "err", err)
		return
	}
	if !found {
		snapshot = session.Default(s.cfg.Service.HomeURL)
		s.logger.Info("seeding default session", "tabs", len(snapshot.Tabs))
	}
	if err := session.Restore(ctx, s.service, snapshot); err != nil && ctx.Err() == nil {
		s.logger.Warn("session restore incomplete", "err", err)
	}
}

// saveSession captures the live tree before shutdown tears it down.
func (s *compositeServer) saveSession(log pslog.Logger) {
	resp, err := s.service.Tree(context.Background(), schema.TreeRequest{})
	if err != nil {
		log.Warn("session save skipped", "err", err)
		return
	}
	if err := s.sessions.Save(session.Capture(resp.Tree)); err != nil {
		log.Warn("session save failed", "err", err)
	}
}

// recomputeLoop ticks the scheduler so time-based transitions (grace expiry,
// discard deadlines) happen without external signals.
func (s *compositeServer) recomputeLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RecomputeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.service.Recompute(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn("scheduler recompute failed", "err", err)
			}
		}
	}
}

func (s *compositeServer) Wait() error {
	s.mu.Lock()
	ctx := s.ctx
	errCh := s.errCh
	started := s.started
	s.mu.Unlock()
	if !started {
		return errors.New("server not started")
	}

	select {
	case <-ctx.Done():
		return schema.ErrServerClosed
	case err := <-errCh:
		if err != nil {
			pslog.Ctx(ctx).Error("server stopped", "err", err)
			_ = s.Stop(context.Background())
			return err
		}
		return schema.ErrServerClosed
	}
}

func (s *compositeServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	started := s.started
	log := s.logger
	s.mu.Unlock()
	if !started {
		return nil
	}
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	log.Info("server stop requested")
	if s.sessions != nil && s.service != nil {
		s.saveSession(log)
	}
	if s.service != nil {
		if err := s.service.Close(context.Background()); err != nil {
			log.Warn("service close failed", "err", err)
		}
	}
	if s.super != nil {
		// Backstop for engine processes the tree no longer references.
		if err := s.super.CloseAll(); err != nil {
			log.Warn("engine close failed", "err", err)
		}
	}
	if cancel != nil {
		cancel()
	}
	if ctx == nil {
		log.Info("server stop completed")
		return nil
	}
	select {
	case <-ctx.Done():
		log.Warn("server stop timed out", "err", ctx.Err())
		return ctx.Err()
	case <-s.ctx.Done():
		log.Info("server stopped")
		return nil
	}
}
