// Package enginecdp runs tab engines as individual Chromium processes driven
// over the DevTools protocol. One browser process per tab keeps the OS-level
// isolation boundary aligned with the scheduler's per-tab budgets.
package enginecdp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chromedp/chromedp"
	"pkt.systems/owlcore/core"
	"pkt.systems/owlcore/schema"
	"pkt.systems/pslog"
)

// Config selects how Chromium is launched.
type Config struct {
	// ExecPath overrides the browser binary; empty uses chromedp's lookup.
	ExecPath string
	// Headless runs without a window. The default is headful, this is a
	// browser after all.
	Headless bool
	// NoSandbox disables the Chromium sandbox, needed in containers.
	NoSandbox bool
	// DataDir is the root for per-tab profile directories. Empty uses a
	// temporary directory per tab.
	DataDir string
}

// Engine implements core.Engine over chromedp.
type Engine struct {
	cfg Config
	log pslog.Logger
}

// New constructs the engine.
func New(cfg Config, logger pslog.Logger) *Engine {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Engine{cfg: cfg, log: logger}
}

// Spawn launches a browser process, waits for it to become ready and
// navigates to the initial URL. The ctx deadline bounds the whole startup.
func (e *Engine) Spawn(ctx context.Context, req core.SpawnRequest) (core.EngineHandle, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", e.cfg.Headless),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
	)
	if e.cfg.Headless {
		opts = append(opts, chromedp.Flag("disable-gpu", true))
	}
	if e.cfg.NoSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}
	if e.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(e.cfg.ExecPath))
	}
	if e.cfg.DataDir != "" {
		dir := filepath.Join(e.cfg.DataDir, fmt.Sprintf("tab-%d", req.Tab))
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("tab profile dir: %w", err)
		}
		opts = append(opts, chromedp.UserDataDir(dir))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	h := &handle{
		tab:    req.Tab,
		ctx:    tabCtx,
		cancel: func() { cancelTab(); cancelAlloc() },
		events: make(chan schema.EngineEvent, 64),
		done:   make(chan struct{}),
		log:    e.log.With("tab", req.Tab),
	}
	h.listen()

	startErr := make(chan error, 1)
	go func() {
		startErr <- chromedp.Run(tabCtx, chromedp.Navigate(req.URL))
	}()
	select {
	case err := <-startErr:
		if err != nil {
			h.cancel()
			return nil, fmt.Errorf("browser start: %w", err)
		}
	case <-ctx.Done():
		h.cancel()
		return nil, ctx.Err()
	}

	if c := chromedp.FromContext(tabCtx); c != nil && c.Browser != nil {
		if proc := c.Browser.Process(); proc != nil {
			h.pid = proc.Pid
		}
	}
	go h.watch()
	h.log.Debug("browser started", "pid", h.pid, "url", req.URL)
	return h, nil
}
