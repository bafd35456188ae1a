package enginecdp

import (
	"context"
	"io"
	"sync"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/inspector"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"pkt.systems/owlcore/core"
	"pkt.systems/owlcore/schema"
	"pkt.systems/pslog"
)

// handle owns one Chromium process and its DevTools session.
type handle struct {
	tab    schema.TabID
	ctx    context.Context
	cancel func()
	pid    int
	log    pslog.Logger

	events    chan schema.EngineEvent
	done      chan struct{}
	closeOnce sync.Once
}

// listen wires DevTools events into the normalized event channel. Target
// info events arrive on the browser session, page events on the tab session.
func (h *handle) listen() {
	onEvent := func(ev any) {
		switch ev := ev.(type) {
		case *page.EventFrameStartedLoading:
			h.emit(schema.EngineEvent{Tab: h.tab, Kind: schema.EngineLoadStarted})
		case *page.EventFrameStoppedLoading:
			h.emit(schema.EngineEvent{Tab: h.tab, Kind: schema.EngineLoadFinished})
		case *page.EventFrameNavigated:
			if ev.Frame != nil && ev.Frame.ParentID == "" {
				h.emit(schema.EngineEvent{Tab: h.tab, Kind: schema.EngineURLChanged, URL: ev.Frame.URL})
			}
		case *target.EventTargetInfoChanged:
			if ev.TargetInfo != nil && ev.TargetInfo.Type == "page" {
				h.emit(schema.EngineEvent{Tab: h.tab, Kind: schema.EngineTitleChanged, Title: ev.TargetInfo.Title})
			}
		case *target.EventTargetCreated:
			if ev.TargetInfo != nil && ev.TargetInfo.Type == "page" && ev.TargetInfo.OpenerID != "" {
				h.emit(schema.EngineEvent{Tab: h.tab, Kind: schema.EngineChildOpened, URL: ev.TargetInfo.URL})
			}
		case *inspector.EventTargetCrashed:
			h.emit(schema.EngineEvent{Tab: h.tab, Kind: schema.EngineCrashed})
		}
	}
	chromedp.ListenTarget(h.ctx, onEvent)
	chromedp.ListenBrowser(h.ctx, onEvent)
}

func (h *handle) emit(event schema.EngineEvent) {
	select {
	case h.events <- event:
	default:
		// A stalled consumer loses events rather than wedging DevTools
		// dispatch.
	}
}

// watch closes done once the browser connection drops, which happens when
// the process exits or crashes.
func (h *handle) watch() {
	<-h.ctx.Done()
	h.closeOnce.Do(func() { close(h.done) })
}

func (h *handle) Events() core.EngineStream { return &stream{handle: h} }

func (h *handle) Navigate(ctx context.Context, url string) error {
	return h.run(ctx, chromedp.Navigate(url))
}

func (h *handle) Back(ctx context.Context) error {
	return h.run(ctx, chromedp.NavigateBack())
}

func (h *handle) Forward(ctx context.Context) error {
	return h.run(ctx, chromedp.NavigateForward())
}

func (h *handle) Reload(ctx context.Context) error {
	return h.run(ctx, chromedp.Reload())
}

func (h *handle) StopLoading(ctx context.Context) error {
	return h.run(ctx, chromedp.Stop())
}

// SetMuted flips media elements on the page. Chromium only accepts a
// process-wide mute flag at launch, so a toggle has to reach into the DOM.
func (h *handle) SetMuted(ctx context.Context, muted bool) error {
	script := `document.querySelectorAll('audio,video').forEach(m => { m.muted = ` + boolJS(muted) + `; });`
	return h.run(ctx, chromedp.Evaluate(script, nil))
}

func (h *handle) SetVisible(ctx context.Context, visible bool) error {
	if !visible {
		// Nothing to do: window stacking for hidden tabs is the
		// compositor's business, not the engine's.
		return nil
	}
	return h.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return page.BringToFront().Do(ctx)
	}))
}

// Throttle applies the CPU throttling factor and the web lifecycle state.
func (h *handle) Throttle(ctx context.Context, t schema.Throttle) error {
	rate := t.CPURate
	if rate < 1 {
		rate = 1
	}
	state := page.SetWebLifecycleStateStateActive
	if t.Frozen {
		state = page.SetWebLifecycleStateStateFrozen
	}
	return h.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		if err := emulation.SetCPUThrottlingRate(rate).Do(ctx); err != nil {
			return err
		}
		return page.SetWebLifecycleState(state).Do(ctx)
	}))
}

// Nav reads the navigation history to derive back/forward affordances.
func (h *handle) Nav(ctx context.Context) (schema.NavState, error) {
	var nav schema.NavState
	err := h.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		index, entries, err := page.GetNavigationHistory().Do(ctx)
		if err != nil {
			return err
		}
		nav.CanGoBack = index > 0
		nav.CanGoForward = int(index) < len(entries)-1
		return nil
	}))
	return nav, err
}

func (h *handle) PID() int { return h.pid }

func (h *handle) Done() <-chan struct{} { return h.done }

func (h *handle) Close() error {
	h.cancel()
	h.closeOnce.Do(func() { close(h.done) })
	return nil
}

// run executes actions on the tab session, bounded by the caller's ctx.
func (h *handle) run(ctx context.Context, actions ...chromedp.Action) error {
	select {
	case <-h.done:
		return schema.ErrEngineGone
	default:
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- chromedp.Run(h.ctx, actions...)
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return schema.ErrEngineGone
	}
}

func boolJS(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// stream adapts the event channel to the engine stream interface.
type stream struct {
	handle *handle
}

func (s *stream) Next(ctx context.Context) (schema.EngineEvent, error) {
	select {
	case <-ctx.Done():
		return schema.EngineEvent{}, ctx.Err()
	case event := <-s.handle.events:
		return event, nil
	case <-s.handle.done:
		return schema.EngineEvent{}, io.EOF
	}
}

func (s *stream) Close() error { return nil }
