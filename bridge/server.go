package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"os"
	"strings"
	"sync"

	"pkt.systems/owlcore/core"
	"pkt.systems/owlcore/internal/eventbus"
	sessions "pkt.systems/owlcore/internal/session"
	"pkt.systems/owlcore/schema"
	"pkt.systems/pslog"
)

// maxLineBytes bounds a single inbound message.
const maxLineBytes = 1 << 20

// Config holds the bridge server settings.
type Config struct {
	// SocketPath is the unix socket the UI shell connects to.
	SocketPath string
	// HomeURL is the nav.home target.
	HomeURL string
	// SearchURL resolves non-URL address-bar input; must contain %s.
	SearchURL string
	// DefaultFavicon is the asset URI sent to the shell for tabs without a
	// resolved favicon.
	DefaultFavicon string
}

// Server speaks the JSON-lines UI protocol over a unix socket. Each
// connection gets its own event subscription; requests mutate the service
// and results flow back as state events.
type Server struct {
	cfg     Config
	service core.Service
	bus     *eventbus.Bus
}

// NewServer constructs a bridge server.
func NewServer(cfg Config, service core.Service, bus *eventbus.Bus) *Server {
	return &Server{cfg: cfg, service: service, bus: bus}
}

// ListenAndServe accepts UI connections until the context is canceled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	logger := pslog.Ctx(ctx)
	// A stale socket from a previous run blocks the bind.
	if err := os.Remove(s.cfg.SocketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	listener, err := net.Listen("unix", s.cfg.SocketPath)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()
	logger.Info("bridge listening", "socket", s.cfg.SocketPath)
	var wg sync.WaitGroup
	for {
		conn, err := listener.Accept()
		if err != nil {
			wg.Wait()
			_ = os.Remove(s.cfg.SocketPath)
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

// session serializes writes to one connection; the event pump and the
// request loop both send through it.
type session struct {
	mu  sync.Mutex
	enc *json.Encoder
	log pslog.Logger
}

func (c *session) send(env Envelope, err error) {
	if err != nil {
		c.log.Warn("bridge encode failed", "err", err)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enc.Encode(env); err != nil {
		c.log.Debug("bridge write failed", "err", err)
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	logger := pslog.Ctx(ctx).With("remote", conn.RemoteAddr().String())
	logger.Info("bridge connected")
	sess := &session{enc: json.NewEncoder(conn), log: logger}

	events, unsubscribe := s.bus.Subscribe()
	defer unsubscribe()
	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		s.pumpEvents(ctx, sess, events)
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		env, err := decodeEnvelope(line)
		if err != nil {
			logger.Warn("bridge message rejected", "err", err)
			sess.send(errorMessage(err.Error()))
			continue
		}
		if err := s.dispatch(ctx, sess, env); err != nil {
			logger.Warn("bridge request failed", "type", env.Type, "err", err)
			sess.send(errorMessage(err.Error()))
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		logger.Debug("bridge read ended", "err", err)
	}
	unsubscribe()
	<-pumpDone
	logger.Info("bridge disconnected")
}

// pumpEvents forwards service events to one connection until the
// subscription closes.
func (s *Server) pumpEvents(ctx context.Context, sess *session, events <-chan eventbus.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			switch event.Type {
			case eventbus.EventTabs:
				sess.send(tabsMessage(event.Tabs))
			case eventbus.EventNav:
				sess.send(navMessage(event.Nav))
			case eventbus.EventFavicon:
				sess.send(faviconMessage(event.Favicon))
			case eventbus.EventSidebar:
				sess.send(sidebarMessage(event.Sidebar))
			case eventbus.EventHealth:
				sess.send(healthMessage(event.Health))
			}
		}
	}
}

func (s *Server) dispatch(ctx context.Context, sess *session, env Envelope) error {
	switch env.Type {
	case MsgUIReady:
		return s.sendSnapshot(ctx, sess)
	case MsgTabSelect:
		var ref tabRef
		if err := decodePayload(env, &ref); err != nil {
			return err
		}
		_, err := s.service.SelectTab(ctx, schema.SelectTabRequest{TabID: ref.ID})
		return err
	case MsgTabToggle:
		return s.flipFlag(ctx, env, schema.FlagExpanded)
	case MsgTabPin:
		return s.flipFlag(ctx, env, schema.FlagPinned)
	case MsgTabMute:
		return s.flipFlag(ctx, env, schema.FlagMuted)
	case MsgTabUnload:
		var ref tabRef
		if err := decodePayload(env, &ref); err != nil {
			return err
		}
		_, err := s.service.DiscardTab(ctx, schema.DiscardTabRequest{TabID: ref.ID})
		return err
	case MsgTabCreate:
		var payload createPayload
		if err := decodePayload(env, &payload); err != nil {
			return err
		}
		_, err := s.service.CreateTab(ctx, schema.CreateTabRequest{
			Parent:   payload.Parent,
			URL:      payload.URL,
			Group:    payload.Group,
			Activate: !payload.Group,
		})
		return err
	case MsgTabClose:
		var ref tabRef
		if err := decodePayload(env, &ref); err != nil {
			return err
		}
		_, err := s.service.CloseTab(ctx, schema.CloseTabRequest{TabID: ref.ID})
		return err
	case MsgTabReopen:
		_, err := s.service.ReopenTab(ctx, schema.ReopenTabRequest{Activate: true})
		return err
	case MsgNavGo:
		var target navTarget
		if err := decodePayload(env, &target); err != nil {
			return err
		}
		resolved, err := schema.NormalizeNavInput(target.URL, s.cfg.SearchURL)
		if err != nil {
			return err
		}
		if slug, ok := strings.CutPrefix(resolved, "owl://session/"); ok {
			return s.openSession(ctx, slug)
		}
		return s.service.Navigate(ctx, schema.NavigateRequest{URL: resolved})
	case MsgNavBack:
		return s.service.NavAction(ctx, schema.NavActionRequest{Action: schema.NavBack})
	case MsgNavForward:
		return s.service.NavAction(ctx, schema.NavActionRequest{Action: schema.NavForward})
	case MsgNavReload:
		return s.service.NavAction(ctx, schema.NavActionRequest{Action: schema.NavReload})
	case MsgNavStop:
		return s.service.NavAction(ctx, schema.NavActionRequest{Action: schema.NavStop})
	case MsgNavHome:
		return s.service.Navigate(ctx, schema.NavigateRequest{URL: s.cfg.HomeURL})
	case MsgSidebarToggle:
		var payload sidebarPayload
		if err := decodePayload(env, &payload); err != nil {
			return err
		}
		var req schema.SidebarToggleRequest
		if payload.Collapsed != nil {
			visible := !*payload.Collapsed
			req.Visible = &visible
		}
		_, err := s.service.ToggleSidebar(ctx, req)
		return err
	default:
		// Unknown types are ignored so older shells keep working against
		// newer daemons.
		sess.log.Debug("bridge message ignored", "type", env.Type)
		return nil
	}
}

// sendSnapshot seeds a fresh connection with the full UI state.
func (s *Server) sendSnapshot(ctx context.Context, sess *session) error {
	sess.send(assetsMessage(s.cfg.DefaultFavicon))
	tree, err := s.service.Tree(ctx, schema.TreeRequest{})
	if err != nil {
		return err
	}
	sess.send(tabsMessage(schema.TabsEvent{Tree: tree.Tree}))
	state, err := s.service.State(ctx, schema.StateRequest{})
	if err != nil {
		return err
	}
	sess.send(sidebarMessage(schema.SidebarEvent{Visible: state.State.SidebarVisible}))
	if state.State.LimitsDegraded {
		sess.send(healthMessage(schema.HealthEvent{LimitsDegraded: true}))
	}
	return nil
}

// flipFlag toggles a boolean tab attribute based on its current tree state.
func (s *Server) flipFlag(ctx context.Context, env Envelope, flag schema.Flag) error {
	var ref tabRef
	if err := decodePayload(env, &ref); err != nil {
		return err
	}
	tree, err := s.service.Tree(ctx, schema.TreeRequest{})
	if err != nil {
		return err
	}
	node := findNode(tree.Tree.Roots, ref.ID)
	if node == nil {
		return schema.ErrTabNotFound
	}
	var current bool
	switch flag {
	case schema.FlagPinned:
		current = node.IsPinned
	case schema.FlagMuted:
		current = node.IsMuted
	case schema.FlagExpanded:
		current = node.IsExpanded
	}
	_, err = s.service.SetFlag(ctx, schema.SetFlagRequest{TabID: ref.ID, Flag: flag, Value: !current})
	return err
}

// openSession expands a named template into a new group of tabs. Unknown
// slugs navigate home, matching how bad owl:// addresses behave.
func (s *Server) openSession(ctx context.Context, slug string) error {
	snapshot, ok := sessions.Template(slug)
	if !ok {
		return s.service.Navigate(ctx, schema.NavigateRequest{URL: s.cfg.HomeURL})
	}
	return sessions.Restore(ctx, s.service, snapshot)
}

func findNode(nodes []schema.TabNode, id schema.TabID) *schema.TabNode {
	for i := range nodes {
		if nodes[i].ID == id {
			return &nodes[i]
		}
		if found := findNode(nodes[i].Children, id); found != nil {
			return found
		}
	}
	return nil
}
