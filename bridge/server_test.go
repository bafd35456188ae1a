package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"pkt.systems/owlcore/internal/eventbus"
	"pkt.systems/owlcore/schema"
	"pkt.systems/pslog"
)

// stubService records the last request per operation and serves a canned
// tree for flag toggles.
type stubService struct {
	tree schema.TreeSnapshot

	created   []schema.CreateTabRequest
	selected  []schema.SelectTabRequest
	closed    []schema.CloseTabRequest
	discarded []schema.DiscardTabRequest
	flags     []schema.SetFlagRequest
	navigated []schema.NavigateRequest
	actions   []schema.NavActionRequest
	reopens   int
	toggles   []schema.SidebarToggleRequest
	nextID    schema.TabID
}

func (s *stubService) CreateTab(ctx context.Context, req schema.CreateTabRequest) (schema.CreateTabResponse, error) {
	s.created = append(s.created, req)
	s.nextID++
	return schema.CreateTabResponse{Tab: schema.TabNode{ID: s.nextID, IsGroup: req.Group}}, nil
}

func (s *stubService) CloseTab(ctx context.Context, req schema.CloseTabRequest) (schema.CloseTabResponse, error) {
	s.closed = append(s.closed, req)
	return schema.CloseTabResponse{}, nil
}

func (s *stubService) SelectTab(ctx context.Context, req schema.SelectTabRequest) (schema.SelectTabResponse, error) {
	s.selected = append(s.selected, req)
	return schema.SelectTabResponse{}, nil
}

func (s *stubService) MoveTab(ctx context.Context, req schema.MoveTabRequest) (schema.MoveTabResponse, error) {
	return schema.MoveTabResponse{}, nil
}

func (s *stubService) SetFlag(ctx context.Context, req schema.SetFlagRequest) (schema.SetFlagResponse, error) {
	s.flags = append(s.flags, req)
	return schema.SetFlagResponse{}, nil
}

func (s *stubService) DiscardTab(ctx context.Context, req schema.DiscardTabRequest) (schema.DiscardTabResponse, error) {
	s.discarded = append(s.discarded, req)
	return schema.DiscardTabResponse{}, nil
}

func (s *stubService) ReopenTab(ctx context.Context, req schema.ReopenTabRequest) (schema.ReopenTabResponse, error) {
	s.reopens++
	return schema.ReopenTabResponse{}, nil
}

func (s *stubService) Navigate(ctx context.Context, req schema.NavigateRequest) error {
	s.navigated = append(s.navigated, req)
	return nil
}

func (s *stubService) NavAction(ctx context.Context, req schema.NavActionRequest) error {
	s.actions = append(s.actions, req)
	return nil
}

func (s *stubService) Signal(ctx context.Context, req schema.SignalRequest) error {
	return nil
}

func (s *stubService) ReportPressure(ctx context.Context, req schema.PressureRequest) error {
	return nil
}

func (s *stubService) ToggleSidebar(ctx context.Context, req schema.SidebarToggleRequest) (schema.SidebarToggleResponse, error) {
	s.toggles = append(s.toggles, req)
	return schema.SidebarToggleResponse{}, nil
}

func (s *stubService) Tree(ctx context.Context, req schema.TreeRequest) (schema.TreeResponse, error) {
	return schema.TreeResponse{Tree: s.tree}, nil
}

func (s *stubService) State(ctx context.Context, req schema.StateRequest) (schema.StateResponse, error) {
	return schema.StateResponse{State: schema.StateSnapshot{SidebarVisible: true}}, nil
}

func (s *stubService) Recompute(ctx context.Context) error { return nil }
func (s *stubService) Close(ctx context.Context) error     { return nil }

func newTestServer(stub *stubService) (*Server, *session) {
	srv := NewServer(Config{
		HomeURL:   "https://home.example",
		SearchURL: "https://search.example/?q=%s",
	}, stub, eventbus.New(nil))
	sess := &session{enc: json.NewEncoder(discardWriter{}), log: pslog.Ctx(context.Background())}
	return srv, sess
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func mustEnvelope(t *testing.T, msgType string, payload string) Envelope {
	t.Helper()
	env := Envelope{SchemaVersion: SchemaVersion, Type: msgType}
	if payload != "" {
		env.Payload = json.RawMessage(payload)
	}
	return env
}

func TestDispatchTabOperations(t *testing.T) {
	stub := &stubService{}
	srv, sess := newTestServer(stub)
	ctx := context.Background()

	if err := srv.dispatch(ctx, sess, mustEnvelope(t, MsgTabSelect, `{"id":4}`)); err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(stub.selected) != 1 || stub.selected[0].TabID != 4 {
		t.Fatalf("select requests = %+v", stub.selected)
	}
	if err := srv.dispatch(ctx, sess, mustEnvelope(t, MsgTabUnload, `{"id":4}`)); err != nil {
		t.Fatalf("unload: %v", err)
	}
	if len(stub.discarded) != 1 || stub.discarded[0].TabID != 4 {
		t.Fatalf("discard requests = %+v", stub.discarded)
	}
	if err := srv.dispatch(ctx, sess, mustEnvelope(t, MsgTabClose, `{"id":4}`)); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := srv.dispatch(ctx, sess, mustEnvelope(t, MsgTabCreate, "")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(stub.created) != 1 || !stub.created[0].Activate {
		t.Fatalf("create requests = %+v", stub.created)
	}
	if err := srv.dispatch(ctx, sess, mustEnvelope(t, MsgTabReopen, "")); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if stub.reopens != 1 {
		t.Fatalf("reopens = %d", stub.reopens)
	}
}

func TestDispatchFlipsPinFromTreeState(t *testing.T) {
	stub := &stubService{tree: schema.TreeSnapshot{Roots: []schema.TabNode{
		{ID: 1, IsPinned: true, Children: []schema.TabNode{{ID: 2}}},
	}}}
	srv, sess := newTestServer(stub)
	ctx := context.Background()

	if err := srv.dispatch(ctx, sess, mustEnvelope(t, MsgTabPin, `{"id":1}`)); err != nil {
		t.Fatalf("pin: %v", err)
	}
	if err := srv.dispatch(ctx, sess, mustEnvelope(t, MsgTabPin, `{"id":2}`)); err != nil {
		t.Fatalf("pin child: %v", err)
	}
	if len(stub.flags) != 2 {
		t.Fatalf("flag requests = %+v", stub.flags)
	}
	if stub.flags[0].Value {
		t.Fatalf("pinned tab should be unpinned")
	}
	if !stub.flags[1].Value {
		t.Fatalf("unpinned child should be pinned")
	}
	err := srv.dispatch(ctx, sess, mustEnvelope(t, MsgTabPin, `{"id":9}`))
	if !errors.Is(err, schema.ErrTabNotFound) {
		t.Fatalf("unknown tab: got %v, want ErrTabNotFound", err)
	}
}

func TestDispatchNavigation(t *testing.T) {
	stub := &stubService{}
	srv, sess := newTestServer(stub)
	ctx := context.Background()

	if err := srv.dispatch(ctx, sess, mustEnvelope(t, MsgNavGo, `{"url":"example.org"}`)); err != nil {
		t.Fatalf("nav.go: %v", err)
	}
	if got := stub.navigated[0].URL; got != "https://example.org" {
		t.Fatalf("bare host should get https, got %q", got)
	}
	if err := srv.dispatch(ctx, sess, mustEnvelope(t, MsgNavGo, `{"url":"cat pictures"}`)); err != nil {
		t.Fatalf("nav.go search: %v", err)
	}
	if got := stub.navigated[1].URL; got != "https://search.example/?q=cat+pictures" {
		t.Fatalf("search rewrite = %q", got)
	}
	if err := srv.dispatch(ctx, sess, mustEnvelope(t, MsgNavHome, "")); err != nil {
		t.Fatalf("nav.home: %v", err)
	}
	if got := stub.navigated[2].URL; got != "https://home.example" {
		t.Fatalf("home = %q", got)
	}
	for _, tc := range []struct {
		msg    string
		action schema.NavActionKind
	}{
		{MsgNavBack, schema.NavBack},
		{MsgNavForward, schema.NavForward},
		{MsgNavReload, schema.NavReload},
		{MsgNavStop, schema.NavStop},
	} {
		if err := srv.dispatch(ctx, sess, mustEnvelope(t, tc.msg, "")); err != nil {
			t.Fatalf("%s: %v", tc.msg, err)
		}
	}
	if len(stub.actions) != 4 || stub.actions[3].Action != schema.NavStop {
		t.Fatalf("actions = %+v", stub.actions)
	}
}

func TestDispatchIgnoresUnknownTypes(t *testing.T) {
	stub := &stubService{}
	srv, sess := newTestServer(stub)
	if err := srv.dispatch(context.Background(), sess, mustEnvelope(t, "ui.future-feature", `{"x":1}`)); err != nil {
		t.Fatalf("unknown type must be ignored, got %v", err)
	}
}

func TestDispatchSidebarToggle(t *testing.T) {
	stub := &stubService{}
	srv, sess := newTestServer(stub)
	ctx := context.Background()
	if err := srv.dispatch(ctx, sess, mustEnvelope(t, MsgSidebarToggle, `{"collapsed":true}`)); err != nil {
		t.Fatalf("sidebar toggle: %v", err)
	}
	if err := srv.dispatch(ctx, sess, mustEnvelope(t, MsgSidebarToggle, `{"collapsed":false}`)); err != nil {
		t.Fatalf("sidebar toggle: %v", err)
	}
	if err := srv.dispatch(ctx, sess, mustEnvelope(t, MsgSidebarToggle, `{}`)); err != nil {
		t.Fatalf("sidebar toggle: %v", err)
	}
	if len(stub.toggles) != 3 {
		t.Fatalf("toggles = %d", len(stub.toggles))
	}
	if v := stub.toggles[0].Visible; v == nil || *v {
		t.Fatalf("collapsed:true should force the sidebar hidden, got %v", v)
	}
	if v := stub.toggles[1].Visible; v == nil || !*v {
		t.Fatalf("collapsed:false should force the sidebar shown, got %v", v)
	}
	if stub.toggles[2].Visible != nil {
		t.Fatalf("without a collapsed field the daemon toggles, got %v", *stub.toggles[2].Visible)
	}
}

func TestDispatchOpensSessionTemplate(t *testing.T) {
	stub := &stubService{}
	srv, sess := newTestServer(stub)
	ctx := context.Background()

	if err := srv.dispatch(ctx, sess, mustEnvelope(t, MsgNavGo, `{"url":"owl://session/research-notes"}`)); err != nil {
		t.Fatalf("nav.go session: %v", err)
	}
	if len(stub.created) != 4 {
		t.Fatalf("expected group plus three tabs, got %d creates", len(stub.created))
	}
	if !stub.created[0].Group || stub.created[0].Title != "Research Notes" {
		t.Fatalf("first create should be the template group, got %+v", stub.created[0])
	}
	for _, req := range stub.created[1:] {
		if req.Parent != 1 {
			t.Fatalf("template tab should nest under the group, got parent %d", req.Parent)
		}
	}
	if len(stub.selected) != 1 || stub.selected[0].TabID != 2 {
		t.Fatalf("first template tab should be selected, got %+v", stub.selected)
	}
	if len(stub.navigated) != 0 {
		t.Fatalf("template open should not navigate, got %+v", stub.navigated)
	}

	if err := srv.dispatch(ctx, sess, mustEnvelope(t, MsgNavGo, `{"url":"owl://session/no-such"}`)); err != nil {
		t.Fatalf("nav.go unknown session: %v", err)
	}
	if len(stub.navigated) != 1 || stub.navigated[0].URL != "https://home.example" {
		t.Fatalf("unknown template should go home, got %+v", stub.navigated)
	}
}
