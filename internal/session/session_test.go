package session

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"pkt.systems/owlcore/schema"
)

func TestStoreLoadMissing(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	_, ok, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ok {
		t.Fatalf("expected missing snapshot")
	}
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	snapshot := Snapshot{
		Tabs: []Tab{
			{Title: "Home", URL: "owl://home", Pinned: true},
			{
				Title:     "Reading",
				Group:     true,
				Collapsed: true,
				Children: []Tab{
					{Title: "WebKitGTK", URL: "https://webkitgtk.org", Active: true},
				},
			},
		},
	}
	if err := store.Save(snapshot); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !ok {
		t.Fatalf("expected saved snapshot")
	}
	if !reflect.DeepEqual(got, snapshot) {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, snapshot)
	}
}

func TestStoreLoadRejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "session.json"), []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := store.Load(); err == nil {
		t.Fatalf("expected error for corrupt session file")
	}
}

func TestTemplateKnownSlugs(t *testing.T) {
	for _, slug := range []string{"research-notes", "release-planning", "wayland-checklist"} {
		snap, ok := Template(slug)
		if !ok {
			t.Fatalf("template %q missing", slug)
		}
		if len(snap.Tabs) != 1 || !snap.Tabs[0].Group {
			t.Fatalf("template %q should be a single group, got %+v", slug, snap.Tabs)
		}
		if !snap.Tabs[0].Children[0].Active {
			t.Fatalf("template %q first tab should be active", slug)
		}
	}
	if _, ok := Template("unknown"); ok {
		t.Fatalf("unexpected template for unknown slug")
	}
}

func TestRestoreRebuildsForest(t *testing.T) {
	svc := &recordingService{}
	snap := Default("owl://home")
	if err := Restore(context.Background(), svc, snap); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if len(svc.created) != 5 {
		t.Fatalf("expected 5 creates, got %d", len(svc.created))
	}
	group := svc.created[1]
	if !group.Group || group.Title != "Reading" {
		t.Fatalf("expected Reading group second, got %+v", group)
	}
	for _, child := range svc.created[2:] {
		if child.Parent != 2 {
			t.Fatalf("group child should nest under the group, got parent %d", child.Parent)
		}
	}
	if svc.selected != 3 {
		t.Fatalf("expected first group member selected, got %d", svc.selected)
	}
}

func TestRestoreAppliesFlags(t *testing.T) {
	svc := &recordingService{}
	snap := Snapshot{Tabs: []Tab{
		{URL: "https://example.com", Pinned: true, Muted: true},
		{Title: "Work", Group: true, Collapsed: true},
	}}
	if err := Restore(context.Background(), svc, snap); err != nil {
		t.Fatalf("restore: %v", err)
	}
	want := []schema.SetFlagRequest{
		{TabID: 1, Flag: schema.FlagPinned, Value: true},
		{TabID: 1, Flag: schema.FlagMuted, Value: true},
		{TabID: 2, Flag: schema.FlagExpanded, Value: false},
	}
	if !reflect.DeepEqual(svc.flags, want) {
		t.Fatalf("flag requests mismatch: got %+v want %+v", svc.flags, want)
	}
	if svc.selected != schema.NoTab {
		t.Fatalf("nothing should be selected, got %d", svc.selected)
	}
}

func TestCaptureRoundTripsTree(t *testing.T) {
	tree := schema.TreeSnapshot{
		Active: 3,
		Roots: []schema.TabNode{
			{ID: 1, Title: "Home", URL: "owl://home", IsPinned: true, IsExpanded: true},
			{ID: 2, Title: "Reading", IsGroup: true, Children: []schema.TabNode{
				{ID: 3, Title: "WebKitGTK", URL: "https://webkitgtk.org", IsExpanded: true},
			}},
		},
	}
	got := Capture(tree)
	want := Snapshot{Tabs: []Tab{
		{Title: "Home", URL: "owl://home", Pinned: true},
		{Title: "Reading", Group: true, Collapsed: true, Children: []Tab{
			{Title: "WebKitGTK", URL: "https://webkitgtk.org", Active: true},
		}},
	}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("capture mismatch: got %+v want %+v", got, want)
	}
}

// recordingService implements core.Service and records tree mutations.
type recordingService struct {
	created  []schema.CreateTabRequest
	flags    []schema.SetFlagRequest
	selected schema.TabID
	nextID   schema.TabID
}

func (r *recordingService) CreateTab(_ context.Context, req schema.CreateTabRequest) (schema.CreateTabResponse, error) {
	r.created = append(r.created, req)
	r.nextID++
	return schema.CreateTabResponse{Tab: schema.TabNode{ID: r.nextID, IsGroup: req.Group}}, nil
}

func (r *recordingService) SelectTab(_ context.Context, req schema.SelectTabRequest) (schema.SelectTabResponse, error) {
	r.selected = req.TabID
	return schema.SelectTabResponse{}, nil
}

func (r *recordingService) SetFlag(_ context.Context, req schema.SetFlagRequest) (schema.SetFlagResponse, error) {
	r.flags = append(r.flags, req)
	return schema.SetFlagResponse{}, nil
}

func (r *recordingService) CloseTab(context.Context, schema.CloseTabRequest) (schema.CloseTabResponse, error) {
	return schema.CloseTabResponse{}, nil
}

func (r *recordingService) MoveTab(context.Context, schema.MoveTabRequest) (schema.MoveTabResponse, error) {
	return schema.MoveTabResponse{}, nil
}

func (r *recordingService) DiscardTab(context.Context, schema.DiscardTabRequest) (schema.DiscardTabResponse, error) {
	return schema.DiscardTabResponse{}, nil
}

func (r *recordingService) ReopenTab(context.Context, schema.ReopenTabRequest) (schema.ReopenTabResponse, error) {
	return schema.ReopenTabResponse{}, nil
}

func (r *recordingService) Navigate(context.Context, schema.NavigateRequest) error { return nil }

func (r *recordingService) NavAction(context.Context, schema.NavActionRequest) error { return nil }

func (r *recordingService) Signal(context.Context, schema.SignalRequest) error { return nil }

func (r *recordingService) ReportPressure(context.Context, schema.PressureRequest) error { return nil }

func (r *recordingService) ToggleSidebar(context.Context, schema.SidebarToggleRequest) (schema.SidebarToggleResponse, error) {
	return schema.SidebarToggleResponse{}, nil
}

func (r *recordingService) Tree(context.Context, schema.TreeRequest) (schema.TreeResponse, error) {
	return schema.TreeResponse{}, nil
}

func (r *recordingService) State(context.Context, schema.StateRequest) (schema.StateResponse, error) {
	return schema.StateResponse{}, nil
}

func (r *recordingService) Recompute(context.Context) error { return nil }

func (r *recordingService) Close(context.Context) error { return nil }
