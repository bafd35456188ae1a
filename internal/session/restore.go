package session

import (
	"context"

	"pkt.systems/owlcore/core"
	"pkt.systems/owlcore/schema"
)

// Restore rebuilds a saved forest through the tab service. Tabs spawn fresh
// engine processes; the scheduler demotes hidden ones on its next pass. The
// tab marked active in the snapshot is selected last.
func Restore(ctx context.Context, svc core.Service, snapshot Snapshot) error {
	var active schema.TabID
	for _, tab := range snapshot.Tabs {
		if _, err := restoreNode(ctx, svc, schema.NoTab, tab, &active); err != nil {
			return err
		}
	}
	if active != schema.NoTab {
		if _, err := svc.SelectTab(ctx, schema.SelectTabRequest{TabID: active}); err != nil {
			return err
		}
	}
	return nil
}

func restoreNode(ctx context.Context, svc core.Service, parent schema.TabID, tab Tab, active *schema.TabID) (schema.TabID, error) {
	resp, err := svc.CreateTab(ctx, schema.CreateTabRequest{
		Parent: parent,
		URL:    tab.URL,
		Group:  tab.Group,
		Title:  tab.Title,
	})
	if err != nil {
		return schema.NoTab, err
	}
	id := resp.Tab.ID
	if tab.Pinned {
		if _, err := svc.SetFlag(ctx, schema.SetFlagRequest{TabID: id, Flag: schema.FlagPinned, Value: true}); err != nil {
			return schema.NoTab, err
		}
	}
	if tab.Muted {
		if _, err := svc.SetFlag(ctx, schema.SetFlagRequest{TabID: id, Flag: schema.FlagMuted, Value: true}); err != nil {
			return schema.NoTab, err
		}
	}
	if tab.Collapsed {
		if _, err := svc.SetFlag(ctx, schema.SetFlagRequest{TabID: id, Flag: schema.FlagExpanded, Value: false}); err != nil {
			return schema.NoTab, err
		}
	}
	if tab.Active {
		*active = id
	}
	for _, child := range tab.Children {
		if _, err := restoreNode(ctx, svc, id, child, active); err != nil {
			return schema.NoTab, err
		}
	}
	return id, nil
}

// Capture converts a live tree snapshot into its saved form.
func Capture(tree schema.TreeSnapshot) Snapshot {
	tabs := make([]Tab, 0, len(tree.Roots))
	for _, node := range tree.Roots {
		tabs = append(tabs, captureNode(node, tree.Active))
	}
	return Snapshot{Tabs: tabs}
}

func captureNode(node schema.TabNode, active schema.TabID) Tab {
	tab := Tab{
		Title:     node.Title,
		URL:       node.URL,
		Pinned:    node.IsPinned,
		Muted:     node.IsMuted,
		Group:     node.IsGroup,
		Collapsed: !node.IsExpanded && node.IsGroup,
		Active:    node.ID == active,
	}
	if len(node.Children) > 0 {
		tab.Children = make([]Tab, 0, len(node.Children))
		for _, child := range node.Children {
			tab.Children = append(tab.Children, captureNode(child, active))
		}
	}
	return tab
}
