package schema

// Tab lifecycle.

// CreateTabRequest describes a request to create a tab.
type CreateTabRequest struct {
	// Parent nests the new tab under an existing node; NoTab creates a root.
	Parent TabID
	// URL is the initial navigation target; empty uses the configured home.
	URL string
	// Group creates an organizational group node with no engine process.
	Group bool
	// Title names a group node; engine tabs derive titles from navigation.
	Title string
	// Activate selects the new tab immediately.
	Activate bool
}

// CreateTabResponse reports the created tab.
type CreateTabResponse struct {
	Tab TabNode
}

// CloseTabRequest describes a request to close a tab and its subtree.
type CloseTabRequest struct {
	TabID TabID
	// Subtree removes the tab's descendants too. The default close keeps
	// them, reparenting them into the closed tab's slot.
	Subtree bool
}

// CloseTabResponse reports the closed subtree's node count and, when the
// active tab was inside it, the successor.
type CloseTabResponse struct {
	Closed    int
	NewActive TabID
}

// SelectTabRequest describes a request to make a tab active.
type SelectTabRequest struct {
	TabID TabID
}

// SelectTabResponse reports the newly active tab. Resumed is true when the
// tab was suspended and a fresh engine process was spawned.
type SelectTabResponse struct {
	Tab     TabNode
	Resumed bool
}

// MoveTabRequest describes a reparent or reorder of a tab.
type MoveTabRequest struct {
	TabID TabID
	// Parent is the new parent; NoTab moves the tab to root level.
	Parent TabID
	// Index is the position among the new siblings; values past the end
	// append. Pinned-first ordering is re-enforced after the move.
	Index int
}

// MoveTabResponse reports the tree after the move.
type MoveTabResponse struct {
	Tree TreeSnapshot
}

// SetFlagRequest describes a boolean attribute change on a tab.
type SetFlagRequest struct {
	TabID TabID
	Flag  Flag
	Value bool
}

// SetFlagResponse reports the updated tab.
type SetFlagResponse struct {
	Tab TabNode
}

// DiscardTabRequest describes an explicit unload of a tab's engine process.
// The tab stays in the tree and restores on the next select.
type DiscardTabRequest struct {
	TabID TabID
}

// DiscardTabResponse reports the suspended tab.
type DiscardTabResponse struct {
	Tab TabNode
}

// ReopenTabRequest describes a request to restore the most recently closed
// tab as a fresh root tab.
type ReopenTabRequest struct {
	Activate bool
}

// ReopenTabResponse reports the restored tab.
type ReopenTabResponse struct {
	Tab TabNode
}

// Navigation.

// NavigateRequest describes a navigation on a tab.
type NavigateRequest struct {
	// TabID selects the tab; NoTab targets the active tab.
	TabID TabID
	URL   string
}

// NavActionKind selects a history or load-control action.
type NavActionKind string

const (
	NavBack    NavActionKind = "back"
	NavForward NavActionKind = "forward"
	NavReload  NavActionKind = "reload"
	NavStop    NavActionKind = "stop"
)

// NavActionRequest describes a history or load-control action on the active
// tab.
type NavActionRequest struct {
	Action NavActionKind
}

// Activity and telemetry.

// SignalRequest reports a visibility or input signal for a tab.
type SignalRequest struct {
	TabID  TabID
	Signal Signal
}

// PressureRequest reports a memory pressure level to the scheduler.
type PressureRequest struct {
	Level Pressure
}

// SidebarToggleRequest toggles the UI sidebar.
type SidebarToggleRequest struct {
	// Visible forces the sidebar to the given state; nil toggles.
	Visible *bool
}

// SidebarToggleResponse reports the new sidebar visibility.
type SidebarToggleResponse struct {
	Visible bool
}

// Introspection.

// TreeRequest asks for the current tab tree.
type TreeRequest struct{}

// TreeResponse reports the full tab forest.
type TreeResponse struct {
	Tree TreeSnapshot
}

// StateRequest asks for the service-wide runtime state.
type StateRequest struct{}

// StateResponse reports per-tab classes, budgets and process status.
type StateResponse struct {
	State StateSnapshot
}
