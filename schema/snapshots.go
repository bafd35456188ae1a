package schema

// TabNode is one node in the serialized tab tree. Children are ordered with
// pinned tabs first; the order is otherwise insertion order as adjusted by
// explicit moves.
type TabNode struct {
	ID          TabID     `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	FaviconURI  string    `json:"favicon_uri,omitempty"`
	IsGroup     bool      `json:"is_group"`
	IsPinned    bool      `json:"is_pinned"`
	IsMuted     bool      `json:"is_muted"`
	IsSuspended bool      `json:"is_suspended"`
	IsCrashed   bool      `json:"is_crashed,omitempty"`
	IsActive    bool      `json:"is_active"`
	IsExpanded  bool      `json:"is_expanded"`
	Children    []TabNode `json:"children"`
}

// TreeSnapshot is the full tab forest plus the active tab, as sent to UIs.
type TreeSnapshot struct {
	Roots  []TabNode `json:"roots"`
	Active TabID     `json:"active,omitempty"`
}

// TabStatus is the runtime view of a single tab: scheduling class, budget
// and process state. It augments the tree snapshot for diagnostics.
type TabStatus struct {
	ID        TabID  `json:"id"`
	Class     Class  `json:"class"`
	Budget    Budget `json:"budget"`
	PID       int    `json:"pid,omitempty"`
	Suspended bool   `json:"suspended"`
	Crashed   bool   `json:"crashed,omitempty"`
}

// StateSnapshot is the service-wide status view used by diagnostics.
type StateSnapshot struct {
	Tabs           []TabStatus `json:"tabs"`
	Active         TabID       `json:"active,omitempty"`
	Pressure       Pressure    `json:"pressure"`
	LimitsDegraded bool        `json:"limits_degraded"`
	SidebarVisible bool        `json:"sidebar_visible"`
	RecentlyClosed []ClosedTab `json:"recently_closed,omitempty"`
}
