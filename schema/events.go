package schema

// TabsEvent carries the full tab tree after any structural or attribute
// change. Consumers replace their view wholesale rather than applying diffs.
type TabsEvent struct {
	Tree TreeSnapshot `json:"tree"`
}

// NavEvent reports the active tab's navigation affordances.
type NavEvent struct {
	Tab TabID    `json:"tab"`
	Nav NavState `json:"nav"`
}

// FaviconEvent reports a resolved favicon for one or more tabs sharing an
// origin.
type FaviconEvent struct {
	Tabs []TabID `json:"tabs"`
	URI  string  `json:"uri"`
}

// SidebarEvent reports the UI sidebar visibility toggle.
type SidebarEvent struct {
	Visible bool `json:"visible"`
}

// HealthEvent reports control-plane health transitions, such as resource
// limiting falling back to a degraded mechanism.
type HealthEvent struct {
	LimitsDegraded bool   `json:"limits_degraded"`
	Detail         string `json:"detail,omitempty"`
}

// EngineEventKind discriminates events surfaced by a tab's engine process.
type EngineEventKind string

const (
	// EngineLoadStarted fires when the main frame starts loading.
	EngineLoadStarted EngineEventKind = "load.started"
	// EngineLoadFinished fires when the main frame stops loading.
	EngineLoadFinished EngineEventKind = "load.finished"
	// EngineURLChanged fires on main-frame navigation commit.
	EngineURLChanged EngineEventKind = "url.changed"
	// EngineTitleChanged fires when the page title changes.
	EngineTitleChanged EngineEventKind = "title.changed"
	// EngineChildOpened fires when the page opens a new target (popup or
	// target=_blank).
	EngineChildOpened EngineEventKind = "child.opened"
	// EngineCrashed fires when the renderer crashes.
	EngineCrashed EngineEventKind = "crashed"
)

// EngineEvent is a single event from a tab's engine process, tagged with the
// owning tab.
type EngineEvent struct {
	Tab   TabID           `json:"tab"`
	Kind  EngineEventKind `json:"kind"`
	URL   string          `json:"url,omitempty"`
	Title string          `json:"title,omitempty"`
}
