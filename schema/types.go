package schema

import "strconv"

// TabID identifies a tab. IDs are monotonic within a service instance and
// never reused, even after the tab is closed.
type TabID uint64

// NoTab is the zero TabID, used where a tab reference is optional.
const NoTab TabID = 0

func (id TabID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Class is the scheduling class assigned to a tab by the scheduler.
type Class string

const (
	// ClassActive marks the single focused, visible tab.
	ClassActive Class = "active"
	// ClassBackground marks a visible-but-unfocused or recently active tab.
	ClassBackground Class = "background"
	// ClassHidden marks a tab that is neither visible nor recently active.
	ClassHidden Class = "hidden"
	// ClassDiscard marks a hidden tab eligible for process teardown.
	ClassDiscard Class = "discard-candidate"
)

// Signal is a per-tab activity or visibility input.
type Signal string

const (
	// SignalFocusGained indicates the tab received input focus.
	SignalFocusGained Signal = "focus.gained"
	// SignalFocusLost indicates the tab lost input focus.
	SignalFocusLost Signal = "focus.lost"
	// SignalVisibilityShown indicates the tab became visible.
	SignalVisibilityShown Signal = "visibility.shown"
	// SignalVisibilityHidden indicates the tab became hidden.
	SignalVisibilityHidden Signal = "visibility.hidden"
	// SignalInputActivity indicates user input was delivered to the tab.
	SignalInputActivity Signal = "input"
)

// Flag selects a boolean tab attribute for flag mutations.
type Flag string

const (
	// FlagPinned pins the tab to the front of its sibling order.
	FlagPinned Flag = "pinned"
	// FlagMuted mutes tab audio.
	FlagMuted Flag = "muted"
	// FlagExpanded expands or collapses the tab's children in the UI.
	FlagExpanded Flag = "expanded"
)

// Pressure is the coarse memory pressure level reported by telemetry.
type Pressure string

const (
	// PressureLow indicates ample memory headroom.
	PressureLow Pressure = "low"
	// PressureModerate indicates reclaim-level headroom.
	PressureModerate Pressure = "moderate"
	// PressureSevere indicates imminent memory exhaustion.
	PressureSevere Pressure = "severe"
)

// Rank orders pressure levels so demotion checks stay monotonic.
func (p Pressure) Rank() int {
	switch p {
	case PressureModerate:
		return 1
	case PressureSevere:
		return 2
	default:
		return 0
	}
}

// IOClass is the relative I/O priority attached to a budget.
type IOClass string

const (
	// IOClassHigh favors the process for block I/O.
	IOClassHigh IOClass = "high"
	// IOClassBestEffort is the default I/O priority.
	IOClassBestEffort IOClass = "best-effort"
	// IOClassIdle services I/O only when the device is otherwise idle.
	IOClassIdle IOClass = "idle"
)

// Budget is a relative resource allocation for one tab process. Shares are
// proportional weights, not absolute guarantees.
type Budget struct {
	// CPUShare is a relative weight in 0..=1000.
	CPUShare uint32 `json:"cpu_share" yaml:"cpu_share" mapstructure:"cpu_share"`
	// IO selects the I/O priority class.
	IO IOClass `json:"io" yaml:"io" mapstructure:"io"`
	// MemoryCapBytes caps resident memory; zero means uncapped.
	MemoryCapBytes uint64 `json:"memory_cap_bytes" yaml:"memory_cap_bytes" mapstructure:"memory_cap_bytes"`
}

// Throttle is the engine-level execution directive for one tab.
type Throttle struct {
	// CPURate is the CPU throttling factor; 1 means no throttling.
	CPURate float64 `json:"cpu_rate"`
	// Frozen requests the frozen web lifecycle state (timers halted).
	Frozen bool `json:"frozen"`
}

// NoThrottle clears engine throttling.
var NoThrottle = Throttle{CPURate: 1}

// NavState mirrors the engine's navigation affordances for the active tab.
type NavState struct {
	CanGoBack    bool `json:"can_go_back"`
	CanGoForward bool `json:"can_go_forward"`
	IsLoading    bool `json:"is_loading"`
}

// ClosedTab records a recently closed tab for later restore.
type ClosedTab struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}
