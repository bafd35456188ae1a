package core

import (
	"time"

	"pkt.systems/owlcore/schema"
)

// tab tracks the state of a single tab node, including its engine process
// handle when one is running.
type tab struct {
	ID       schema.TabID
	Parent   schema.TabID
	Children []schema.TabID

	Title      string
	URL        string
	FaviconURI string
	IsGroup    bool
	Pinned     bool
	Muted      bool
	Expanded   bool
	Suspended  bool
	// Crashed marks a tab whose engine died without a close or discard. It
	// clears on the next successful resume.
	Crashed bool

	// Class is the last class the scheduler applied. Directives are only
	// re-issued when the recomputed class differs.
	Class schema.Class
	Nav   schema.NavState

	handle EngineHandle

	// Activity inputs consumed by the scheduler.
	visible     bool
	focused     bool
	inputScore  float64
	lastInput   time.Time
	hiddenSince time.Time
	graceUntil  time.Time
}

// Snapshot returns a transport-friendly view of the tab without children.
func (t *tab) Snapshot(active schema.TabID) schema.TabNode {
	return schema.TabNode{
		ID:          t.ID,
		Title:       t.Title,
		URL:         t.URL,
		FaviconURI:  t.FaviconURI,
		IsGroup:     t.IsGroup,
		IsPinned:    t.Pinned,
		IsMuted:     t.Muted,
		IsSuspended: t.Suspended,
		IsCrashed:   t.Crashed,
		IsActive:    t.ID == active,
		IsExpanded:  t.Expanded,
	}
}

// runnable reports whether the tab should have an engine process at all.
// Groups never run; suspended tabs run again only after an explicit select.
func (t *tab) runnable() bool {
	return !t.IsGroup && !t.Suspended
}
