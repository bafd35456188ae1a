package core

import "pkt.systems/owlcore/schema"

const defaultClosedMax = 20

// closedRing keeps the most recently closed tabs for restore, newest last.
type closedRing struct {
	entries []schema.ClosedTab
	max     int
}

func newClosedRing(max int) *closedRing {
	if max <= 0 {
		max = defaultClosedMax
	}
	return &closedRing{max: max}
}

// Push records a closed tab. Blank URLs are not worth restoring.
func (r *closedRing) Push(entry schema.ClosedTab) bool {
	if r == nil {
		return false
	}
	if entry.URL == "" || entry.URL == "about:blank" {
		return false
	}
	r.entries = append(r.entries, entry)
	if len(r.entries) > r.max {
		r.entries = r.entries[len(r.entries)-r.max:]
	}
	return true
}

// Pop removes and returns the most recently closed tab.
func (r *closedRing) Pop() (schema.ClosedTab, bool) {
	if r == nil || len(r.entries) == 0 {
		return schema.ClosedTab{}, false
	}
	entry := r.entries[len(r.entries)-1]
	r.entries = r.entries[:len(r.entries)-1]
	return entry, true
}

// Entries returns a copy of the ring, newest last.
func (r *closedRing) Entries() []schema.ClosedTab {
	if r == nil {
		return nil
	}
	return append([]schema.ClosedTab(nil), r.entries...)
}
