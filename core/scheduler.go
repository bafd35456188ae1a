package core

import (
	"time"

	"pkt.systems/owlcore/schema"
)

// directive is one scheduling decision ready to be executed against a tab's
// engine handle and the resource limiter. Directives are produced under the
// service lock and executed off it.
type directive struct {
	tab      schema.TabID
	handle   EngineHandle
	pid      int
	class    schema.Class
	budget   schema.Budget
	throttle schema.Throttle
	visible  bool
	discard  bool
}

// classify derives a tab's scheduling class from its activity inputs. The
// active tab is always ClassActive. Hidden tabs keep their visible-tier class
// while the grace deadline or recent input covers them, then drop to
// ClassHidden. Discard needs both an expired idle window and memory pressure
// of at least moderate; severe pressure demotes one extra tier and tears
// hidden tabs down immediately. Pressure only ever demotes.
func classify(t *tab, active schema.TabID, pressure schema.Pressure, cfg schema.ServiceConfig, now time.Time) schema.Class {
	if t.ID == active {
		return schema.ClassActive
	}
	class := schema.ClassHidden
	switch {
	case t.visible:
		class = schema.ClassBackground
	case !t.graceUntil.IsZero() && now.Before(t.graceUntil):
		class = schema.ClassBackground
	case t.focused || t.recentlyActive(now, cfg.ActivityWindow):
		class = schema.ClassBackground
	}
	if class == schema.ClassHidden && !t.hiddenSince.IsZero() && cfg.DiscardAfter > 0 &&
		pressure.Rank() >= schema.PressureModerate.Rank() &&
		!now.Before(t.hiddenSince.Add(cfg.DiscardAfter)) {
		class = schema.ClassDiscard
	}
	if pressure == schema.PressureSevere {
		switch class {
		case schema.ClassBackground:
			class = schema.ClassHidden
		case schema.ClassHidden:
			class = schema.ClassDiscard
		}
	}
	// Pinned tabs are demoted but never torn down.
	if class == schema.ClassDiscard && t.Pinned {
		class = schema.ClassHidden
	}
	return class
}

// recomputeLocked reclassifies every running tab and returns directives for
// the ones whose class changed. It is idempotent: a second call with the same
// inputs returns nothing. Caller holds the service lock.
func (s *service) recomputeLocked(now time.Time) []directive {
	var directives []directive
	s.tree.each(func(t *tab) {
		if !t.runnable() || t.handle == nil {
			return
		}
		class := classify(t, s.active, s.pressure, s.cfg, now)
		if class == t.Class {
			return
		}
		t.Class = class
		directives = append(directives, directive{
			tab:      t.ID,
			handle:   t.handle,
			pid:      t.handle.PID(),
			class:    class,
			budget:   s.cfg.Budgets[class],
			throttle: s.cfg.Throttles[class],
			visible:  class == schema.ClassActive,
			discard:  class == schema.ClassDiscard,
		})
	})
	return directives
}
