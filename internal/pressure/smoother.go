package pressure

import (
	"time"

	"pkt.systems/owlcore/schema"
)

// smoother debounces pressure transitions. A rising level is taken at face
// value immediately so the scheduler can shed load, while a falling level
// must hold for a full window before it is believed, which keeps the system
// from flapping around a threshold.
type smoother struct {
	window       time.Duration
	current      schema.Pressure
	pending      schema.Pressure
	pendingSince time.Time
}

func newSmoother(window time.Duration) *smoother {
	return &smoother{window: window, current: schema.PressureLow}
}

// observe folds in one sample and reports the effective level plus whether
// it changed.
func (s *smoother) observe(level schema.Pressure, now time.Time) (schema.Pressure, bool) {
	if level.Rank() > s.current.Rank() {
		s.current = level
		s.pending = ""
		return s.current, true
	}
	if level.Rank() == s.current.Rank() {
		s.pending = ""
		return s.current, false
	}
	if s.pending != level {
		s.pending = level
		s.pendingSince = now
		return s.current, false
	}
	if now.Sub(s.pendingSince) >= s.window {
		s.current = level
		s.pending = ""
		return s.current, true
	}
	return s.current, false
}
