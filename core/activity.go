package core

import (
	"math"
	"time"

	"pkt.systems/owlcore/schema"
)

// applySignal folds one activity signal into the tab's scheduler inputs.
// visibility.hidden does not demote immediately; it arms a grace deadline
// that visibility.shown cancels, so quick tab flips keep their class.
func applySignal(t *tab, signal schema.Signal, cfg schema.ServiceConfig, now time.Time) {
	switch signal {
	case schema.SignalFocusGained:
		t.focused = true
		t.visible = true
		t.bumpInput(now, cfg.ActivityWindow)
		t.hiddenSince = time.Time{}
		t.graceUntil = time.Time{}
	case schema.SignalFocusLost:
		t.focused = false
	case schema.SignalVisibilityShown:
		t.visible = true
		t.hiddenSince = time.Time{}
		t.graceUntil = time.Time{}
	case schema.SignalVisibilityHidden:
		if t.visible {
			t.visible = false
			t.focused = false
			t.hiddenSince = now
			t.graceUntil = now.Add(cfg.HiddenGrace)
		}
	case schema.SignalInputActivity:
		t.bumpInput(now, cfg.ActivityWindow)
	}
}

// bumpInput folds one input event into the decaying score.
func (t *tab) bumpInput(now time.Time, window time.Duration) {
	t.inputScore = decayScore(t.inputScore, t.lastInput, now, window) + 1
	t.lastInput = now
}

// recentlyActive reports whether the tab has seen enough recent input to
// stay in the visible tier. A single event keeps the tab recently active for
// one window; sustained input stretches further.
func (t *tab) recentlyActive(now time.Time, window time.Duration) bool {
	return decayScore(t.inputScore, t.lastInput, now, window) >= 0.5
}

// decayScore halves the score for every window elapsed since the last input.
func decayScore(score float64, last time.Time, now time.Time, window time.Duration) float64 {
	if score <= 0 || last.IsZero() || window <= 0 {
		return 0
	}
	elapsed := now.Sub(last)
	if elapsed <= 0 {
		return score
	}
	return score * math.Exp2(-float64(elapsed)/float64(window))
}
