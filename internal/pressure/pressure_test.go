package pressure

import (
	"strings"
	"testing"
	"time"

	"pkt.systems/owlcore/schema"
)

func TestSmootherRaisesImmediately(t *testing.T) {
	now := time.Unix(1700000000, 0)
	sm := newSmoother(3 * time.Second)
	level, changed := sm.observe(schema.PressureSevere, now)
	if !changed || level != schema.PressureSevere {
		t.Fatalf("rise should apply immediately, got %s changed=%v", level, changed)
	}
}

func TestSmootherLowersAfterWindow(t *testing.T) {
	now := time.Unix(1700000000, 0)
	sm := newSmoother(3 * time.Second)
	sm.observe(schema.PressureSevere, now)

	level, changed := sm.observe(schema.PressureLow, now.Add(time.Second))
	if changed || level != schema.PressureSevere {
		t.Fatalf("early lower should not apply, got %s changed=%v", level, changed)
	}
	level, changed = sm.observe(schema.PressureLow, now.Add(2*time.Second))
	if changed {
		t.Fatalf("lower inside window applied too early")
	}
	level, changed = sm.observe(schema.PressureLow, now.Add(4*time.Second+time.Millisecond))
	if !changed || level != schema.PressureLow {
		t.Fatalf("lower after window should apply, got %s changed=%v", level, changed)
	}
}

func TestSmootherRisingResetsPendingLower(t *testing.T) {
	now := time.Unix(1700000000, 0)
	sm := newSmoother(3 * time.Second)
	sm.observe(schema.PressureModerate, now)
	sm.observe(schema.PressureLow, now.Add(time.Second))
	// A spike voids the pending lower entirely.
	sm.observe(schema.PressureModerate, now.Add(2*time.Second))
	_, changed := sm.observe(schema.PressureLow, now.Add(5*time.Second))
	if changed {
		t.Fatalf("pending lower should restart after an interruption")
	}
}

func TestLevelThresholds(t *testing.T) {
	m := NewMonitor(Config{}, nil)
	if got := m.level(500); got != schema.PressureLow {
		t.Fatalf("headroom 500 = %s, want low", got)
	}
	if got := m.level(150); got != schema.PressureModerate {
		t.Fatalf("headroom 150 = %s, want moderate", got)
	}
	if got := m.level(50); got != schema.PressureSevere {
		t.Fatalf("headroom 50 = %s, want severe", got)
	}
}

func TestParseMeminfoHeadroom(t *testing.T) {
	meminfo := strings.NewReader(
		"MemTotal:       16000000 kB\nMemFree:         1000000 kB\nMemAvailable:    4000000 kB\n",
	)
	permille, err := parseMeminfoHeadroom(meminfo)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if permille != 250 {
		t.Fatalf("headroom = %d, want 250", permille)
	}
}

func TestParseMeminfoHeadroomMissingTotal(t *testing.T) {
	if _, err := parseMeminfoHeadroom(strings.NewReader("MemFree: 1 kB\n")); err == nil {
		t.Fatalf("expected error without MemTotal")
	}
}

func TestHeadroomPermilleClampsNegative(t *testing.T) {
	permille, err := headroomPermille(-50, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if permille != 0 {
		t.Fatalf("negative free should clamp to 0, got %d", permille)
	}
}
