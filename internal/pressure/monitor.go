// Package pressure samples memory headroom and feeds pressure levels to the
// scheduler. Levels rise immediately and fall only after a quiet window.
package pressure

import (
	"context"
	"time"

	"pkt.systems/owlcore/schema"
	"pkt.systems/pslog"
)

// Reporter receives debounced pressure levels.
type Reporter interface {
	ReportPressure(ctx context.Context, req schema.PressureRequest) error
}

// Config tunes sampling and thresholds.
type Config struct {
	// Interval between samples. Defaults to one second.
	Interval time.Duration
	// ModerateHeadroomPermille is the headroom at which pressure turns
	// moderate. Defaults to 200 (20%).
	ModerateHeadroomPermille int
	// SevereHeadroomPermille is the headroom at which pressure turns
	// severe. Defaults to 100 (10%).
	SevereHeadroomPermille int
	// LowerAfter is how long a lower level must hold before it is
	// reported. Defaults to three seconds.
	LowerAfter time.Duration
}

func (cfg Config) withDefaults() Config {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.ModerateHeadroomPermille <= 0 {
		cfg.ModerateHeadroomPermille = 200
	}
	if cfg.SevereHeadroomPermille <= 0 {
		cfg.SevereHeadroomPermille = 100
	}
	if cfg.LowerAfter <= 0 {
		cfg.LowerAfter = 3 * time.Second
	}
	return cfg
}

// Monitor polls memory headroom and pushes level changes to a Reporter.
type Monitor struct {
	cfg   Config
	log   pslog.Logger
	probe headroomProbe
	now   func() time.Time
}

// NewMonitor constructs a monitor over the system probes.
func NewMonitor(cfg Config, logger pslog.Logger) *Monitor {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Monitor{
		cfg:   cfg.withDefaults(),
		log:   logger,
		probe: systemProbe,
		now:   time.Now,
	}
}

func (m *Monitor) level(permille int) schema.Pressure {
	switch {
	case permille < m.cfg.SevereHeadroomPermille:
		return schema.PressureSevere
	case permille < m.cfg.ModerateHeadroomPermille:
		return schema.PressureModerate
	default:
		return schema.PressureLow
	}
}

// Run samples until ctx is done, reporting only level changes.
func (m *Monitor) Run(ctx context.Context, reporter Reporter) error {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()
	sm := newSmoother(m.cfg.LowerAfter)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			permille, err := m.probe()
			if err != nil {
				m.log.Debug("pressure probe failed", "err", err)
				continue
			}
			level, changed := sm.observe(m.level(permille), m.now())
			if !changed {
				continue
			}
			m.log.Info("memory pressure", "level", level, "headroom_permille", permille)
			if err := reporter.ReportPressure(ctx, schema.PressureRequest{Level: level}); err != nil {
				m.log.Warn("pressure report failed", "err", err)
			}
		}
	}
}
