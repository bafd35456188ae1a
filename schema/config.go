package schema

import (
	"errors"
	"time"
)

// ServiceConfig defines defaults and limits for the core service.
type ServiceConfig struct {
	// HomeURL is the navigation target for new tabs created without a URL.
	HomeURL string
	// HiddenGrace is how long a tab stays in its prior class after a
	// visibility.hidden signal before dropping to hidden.
	HiddenGrace time.Duration
	// DiscardAfter is how long a tab must remain hidden before it becomes a
	// discard candidate under memory pressure. Zero disables automatic
	// discard.
	DiscardAfter time.Duration
	// ActivityWindow is the decay half-life of the per-tab input score. A
	// tab whose decayed score is still at least half an event counts as
	// recently active and stays in the visible tier.
	ActivityWindow time.Duration
	// SpawnTimeout bounds how long a tab engine may take to become ready.
	SpawnTimeout time.Duration
	// RecentlyClosedMax bounds the restore ring for closed tabs.
	RecentlyClosedMax int
	// Budgets maps each scheduling class to its resource budget. Classes
	// absent from the map fall back to built-in defaults.
	Budgets map[Class]Budget
	// Throttles maps each scheduling class to its engine directive.
	Throttles map[Class]Throttle
}

// Default timing constants for the scheduler.
const (
	DefaultHiddenGrace    = 10 * time.Second
	DefaultDiscardAfter   = 5 * time.Minute
	DefaultActivityWindow = 30 * time.Second
	DefaultSpawnTimeout   = 15 * time.Second
)

// DefaultRecentlyClosedMax is the default restore ring capacity.
const DefaultRecentlyClosedMax = 20

// DefaultBudgets are the built-in per-class resource budgets.
func DefaultBudgets() map[Class]Budget {
	return map[Class]Budget{
		ClassActive:     {CPUShare: 1000, IO: IOClassHigh},
		ClassBackground: {CPUShare: 300, IO: IOClassBestEffort},
		ClassHidden:     {CPUShare: 50, IO: IOClassIdle, MemoryCapBytes: 512 << 20},
	}
}

// DefaultThrottles are the built-in per-class engine directives.
func DefaultThrottles() map[Class]Throttle {
	return map[Class]Throttle{
		ClassActive:     {CPURate: 1},
		ClassBackground: {CPURate: 2},
		ClassHidden:     {CPURate: 8, Frozen: true},
	}
}

// NormalizeServiceConfig applies defaults and validates the config.
func NormalizeServiceConfig(cfg ServiceConfig) (ServiceConfig, error) {
	if cfg.HomeURL == "" {
		cfg.HomeURL = "about:blank"
	}
	if cfg.HiddenGrace <= 0 {
		cfg.HiddenGrace = DefaultHiddenGrace
	}
	if cfg.DiscardAfter < 0 {
		cfg.DiscardAfter = DefaultDiscardAfter
	}
	if cfg.ActivityWindow <= 0 {
		cfg.ActivityWindow = DefaultActivityWindow
	}
	if cfg.SpawnTimeout <= 0 {
		cfg.SpawnTimeout = DefaultSpawnTimeout
	}
	if cfg.RecentlyClosedMax <= 0 {
		cfg.RecentlyClosedMax = DefaultRecentlyClosedMax
	}
	budgets := DefaultBudgets()
	for class, budget := range cfg.Budgets {
		if budget.CPUShare > 1000 {
			return ServiceConfig{}, errors.New("cpu share must be in 0..=1000")
		}
		if budget.IO == "" {
			budget.IO = IOClassBestEffort
		}
		budgets[class] = budget
	}
	cfg.Budgets = budgets
	throttles := DefaultThrottles()
	for class, throttle := range cfg.Throttles {
		if throttle.CPURate < 1 {
			throttle.CPURate = 1
		}
		throttles[class] = throttle
	}
	cfg.Throttles = throttles
	return cfg, nil
}
