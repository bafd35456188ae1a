package appconfig

import (
	"os"
	"path/filepath"
	"time"

	"pkt.systems/owlcore/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int             `mapstructure:"config_version" yaml:"config_version"`
	StateDir      string          `mapstructure:"state_dir" yaml:"state_dir"`
	Tabs          TabsConfig      `mapstructure:"tabs" yaml:"tabs"`
	Engine        EngineConfig    `mapstructure:"engine" yaml:"engine"`
	Limits        LimitsConfig    `mapstructure:"limits" yaml:"limits"`
	Pressure      PressureConfig  `mapstructure:"pressure" yaml:"pressure"`
	Bridge        BridgeConfig    `mapstructure:"bridge" yaml:"bridge"`
	Scheduler     SchedulerConfig `mapstructure:"scheduler" yaml:"scheduler"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// TabsConfig controls tab defaults and history.
type TabsConfig struct {
	HomeURL           string `mapstructure:"home_url" yaml:"home_url"`
	SearchURL         string `mapstructure:"search_url" yaml:"search_url"`
	RecentlyClosedMax int    `mapstructure:"recently_closed_max" yaml:"recently_closed_max"`
}

// EngineConfig selects the browser engine binary and launch mode.
type EngineConfig struct {
	ExecPath            string `mapstructure:"exec_path" yaml:"exec_path"`
	Headless            bool   `mapstructure:"headless" yaml:"headless"`
	NoSandbox           bool   `mapstructure:"no_sandbox" yaml:"no_sandbox"`
	DataDir             string `mapstructure:"data_dir" yaml:"data_dir"`
	SpawnTimeoutSeconds int    `mapstructure:"spawn_timeout_seconds" yaml:"spawn_timeout_seconds"`
}

// LimitsConfig controls cgroup placement and per-class budgets.
type LimitsConfig struct {
	CgroupMountpoint string                         `mapstructure:"cgroup_mountpoint" yaml:"cgroup_mountpoint"`
	CgroupParent     string                         `mapstructure:"cgroup_parent" yaml:"cgroup_parent"`
	Budgets          map[schema.Class]schema.Budget `mapstructure:"budgets" yaml:"budgets"`
}

// PressureConfig tunes the memory pressure monitor.
type PressureConfig struct {
	IntervalSeconds          int `mapstructure:"interval_seconds" yaml:"interval_seconds"`
	ModerateHeadroomPermille int `mapstructure:"moderate_headroom_permille" yaml:"moderate_headroom_permille"`
	SevereHeadroomPermille   int `mapstructure:"severe_headroom_permille" yaml:"severe_headroom_permille"`
}

// BridgeConfig configures the UI socket.
type BridgeConfig struct {
	SocketPath     string `mapstructure:"socket_path" yaml:"socket_path"`
	DefaultFavicon string `mapstructure:"default_favicon" yaml:"default_favicon"`
}

// SchedulerConfig tunes class transitions and process caps.
type SchedulerConfig struct {
	HiddenGraceSeconds    int `mapstructure:"hidden_grace_seconds" yaml:"hidden_grace_seconds"`
	DiscardAfterSeconds   int `mapstructure:"discard_after_seconds" yaml:"discard_after_seconds"`
	ActivityWindowSeconds int `mapstructure:"activity_window_seconds" yaml:"activity_window_seconds"`
	RecomputeSeconds      int `mapstructure:"recompute_seconds" yaml:"recompute_seconds"`
	MaxTabs               int `mapstructure:"max_tabs" yaml:"max_tabs"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	return Config{
		ConfigVersion: CurrentConfigVersion,
		StateDir:      filepath.Join(home, ".owlcore", "state"),
		Tabs: TabsConfig{
			HomeURL:           "about:blank",
			SearchURL:         "https://duckduckgo.com/?q=%s",
			RecentlyClosedMax: schema.DefaultRecentlyClosedMax,
		},
		Engine: EngineConfig{
			ExecPath:            "",
			Headless:            false,
			NoSandbox:           false,
			DataDir:             filepath.Join(home, ".owlcore", "profiles"),
			SpawnTimeoutSeconds: int(schema.DefaultSpawnTimeout / time.Second),
		},
		Limits: LimitsConfig{
			CgroupMountpoint: "/sys/fs/cgroup",
			CgroupParent:     "tabs",
		},
		Pressure: PressureConfig{
			IntervalSeconds:          1,
			ModerateHeadroomPermille: 200,
			SevereHeadroomPermille:   100,
		},
		Bridge: BridgeConfig{
			SocketPath:     filepath.Join(home, ".owlcore", "state", "ui.sock"),
			DefaultFavicon: "owl://assets/favicon-default.svg",
		},
		Scheduler: SchedulerConfig{
			HiddenGraceSeconds:    int(schema.DefaultHiddenGrace / time.Second),
			DiscardAfterSeconds:   int(schema.DefaultDiscardAfter / time.Second),
			ActivityWindowSeconds: int(schema.DefaultActivityWindow / time.Second),
			RecomputeSeconds:      5,
			MaxTabs:               64,
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".owlcore", "config.yaml"), nil
}

// ServiceConfig converts the loaded config into the core service's shape.
func (c Config) ServiceConfig() schema.ServiceConfig {
	return schema.ServiceConfig{
		HomeURL:           c.Tabs.HomeURL,
		HiddenGrace:       time.Duration(c.Scheduler.HiddenGraceSeconds) * time.Second,
		DiscardAfter:      time.Duration(c.Scheduler.DiscardAfterSeconds) * time.Second,
		ActivityWindow:    time.Duration(c.Scheduler.ActivityWindowSeconds) * time.Second,
		SpawnTimeout:      time.Duration(c.Engine.SpawnTimeoutSeconds) * time.Second,
		RecentlyClosedMax: c.Tabs.RecentlyClosedMax,
		Budgets:           c.Limits.Budgets,
	}
}
