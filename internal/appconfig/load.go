package appconfig

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load reads configuration from the provided path. If path is empty, uses
// DefaultConfigPath. A missing file yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("state_dir", cfg.StateDir)
	v.SetDefault("tabs.home_url", cfg.Tabs.HomeURL)
	v.SetDefault("tabs.search_url", cfg.Tabs.SearchURL)
	v.SetDefault("tabs.recently_closed_max", cfg.Tabs.RecentlyClosedMax)
	v.SetDefault("engine.exec_path", cfg.Engine.ExecPath)
	v.SetDefault("engine.headless", cfg.Engine.Headless)
	v.SetDefault("engine.no_sandbox", cfg.Engine.NoSandbox)
	v.SetDefault("engine.data_dir", cfg.Engine.DataDir)
	v.SetDefault("engine.spawn_timeout_seconds", cfg.Engine.SpawnTimeoutSeconds)
	v.SetDefault("limits.cgroup_mountpoint", cfg.Limits.CgroupMountpoint)
	v.SetDefault("limits.cgroup_parent", cfg.Limits.CgroupParent)
	v.SetDefault("pressure.interval_seconds", cfg.Pressure.IntervalSeconds)
	v.SetDefault("pressure.moderate_headroom_permille", cfg.Pressure.ModerateHeadroomPermille)
	v.SetDefault("pressure.severe_headroom_permille", cfg.Pressure.SevereHeadroomPermille)
	v.SetDefault("bridge.socket_path", cfg.Bridge.SocketPath)
	v.SetDefault("bridge.default_favicon", cfg.Bridge.DefaultFavicon)
	v.SetDefault("scheduler.hidden_grace_seconds", cfg.Scheduler.HiddenGraceSeconds)
	v.SetDefault("scheduler.discard_after_seconds", cfg.Scheduler.DiscardAfterSeconds)
	v.SetDefault("scheduler.activity_window_seconds", cfg.Scheduler.ActivityWindowSeconds)
	v.SetDefault("scheduler.recompute_seconds", cfg.Scheduler.RecomputeSeconds)
	v.SetDefault("scheduler.max_tabs", cfg.Scheduler.MaxTabs)

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !os.IsNotExist(err) {
				return Config{}, err
			}
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if !v.IsSet("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	expandConfigEnv(&cfg)
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	homeURL := strings.TrimSpace(cfg.Tabs.HomeURL)
	if homeURL != "" && !strings.HasPrefix(homeURL, "about:") {
		parsed, err := url.Parse(homeURL)
		if err != nil || parsed.Scheme == "" {
			return fmt.Errorf("tabs.home_url must include a scheme (e.g. https://example.com)")
		}
	}
	if cfg.Tabs.SearchURL != "" && !strings.Contains(cfg.Tabs.SearchURL, "%s") {
		return fmt.Errorf("tabs.search_url must contain %%s for the query")
	}
	if cfg.Bridge.SocketPath == "" {
		return fmt.Errorf("bridge.socket_path is required")
	}
	if cfg.Pressure.SevereHeadroomPermille > cfg.Pressure.ModerateHeadroomPermille {
		return fmt.Errorf("pressure.severe_headroom_permille must not exceed the moderate threshold")
	}
	for class, budget := range cfg.Limits.Budgets {
		if budget.CPUShare > 1000 {
			return fmt.Errorf("limits.budgets.%s.cpu_share must be in 0..=1000", class)
		}
	}
	return nil
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.StateDir = expandEnv(cfg.StateDir)
	cfg.Engine.ExecPath = expandEnv(cfg.Engine.ExecPath)
	cfg.Engine.DataDir = expandEnv(cfg.Engine.DataDir)
	cfg.Limits.CgroupMountpoint = expandEnv(cfg.Limits.CgroupMountpoint)
	cfg.Bridge.SocketPath = expandEnv(cfg.Bridge.SocketPath)
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := lookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

func lookupEnv(key string) (string, bool) {
	if val, ok := os.LookupEnv(key); ok {
		return val, true
	}
	switch key {
	case "UID":
		return fmt.Sprintf("%d", os.Getuid()), true
	case "GID":
		return fmt.Sprintf("%d", os.Getgid()), true
	}
	return "", false
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
