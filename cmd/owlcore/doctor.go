package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"pkt.systems/owlcore/internal/appconfig"
	"pkt.systems/owlcore/internal/limiter"
	"pkt.systems/owlcore/internal/pressure"
	"pkt.systems/pslog"
)

// browserCandidates are tried in order when engine.exec_path is unset,
// mirroring chromedp's own lookup list.
var browserCandidates = []string{
	"chromium",
	"chromium-browser",
	"google-chrome",
	"google-chrome-stable",
	"chrome",
	"headless-shell",
}

func newDoctorCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run environment diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())

			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			configPath := cfgPath
			if strings.TrimSpace(configPath) == "" {
				path, err := appconfig.DefaultConfigPath()
				if err != nil {
					return err
				}
				configPath = path
			}
			logger.Info("doctor start", "config", configPath)

			browser, err := resolveBrowser(cfg.Engine.ExecPath)
			if err != nil {
				return err
			}
			logger.Info("doctor browser ok", "binary", browser)

			lim := limiter.New(limiter.Config{
				Mountpoint: cfg.Limits.CgroupMountpoint,
				Parent:     cfg.Limits.CgroupParent,
			}, logger)
			defer func() { _ = lim.Close() }()
			if lim.Degraded() {
				logger.Warn("doctor cgroup degraded", "detail", "budgets will map to process priorities")
			} else {
				logger.Info("doctor cgroup ok", "mountpoint", cfg.Limits.CgroupMountpoint, "parent", cfg.Limits.CgroupParent)
			}

			headroom, err := pressure.Headroom()
			if err != nil {
				return fmt.Errorf("doctor memory probe: %w", err)
			}
			logger.Info("doctor memory ok", "headroom_permille", headroom)

			socketDir := filepath.Dir(cfg.Bridge.SocketPath)
			if err := os.MkdirAll(socketDir, 0o700); err != nil {
				return fmt.Errorf("doctor socket dir: %w", err)
			}
			probe, err := os.CreateTemp(socketDir, "doctor-*")
			if err != nil {
				return fmt.Errorf("doctor socket dir not writable: %w", err)
			}
			name := probe.Name()
			_ = probe.Close()
			_ = os.Remove(name)
			logger.Info("doctor socket dir ok", "dir", socketDir)

			logger.Info("doctor complete")
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	return cmd
}

func resolveBrowser(execPath string) (string, error) {
	if execPath != "" {
		if _, err := exec.LookPath(execPath); err != nil {
			return "", fmt.Errorf("doctor browser: %w", err)
		}
		return execPath, nil
	}
	for _, candidate := range browserCandidates {
		if path, err := exec.LookPath(candidate); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("doctor browser: no chromium binary found (tried %s)", strings.Join(browserCandidates, ", "))
}
