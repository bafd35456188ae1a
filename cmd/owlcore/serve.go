package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/owlcore"
	"pkt.systems/owlcore/bridge"
	"pkt.systems/owlcore/core"
	"pkt.systems/owlcore/internal/appconfig"
	"pkt.systems/owlcore/internal/enginecdp"
	"pkt.systems/owlcore/internal/limiter"
	"pkt.systems/owlcore/internal/pressure"
	"pkt.systems/owlcore/schema"
	"pkt.systems/pslog"
)

func newServeCmd() *cobra.Command {
	var cfgPath string
	var headless bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the tab control plane",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			if headless {
				cfg.Engine.Headless = true
			}
			if err := os.MkdirAll(filepath.Dir(cfg.Bridge.SocketPath), 0o700); err != nil {
				return err
			}
			if cfg.Engine.DataDir != "" {
				if err := os.MkdirAll(cfg.Engine.DataDir, 0o700); err != nil {
					return err
				}
			}

			serverCfg := owlcore.ServerConfig{
				Service: cfg.ServiceConfig(),
				Bridge: bridge.Config{
					SocketPath:     cfg.Bridge.SocketPath,
					HomeURL:        cfg.Tabs.HomeURL,
					SearchURL:      cfg.Tabs.SearchURL,
					DefaultFavicon: cfg.Bridge.DefaultFavicon,
				},
				Engine: enginecdp.Config{
					ExecPath:  cfg.Engine.ExecPath,
					Headless:  cfg.Engine.Headless,
					NoSandbox: cfg.Engine.NoSandbox,
					DataDir:   cfg.Engine.DataDir,
				},
				Limiter: limiter.Config{
					Mountpoint: cfg.Limits.CgroupMountpoint,
					Parent:     cfg.Limits.CgroupParent,
				},
				Pressure: pressure.Config{
					Interval:                 time.Duration(cfg.Pressure.IntervalSeconds) * time.Second,
					ModerateHeadroomPermille: cfg.Pressure.ModerateHeadroomPermille,
					SevereHeadroomPermille:   cfg.Pressure.SevereHeadroomPermille,
				},
				StateDir:          cfg.StateDir,
				MaxTabs:           cfg.Scheduler.MaxTabs,
				RecomputeInterval: time.Duration(cfg.Scheduler.RecomputeSeconds) * time.Second,
			}
			serverDeps := owlcore.ServerDeps{
				ServiceDeps: core.ServiceDeps{Logger: logger},
			}
			server, err := owlcore.New(serverCfg, serverDeps, owlcore.WithBridge(), owlcore.WithPressureMonitor())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Stop(stopCtx); err != nil {
					logger.Warn("server stop failed", "err", err)
				}
			}()
			if err := server.Start(ctx); err != nil {
				return err
			}
			if err := server.Wait(); err != nil && !errors.Is(err, schema.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().BoolVar(&headless, "headless", false, "run browser engines headless")
	return cmd
}
