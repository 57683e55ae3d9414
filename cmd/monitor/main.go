package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/faradayfan/minecraft-monitor/internal/api"
	"github.com/faradayfan/minecraft-monitor/internal/assets"
	"github.com/faradayfan/minecraft-monitor/internal/config"
	"github.com/faradayfan/minecraft-monitor/internal/logging"
	"github.com/faradayfan/minecraft-monitor/internal/manager"
	"github.com/faradayfan/minecraft-monitor/internal/status"
)

var cfgFile string

func main() {
	root := &cobra.Command{
		Use:           "monitor",
		Short:         "Run a Minecraft server and expose it over a small web endpoint",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewLoader(cfgFile).Load(cmd.Flags())
			if err != nil {
				return err
			}
			return run(cfg)
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./monitor.yaml if present)")
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(&cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewLoader(cfgFile).Load(cmd.Flags())
			if err != nil {
				return err
			}
			b, err := cfg.Render()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	})

	if err := root.Execute(); err != nil {
		log.Error("monitor failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	verbosity, err := logging.ParseVerbosity(cfg.Log.Verbosity)
	if err != nil {
		return err
	}
	logs, err := logging.New(os.Stderr, cfg.Log.Level, verbosity)
	if err != nil {
		return err
	}

	store := assets.NewStore(cfg.Web.Public, logs.Assets)
	if err := store.Require(cfg.Web.Index, cfg.Web.Eula, cfg.Web.Starting); err != nil {
		return err
	}
	if err := store.Watch(); err != nil {
		logs.Assets.Warn("asset changes will not be picked up", "error", err)
	}
	defer store.Close()

	spec, err := cfg.ProcessSpec()
	if err != nil {
		return err
	}

	st := status.New()
	queue := manager.NewQueue(manager.DefaultQueueSize)
	sup := manager.NewSupervisor(manager.Config{
		Spec:         spec,
		PrefixWidth:  cfg.Console.Prefix,
		PollInterval: cfg.Timing.Poll,
		WaitInterval: cfg.Timing.Wait,
	}, st, queue, nil, logs)
	ctl := manager.NewController(st, queue, manager.ControllerConfig{
		StopCommand:  cfg.Server.Stop,
		WaitInterval: cfg.Timing.Wait,
		ServerDir:    cfg.Server.Location,
	}, logs.Supervisor)

	srv := api.NewServer(api.Options{
		Addr:          cfg.ListenAddr(),
		IndexPath:     cfg.Web.Index,
		EulaPath:      cfg.Web.Eula,
		StartingPath:  cfg.Web.Starting,
		Serial:        cfg.Web.Serial,
		ActionTimeout: cfg.Server.Grace,
	}, st, queue, ctl, store, logs.API, logs.Request)

	ln, err := net.Listen("tcp", srv.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", srv.Addr(), err)
	}

	webCtx, stopWeb := context.WithCancel(context.Background())
	webDone := make(chan error, 1)
	go func() { webDone <- srv.Serve(webCtx, ln) }()
	defer func() {
		stopWeb()
		if err := <-webDone; err != nil {
			logs.API.Error("web endpoint stopped", "error", err)
		}
	}()

	runCtx, stopRun := context.WithCancel(context.Background())
	defer stopRun()
	supDone := make(chan error, 1)
	go func() { supDone <- sup.Run(runCtx) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-supDone:
		return err
	case sig := <-sigCh:
		logs.Supervisor.Info("received signal, stopping server", "signal", sig.String())
		return stopServer(ctl, sup, supDone, stopRun, cfg.Server.Grace, logs.Supervisor)
	}
}

// stopServer asks the server to stop and kills it if it has not exited
// within grace.
func stopServer(ctl *manager.Controller, sup *manager.Supervisor, supDone <-chan error, stopRun context.CancelFunc, grace time.Duration, logger *log.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	if err := ctl.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", "error", err)
	}
	select {
	case err := <-supDone:
		return err
	case <-ctx.Done():
	}

	logger.Warn("server did not stop in time, killing it", "grace", grace)
	if err := sup.Kill(); err != nil {
		logger.Error("kill failed", "error", err)
	}
	stopRun()
	if err := <-supDone; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
