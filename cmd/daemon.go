package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/grovetools/arcade/cli"
	"github.com/grovetools/arcade/command"
	"github.com/grovetools/arcade/config"
	"github.com/grovetools/arcade/credentials"
	"github.com/grovetools/arcade/errors"
	"github.com/grovetools/arcade/internal/daemon/activity"
	"github.com/grovetools/arcade/internal/daemon/engine"
	"github.com/grovetools/arcade/internal/daemon/metrics"
	"github.com/grovetools/arcade/internal/daemon/notifier"
	"github.com/grovetools/arcade/internal/daemon/pidfile"
	"github.com/grovetools/arcade/internal/daemon/server"
	"github.com/grovetools/arcade/internal/daemon/store"
	"github.com/grovetools/arcade/internal/daemon/telemetry"
	"github.com/grovetools/arcade/logging"
	"github.com/grovetools/arcade/pkg/daemon"
	"github.com/grovetools/arcade/pkg/paths"
	"github.com/grovetools/arcade/pkg/process"
	"github.com/grovetools/arcade/state"
	"github.com/grovetools/arcade/version"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newDaemonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run or control the background session poller",
		Long: `The daemon polls the session service, keeps the status current for
every client and delivers notifications. Clients talk to it over a unix
socket and fall back to a one-shot fetch when it is not running.`,
	}
	cmd.AddCommand(newDaemonStartCmd(), newDaemonStopCmd(), newDaemonStatusCmd())
	return cmd
}

func newDaemonStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the daemon in the foreground",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runDaemon(ctx, cfg, logging.NewLogger("daemon"))
		},
	}
}

// runDaemon assembles and runs the daemon until ctx is canceled.
func runDaemon(ctx context.Context, cfg *config.Config, logger *logrus.Entry) error {
	pidPath := paths.PidFilePath()
	sockPath := paths.SocketPath()

	if err := pidfile.Acquire(pidPath); err != nil {
		return err
	}
	defer func() {
		if err := pidfile.Release(pidPath); err != nil {
			logger.Errorf("Failed to release pidfile: %v", err)
		}
	}()

	tp, err := telemetry.Setup(cfg.Telemetry.Trace, cfg.Telemetry.TraceFile, os.Stderr, version.Version)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(shutdownCtx)
	}()

	st, err := state.Load()
	if err != nil {
		logger.WithError(err).Warn("Ignoring unreadable state file")
		st = state.State{}
	}

	dispatcher := buildDispatcher(cfg, logger)
	defer dispatcher.Close()

	opts := engine.OptionsFromConfig(cfg, st)
	opts.Client = engine.NewSessionClient(cfg, logger)
	opts.Credentials = credentials.Default()
	opts.Store = store.New()
	opts.Notifier = dispatcher
	opts.Logger = logger

	var m *metrics.Metrics
	if cfg.Daemon != nil && cfg.Daemon.Metrics {
		m = metrics.New(opts.Store.Subscribers)
		opts.Metrics = m
	}

	eng := engine.New(opts)
	srv := server.New(logger, eng)
	if m != nil {
		srv.SetMetrics(m.Handler())
	}

	startedAt := time.Now()
	srv.SetRunningConfig(runningConfig(cfg, engine.ResolveSettings(cfg, st), dispatcher.Sinks(), startedAt))

	if len(cfg.Activity.WatchPaths) > 0 {
		w, err := activity.New(cfg.Activity.WatchPaths, cfg.Activity.Ignore, activity.DefaultDebounce,
			func(path string) { eng.Activity("fs") }, logger)
		if err != nil {
			return err
		}
		defer w.Close()
		go w.Start(ctx)
	}

	watcher, err := daemon.NewConfigWatcher(500*time.Millisecond, func(file string) {
		reloaded, err := config.LoadDefault()
		if err != nil {
			logger.WithError(err).Warn("Keeping previous configuration")
			return
		}
		current, err := state.Load()
		if err != nil {
			current = state.State{}
		}
		settings := engine.ResolveSettings(reloaded, current)
		eng.SetPolicy(engine.PolicyFrom(reloaded))
		eng.SetSettings(settings)
		srv.SetRunningConfig(runningConfig(reloaded, settings, dispatcher.Sinks(), startedAt))
		opts.Store.BroadcastConfigReload(file)
	})
	if err != nil {
		logger.WithError(err).Warn("Config hot reload disabled")
	} else {
		defer watcher.Close()
		go watcher.Start(ctx)
	}

	go eng.Run(ctx)
	go func() {
		<-ctx.Done()
		logger.Info("Received stop signal")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("Server shutdown error: %v", err)
		}
	}()

	logger.WithField("pid", os.Getpid()).Info("Starting daemon")
	if err := srv.ListenAndServe(sockPath); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	<-eng.Done()
	return nil
}

func buildDispatcher(cfg *config.Config, logger *logrus.Entry) *notifier.Dispatcher {
	d := notifier.NewDispatcher(logger)
	if cfg.Notifications.Desktop {
		d.Add(notifier.NewDesktop(command.NewSafeBuilder()))
	}
	if cfg.Notifications.NATSURL != "" {
		n, err := notifier.NewNATS(notifier.NATSConfig{
			URL:     cfg.Notifications.NATSURL,
			Subject: cfg.Notifications.NATSSubject,
		})
		if err != nil {
			logger.WithError(err).Warn("NATS notifications disabled")
		} else {
			d.Add(n)
		}
	}
	return d
}

func runningConfig(cfg *config.Config, s engine.Settings, sinks []string, startedAt time.Time) *server.RunningConfig {
	return &server.RunningConfig{
		PollInterval:         cfg.Poll.Interval.D(),
		ErrorFactor:          cfg.Poll.ErrorFactor,
		RetryCap:             cfg.Poll.RetryCap.D(),
		Tick:                 cfg.Poll.Tick.D(),
		IdleThreshold:        cfg.Activity.Threshold,
		SessionNotifications: s.SessionNotifications,
		StartReminders:       s.StartReminders,
		Sinks:                sinks,
		WatchPaths:           cfg.Activity.WatchPaths,
		StartedAt:            startedAt,
	}
}

func newDaemonStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			running, pid, err := pidfile.IsRunning(paths.PidFilePath())
			if err != nil {
				return fmt.Errorf("error checking status: %w", err)
			}
			if !running {
				fmt.Fprintln(cmd.OutOrStdout(), "Daemon is not running")
				return nil
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			if err := process.Terminate(ctx, pid); err != nil {
				return errors.Wrap(err, errors.ErrCodeInternal, "failed to stop daemon").WithDetail("pid", pid)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stopped daemon (PID: %d)\n", pid)
			return nil
		},
	}
}

func newDaemonStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check daemon status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			running, pid, err := pidfile.IsRunning(paths.PidFilePath())
			if err != nil {
				return fmt.Errorf("error: %w", err)
			}
			if !running {
				return errors.DaemonNotRunning(paths.SocketPath())
			}

			var rc *daemon.RunningConfig
			if client, err := daemon.Connect(); err == nil {
				rc, _ = client.GetConfig(cmd.Context())
				client.Close()
			}
			if ok, err := printJSON(cmd, map[string]interface{}{"pid": pid, "socket": paths.SocketPath(), "config": rc}); ok {
				return err
			}

			pretty := logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout())
			pretty.Field("PID", pid)
			pretty.Path("Socket", paths.SocketPath())
			if rc != nil {
				pretty.Field("Uptime", time.Since(rc.StartedAt).Round(time.Second))
				pretty.Field("Interval", rc.PollInterval)
				pretty.Field("Reminders", onOff(rc.StartReminders))
			}
			return nil
		},
	}
}
