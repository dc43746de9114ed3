package main

import (
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/cptspacemanspiff/gnome-activity-monitor/internal/account"
	"github.com/cptspacemanspiff/gnome-activity-monitor/internal/collector"
	"github.com/cptspacemanspiff/gnome-activity-monitor/internal/config"
	dbussvc "github.com/cptspacemanspiff/gnome-activity-monitor/internal/dbus"
	"github.com/cptspacemanspiff/gnome-activity-monitor/internal/idle"
	"github.com/cptspacemanspiff/gnome-activity-monitor/internal/logging"
	"github.com/cptspacemanspiff/gnome-activity-monitor/internal/report"
	"github.com/cptspacemanspiff/gnome-activity-monitor/internal/scheduler"
	"github.com/cptspacemanspiff/gnome-activity-monitor/internal/storage"
)

func main() {
	verbose := flag.Bool("verbose", false, "enable all verbose logging (equivalent to -log=all)")
	logFlag := flag.String("log", "", "comma-separated log topics: metrics,input,idle,report,storage,dbus (or 'all')")
	configPath := flag.String("config", config.DefaultPath(), "path to the TOML config file")
	resetDB := flag.Bool("reset-db", false, "delete the database and start fresh")
	flag.Parse()

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		slog.Error("load config", "path", *configPath, "err", err)
		os.Exit(1)
	}

	logger, logCloser := logging.New(logging.Options{
		Verbose:    *verbose,
		Topics:     *logFlag,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		Level:      slog.LevelDebug,
	})
	defer logCloser.Close()

	idleLog := logger.With("topic", logging.TopicIdle)
	storageLog := logger.With("topic", logging.TopicStorage)

	dbPath := cfg.Storage.DBPath
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		logger.Error("create data dir", "err", err)
		os.Exit(1)
	}

	if *resetDB {
		for _, suffix := range []string{"", "-wal", "-shm"} {
			if err := os.Remove(dbPath + suffix); err != nil && !os.IsNotExist(err) {
				logger.Error("delete database", "err", err)
				os.Exit(1)
			}
		}
		logger.Info("database deleted", "path", dbPath)
		return
	}

	store, err := storage.Open(dbPath)
	if err != nil {
		logger.Error("open database", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	user := resolveUser(store, cfg.User.Name, logger)

	source := collector.NewSource(sourceOptions(cfg, logger))
	sched := scheduler.New(source, store, logger, scheduler.WithInterval(cfg.Collection.Interval()))
	gen := report.NewGenerator(store, report.WithLogger(logger.With("topic", logging.TopicReport)))
	idleSvc := idle.NewService(store, idleLog)

	svc := dbussvc.NewService(sched, store, gen, idleSvc, cfg, user, logger)
	conn, err := svc.Export()
	if err != nil {
		logger.Error("export dbus service", "err", err)
		os.Exit(1)
	}
	defer conn.Close()
	logger.Info("D-Bus service registered", "name", dbussvc.BusName)

	sched.Start(user)
	defer sched.Stop()

	// Suspend periods become idle sessions for the configured user.
	var sleepCh <-chan collector.SleepEvent
	sleepMon, err := collector.NewSleepMonitor(idleLog)
	if err != nil {
		logger.Warn("sleep monitor unavailable", "err", err)
	} else {
		sleepCh = sleepMon.Events()
		defer sleepMon.Close()
	}

	runCleanup(store, cfg.Cleanup.Retention(), storageLog)
	cleanup := time.NewTicker(cfg.Cleanup.Interval())
	defer cleanup.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("activity-monitor-daemon started", "interval", cfg.Collection.Interval(), "os", source.OS())
	for {
		select {
		case ev := <-sleepCh:
			handleSleep(idleSvc, user, ev, idleLog)
		case <-cleanup.C:
			runCleanup(store, cfg.Cleanup.Retention(), storageLog)
		case <-sigCh:
			logger.Info("shutting down")
			return
		}
	}
}

// sourceOptions logs OS read failures under the metrics topic. The input loop
// tags its own records with the input topic.
func sourceOptions(cfg *config.Config, logger *slog.Logger) collector.Options {
	return collector.Options{
		InputPollInterval: cfg.Collection.InputPollInterval(),
		InputStopTimeout:  cfg.Collection.InputStopTimeout(),
		Logger:            logger.With("topic", logging.TopicMetrics),
	}
}

// resolveUser looks up the configured account. Any failure falls back to
// guest mode, where samples are collected but never stored.
func resolveUser(store *storage.DB, name string, logger *slog.Logger) *account.User {
	if name == "" {
		logger.Info("no user configured, running in guest mode")
		return nil
	}
	u, err := account.NewService(store).Lookup(name)
	if errors.Is(err, account.ErrNotFound) {
		logger.Warn("configured user does not exist, running in guest mode", "user", name)
		return nil
	}
	if err != nil {
		logger.Error("look up user, running in guest mode", "user", name, "err", err)
		return nil
	}
	return u
}

func handleSleep(svc *idle.Service, user *account.User, ev collector.SleepEvent, logger *slog.Logger) {
	if !user.Valid() {
		return
	}
	if ev.Sleeping {
		if _, err := svc.Start(user, idle.ReasonSleep); err != nil {
			logger.Error("open sleep idle session", "err", err)
		}
		return
	}
	if _, err := svc.End(user); err != nil {
		logger.Error("close sleep idle session", "err", err)
	}
}

func runCleanup(store *storage.DB, retention time.Duration, logger *slog.Logger) {
	cutoff := time.Now().Add(-retention)
	n, err := store.DeleteOlderThan(cutoff.Unix())
	if err != nil {
		logger.Error("cleanup", "err", err)
		return
	}
	logger.Info("cleanup done", "deleted_rows", n, "cutoff", cutoff.Format(time.DateTime))
}
