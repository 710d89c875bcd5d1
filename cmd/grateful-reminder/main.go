// Command grateful-reminder runs the daily reminder loop on its own, for
// setups where the UI process is not always running.
package main

import (
	"os"

	"grateful/internal/cli"
	"grateful/internal/log"
	"grateful/internal/metrics"
	"grateful/internal/reminder"
	"grateful/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg).WithComponent(log.ComponentWorker)
	loc := cli.MustLocation(logger, cfg)

	logger.Info("Starting grateful-reminder", log.FieldOperation, log.OpStartup)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	store := cli.InitBackend(ctx, logger, cfg)
	defer func() {
		if store.Cleanup != nil {
			_ = store.Cleanup()
		}
	}()

	notifier, closeNotifier := cli.InitNotifier(ctx, logger, cfg)
	defer closeNotifier()

	service := reminder.NewService(store.Backend, logger)
	if settings, err := service.Settings(ctx); err == nil {
		logger.Info("Reminder configured",
			"enabled", settings.Enabled,
			"time", settings.TimeLabel(),
			"interval", cfg.ReminderCheckInterval.String(),
			log.FieldTimezone, loc.String())
	}

	w := worker.NewReminderWorker(service, notifier, worker.Config{
		Location: loc,
		Interval: cfg.ReminderCheckInterval,
		Recorder: metrics.New(),
		Logger:   logger,
	})
	if err := w.Run(ctx); err != nil {
		logger.Error("Reminder worker stopped", log.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("grateful-reminder shutdown complete", log.FieldOperation, log.OpShutdown)
}
