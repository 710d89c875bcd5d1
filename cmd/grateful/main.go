package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"grateful/internal/cli"
	apphttp "grateful/internal/http"
	"grateful/internal/log"
	"grateful/internal/metrics"
	"grateful/internal/reminder"
	"grateful/internal/services"
	"grateful/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg)
	loc := cli.MustLocation(logger, cfg)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	store := cli.InitBackend(ctx, logger, cfg)
	defer func() {
		if store.Cleanup != nil {
			if err := store.Cleanup(); err != nil {
				logger.Error("Failed to close backend", log.FieldError, err.Error())
			}
		}
	}()

	m := metrics.New()
	entryService := services.NewEntryService(store.Backend,
		services.WithLocation(loc),
		services.WithSharer(cli.InitSharer(ctx, logger, cfg)),
		services.WithStreakRecorder(m),
		services.WithLogger(logger.WithComponent(log.ComponentJournal)),
	)
	unsubscribe := entryService.Hub().Subscribe(m.ObserveEntries)
	defer unsubscribe()

	reminders := reminder.NewService(store.Backend, logger)

	srv := apphttp.NewServer(cfg.Addr(), apphttp.Deps{
		Entries:       entryService,
		Reminders:     reminders,
		Backend:       store.Backend,
		Metrics:       m,
		Logger:        logger,
		RecapCacheTTL: cfg.RecapCacheTTL,
	})
	srv.MaxHeaderBytes = 1 << 16

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting grateful server",
			"addr", cfg.Addr(),
			"backend", cfg.DataBackend,
			log.FieldTimezone, loc.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		logger.Info("Shutting down server", log.FieldOperation, log.OpShutdown)
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.ReminderInProcess {
		notifier, closeNotifier := cli.InitNotifier(gctx, logger, cfg)
		defer closeNotifier()

		w := worker.NewReminderWorker(reminders, notifier, worker.Config{
			Location: loc,
			Interval: cfg.ReminderCheckInterval,
			Recorder: m,
			Logger:   logger,
		})
		g.Go(func() error {
			return w.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
