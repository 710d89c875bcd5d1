// Package cli provides the initialization steps shared by cmd/grateful and
// cmd/grateful-reminder.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"grateful/internal/amqp"
	"grateful/internal/backend"
	"grateful/internal/config"
	"grateful/internal/log"
	"grateful/internal/reminder"
	"grateful/internal/sheets"
	gsheet "grateful/internal/sheets/google"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the application logger from the configured level and
// format and installs it as the slog default.
func SetupLogger(cfg *config.Config) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: log.ComponentApp,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and validates it.
// Exits the process on validation failure.
func LoadAndValidateConfig() *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.New(log.DefaultConfig()).Error("Configuration validation failed", log.FieldError, err.Error())
		os.Exit(1)
	}
	return cfg
}

// MustLocation resolves the configured timezone or exits.
func MustLocation(logger *log.Logger, cfg *config.Config) *time.Location {
	loc, err := cfg.Location()
	if err != nil {
		logger.Error("Invalid timezone", "timezone", cfg.Timezone, log.FieldError, err.Error())
		os.Exit(1)
	}
	return loc
}

// InitBackend opens the configured store. Exits the process on failure.
func InitBackend(ctx context.Context, logger *log.Logger, cfg *config.Config) *backend.BackendResult {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err.Error())
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err.Error(), "type", cfg.DataBackend)
		os.Exit(1)
	}
	return res
}

// InitNotifier returns the AMQP publisher when a broker is configured and
// reachable, and a log notifier otherwise. The cleanup function is never nil.
func InitNotifier(ctx context.Context, logger *log.Logger, cfg *config.Config) (reminder.Notifier, func()) {
	if !cfg.AMQPEnabled() {
		logger.Info("AMQP disabled - reminders will be written to the log")
		return reminder.NewLogNotifier(logger), func() {}
	}

	client, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("Failed to initialize AMQP client, reminders will be written to the log", log.FieldError, err.Error())
		return reminder.NewLogNotifier(logger), func() {}
	}

	logger.Info("AMQP client initialized",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue)
	return client, func() {
		if err := client.Close(); err != nil {
			logger.Warn("Failed to close AMQP client", log.FieldError, err.Error())
		}
	}
}

// InitSharer returns the Google Sheets recap sharer, or nil when sharing is
// not configured or the client cannot be created.
func InitSharer(ctx context.Context, logger *log.Logger, cfg *config.Config) sheets.RecapSharer {
	if !cfg.SharingEnabled() {
		return nil
	}
	client, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleRecapSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		logger.Warn("Failed to initialize Google Sheets client, recap sharing disabled", log.FieldError, err.Error())
		return nil
	}
	logger.Info("Recap sharing enabled", "sheet", cfg.GoogleRecapSheetName)
	return client
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
