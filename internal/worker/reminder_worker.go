package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"grateful/internal/journal"
	"grateful/internal/log"
	"grateful/internal/reminder"
)

const DefaultCheckInterval = 30 * time.Second

// DeliveryRecorder is told the outcome of every reminder delivery attempt.
type DeliveryRecorder interface {
	ReminderDelivered(err error)
}

// ReminderWorker checks the reminder settings on a ticker and sends the daily
// notification once it is due.
type ReminderWorker struct {
	service  *reminder.Service
	notifier reminder.Notifier
	clock    journal.Clock
	location *time.Location
	interval time.Duration
	recorder DeliveryRecorder
	logger   *log.Logger
}

// Config holds the optional collaborators of a ReminderWorker.
type Config struct {
	Clock    journal.Clock
	Location *time.Location
	Interval time.Duration
	Recorder DeliveryRecorder
	Logger   *log.Logger
}

func NewReminderWorker(service *reminder.Service, notifier reminder.Notifier, cfg Config) *ReminderWorker {
	w := &ReminderWorker{
		service:  service,
		notifier: notifier,
		clock:    cfg.Clock,
		location: cfg.Location,
		interval: cfg.Interval,
		recorder: cfg.Recorder,
		logger:   cfg.Logger,
	}
	if w.clock == nil {
		w.clock = journal.SystemClock{}
	}
	if w.location == nil {
		w.location = time.Local
	}
	if w.interval <= 0 {
		w.interval = DefaultCheckInterval
	}
	if w.logger == nil {
		w.logger = log.Discard()
	}
	w.logger = w.logger.WithComponent(log.ComponentWorker)
	return w
}

// Check sends the reminder if it is due and reports whether it fired. A failed
// delivery is not recorded as fired, so the next check tries again.
func (w *ReminderWorker) Check(ctx context.Context) (bool, error) {
	if w.service == nil || w.notifier == nil {
		return false, errors.New("reminder worker not properly initialized")
	}

	settings, err := w.service.Settings(ctx)
	if err != nil {
		return false, err
	}

	now := w.clock.Now()
	if !reminder.IsDue(settings.LastFired, now, settings, w.location) {
		return false, nil
	}

	err = w.notifier.Notify(ctx, reminder.DailyNotification(now))
	if w.recorder != nil {
		w.recorder.ReminderDelivered(err)
	}
	if err != nil {
		return false, fmt.Errorf("deliver reminder: %w", err)
	}

	if err := w.service.MarkFired(ctx, now); err != nil {
		return true, err
	}

	w.logger.InfoContext(ctx, "Daily reminder sent",
		log.FieldOperation, log.OpNotify,
		"next", reminder.NextFire(now.Add(time.Minute), settings.Hour, settings.Minute, w.location).Format(time.RFC3339))
	return true, nil
}

// Run checks once immediately and then on every tick until ctx is done.
// Check errors are logged and never stop the loop.
func (w *ReminderWorker) Run(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Reminder worker started", "interval", w.interval.String())

	w.tick(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "Reminder worker stopped")
			return nil
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *ReminderWorker) tick(ctx context.Context) {
	if _, err := w.Check(ctx); err != nil && ctx.Err() == nil {
		w.logger.ErrorContext(ctx, "Reminder check failed", log.FieldError, err.Error())
	}
}
