package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"grateful/internal/journal"
	"grateful/internal/log"
)

// Service implements Scheduler on top of a SettingsStore.
type Service struct {
	store  SettingsStore
	clock  journal.Clock
	logger *log.Logger
}

var _ Scheduler = (*Service)(nil)

type Option func(*Service)

// WithClock sets the clock used to stamp when the reminder is armed.
func WithClock(c journal.Clock) Option {
	return func(s *Service) { s.clock = c }
}

func NewService(store SettingsStore, logger *log.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = log.Discard()
	}
	s := &Service{
		store:  store,
		clock:  journal.SystemClock{},
		logger: logger.WithComponent(log.ComponentReminder),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Settings returns the stored settings.
func (s *Service) Settings(ctx context.Context) (Settings, error) {
	settings, err := s.store.LoadReminderSettings(ctx)
	if err != nil {
		return Settings{}, fmt.Errorf("load reminder settings: %w", err)
	}
	return settings, nil
}

// ScheduleDailyReminder enables the reminder at hour:minute. The first firing
// is the next occurrence of that time after now.
func (s *Service) ScheduleDailyReminder(ctx context.Context, hour, minute int) error {
	if err := validateTime(hour, minute); err != nil {
		return err
	}
	current, err := s.Settings(ctx)
	if err != nil {
		return err
	}
	current.Enabled = true
	current.Hour = hour
	current.Minute = minute
	current.ArmedAt = s.clock.Now()
	if err := s.store.SaveReminderSettings(ctx, current); err != nil {
		return fmt.Errorf("save reminder settings: %w", err)
	}
	s.logger.InfoContext(ctx, "Daily reminder scheduled",
		log.FieldOperation, log.OpSchedule,
		"time", current.TimeLabel())
	return nil
}

// CancelReminder disables the reminder and keeps the last chosen time.
func (s *Service) CancelReminder(ctx context.Context) error {
	current, err := s.Settings(ctx)
	if err != nil {
		return err
	}
	current.Enabled = false
	if err := s.store.SaveReminderSettings(ctx, current); err != nil {
		return fmt.Errorf("save reminder settings: %w", err)
	}
	s.logger.InfoContext(ctx, "Daily reminder cancelled", log.FieldOperation, log.OpCancel)
	return nil
}

// MarkFired records the instant the reminder last went off.
func (s *Service) MarkFired(ctx context.Context, at time.Time) error {
	current, err := s.Settings(ctx)
	if err != nil {
		return err
	}
	current.LastFired = at
	if err := s.store.SaveReminderSettings(ctx, current); err != nil {
		return fmt.Errorf("save reminder settings: %w", err)
	}
	return nil
}

// MemoryStore keeps settings in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	settings Settings
}

var _ SettingsStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{settings: DefaultSettings()}
}

func (m *MemoryStore) LoadReminderSettings(_ context.Context) (Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings, nil
}

func (m *MemoryStore) SaveReminderSettings(_ context.Context, s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = s
	return nil
}

// LogNotifier writes notifications to the log. It is used when no message
// broker is configured.
type LogNotifier struct {
	logger *log.Logger
}

func NewLogNotifier(logger *log.Logger) *LogNotifier {
	if logger == nil {
		logger = log.Discard()
	}
	return &LogNotifier{logger: logger.WithComponent(log.ComponentReminder)}
}

func (n *LogNotifier) Notify(ctx context.Context, notification Notification) error {
	n.logger.InfoContext(ctx, notification.Title,
		"id", notification.ID,
		"body", notification.Body,
		"scheduled_for", notification.ScheduledFor.Format(time.RFC3339),
		log.FieldOperation, log.OpNotify)
	return nil
}
