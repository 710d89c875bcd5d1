// Package reminder holds the daily gratitude reminder: its persisted
// settings, the dueness rule and the notification sent when it fires.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"grateful/internal/journal"
)

const (
	NotificationID    = "gratitude-reminder"
	NotificationTitle = "Time for gratitude"
	NotificationBody  = "What are you grateful for today?"

	DefaultHour   = 20
	DefaultMinute = 0
)

var (
	ErrInvalidHour   = errors.New("hour must be between 0 and 23")
	ErrInvalidMinute = errors.New("minute must be between 0 and 59")
	ErrInvalidTime   = errors.New("time must be formatted as HH:MM")
)

// Settings is the user's reminder configuration. LastFired is maintained by
// the worker and ArmedAt by the scheduler; neither is user editable.
type Settings struct {
	Enabled   bool      `json:"enabled"`
	Hour      int       `json:"hour"`
	Minute    int       `json:"minute"`
	LastFired time.Time `json:"last_fired,omitempty"`
	ArmedAt   time.Time `json:"armed_at,omitempty"`
}

// DefaultSettings returns a disabled reminder at 20:00.
func DefaultSettings() Settings {
	return Settings{Hour: DefaultHour, Minute: DefaultMinute}
}

func (s Settings) Validate() error {
	return validateTime(s.Hour, s.Minute)
}

// TimeLabel formats the reminder time as HH:MM.
func (s Settings) TimeLabel() string {
	return fmt.Sprintf("%02d:%02d", s.Hour, s.Minute)
}

func validateTime(hour, minute int) error {
	if hour < 0 || hour > 23 {
		return ErrInvalidHour
	}
	if minute < 0 || minute > 59 {
		return ErrInvalidMinute
	}
	return nil
}

// ParseTimeOfDay parses "HH:MM" as submitted by an HTML time input.
func ParseTimeOfDay(s string) (hour, minute int, err error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, 0, ErrInvalidTime
	}
	hour, err = strconv.Atoi(h)
	if err != nil {
		return 0, 0, ErrInvalidTime
	}
	minute, err = strconv.Atoi(m)
	if err != nil {
		return 0, 0, ErrInvalidTime
	}
	if err := validateTime(hour, minute); err != nil {
		return 0, 0, err
	}
	return hour, minute, nil
}

// NextFire returns the first instant at or after now when the reminder set for
// hour:minute in loc goes off.
func NextFire(now time.Time, hour, minute int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	fire := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if fire.Before(local) {
		fire = time.Date(local.Year(), local.Month(), local.Day()+1, hour, minute, 0, 0, loc)
	}
	return fire
}

// IsDue reports whether an enabled reminder should fire at now. It fires at
// most once per local day, only once the configured time of that day has
// passed, and never for a time that had already passed when it was armed.
func IsDue(lastFired, now time.Time, s Settings, loc *time.Location) bool {
	if !s.Enabled {
		return false
	}
	if loc == nil {
		loc = time.Local
	}
	if !lastFired.IsZero() && journal.IsSameCalendarDay(lastFired, now, loc) {
		return false
	}
	local := now.In(loc)
	target := time.Date(local.Year(), local.Month(), local.Day(), s.Hour, s.Minute, 0, 0, loc)
	if local.Before(target) {
		return false
	}
	if s.ArmedAt.After(target) {
		return false
	}
	return lastFired.Before(target)
}

// Notification is the message delivered when the reminder fires.
type Notification struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Body         string    `json:"body"`
	ScheduledFor time.Time `json:"scheduled_for"`
}

// DailyNotification builds the reminder notification for the given firing time.
func DailyNotification(at time.Time) Notification {
	return Notification{
		ID:           NotificationID,
		Title:        NotificationTitle,
		Body:         NotificationBody,
		ScheduledFor: at,
	}
}

// Notifier delivers a reminder notification.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Scheduler arms and disarms the daily reminder.
type Scheduler interface {
	ScheduleDailyReminder(ctx context.Context, hour, minute int) error
	CancelReminder(ctx context.Context) error
}

// SettingsStore persists reminder settings.
type SettingsStore interface {
	LoadReminderSettings(ctx context.Context) (Settings, error)
	SaveReminderSettings(ctx context.Context, s Settings) error
}
