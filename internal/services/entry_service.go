package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"grateful/internal/core"
	"grateful/internal/entries"
	"grateful/internal/journal"
	"grateful/internal/log"
	"grateful/internal/recap"
	"grateful/internal/sheets"
)

// ErrSharingDisabled is returned by ShareRecap when no share target is set.
var ErrSharingDisabled = errors.New("recap sharing is not configured")

// StreakRecorder receives the streak computed for each snapshot.
type StreakRecorder interface {
	SetStreak(days int)
}

// EntryService orchestrates entry operations across the store, the engine
// and the change hub.
type EntryService struct {
	store    entries.Store
	clock    journal.Clock
	location *time.Location
	hub      *entries.Hub
	sharer   sheets.RecapSharer
	streak   StreakRecorder
	logger   *log.StructuredLogger
}

// Option configures an EntryService.
type Option func(*EntryService)

func WithClock(c journal.Clock) Option {
	return func(s *EntryService) { s.clock = c }
}

func WithLocation(loc *time.Location) Option {
	return func(s *EntryService) { s.location = loc }
}

func WithHub(h *entries.Hub) Option {
	return func(s *EntryService) { s.hub = h }
}

func WithSharer(sh sheets.RecapSharer) Option {
	return func(s *EntryService) { s.sharer = sh }
}

func WithStreakRecorder(r StreakRecorder) Option {
	return func(s *EntryService) { s.streak = r }
}

func WithLogger(l *log.Logger) Option {
	return func(s *EntryService) { s.logger = log.NewStructuredLogger(l) }
}

func NewEntryService(store entries.Store, opts ...Option) *EntryService {
	s := &EntryService{
		store:    store,
		clock:    journal.SystemClock{},
		location: time.Local,
		hub:      entries.NewHub(),
		logger:   log.NewStructuredLogger(log.Discard()),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Hub returns the hub the service publishes changes on.
func (s *EntryService) Hub() *entries.Hub {
	return s.hub
}

// Location returns the location whose calendar defines a day.
func (s *EntryService) Location() *time.Location {
	return s.location
}

// Now returns the current instant from the service clock.
func (s *EntryService) Now() time.Time {
	return s.clock.Now()
}

// CreateEntry trims and validates text, stamps it with the current time and
// appends it to the store.
func (s *EntryService) CreateEntry(ctx context.Context, text string) (core.Entry, error) {
	e, err := core.NewEntry(text, s.clock.Now())
	if err != nil {
		return core.Entry{}, err
	}

	saved, err := s.store.Append(ctx, e)
	if err != nil {
		return core.Entry{}, fmt.Errorf("save entry: %w", err)
	}

	s.hub.Publish(entries.Event{Kind: entries.EventCreated, Entry: saved})

	streak := -1
	if snap, err := s.Snapshot(ctx); err == nil {
		streak = snap.Streak
	}
	s.logger.LogEntryCreated(ctx, saved.ID, utf8.RuneCountInString(saved.Text), saved.CreatedAt.Format(time.RFC3339), streak)

	return saved, nil
}

// Snapshot reads the store once and derives every view from it.
func (s *EntryService) Snapshot(ctx context.Context) (journal.Snapshot, error) {
	all, err := s.store.ListNewestFirst(ctx)
	if err != nil {
		return journal.Snapshot{}, fmt.Errorf("list entries: %w", err)
	}

	snap := journal.Build(all, s.clock.Now(), s.location)
	if s.streak != nil {
		s.streak.SetStreak(snap.Streak)
	}
	return snap, nil
}

// Recap builds the weekly recap from a fresh snapshot.
func (s *EntryService) Recap(ctx context.Context) (recap.Recap, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return recap.Recap{}, err
	}
	return recap.FromSnapshot(snap), nil
}

// DeleteEntry removes an entry from the store.
func (s *EntryService) DeleteEntry(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	s.hub.Publish(entries.Event{Kind: entries.EventDeleted, Entry: core.Entry{ID: id}})
	return nil
}

// ShareRecap publishes the current recap to the configured share target and
// returns it with the reference the target assigned.
func (s *EntryService) ShareRecap(ctx context.Context) (recap.Recap, string, error) {
	if s.sharer == nil {
		return recap.Recap{}, "", ErrSharingDisabled
	}
	r, err := s.Recap(ctx)
	if err != nil {
		return recap.Recap{}, "", err
	}
	ref, err := s.sharer.ShareRecap(ctx, r)
	if err != nil {
		s.logger.LogError(ctx, "Recap share failed", err, log.ComponentSheets, log.OpShare, nil)
		return r, "", fmt.Errorf("share recap: %w", err)
	}
	return r, ref, nil
}

// SharingEnabled reports whether a share target is configured.
func (s *EntryService) SharingEnabled() bool {
	return s.sharer != nil
}

// Close closes the store when it holds resources.
func (s *EntryService) Close() error {
	if c, ok := s.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("close entry store: %w", err)
		}
	}
	return nil
}
