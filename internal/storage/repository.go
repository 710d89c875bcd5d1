package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"grateful/internal/core"
	"grateful/internal/entries"
	"grateful/internal/reminder"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const reminderSettingsKey = "reminder"

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

var (
	_ entries.Store          = (*SQLiteRepository)(nil)
	_ reminder.SettingsStore = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Append stores a validated entry and returns it with its assigned ID.
func (r *SQLiteRepository) Append(ctx context.Context, e core.Entry) (core.Entry, error) {
	if err := e.Validate(); err != nil {
		return core.Entry{}, err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	row, err := r.queries.InsertEntry(ctx, InsertEntryParams{
		ID:        e.ID,
		Text:      e.Text,
		CreatedAt: e.CreatedAt.UnixNano(),
	})
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return core.Entry{}, fmt.Errorf("insert entry %s: %w", e.ID, entries.ErrDuplicateID)
		}
		return core.Entry{}, fmt.Errorf("insert entry: %w", err)
	}

	slog.DebugContext(ctx, "Entry saved to SQLite",
		"entry_id", row.ID,
		"seq", row.Seq,
		"created_at", row.CreatedAt)

	return rowToEntry(row), nil
}

// ListAll returns every entry in insertion order.
func (r *SQLiteRepository) ListAll(ctx context.Context) ([]core.Entry, error) {
	rows, err := r.queries.ListEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return rowsToEntries(rows), nil
}

// ListNewestFirst returns every entry by creation time, descending. Ties keep
// insertion order.
func (r *SQLiteRepository) ListNewestFirst(ctx context.Context) ([]core.Entry, error) {
	rows, err := r.queries.ListEntriesNewestFirst(ctx)
	if err != nil {
		return nil, fmt.Errorf("list entries newest first: %w", err)
	}
	return rowsToEntries(rows), nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	n, err := r.queries.DeleteEntry(ctx, id)
	if err != nil {
		return fmt.Errorf("delete entry %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete entry %s: %w", id, entries.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	n, err := r.queries.CountEntries(ctx)
	if err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return int(n), nil
}

// LoadReminderSettings returns the stored settings, or the defaults when none
// were saved yet.
func (r *SQLiteRepository) LoadReminderSettings(ctx context.Context) (reminder.Settings, error) {
	value, err := r.queries.GetSetting(ctx, reminderSettingsKey)
	if errors.Is(err, sql.ErrNoRows) {
		return reminder.DefaultSettings(), nil
	}
	if err != nil {
		return reminder.Settings{}, fmt.Errorf("get reminder settings: %w", err)
	}

	var s reminder.Settings
	if err := json.Unmarshal([]byte(value), &s); err != nil {
		return reminder.Settings{}, fmt.Errorf("decode reminder settings: %w", err)
	}
	return s, nil
}

func (r *SQLiteRepository) SaveReminderSettings(ctx context.Context, s reminder.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	value, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode reminder settings: %w", err)
	}
	if err := r.queries.UpsertSetting(ctx, UpsertSettingParams{
		Key:       reminderSettingsKey,
		Value:     string(value),
		UpdatedAt: time.Now().Unix(),
	}); err != nil {
		return fmt.Errorf("save reminder settings: %w", err)
	}
	return nil
}

func rowToEntry(row EntryRow) core.Entry {
	return core.Entry{
		ID:        row.ID,
		Text:      row.Text,
		CreatedAt: time.Unix(0, row.CreatedAt).UTC(),
	}
}

func rowsToEntries(rows []EntryRow) []core.Entry {
	out := make([]core.Entry, 0, len(rows))
	for _, row := range rows {
		out = append(out, rowToEntry(row))
	}
	return out
}
