package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Queries holds the SQL statements used by the repository.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a copy bound to tx.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// EntryRow is the stored form of an entry.
type EntryRow struct {
	Seq       int64
	ID        string
	Text      string
	CreatedAt int64
}

type InsertEntryParams struct {
	ID        string
	Text      string
	CreatedAt int64
}

const insertEntry = `
INSERT INTO entries (id, text, created_at)
VALUES (?, ?, ?)
RETURNING seq, id, text, created_at
`

func (q *Queries) InsertEntry(ctx context.Context, arg InsertEntryParams) (EntryRow, error) {
	row := q.db.QueryRowContext(ctx, insertEntry, arg.ID, arg.Text, arg.CreatedAt)
	var i EntryRow
	err := row.Scan(&i.Seq, &i.ID, &i.Text, &i.CreatedAt)
	return i, err
}

const listEntries = `
SELECT seq, id, text, created_at
FROM entries
ORDER BY seq ASC
`

func (q *Queries) ListEntries(ctx context.Context) ([]EntryRow, error) {
	return q.scanEntries(ctx, listEntries)
}

const listEntriesNewestFirst = `
SELECT seq, id, text, created_at
FROM entries
ORDER BY created_at DESC, seq ASC
`

func (q *Queries) ListEntriesNewestFirst(ctx context.Context) ([]EntryRow, error) {
	return q.scanEntries(ctx, listEntriesNewestFirst)
}

func (q *Queries) scanEntries(ctx context.Context, query string) ([]EntryRow, error) {
	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []EntryRow
	for rows.Next() {
		var i EntryRow
		if err := rows.Scan(&i.Seq, &i.ID, &i.Text, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteEntry = `
DELETE FROM entries WHERE id = ?
`

func (q *Queries) DeleteEntry(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteEntry, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const countEntries = `
SELECT COUNT(*) FROM entries
`

func (q *Queries) CountEntries(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countEntries)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const getSetting = `
SELECT value FROM settings WHERE key = ?
`

func (q *Queries) GetSetting(ctx context.Context, key string) (string, error) {
	row := q.db.QueryRowContext(ctx, getSetting, key)
	var value string
	err := row.Scan(&value)
	return value, err
}

type UpsertSettingParams struct {
	Key       string
	Value     string
	UpdatedAt int64
}

const upsertSetting = `
INSERT INTO settings (key, value, updated_at)
VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
`

func (q *Queries) UpsertSetting(ctx context.Context, arg UpsertSettingParams) error {
	_, err := q.db.ExecContext(ctx, upsertSetting, arg.Key, arg.Value, arg.UpdatedAt)
	return err
}
