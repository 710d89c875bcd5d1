package core

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxTextLength is the longest gratitude note accepted, in runes.
const MaxTextLength = 500

type (
	// Entry is one gratitude note. Entries are never edited once created.
	Entry struct {
		ID        string    `json:"id"`
		Text      string    `json:"text"`
		CreatedAt time.Time `json:"created_at"`
	}
)

var (
	ErrEmptyText     = errors.New("empty entry text")
	ErrTextTooLong   = errors.New("entry text too long (max 500 characters)")
	ErrZeroTimestamp = errors.New("entry timestamp cannot be zero")
)

// NewEntry normalizes text and builds an entry stamped at createdAt.
// Text that is empty after trimming is rejected.
func NewEntry(text string, createdAt time.Time) (Entry, error) {
	e := Entry{
		Text:      NormalizeText(text),
		CreatedAt: createdAt,
	}
	if err := e.Validate(); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// NormalizeText strips leading and trailing whitespace, newlines included.
func NormalizeText(s string) string {
	return strings.TrimSpace(s)
}

func (e Entry) Validate() error {
	if strings.TrimSpace(e.Text) == "" {
		return ErrEmptyText
	}
	if utf8.RuneCountInString(e.Text) > MaxTextLength {
		return ErrTextTooLong
	}
	if e.CreatedAt.IsZero() {
		return ErrZeroTimestamp
	}
	return nil
}
