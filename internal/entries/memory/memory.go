package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"grateful/internal/core"
	"grateful/internal/entries"
	"grateful/internal/journal"
)

var _ entries.Store = (*Store)(nil)

type Store struct {
	mu    sync.Mutex
	items []core.Entry
}

func New(seed []core.Entry) *Store {
	s := &Store{}
	for _, e := range seed {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		s.items = append(s.items, e)
	}
	return s
}

// NewFromFile seeds the store from a text file with one entry per line:
// an RFC 3339 timestamp, a tab, then the text. Blank lines, comments and
// malformed lines are skipped. A missing file yields an empty store.
func NewFromFile(path string) *Store {
	return New(readSeed(path))
}

// Append stores the entry, assigning an ID when it has none.
func (s *Store) Append(_ context.Context, e core.Entry) (core.Entry, error) {
	if err := e.Validate(); err != nil {
		return core.Entry{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	for _, existing := range s.items {
		if existing.ID == e.ID {
			return core.Entry{}, fmt.Errorf("append %s: %w", e.ID, entries.ErrDuplicateID)
		}
	}
	s.items = append(s.items, e)
	return e, nil
}

// ListAll returns a copy of the entries in insertion order.
func (s *Store) ListAll(_ context.Context) ([]core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Entry(nil), s.items...), nil
}

func (s *Store) ListNewestFirst(ctx context.Context) ([]core.Entry, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return journal.SortNewestFirst(all), nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.items {
		if e.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("delete %s: %w", id, entries.ErrNotFound)
}

func readSeed(path string) []core.Entry {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []core.Entry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ts, text, ok := strings.Cut(line, "\t")
		if !ok {
			continue
		}
		createdAt, err := time.Parse(time.RFC3339, strings.TrimSpace(ts))
		if err != nil {
			continue
		}
		e, err := core.NewEntry(text, createdAt)
		if err != nil {
			continue
		}
		out = append(out, e)
	}
	return out
}
