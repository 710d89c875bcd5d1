package memory

import (
	"context"
	"fmt"
	"sync"

	"grateful/internal/recap"
	ports "grateful/internal/sheets"
)

// Sharer keeps shared recaps in memory. It stands in for a real share target
// in development and tests.
type Sharer struct {
	mu     sync.Mutex
	shared []recap.Recap
}

var _ ports.RecapSharer = (*Sharer)(nil)

func New() *Sharer {
	return &Sharer{}
}

// ShareRecap records r and returns a synthetic reference.
func (s *Sharer) ShareRecap(_ context.Context, r recap.Recap) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shared = append(s.shared, r)
	return fmt.Sprintf("mem:%d", len(s.shared)), nil
}

// Shared returns a copy of every recap shared so far.
func (s *Sharer) Shared() []recap.Recap {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]recap.Recap(nil), s.shared...)
}
