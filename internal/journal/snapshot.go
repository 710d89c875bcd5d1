package journal

import (
	"time"

	"grateful/internal/core"
)

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant.
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time { return c.T }

// Snapshot holds every view derived from a single read of the entry log.
type Snapshot struct {
	Now      time.Time      `json:"now"`
	Location *time.Location `json:"-"`

	// Entries is the full log, newest first.
	Entries []core.Entry `json:"-"`

	Today  []core.Entry `json:"today"`
	Past   []core.Entry `json:"-"`
	Recent []DayGroup   `json:"recent"`
	Streak int          `json:"streak"`

	// Week is the recap window, newest first.
	Week []core.Entry `json:"week"`
}

// HasPast reports whether any entry predates today.
func (s Snapshot) HasPast() bool {
	return len(s.Past) > 0
}

// Build computes all views from one snapshot of entries. The input order
// does not matter; entries are sorted newest first before partitioning.
func Build(entries []core.Entry, now time.Time, loc *time.Location) Snapshot {
	loc = orLocal(loc)
	sorted := SortNewestFirst(entries)
	today, past := PartitionToday(sorted, now, loc)

	return Snapshot{
		Now:      now.In(loc),
		Location: loc,
		Entries:  sorted,
		Today:    today,
		Past:     past,
		Recent:   GroupByDay(past, loc),
		Streak:   ComputeStreak(sorted, now, loc),
		Week:     SelectRecapWindow(sorted, now),
	}
}
