// Package recap builds the shareable weekly gratitude summary and renders it
// as plain text or a PNG card.
package recap

import (
	"time"

	"grateful/internal/core"
	"grateful/internal/journal"
)

const (
	Title        = "My Week of Gratitude"
	EmptyMessage = "Start adding gratitudes to see your weekly recap"
	Footer       = "Grateful"

	// MaxItems is how many entries the card lists before summarizing the rest.
	MaxItems = 7

	rangeDays   = 6
	rangeLayout = "Jan 2"
)

// Recap is the weekly summary shown on the recap card.
type Recap struct {
	Title      string       `json:"title"`
	RangeLabel string       `json:"range"`
	Start      time.Time    `json:"start"`
	End        time.Time    `json:"end"`
	Items      []core.Entry `json:"items"`
	Total      int          `json:"total"`
	Remaining  int          `json:"remaining"`
}

// Empty reports whether no entry fell inside the window.
func (r Recap) Empty() bool {
	return r.Total == 0
}

// Build selects the entries of the last week and prepares the card content.
// The window is journal.RecapWindow of elapsed time ending at now; the range
// label spans the six calendar days before now's day up to now.
func Build(entries []core.Entry, now time.Time, loc *time.Location) Recap {
	if loc == nil {
		loc = time.Local
	}
	week := journal.SelectRecapWindow(journal.SortNewestFirst(entries), now)
	return fromWeek(week, now, loc)
}

// FromSnapshot reuses the window already computed for a snapshot.
func FromSnapshot(s journal.Snapshot) Recap {
	loc := s.Location
	if loc == nil {
		loc = time.Local
	}
	return fromWeek(s.Week, s.Now, loc)
}

func fromWeek(week []core.Entry, now time.Time, loc *time.Location) Recap {
	end := now.In(loc)
	start := end.AddDate(0, 0, -rangeDays)

	items := week
	if len(items) > MaxItems {
		items = items[:MaxItems]
	}

	return Recap{
		Title:      Title,
		RangeLabel: start.Format(rangeLayout) + " - " + end.Format(rangeLayout),
		Start:      start,
		End:        end,
		Items:      append([]core.Entry{}, items...),
		Total:      len(week),
		Remaining:  len(week) - len(items),
	}
}
