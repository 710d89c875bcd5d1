// Package journal derives the facts shown for a gratitude log: the entries
// written today, the daily streak, the most recent days grouped for display
// and the weekly recap window.
//
// Every function here is pure. The caller supplies the entries, the current
// instant and the location whose calendar defines "a day".
package journal

import (
	"slices"
	"time"

	"grateful/internal/core"
)

const (
	// RecentDays is the maximum number of day groups GroupByDay returns.
	RecentDays = 7

	// RecapWindow is the elapsed time covered by the weekly recap.
	RecapWindow = 7 * 24 * time.Hour
)

// MinDay is the earliest day the streak walk will step back to: January 1
// of year 1, compared by local calendar date.
var MinDay = time.Time{}

// DayGroup is the set of entries written on one calendar day.
type DayGroup struct {
	Day     time.Time    `json:"day"`
	Entries []core.Entry `json:"entries"`
}

type dayKey struct {
	year  int
	month time.Month
	day   int
}

func dayOf(t time.Time, loc *time.Location) dayKey {
	y, m, d := t.In(orLocal(loc)).Date()
	return dayKey{year: y, month: m, day: d}
}

func orLocal(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}
	return loc
}

// IsSameCalendarDay reports whether a and b fall on the same local calendar
// day in loc.
func IsSameCalendarDay(a, b time.Time, loc *time.Location) bool {
	return dayOf(a, loc) == dayOf(b, loc)
}

// StartOfDay returns the first instant of t's calendar day in loc. On days
// where local midnight is skipped by a zone transition, that is the
// transition itself.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	loc = orLocal(loc)
	key := dayOf(t, loc)
	start := time.Date(key.year, key.month, key.day, 0, 0, 0, 0, loc)
	if dayOf(start, loc) != key {
		if _, end := start.ZoneBounds(); !end.IsZero() {
			start = end
		}
	}
	return start
}

// previousDay steps back one calendar day from the start of day. The second
// result is false when no earlier day can be represented.
func previousDay(day time.Time, loc *time.Location) (time.Time, bool) {
	loc = orLocal(loc)
	key := dayOf(day, loc)
	// Noon never falls inside a zone transition.
	prev := StartOfDay(time.Date(key.year, key.month, key.day-1, 12, 0, 0, 0, loc), loc)
	if !prev.Before(day) || dayOf(prev, loc).year < MinDay.Year() {
		return time.Time{}, false
	}
	return prev, true
}

// PartitionToday splits entries into those on now's calendar day and the
// rest. Both partitions keep the input order.
func PartitionToday(entries []core.Entry, now time.Time, loc *time.Location) (today, past []core.Entry) {
	today = make([]core.Entry, 0)
	past = make([]core.Entry, 0, len(entries))
	key := dayOf(now, loc)
	for _, e := range entries {
		if dayOf(e.CreatedAt, loc) == key {
			today = append(today, e)
		} else {
			past = append(past, e)
		}
	}
	return today, past
}

// GroupByDay groups entries by calendar day, most recent day first, keeping
// at most RecentDays groups. Entries keep their input order inside a group.
func GroupByDay(entries []core.Entry, loc *time.Location) []DayGroup {
	groups := make([]DayGroup, 0)
	index := make(map[dayKey]int)
	for _, e := range entries {
		key := dayOf(e.CreatedAt, loc)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, DayGroup{Day: StartOfDay(e.CreatedAt, loc)})
		}
		groups[i].Entries = append(groups[i].Entries, e)
	}

	slices.SortStableFunc(groups, func(a, b DayGroup) int {
		return b.Day.Compare(a.Day)
	})
	if len(groups) > RecentDays {
		groups = groups[:RecentDays]
	}
	return groups
}

// ComputeStreak counts consecutive calendar days, ending with now's day, that
// hold at least one entry. A day without entries ends the count, so a log
// with nothing written today has a streak of zero.
func ComputeStreak(entries []core.Entry, now time.Time, loc *time.Location) int {
	if len(entries) == 0 {
		return 0
	}
	days := make(map[dayKey]struct{}, len(entries))
	for _, e := range entries {
		days[dayOf(e.CreatedAt, loc)] = struct{}{}
	}

	streak := 0
	day := StartOfDay(now, loc)
	for {
		if _, ok := days[dayOf(day, loc)]; !ok {
			return streak
		}
		streak++

		prev, ok := previousDay(day, loc)
		if !ok {
			return streak
		}
		day = prev
	}
}

// SelectRecapWindow keeps the entries created no earlier than RecapWindow
// before now. The bound is elapsed time, not calendar days, and inclusive.
func SelectRecapWindow(entries []core.Entry, now time.Time) []core.Entry {
	cutoff := now.Add(-RecapWindow)
	out := make([]core.Entry, 0)
	for _, e := range entries {
		if !e.CreatedAt.Before(cutoff) {
			out = append(out, e)
		}
	}
	return out
}

// SortNewestFirst returns a copy of entries ordered by creation time,
// descending. Entries with equal timestamps keep their relative order.
func SortNewestFirst(entries []core.Entry) []core.Entry {
	out := slices.Clone(entries)
	slices.SortStableFunc(out, func(a, b core.Entry) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out
}
