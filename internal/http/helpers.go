package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"grateful/internal/core"
	"grateful/internal/journal"
)

const (
	dayLabelLayout   = "Monday, January 2"
	clockLabelLayout = "3:04 PM"
)

// sanitizeInput removes control characters except tab and line breaks, then
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON reports whether the caller sent or asked for JSON.
func wantsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func dayLabel(t time.Time) string {
	return t.Format(dayLabelLayout)
}

// entryView is an entry prepared for the templates.
type entryView struct {
	ID   string
	Text string
	Time string
}

type dayView struct {
	Label   string
	Entries []entryView
}

func newEntryViews(entries []core.Entry, loc *time.Location) []entryView {
	out := make([]entryView, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryView{
			ID:   e.ID,
			Text: e.Text,
			Time: e.CreatedAt.In(loc).Format(clockLabelLayout),
		})
	}
	return out
}

func newDayViews(groups []journal.DayGroup, loc *time.Location) []dayView {
	out := make([]dayView, 0, len(groups))
	for _, g := range groups {
		out = append(out, dayView{
			Label:   dayLabel(g.Day.In(loc)),
			Entries: newEntryViews(g.Entries, loc),
		})
	}
	return out
}
