package sheets

import (
	"context"
	"strings"

	"grateful/internal/recap"
)

// Ports for outbound adapters.
type (
	// RecapSharer publishes a weekly recap to an external destination and
	// returns a reference to where it landed.
	RecapSharer interface {
		ShareRecap(ctx context.Context, r recap.Recap) (ref string, err error)
	}
)

// RecapRow flattens a recap into the cells written by spreadsheet sharers:
// range label, end date, entry count, listed texts and the remaining count.
func RecapRow(r recap.Recap) []any {
	texts := make([]string, 0, len(r.Items))
	for _, item := range r.Items {
		texts = append(texts, item.Text)
	}
	return []any{
		r.RangeLabel,
		r.End.Format("2006-01-02"),
		r.Total,
		strings.Join(texts, "; "),
		r.Remaining,
	}
}
